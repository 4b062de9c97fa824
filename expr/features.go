package expr

import (
	"fmt"
	"sort"

	"github.com/carbocation/runningvariance"
	"github.com/montanaflynn/stats"
)

// DefaultVariableFeatures is the per-sample variable-feature count used by
// the anchor-based pipelines.
const DefaultVariableFeatures = 2000

// FindVariableFeatures ranks genes by dispersion (variance over mean) of
// their normalized values and keeps the top n as the dataset's variable
// features. Genes with zero expression are never selected.
func (d *Dataset) FindVariableFeatures(n int) error {
	if d.Norm == nil {
		return fmt.Errorf("dataset %s: normalize before selecting variable features", d.Sample)
	}

	rows, cols := d.Norm.Dims()

	type ranked struct {
		gene       string
		dispersion float64
	}

	candidates := make([]ranked, 0, rows)
	for i := 0; i < rows; i++ {
		rs := runningvariance.NewRunningStat()
		for j := 0; j < cols; j++ {
			rs.Push(d.Norm.At(i, j))
		}

		mean := rs.Mean()
		if mean == 0 {
			continue
		}
		sd := rs.StandardDeviation()

		candidates = append(candidates, ranked{
			gene:       d.Genes[i],
			dispersion: sd * sd / mean,
		})
	}

	if len(candidates) == 0 {
		return fmt.Errorf("dataset %s: no expressed genes to rank", d.Sample)
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].dispersion != candidates[j].dispersion {
			return candidates[i].dispersion > candidates[j].dispersion
		}
		return candidates[i].gene < candidates[j].gene
	})

	if n > len(candidates) {
		n = len(candidates)
	}

	d.VarFeatures = make([]string, n)
	for i := 0; i < n; i++ {
		d.VarFeatures[i] = candidates[i].gene
	}

	return nil
}

// SelectIntegrationFeatures aggregates each dataset's variable-feature
// ranking into one shared feature set of at most n genes. Genes are ordered
// by how many datasets selected them, ties broken by the best (lowest)
// median rank across datasets.
func SelectIntegrationFeatures(datasets []*Dataset, n int) ([]string, error) {
	type tally struct {
		count int
		ranks []float64
	}

	tallies := make(map[string]*tally)
	for _, d := range datasets {
		if len(d.VarFeatures) == 0 {
			return nil, fmt.Errorf("dataset %s: variable features not computed", d.Sample)
		}
		for rank, gene := range d.VarFeatures {
			t := tallies[gene]
			if t == nil {
				t = &tally{}
				tallies[gene] = t
			}
			t.count++
			t.ranks = append(t.ranks, float64(rank))
		}
	}

	genes := make([]string, 0, len(tallies))
	medians := make(map[string]float64, len(tallies))
	for gene, t := range tallies {
		m, err := stats.Median(t.ranks)
		if err != nil {
			return nil, fmt.Errorf("aggregating ranks for %s: %v", gene, err)
		}
		genes = append(genes, gene)
		medians[gene] = m
	}

	sort.Slice(genes, func(i, j int) bool {
		ti, tj := tallies[genes[i]], tallies[genes[j]]
		if ti.count != tj.count {
			return ti.count > tj.count
		}
		if mi, mj := medians[genes[i]], medians[genes[j]]; mi != mj {
			return mi < mj
		}
		return genes[i] < genes[j]
	})

	if n > len(genes) {
		n = len(genes)
	}
	if n == 0 {
		return nil, fmt.Errorf("no shared variable features across datasets")
	}

	return genes[:n], nil
}
