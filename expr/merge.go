package expr

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Merge concatenates the datasets cell-wise over their shared genes (in the
// first dataset's gene order). The merged dataset carries a per-cell label
// slice so batch information survives the merge.
func Merge(datasets []*Dataset) (*Dataset, error) {
	if len(datasets) < 2 {
		return nil, fmt.Errorf("merge requires at least two datasets, got %d", len(datasets))
	}

	shared := make([]string, 0, len(datasets[0].Genes))
	for _, gene := range datasets[0].Genes {
		inAll := true
		for _, d := range datasets[1:] {
			if d.GeneRow(gene) < 0 {
				inAll = false
				break
			}
		}
		if inAll {
			shared = append(shared, gene)
		}
	}
	if len(shared) == 0 {
		return nil, fmt.Errorf("datasets share no genes")
	}

	var totalCells int
	for _, d := range datasets {
		totalCells += d.NCells()
	}

	counts := mat.NewDense(len(shared), totalCells, nil)
	cells := make([]string, 0, totalCells)
	labels := make([]string, 0, totalCells)

	col := 0
	for _, d := range datasets {
		for j := 0; j < d.NCells(); j++ {
			for i, gene := range shared {
				counts.Set(i, col, d.Counts.At(d.GeneRow(gene), j))
			}
			col++
		}
		cells = append(cells, d.Cells...)
		for j := 0; j < d.NCells(); j++ {
			labels = append(labels, d.Label)
		}
	}

	return &Dataset{
		Sample:     "merged",
		Genes:      shared,
		Cells:      cells,
		CellLabels: labels,
		Counts:     counts,
	}, nil
}
