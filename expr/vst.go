package expr

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// DefaultSCTFeatures is the variable-feature count used by the
// variance-stabilizing-transform pipeline.
const DefaultSCTFeatures = 5000

// sctTheta is the fixed overdispersion used by the regularized negative
// binomial residual model.
const sctTheta = 100.0

// SCTransform replaces NormalizeData + FindVariableFeatures for the SCT
// pipeline: it computes clipped Pearson residuals under a negative binomial
// model with fixed overdispersion, stores them as Norm, and ranks variable
// features by residual variance.
func (d *Dataset) SCTransform(n int) error {
	rows, cols := d.Counts.Dims()
	if cols < 2 {
		return fmt.Errorf("dataset %s: too few cells for variance stabilization", d.Sample)
	}

	// Per-cell size factors relative to the median library size.
	libSize := make([]float64, cols)
	total := 0.0
	for j := 0; j < cols; j++ {
		for i := 0; i < rows; i++ {
			libSize[j] += d.Counts.At(i, j)
		}
		if libSize[j] == 0 {
			return fmt.Errorf("dataset %s: cell %s has zero total counts", d.Sample, d.Cells[j])
		}
		total += libSize[j]
	}
	meanLib := total / float64(cols)

	clip := math.Sqrt(float64(cols))
	resid := mat.NewDense(rows, cols, nil)

	type ranked struct {
		gene     string
		variance float64
	}
	candidates := make([]ranked, 0, rows)

	for i := 0; i < rows; i++ {
		var geneMean float64
		for j := 0; j < cols; j++ {
			geneMean += d.Counts.At(i, j)
		}
		geneMean /= float64(cols)
		if geneMean == 0 {
			continue
		}

		var sum, sumSq float64
		for j := 0; j < cols; j++ {
			mu := geneMean * libSize[j] / meanLib
			sd := math.Sqrt(mu + mu*mu/sctTheta)
			r := (d.Counts.At(i, j) - mu) / sd
			if r > clip {
				r = clip
			} else if r < -clip {
				r = -clip
			}
			resid.Set(i, j, r)
			sum += r
			sumSq += r * r
		}

		mean := sum / float64(cols)
		candidates = append(candidates, ranked{
			gene:     d.Genes[i],
			variance: sumSq/float64(cols) - mean*mean,
		})
	}

	if len(candidates) == 0 {
		return fmt.Errorf("dataset %s: no expressed genes to transform", d.Sample)
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].variance != candidates[j].variance {
			return candidates[i].variance > candidates[j].variance
		}
		return candidates[i].gene < candidates[j].gene
	})

	if n > len(candidates) {
		n = len(candidates)
	}

	d.Norm = resid
	d.VarFeatures = make([]string, n)
	for i := 0; i < n; i++ {
		d.VarFeatures[i] = candidates[i].gene
	}

	return nil
}
