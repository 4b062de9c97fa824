package expr

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// DefaultScaleFactor matches the conventional per-cell library size target.
const DefaultScaleFactor = 1e4

// NormalizeData library-size normalizes each cell to scaleFactor total
// counts and applies log1p. The result is stored on the dataset as Norm;
// Counts is left untouched.
func (d *Dataset) NormalizeData(scaleFactor float64) error {
	rows, cols := d.Counts.Dims()

	norm := mat.NewDense(rows, cols, nil)
	for j := 0; j < cols; j++ {
		var colSum float64
		for i := 0; i < rows; i++ {
			colSum += d.Counts.At(i, j)
		}
		if colSum == 0 {
			return fmt.Errorf("dataset %s: cell %s has zero total counts", d.Sample, d.Cells[j])
		}
		for i := 0; i < rows; i++ {
			norm.Set(i, j, math.Log1p(d.Counts.At(i, j)/colSum*scaleFactor))
		}
	}

	d.Norm = norm
	return nil
}

// Scale returns a features x cells matrix of per-gene standardized values
// computed from Norm. With center=false the values are only divided by the
// gene's root mean square, which is what the factorization path requires
// (non-negative input).
func (d *Dataset) Scale(features []string, center bool) (*mat.Dense, error) {
	x, err := d.SubsetNorm(features)
	if err != nil {
		return nil, err
	}

	rows, cols := x.Dims()
	if cols < 2 {
		return nil, fmt.Errorf("dataset %s: too few cells to scale", d.Sample)
	}
	for i := 0; i < rows; i++ {
		row := x.RawRowView(i)

		var mean float64
		for _, v := range row {
			mean += v
		}
		mean /= float64(cols)

		var ss float64
		for _, v := range row {
			if center {
				ss += (v - mean) * (v - mean)
			} else {
				ss += v * v
			}
		}
		sd := math.Sqrt(ss / float64(cols-1))
		if sd == 0 {
			// Constant gene in this sample; leave the row at zero.
			for j := range row {
				row[j] = 0
			}
			continue
		}

		for j := range row {
			if center {
				row[j] = (row[j] - mean) / sd
			} else {
				row[j] = row[j] / sd
			}
		}
	}

	return x, nil
}
