package integrate

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// pcScores computes a principal-component decomposition of x (cells x
// features). It returns the cell scores (cells x dims) and the component
// basis (features x dims). dims is clamped to the available rank, since
// small inputs cannot support the full requested width.
func pcScores(x *mat.Dense, dims int) (*mat.Dense, *mat.Dense, error) {
	rows, cols := x.Dims()
	if rows < 2 {
		return nil, nil, fmt.Errorf("need at least two cells for a reduction, got %d", rows)
	}

	// Center each feature column.
	centered := mat.DenseCopyOf(x)
	for j := 0; j < cols; j++ {
		var mean float64
		for i := 0; i < rows; i++ {
			mean += centered.At(i, j)
		}
		mean /= float64(rows)
		for i := 0; i < rows; i++ {
			centered.Set(i, j, centered.At(i, j)-mean)
		}
	}

	var svd mat.SVD
	if ok := svd.Factorize(centered, mat.SVDThin); !ok {
		return nil, nil, fmt.Errorf("singular value decomposition did not converge")
	}

	values := svd.Values(nil)
	if dims > len(values) {
		dims = len(values)
	}
	for dims > 1 && values[dims-1] < 1e-12 {
		dims--
	}

	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	scores := mat.NewDense(rows, dims, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < dims; j++ {
			scores.Set(i, j, u.At(i, j)*values[j])
		}
	}

	basis := mat.NewDense(cols, dims, nil)
	for i := 0; i < cols; i++ {
		for j := 0; j < dims; j++ {
			basis.Set(i, j, v.At(i, j))
		}
	}

	return scores, basis, nil
}
