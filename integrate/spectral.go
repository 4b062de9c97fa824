package integrate

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// spectralNeighbors is the neighborhood width of the affinity graph behind
// the nonlinear embedding.
const spectralNeighbors = 15

// spectralEmbedding computes a 2-D nonlinear embedding of the cells in x
// (cells x dims) from the spectrum of the symmetric normalized Laplacian of
// a k-nearest-neighbor affinity graph. Deterministic for identical input.
func spectralEmbedding(x *mat.Dense) (*mat.Dense, error) {
	n, _ := x.Dims()
	if n < 4 {
		return nil, fmt.Errorf("need at least four cells for a nonlinear embedding, got %d", n)
	}

	k := spectralNeighbors
	if k > n-1 {
		k = n - 1
	}

	// Neighbor lists include self at position 0; skip it below.
	neighbors := nearestBetween(x, x, k+1)

	// Bandwidth from the mean distance to the kth neighbor.
	var sigma float64
	for i := range neighbors {
		last := neighbors[i][len(neighbors[i])-1]
		sigma += rowDistance(x, i, x, last)
	}
	sigma /= float64(n)
	if sigma == 0 {
		sigma = 1
	}

	w := mat.NewDense(n, n, nil)
	for i, nbrs := range neighbors {
		for _, j := range nbrs {
			if j == i {
				continue
			}
			d := rowDistance(x, i, x, j)
			a := math.Exp(-d * d / (2 * sigma * sigma))
			// Symmetrize by keeping the stronger direction.
			if a > w.At(i, j) {
				w.Set(i, j, a)
				w.Set(j, i, a)
			}
		}
	}

	degree := make([]float64, n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			degree[i] += w.At(i, j)
		}
		if degree[i] == 0 {
			return nil, fmt.Errorf("cell %d is isolated in the neighbor graph", i)
		}
	}

	lap := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			v := -w.At(i, j) / math.Sqrt(degree[i]*degree[j])
			if i == j {
				v = 1 + v
			}
			lap.SetSym(i, j, v)
		}
	}

	var es mat.EigenSym
	if ok := es.Factorize(lap, true); !ok {
		return nil, fmt.Errorf("laplacian eigendecomposition did not converge")
	}

	var vecs mat.Dense
	es.VectorsTo(&vecs)

	// Eigenvalues come back ascending; the first eigenvector is the trivial
	// constant mode, so the embedding uses the next two.
	out := mat.NewDense(n, 2, nil)
	for i := 0; i < n; i++ {
		out.Set(i, 0, vecs.At(i, 1))
		out.Set(i, 1, vecs.At(i, 2))
	}

	return out, nil
}
