package integrate

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/mat"
)

const (
	nmfIterations = 30
	nmfEpsilon    = 1e-10
)

// inmf jointly factorizes the datasets as X_d ~ (W + V_d) H_d with a shared
// factor matrix W, dataset-specific factors V_d, and per-dataset cell
// loadings H_d, using multiplicative updates with an L2 penalty of lambda
// on the dataset-specific part. Inputs are non-negative features x cells
// matrices over a common feature layout; outputs are the k x cells loading
// matrices.
func inmf(xs []*mat.Dense, k int, lambda float64, iters int) ([]*mat.Dense, error) {
	if len(xs) < 2 {
		return nil, fmt.Errorf("factorization requires at least two datasets")
	}

	nFeatures := xs[0].RawMatrix().Rows
	for _, x := range xs {
		if x.RawMatrix().Rows != nFeatures {
			return nil, fmt.Errorf("datasets disagree on feature layout")
		}
		if cols := x.RawMatrix().Cols; cols < k {
			return nil, fmt.Errorf("dataset has %d cells, fewer than rank %d", cols, k)
		}
	}

	rng := rand.New(rand.NewSource(42))
	randInit := func(r, c int) *mat.Dense {
		m := mat.NewDense(r, c, nil)
		for i := 0; i < r; i++ {
			for j := 0; j < c; j++ {
				m.Set(i, j, rng.Float64()+nmfEpsilon)
			}
		}
		return m
	}

	w := randInit(nFeatures, k)
	vs := make([]*mat.Dense, len(xs))
	hs := make([]*mat.Dense, len(xs))
	for d, x := range xs {
		vs[d] = randInit(nFeatures, k)
		hs[d] = randInit(k, x.RawMatrix().Cols)
	}

	hadamardUpdate := func(target, numer, denom *mat.Dense) {
		r, c := target.Dims()
		for i := 0; i < r; i++ {
			for j := 0; j < c; j++ {
				target.Set(i, j, target.At(i, j)*numer.At(i, j)/(denom.At(i, j)+nmfEpsilon))
			}
		}
	}

	for iter := 0; iter < iters; iter++ {
		for d, x := range xs {
			var wv mat.Dense
			wv.Add(w, vs[d])

			// H update.
			var numH, gram, gramV, denH, penH mat.Dense
			numH.Mul(wv.T(), x)
			gram.Mul(wv.T(), &wv)
			denH.Mul(&gram, hs[d])
			gramV.Mul(vs[d].T(), vs[d])
			penH.Mul(&gramV, hs[d])
			penH.Scale(lambda, &penH)
			denH.Add(&denH, &penH)
			hadamardUpdate(hs[d], &numH, &denH)

			// V update.
			var hht, numV, denV, penV mat.Dense
			hht.Mul(hs[d], hs[d].T())
			numV.Mul(x, hs[d].T())
			denV.Mul(&wv, &hht)
			penV.Mul(vs[d], &hht)
			penV.Scale(lambda, &penV)
			denV.Add(&denV, &penV)
			hadamardUpdate(vs[d], &numV, &denV)
		}

		// W update over all datasets.
		numW := mat.NewDense(nFeatures, k, nil)
		denW := mat.NewDense(nFeatures, k, nil)
		for d, x := range xs {
			var wv, hht, xh, wvh mat.Dense
			wv.Add(w, vs[d])
			hht.Mul(hs[d], hs[d].T())
			xh.Mul(x, hs[d].T())
			wvh.Mul(&wv, &hht)
			numW.Add(numW, &xh)
			denW.Add(denW, &wvh)
		}
		hadamardUpdate(w, numW, denW)
	}

	for _, h := range hs {
		r, c := h.Dims()
		for i := 0; i < r; i++ {
			for j := 0; j < c; j++ {
				if v := h.At(i, j); math.IsNaN(v) || math.IsInf(v, 0) {
					return nil, fmt.Errorf("factorization diverged")
				}
			}
		}
	}

	return hs, nil
}

// quantileNormalizeLoadings maps every dataset's per-factor loading
// distribution onto the reference dataset's, so cluster structure lines up
// across datasets. loadings holds one cells x rank block per dataset;
// refIdx picks the reference (by convention the largest dataset). Blocks
// are modified in place.
func quantileNormalizeLoadings(loadings []*mat.Dense, refIdx int) error {
	if refIdx < 0 || refIdx >= len(loadings) {
		return fmt.Errorf("reference index %d out of range", refIdx)
	}

	_, rank := loadings[refIdx].Dims()

	for j := 0; j < rank; j++ {
		ref := colValues(loadings[refIdx], j)
		sort.Float64s(ref)

		for d, block := range loadings {
			if d == refIdx {
				continue
			}

			vals := colValues(block, j)
			n := len(vals)

			// Rank of each cell within its own dataset.
			order := make([]int, n)
			for i := range order {
				order[i] = i
			}
			sortByValue(order, vals)

			for rankPos, cell := range order {
				p := 0.5
				if n > 1 {
					p = float64(rankPos) / float64(n-1)
				}
				block.Set(cell, j, quantile(ref, p))
			}
		}
	}

	return nil
}

// quantile interpolates the p-quantile, p in [0, 1], of a slice sorted in
// ascending order. The boundaries map onto the slice minimum and maximum.
func quantile(sorted []float64, p float64) float64 {
	h := p * float64(len(sorted)-1)
	lo := int(math.Floor(h))
	hi := int(math.Ceil(h))
	if lo == hi {
		return sorted[lo]
	}
	frac := h - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

func colValues(m *mat.Dense, j int) []float64 {
	rows, _ := m.Dims()
	out := make([]float64, rows)
	for i := range out {
		out[i] = m.At(i, j)
	}
	return out
}

func sortByValue(order []int, vals []float64) {
	sort.Slice(order, func(a, b int) bool {
		return vals[order[a]] < vals[order[b]]
	})
}
