package integrate

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// anchorNeighbors is the neighborhood width of the mutual-nearest-neighbor
// search, and anchorWeightK the number of anchors that contribute to each
// cell's correction vector.
const (
	anchorNeighbors = 5
	anchorWeightK   = 10
)

// anchor pairs a reference cell with a query cell that are mutual nearest
// neighbors in the shared correction space.
type anchor struct {
	Ref   int
	Query int
}

// ccaSpaces projects the reference and query cells into a shared space of
// canonical correlation vectors via a singular value decomposition of the
// cross-covariance of their scaled expression. Inputs are features x cells;
// outputs are cells x dims with L2-normalized rows.
func ccaSpaces(refScaled, queryScaled *mat.Dense, dims int) (*mat.Dense, *mat.Dense, error) {
	var cross mat.Dense
	cross.Mul(refScaled.T(), queryScaled)

	var svd mat.SVD
	if ok := svd.Factorize(&cross, mat.SVDThin); !ok {
		return nil, nil, fmt.Errorf("canonical correlation decomposition did not converge")
	}

	values := svd.Values(nil)
	if dims > len(values) {
		dims = len(values)
	}

	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	refSpace := mat.DenseCopyOf(u.Slice(0, refScaled.RawMatrix().Cols, 0, dims))
	querySpace := mat.DenseCopyOf(v.Slice(0, queryScaled.RawMatrix().Cols, 0, dims))

	l2NormalizeRows(refSpace)
	l2NormalizeRows(querySpace)

	return refSpace, querySpace, nil
}

// mutualNeighbors returns the mutual k-nearest-neighbor pairs between the
// rows of ref and the rows of query.
func mutualNeighbors(ref, query *mat.Dense, k int) []anchor {
	refToQuery := nearestBetween(ref, query, k)
	queryToRef := nearestBetween(query, ref, k)

	var anchors []anchor
	for r, qNbrs := range refToQuery {
		for _, q := range qNbrs {
			for _, back := range queryToRef[q] {
				if back == r {
					anchors = append(anchors, anchor{Ref: r, Query: q})
					break
				}
			}
		}
	}

	return anchors
}

// correctEmbedding moves each query cell toward the reference by a weighted
// average of its nearest anchors' displacement vectors. refEmb and queryEmb
// are cells x dims in the shared linear embedding; refSpace and querySpace
// are the coordinates anchor distances are measured in. queryEmb is
// modified in place.
func correctEmbedding(refEmb, queryEmb *mat.Dense, anchors []anchor, refSpace, querySpace *mat.Dense) error {
	if len(anchors) == 0 {
		return fmt.Errorf("no anchors found between datasets")
	}

	qCells, dims := queryEmb.Dims()

	// Displacements are measured against the uncorrected coordinates so the
	// order cells are visited in cannot influence the result.
	orig := mat.DenseCopyOf(queryEmb)

	// Distance from each query cell to each anchor's query-side cell.
	anchorCoords := mat.NewDense(len(anchors), querySpace.RawMatrix().Cols, nil)
	for i, a := range anchors {
		anchorCoords.SetRow(i, querySpace.RawRowView(a.Query))
	}

	k := anchorWeightK
	if k > len(anchors) {
		k = len(anchors)
	}
	nearest := nearestBetween(querySpace, anchorCoords, k)

	for c := 0; c < qCells; c++ {
		nbrs := nearest[c]

		// Gaussian kernel over the distance to the kth nearest anchor.
		bandwidth := rowDistance(querySpace, c, anchorCoords, nbrs[len(nbrs)-1])
		if bandwidth == 0 {
			bandwidth = 1
		}

		weights := make([]float64, len(nbrs))
		var total float64
		for i, ai := range nbrs {
			d := rowDistance(querySpace, c, anchorCoords, ai)
			weights[i] = math.Exp(-d * d / (2 * bandwidth * bandwidth))
			total += weights[i]
		}

		for j := 0; j < dims; j++ {
			var shift float64
			for i, ai := range nbrs {
				a := anchors[ai]
				shift += weights[i] / total * (refEmb.At(a.Ref, j) - orig.At(a.Query, j))
			}
			queryEmb.Set(c, j, orig.At(c, j)+shift)
		}
	}

	return nil
}
