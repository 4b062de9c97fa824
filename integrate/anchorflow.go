package integrate

import (
	"fmt"
	"log"

	"gonum.org/v1/gonum/mat"

	"github.com/scgenomics/scintegrate/expr"
)

// spaceFunc builds the shared coordinate space anchors are searched in, for
// one (reference, query) pair of scaled feature x cell matrices.
type spaceFunc func(refScaled, queryScaled *mat.Dense, dims int) (*mat.Dense, *mat.Dense, error)

// anchorIntegrate runs the anchor-based correction shared by the CCA,
// large-data, and SCT pipelines: a linear reduction is computed on the
// reference block, every other dataset is projected into it, and each query
// dataset is pulled onto the reference through mutual-nearest-neighbor
// anchors found in the space built by space(). The returned matrix stacks
// the corrected cell embeddings in input dataset order.
func anchorIntegrate(scaled []*mat.Dense, refIdx []int, dims int, space spaceFunc) (*mat.Dense, error) {
	isRef := make(map[int]bool, len(refIdx))
	for _, r := range refIdx {
		if r < 0 || r >= len(scaled) {
			return nil, fmt.Errorf("%w: reference index %d out of range for %d samples", ErrPreprocessing, r, len(scaled))
		}
		isRef[r] = true
	}
	if len(isRef) == len(scaled) {
		// With few samples the default reference list can cover everything;
		// keep the first reference and integrate the rest onto it.
		log.Println("All samples designated as references; keeping only sample", refIdx[0])
		isRef = map[int]bool{refIdx[0]: true}
	}

	nFeatures := scaled[0].RawMatrix().Rows

	// Column-concatenate the reference datasets into one block.
	var refCells int
	for r := range isRef {
		refCells += scaled[r].RawMatrix().Cols
	}
	refScaled := mat.NewDense(nFeatures, refCells, nil)
	col := 0
	for i, s := range scaled {
		if !isRef[i] {
			continue
		}
		_, cells := s.Dims()
		for j := 0; j < cells; j++ {
			for f := 0; f < nFeatures; f++ {
				refScaled.Set(f, col, s.At(f, j))
			}
			col++
		}
	}

	// Reference reduction. Queries are projected with the reference's
	// feature means and basis so all embeddings share one space.
	refEmb, basis, err := pcScores(mat.DenseCopyOf(refScaled.T()), dims)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPreprocessing, err)
	}
	_, embDims := refEmb.Dims()

	refMeans := make([]float64, nFeatures)
	for f := 0; f < nFeatures; f++ {
		for j := 0; j < refCells; j++ {
			refMeans[f] += refScaled.At(f, j)
		}
		refMeans[f] /= float64(refCells)
	}

	project := func(s *mat.Dense) *mat.Dense {
		_, cells := s.Dims()
		centered := mat.NewDense(cells, nFeatures, nil)
		for j := 0; j < cells; j++ {
			for f := 0; f < nFeatures; f++ {
				centered.Set(j, f, s.At(f, j)-refMeans[f])
			}
		}
		var emb mat.Dense
		emb.Mul(centered, basis)
		return &emb
	}

	// Corrected embeddings per dataset, reassembled in input order at the
	// end. Reference datasets keep their slice of the reference embedding.
	perDataset := make([]*mat.Dense, len(scaled))
	refRow := 0
	for i, s := range scaled {
		if !isRef[i] {
			continue
		}
		_, cells := s.Dims()
		perDataset[i] = mat.DenseCopyOf(refEmb.Slice(refRow, refRow+cells, 0, embDims))
		refRow += cells
	}

	for i, s := range scaled {
		if isRef[i] {
			continue
		}

		queryEmb := project(s)

		refSpace, querySpace, err := space(refScaled, s, embDims)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrIntegration, err)
		}

		anchors := mutualNeighbors(refSpace, querySpace, anchorNeighbors)
		log.Println("Found", len(anchors), "anchors for dataset", i)

		if err := correctEmbedding(refEmb, queryEmb, anchors, refSpace, querySpace); err != nil {
			return nil, fmt.Errorf("%w: dataset %d: %v", ErrIntegration, i, err)
		}

		perDataset[i] = queryEmb
	}

	var totalCells int
	for _, s := range scaled {
		totalCells += s.RawMatrix().Cols
	}

	out := mat.NewDense(totalCells, embDims, nil)
	row := 0
	for _, emb := range perDataset {
		cells, _ := emb.Dims()
		for c := 0; c < cells; c++ {
			out.SetRow(row, emb.RawRowView(c))
			row++
		}
	}

	return out, nil
}

// cellTable flattens the per-dataset cell names and labels in input order.
func cellTable(datasets []*expr.Dataset) (cells, labels []string) {
	for _, d := range datasets {
		cells = append(cells, d.Cells...)
		for j := 0; j < d.NCells(); j++ {
			labels = append(labels, d.LabelFor(j))
		}
	}
	return cells, labels
}
