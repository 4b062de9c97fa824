package integrate

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/scgenomics/scintegrate/expr"
)

// runLargeData is the reciprocal-PCA pipeline for large collections:
// anchors are found in a space built from each pair's reciprocal principal
// component projections rather than canonical correlation, with designated
// reference samples and a wider reduction.
func runLargeData(datasets []*expr.Dataset, opts Options) (*Combined, error) {
	for _, r := range opts.Reference {
		if r < 0 || r >= len(datasets) {
			return nil, fmt.Errorf("%w: reference index %d out of range for %d samples", ErrPreprocessing, r, len(datasets))
		}
	}

	scaled, features, err := prepLogNormalized(datasets, expr.DefaultVariableFeatures, true)
	if err != nil {
		return nil, err
	}

	linear, err := anchorIntegrate(scaled, opts.Reference, DefaultLargeDataDims, rpcaSpaces)
	if err != nil {
		return nil, err
	}

	nonlinear, err := spectralEmbedding(linear)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIntegration, err)
	}

	cells, labels := cellTable(datasets)

	return &Combined{
		Strategy:  StrategyLargeData.String(),
		Features:  features,
		Cells:     cells,
		Labels:    labels,
		Linear:    NewEmbedding("pca", linear),
		Nonlinear: NewEmbedding("spectral", nonlinear),
	}, nil
}

// rpcaSpaces builds the anchor space reciprocally: both datasets are
// projected onto the reference's principal components and onto the query's,
// and the two projections are concatenated so mutual neighbors must agree
// under both reductions.
func rpcaSpaces(refScaled, queryScaled *mat.Dense, dims int) (*mat.Dense, *mat.Dense, error) {
	_, refBasis, err := pcScores(mat.DenseCopyOf(refScaled.T()), dims)
	if err != nil {
		return nil, nil, err
	}
	_, queryBasis, err := pcScores(mat.DenseCopyOf(queryScaled.T()), dims)
	if err != nil {
		return nil, nil, err
	}

	refSpace, err := biProject(refScaled, refBasis, queryBasis)
	if err != nil {
		return nil, nil, err
	}
	querySpace, err := biProject(queryScaled, refBasis, queryBasis)
	if err != nil {
		return nil, nil, err
	}

	l2NormalizeRows(refSpace)
	l2NormalizeRows(querySpace)

	return refSpace, querySpace, nil
}

// biProject projects the cells of a features x cells matrix onto two bases
// and concatenates the coordinates.
func biProject(scaled, basisA, basisB *mat.Dense) (*mat.Dense, error) {
	cellsT := mat.DenseCopyOf(scaled.T())

	var a, b mat.Dense
	a.Mul(cellsT, basisA)
	b.Mul(cellsT, basisB)

	cells, aDims := a.Dims()
	_, bDims := b.Dims()

	out := mat.NewDense(cells, aDims+bDims, nil)
	for i := 0; i < cells; i++ {
		copy(out.RawRowView(i)[:aDims], a.RawRowView(i))
		copy(out.RawRowView(i)[aDims:], b.RawRowView(i))
	}

	return out, nil
}
