package integrate

import (
	"fmt"
	"log"

	"gonum.org/v1/gonum/mat"

	"github.com/scgenomics/scintegrate/expr"
)

// runLiger is the joint matrix-factorization pipeline: per-sample scaling
// without centering keeps the input non-negative, the datasets are
// factorized into shared and dataset-specific factors, the cell loadings
// are quantile normalized against the largest dataset, and the cells are
// clustered on the normalized loadings. The factorization rank is the
// linear embedding width.
func runLiger(datasets []*expr.Dataset, opts Options) (*Combined, error) {
	// Scaling without centering: the factorization needs non-negative input.
	scaled, features, err := prepLogNormalized(datasets, expr.DefaultVariableFeatures, false)
	if err != nil {
		return nil, err
	}

	hs, err := inmf(scaled, opts.Rank, opts.Lambda, nmfIterations)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIntegration, err)
	}

	// Per-dataset cell loadings, cells x rank.
	loadings := make([]*mat.Dense, len(hs))
	largest := 0
	for d, h := range hs {
		loadings[d] = mat.DenseCopyOf(h.T())
		if datasets[d].NCells() > datasets[largest].NCells() {
			largest = d
		}
	}

	if err := quantileNormalizeLoadings(loadings, largest); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIntegration, err)
	}

	var totalCells int
	for _, d := range datasets {
		totalCells += d.NCells()
	}

	linear := mat.NewDense(totalCells, opts.Rank, nil)
	row := 0
	for _, block := range loadings {
		cells, _ := block.Dims()
		for c := 0; c < cells; c++ {
			linear.SetRow(row, block.RawRowView(c))
			row++
		}
	}

	clusters, err := clusterGraph(linear, opts.Resolution)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIntegration, err)
	}
	log.Println("Liger clustering produced", maxLabel(clusters)+1, "clusters")

	nonlinear, err := spectralEmbedding(linear)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIntegration, err)
	}

	cells, labels := cellTable(datasets)

	return &Combined{
		Strategy:  StrategyLiger.String(),
		Features:  features,
		Cells:     cells,
		Labels:    labels,
		Linear:    NewEmbedding("inmf", linear),
		Nonlinear: NewEmbedding("spectral", nonlinear),
		Clusters:  clusters,
	}, nil
}

func maxLabel(labels []int) int {
	max := 0
	for _, l := range labels {
		if l > max {
			max = l
		}
	}
	return max
}
