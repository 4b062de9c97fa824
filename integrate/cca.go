package integrate

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/scgenomics/scintegrate/expr"
)

// runCCA is the canonical-correlation pipeline: log-normalize, 2000
// variable features per sample, shared feature selection, per-sample
// scaling, anchors in CCA space, correction into the first sample's
// reduction, then the nonlinear embedding.
func runCCA(datasets []*expr.Dataset, opts Options) (*Combined, error) {
	scaled, features, err := prepLogNormalized(datasets, expr.DefaultVariableFeatures, true)
	if err != nil {
		return nil, err
	}

	linear, err := anchorIntegrate(scaled, []int{0}, DefaultCCADims, ccaSpaces)
	if err != nil {
		return nil, err
	}

	nonlinear, err := spectralEmbedding(linear)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIntegration, err)
	}

	cells, labels := cellTable(datasets)

	return &Combined{
		Strategy:  StrategyCCA.String(),
		Features:  features,
		Cells:     cells,
		Labels:    labels,
		Linear:    NewEmbedding("pca", linear),
		Nonlinear: NewEmbedding("spectral", nonlinear),
	}, nil
}

// prepLogNormalized runs the common pre-processing stage: per-sample
// log-normalization, per-sample variable features, shared feature
// selection, and per-sample scaling over the shared set.
func prepLogNormalized(datasets []*expr.Dataset, nFeatures int, center bool) ([]*mat.Dense, []string, error) {
	for _, d := range datasets {
		if err := d.NormalizeData(expr.DefaultScaleFactor); err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrPreprocessing, err)
		}
		if err := d.FindVariableFeatures(nFeatures); err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrPreprocessing, err)
		}
	}

	features, err := expr.SelectIntegrationFeatures(datasets, nFeatures)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrPreprocessing, err)
	}

	scaled := make([]*mat.Dense, len(datasets))
	for i, d := range datasets {
		s, err := d.Scale(features, center)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrPreprocessing, err)
		}
		scaled[i] = s
	}

	return scaled, features, nil
}
