package integrate

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/scgenomics/scintegrate/expr"
)

// runSCTransform is the variance-stabilizing pipeline: the per-sample VST
// replaces log-normalization and variable-feature ranking, a wider shared
// feature set is selected, and the prepped residual matrices feed the same
// anchor flow as the CCA pipeline.
func runSCTransform(datasets []*expr.Dataset, opts Options) (*Combined, error) {
	for _, d := range datasets {
		if err := d.SCTransform(expr.DefaultSCTFeatures); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPreprocessing, err)
		}
	}

	features, err := expr.SelectIntegrationFeatures(datasets, expr.DefaultSCTFeatures)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPreprocessing, err)
	}

	// The residuals are already variance stabilized, so the anchor flow
	// consumes them directly rather than re-scaling.
	scaled := make([]*mat.Dense, len(datasets))
	for i, d := range datasets {
		s, err := d.SubsetNorm(features)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPreprocessing, err)
		}
		scaled[i] = s
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
		Strategy:  StrategySCTransform.String(),
		Features:  features,
		Cells:     cells,
		Labels:    labels,
		Linear:    NewEmbedding("pca", linear),
		Nonlinear: NewEmbedding("spectral", nonlinear),
	}, nil
}
