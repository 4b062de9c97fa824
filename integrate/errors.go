package integrate

import "errors"

var (
	// ErrUnsupportedStrategy is returned for selectors outside the closed
	// strategy set.
	ErrUnsupportedStrategy = errors.New("unsupported integration strategy")

	// ErrPreprocessing covers failures before anchoring or correction: too
	// few samples, empty feature sets, degenerate normalization input.
	ErrPreprocessing = errors.New("preprocessing failed")

	// ErrIntegration covers failures of the correction step itself: anchor
	// search, batch correction, or factorization degeneracy.
	ErrIntegration = errors.New("integration failed")
)
