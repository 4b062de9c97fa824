package integrate

import "fmt"

// Defaults for the caller-tunable pipeline constants.
const (
	DefaultCCADims       = 30
	DefaultLargeDataDims = 50
	DefaultLigerRank     = 20
	DefaultLigerLambda   = 5.0
	DefaultResolution    = 0.55
)

// Options carries the strategy-specific tunables. Zero values are replaced
// by the documented defaults, so Options{} is a valid configuration.
type Options struct {
	// Reference selects the reference samples (by manifest order) for the
	// large-data pipeline. Defaults to the first two samples.
	Reference []int

	// Rank is the factorization rank for the liger pipeline.
	Rank int

	// Lambda is the dataset-specific factor penalty for the liger pipeline.
	Lambda float64

	// Resolution tunes the liger clustering granularity.
	Resolution float64
}

func (o Options) withDefaults() (Options, error) {
	if o.Reference == nil {
		o.Reference = []int{0, 1}
	}
	if o.Rank == 0 {
		o.Rank = DefaultLigerRank
	}
	if o.Lambda == 0 {
		o.Lambda = DefaultLigerLambda
	}
	if o.Resolution == 0 {
		o.Resolution = DefaultResolution
	}

	if o.Rank < 0 {
		return o, fmt.Errorf("rank must be positive, got %d", o.Rank)
	}
	if o.Lambda < 0 {
		return o, fmt.Errorf("lambda must be non-negative, got %g", o.Lambda)
	}
	if o.Resolution < 0 {
		return o, fmt.Errorf("resolution must be positive, got %g", o.Resolution)
	}

	return o, nil
}
