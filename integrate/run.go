package integrate

import (
	"fmt"
	"log"

	"github.com/scgenomics/scintegrate/expr"
)

// Run executes the selected pipeline over the loaded datasets and returns
// the combined object. The strategy set is closed; the switch below is
// exhaustive over it. Every pipeline requires at least two samples.
func Run(datasets []*expr.Dataset, strategy Strategy, opts Options) (*Combined, error) {
	if len(datasets) < 2 {
		return nil, fmt.Errorf("%w: integration requires at least two samples, got %d", ErrPreprocessing, len(datasets))
	}

	opts, err := opts.withDefaults()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPreprocessing, err)
	}
	log.Println("Running", strategy, "integration over", len(datasets), "samples")

	switch strategy {
	case StrategyCCA:
		return runCCA(datasets, opts)
	case StrategyLargeData:
		return runLargeData(datasets, opts)
	case StrategySCTransform:
		return runSCTransform(datasets, opts)
	case StrategyHarmony:
		return runHarmony(datasets, opts)
	case StrategyLiger:
		return runLiger(datasets, opts)
	}

	return nil, fmt.Errorf("%w: %v", ErrUnsupportedStrategy, strategy)
}
