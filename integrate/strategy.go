// Package integrate selects and runs one of five dataset-integration
// pipelines over a collection of per-sample expression datasets, producing a
// single combined object with linear and nonlinear embeddings.
package integrate

import (
	"fmt"
)

// Strategy names one of the five integration pipelines. The set is closed:
// every switch over Strategy in this package enumerates all five.
type Strategy int

const (
	StrategyCCA Strategy = iota
	StrategyLargeData
	StrategySCTransform
	StrategyHarmony
	StrategyLiger
)

var strategyNames = map[Strategy]string{
	StrategyCCA:         "seurat-cca",
	StrategyLargeData:   "seurat-largedata",
	StrategySCTransform: "sctransform",
	StrategyHarmony:     "harmony",
	StrategyLiger:       "liger",
}

func (s Strategy) String() string {
	if name, ok := strategyNames[s]; ok {
		return name
	}
	return fmt.Sprintf("strategy(%d)", int(s))
}

// Strategies lists every known strategy in dispatch order.
func Strategies() []Strategy {
	return []Strategy{StrategyCCA, StrategyLargeData, StrategySCTransform, StrategyHarmony, StrategyLiger}
}

// ParseStrategy maps a selector string to its Strategy. Unknown selectors
// fail with ErrUnsupportedStrategy; no file I/O happens here.
func ParseStrategy(name string) (Strategy, error) {
	for s, n := range strategyNames {
		if n == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedStrategy, name)
}
