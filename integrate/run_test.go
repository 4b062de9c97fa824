package integrate

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/scgenomics/scintegrate/expr"
)

// syntheticDataset builds a positive counts matrix with per-gene baselines,
// mild noise, and a batch shift on the first half of the genes.
func syntheticDataset(sample, label string, genes, cells int, batchShift float64, seed int64) *expr.Dataset {
	rng := rand.New(rand.NewSource(seed))

	geneNames := make([]string, genes)
	baseline := make([]float64, genes)
	for i := range geneNames {
		geneNames[i] = fmt.Sprintf("g%d", i)
		baseline[i] = 1 + rng.Float64()*9
	}

	cellNames := make([]string, cells)
	for j := range cellNames {
		cellNames[j] = fmt.Sprintf("%s_c%d", sample, j)
	}

	counts := mat.NewDense(genes, cells, nil)
	for i := 0; i < genes; i++ {
		for j := 0; j < cells; j++ {
			v := baseline[i] * (0.5 + rng.Float64())
			if i < genes/2 {
				v += batchShift
			}
			counts.Set(i, j, v)
		}
	}

	return &expr.Dataset{
		Sample: sample,
		Label:  label,
		Genes:  geneNames,
		Cells:  cellNames,
		Counts: counts,
	}
}

func testCollection(n int) []*expr.Dataset {
	datasets := make([]*expr.Dataset, 0, n)
	for i := 0; i < n; i++ {
		label := fmt.Sprintf("batch%c", 'A'+i)
		shift := float64(i) * 2
		datasets = append(datasets, syntheticDataset(fmt.Sprintf("s%d", i+1), label, 40, 25, shift, int64(i+1)))
	}
	return datasets
}

func TestRunAllStrategies(t *testing.T) {
	for _, strategy := range Strategies() {
		t.Run(strategy.String(), func(t *testing.T) {
			combined, err := Run(testCollection(2), strategy, Options{})
			if err != nil {
				t.Fatal(err)
			}

			if combined.Strategy != strategy.String() {
				t.Errorf("strategy tag = %s, want %s", combined.Strategy, strategy)
			}
			if len(combined.Cells) != 50 {
				t.Errorf("expected 50 cells, got %d", len(combined.Cells))
			}
			if len(combined.Labels) != len(combined.Cells) {
				t.Errorf("labels and cells out of step: %d vs %d", len(combined.Labels), len(combined.Cells))
			}
			if combined.Linear.Rows != 50 {
				t.Errorf("linear embedding covers %d cells", combined.Linear.Rows)
			}
			if combined.Nonlinear.Cols != 2 {
				t.Errorf("nonlinear embedding has %d dimensions, want 2", combined.Nonlinear.Cols)
			}
			if len(combined.Features) == 0 {
				t.Error("no shared feature set recorded")
			}
		})
	}
}

func TestRunHarmonyThreeSamples(t *testing.T) {
	combined, err := Run(testCollection(3), StrategyHarmony, Options{})
	if err != nil {
		t.Fatal(err)
	}

	if combined.Linear.Key != "harmony" {
		t.Errorf("linear key = %s, want harmony", combined.Linear.Key)
	}
	if combined.Nonlinear.Key != "spectral" {
		t.Errorf("nonlinear key = %s, want spectral", combined.Nonlinear.Key)
	}
	if combined.Linear.Rows != 75 || combined.Nonlinear.Rows != 75 {
		t.Errorf("embeddings cover %d/%d cells, want 75", combined.Linear.Rows, combined.Nonlinear.Rows)
	}

	// Three distinct dataset labels survive the merge.
	seen := map[string]bool{}
	for _, l := range combined.Labels {
		seen[l] = true
	}
	if len(seen) != 3 {
		t.Errorf("expected 3 dataset labels, got %d", len(seen))
	}
}

func TestRunLigerClusters(t *testing.T) {
	combined, err := Run(testCollection(2), StrategyLiger, Options{Rank: 5})
	if err != nil {
		t.Fatal(err)
	}

	if combined.Clusters == nil {
		t.Fatal("liger run produced no clusters")
	}
	if len(combined.Clusters) != len(combined.Cells) {
		t.Errorf("clusters and cells out of step: %d vs %d", len(combined.Clusters), len(combined.Cells))
	}
	if combined.Linear.Cols != 5 {
		t.Errorf("linear width = %d, want the factorization rank 5", combined.Linear.Cols)
	}
}

func TestRunSingleSampleFails(t *testing.T) {
	for _, strategy := range Strategies() {
		_, err := Run(testCollection(1), strategy, Options{})
		if !errors.Is(err, ErrPreprocessing) {
			t.Errorf("%s: expected ErrPreprocessing, got %v", strategy, err)
		}
	}
}

func TestRunRejectsNegativeTunables(t *testing.T) {
	cases := []Options{
		{Rank: -3},
		{Lambda: -1},
		{Resolution: -0.5},
	}

	for _, opts := range cases {
		_, err := Run(testCollection(2), StrategyLiger, opts)
		if !errors.Is(err, ErrPreprocessing) {
			t.Errorf("%+v: expected ErrPreprocessing, got %v", opts, err)
		}
	}
}

func TestRunLargeDataReferenceOutOfRange(t *testing.T) {
	_, err := Run(testCollection(2), StrategyLargeData, Options{Reference: []int{0, 5}})
	if !errors.Is(err, ErrPreprocessing) {
		t.Fatalf("expected ErrPreprocessing for out-of-range reference, got %v", err)
	}
}

func TestParseStrategy(t *testing.T) {
	for _, strategy := range Strategies() {
		parsed, err := ParseStrategy(strategy.String())
		if err != nil {
			t.Fatal(err)
		}
		if parsed != strategy {
			t.Errorf("round trip failed for %s", strategy)
		}
	}

	_, err := ParseStrategy("invalid-strategy")
	if !errors.Is(err, ErrUnsupportedStrategy) {
		t.Fatalf("expected ErrUnsupportedStrategy, got %v", err)
	}
}

func TestRunDeterministic(t *testing.T) {
	a, err := Run(testCollection(2), StrategyCCA, Options{})
	if err != nil {
		t.Fatal(err)
	}
	b, err := Run(testCollection(2), StrategyCCA, Options{})
	if err != nil {
		t.Fatal(err)
	}

	if !mat.Equal(a.Linear.Matrix(), b.Linear.Matrix()) {
		t.Fatal("identical inputs produced different embeddings")
	}
}
