package expr

import (
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestFindVariableFeatures(t *testing.T) {
	// g2 varies far more than g1; g3 is silent.
	d := testDataset(
		[]string{"g1", "g2", "g3"},
		[]string{"c1", "c2", "c3", "c4"},
		[]float64{
			5, 5, 5, 6,
			1, 9, 2, 10,
			0, 0, 0, 0,
		},
	)
	d.Norm = mat.DenseCopyOf(d.Counts)

	if err := d.FindVariableFeatures(2); err != nil {
		t.Fatal(err)
	}

	if len(d.VarFeatures) != 2 {
		t.Fatalf("expected 2 variable features, got %d", len(d.VarFeatures))
	}
	if d.VarFeatures[0] != "g2" {
		t.Errorf("expected g2 ranked first, got %s", d.VarFeatures[0])
	}
	for _, g := range d.VarFeatures {
		if g == "g3" {
			t.Error("silent gene g3 must never be selected")
		}
	}
}

func TestFindVariableFeaturesRequiresNorm(t *testing.T) {
	d := testDataset([]string{"g1"}, []string{"c1", "c2"}, []float64{1, 2})
	if err := d.FindVariableFeatures(1); err == nil {
		t.Fatal("expected an error before normalization")
	}
}

func TestSelectIntegrationFeatures(t *testing.T) {
	a := &Dataset{Sample: "a", VarFeatures: []string{"g1", "g2", "g3"}}
	b := &Dataset{Sample: "b", VarFeatures: []string{"g2", "g1", "g4"}}

	features, err := SelectIntegrationFeatures([]*Dataset{a, b}, 3)
	if err != nil {
		t.Fatal(err)
	}

	if len(features) != 3 {
		t.Fatalf("expected 3 features, got %d", len(features))
	}

	// g1 and g2 appear in both datasets and must outrank g3/g4.
	if features[0] != "g1" && features[0] != "g2" {
		t.Errorf("expected a shared gene first, got %s", features[0])
	}
	if features[1] != "g1" && features[1] != "g2" {
		t.Errorf("expected a shared gene second, got %s", features[1])
	}
}

func TestSelectIntegrationFeaturesRequiresRankings(t *testing.T) {
	a := &Dataset{Sample: "a", VarFeatures: []string{"g1"}}
	b := &Dataset{Sample: "b"}

	if _, err := SelectIntegrationFeatures([]*Dataset{a, b}, 1); err == nil {
		t.Fatal("expected an error when a dataset has no ranking")
	}
}
