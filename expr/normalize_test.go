package expr

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func testDataset(genes, cells []string, counts []float64) *Dataset {
	return &Dataset{
		Sample: "test",
		Label:  "batchA",
		Genes:  genes,
		Cells:  cells,
		Counts: mat.NewDense(len(genes), len(cells), counts),
	}
}

func TestNormalizeData(t *testing.T) {
	d := testDataset(
		[]string{"g1", "g2"},
		[]string{"c1", "c2"},
		[]float64{
			3, 0,
			7, 5,
		},
	)

	if err := d.NormalizeData(DefaultScaleFactor); err != nil {
		t.Fatal(err)
	}

	// Column sums are 10 and 5 before normalization.
	if got, want := d.Norm.At(0, 0), math.Log1p(3.0/10.0*DefaultScaleFactor); math.Abs(got-want) > 1e-12 {
		t.Errorf("Norm[0,0] = %f, want %f", got, want)
	}
	if got, want := d.Norm.At(1, 1), math.Log1p(5.0/5.0*DefaultScaleFactor); math.Abs(got-want) > 1e-12 {
		t.Errorf("Norm[1,1] = %f, want %f", got, want)
	}

	// Counts are untouched.
	if d.Counts.At(0, 0) != 3 {
		t.Errorf("Counts mutated: %f", d.Counts.At(0, 0))
	}
}

func TestNormalizeDataZeroCell(t *testing.T) {
	d := testDataset(
		[]string{"g1"},
		[]string{"c1", "c2"},
		[]float64{1, 0},
	)

	if err := d.NormalizeData(DefaultScaleFactor); err == nil {
		t.Fatal("expected an error for a zero-count cell")
	}
}

func TestScaleCentered(t *testing.T) {
	d := testDataset(
		[]string{"g1", "g2"},
		[]string{"c1", "c2", "c3"},
		[]float64{
			1, 2, 3,
			5, 5, 5,
		},
	)
	d.Norm = mat.DenseCopyOf(d.Counts)

	scaled, err := d.Scale([]string{"g1", "g2"}, true)
	if err != nil {
		t.Fatal(err)
	}

	// Centered rows sum to zero.
	for i := 0; i < 2; i++ {
		var sum float64
		for j := 0; j < 3; j++ {
			sum += scaled.At(i, j)
		}
		if math.Abs(sum) > 1e-12 {
			t.Errorf("row %d does not center to zero: %f", i, sum)
		}
	}

	// Unit variance for the non-constant gene.
	var ss float64
	for j := 0; j < 3; j++ {
		ss += scaled.At(0, j) * scaled.At(0, j)
	}
	if got := ss / 2; math.Abs(got-1) > 1e-12 {
		t.Errorf("row 0 variance = %f, want 1", got)
	}
}

func TestScaleUncenteredStaysNonNegative(t *testing.T) {
	d := testDataset(
		[]string{"g1"},
		[]string{"c1", "c2", "c3"},
		[]float64{1, 2, 3},
	)
	d.Norm = mat.DenseCopyOf(d.Counts)

	scaled, err := d.Scale([]string{"g1"}, false)
	if err != nil {
		t.Fatal(err)
	}

	for j := 0; j < 3; j++ {
		if scaled.At(0, j) < 0 {
			t.Errorf("uncentered scaling produced a negative value at %d", j)
		}
	}
}

func TestScaleMissingGeneIsZeroRow(t *testing.T) {
	d := testDataset(
		[]string{"g1"},
		[]string{"c1", "c2"},
		[]float64{1, 2},
	)
	d.Norm = mat.DenseCopyOf(d.Counts)

	scaled, err := d.Scale([]string{"g1", "absent"}, true)
	if err != nil {
		t.Fatal(err)
	}

	if scaled.At(1, 0) != 0 || scaled.At(1, 1) != 0 {
		t.Error("absent gene should contribute a zero row")
	}
}
