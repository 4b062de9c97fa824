package integrate

import (
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestPCScores(t *testing.T) {
	rng := rand.New(rand.NewSource(3))

	// Points spread mostly along one direction in 4-D.
	n := 30
	x := mat.NewDense(n, 4, nil)
	for i := 0; i < n; i++ {
		s := rng.NormFloat64() * 10
		x.Set(i, 0, s+rng.NormFloat64())
		x.Set(i, 1, s+rng.NormFloat64())
		x.Set(i, 2, rng.NormFloat64())
		x.Set(i, 3, rng.NormFloat64())
	}

	scores, basis, err := pcScores(x, 2)
	if err != nil {
		t.Fatal(err)
	}

	if r, c := scores.Dims(); r != n || c != 2 {
		t.Fatalf("scores are %dx%d, want %dx2", r, c, n)
	}
	if r, c := basis.Dims(); r != 4 || c != 2 {
		t.Fatalf("basis is %dx%d, want 4x2", r, c)
	}

	// The first component carries more variance than the second.
	var v1, v2 float64
	for i := 0; i < n; i++ {
		v1 += scores.At(i, 0) * scores.At(i, 0)
		v2 += scores.At(i, 1) * scores.At(i, 1)
	}
	if v1 <= v2 {
		t.Errorf("component variances out of order: %f <= %f", v1, v2)
	}

	// Scores are centered.
	var mean float64
	for i := 0; i < n; i++ {
		mean += scores.At(i, 0)
	}
	if math.Abs(mean/float64(n)) > 1e-8 {
		t.Errorf("scores not centered: mean %f", mean/float64(n))
	}
}

func TestPCScoresClampsDims(t *testing.T) {
	x := mat.NewDense(3, 2, []float64{
		1, 2,
		3, 1,
		2, 5,
	})

	scores, _, err := pcScores(x, 30)
	if err != nil {
		t.Fatal(err)
	}

	if _, c := scores.Dims(); c > 2 {
		t.Errorf("dims not clamped: got %d components from 2 features", c)
	}
}

func TestPCScoresTooFewCells(t *testing.T) {
	x := mat.NewDense(1, 3, []float64{1, 2, 3})
	if _, _, err := pcScores(x, 2); err == nil {
		t.Fatal("expected an error with a single cell")
	}
}

func TestSpectralEmbeddingSeparatesGroups(t *testing.T) {
	rng := rand.New(rand.NewSource(5))

	// Two well-separated blobs.
	n := 40
	x := mat.NewDense(n, 3, nil)
	for i := 0; i < n; i++ {
		offset := 0.0
		if i >= n/2 {
			offset = 50
		}
		for j := 0; j < 3; j++ {
			x.Set(i, j, offset+rng.NormFloat64())
		}
	}

	emb, err := spectralEmbedding(x)
	if err != nil {
		t.Fatal(err)
	}

	if r, c := emb.Dims(); r != n || c != 2 {
		t.Fatalf("embedding is %dx%d, want %dx2", r, c, n)
	}

	// The first spectral coordinate splits the blobs.
	var a, b float64
	for i := 0; i < n/2; i++ {
		a += emb.At(i, 0)
	}
	for i := n / 2; i < n; i++ {
		b += emb.At(i, 0)
	}
	a /= float64(n / 2)
	b /= float64(n / 2)
	if math.Signbit(a) == math.Signbit(b) && math.Abs(a-b) < 1e-3 {
		t.Errorf("blob means %f and %f are not separated", a, b)
	}
}

func TestMutualNeighborsSymmetry(t *testing.T) {
	a := mat.NewDense(4, 2, []float64{
		0, 0,
		10, 10,
		20, 20,
		30, 30,
	})
	b := mat.NewDense(4, 2, []float64{
		1, 1,
		11, 11,
		21, 21,
		31, 31,
	})

	anchors := mutualNeighbors(a, b, 1)
	if len(anchors) != 4 {
		t.Fatalf("expected 4 mutual pairs, got %d", len(anchors))
	}
	for _, anc := range anchors {
		if anc.Ref != anc.Query {
			t.Errorf("anchor pairs misaligned: %+v", anc)
		}
	}
}
