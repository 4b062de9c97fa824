package persist

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/scgenomics/scintegrate/integrate"
)

func testCombined(strategy string) *integrate.Combined {
	linear := mat.NewDense(4, 3, []float64{
		1, 2, 3,
		4, 5, 6,
		7, 8, 9,
		10, 11, 12,
	})
	nonlinear := mat.NewDense(4, 2, []float64{
		0.1, 0.2,
		0.3, 0.4,
		0.5, 0.6,
		0.7, 0.8,
	})

	return &integrate.Combined{
		Strategy:  strategy,
		Features:  []string{"g1", "g2", "g3"},
		Cells:     []string{"s1_c1", "s1_c2", "s2_c1", "s2_c2"},
		Labels:    []string{"batchA", "batchA", "batchB", "batchB"},
		Linear:    integrate.NewEmbedding("pca", linear),
		Nonlinear: integrate.NewEmbedding("spectral", nonlinear),
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()

	path, err := Save(dir, testCombined("seurat-cca"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "integration.seurat-cca.bin.gz"), path)

	loaded, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "seurat-cca", loaded.Strategy)
	assert.Equal(t, []string{"g1", "g2", "g3"}, loaded.Features)
	assert.Equal(t, 4, loaded.Linear.Rows)
	assert.Equal(t, 3, loaded.Linear.Cols)
	assert.InDelta(t, 5.0, loaded.Linear.At(1, 1), 1e-12)
	want := testCombined("seurat-cca").Linear.Matrix()
	assert.True(t, mat.Equal(want, loaded.Linear.Matrix()), "linear coordinates changed across the round trip")
	assert.Equal(t, "spectral", loaded.Nonlinear.Key)
	assert.Nil(t, loaded.Clusters)
}

func TestSaveOverwrites(t *testing.T) {
	dir := t.TempDir()

	first := testCombined("harmony")
	_, err := Save(dir, first)
	require.NoError(t, err)

	second := testCombined("harmony")
	second.Features = []string{"changed"}
	path, err := Save(dir, second)
	require.NoError(t, err)

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"changed"}, loaded.Features)

	// Only the one artifact exists; no stale temp files remain.
	files, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, files, 1)
}

func TestSaveIsolatesStrategies(t *testing.T) {
	dir := t.TempDir()

	ccaPath, err := Save(dir, testCombined("seurat-cca"))
	require.NoError(t, err)
	before, err := os.ReadFile(ccaPath)
	require.NoError(t, err)

	_, err = Save(dir, testCombined("harmony"))
	require.NoError(t, err)

	after, err := os.ReadFile(ccaPath)
	require.NoError(t, err)
	assert.Equal(t, before, after, "running another strategy must not touch the first artifact")
}

func TestSaveUnwritableDir(t *testing.T) {
	_, err := Save(filepath.Join(t.TempDir(), "missing-subdir"), testCombined("liger"))
	assert.ErrorIs(t, err, ErrPersist)
}

func TestLoadRejectsWrongMagic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bogus.bin.gz")
	require.NoError(t, os.WriteFile(path, []byte("not a combined object"), 0o644))

	_, err := Load(path)
	assert.ErrorIs(t, err, ErrPersist)
}

func TestLoadRejectsFutureVersion(t *testing.T) {
	dir := t.TempDir()

	path, err := Save(dir, testCombined("liger"))
	require.NoError(t, err)

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	contents[4] = 99
	require.NoError(t, os.WriteFile(path, contents, 0o644))

	_, err = Load(path)
	assert.ErrorIs(t, err, ErrPersist)
}
