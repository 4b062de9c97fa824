package integrate

import "gonum.org/v1/gonum/mat"

// Embedding is a cells x dims coordinate block in row-major order. It is a
// plain struct (rather than a *mat.Dense) so the combined object serializes
// with encoding/gob without conversion.
type Embedding struct {
	Key  string // e.g. "pca", "harmony", "inmf", "spectral"
	Rows int
	Cols int
	Data []float64
}

// NewEmbedding wraps a dense matrix as a serializable embedding.
func NewEmbedding(key string, m *mat.Dense) Embedding {
	rows, cols := m.Dims()
	data := make([]float64, rows*cols)
	for i := 0; i < rows; i++ {
		copy(data[i*cols:(i+1)*cols], m.RawRowView(i))
	}
	return Embedding{Key: key, Rows: rows, Cols: cols, Data: data}
}

// At returns the coordinate of cell i in dimension j.
func (e Embedding) At(i, j int) float64 {
	return e.Data[i*e.Cols+j]
}

// Column returns one embedding dimension across all cells.
func (e Embedding) Column(j int) []float64 {
	out := make([]float64, e.Rows)
	for i := range out {
		out[i] = e.At(i, j)
	}
	return out
}

// Matrix returns the embedding as a dense matrix.
func (e Embedding) Matrix() *mat.Dense {
	data := make([]float64, len(e.Data))
	copy(data, e.Data)
	return mat.NewDense(e.Rows, e.Cols, data)
}

// Combined is the single output of one integration run: the per-cell table
// plus the strategy's linear embedding and a 2-D nonlinear embedding. It is
// never mutated after the run that produced it returns.
type Combined struct {
	Strategy string
	Features []string

	Cells  []string
	Labels []string // dataset label per cell, parallel to Cells

	Linear    Embedding
	Nonlinear Embedding

	// Clusters is set by the liger pipeline; nil otherwise.
	Clusters []int
}
