// Package expr holds the per-sample expression dataset and the
// preprocessing stages (normalization, variable-feature selection, scaling)
// that run before integration.
package expr

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Dataset is one sample's expression matrix plus per-cell metadata. Counts
// and Norm are genes x cells; rows follow Genes, columns follow Cells.
type Dataset struct {
	Sample string // sample identifier from the manifest
	Label  string // dataset grouping label used for batch correction

	Genes []string
	Cells []string

	// CellLabels holds per-cell dataset labels for merged datasets; nil on
	// single-sample datasets, where Label applies to every cell.
	CellLabels []string

	Counts *mat.Dense // raw values as loaded
	Norm   *mat.Dense // set by NormalizeData or SCTransform

	// VarFeatures is the ranked variable-feature list, best first. Set by
	// FindVariableFeatures or SCTransform.
	VarFeatures []string

	geneIndex map[string]int
}

// LabelFor returns the dataset label for cell j.
func (d *Dataset) LabelFor(j int) string {
	if d.CellLabels != nil {
		return d.CellLabels[j]
	}
	return d.Label
}

// NCells returns the number of cells (columns) in the dataset.
func (d *Dataset) NCells() int {
	return len(d.Cells)
}

// GeneRow returns the row index for a gene, or -1 when the dataset does not
// carry it.
func (d *Dataset) GeneRow(gene string) int {
	if d.geneIndex == nil {
		d.geneIndex = make(map[string]int, len(d.Genes))
		for i, g := range d.Genes {
			d.geneIndex[g] = i
		}
	}
	if i, ok := d.geneIndex[gene]; ok {
		return i
	}
	return -1
}

// SubsetNorm returns a features x cells matrix of normalized values for the
// requested genes, in the requested order. Genes absent from the dataset
// contribute a zero row, so every dataset subset has identical row layout.
func (d *Dataset) SubsetNorm(features []string) (*mat.Dense, error) {
	if d.Norm == nil {
		return nil, fmt.Errorf("dataset %s: normalized values not computed", d.Sample)
	}

	out := mat.NewDense(len(features), d.NCells(), nil)
	for i, gene := range features {
		row := d.GeneRow(gene)
		if row < 0 {
			continue
		}
		for j := 0; j < d.NCells(); j++ {
			out.Set(i, j, d.Norm.At(row, j))
		}
	}

	return out, nil
}
