package expr

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/carbocation/pfx"
	"gonum.org/v1/gonum/mat"

	"github.com/scgenomics/scintegrate"
	"github.com/scgenomics/scintegrate/manifest"
)

// MergeFileData loads every sample listed in the manifest and tags each
// resulting dataset with its manifest dataset label. Cell barcodes are
// prefixed with the sample id so they stay unique after merging.
func MergeFileData(manifestPath string) ([]*Dataset, error) {
	entries, err := manifest.Load(manifestPath)
	if err != nil {
		return nil, err
	}

	datasets := make([]*Dataset, 0, len(entries))
	for _, entry := range entries {
		d, err := LoadMatrix(entry.Path)
		if err != nil {
			return nil, fmt.Errorf("%w: sample %s: %v", manifest.ErrLoad, entry.SampleID, err)
		}

		d.Sample = entry.SampleID
		d.Label = entry.Dataset
		for i, cell := range d.Cells {
			d.Cells[i] = entry.SampleID + "_" + cell
		}

		log.Println("Loaded", entry.SampleID, "with", len(d.Genes), "genes x", d.NCells(), "cells")
		datasets = append(datasets, d)
	}

	return datasets, nil
}

// LoadMatrix reads a delimited expression matrix (optionally gzipped) with a
// header row of cell barcodes and one gene per row. The delimiter is
// detected from the header line.
func LoadMatrix(path string) (*Dataset, error) {
	f, err := os.Open(scintegrate.ExpandHome(path))
	if err != nil {
		return nil, pfx.Err(err)
	}
	defer f.Close()

	r, err := scintegrate.MaybeDecompressReadCloserFromFile(f)
	if err != nil {
		return nil, pfx.Err(err)
	}
	defer r.Close()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1024*1024), 64*1024*1024)

	if !scanner.Scan() {
		return nil, fmt.Errorf("%s: empty matrix file", path)
	}
	header := scanner.Text()

	delim := string(scintegrate.DetermineDelimiter(strings.NewReader(header)))

	cells := strings.Split(header, delim)
	// A leading gene-name column header may be blank or carry any label.
	cells = cells[1:]
	if len(cells) == 0 {
		return nil, fmt.Errorf("%s: header row lists no cells", path)
	}

	var genes []string
	var values []float64

	for scanner.Scan() {
		fields := strings.Split(scanner.Text(), delim)
		if len(fields) != len(cells)+1 {
			return nil, fmt.Errorf("%s: row %d has %d fields, expected %d", path, len(genes)+2, len(fields), len(cells)+1)
		}

		genes = append(genes, strings.Trim(fields[0], `"`))
		for _, field := range fields[1:] {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("%s: gene %s: %v", path, fields[0], err)
			}
			values = append(values, v)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, pfx.Err(err)
	}

	if len(genes) == 0 {
		return nil, fmt.Errorf("%s: matrix has no gene rows", path)
	}

	return &Dataset{
		Genes:  genes,
		Cells:  trimQuotes(cells),
		Counts: mat.NewDense(len(genes), len(cells), values),
	}, nil
}

func trimQuotes(fields []string) []string {
	for i, f := range fields {
		fields[i] = strings.Trim(f, `"`)
	}
	return fields
}
