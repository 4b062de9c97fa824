// Package manifest reads the CSV manifest that lists one single-cell
// expression matrix file per row.
package manifest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/carbocation/pfx"
	"github.com/gocarina/gocsv"

	"github.com/scgenomics/scintegrate"
)

// ErrLoad indicates that the manifest itself was missing or malformed.
var ErrLoad = errors.New("manifest load failed")

// Entry identifies one input sample: where its expression matrix lives and
// which dataset (batch) it belongs to for downstream grouping.
type Entry struct {
	SampleID string `csv:"sample_id"`
	Dataset  string `csv:"dataset"`
	Path     string `csv:"path"`
}

// Load parses the manifest at path and validates it. The delimiter (comma or
// tab) is detected from the file contents rather than the extension.
func Load(path string) ([]Entry, error) {
	fileBytes, err := os.ReadFile(scintegrate.ExpandHome(path))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoad, err)
	}

	entries, err := parse(fileBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrLoad, path, err)
	}

	// Relative sample paths are resolved against the manifest's directory.
	base := filepath.Dir(path)
	for i, entry := range entries {
		if !filepath.IsAbs(entry.Path) {
			entries[i].Path = filepath.Join(base, entry.Path)
		}
	}

	return entries, nil
}

func parse(fileBytes []byte) ([]Entry, error) {
	delim := scintegrate.DetermineDelimiter(bytes.NewReader(fileBytes))

	gocsv.SetCSVReader(func(in io.Reader) gocsv.CSVReader {
		r := csv.NewReader(in)
		r.Comma = delim
		r.LazyQuotes = true
		return r
	})

	records := []*Entry{}
	if err := gocsv.UnmarshalBytes(fileBytes, &records); err != nil {
		return nil, pfx.Err(err)
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("manifest contains no samples")
	}

	seen := make(map[string]struct{}, len(records))
	out := make([]Entry, 0, len(records))
	for i, record := range records {
		if record.SampleID == "" || record.Dataset == "" || record.Path == "" {
			return nil, fmt.Errorf("row %d: sample_id, dataset, and path are all required", i+1)
		}
		if _, exists := seen[record.SampleID]; exists {
			return nil, fmt.Errorf("duplicate sample_id %q", record.SampleID)
		}
		seen[record.SampleID] = struct{}{}
		out = append(out, *record)
	}

	return out, nil
}
