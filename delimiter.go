package scintegrate

import (
	"io"

	"github.com/csimplestring/go-csv/detector"
)

// DetermineDelimiter guesses the field delimiter of a CSV-like stream.
// Manifests and matrix headers may be comma- or tab-separated and never
// declare which, so the choice falls to the strongest candidate the
// detector reports, with a comma when detection comes up empty.
func DetermineDelimiter(r io.Reader) rune {
	candidates := detector.New().DetectDelimiter(r, '"')
	if len(candidates) == 0 {
		return ','
	}

	return rune(candidates[0][0])
}
