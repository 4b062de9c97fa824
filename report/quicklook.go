package report

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/wcharczuk/go-chart/v2"

	"github.com/scgenomics/scintegrate/integrate"
)

// QuickLook writes a single PNG scatter of the nonlinear embedding colored
// by dataset label, for a fast check without opening the PDF report.
func QuickLook(outdir string, c *integrate.Combined) (string, error) {
	if c.Nonlinear.Cols < 2 {
		return "", fmt.Errorf("%w: nonlinear embedding has %d dimensions", ErrReport, c.Nonlinear.Cols)
	}

	var series []chart.Series
	for gi, group := range groupNames(c.Labels) {
		var xs, ys []float64
		for i, l := range c.Labels {
			if l != group {
				continue
			}
			xs = append(xs, c.Nonlinear.At(i, 0))
			ys = append(ys, c.Nonlinear.At(i, 1))
		}

		series = append(series, chart.ContinuousSeries{
			Name:    group,
			XValues: xs,
			YValues: ys,
			Style: chart.Style{
				StrokeWidth: chart.Disabled,
				DotWidth:    3,
				DotColor:    chart.GetDefaultColor(gi),
			},
		})
	}

	graph := chart.Chart{
		Title:  c.Strategy + " " + c.Nonlinear.Key,
		Width:  512,
		Height: 512,
		Series: series,
	}

	// Render to a byte buffer
	buffer := bytes.NewBuffer([]byte{})
	if err := graph.Render(chart.PNG, buffer); err != nil {
		return "", fmt.Errorf("%w: %v", ErrReport, err)
	}

	final := filepath.Join(outdir, "integration."+c.Strategy+".png")

	outFile, err := os.Create(final)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrReport, err)
	}
	defer outFile.Close()

	if _, err := buffer.WriteTo(outFile); err != nil {
		return "", fmt.Errorf("%w: %v", ErrReport, err)
	}

	return final, nil
}
