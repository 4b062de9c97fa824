// Package report renders the per-run diagnostic report: a multi-page PDF of
// embedding scatter plots and violin plots grouped by dataset label. Pages
// are rendered into memory and written atomically, so a failed run leaves
// no truncated report behind.
package report

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgpdf"

	"github.com/scgenomics/scintegrate/integrate"
)

// ErrReport indicates the report could not be rendered or written.
var ErrReport = errors.New("report failed")

const (
	pageWidth  = 10 * vg.Inch
	pageHeight = 5 * vg.Inch
)

// Filename returns the strategy-namespaced report filename for a run.
func Filename(strategy string) string {
	return "integration." + strategy + ".pdf"
}

// Write renders the diagnostic report for the combined object into outdir
// and returns the written path. Page one shows the linear and nonlinear
// embeddings colored by dataset label; page two shows violins of the first
// two linear components grouped by label. Runs that produced clusters get a
// third page colored by cluster.
func Write(outdir string, c *integrate.Combined) (string, error) {
	pages, err := buildPages(c)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrReport, err)
	}

	canvas := vgpdf.New(pageWidth, pageHeight)
	for i, page := range pages {
		if i > 0 {
			canvas.NextPage()
		}

		dc := draw.New(canvas)
		tiles := draw.Tiles{
			Rows: 1,
			Cols: 2,
			PadX:     vg.Millimeter * 4,
			PadLeft:  vg.Millimeter * 2,
			PadRight: vg.Millimeter * 2,
		}
		canvases := plot.Align(page, tiles, dc)
		for col, p := range page[0] {
			p.Draw(canvases[0][col])
		}
	}

	var buf bytes.Buffer
	if _, err := canvas.WriteTo(&buf); err != nil {
		return "", fmt.Errorf("%w: %v", ErrReport, err)
	}

	final := filepath.Join(outdir, Filename(c.Strategy))

	tmp, err := os.CreateTemp(outdir, Filename(c.Strategy)+".tmp*")
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrReport, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return "", fmt.Errorf("%w: %v", ErrReport, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrReport, err)
	}

	if err := os.Rename(tmp.Name(), final); err != nil {
		return "", fmt.Errorf("%w: %v", ErrReport, err)
	}

	return final, nil
}

// buildPages assembles the fixed page sequence, two plots side by side per
// page.
func buildPages(c *integrate.Combined) ([][][]*plot.Plot, error) {
	if c.Linear.Rows == 0 || c.Nonlinear.Rows == 0 {
		return nil, fmt.Errorf("combined object carries no embeddings")
	}

	linScatter, err := embeddingScatter(c.Linear, c.Labels, groupNames(c.Labels), c.Linear.Key+" by dataset")
	if err != nil {
		return nil, err
	}
	nonlinScatter, err := embeddingScatter(c.Nonlinear, c.Labels, groupNames(c.Labels), c.Nonlinear.Key+" by dataset")
	if err != nil {
		return nil, err
	}

	violin1, err := violinPlot(c.Linear, 0, c.Labels)
	if err != nil {
		return nil, err
	}
	violin2, err := violinPlot(c.Linear, 1, c.Labels)
	if err != nil {
		return nil, err
	}

	pages := [][][]*plot.Plot{
		{{linScatter, nonlinScatter}},
		{{violin1, violin2}},
	}

	if c.Clusters != nil {
		clusterLabels := make([]string, len(c.Clusters))
		for i, cl := range c.Clusters {
			clusterLabels[i] = "cluster " + strconv.Itoa(cl)
		}

		linClusters, err := embeddingScatter(c.Linear, clusterLabels, groupNames(clusterLabels), c.Linear.Key+" by cluster")
		if err != nil {
			return nil, err
		}
		nonlinClusters, err := embeddingScatter(c.Nonlinear, clusterLabels, groupNames(clusterLabels), c.Nonlinear.Key+" by cluster")
		if err != nil {
			return nil, err
		}
		pages = append(pages, [][]*plot.Plot{{linClusters, nonlinClusters}})
	}

	return pages, nil
}

// groupNames returns the unique labels in first-appearance order.
func groupNames(labels []string) []string {
	var names []string
	seen := map[string]bool{}
	for _, l := range labels {
		if !seen[l] {
			seen[l] = true
			names = append(names, l)
		}
	}
	return names
}

// embeddingScatter plots the first two dimensions of an embedding, one
// colored scatter series per group.
func embeddingScatter(e integrate.Embedding, labels, groups []string, title string) (*plot.Plot, error) {
	if e.Cols < 2 {
		return nil, fmt.Errorf("embedding %s has %d dimensions, need two to plot", e.Key, e.Cols)
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = e.Key + " 1"
	p.Y.Label.Text = e.Key + " 2"

	for gi, group := range groups {
		var xys plotter.XYs
		for i, l := range labels {
			if l != group {
				continue
			}
			xys = append(xys, plotter.XY{X: e.At(i, 0), Y: e.At(i, 1)})
		}

		s, err := plotter.NewScatter(xys)
		if err != nil {
			return nil, err
		}
		s.GlyphStyle.Color = plotutil.Color(gi)
		s.GlyphStyle.Radius = vg.Points(1.5)
		s.GlyphStyle.Shape = draw.CircleGlyph{}

		p.Add(s)
		p.Legend.Add(group, s)
	}

	p.Legend.Top = true
	return p, nil
}
