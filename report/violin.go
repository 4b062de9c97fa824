package report

import (
	"fmt"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"

	"github.com/scgenomics/scintegrate/integrate"
)

const violinGridPoints = 40

// violinPlot draws one violin per dataset label for a single embedding
// component: a mirrored Gaussian kernel density estimate centered on each
// group's nominal x position.
func violinPlot(e integrate.Embedding, component int, labels []string) (*plot.Plot, error) {
	if component >= e.Cols {
		return nil, fmt.Errorf("embedding %s has no component %d", e.Key, component+1)
	}

	groups := groupNames(labels)

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s %d by dataset", e.Key, component+1)
	p.Y.Label.Text = fmt.Sprintf("%s %d", e.Key, component+1)
	p.NominalX(groups...)

	values := e.Column(component)

	for gi, group := range groups {
		var sample []float64
		for i, l := range labels {
			if l == group {
				sample = append(sample, values[i])
			}
		}
		if len(sample) < 2 {
			return nil, fmt.Errorf("group %s has too few cells for a density", group)
		}

		poly, err := violinPolygon(sample, float64(gi))
		if err != nil {
			return nil, err
		}
		poly.Color = plotutil.Color(gi)

		p.Add(poly)
	}

	return p, nil
}

// violinPolygon builds the mirrored density outline for one group centered
// at x.
func violinPolygon(sample []float64, x float64) (*plotter.Polygon, error) {
	mean, sd := meanStddev(sample)
	if sd == 0 {
		// Degenerate group; draw a thin sliver around the single value.
		sd = math.Max(math.Abs(mean)*1e-3, 1e-6)
	}

	// Silverman's rule of thumb.
	bw := 1.06 * sd * math.Pow(float64(len(sample)), -0.2)

	lo, hi := sample[0], sample[0]
	for _, v := range sample {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	lo -= 2 * bw
	hi += 2 * bw

	grid := make([]float64, violinGridPoints)
	dens := make([]float64, violinGridPoints)
	maxDens := 0.0
	for i := range grid {
		grid[i] = lo + (hi-lo)*float64(i)/float64(violinGridPoints-1)
		for _, v := range sample {
			z := (grid[i] - v) / bw
			dens[i] += math.Exp(-z * z / 2)
		}
		dens[i] /= float64(len(sample)) * bw * math.Sqrt(2*math.Pi)
		maxDens = math.Max(maxDens, dens[i])
	}

	// Half-width capped at 0.4 so neighboring violins never touch.
	const halfWidth = 0.4

	outline := make(plotter.XYs, 0, 2*violinGridPoints)
	for i := 0; i < violinGridPoints; i++ {
		outline = append(outline, plotter.XY{X: x - halfWidth*dens[i]/maxDens, Y: grid[i]})
	}
	for i := violinGridPoints - 1; i >= 0; i-- {
		outline = append(outline, plotter.XY{X: x + halfWidth*dens[i]/maxDens, Y: grid[i]})
	}

	return plotter.NewPolygon(outline)
}

func meanStddev(sample []float64) (mean, sd float64) {
	for _, v := range sample {
		mean += v
	}
	mean /= float64(len(sample))

	var ss float64
	for _, v := range sample {
		ss += (v - mean) * (v - mean)
	}
	if len(sample) > 1 {
		sd = math.Sqrt(ss / float64(len(sample)-1))
	}
	return mean, sd
}
