package integrate

import (
	"fmt"
	"log"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/scgenomics/scintegrate/expr"
)

const (
	harmonyMaxRounds = 10
	harmonyTolerance = 1e-4
)

// runHarmony merges the samples into one object before any correction, runs
// the joint reduction, and then iteratively removes the dataset label's
// contribution from the embedding via soft-cluster centroid offsets. The
// corrected embedding keeps the width of the upstream reduction.
func runHarmony(datasets []*expr.Dataset, opts Options) (*Combined, error) {
	merged, err := expr.Merge(datasets)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPreprocessing, err)
	}

	if err := merged.NormalizeData(expr.DefaultScaleFactor); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPreprocessing, err)
	}
	if err := merged.FindVariableFeatures(expr.DefaultVariableFeatures); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPreprocessing, err)
	}

	scaled, err := merged.Scale(merged.VarFeatures, true)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPreprocessing, err)
	}

	emb, _, err := pcScores(mat.DenseCopyOf(scaled.T()), DefaultCCADims)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPreprocessing, err)
	}

	corrected, err := harmonyCorrect(emb, merged.CellLabels)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIntegration, err)
	}

	nonlinear, err := spectralEmbedding(corrected)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIntegration, err)
	}

	return &Combined{
		Strategy:  StrategyHarmony.String(),
		Features:  merged.VarFeatures,
		Cells:     merged.Cells,
		Labels:    merged.CellLabels,
		Linear:    NewEmbedding("harmony", corrected),
		Nonlinear: NewEmbedding("spectral", nonlinear),
	}, nil
}

// harmonyCorrect removes per-batch centroid offsets from the embedding.
// Each round softly clusters the cells, measures how far each batch's
// within-cluster centroid sits from the cluster's global centroid, and
// subtracts that offset weighted by cluster membership. Rounds stop at
// convergence of the total shift or after harmonyMaxRounds.
func harmonyCorrect(emb *mat.Dense, labels []string) (*mat.Dense, error) {
	n, dims := emb.Dims()
	if n != len(labels) {
		return nil, fmt.Errorf("embedding has %d cells but %d labels", n, len(labels))
	}

	batchIdx := make([]int, n)
	batchOf := map[string]int{}
	for i, label := range labels {
		b, ok := batchOf[label]
		if !ok {
			b = len(batchOf)
			batchOf[label] = b
		}
		batchIdx[i] = b
	}
	if len(batchOf) < 2 {
		return nil, fmt.Errorf("need at least two dataset labels to correct, got %d", len(batchOf))
	}

	k := n / 5
	if k > 8 {
		k = 8
	}
	if k < 2 {
		k = 2
	}

	out := mat.DenseCopyOf(emb)
	centroids := initCentroids(out, k)

	for round := 0; round < harmonyMaxRounds; round++ {
		resp := softAssign(out, centroids)

		// Global and per-batch weighted centroids.
		global := mat.NewDense(k, dims, nil)
		globalW := make([]float64, k)
		perBatch := make([]*mat.Dense, len(batchOf))
		perBatchW := make([][]float64, len(batchOf))
		for b := range perBatch {
			perBatch[b] = mat.NewDense(k, dims, nil)
			perBatchW[b] = make([]float64, k)
		}

		for i := 0; i < n; i++ {
			b := batchIdx[i]
			for j := 0; j < k; j++ {
				w := resp.At(i, j)
				globalW[j] += w
				perBatchW[b][j] += w
				for d := 0; d < dims; d++ {
					global.Set(j, d, global.At(j, d)+w*out.At(i, d))
					perBatch[b].Set(j, d, perBatch[b].At(j, d)+w*out.At(i, d))
				}
			}
		}

		for j := 0; j < k; j++ {
			if globalW[j] == 0 {
				continue
			}
			for d := 0; d < dims; d++ {
				global.Set(j, d, global.At(j, d)/globalW[j])
			}
			for b := range perBatch {
				if perBatchW[b][j] == 0 {
					continue
				}
				for d := 0; d < dims; d++ {
					perBatch[b].Set(j, d, perBatch[b].At(j, d)/perBatchW[b][j])
				}
			}
		}

		// Subtract the batch offset, weighted by cluster membership.
		var totalShift float64
		for i := 0; i < n; i++ {
			b := batchIdx[i]
			for d := 0; d < dims; d++ {
				var shift float64
				for j := 0; j < k; j++ {
					if perBatchW[b][j] == 0 || globalW[j] == 0 {
						continue
					}
					shift += resp.At(i, j) * (perBatch[b].At(j, d) - global.At(j, d))
				}
				out.Set(i, d, out.At(i, d)-shift)
				totalShift += math.Abs(shift)
			}
		}

		centroids = global
		log.Printf("Harmony round %d: total shift %.6f", round+1, totalShift)

		if totalShift/float64(n*dims) < harmonyTolerance {
			break
		}
	}

	return out, nil
}

// initCentroids seeds k centroids with a deterministic k-means++ style
// farthest-point sweep.
func initCentroids(x *mat.Dense, k int) *mat.Dense {
	n, dims := x.Dims()
	rng := rand.New(rand.NewSource(1))

	centroids := mat.NewDense(k, dims, nil)
	first := rng.Intn(n)
	centroids.SetRow(0, x.RawRowView(first))

	minDist := make([]float64, n)
	for i := range minDist {
		minDist[i] = rowDistance(x, i, centroids, 0)
	}

	for c := 1; c < k; c++ {
		best, bestDist := 0, -1.0
		for i, d := range minDist {
			if d > bestDist {
				best, bestDist = i, d
			}
		}
		centroids.SetRow(c, x.RawRowView(best))
		for i := range minDist {
			if d := rowDistance(x, i, centroids, c); d < minDist[i] {
				minDist[i] = d
			}
		}
	}

	return centroids
}

// softAssign computes Gaussian-kernel soft cluster memberships, one row per
// cell, rows summing to one.
func softAssign(x, centroids *mat.Dense) *mat.Dense {
	n, _ := x.Dims()
	k, _ := centroids.Dims()

	// Bandwidth from the mean distance to the nearest centroid.
	var sigma float64
	dists := mat.NewDense(n, k, nil)
	for i := 0; i < n; i++ {
		nearest := math.Inf(1)
		for j := 0; j < k; j++ {
			d := rowDistance(x, i, centroids, j)
			dists.Set(i, j, d)
			if d < nearest {
				nearest = d
			}
		}
		sigma += nearest
	}
	sigma /= float64(n)
	if sigma == 0 {
		sigma = 1
	}

	resp := mat.NewDense(n, k, nil)
	for i := 0; i < n; i++ {
		var total float64
		for j := 0; j < k; j++ {
			d := dists.At(i, j)
			w := math.Exp(-d * d / (2 * sigma * sigma))
			resp.Set(i, j, w)
			total += w
		}
		if total == 0 {
			// All centroids far away; fall back to the nearest one.
			nearest := 0
			for j := 1; j < k; j++ {
				if dists.At(i, j) < dists.At(i, nearest) {
					nearest = j
				}
			}
			resp.Set(i, nearest, 1)
			continue
		}
		for j := 0; j < k; j++ {
			resp.Set(i, j, resp.At(i, j)/total)
		}
	}

	return resp
}
