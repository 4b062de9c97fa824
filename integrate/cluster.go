package integrate

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

const (
	clusterNeighbors = 10
	clusterMaxPasses = 20
)

// clusterGraph partitions the cells of an embedding by greedy modularity
// optimization over a k-nearest-neighbor graph. resolution is the
// modularity gamma: higher values favor more, smaller communities. Labels
// come back compacted to 0..nClusters-1 in first-appearance order.
func clusterGraph(emb *mat.Dense, resolution float64) ([]int, error) {
	n, _ := emb.Dims()
	if n < 2 {
		return nil, fmt.Errorf("need at least two cells to cluster, got %d", n)
	}

	k := clusterNeighbors
	if k > n-1 {
		k = n - 1
	}

	// Undirected unweighted graph from the union of directed kNN edges.
	adj := make([]map[int]bool, n)
	for i := range adj {
		adj[i] = make(map[int]bool, k)
	}
	for i, nbrs := range nearestBetween(emb, emb, k+1) {
		for _, j := range nbrs {
			if j == i {
				continue
			}
			adj[i][j] = true
			adj[j][i] = true
		}
	}

	degree := make([]float64, n)
	var twoM float64
	for i := range adj {
		degree[i] = float64(len(adj[i]))
		twoM += degree[i]
	}
	if twoM == 0 {
		return nil, fmt.Errorf("neighbor graph has no edges")
	}

	community := make([]int, n)
	commDegree := make([]float64, n)
	for i := range community {
		community[i] = i
		commDegree[i] = degree[i]
	}

	// Greedy local moving: each pass offers every node its neighbors'
	// communities and takes the best modularity gain.
	for pass := 0; pass < clusterMaxPasses; pass++ {
		moved := false

		for i := 0; i < n; i++ {
			current := community[i]

			// Links from i into each adjacent community.
			links := map[int]float64{current: 0}
			for j := range adj[i] {
				links[community[j]]++
			}

			commDegree[current] -= degree[i]

			best, bestGain := current, links[current]-resolution*degree[i]*commDegree[current]/twoM
			for c, l := range links {
				if c == current {
					continue
				}
				gain := l - resolution*degree[i]*commDegree[c]/twoM
				if gain > bestGain {
					best, bestGain = c, gain
				}
			}

			commDegree[best] += degree[i]
			if best != current {
				community[i] = best
				moved = true
			}
		}

		if !moved {
			break
		}
	}

	// Compact to dense labels.
	labels := make([]int, n)
	next := 0
	seen := map[int]int{}
	for i, c := range community {
		id, ok := seen[c]
		if !ok {
			id = next
			seen[c] = id
			next++
		}
		labels[i] = id
	}

	return labels, nil
}
