package integrate

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

func rowDistance(a *mat.Dense, i int, b *mat.Dense, j int) float64 {
	ra := a.RawRowView(i)
	rb := b.RawRowView(j)

	var sum float64
	for k := range ra {
		d := ra[k] - rb[k]
		sum += d * d
	}
	return math.Sqrt(sum)
}

// nearestBetween returns, for each row of a, the indices of its k nearest
// rows in b by Euclidean distance, closest first. Brute force; the cell
// counts flowing through one run stay far below the point where an index
// structure would pay off.
func nearestBetween(a, b *mat.Dense, k int) [][]int {
	ar, _ := a.Dims()
	br, _ := b.Dims()
	if k > br {
		k = br
	}

	out := make([][]int, ar)
	idx := make([]int, br)
	dist := make([]float64, br)

	for i := 0; i < ar; i++ {
		for j := 0; j < br; j++ {
			idx[j] = j
			dist[j] = rowDistance(a, i, b, j)
		}

		order := make([]int, br)
		copy(order, idx)
		sort.Slice(order, func(x, y int) bool {
			return dist[order[x]] < dist[order[y]]
		})

		out[i] = append([]int(nil), order[:k]...)
	}

	return out
}

// l2NormalizeRows scales each row of x to unit length in place. Zero rows
// are left alone.
func l2NormalizeRows(x *mat.Dense) {
	rows, _ := x.Dims()
	for i := 0; i < rows; i++ {
		row := x.RawRowView(i)
		var sum float64
		for _, v := range row {
			sum += v * v
		}
		if sum == 0 {
			continue
		}
		norm := math.Sqrt(sum)
		for j := range row {
			row[j] /= norm
		}
	}
}
