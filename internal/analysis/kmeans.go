// SPDX-License-Identifier: MIT

package analysis

import (
	"math"
	"math/rand"
)

// kmeansSeed fixes cluster initialization so repeated analyses of the same
// recording report the same assignments.
const kmeansSeed = 42

const kmeansMaxIterations = 100

// kmeans clusters samples (rows across the trace columns) into k groups and
// returns one assignment per sample.
func kmeans(cols [][]float64, k int) []int {
	d := len(cols)
	n := len(cols[0])
	if k > n {
		k = n
	}

	points := make([][]float64, n)
	for i := 0; i < n; i++ {
		p := make([]float64, d)
		for j := 0; j < d; j++ {
			p[j] = cols[j][i]
		}
		points[i] = p
	}

	// k-means++ initialization under a fixed seed.
	rng := rand.New(rand.NewSource(kmeansSeed))
	centroids := make([][]float64, 0, k)
	centroids = append(centroids, append([]float64(nil), points[rng.Intn(n)]...))
	for len(centroids) < k {
		dists := make([]float64, n)
		var total float64
		for i, p := range points {
			best := math.Inf(1)
			for _, c := range centroids {
				if dd := sqDist(p, c); dd < best {
					best = dd
				}
			}
			dists[i] = best
			total += best
		}
		if total == 0 {
			centroids = append(centroids, append([]float64(nil), points[rng.Intn(n)]...))
			continue
		}
		target := rng.Float64() * total
		var acc float64
		pick := n - 1
		for i, dd := range dists {
			acc += dd
			if acc >= target {
				pick = i
				break
			}
		}
		centroids = append(centroids, append([]float64(nil), points[pick]...))
	}

	assign := make([]int, n)
	for iter := 0; iter < kmeansMaxIterations; iter++ {
		changed := false
		for i, p := range points {
			best, bestDist := 0, math.Inf(1)
			for c, centroid := range centroids {
				if dd := sqDist(p, centroid); dd < bestDist {
					best, bestDist = c, dd
				}
			}
			if assign[i] != best {
				assign[i] = best
				changed = true
			}
		}
		if !changed && iter > 0 {
			break
		}

		counts := make([]int, k)
		sums := make([][]float64, k)
		for c := range sums {
			sums[c] = make([]float64, d)
		}
		for i, p := range points {
			c := assign[i]
			counts[c]++
			for j, v := range p {
				sums[c][j] += v
			}
		}
		for c := range centroids {
			if counts[c] == 0 {
				continue
			}
			for j := range centroids[c] {
				centroids[c][j] = sums[c][j] / float64(counts[c])
			}
		}
	}
	return assign
}

func sqDist(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
