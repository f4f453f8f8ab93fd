// Package cluster groups track start points with seeded k-means and hands
// out palette colours so that nearby tracks rarely share one.
package cluster

import (
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// DefaultMaxIterations bounds Lloyd refinement.
const DefaultMaxIterations = 300

// KMeans partitions points into K clusters. Runs with the same Seed on the
// same input are identical.
type KMeans struct {
	K             int
	Seed          uint64
	MaxIterations int
}

// Result is the outcome of a KMeans fit. Labels are index-aligned with the
// input; cluster i has centroid Centroids[i]. Labels are ordered so that
// centroids ascend by first coordinate, then second.
type Result struct {
	Labels     []int
	Centroids  [][]float64
	Iterations int
}

// Fit clusters points (each a 2-vector). A cluster may end up empty when
// the input has fewer distinct points than K; its centroid is then
// wherever initialisation placed it.
func (km KMeans) Fit(points [][]float64) Result {
	n := len(points)
	if n == 0 || km.K < 1 {
		return Result{}
	}
	maxIter := km.MaxIterations
	if maxIter <= 0 {
		maxIter = DefaultMaxIterations
	}

	rng := rand.New(rand.NewPCG(km.Seed, 0x6b6d65616e73)) // "kmeans"
	centroids := km.initPlusPlus(points, rng)

	labels := make([]int, n)
	for i := range labels {
		labels[i] = -1
	}
	iter := 0
	for iter < maxIter {
		iter++
		changed := assign(points, centroids, labels)
		update(points, labels, centroids)
		if !changed {
			break
		}
	}

	return relabel(labels, centroids, iter)
}

// initPlusPlus picks K starting centroids: the first uniformly, each next
// one with probability proportional to its squared distance from the
// nearest centroid chosen so far.
func (km KMeans) initPlusPlus(points [][]float64, rng *rand.Rand) [][]float64 {
	centroids := make([][]float64, 0, km.K)
	centroids = append(centroids, clone(points[rng.IntN(len(points))]))

	d2 := make([]float64, len(points))
	for len(centroids) < km.K {
		last := centroids[len(centroids)-1]
		for i, p := range points {
			d := floats.Distance(p, last, 2)
			if len(centroids) == 1 || d*d < d2[i] {
				d2[i] = d * d
			}
		}
		total := floats.Sum(d2)
		if total == 0 {
			// Every point coincides with a centroid already.
			centroids = append(centroids, clone(points[rng.IntN(len(points))]))
			continue
		}
		target := rng.Float64() * total
		pick := len(points) - 1
		var acc float64
		for i, w := range d2 {
			acc += w
			if acc > target {
				pick = i
				break
			}
		}
		centroids = append(centroids, clone(points[pick]))
	}
	return centroids
}

// assign moves each point to its nearest centroid, lowest index on ties.
func assign(points, centroids [][]float64, labels []int) bool {
	changed := false
	for i, p := range points {
		best, bestD := 0, math.Inf(1)
		for c, ctr := range centroids {
			if d := floats.Distance(p, ctr, 2); d < bestD {
				best, bestD = c, d
			}
		}
		if labels[i] != best {
			labels[i] = best
			changed = true
		}
	}
	return changed
}

// update recomputes each non-empty centroid as the mean of its members.
func update(points [][]float64, labels []int, centroids [][]float64) {
	dim := len(centroids[0])
	sums := make([][]float64, len(centroids))
	counts := make([]int, len(centroids))
	for c := range sums {
		sums[c] = make([]float64, dim)
	}
	for i, p := range points {
		floats.Add(sums[labels[i]], p)
		counts[labels[i]]++
	}
	for c := range centroids {
		if counts[c] == 0 {
			continue
		}
		floats.Scale(1/float64(counts[c]), sums[c])
		copy(centroids[c], sums[c])
	}
}

// relabel orders clusters by centroid so labels do not depend on which
// point initialisation happened to pick first.
func relabel(labels []int, centroids [][]float64, iter int) Result {
	order := make([]int, len(centroids))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ca, cb := centroids[order[a]], centroids[order[b]]
		if ca[0] != cb[0] {
			return ca[0] < cb[0]
		}
		return ca[1] < cb[1]
	})

	newLabel := make([]int, len(centroids))
	sorted := make([][]float64, len(centroids))
	for newIdx, old := range order {
		newLabel[old] = newIdx
		sorted[newIdx] = centroids[old]
	}
	out := make([]int, len(labels))
	for i, l := range labels {
		out[i] = newLabel[l]
	}
	return Result{Labels: out, Centroids: sorted, Iterations: iter}
}

func clone(p []float64) []float64 {
	return append([]float64(nil), p...)
}
