package cluster

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// blobs returns count points around each centre, spread by ±0.001.
func blobs(count int, centres ...[2]float64) [][]float64 {
	var out [][]float64
	for _, c := range centres {
		for i := 0; i < count; i++ {
			dx := float64(i%3-1) * 0.001
			dy := float64(i/3%3-1) * 0.001
			out = append(out, []float64{c[0] + dx, c[1] + dy})
		}
	}
	return out
}

func TestKMeans_SeparatesBlobs(t *testing.T) {
	t.Parallel()
	// Listed east first so relabelling has work to do.
	points := blobs(6, [2]float64{-1.0, 53.5}, [2]float64{-2.0, 53.0}, [2]float64{-1.5, 54.0})

	res := KMeans{K: 3, Seed: 0}.Fit(points)
	if len(res.Labels) != len(points) || len(res.Centroids) != 3 {
		t.Fatalf("got %d labels and %d centroids, want %d and 3", len(res.Labels), len(res.Centroids), len(points))
	}
	if res.Iterations < 1 {
		t.Errorf("Iterations = %d, want at least 1", res.Iterations)
	}

	// Westernmost blob is label 0, then the middle, then the east.
	want := make([]int, 0, len(points))
	for _, l := range []int{2, 0, 1} {
		for i := 0; i < 6; i++ {
			want = append(want, l)
		}
	}
	if diff := cmp.Diff(want, res.Labels); diff != "" {
		t.Errorf("labels mismatch (-want +got):\n%s", diff)
	}
	for i, lon := range []float64{-2.0, -1.5, -1.0} {
		if math.Abs(res.Centroids[i][0]-lon) > 0.001 {
			t.Errorf("centroid %d longitude = %v, want %v", i, res.Centroids[i][0], lon)
		}
	}
}

func TestKMeans_Reproducible(t *testing.T) {
	t.Parallel()
	points := blobs(9, [2]float64{0, 0}, [2]float64{0.01, 0.01}, [2]float64{0.005, 0.02}, [2]float64{0.02, 0})

	for _, seed := range []uint64{0, 1, 99} {
		a := KMeans{K: 4, Seed: seed}.Fit(points)
		b := KMeans{K: 4, Seed: seed}.Fit(points)
		if diff := cmp.Diff(a, b); diff != "" {
			t.Errorf("seed %d: runs differ (-first +second):\n%s", seed, diff)
		}
	}
}

func TestKMeans_EmptyClusterAllowed(t *testing.T) {
	t.Parallel()
	points := [][]float64{{1, 1}, {1, 1}, {1, 1}}

	res := KMeans{K: 2, Seed: 7}.Fit(points)
	if len(res.Labels) != 3 || len(res.Centroids) != 2 {
		t.Fatalf("got %d labels and %d centroids, want 3 and 2", len(res.Labels), len(res.Centroids))
	}
	if res.Labels[0] != res.Labels[1] || res.Labels[0] != res.Labels[2] {
		t.Errorf("identical points split across clusters: %v", res.Labels)
	}
}

func TestKMeans_Degenerate(t *testing.T) {
	t.Parallel()
	if diff := cmp.Diff(Result{}, KMeans{K: 3}.Fit(nil)); diff != "" {
		t.Errorf("no points (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(Result{}, KMeans{K: 0}.Fit([][]float64{{1, 2}})); diff != "" {
		t.Errorf("K=0 (-want +got):\n%s", diff)
	}

	res := KMeans{K: 1, MaxIterations: 1}.Fit([][]float64{{0, 0}, {2, 2}})
	want := Result{Labels: []int{0, 0}, Centroids: [][]float64{{1, 1}}, Iterations: 1}
	if diff := cmp.Diff(want, res); diff != "" {
		t.Errorf("single cluster (-want +got):\n%s", diff)
	}
}
