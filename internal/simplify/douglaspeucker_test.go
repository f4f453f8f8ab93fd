package simplify

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/paulmach/orb"

	"github.com/banshee-data/trackmap/internal/track"
)

// randomWalk is a wandering line of n points around the Peak District.
func randomWalk(n int, seed uint64) []orb.Point {
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	pts := make([]orb.Point, n)
	lat, lon := 53.38, -1.87
	for i := range pts {
		lat += (r.Float64() - 0.3) * 0.0004
		lon += (r.Float64() - 0.5) * 0.0004
		pts[i] = orb.Point{lat, lon}
	}
	return pts
}

func isSubsequence(sub, full []orb.Point) bool {
	j := 0
	for _, p := range full {
		if j < len(sub) && sub[j] == p {
			j++
		}
	}
	return j == len(sub)
}

func TestDouglasPeucker_Cases(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		points  []orb.Point
		epsilon float64
		want    []orb.Point
	}{
		{
			name:   "empty",
			points: nil,
			want:   nil,
		},
		{
			name:   "two points",
			points: []orb.Point{{0, 0}, {1, 1}},
			want:   []orb.Point{{0, 0}, {1, 1}},
		},
		{
			name:    "collinear interior dropped",
			points:  []orb.Point{{0, 0}, {1, 1}, {2, 2}, {3, 3}},
			epsilon: 0.0001,
			want:    []orb.Point{{0, 0}, {3, 3}},
		},
		{
			name:    "corner kept",
			points:  []orb.Point{{0, 0}, {1, 0}, {2, 0}, {2, 1}, {2, 2}},
			epsilon: 0.1,
			want:    []orb.Point{{0, 0}, {2, 0}, {2, 2}},
		},
		{
			name:    "deviation equal to epsilon dropped",
			points:  []orb.Point{{0, 0}, {1, 0.5}, {2, 0}},
			epsilon: 0.5,
			want:    []orb.Point{{0, 0}, {2, 0}},
		},
		{
			name:    "closed loop uses point distance",
			points:  []orb.Point{{0, 0}, {1, 0}, {1, 1}, {0, 0}},
			epsilon: 0.8,
			want:    []orb.Point{{0, 0}, {1, 1}, {0, 0}},
		},
		{
			name:    "tie keeps first farthest",
			points:  []orb.Point{{0, 0}, {1, 1}, {2, 1}, {3, 0}},
			epsilon: 0.5,
			want:    []orb.Point{{0, 0}, {1, 1}, {3, 0}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := DouglasPeucker(tt.points, tt.epsilon)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("DouglasPeucker() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDouglasPeucker_Properties(t *testing.T) {
	t.Parallel()
	epsilons := []float64{0, 0.00001, 0.0001, 0.0005, 0.001, 0.01}

	for seed := uint64(1); seed <= 5; seed++ {
		points := randomWalk(400, seed)
		var prev []orb.Point
		for _, eps := range epsilons {
			got := DouglasPeucker(points, eps)

			if len(got) < 2 || len(got) > len(points) {
				t.Fatalf("seed %d eps %v: kept %d of %d points", seed, eps, len(got), len(points))
			}
			if got[0] != points[0] || got[len(got)-1] != points[len(points)-1] {
				t.Errorf("seed %d eps %v: endpoints not kept", seed, eps)
			}
			if !isSubsequence(got, points) {
				t.Errorf("seed %d eps %v: order not preserved", seed, eps)
			}
			if diff := cmp.Diff(got, DouglasPeucker(got, eps)); diff != "" {
				t.Errorf("seed %d eps %v: not idempotent (-first +second):\n%s", seed, eps, diff)
			}

			if prev != nil {
				if len(got) > len(prev) {
					t.Errorf("seed %d eps %v: kept %d, more than %d at a smaller epsilon", seed, eps, len(got), len(prev))
				}
				if !isSubsequence(got, prev) {
					t.Errorf("seed %d eps %v: not a subset of the smaller epsilon result", seed, eps)
				}
			}
			prev = got
		}
	}
}

func TestDouglasPeucker_Deterministic(t *testing.T) {
	t.Parallel()
	points := randomWalk(200, 42)
	if diff := cmp.Diff(DouglasPeucker(points, 0.0001), DouglasPeucker(points, 0.0001)); diff != "" {
		t.Errorf("repeated runs differ:\n%s", diff)
	}
}

func TestRetain(t *testing.T) {
	t.Parallel()
	base := time.Date(2023, 5, 1, 10, 0, 0, 0, time.UTC)
	raw := []track.RawPoint{
		{Latitude: 0, Longitude: 0, Elevation: 10, Time: base},
		{Latitude: 1, Longitude: 1, Elevation: 11, Time: base.Add(time.Minute)},
		{Latitude: 2, Longitude: 0, Elevation: 12, Time: base.Add(2 * time.Minute)},
		{Latitude: 2, Longitude: 0, Elevation: 13, Time: base.Add(3 * time.Minute)},
		{Latitude: 3, Longitude: 3, Elevation: 14, Time: base.Add(4 * time.Minute)},
	}

	got := Retain(raw, []orb.Point{{0, 0}, {2, 0}, {3, 3}})
	if diff := cmp.Diff([]track.RawPoint{raw[0], raw[2], raw[3], raw[4]}, got); diff != "" {
		t.Errorf("Retain() mismatch (-want +got):\n%s", diff)
	}

	if got := Retain(raw, nil); len(got) != 0 {
		t.Errorf("Retain(nil) = %v, want empty", got)
	}
}

func TestTrack(t *testing.T) {
	t.Parallel()
	base := time.Date(2023, 5, 1, 10, 0, 0, 0, time.UTC)
	raw := make([]track.RawPoint, 10)
	for i := range raw {
		raw[i] = track.RawPoint{Latitude: 53 + float64(i)*0.001, Longitude: -1.5, Elevation: 100 + float64(i), Time: base.Add(time.Duration(i) * time.Minute)}
	}

	got := Track(raw, 0.0001)
	if diff := cmp.Diff([]track.RawPoint{raw[0], raw[9]}, got); diff != "" {
		t.Errorf("Track() mismatch (-want +got):\n%s", diff)
	}
	if p := Planar(raw)[0]; p != (orb.Point{53, -1.5}) {
		t.Errorf("Planar()[0] = %v, want [53 -1.5]", p)
	}
}
