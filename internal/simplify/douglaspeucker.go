// Package simplify reduces recorded polylines with the Douglas-Peucker
// algorithm.
//
// Points are planar orb.Points holding (lat, lon) in degrees, so epsilon is
// a tolerance in degrees rather than metres.
package simplify

import (
	"math"

	"github.com/paulmach/orb"

	"github.com/banshee-data/trackmap/internal/track"
)

// DouglasPeucker returns the subset of points that approximates the
// polyline to within epsilon. The first and last points are always kept,
// and the output preserves input order. Inputs of fewer than three points
// are returned unchanged.
func DouglasPeucker(points []orb.Point, epsilon float64) []orb.Point {
	if len(points) < 3 {
		return append([]orb.Point(nil), points...)
	}
	keep := make([]bool, len(points))
	keep[0], keep[len(points)-1] = true, true
	mark(points, 0, len(points)-1, epsilon, keep)

	out := make([]orb.Point, 0, len(points))
	for i, k := range keep {
		if k {
			out = append(out, points[i])
		}
	}
	return out
}

// mark flags the points retained between first and last inclusive.
func mark(points []orb.Point, first, last int, epsilon float64, keep []bool) {
	dmax, index := 0.0, 0
	for i := first + 1; i < last; i++ {
		// Strictly greater keeps the first of equally distant points.
		if d := perpendicularDistance(points[i], points[first], points[last]); d > dmax {
			dmax, index = d, i
		}
	}
	if dmax > epsilon {
		keep[index] = true
		mark(points, first, index, epsilon, keep)
		mark(points, index, last, epsilon, keep)
	}
}

// perpendicularDistance is the distance from p to the infinite line through
// a and b, or to a itself when the line is degenerate.
func perpendicularDistance(p, a, b orb.Point) float64 {
	if a == b {
		return math.Hypot(p[0]-a[0], p[1]-a[1])
	}
	x0, y0 := p[0], p[1]
	x1, y1 := a[0], a[1]
	x2, y2 := b[0], b[1]
	num := math.Abs((y2-y1)*x0 - (x2-x1)*y0 + x2*y1 - y2*x1)
	return num / math.Sqrt((y2-y1)*(y2-y1)+(x2-x1)*(x2-x1))
}

// Planar projects raw points onto the (lat, lon) plane used by DouglasPeucker.
func Planar(raw []track.RawPoint) []orb.Point {
	out := make([]orb.Point, len(raw))
	for i, p := range raw {
		out[i] = orb.Point{p.Latitude, p.Longitude}
	}
	return out
}

// Retain selects, in order, the raw points whose position is one of the
// simplified points. Repeated fixes at a kept position are all retained.
func Retain(raw []track.RawPoint, simplified []orb.Point) []track.RawPoint {
	kept := make(map[orb.Point]struct{}, len(simplified))
	for _, p := range simplified {
		kept[p] = struct{}{}
	}
	out := make([]track.RawPoint, 0, len(simplified))
	for _, p := range raw {
		if _, ok := kept[orb.Point{p.Latitude, p.Longitude}]; ok {
			out = append(out, p)
		}
	}
	return out
}

// Track simplifies raw with tolerance epsilon and returns the retained
// raw points, elevation and time intact.
func Track(raw []track.RawPoint, epsilon float64) []track.RawPoint {
	return Retain(raw, DouglasPeucker(Planar(raw), epsilon))
}
