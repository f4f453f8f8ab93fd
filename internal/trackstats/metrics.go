// Package trackstats derives distance, elevation and timing metrics from
// the retained points of a simplified track.
package trackstats

import (
	"fmt"
	"math"
	"time"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"

	"github.com/banshee-data/trackmap/internal/geodesy"
	"github.com/banshee-data/trackmap/internal/monitoring"
	"github.com/banshee-data/trackmap/internal/track"
	"github.com/banshee-data/trackmap/internal/units"
)

// Metrics summarises one track. It is computed once and never modified.
type Metrics struct {
	DistanceKm   float64 // rounded to 2 decimals
	DistanceMi   float64 // rounded to 2 decimals
	AscentM      int
	DescentM     int // magnitude, never negative
	Duration     time.Duration
	Start        geodesy.LatLon
	Center       geodesy.LatLon
	GridRef      string
	PaceMinPerKm float64
}

// InsufficientDataError reports a track with too few points to measure.
type InsufficientDataError struct {
	Name   string
	Points int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("track %q has %d usable points, need at least 2", e.Name, e.Points)
}

// Options adjusts Compute. The zero value is ready to use.
type Options struct {
	// GridRef converts the start point; defaults to geodesy.GridReference.
	GridRef func(geodesy.LatLon) (string, error)
}

// Compute measures the retained points of one track and returns the
// per-point samples for its geometry alongside the summary metrics.
func Compute(name string, points []track.RawPoint, opts Options) ([]track.Sample, Metrics, error) {
	if len(points) < 2 {
		return nil, Metrics{}, &InsufficientDataError{Name: name, Points: len(points)}
	}

	samples := make([]track.Sample, len(points))
	var km, mi float64
	for i, p := range points {
		if i > 0 {
			d, err := geodesy.Distance(points[i-1].LatLon(), p.LatLon())
			if err != nil {
				return nil, Metrics{}, fmt.Errorf("track %q point %d: %w", name, i, err)
			}
			km += d.Km
			mi += d.Mi
		}
		samples[i] = track.Sample{
			Longitude:       p.Longitude,
			Latitude:        p.Latitude,
			Elevation:       p.Elevation,
			CumulativeMiles: mi,
		}
	}

	elevations := make([]float64, len(points))
	for i, p := range points {
		elevations[i] = p.Elevation
	}
	ascent, descent := AscentDescent(SmoothElevations(elevations))

	m := Metrics{
		DistanceKm: units.Round2(km),
		DistanceMi: units.Round2(mi),
		AscentM:    int(ascent),
		DescentM:   int(descent),
		Duration:   points[len(points)-1].Time.Sub(points[0].Time).Truncate(time.Second),
		Start:      points[0].LatLon(),
		Center:     Centroid(points),
	}
	if m.Duration < 0 {
		m.Duration = 0
	}
	if km > 0 {
		m.PaceMinPerKm = m.Duration.Minutes() / km
	}

	gridRef := opts.GridRef
	if gridRef == nil {
		gridRef = geodesy.GridReference
	}
	ref, err := gridRef(m.Start)
	if err != nil {
		monitoring.Logf("track %q: no grid reference: %v", name, err)
	} else {
		m.GridRef = ref
	}
	return samples, m, nil
}

// smoothingWindow returns the inclusive index range averaged for point i of
// n. The two end points are raw; the window then widens from 3 to 5 to 7
// points as i moves away from either end, checked in that order.
func smoothingWindow(i, n int) (lo, hi int) {
	last := n - 1
	switch {
	case i == 0 || i == last:
		return i, i
	case i == 1 || i == last-1:
		return i - 1, i + 1
	case i == 2 || i == last-2:
		return i - 2, i + 2
	default:
		return i - 3, i + 3
	}
}

// SmoothElevations applies the asymmetric moving average used for
// ascent and descent.
func SmoothElevations(elevations []float64) []float64 {
	out := make([]float64, len(elevations))
	for i := range elevations {
		lo, hi := smoothingWindow(i, len(elevations))
		var sum float64
		for j := lo; j <= hi; j++ {
			sum += elevations[j]
		}
		out[i] = sum / float64(hi-lo+1)
	}
	return out
}

// AscentDescent totals the rises and falls between consecutive values,
// each truncated toward zero to whole metres. Descent is a magnitude.
func AscentDescent(smoothed []float64) (ascent, descent float64) {
	for i := 1; i < len(smoothed); i++ {
		switch d := smoothed[i] - smoothed[i-1]; {
		case d > 0:
			ascent += d
		case d < 0:
			descent -= d
		}
	}
	return math.Trunc(ascent), math.Trunc(descent)
}

// Centroid returns the length-weighted centre of the track polyline in
// (lat, lon). Degenerate lines fall back to the mean of their points.
func Centroid(points []track.RawPoint) geodesy.LatLon {
	flat := make([]float64, 0, 2*len(points))
	for _, p := range points {
		flat = append(flat, p.Latitude, p.Longitude)
	}
	line := geom.NewLineStringFlat(geom.XY, flat)
	if line.Length() > 0 {
		c := xy.LinesCentroid(line)
		if !math.IsNaN(c[0]) && !math.IsNaN(c[1]) {
			return geodesy.LatLon{Lat: c[0], Lon: c[1]}
		}
	}

	var lat, lon float64
	for _, p := range points {
		lat += p.Latitude
		lon += p.Longitude
	}
	n := float64(len(points))
	return geodesy.LatLon{Lat: lat / n, Lon: lon / n}
}
