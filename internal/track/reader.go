package track

import (
	"fmt"

	"github.com/tkrajina/gpxgo/gpx"
)

// Parse decodes a GPX document and returns the points of the first segment
// of the first track. Every point must carry an elevation and a timestamp,
// and the segment must hold at least two points.
func Parse(name string, data []byte) ([]RawPoint, error) {
	doc, err := gpx.ParseBytes(data)
	if err != nil {
		return nil, &MalformedInputError{Name: name, Reason: "parse GPX", Err: err}
	}
	if len(doc.Tracks) == 0 {
		return nil, &MalformedInputError{Name: name, Reason: "no tracks"}
	}
	if len(doc.Tracks[0].Segments) == 0 {
		return nil, &MalformedInputError{Name: name, Reason: "no track segments"}
	}

	src := doc.Tracks[0].Segments[0].Points
	points := make([]RawPoint, 0, len(src))
	for i, p := range src {
		if !p.Elevation.NotNull() {
			return nil, &MalformedInputError{Name: name, Reason: fmt.Sprintf("point %d has no elevation", i)}
		}
		if p.Timestamp.IsZero() {
			return nil, &MalformedInputError{Name: name, Reason: fmt.Sprintf("point %d has no time", i)}
		}
		rp := RawPoint{
			Latitude:  p.Latitude,
			Longitude: p.Longitude,
			Elevation: p.Elevation.Value(),
			Time:      p.Timestamp,
		}
		if err := rp.LatLon().Validate(); err != nil {
			return nil, &MalformedInputError{Name: name, Reason: fmt.Sprintf("point %d", i), Err: err}
		}
		points = append(points, rp)
	}
	if len(points) < 2 {
		return nil, &MalformedInputError{Name: name, Reason: "fewer than 2 points"}
	}
	return points, nil
}
