package track

import (
	"fmt"
	"time"

	"github.com/tkrajina/gpxgo/gpx"
)

// ConvertedFileName is the file name given to a converted route walked on
// date. Routes carry no start time so early evening is assumed.
func ConvertedFileName(date time.Time) string {
	return FormatName(time.Date(date.Year(), date.Month(), date.Day(), 18, 0, 0, 0, time.UTC)) + Extension
}

// ConvertOSMaps rewrites an OS Maps shared route as a plain GPX 1.0 track.
// Route files have no per-point elevation or time, so every point gets
// elevation 0 and the document's metadata time (now when that is missing).
func ConvertOSMaps(src []byte, now time.Time) ([]byte, error) {
	in, err := gpx.ParseBytes(src)
	if err != nil {
		return nil, fmt.Errorf("parse OS Maps GPX: %w", err)
	}

	stamp := now.UTC()
	if in.Time != nil {
		stamp = in.Time.UTC()
	}

	var seg gpx.GPXTrackSegment
	for _, trk := range in.Tracks {
		for _, s := range trk.Segments {
			for _, p := range s.Points {
				seg.Points = append(seg.Points, gpx.GPXPoint{
					Point: gpx.Point{
						Latitude:  p.Latitude,
						Longitude: p.Longitude,
						Elevation: *gpx.NewNullableFloat64(0),
					},
					Timestamp: stamp,
				})
			}
		}
	}
	if len(seg.Points) == 0 {
		return nil, fmt.Errorf("OS Maps GPX has no track points")
	}

	out := &gpx.GPX{
		Creator: "trackmap OS Maps converter",
		Time:    &stamp,
		Tracks: []gpx.GPXTrack{{
			Name:     FormatName(stamp),
			Segments: []gpx.GPXTrackSegment{seg},
		}},
	}
	xml, err := out.ToXml(gpx.ToXmlParams{Version: "1.0", Indent: true})
	if err != nil {
		return nil, fmt.Errorf("encode GPX: %w", err)
	}
	return xml, nil
}
