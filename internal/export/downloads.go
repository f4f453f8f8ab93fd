package export

import (
	"fmt"

	"github.com/tkrajina/gpxgo/gpx"

	"github.com/banshee-data/trackmap/internal/feature"
)

// WriteDownloads writes one GPX file per feature holding its simplified
// geometry with elevations. Existing files are replaced.
func (e *Exporter) WriteDownloads(c *feature.Collection) (int, error) {
	for _, f := range c.Features {
		path, err := e.trackPath(feature.DownloadsDir, f.Properties.Name, ".gpx")
		if err != nil {
			return 0, err
		}
		data, err := DownloadGPX(f)
		if err != nil {
			return 0, fmt.Errorf("track %q: %w", f.Properties.Name, err)
		}
		if err := e.write(path, data); err != nil {
			return 0, err
		}
	}
	return len(c.Features), nil
}

// DownloadGPX renders f as a single-track GPX 1.1 document.
func DownloadGPX(f feature.Feature) ([]byte, error) {
	seg := gpx.GPXTrackSegment{Points: make([]gpx.GPXPoint, 0, len(f.Geometry))}
	for _, s := range f.Geometry {
		seg.Points = append(seg.Points, gpx.GPXPoint{
			Point: gpx.Point{
				Latitude:  s.Latitude,
				Longitude: s.Longitude,
				Elevation: *gpx.NewNullableFloat64(s.Elevation),
			},
		})
	}
	doc := &gpx.GPX{
		Creator: "trackmap",
		Tracks: []gpx.GPXTrack{{
			Name:     f.Properties.Name,
			Segments: []gpx.GPXTrackSegment{seg},
		}},
	}
	return doc.ToXml(gpx.ToXmlParams{Version: "1.1", Indent: true})
}
