package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path"

	"github.com/paulmach/orb"
	orbjson "github.com/paulmach/orb/geojson"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/banshee-data/trackmap/internal/feature"
	"github.com/banshee-data/trackmap/internal/security"
)

// Split describes the per-track files written by SplitFeatures.
type Split struct {
	// Manifest lists the track files relative to the output directory,
	// always with forward slashes.
	Manifest []string
	Markers  int
}

// SplitFeatures writes each feature as its own single-feature collection,
// a manifest of those files, and a collection of start-point markers
// carrying the full feature properties.
func (e *Exporter) SplitFeatures(c *feature.Collection) (Split, error) {
	var out Split
	markers := orbjson.NewFeatureCollection()
	for _, f := range c.Features {
		gf, err := f.GeoJSON(c.Assignments)
		if err != nil {
			return out, fmt.Errorf("track %q: %w", f.Properties.Name, err)
		}
		data, err := indentJSON(&geojson.FeatureCollection{Features: []*geojson.Feature{gf}})
		if err != nil {
			return out, fmt.Errorf("track %q: %w", f.Properties.Name, err)
		}
		p, err := e.trackPath(TracksDir, f.Properties.Name, ".geojson")
		if err != nil {
			return out, err
		}
		if err := e.write(p, data); err != nil {
			return out, err
		}
		out.Manifest = append(out.Manifest, path.Join(TracksDir, security.SafeName(f.Properties.Name)+".geojson"))

		if len(f.Geometry) == 0 {
			continue
		}
		start := f.Start()
		marker := orbjson.NewFeature(orb.Point{start.Lon, start.Lat})
		marker.Properties = orbjson.Properties(gf.Properties)
		markers.Append(marker)
	}
	out.Markers = len(markers.Features)

	if out.Manifest == nil {
		out.Manifest = []string{}
	}
	manifest, err := indentJSON(out.Manifest)
	if err != nil {
		return out, err
	}
	p, err := e.path(ManifestFile)
	if err != nil {
		return out, err
	}
	if err := e.write(p, manifest); err != nil {
		return out, err
	}

	data, err := indentJSON(markers)
	if err != nil {
		return out, err
	}
	if p, err = e.path(MarkersFile); err != nil {
		return out, err
	}
	if err := e.write(p, data); err != nil {
		return out, err
	}
	return out, nil
}

func indentJSON(v interface{}) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}
