package feature

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/banshee-data/trackmap/internal/cluster"
	"github.com/banshee-data/trackmap/internal/fsutil"
	"github.com/banshee-data/trackmap/internal/track"
)

// PersistenceError reports a collection that could not be read or
// written. It aborts the run.
type PersistenceError struct {
	Op   string
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s collection %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Store loads and saves a collection at a fixed path.
type Store struct {
	fs   fsutil.FileSystem
	path string
}

// NewStore returns a store for the GeoJSON file at path.
func NewStore(fsys fsutil.FileSystem, path string) *Store {
	return &Store{fs: fsys, path: path}
}

// Path returns the collection file path.
func (s *Store) Path() string { return s.path }

// Load reads the collection. A missing file is an empty collection.
func (s *Store) Load() (*Collection, error) {
	data, err := s.fs.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return NewCollection(), nil
	}
	if err != nil {
		return nil, &PersistenceError{Op: "read", Path: s.path, Err: err}
	}
	c, err := Decode(data)
	if err != nil {
		return nil, &PersistenceError{Op: "decode", Path: s.path, Err: err}
	}
	return c, nil
}

// Save encodes c and atomically replaces the collection file.
func (s *Store) Save(c *Collection) error {
	data, err := c.Encode()
	if err != nil {
		return &PersistenceError{Op: "encode", Path: s.path, Err: err}
	}
	if err := fsutil.WriteFileAtomic(s.fs, s.path, data, 0o644); err != nil {
		return &PersistenceError{Op: "write", Path: s.path, Err: err}
	}
	return nil
}

// Encode renders c as an indented GeoJSON FeatureCollection. Each
// LineString coordinate is [lon, lat, ele, cumulative_miles] and each
// feature's cluster assignment is merged into its properties.
func (c *Collection) Encode() ([]byte, error) {
	fc := geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(c.Features))}
	for _, f := range c.Features {
		gf, err := f.GeoJSON(c.Assignments)
		if err != nil {
			return nil, err
		}
		fc.Features = append(fc.Features, gf)
	}
	raw, err := json.Marshal(&fc)
	if err != nil {
		return nil, err
	}
	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", "    "); err != nil {
		return nil, err
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}

// GeoJSON converts f to a go-geom feature, adding its entry from
// assignments when there is one.
func (f Feature) GeoJSON(assignments map[string]cluster.Assignment) (*geojson.Feature, error) {
	props, err := f.PropertyMap(assignments)
	if err != nil {
		return nil, err
	}
	return &geojson.Feature{Geometry: LineString(f.Geometry), Properties: props}, nil
}

// PropertyMap returns the published properties of f keyed by their JSON
// names, with cluster_label and colour merged from assignments.
func (f Feature) PropertyMap(assignments map[string]cluster.Assignment) (map[string]interface{}, error) {
	raw, err := json.Marshal(f.Properties)
	if err != nil {
		return nil, err
	}
	props := map[string]interface{}{}
	if err := json.Unmarshal(raw, &props); err != nil {
		return nil, err
	}
	if a, ok := assignments[f.Properties.Name]; ok {
		props["cluster_label"] = a.Label
		props["colour"] = a.Colour
	}
	return props, nil
}

// LineString packs samples into an XYZM line: x=lon, y=lat, z=elevation,
// m=cumulative miles.
func LineString(samples []track.Sample) *geom.LineString {
	flat := make([]float64, 0, 4*len(samples))
	for _, s := range samples {
		flat = append(flat, s.Longitude, s.Latitude, s.Elevation, s.CumulativeMiles)
	}
	return geom.NewLineStringFlat(geom.XYZM, flat)
}

// Decode parses a collection written by Encode.
func Decode(data []byte) (*Collection, error) {
	var fc geojson.FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse GeoJSON: %w", err)
	}
	c := NewCollection()
	for i, gf := range fc.Features {
		f, a, err := fromGeoJSON(gf)
		if err != nil {
			return nil, fmt.Errorf("feature %d: %w", i, err)
		}
		c.Features = append(c.Features, f)
		if a != nil {
			c.Assignments[f.Properties.Name] = *a
		}
	}
	return c, nil
}

func fromGeoJSON(gf *geojson.Feature) (Feature, *cluster.Assignment, error) {
	if gf == nil {
		return Feature{}, nil, errors.New("null feature")
	}
	ls, ok := gf.Geometry.(*geom.LineString)
	if !ok {
		return Feature{}, nil, fmt.Errorf("geometry is %T, want LineString", gf.Geometry)
	}
	if ls.Stride() != 4 {
		return Feature{}, nil, fmt.Errorf("LineString has %d ordinates per point, want 4", ls.Stride())
	}
	flat := ls.FlatCoords()
	samples := make([]track.Sample, 0, len(flat)/4)
	for i := 0; i+3 < len(flat); i += 4 {
		samples = append(samples, track.Sample{
			Longitude:       flat[i],
			Latitude:        flat[i+1],
			Elevation:       flat[i+2],
			CumulativeMiles: flat[i+3],
		})
	}

	raw, err := json.Marshal(gf.Properties)
	if err != nil {
		return Feature{}, nil, err
	}
	var props Properties
	if err := json.Unmarshal(raw, &props); err != nil {
		return Feature{}, nil, fmt.Errorf("properties: %w", err)
	}
	if props.Name == "" {
		return Feature{}, nil, errors.New("feature has no name")
	}

	var a *cluster.Assignment
	if _, ok := gf.Properties["colour"]; ok {
		a = &cluster.Assignment{}
		if err := json.Unmarshal(raw, a); err != nil {
			return Feature{}, nil, fmt.Errorf("cluster assignment: %w", err)
		}
	}
	return Feature{Geometry: samples, Properties: props}, a, nil
}
