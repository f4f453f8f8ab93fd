// Package feature holds the enriched track records and their GeoJSON
// persistence.
package feature

import (
	"sort"

	"github.com/banshee-data/trackmap/internal/cluster"
	"github.com/banshee-data/trackmap/internal/geodesy"
	"github.com/banshee-data/trackmap/internal/track"
	"github.com/banshee-data/trackmap/internal/trackstats"
	"github.com/banshee-data/trackmap/internal/units"
)

// Properties are the per-track values published to the map front-end.
// They are fixed once the feature is assembled.
type Properties struct {
	Name                 string  `json:"name"`
	Date                 string  `json:"date"`
	DistanceKm           float64 `json:"distance_km"`
	DistanceMi           float64 `json:"distance_mi"`
	Duration             string  `json:"duration"`
	Ascent               int     `json:"ascent"`
	Descent              int     `json:"descent"`
	PaceMinPerKm         float64 `json:"pace_min_per_km"`
	CenterLat            float64 `json:"center_lat"`
	CenterLon            float64 `json:"center_lon"`
	PlaceName            string  `json:"place_name"`
	GridRef              string  `json:"gridref"`
	GoogleMapsLink       string  `json:"googleMapsLink"`
	DownloadLink         string  `json:"download_link"`
	IndMapLink           string  `json:"ind_map_link"`
	IndMapLinkOS         string  `json:"ind_map_link_os"`
	ElevationProfileLink string  `json:"elevation_profile_link"`
}

// Feature is one processed track: its simplified geometry and properties.
type Feature struct {
	Geometry   []track.Sample
	Properties Properties
}

// New assembles a feature from computed metrics, a resolved place name and
// the track's public links.
func New(name, date string, samples []track.Sample, m trackstats.Metrics, placeName string, links Links) Feature {
	return Feature{
		Geometry: samples,
		Properties: Properties{
			Name:                 name,
			Date:                 date,
			DistanceKm:           m.DistanceKm,
			DistanceMi:           m.DistanceMi,
			Duration:             units.FormatDuration(m.Duration),
			Ascent:               m.AscentM,
			Descent:              m.DescentM,
			PaceMinPerKm:         units.Round2(m.PaceMinPerKm),
			CenterLat:            m.Center.Lat,
			CenterLon:            m.Center.Lon,
			PlaceName:            placeName,
			GridRef:              m.GridRef,
			GoogleMapsLink:       links.GoogleMaps,
			DownloadLink:         links.Download,
			IndMapLink:           links.StandardMap,
			IndMapLinkOS:         links.OSMap,
			ElevationProfileLink: links.ElevationProfile,
		},
	}
}

// Start returns the first geometry point.
func (f Feature) Start() geodesy.LatLon {
	if len(f.Geometry) == 0 {
		return geodesy.LatLon{}
	}
	return geodesy.LatLon{Lat: f.Geometry[0].Latitude, Lon: f.Geometry[0].Longitude}
}

// WithPlaceName returns a copy of f carrying a different place name.
func (f Feature) WithPlaceName(name string) Feature {
	f.Properties.PlaceName = name
	return f
}

// Collection is the persisted set of features. Cluster assignments are
// derived over the whole set and kept beside the features rather than in
// their properties.
type Collection struct {
	Features    []Feature
	Assignments map[string]cluster.Assignment
}

// NewCollection returns an empty collection.
func NewCollection() *Collection {
	return &Collection{Assignments: map[string]cluster.Assignment{}}
}

// Has reports whether a feature called name is present.
func (c *Collection) Has(name string) bool {
	for _, f := range c.Features {
		if f.Properties.Name == name {
			return true
		}
	}
	return false
}

// Names returns the set of feature names.
func (c *Collection) Names() map[string]struct{} {
	names := make(map[string]struct{}, len(c.Features))
	for _, f := range c.Features {
		names[f.Properties.Name] = struct{}{}
	}
	return names
}

// Add appends features.
func (c *Collection) Add(fs ...Feature) {
	c.Features = append(c.Features, fs...)
}

// SortByNameDesc orders features newest first for recorder-named tracks.
func (c *Collection) SortByNameDesc() {
	sort.SliceStable(c.Features, func(i, j int) bool {
		return c.Features[i].Properties.Name > c.Features[j].Properties.Name
	})
}

// Starts returns every feature's start point, index-aligned with Features.
func (c *Collection) Starts() []geodesy.LatLon {
	out := make([]geodesy.LatLon, len(c.Features))
	for i, f := range c.Features {
		out[i] = f.Start()
	}
	return out
}

// Recolour clusters the current features and replaces all assignments.
func (c *Collection) Recolour(palette []string, seed uint64) error {
	assigned, err := cluster.AssignColours(c.Starts(), palette, seed)
	if err != nil {
		return err
	}
	c.Assignments = make(map[string]cluster.Assignment, len(assigned))
	for i, a := range assigned {
		c.Assignments[c.Features[i].Properties.Name] = a
	}
	return nil
}
