package cluster

import (
	"errors"

	"github.com/banshee-data/trackmap/internal/geodesy"
)

// ErrEmptyPalette is returned when there are no colours to hand out.
var ErrEmptyPalette = errors.New("colour palette is empty")

// Assignment is the cluster and colour given to one track.
type Assignment struct {
	Label  int    `json:"cluster_label"`
	Colour string `json:"colour"`
}

// NumClusters returns how many clusters n tracks are split into so that an
// evenly spread cluster never needs more colours than the palette holds.
func NumClusters(n, paletteSize int) int {
	return n/paletteSize + 1
}

// AssignColours clusters track start points and colours each cluster's
// members round-robin from palette in input order. The result is
// index-aligned with starts.
func AssignColours(starts []geodesy.LatLon, palette []string, seed uint64) ([]Assignment, error) {
	if len(palette) == 0 {
		return nil, ErrEmptyPalette
	}
	if len(starts) == 0 {
		return nil, nil
	}

	points := make([][]float64, len(starts))
	for i, s := range starts {
		if err := s.Validate(); err != nil {
			return nil, err
		}
		points[i] = []float64{s.Lon, s.Lat}
	}

	k := NumClusters(len(starts), len(palette))
	res := KMeans{K: k, Seed: seed}.Fit(points)

	// One counter per cluster; members are coloured in input order.
	out := make([]Assignment, len(starts))
	next := make([]int, k)
	for i, label := range res.Labels {
		out[i] = Assignment{Label: label, Colour: palette[next[label]%len(palette)]}
		next[label]++
	}
	return out, nil
}
