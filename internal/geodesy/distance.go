// Package geodesy measures distances on the WGS-84 ellipsoid and converts
// positions to Ordnance Survey grid references.
package geodesy

import (
	"errors"
	"fmt"
	"math"

	"github.com/tidwall/geodesic"

	"github.com/banshee-data/trackmap/internal/units"
)

// ErrInvalidCoordinate is returned for NaN or out-of-range positions.
var ErrInvalidCoordinate = errors.New("invalid coordinate")

// LatLon is a WGS-84 position in decimal degrees.
type LatLon struct {
	Lat float64
	Lon float64
}

// Validate reports whether p is a usable position.
func (p LatLon) Validate() error {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lon) || p.Lat < -90 || p.Lat > 90 || p.Lon < -180 || p.Lon > 180 {
		return fmt.Errorf("%w: (%v, %v)", ErrInvalidCoordinate, p.Lat, p.Lon)
	}
	return nil
}

// Length is a distance in both reporting units.
type Length struct {
	Km float64
	Mi float64
}

// Distance solves the inverse geodesic problem between a and b.
func Distance(a, b LatLon) (Length, error) {
	if err := a.Validate(); err != nil {
		return Length{}, err
	}
	if err := b.Validate(); err != nil {
		return Length{}, err
	}
	var metres float64
	geodesic.WGS84.Inverse(a.Lat, a.Lon, b.Lat, b.Lon, &metres, nil, nil)
	return Length{Km: metres / 1000, Mi: metres / units.MetresPerMile}, nil
}
