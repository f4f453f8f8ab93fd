package geodesy

import (
	"fmt"
	"math"
	"sync"

	osgb "github.com/fofanov/go-osgb"
)

// The OSTN15 tables are large; build the transformer once per process.
var ostn15 = sync.OnceValues(func() (osgb.CoordinateTransformer, error) {
	return osgb.NewOSTN15Transformer()
})

// GridReference converts p to a 10-figure OS national grid reference such
// as "SK 12345 67890". Positions outside the OSTN15 coverage fail.
func GridReference(p LatLon) (string, error) {
	if err := p.Validate(); err != nil {
		return "", err
	}
	trans, err := ostn15()
	if err != nil {
		return "", fmt.Errorf("load OSTN15 transformer: %w", err)
	}
	ng, err := trans.ToNationalGrid(osgb.NewETRS89Coord(p.Lon, p.Lat, 0))
	if err != nil {
		return "", fmt.Errorf("grid reference for (%v, %v): %w", p.Lat, p.Lon, err)
	}
	return FormatGridRef(ng.Easting, ng.Northing)
}

// FormatGridRef renders full easting/northing metres as two grid letters
// followed by the 5-digit offsets within the 100 km square.
func FormatGridRef(easting, northing float64) (string, error) {
	e100k := int(math.Floor(easting / 100000))
	n100k := int(math.Floor(northing / 100000))
	if e100k < 0 || e100k > 6 || n100k < 0 || n100k > 12 {
		return "", fmt.Errorf("%w: easting %v northing %v outside the national grid", ErrInvalidCoordinate, easting, northing)
	}

	l1 := (19 - n100k) - (19-n100k)%5 + (e100k+10)/5
	l2 := ((19-n100k)*5)%25 + e100k%5
	// The grid alphabet skips I.
	if l1 > 7 {
		l1++
	}
	if l2 > 7 {
		l2++
	}
	letters := string(rune('A'+l1)) + string(rune('A'+l2))

	e := int(math.Floor(easting)) % 100000
	n := int(math.Floor(northing)) % 100000
	return fmt.Sprintf("%s %05d %05d", letters, e, n), nil
}
