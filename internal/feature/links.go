package feature

import (
	"strconv"
	"strings"
	"time"

	"github.com/banshee-data/trackmap/internal/geodesy"
	"github.com/banshee-data/trackmap/internal/security"
)

// DateLayout is the zone-less ISO form used for the date property and the
// per-track map page ids.
const DateLayout = "2006-01-02T15:04:05"

// Links are the public URLs published with a feature.
type Links struct {
	GoogleMaps       string
	Download         string
	StandardMap      string
	OSMap            string
	ElevationProfile string
}

// Site builds links relative to the published site root.
type Site struct {
	BaseURL string
}

// Links returns the URLs for the track called name starting at start and
// recorded at date.
func (s Site) Links(name string, start geodesy.LatLon, date time.Time) Links {
	base := s.BaseURL
	if base != "" && !strings.HasSuffix(base, "/") {
		base += "/"
	}
	safe := security.SafeName(name)
	id := date.Format(DateLayout)
	return Links{
		GoogleMaps:       "https://www.google.com/maps?q=" + formatCoord(start.Lat) + "," + formatCoord(start.Lon),
		Download:         base + DownloadsDir + "/" + safe + ".gpx",
		StandardMap:      base + "map_std.html?track_id=" + id,
		OSMap:            base + "map_os.html?track_id=" + id,
		ElevationProfile: base + ProfilesDir + "/" + safe + ".png",
	}
}

// Published artifact directories, relative to the site root.
const (
	DownloadsDir = "track_downloads"
	ProfilesDir  = "elevation_profiles"
)

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
