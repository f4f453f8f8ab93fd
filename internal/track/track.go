// Package track reads GPS recordings into ordered raw points and names
// tracks after their source files.
package track

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/banshee-data/trackmap/internal/geodesy"
)

// Extension is the input file suffix, matched case-insensitively.
const Extension = ".gpx"

// nameLayout is how recorders name their files, e.g. "2023-05-01 @ 10-00-00".
const nameLayout = "2006-01-02 @ 15-04-05"

// RawPoint is one recorded fix.
type RawPoint struct {
	Latitude  float64
	Longitude float64
	Elevation float64 // metres
	Time      time.Time
}

// LatLon returns the point's horizontal position.
func (p RawPoint) LatLon() geodesy.LatLon {
	return geodesy.LatLon{Lat: p.Latitude, Lon: p.Longitude}
}

// Sample is one retained point of the simplified track with the distance
// walked so far.
type Sample struct {
	Longitude       float64
	Latitude        float64
	Elevation       float64
	CumulativeMiles float64
}

// IsTrackFile reports whether filename looks like a recording.
func IsTrackFile(filename string) bool {
	return strings.EqualFold(filepath.Ext(filename), Extension)
}

// NameFromFile strips the directory and extension from filename.
func NameFromFile(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// ParseNameTime extracts the wall-clock start encoded in a track name.
// The result carries no zone; ok is false for names that do not follow
// the recorder convention.
func ParseNameTime(name string) (t time.Time, ok bool) {
	t, err := time.Parse(nameLayout, name)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// FormatName is the inverse of ParseNameTime.
func FormatName(t time.Time) string {
	return t.Format(nameLayout)
}

// MalformedInputError reports a recording that cannot be used. The track
// is skipped; the run continues.
type MalformedInputError struct {
	Name   string
	Reason string
	Err    error
}

func (e *MalformedInputError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed track %q: %s: %v", e.Name, e.Reason, e.Err)
	}
	return fmt.Sprintf("malformed track %q: %s", e.Name, e.Reason)
}

func (e *MalformedInputError) Unwrap() error { return e.Err }
