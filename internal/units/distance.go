// Package units provides shared constants and conversions for distance,
// duration and time zones.
package units

import (
	"fmt"
	"math"
	"time"
)

// Distance unit constants
const (
	KM = "km"
	MI = "mi"
)

// MetresPerMile is the international statute mile.
const MetresPerMile = 1609.344

// ValidUnits contains all valid distance units.
var ValidUnits = []string{KM, MI}

// IsValid checks if the given unit is a known distance unit.
func IsValid(unit string) bool {
	for _, u := range ValidUnits {
		if unit == u {
			return true
		}
	}
	return false
}

// KmToMiles converts kilometres to statute miles.
func KmToMiles(km float64) float64 {
	return km * 1000 / MetresPerMile
}

// ConvertDistance converts a distance in kilometres to the target unit.
// Unknown units fall back to kilometres.
func ConvertDistance(km float64, target string) float64 {
	if target == MI {
		return KmToMiles(km)
	}
	return km
}

// Round2 rounds to two decimal places, half away from zero.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// FormatDuration renders d as H:MM:SS, truncating sub-second parts.
// Hours are not wrapped at 24.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	s := int64(d / time.Second)
	return fmt.Sprintf("%d:%02d:%02d", s/3600, (s/60)%60, s%60)
}

// ParseDuration reverses FormatDuration.
func ParseDuration(s string) (time.Duration, error) {
	var h, m, sec int64
	if _, err := fmt.Sscanf(s, "%d:%d:%d", &h, &m, &sec); err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	if h < 0 || m < 0 || m > 59 || sec < 0 || sec > 59 {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(sec)*time.Second, nil
}
