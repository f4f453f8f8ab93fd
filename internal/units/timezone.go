package units

import (
	"fmt"
	"time"
)

// DefaultTimezone is where the recordings are made.
const DefaultTimezone = "Europe/London"

// IsTimezoneValid checks if the given timezone is valid by attempting to load it from the tz database
func IsTimezoneValid(tz string) bool {
	if tz == "" {
		return false
	}
	_, err := time.LoadLocation(tz)
	return err == nil
}

// ConvertTime converts a time to the specified timezone.
func ConvertTime(t time.Time, targetTimezone string) (time.Time, error) {
	if targetTimezone == "UTC" {
		return t.UTC(), nil
	}
	loc, err := time.LoadLocation(targetTimezone)
	if err != nil {
		return t, fmt.Errorf("failed to load timezone %s: %w", targetTimezone, err)
	}
	return t.In(loc), nil
}
