package cache

import (
	"fmt"
	"strconv"
	"time"
)

// TTL defaults used at the call sites. Timetables, stations and reference
// data live for a day; train calendars change more often.
const (
	// DefaultTTL is the default entry lifetime (1 day).
	DefaultTTL = 24 * time.Hour

	// CalendarTTL is the lifetime of train calendar lookups (1 hour).
	CalendarTTL = time.Hour

	// MinTTL is the shortest TTL accepted from configuration.
	MinTTL = time.Second

	// MaxTTL is the longest TTL accepted from configuration (30 days).
	MaxTTL = 30 * 24 * time.Hour

	// minutesPerHour is used for duration formatting calculations.
	minutesPerHour = 60

	// hoursPerDay is used for duration formatting calculations.
	hoursPerDay = 24

	// EnvCacheEnabled is the environment variable for enabling/disabling the cache.
	EnvCacheEnabled = "KOLEO_CACHE_ENABLED"

	// EnvCachePath is the environment variable for the cache file location.
	EnvCachePath = "KOLEO_CACHE_PATH"
)

// ErrInvalidTTL is returned for TTLs outside [MinTTL, MaxTTL].
var ErrInvalidTTL = fmt.Errorf("TTL must be between %s and %s", MinTTL, MaxTTL)

// ParseEnabled interprets a KOLEO_CACHE_ENABLED value.
// Returns true when the value is empty or unparsable.
func ParseEnabled(value string) bool {
	if value == "" {
		return true
	}

	enabled, err := strconv.ParseBool(value)
	if err != nil {
		return true
	}

	return enabled
}

// ValidateTTL checks that d is within the accepted range.
func ValidateTTL(d time.Duration) error {
	if d < MinTTL || d > MaxTTL {
		return fmt.Errorf("%w: got %s", ErrInvalidTTL, d)
	}
	return nil
}

// ParseTTL parses a TTL given as integer seconds ("3600") or as a duration
// string ("1h", "30m", "1h30m").
func ParseTTL(s string) (time.Duration, error) {
	if seconds, err := strconv.Atoi(s); err == nil {
		d := time.Duration(seconds) * time.Second
		if validateErr := ValidateTTL(d); validateErr != nil {
			return 0, validateErr
		}
		return d, nil
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid TTL format: %w", err)
	}
	if validateErr := ValidateTTL(d); validateErr != nil {
		return 0, validateErr
	}
	return d, nil
}

// FormatDuration formats a duration in a human-readable way.
// Examples: "30s", "5m", "2h30m", "3d2h".
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%.0fm", d.Minutes())
	}
	if d < hoursPerDay*time.Hour {
		hours := int(d.Hours())
		minutes := int(d.Minutes()) % minutesPerHour
		if minutes == 0 {
			return fmt.Sprintf("%dh", hours)
		}
		return fmt.Sprintf("%dh%dm", hours, minutes)
	}
	days := int(d.Hours()) / hoursPerDay
	hours := int(d.Hours()) % hoursPerDay
	if hours == 0 {
		return fmt.Sprintf("%dd", days)
	}
	return fmt.Sprintf("%dd%dh", days, hours)
}
