package timetable

import (
	"fmt"
	"math"
	"time"
)

// FormatTravelTime renders a duration as hours and minutes: "2h5m", "0h45m".
func FormatTravelTime(d time.Duration) string {
	minutes := int(math.Round(d.Minutes()))
	if minutes < 0 {
		minutes = 0
	}
	return fmt.Sprintf("%dh%dm", minutes/60, minutes%60)
}

// Speed returns the average speed in km/h over distance meters, or 0 when
// the duration is not positive.
func Speed(distanceMeters int, d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(distanceMeters) / 1000 / d.Hours()
}

// RouteEnd adjusts an arrival that crosses midnight so that it is not before
// the departure.
func RouteEnd(start, end time.Time) time.Time {
	for end.Before(start) {
		end = end.AddDate(0, 0, 1)
	}
	return end
}
