package timetable

import "strings"

var romanToArabic = map[string]string{
	"I":    "1",
	"II":   "2",
	"III":  "3",
	"IV":   "4",
	"V":    "5",
	"VI":   "6",
	"VII":  "7",
	"VIII": "8",
	"IX":   "9",
	"X":    "10",
	"XI":   "11",
	"XII":  "12",
	"BUS":  "BUS",
}

// Platform converts a roman platform number to arabic, keeping a trailing
// section letter: "IV" -> "4", "IIa" -> "2a". It reports false for values it
// does not recognize.
func Platform(number string) (string, bool) {
	if number == "" {
		return "", false
	}
	if last := number[len(number)-1]; last >= 'a' && last <= 'i' {
		arabic, ok := romanToArabic[number[:len(number)-1]]
		if !ok {
			return "", false
		}
		return arabic + string(last), true
	}
	arabic, ok := romanToArabic[number]
	return arabic, ok
}

// PositionFormat controls how platform and track are combined.
type PositionFormat struct {
	// Roman keeps platform numbers as published instead of converting them.
	Roman bool
	// PlatformFirst renders "platform/track" instead of "track/platform".
	PlatformFirst bool
}

// Position renders a platform and optional track, e.g. "7/4" or "4/7".
// Unrecognized platform numbers are shown as published.
func (f PositionFormat) Position(platform, track string) string {
	res := strings.TrimSpace(platform)
	if !f.Roman {
		if arabic, ok := Platform(res); ok {
			res = arabic
		}
	}
	if track == "" {
		return res
	}
	if f.PlatformFirst {
		return res + "/" + track
	}
	return track + "/" + res
}
