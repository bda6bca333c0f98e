package timetable

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidDate is returned when a date argument matches no accepted form.
var ErrInvalidDate = errors.New("invalid date")

// DateHelp lists the accepted date forms for flag help text.
const DateHelp = `date: DD-MM, YYYY-MM-DD, "DD-MM HH:MM", "HH:MM DD-MM", HH:MM, ` +
	`+N/-N days, +Nh, +Nm (double the sign, e.g. ++2h, to keep the current minute)`

// ParseDate interprets s relative to now. Accepted forms:
//
//	25-03            midnight on 25 March of the current year
//	2024-03-25       midnight on that day
//	+1 / -2          N days from now, at midnight
//	+2h              N hours from the start of the current hour
//	+30m             N minutes from now
//	++2h / ++1       as above, keeping the current time of day
//	25-03 14:30      that day and time, current year
//	14:30 25-03      same, time first
//	14:30            today at that time
func ParseDate(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty", ErrInvalidDate)
	}
	loc := now.Location()

	if t, err := time.ParseInLocation("2-1", s, loc); err == nil {
		return time.Date(now.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc), nil
	}
	if t, err := time.ParseInLocation("2006-01-02", s, loc); err == nil {
		return t, nil
	}
	if s[0] == '+' || s[0] == '-' {
		return parseRelative(s, now)
	}
	if t, err := time.ParseInLocation("2-1 15:04", s, loc); err == nil {
		return time.Date(now.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), 0, 0, loc), nil
	}
	if t, err := time.ParseInLocation("15:04 2-1", s, loc); err == nil {
		return time.Date(now.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), 0, 0, loc), nil
	}
	if t, err := time.ParseInLocation("15:04", s, loc); err == nil {
		return time.Date(now.Year(), now.Month(), now.Day(), t.Hour(), t.Minute(), 0, 0, loc), nil
	}

	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

func parseRelative(s string, now time.Time) (time.Time, error) {
	sign := s[0]
	keepTime := len(s) > 1 && s[1] == sign

	var digits strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	n, err := strconv.Atoi(digits.String())
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	if sign == '-' {
		n = -n
	}

	start := now
	switch s[len(s)-1] {
	case 'h':
		if !keepTime {
			start = time.Date(now.Year(), now.Month(), now.Day(), now.Hour(), 0, 0, 0, now.Location())
		}
		return start.Add(time.Duration(n) * time.Hour), nil
	case 'm':
		return start.Add(time.Duration(n) * time.Minute), nil
	default:
		if !keepTime {
			start = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		}
		return start.AddDate(0, 0, n), nil
	}
}
