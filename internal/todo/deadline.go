package todo

import (
	"fmt"
	"strings"
	"time"
)

const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"
	// DisplayLayout is how deadlines are rendered in task listings.
	DisplayLayout = "2006-01-02 15:04"
)

// ParseDeadline combines a YYYY-MM-DD date with an optional HH:MM time of day
// in loc. A missing time means midnight.
func ParseDeadline(date, clock string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	day, err := time.ParseInLocation(DateLayout, strings.TrimSpace(date), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", date, err)
	}
	clock = strings.TrimSpace(clock)
	if clock == "" {
		return day, nil
	}
	tod, err := time.Parse(ClockLayout, clock)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", clock, err)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), tod.Hour(), tod.Minute(), 0, 0, loc), nil
}

// ParseDeadlineArg accepts "YYYY-MM-DD" or "YYYY-MM-DD HH:MM".
func ParseDeadlineArg(raw string, loc *time.Location) (time.Time, error) {
	fields := strings.Fields(raw)
	switch len(fields) {
	case 1:
		return ParseDeadline(fields[0], "", loc)
	case 2:
		return ParseDeadline(fields[0], fields[1], loc)
	default:
		return time.Time{}, fmt.Errorf("invalid deadline %q, expected YYYY-MM-DD [HH:MM]", raw)
	}
}

// FormatDeadline renders a deadline for listings.
func FormatDeadline(d *time.Time) string {
	if d == nil {
		return "No deadline"
	}
	return d.Format(DisplayLayout)
}
