package dental

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the storage format of appointment and blocked dates.
const DateLayout = "2006-01-02"

// MaxRangeDays bounds inclusive date ranges expanded in memory.
const MaxRangeDays = 366

var (
	ErrInvalidDate  = errors.New("date must be YYYY-MM-DD")
	ErrInvalidRange = errors.New("end date is before start date")
	ErrRangeTooLong = errors.New("date range too long")
)

// ParseDate parses a YYYY-MM-DD string as a UTC calendar day.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return t, nil
}

// FormatDate renders the calendar day of t.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// DatesBetween returns every day from start to end, inclusive.
func DatesBetween(start, end string) ([]string, error) {
	s, err := ParseDate(start)
	if err != nil {
		return nil, fmt.Errorf("start: %w", err)
	}
	e, err := ParseDate(end)
	if err != nil {
		return nil, fmt.Errorf("end: %w", err)
	}
	if e.Before(s) {
		return nil, ErrInvalidRange
	}
	if int(e.Sub(s).Hours()/24) >= MaxRangeDays {
		return nil, ErrRangeTooLong
	}
	var out []string
	for d := s; !d.After(e); d = d.AddDate(0, 0, 1) {
		out = append(out, FormatDate(d))
	}
	return out, nil
}

// InRange reports whether date lies within [start, end]. Empty bounds are open.
// Dates compare correctly as strings because of the fixed layout.
func InRange(date, start, end string) bool {
	if start != "" && date < start {
		return false
	}
	if end != "" && date > end {
		return false
	}
	return true
}

var legacyLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"1/2/2006",
	"01/02/2006",
	"January 2, 2006",
	"Jan 2, 2006",
}

// NormalizeDate converts stored date strings written by older clients into
// YYYY-MM-DD. Timestamps are converted to the clinic location first so a
// midnight-local value stored as UTC lands on the right day.
func NormalizeDate(raw string, loc *time.Location) (string, error) {
	raw = strings.TrimSpace(raw)
	if _, err := time.Parse(DateLayout, raw); err == nil {
		return raw, nil
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range legacyLayouts {
		t, err := time.Parse(layout, raw)
		if err != nil {
			continue
		}
		if layout == time.RFC3339 || layout == time.RFC3339Nano {
			t = t.In(loc)
		}
		return FormatDate(t), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidDate, raw)
}
