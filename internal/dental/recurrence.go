package dental

import (
	"errors"
	"fmt"
	"time"
)

// RecurrencePattern controls how a recurring request is expanded.
type RecurrencePattern string

const (
	RecurNone     RecurrencePattern = "none"
	RecurWeekly   RecurrencePattern = "weekly"
	RecurBiweekly RecurrencePattern = "biweekly"
	RecurMonthly  RecurrencePattern = "monthly"
)

// MaxOccurrences caps a single fan-out.
const MaxOccurrences = 52

var ErrInvalidRecurrence = errors.New("invalid recurrence")

// Recurrence is only meaningful at creation time.
type Recurrence struct {
	Pattern     RecurrencePattern `json:"pattern"`
	Occurrences int               `json:"occurrences"`
}

// Expand returns the dates of every occurrence starting at start. A nil or
// "none" recurrence yields just the start date.
func (r *Recurrence) Expand(start string) ([]string, error) {
	first, err := ParseDate(start)
	if err != nil {
		return nil, err
	}
	if r == nil || r.Pattern == "" || r.Pattern == RecurNone {
		return []string{FormatDate(first)}, nil
	}
	if r.Occurrences < 1 || r.Occurrences > MaxOccurrences {
		return nil, fmt.Errorf("%w: occurrences must be between 1 and %d", ErrInvalidRecurrence, MaxOccurrences)
	}

	dates := make([]string, 0, r.Occurrences)
	for i := 0; i < r.Occurrences; i++ {
		var d = first
		switch r.Pattern {
		case RecurWeekly:
			d = first.AddDate(0, 0, 7*i)
		case RecurBiweekly:
			d = first.AddDate(0, 0, 14*i)
		case RecurMonthly:
			d = addMonthsClamped(first, i)
		default:
			return nil, fmt.Errorf("%w: unknown pattern %q", ErrInvalidRecurrence, r.Pattern)
		}
		dates = append(dates, FormatDate(d))
	}
	return dates, nil
}

// addMonthsClamped moves t forward n months, pinning the day to the last day
// of the target month when t's day does not exist there.
func addMonthsClamped(t time.Time, n int) time.Time {
	target := time.Date(t.Year(), t.Month()+time.Month(n), 1, 0, 0, 0, 0, t.Location())
	last := target.AddDate(0, 1, -1).Day()
	return time.Date(target.Year(), target.Month(), min(t.Day(), last), 0, 0, 0, 0, t.Location())
}
