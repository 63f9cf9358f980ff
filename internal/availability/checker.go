// Package availability decides whether a (date, time) slot can take a new
// appointment given the appointments and blocked dates already loaded.
package availability

import (
	"errors"
	"fmt"
	"sort"

	"github.com/wolfman30/dentalbook/internal/dental"
)

var (
	// ErrDateBlocked is returned by Result.Err for a blocked date.
	ErrDateBlocked = errors.New("availability: date is blocked")
	// ErrSlotTaken is returned by Result.Err when another appointment holds the slot.
	ErrSlotTaken = errors.New("availability: slot already booked")
)

// Slot is a candidate booking. ExcludeID skips the appointment being edited.
type Slot struct {
	Date      string
	Time      string
	ExcludeID string
}

// Snapshot is the in-memory view a check runs against. The Loaded flags are
// false when the collection could not be read; Check then treats it as empty.
type Snapshot struct {
	Appointments       []dental.Appointment
	Blocked            map[string]struct{}
	AppointmentsLoaded bool
	BlockedLoaded      bool
}

// NewSnapshot builds a fully loaded snapshot.
func NewSnapshot(appts []dental.Appointment, sets []dental.BlockedDateSet) Snapshot {
	return Snapshot{
		Appointments:       appts,
		Blocked:            dental.BlockedUnion(sets),
		AppointmentsLoaded: true,
		BlockedLoaded:      true,
	}
}

// Degraded reports whether any collection failed to load.
func (s Snapshot) Degraded() bool {
	return !s.AppointmentsLoaded || !s.BlockedLoaded
}

// IsBlocked reports whether date is in the blocked union.
func (s Snapshot) IsBlocked(date string) bool {
	if s.Blocked == nil {
		return false
	}
	_, ok := s.Blocked[date]
	return ok
}

// TakenTimes lists the occupied slots of a day in slot order.
func (s Snapshot) TakenTimes(date string) []string {
	seen := make(map[string]struct{})
	for _, a := range s.Appointments {
		if a.Date == date && a.Status.OccupiesSlot() {
			seen[a.Time] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return dental.SlotIndex(out[i]) < dental.SlotIndex(out[j]) })
	return out
}

// FreeTimes lists the slots of a day still open, or none when the day is blocked.
func (s Snapshot) FreeTimes(date string) []string {
	if s.IsBlocked(date) {
		return []string{}
	}
	taken := make(map[string]struct{})
	for _, t := range s.TakenTimes(date) {
		taken[t] = struct{}{}
	}
	out := make([]string, 0, len(dental.TimeSlots))
	for _, t := range dental.TimeSlots {
		if _, ok := taken[t]; !ok {
			out = append(out, t)
		}
	}
	return out
}

// Result is the outcome of a slot check.
type Result struct {
	Slot     Slot
	Blocked  bool
	Taken    bool
	Conflict *dental.Appointment
}

// OK reports whether the slot is free.
func (r Result) OK() bool {
	return !r.Blocked && !r.Taken
}

// Err maps the result to ErrDateBlocked / ErrSlotTaken, wrapped with a
// message suitable for showing to the person booking.
func (r Result) Err() error {
	switch {
	case r.Blocked:
		return fmt.Errorf("%w: %s is not available for appointments", ErrDateBlocked, r.Slot.Date)
	case r.Taken:
		return fmt.Errorf("%w: %s on %s is already booked, please choose another time", ErrSlotTaken, r.Slot.Time, r.Slot.Date)
	}
	return nil
}

// Check reports whether slot is blocked or already taken in snap. Blocked
// wins over taken. Cancelled appointments never conflict.
func Check(slot Slot, snap Snapshot) Result {
	res := Result{Slot: slot}
	if snap.IsBlocked(slot.Date) {
		res.Blocked = true
		return res
	}
	for i := range snap.Appointments {
		a := snap.Appointments[i]
		if a.ID != "" && a.ID == slot.ExcludeID {
			continue
		}
		if a.Date == slot.Date && a.Time == slot.Time && a.Status.OccupiesSlot() {
			res.Taken = true
			res.Conflict = &a
			return res
		}
	}
	return res
}

// Reason returns a short label for metrics.
func (r Result) Reason() string {
	switch {
	case r.Blocked:
		return "blocked"
	case r.Taken:
		return "taken"
	}
	return "ok"
}
