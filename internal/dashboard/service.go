// Package dashboard computes the summary shown on the staff home screen.
package dashboard

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/wolfman30/dentalbook/internal/dental"
	"github.com/wolfman30/dentalbook/internal/store"
	"github.com/wolfman30/dentalbook/pkg/logging"
)

// UpcomingDays is the length of the upcoming window after today.
const UpcomingDays = 7

// Summary is the payload of GET /api/staff/dashboard.
type Summary struct {
	Today             string               `json:"today"`
	Counts            Counts               `json:"counts"`
	TodayAppointments []dental.Appointment `json:"today_appointments"`
	Upcoming          []DayCount           `json:"upcoming"`
	BlockedAhead      []string             `json:"blocked_ahead"`
	Bookings          BookingSnapshot      `json:"bookings"`
}

type Service struct {
	store    store.Store
	counter  Counter
	gatherer prometheus.Gatherer
	logger   *logging.Logger
	loc      *time.Location
	now      func() time.Time
}

// NewService builds the dashboard service. A nil counter counts through the
// store.
func NewService(st store.Store, counter Counter, gatherer prometheus.Gatherer, logger *logging.Logger, loc *time.Location) *Service {
	if st == nil {
		panic("dashboard: store required")
	}
	if counter == nil {
		counter = NewStoreCounter(st)
	}
	if logger == nil {
		logger = logging.Default()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		store:    st,
		counter:  counter,
		gatherer: gatherer,
		logger:   logger,
		loc:      loc,
		now:      time.Now,
	}
}

func (s *Service) Summary(ctx context.Context) (*Summary, error) {
	todayT := s.now().In(s.loc)
	today := dental.FormatDate(todayT)
	tomorrow := dental.FormatDate(todayT.AddDate(0, 0, 1))
	weekEnd := dental.FormatDate(todayT.AddDate(0, 0, UpcomingDays))

	counts, err := s.counter.Counts(ctx, today, weekEnd)
	if err != nil {
		return nil, err
	}

	todays, err := s.store.ListAppointments(ctx, store.AppointmentFilter{From: today, To: today})
	if err != nil {
		return nil, fmt.Errorf("dashboard: today's appointments: %w", err)
	}
	visible := todays[:0]
	for _, a := range todays {
		if a.Status.OccupiesSlot() {
			visible = append(visible, a)
		}
	}
	store.SortAppointments(visible)

	daily, err := s.counter.Daily(ctx, tomorrow, weekEnd)
	if err != nil {
		return nil, err
	}

	sets, err := s.store.ListBlockedDateSets(ctx)
	if err != nil {
		return nil, fmt.Errorf("dashboard: blocked dates: %w", err)
	}
	ahead := []string{}
	for d := range dental.BlockedUnion(sets) {
		if d >= today {
			ahead = append(ahead, d)
		}
	}
	sort.Strings(ahead)

	return &Summary{
		Today:             today,
		Counts:            counts,
		TodayAppointments: visible,
		Upcoming:          fillMissingDays(daily, tomorrow, weekEnd),
		BlockedAhead:      ahead,
		Bookings:          snapshotBookings(s.gatherer),
	}, nil
}
