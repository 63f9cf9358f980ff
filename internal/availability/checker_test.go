package availability

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/dentalbook/internal/dental"
	"github.com/wolfman30/dentalbook/internal/observability/metrics"
	"github.com/wolfman30/dentalbook/internal/store"
)

func TestCheckRejectsSameSlotConflict(t *testing.T) {
	snap := NewSnapshot([]dental.Appointment{
		{ID: "a1", PatientID: "p-other", Date: "2025-06-15", Time: "9:00 AM", Status: dental.StatusScheduled},
	}, nil)

	res := Check(Slot{Date: "2025-06-15", Time: "9:00 AM"}, snap)
	require.False(t, res.OK())
	assert.True(t, res.Taken)
	require.NotNil(t, res.Conflict)
	assert.Equal(t, "a1", res.Conflict.ID)

	err := res.Err()
	require.ErrorIs(t, err, ErrSlotTaken)
	assert.Contains(t, err.Error(), "9:00 AM on 2025-06-15 is already booked")
}

func TestCheckIgnoresCancelledAndExcluded(t *testing.T) {
	snap := NewSnapshot([]dental.Appointment{
		{ID: "c1", Date: "2025-06-15", Time: "9:00 AM", Status: dental.StatusCancelled},
		{ID: "e1", Date: "2025-06-15", Time: "10:00 AM", Status: dental.StatusScheduled},
	}, nil)

	assert.True(t, Check(Slot{Date: "2025-06-15", Time: "9:00 AM"}, snap).OK())
	assert.True(t, Check(Slot{Date: "2025-06-15", Time: "10:00 AM", ExcludeID: "e1"}, snap).OK())
	assert.False(t, Check(Slot{Date: "2025-06-15", Time: "10:00 AM"}, snap).OK())
}

func TestEveryOccupyingStatusConflicts(t *testing.T) {
	for _, status := range dental.Statuses {
		snap := NewSnapshot([]dental.Appointment{{ID: "x", Date: "2025-06-15", Time: "2:00 PM", Status: status}}, nil)
		res := Check(Slot{Date: "2025-06-15", Time: "2:00 PM"}, snap)
		assert.Equal(t, status != dental.StatusCancelled, res.Taken, "status %s", status)
	}
}

func TestCheckReportsBlockedDate(t *testing.T) {
	snap := NewSnapshot(nil, []dental.BlockedDateSet{
		{Dates: []string{"2025-07-01"}},
		{Dates: []string{"2025-12-25"}},
	})

	res := Check(Slot{Date: "2025-12-25", Time: "9:00 AM"}, snap)
	assert.True(t, res.Blocked)
	assert.ErrorIs(t, res.Err(), ErrDateBlocked)
	assert.Equal(t, "blocked", res.Reason())
	assert.Empty(t, snap.FreeTimes("2025-12-25"))
}

func TestTakenAndFreeTimes(t *testing.T) {
	snap := NewSnapshot([]dental.Appointment{
		{Date: "2025-06-15", Time: "2:00 PM", Status: dental.StatusPending},
		{Date: "2025-06-15", Time: "9:00 AM", Status: dental.StatusScheduled},
		{Date: "2025-06-15", Time: "11:00 AM", Status: dental.StatusCancelled},
		{Date: "2025-06-16", Time: "10:00 AM", Status: dental.StatusScheduled},
	}, nil)

	assert.Equal(t, []string{"9:00 AM", "2:00 PM"}, snap.TakenTimes("2025-06-15"))
	assert.Equal(t, []string{"10:00 AM", "11:00 AM", "1:00 PM", "3:00 PM", "4:00 PM"}, snap.FreeTimes("2025-06-15"))
}

type failingSource struct {
	apptErr    error
	blockedErr error
	appts      []dental.Appointment
	sets       []dental.BlockedDateSet
	lastFilter store.AppointmentFilter
}

func (f *failingSource) ListAppointments(ctx context.Context, filter store.AppointmentFilter) ([]dental.Appointment, error) {
	f.lastFilter = filter
	return f.appts, f.apptErr
}

func (f *failingSource) ListBlockedDateSets(ctx context.Context) ([]dental.BlockedDateSet, error) {
	return f.sets, f.blockedErr
}

func TestLoaderFailsOpen(t *testing.T) {
	src := &failingSource{
		apptErr:    errors.New("connection refused"),
		blockedErr: errors.New("connection refused"),
	}
	loader := NewLoader(nil, metrics.NewClinicMetrics(prometheus.NewRegistry()))

	snap := loader.Load(context.Background(), src, "", "")
	assert.True(t, snap.Degraded())
	assert.True(t, Check(Slot{Date: "2025-06-15", Time: "9:00 AM"}, snap).OK())
}

func TestLoaderForDatesUsesWindow(t *testing.T) {
	src := &failingSource{
		sets: []dental.BlockedDateSet{{Dates: []string{"2025-06-20"}}},
	}
	loader := NewLoader(nil, nil)

	snap := loader.LoadForDates(context.Background(), src, "2025-06-20", "bogus", "2025-06-15")
	assert.False(t, snap.Degraded())
	assert.Equal(t, "2025-06-15", src.lastFilter.From)
	assert.Equal(t, "2025-06-20", src.lastFilter.To)
	assert.True(t, snap.IsBlocked("2025-06-20"))
}
