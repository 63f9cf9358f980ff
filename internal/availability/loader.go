package availability

import (
	"context"

	"github.com/wolfman30/dentalbook/internal/dental"
	"github.com/wolfman30/dentalbook/internal/observability/metrics"
	"github.com/wolfman30/dentalbook/internal/store"
	"github.com/wolfman30/dentalbook/pkg/logging"
)

// Source is the read side the loader needs.
type Source interface {
	ListAppointments(ctx context.Context, filter store.AppointmentFilter) ([]dental.Appointment, error)
	ListBlockedDateSets(ctx context.Context) ([]dental.BlockedDateSet, error)
}

// Loader reads snapshots from the store. A collection that fails to load is
// logged and left empty so the check fails open.
type Loader struct {
	logger  *logging.Logger
	metrics *metrics.ClinicMetrics
}

func NewLoader(logger *logging.Logger, m *metrics.ClinicMetrics) *Loader {
	if logger == nil {
		logger = logging.Default()
	}
	return &Loader{logger: logger, metrics: m}
}

// Load reads the appointments between from and to (inclusive, empty means
// open) together with every blocked date batch.
func (l *Loader) Load(ctx context.Context, src Source, from, to string) Snapshot {
	var snap Snapshot

	appts, err := src.ListAppointments(ctx, store.AppointmentFilter{From: from, To: to})
	if err != nil {
		l.logger.Warn("availability: appointments unavailable, checking without them", "error", err)
		l.metrics.ObserveFailOpen("appointments")
	} else {
		snap.Appointments = appts
		snap.AppointmentsLoaded = true
	}

	sets, err := src.ListBlockedDateSets(ctx)
	if err != nil {
		l.logger.Warn("availability: blocked dates unavailable, checking without them", "error", err)
		l.metrics.ObserveFailOpen("blocked_dates")
		snap.Blocked = map[string]struct{}{}
	} else {
		snap.Blocked = dental.BlockedUnion(sets)
		snap.BlockedLoaded = true
	}
	return snap
}

// LoadForDates loads the window spanning dates. Unparseable dates are
// ignored when computing the window.
func (l *Loader) LoadForDates(ctx context.Context, src Source, dates ...string) Snapshot {
	from, to := "", ""
	for _, d := range dates {
		if _, err := dental.ParseDate(d); err != nil {
			continue
		}
		if from == "" || d < from {
			from = d
		}
		if to == "" || d > to {
			to = d
		}
	}
	return l.Load(ctx, src, from, to)
}
