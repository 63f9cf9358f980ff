// Package store is the data-access layer over the clinic's four collections:
// patients, appointments, blocked date batches and emergency reschedules.
package store

import (
	"context"
	"errors"
	"sort"

	"github.com/wolfman30/dentalbook/internal/dental"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("store: record not found")
)

// AppointmentFilter narrows ListAppointments. Zero values match everything.
type AppointmentFilter struct {
	Statuses  []dental.AppointmentStatus
	PatientID string
	From      string // inclusive YYYY-MM-DD
	To        string // inclusive YYYY-MM-DD
}

// Matches applies the filter to a single appointment.
func (f AppointmentFilter) Matches(a dental.Appointment) bool {
	if f.PatientID != "" && a.PatientID != f.PatientID {
		return false
	}
	if !dental.InRange(a.Date, f.From, f.To) {
		return false
	}
	if len(f.Statuses) == 0 {
		return true
	}
	for _, s := range f.Statuses {
		if a.Status == s {
			return true
		}
	}
	return false
}

// PatientStore covers the patients collection.
type PatientStore interface {
	ListPatients(ctx context.Context) ([]dental.Patient, error)
	GetPatient(ctx context.Context, id string) (*dental.Patient, error)
	CreatePatient(ctx context.Context, p *dental.Patient) error
	UpdatePatient(ctx context.Context, p *dental.Patient) error
	DeletePatient(ctx context.Context, id string) error
}

// AppointmentStore covers the appointments collection.
type AppointmentStore interface {
	ListAppointments(ctx context.Context, filter AppointmentFilter) ([]dental.Appointment, error)
	GetAppointment(ctx context.Context, id string) (*dental.Appointment, error)
	CreateAppointment(ctx context.Context, a *dental.Appointment) error
	UpdateAppointment(ctx context.Context, a *dental.Appointment) error
	DeleteAppointment(ctx context.Context, id string) error
}

// BlockedDateStore covers the append-only blocked date batches.
type BlockedDateStore interface {
	ListBlockedDateSets(ctx context.Context) ([]dental.BlockedDateSet, error)
	AddBlockedDateSet(ctx context.Context, set *dental.BlockedDateSet) error
}

// RescheduleStore covers the emergency reschedule audit log.
type RescheduleStore interface {
	ListEmergencyReschedules(ctx context.Context) ([]dental.EmergencyReschedule, error)
	AddEmergencyReschedule(ctx context.Context, r *dental.EmergencyReschedule) error
}

// Store is the full data-access surface. WithinTx runs fn against a
// transactional view; if fn returns an error nothing it wrote is kept.
type Store interface {
	PatientStore
	AppointmentStore
	BlockedDateStore
	RescheduleStore
	WithinTx(ctx context.Context, fn func(tx Store) error) error
}

// SortAppointments orders by date, then slot position, then creation time.
func SortAppointments(appts []dental.Appointment) {
	sort.SliceStable(appts, func(i, j int) bool {
		a, b := appts[i], appts[j]
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		ai, bi := dental.SlotIndex(a.Time), dental.SlotIndex(b.Time)
		if ai != bi {
			return ai < bi
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
}
