package dental

import (
	"strings"
	"time"
)

// AppointmentStatus is the lifecycle state of an appointment row.
type AppointmentStatus string

const (
	StatusPending     AppointmentStatus = "pending"
	StatusScheduled   AppointmentStatus = "scheduled"
	StatusCompleted   AppointmentStatus = "completed"
	StatusCancelled   AppointmentStatus = "cancelled"
	StatusNoShow      AppointmentStatus = "no-show"
	StatusRescheduled AppointmentStatus = "rescheduled"
)

// Statuses lists every appointment status in display order.
var Statuses = []AppointmentStatus{
	StatusPending,
	StatusScheduled,
	StatusCompleted,
	StatusCancelled,
	StatusNoShow,
	StatusRescheduled,
}

// Valid reports whether s is a known status.
func (s AppointmentStatus) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// OccupiesSlot reports whether an appointment in this status holds its slot.
func (s AppointmentStatus) OccupiesSlot() bool {
	return s != StatusCancelled
}

// PatientStatus marks whether a patient is still seen at the clinic.
type PatientStatus string

const (
	PatientActive   PatientStatus = "active"
	PatientInactive PatientStatus = "inactive"
)

// Valid reports whether s is a known patient status.
func (s PatientStatus) Valid() bool {
	return s == PatientActive || s == PatientInactive
}

// Sex values accepted on patient records.
const (
	SexMale   = "male"
	SexFemale = "female"
	SexOther  = "other"
)

// ValidSex reports whether v is an accepted sex value (case-insensitive).
func ValidSex(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case SexMale, SexFemale, SexOther:
		return true
	}
	return false
}

// Patient is a person seen (or requesting to be seen) by the clinic.
type Patient struct {
	ID          string        `json:"id"`
	FirstName   string        `json:"first_name"`
	MiddleName  string        `json:"middle_name,omitempty"`
	LastName    string        `json:"last_name"`
	ContactName string        `json:"contact_name"`
	Email       string        `json:"email"`
	Phone       string        `json:"phone"`
	Age         int           `json:"age"`
	Sex         string        `json:"sex"`
	Status      PatientStatus `json:"status"`
	LastVisit   string        `json:"last_visit,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// FullName joins the name parts that are present.
func (p Patient) FullName() string {
	parts := make([]string, 0, 3)
	for _, s := range []string{p.FirstName, p.MiddleName, p.LastName} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

// Appointment is a single booked (or requested) visit. Rows created from a
// recurring request share a SeriesID but are otherwise independent.
type Appointment struct {
	ID          string            `json:"id"`
	PatientID   string            `json:"patient_id"`
	PatientName string            `json:"patient_name"`
	Phone       string            `json:"phone"`
	Procedure   string            `json:"procedure"`
	Price       int64             `json:"price"`
	Date        string            `json:"date"`
	Time        string            `json:"time"`
	Status      AppointmentStatus `json:"status"`
	Notes       string            `json:"notes,omitempty"`
	Occurrences int               `json:"occurrences"`
	SeriesID    string            `json:"series_id,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// Multiplier is the occurrence multiplier used by revenue reporting.
func (a Appointment) Multiplier() int64 {
	if a.Occurrences < 1 {
		return 1
	}
	return int64(a.Occurrences)
}

// AppendNote adds a line to the appointment notes.
func (a *Appointment) AppendNote(note string) {
	note = strings.TrimSpace(note)
	if note == "" {
		return
	}
	if strings.TrimSpace(a.Notes) == "" {
		a.Notes = note
		return
	}
	a.Notes = a.Notes + "\n" + note
}

// BlockedDateSet is one batch of blocked days.
type BlockedDateSet struct {
	ID        string    `json:"id"`
	Dates     []string  `json:"dates"`
	Reason    string    `json:"reason,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// BlockedUnion returns the set of all blocked dates across batches.
func BlockedUnion(sets []BlockedDateSet) map[string]struct{} {
	union := make(map[string]struct{})
	for _, set := range sets {
		for _, d := range set.Dates {
			union[d] = struct{}{}
		}
	}
	return union
}

// EmergencyReschedule is the audit record written when staff block a range
// and mark the affected appointments as rescheduled.
type EmergencyReschedule struct {
	ID                     string    `json:"id"`
	StartDate              string    `json:"start_date"`
	EndDate                string    `json:"end_date"`
	AffectedAppointmentIDs []string  `json:"affected_appointment_ids"`
	Message                string    `json:"message"`
	CreatedBy              string    `json:"created_by,omitempty"`
	CreatedAt              time.Time `json:"created_at"`
}
