// Package booking implements the patient-facing booking workflow: a three
// step form (contact, roster, details) that ends in one patient and one
// pending appointment per roster entry.
package booking

import (
	"fmt"
	"strings"

	"github.com/wolfman30/dentalbook/internal/availability"
)

// Step is a state of the booking form.
type Step string

const (
	StepContactInfo        Step = "contact"
	StepPatientRoster      Step = "roster"
	StepAppointmentDetails Step = "details"
	StepSubmitted          Step = "submitted"
)

// Steps lists the states in order.
var Steps = []Step{StepContactInfo, StepPatientRoster, StepAppointmentDetails, StepSubmitted}

// ParseStep accepts a step name from a URL.
func ParseStep(s string) (Step, bool) {
	for _, st := range Steps {
		if string(st) == strings.ToLower(strings.TrimSpace(s)) {
			return st, true
		}
	}
	return "", false
}

func (s Step) index() int {
	for i, st := range Steps {
		if st == s {
			return i
		}
	}
	return -1
}

// Back returns the previous step. Going back is always allowed; the first
// step and the terminal step stay where they are.
func Back(s Step) Step {
	i := s.index()
	if i <= 0 || s == StepSubmitted {
		return s
	}
	return Steps[i-1]
}

// Env is everything outside the form a transition depends on.
type Env struct {
	Snapshot availability.Snapshot
	Today    string
}

// Advance validates the form for step and returns the next step. It has no
// side effects; the details step checks slots against env.Snapshot.
func Advance(step Step, form Form, env Env) (Step, error) {
	var fields []FieldError
	switch step {
	case StepContactInfo:
		fields = ValidateContact(form.Contact)
	case StepPatientRoster:
		fields = ValidateRoster(form.Patients)
	case StepAppointmentDetails:
		fields = ValidateDetails(form.Patients, env.Snapshot, env.Today)
	case StepSubmitted:
		return step, fmt.Errorf("booking: %w", ErrAlreadySubmitted)
	default:
		return step, fmt.Errorf("booking: unknown step %q", step)
	}
	if len(fields) > 0 {
		return step, &ValidationError{Step: step, Fields: fields}
	}
	return Steps[step.index()+1], nil
}
