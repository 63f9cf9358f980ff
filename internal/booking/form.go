package booking

import (
	"errors"
	"fmt"
	"strings"

	"github.com/wolfman30/dentalbook/internal/availability"
	"github.com/wolfman30/dentalbook/internal/dental"
)

var (
	ErrAlreadySubmitted = errors.New("form already submitted")
	ErrSlotBusy         = errors.New("booking: slot is being booked by someone else, please retry")
)

// MaxPatients bounds the roster of a single submission.
const MaxPatients = 10

// Contact is the person submitting the form.
type Contact struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

// PatientEntry is one roster row with its requested appointment.
type PatientEntry struct {
	FirstName  string `json:"first_name"`
	MiddleName string `json:"middle_name,omitempty"`
	LastName   string `json:"last_name"`
	Age        int    `json:"age"`
	Sex        string `json:"sex"`
	Procedure  string `json:"procedure"`
	Date       string `json:"date"`
	Time       string `json:"time"`
	Notes      string `json:"notes,omitempty"`
}

// Form is the whole booking form as the client holds it.
type Form struct {
	Contact  Contact        `json:"contact"`
	Patients []PatientEntry `json:"patients"`
}

// Normalize trims fields and rewrites phone, sex and procedure to their
// canonical forms. Invalid values are left for validation to report.
func (f *Form) Normalize() {
	f.Contact.Name = strings.TrimSpace(f.Contact.Name)
	f.Contact.Email = strings.ToLower(strings.TrimSpace(f.Contact.Email))
	if dental.ValidPhone(f.Contact.Phone) {
		f.Contact.Phone = dental.NormalizePhone(f.Contact.Phone)
	}
	for i := range f.Patients {
		p := &f.Patients[i]
		p.FirstName = strings.TrimSpace(p.FirstName)
		p.MiddleName = strings.TrimSpace(p.MiddleName)
		p.LastName = strings.TrimSpace(p.LastName)
		p.Sex = strings.ToLower(strings.TrimSpace(p.Sex))
		p.Date = strings.TrimSpace(p.Date)
		p.Time = strings.TrimSpace(p.Time)
		p.Notes = strings.TrimSpace(p.Notes)
		if name, ok := dental.CanonicalProcedure(p.Procedure); ok {
			p.Procedure = name
		}
	}
}

// Field error codes. Blocked and taken map to 409 responses.
const (
	CodeRequired  = "required"
	CodeInvalid   = "invalid"
	CodeBlocked   = "blocked"
	CodeTaken     = "taken"
	CodeDuplicate = "duplicate"
	CodePast      = "past"
)

// FieldError is one problem with one form field.
type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationError blocks a forward transition.
type ValidationError struct {
	Step   Step         `json:"step"`
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Field+": "+f.Message)
	}
	return fmt.Sprintf("booking: %s step invalid: %s", e.Step, strings.Join(msgs, "; "))
}

// Conflict reports whether any field failed on slot availability.
func (e *ValidationError) Conflict() bool {
	for _, f := range e.Fields {
		if f.Code == CodeBlocked || f.Code == CodeTaken {
			return true
		}
	}
	return false
}

// ValidateContact checks the contact step.
func ValidateContact(c Contact) []FieldError {
	var errs []FieldError
	if strings.TrimSpace(c.Name) == "" {
		errs = append(errs, FieldError{"contact.name", CodeRequired, "contact name is required"})
	}
	switch {
	case strings.TrimSpace(c.Phone) == "":
		errs = append(errs, FieldError{"contact.phone", CodeRequired, "phone number is required"})
	case !dental.ValidPhone(c.Phone):
		errs = append(errs, FieldError{"contact.phone", CodeInvalid,
			fmt.Sprintf("phone number must be %d digits starting with %s", dental.PhoneDigits, dental.PhonePrefix)})
	}
	switch {
	case strings.TrimSpace(c.Email) == "":
		errs = append(errs, FieldError{"contact.email", CodeRequired, "email is required"})
	case !dental.ValidEmail(c.Email):
		errs = append(errs, FieldError{"contact.email", CodeInvalid,
			"email must use one of: " + strings.Join(dental.EmailDomains, ", ")})
	}
	return errs
}

// ValidateRoster checks the patient roster step.
func ValidateRoster(patients []PatientEntry) []FieldError {
	if len(patients) == 0 {
		return []FieldError{{"patients", CodeRequired, "add at least one patient"}}
	}
	if len(patients) > MaxPatients {
		return []FieldError{{"patients", CodeInvalid, fmt.Sprintf("at most %d patients per request", MaxPatients)}}
	}
	var errs []FieldError
	for i, p := range patients {
		prefix := fmt.Sprintf("patients[%d].", i)
		if strings.TrimSpace(p.FirstName) == "" {
			errs = append(errs, FieldError{prefix + "first_name", CodeRequired, "first name is required"})
		}
		if strings.TrimSpace(p.LastName) == "" {
			errs = append(errs, FieldError{prefix + "last_name", CodeRequired, "last name is required"})
		}
		if p.Age < 0 || p.Age > 120 {
			errs = append(errs, FieldError{prefix + "age", CodeInvalid, "age must be between 0 and 120"})
		}
		if !dental.ValidSex(p.Sex) {
			errs = append(errs, FieldError{prefix + "sex", CodeRequired, "sex is required"})
		}
	}
	return errs
}

// ValidateDetails checks each patient's procedure, date and time against
// the catalog, today's date and the availability snapshot.
func ValidateDetails(patients []PatientEntry, snap availability.Snapshot, today string) []FieldError {
	if len(patients) == 0 {
		return []FieldError{{"patients", CodeRequired, "add at least one patient"}}
	}
	var errs []FieldError
	claimed := make(map[string]int)
	for i, p := range patients {
		prefix := fmt.Sprintf("patients[%d].", i)
		if _, ok := dental.PriceFor(p.Procedure); !ok {
			errs = append(errs, FieldError{prefix + "procedure", CodeInvalid, "choose a procedure from the list"})
		}

		dateOK := true
		if _, err := dental.ParseDate(p.Date); err != nil {
			errs = append(errs, FieldError{prefix + "date", CodeInvalid, "date must be YYYY-MM-DD"})
			dateOK = false
		} else if today != "" && p.Date < today {
			errs = append(errs, FieldError{prefix + "date", CodePast, "date is in the past"})
			dateOK = false
		}
		timeOK := dental.ValidTimeSlot(p.Time)
		if !timeOK {
			errs = append(errs, FieldError{prefix + "time", CodeInvalid, "choose one of the listed time slots"})
		}
		if !dateOK || !timeOK {
			continue
		}

		res := availability.Check(availability.Slot{Date: p.Date, Time: p.Time}, snap)
		switch {
		case res.Blocked:
			errs = append(errs, FieldError{prefix + "date", CodeBlocked,
				fmt.Sprintf("%s is not available for appointments", p.Date)})
			continue
		case res.Taken:
			errs = append(errs, FieldError{prefix + "time", CodeTaken,
				fmt.Sprintf("%s on %s is already booked, please choose another time", p.Time, p.Date)})
			continue
		}

		key := p.Date + "|" + p.Time
		if j, ok := claimed[key]; ok {
			errs = append(errs, FieldError{prefix + "time", CodeDuplicate,
				fmt.Sprintf("same slot as patient %d, choose another time", j+1)})
			continue
		}
		claimed[key] = i
	}
	return errs
}
