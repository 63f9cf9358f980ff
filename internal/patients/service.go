// Package patients is the staff patient directory.
package patients

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/wolfman30/dentalbook/internal/dental"
	"github.com/wolfman30/dentalbook/internal/store"
	"github.com/wolfman30/dentalbook/pkg/logging"
)

var (
	ErrInvalidInput = errors.New("patients: invalid input")
	ErrNotFound     = errors.New("patients: patient not found")
)

// Input is the editable part of a patient record.
type Input struct {
	FirstName   string               `json:"first_name"`
	MiddleName  string               `json:"middle_name"`
	LastName    string               `json:"last_name"`
	ContactName string               `json:"contact_name"`
	Email       string               `json:"email"`
	Phone       string               `json:"phone"`
	Age         int                  `json:"age"`
	Sex         string               `json:"sex"`
	Status      dental.PatientStatus `json:"status"`
}

func (in *Input) normalize() {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.MiddleName = strings.TrimSpace(in.MiddleName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.ContactName = strings.TrimSpace(in.ContactName)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Sex = strings.ToLower(strings.TrimSpace(in.Sex))
	if in.Status == "" {
		in.Status = dental.PatientActive
	}
	if dental.ValidPhone(in.Phone) {
		in.Phone = dental.NormalizePhone(in.Phone)
	}
}

func (in Input) validate() error {
	var problems []string
	if in.FirstName == "" {
		problems = append(problems, "first name is required")
	}
	if in.LastName == "" {
		problems = append(problems, "last name is required")
	}
	if !dental.ValidPhone(in.Phone) {
		problems = append(problems, fmt.Sprintf("phone number must be %d digits starting with %s", dental.PhoneDigits, dental.PhonePrefix))
	}
	if in.Email != "" && !dental.ValidEmail(in.Email) {
		problems = append(problems, "email must use one of: "+strings.Join(dental.EmailDomains, ", "))
	}
	if in.Age < 0 || in.Age > 120 {
		problems = append(problems, "age must be between 0 and 120")
	}
	if !dental.ValidSex(in.Sex) {
		problems = append(problems, "sex must be male, female or other")
	}
	if !in.Status.Valid() {
		problems = append(problems, "status must be active or inactive")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidInput, strings.Join(problems, "; "))
	}
	return nil
}

func (in Input) apply(p *dental.Patient) {
	p.FirstName = in.FirstName
	p.MiddleName = in.MiddleName
	p.LastName = in.LastName
	p.ContactName = in.ContactName
	if p.ContactName == "" {
		p.ContactName = strings.TrimSpace(in.FirstName + " " + in.LastName)
	}
	p.Email = in.Email
	p.Phone = in.Phone
	p.Age = in.Age
	p.Sex = in.Sex
	p.Status = in.Status
}

// Filter narrows List. Query matches name, email or phone.
type Filter struct {
	Status dental.PatientStatus
	Query  string
}

func (f Filter) matches(p dental.Patient) bool {
	if f.Status != "" && p.Status != f.Status {
		return false
	}
	q := strings.ToLower(strings.TrimSpace(f.Query))
	if q == "" {
		return true
	}
	for _, field := range []string{p.FullName(), p.ContactName, p.Email, p.Phone} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	if digits, ok := phoneQuery(q); ok && strings.Contains(dental.NormalizePhone(p.Phone), digits) {
		return true
	}
	return false
}

// phoneQuery reports the digits of q when q looks like a phone fragment:
// at least three digits and nothing but digits and separators.
func phoneQuery(q string) (string, bool) {
	for _, r := range q {
		if !unicode.IsDigit(r) && !strings.ContainsRune(" +-()./", r) {
			return "", false
		}
	}
	digits := dental.NormalizePhone(q)
	return digits, len(digits) >= 3
}

// Service manages patient records.
type Service struct {
	store  store.Store
	logger *logging.Logger
}

func NewService(st store.Store, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{store: st, logger: logger}
}

func (s *Service) List(ctx context.Context, f Filter) ([]dental.Patient, error) {
	all, err := s.store.ListPatients(ctx)
	if err != nil {
		return nil, fmt.Errorf("patients: list: %w", err)
	}
	out := make([]dental.Patient, 0, len(all))
	for _, p := range all {
		if f.matches(p) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, id string) (*dental.Patient, error) {
	p, err := s.store.GetPatient(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("patients: get: %w", err)
	}
	return p, nil
}

func (s *Service) Create(ctx context.Context, in Input) (*dental.Patient, error) {
	in.normalize()
	if err := in.validate(); err != nil {
		return nil, err
	}
	var p dental.Patient
	in.apply(&p)
	if err := s.store.CreatePatient(ctx, &p); err != nil {
		return nil, fmt.Errorf("patients: create: %w", err)
	}
	s.logger.Info("patient created", "patient_id", p.ID)
	return &p, nil
}

func (s *Service) Update(ctx context.Context, id string, in Input) (*dental.Patient, error) {
	in.normalize()
	if err := in.validate(); err != nil {
		return nil, err
	}
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	in.apply(p)
	if err := s.store.UpdatePatient(ctx, p); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("patients: update: %w", err)
	}
	return p, nil
}

// Delete removes the patient record. Appointments that reference it are kept.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.DeletePatient(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("patients: delete: %w", err)
	}
	s.logger.Info("patient deleted", "patient_id", id)
	return nil
}

// History lists a patient's appointments, oldest first.
func (s *Service) History(ctx context.Context, id string) ([]dental.Appointment, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	appts, err := s.store.ListAppointments(ctx, store.AppointmentFilter{PatientID: id})
	if err != nil {
		return nil, fmt.Errorf("patients: history: %w", err)
	}
	return appts, nil
}
