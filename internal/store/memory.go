package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/dentalbook/internal/dental"
)

// MemoryStore keeps every collection in process memory. It backs local
// development (no DATABASE_URL) and tests.
type MemoryStore struct {
	*memData
	// txMu serializes transactions with every write made outside one.
	txMu sync.Mutex
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{memData: newMemData()}
}

// WithinTx runs fn against a private copy of the data and swaps the copy in
// when fn succeeds. Reads outside the transaction see the last committed
// state; writes outside it wait until it finishes.
func (s *MemoryStore) WithinTx(ctx context.Context, fn func(tx Store) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	work := &memData{now: s.now}
	work.replace(s.memData.clone())
	if err := fn(memTx{work}); err != nil {
		return err
	}
	s.memData.replace(work.clone())
	return nil
}

func (s *MemoryStore) CreatePatient(ctx context.Context, p *dental.Patient) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	return s.memData.CreatePatient(ctx, p)
}

func (s *MemoryStore) UpdatePatient(ctx context.Context, p *dental.Patient) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	return s.memData.UpdatePatient(ctx, p)
}

func (s *MemoryStore) DeletePatient(ctx context.Context, id string) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	return s.memData.DeletePatient(ctx, id)
}

func (s *MemoryStore) CreateAppointment(ctx context.Context, a *dental.Appointment) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	return s.memData.CreateAppointment(ctx, a)
}

func (s *MemoryStore) UpdateAppointment(ctx context.Context, a *dental.Appointment) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	return s.memData.UpdateAppointment(ctx, a)
}

func (s *MemoryStore) DeleteAppointment(ctx context.Context, id string) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	return s.memData.DeleteAppointment(ctx, id)
}

func (s *MemoryStore) AddBlockedDateSet(ctx context.Context, set *dental.BlockedDateSet) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	return s.memData.AddBlockedDateSet(ctx, set)
}

func (s *MemoryStore) AddEmergencyReschedule(ctx context.Context, r *dental.EmergencyReschedule) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	return s.memData.AddEmergencyReschedule(ctx, r)
}

type memTx struct {
	*memData
}

func (t memTx) WithinTx(ctx context.Context, fn func(tx Store) error) error {
	return fn(t)
}

type memData struct {
	mu          sync.RWMutex
	patients    map[string]dental.Patient
	appts       map[string]dental.Appointment
	blocked     []dental.BlockedDateSet
	reschedules []dental.EmergencyReschedule
	now         func() time.Time
}

func newMemData() *memData {
	return &memData{
		patients: make(map[string]dental.Patient),
		appts:    make(map[string]dental.Appointment),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

type memSnapshot struct {
	patients    map[string]dental.Patient
	appts       map[string]dental.Appointment
	blocked     []dental.BlockedDateSet
	reschedules []dental.EmergencyReschedule
}

func (m *memData) clone() memSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := memSnapshot{
		patients:    make(map[string]dental.Patient, len(m.patients)),
		appts:       make(map[string]dental.Appointment, len(m.appts)),
		blocked:     append([]dental.BlockedDateSet(nil), m.blocked...),
		reschedules: append([]dental.EmergencyReschedule(nil), m.reschedules...),
	}
	for k, v := range m.patients {
		snap.patients[k] = v
	}
	for k, v := range m.appts {
		snap.appts[k] = v
	}
	return snap
}

func (m *memData) replace(snap memSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.patients = snap.patients
	m.appts = snap.appts
	m.blocked = snap.blocked
	m.reschedules = snap.reschedules
}

func (m *memData) ListPatients(ctx context.Context) ([]dental.Patient, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]dental.Patient, 0, len(m.patients))
	for _, p := range m.patients {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LastName != out[j].LastName {
			return out[i].LastName < out[j].LastName
		}
		return out[i].FirstName < out[j].FirstName
	})
	return out, nil
}

func (m *memData) GetPatient(ctx context.Context, id string) (*dental.Patient, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.patients[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (m *memData) CreatePatient(ctx context.Context, p *dental.Patient) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := m.now()
	p.CreatedAt, p.UpdatedAt = now, now
	m.patients[p.ID] = *p
	return nil
}

func (m *memData) UpdatePatient(ctx context.Context, p *dental.Patient) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.patients[p.ID]
	if !ok {
		return ErrNotFound
	}
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = m.now()
	m.patients[p.ID] = *p
	return nil
}

func (m *memData) DeletePatient(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.patients[id]; !ok {
		return ErrNotFound
	}
	delete(m.patients, id)
	return nil
}

func (m *memData) ListAppointments(ctx context.Context, filter AppointmentFilter) ([]dental.Appointment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]dental.Appointment, 0, len(m.appts))
	for _, a := range m.appts {
		if filter.Matches(a) {
			out = append(out, a)
		}
	}
	SortAppointments(out)
	return out, nil
}

func (m *memData) GetAppointment(ctx context.Context, id string) (*dental.Appointment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.appts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &a, nil
}

func (m *memData) CreateAppointment(ctx context.Context, a *dental.Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	now := m.now()
	a.CreatedAt, a.UpdatedAt = now, now
	m.appts[a.ID] = *a
	return nil
}

func (m *memData) UpdateAppointment(ctx context.Context, a *dental.Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.appts[a.ID]
	if !ok {
		return ErrNotFound
	}
	a.CreatedAt = existing.CreatedAt
	a.UpdatedAt = m.now()
	m.appts[a.ID] = *a
	return nil
}

func (m *memData) DeleteAppointment(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.appts[id]; !ok {
		return ErrNotFound
	}
	delete(m.appts, id)
	return nil
}

func (m *memData) ListBlockedDateSets(ctx context.Context) ([]dental.BlockedDateSet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]dental.BlockedDateSet(nil), m.blocked...), nil
}

func (m *memData) AddBlockedDateSet(ctx context.Context, set *dental.BlockedDateSet) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if set.ID == "" {
		set.ID = uuid.NewString()
	}
	set.CreatedAt = m.now()
	set.Dates = append([]string(nil), set.Dates...)
	m.blocked = append(m.blocked, *set)
	return nil
}

func (m *memData) ListEmergencyReschedules(ctx context.Context) ([]dental.EmergencyReschedule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := append([]dental.EmergencyReschedule(nil), m.reschedules...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memData) AddEmergencyReschedule(ctx context.Context, r *dental.EmergencyReschedule) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	r.CreatedAt = m.now()
	r.AffectedAppointmentIDs = append([]string(nil), r.AffectedAppointmentIDs...)
	m.reschedules = append(m.reschedules, *r)
	return nil
}
