package appointment

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository keeps appointments in process. Create performs its
// conflict check and insert under one mutex.
type MemoryRepository struct {
	mu     sync.RWMutex
	appts  map[uuid.UUID]Appointment
	events []EventLog
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{appts: make(map[uuid.UUID]Appointment)}
}

func (r *MemoryRepository) Create(_ context.Context, a Appointment) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if a.Status.Blocking() {
		for _, existing := range r.appts {
			if existing.DoctorID == a.DoctorID && existing.ScheduledAt.Equal(a.ScheduledAt) && existing.Status.Blocking() {
				return nil, ErrSlotAlreadyBooked
			}
		}
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	r.appts[a.ID] = a
	return &a, nil
}

func (r *MemoryRepository) GetByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.appts[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	return &a, nil
}

func (r *MemoryRepository) FindBlocking(_ context.Context, doctorID uuid.UUID, at time.Time) (*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, a := range r.appts {
		if a.DoctorID == doctorID && a.ScheduledAt.Equal(at) && a.Status.Blocking() {
			return &a, nil
		}
	}
	return nil, ErrAppointmentNotFound
}

func (r *MemoryRepository) ListBooked(_ context.Context, doctorID uuid.UUID, from, to time.Time) ([]Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Appointment
	for _, a := range r.appts {
		if a.DoctorID != doctorID || !a.Status.Blocking() {
			continue
		}
		if a.ScheduledAt.Before(from) || !a.ScheduledAt.Before(to) {
			continue
		}
		out = append(out, a)
	}
	sortByTime(out)
	return out, nil
}

func (r *MemoryRepository) List(_ context.Context, f ListFilter) ([]Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Appointment
	for _, a := range r.appts {
		if f.Status != "" && a.Status != f.Status {
			continue
		}
		if f.Phone != "" && a.PatientPhone != f.Phone {
			continue
		}
		if f.DoctorID != uuid.Nil && a.DoctorID != f.DoctorID {
			continue
		}
		if !f.Before.IsZero() && !a.ScheduledAt.Before(f.Before) {
			continue
		}
		out = append(out, a)
	}
	sortByTime(out)

	if f.Offset >= len(out) {
		return nil, nil
	}
	out = out[f.Offset:]
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (r *MemoryRepository) UpdateStatus(_ context.Context, id uuid.UUID, from, to Status, at time.Time) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.appts[id]
	if !ok || a.Status != from {
		return nil, ErrAppointmentNotFound
	}
	a.Status = to
	a.UpdatedAt = at
	if to == StatusConfirmed {
		confirmed := at
		a.ConfirmedAt = &confirmed
	}
	r.appts[id] = a
	return &a, nil
}

func (r *MemoryRepository) InsertEvent(_ context.Context, ev EventLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ev.ID = int64(len(r.events) + 1)
	r.events = append(r.events, ev)
	return nil
}

// Events returns a copy of the recorded event log.
func (r *MemoryRepository) Events() []EventLog {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]EventLog(nil), r.events...)
}

func sortByTime(appts []Appointment) {
	sort.Slice(appts, func(i, j int) bool {
		if !appts[i].ScheduledAt.Equal(appts[j].ScheduledAt) {
			return appts[i].ScheduledAt.Before(appts[j].ScheduledAt)
		}
		return appts[i].CreatedAt.Before(appts[j].CreatedAt)
	})
}
