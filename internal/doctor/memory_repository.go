package doctor

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type MemoryRepository struct {
	mu      sync.RWMutex
	order   []uuid.UUID
	doctors map[uuid.UUID]Doctor
}

func NewMemoryRepository(doctors []Doctor) *MemoryRepository {
	r := &MemoryRepository{doctors: make(map[uuid.UUID]Doctor, len(doctors))}
	for _, d := range doctors {
		_ = r.Upsert(context.Background(), d)
	}
	return r
}

func (r *MemoryRepository) List(_ context.Context, activeOnly bool) ([]Doctor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Doctor, 0, len(r.order))
	for _, id := range r.order {
		d := r.doctors[id]
		if activeOnly && !d.Active {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

func (r *MemoryRepository) GetByID(_ context.Context, id uuid.UUID) (*Doctor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.doctors[id]
	if !ok {
		return nil, ErrDoctorNotFound
	}
	return &d, nil
}

func (r *MemoryRepository) FindByName(ctx context.Context, name string) (*Doctor, error) {
	needle := normalizeName(name)
	if needle == "" {
		return nil, ErrDoctorNotFound
	}
	all, _ := r.List(ctx, true)
	for _, d := range all {
		if strings.Contains(strings.ToLower(d.Name), needle) {
			return &d, nil
		}
	}
	return nil, ErrDoctorNotFound
}

func (r *MemoryRepository) ListBySpecialization(ctx context.Context, s Specialization) ([]Doctor, error) {
	all, _ := r.List(ctx, true)
	var out []Doctor
	for _, d := range all {
		if d.Specialization == s {
			out = append(out, d)
		}
	}
	return out, nil
}

func (r *MemoryRepository) Search(ctx context.Context, query string) ([]Doctor, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	all, _ := r.List(ctx, true)
	if q == "" {
		return all, nil
	}
	var out []Doctor
	for _, d := range all {
		if strings.Contains(strings.ToLower(d.Name), q) ||
			strings.Contains(strings.ToLower(string(d.Specialization)), q) {
			out = append(out, d)
		}
	}
	return out, nil
}

func (r *MemoryRepository) Upsert(_ context.Context, d Doctor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if d.ID == uuid.Nil {
		d.ID = IDFor(d.Name)
	}
	now := time.Now()
	if existing, ok := r.doctors[d.ID]; ok {
		d.CreatedAt = existing.CreatedAt
	} else {
		r.order = append(r.order, d.ID)
		if d.CreatedAt.IsZero() {
			d.CreatedAt = now
		}
	}
	d.UpdatedAt = now
	r.doctors[d.ID] = d
	return nil
}

// normalizeName strips the honorific patients tend to type.
func normalizeName(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	for _, prefix := range []string{"dr. ", "dr.", "dr ", "doctor "} {
		n = strings.TrimPrefix(n, prefix)
	}
	return strings.TrimSpace(n)
}
