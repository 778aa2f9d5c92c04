package doctor

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrDoctorNotFound = errors.New("doctor not found")

// Repository is the doctor registry. List order is stable: it defines the
// "first doctor" fallback used when nothing else matches.
type Repository interface {
	List(ctx context.Context, activeOnly bool) ([]Doctor, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error)
	// FindByName is a case-insensitive partial match over active doctors.
	FindByName(ctx context.Context, name string) (*Doctor, error)
	ListBySpecialization(ctx context.Context, s Specialization) ([]Doctor, error)
	Search(ctx context.Context, query string) ([]Doctor, error)
	Upsert(ctx context.Context, d Doctor) error
}
