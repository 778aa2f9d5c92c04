package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrSlotAlreadyBooked   = errors.New("slot already booked")
)

// Repository contains all storage interactions needed by the service.
type Repository interface {
	// Create inserts a new appointment. Implementations must fail with
	// ErrSlotAlreadyBooked when a blocking appointment already holds the
	// same doctor and start time, atomically with the insert.
	Create(ctx context.Context, a Appointment) (*Appointment, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)

	// For conflict checks and availability
	FindBlocking(ctx context.Context, doctorID uuid.UUID, at time.Time) (*Appointment, error)
	ListBooked(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]Appointment, error)

	List(ctx context.Context, f ListFilter) ([]Appointment, error)

	// UpdateStatus moves an appointment from one status to another. It
	// returns ErrAppointmentNotFound if no row is in the from status.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status, at time.Time) (*Appointment, error)

	InsertEvent(ctx context.Context, ev EventLog) error
}
