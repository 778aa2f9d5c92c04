package appointment

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusScheduled Status = "scheduled"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusScheduled, StatusConfirmed, StatusCancelled, StatusCompleted:
		return true
	default:
		return false
	}
}

// Blocking reports whether an appointment in this status occupies its slot.
func (s Status) Blocking() bool {
	return s == StatusScheduled || s == StatusConfirmed
}

var transitions = map[Status][]Status{
	StatusPending:   {StatusScheduled, StatusConfirmed, StatusCancelled},
	StatusScheduled: {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCancelled, StatusCompleted},
}

func canTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

type Appointment struct {
	ID              uuid.UUID  `json:"id"`
	PatientName     string     `json:"patient_name"`
	PatientPhone    string     `json:"patient_phone"`
	PatientEmail    *string    `json:"patient_email,omitempty"`
	ScheduledAt     time.Time  `json:"scheduled_at"` // clinic wall clock
	DurationMinutes int        `json:"duration_minutes"`
	DoctorID        uuid.UUID  `json:"doctor_id"`
	DoctorName      string     `json:"doctor_name"`
	Reason          string     `json:"reason"`
	Status          Status     `json:"status"`
	ConversationID  *string    `json:"conversation_id,omitempty"`
	Notes           *string    `json:"notes,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	ConfirmedAt     *time.Time `json:"confirmed_at,omitempty"`
}

func (a Appointment) Date() string  { return a.ScheduledAt.Format(DateLayout) }
func (a Appointment) Clock() string { return a.ScheduledAt.Format(ClockLayout) }

func (a Appointment) EndsAt() time.Time {
	return a.ScheduledAt.Add(time.Duration(a.DurationMinutes) * time.Minute)
}

// NewAppointment is the input to Service.Create.
type NewAppointment struct {
	PatientName     string
	PatientPhone    string
	PatientEmail    string
	ScheduledAt     time.Time
	DurationMinutes int
	DoctorID        uuid.UUID
	Reason          string
	ConversationID  string
	Notes           string
}

type ListFilter struct {
	Status   Status
	Phone    string
	DoctorID uuid.UUID
	Before   time.Time // scheduled_at < Before when set
	Limit    int
	Offset   int
}

type EventLog struct {
	ID            int64
	EventType     string
	AppointmentID *uuid.UUID
	Payload       []byte
	CreatedAt     time.Time
}

const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"
)
