package appointment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hackgods/conversational-appointment-booking/internal/doctor"
	redisclient "github.com/hackgods/conversational-appointment-booking/internal/redis"
)

const (
	EventAppointmentCreated   = "APPOINTMENT_CREATED"
	EventAppointmentConfirmed = "APPOINTMENT_CONFIRMED"
	EventAppointmentCancelled = "APPOINTMENT_CANCELLED"
	EventAppointmentCompleted = "APPOINTMENT_COMPLETED"
)

var (
	ErrSlotBeingBooked         = errors.New("slot is currently being booked, please retry")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
	ErrInvalidStatus           = errors.New("invalid status")
	ErrOutsideAvailability     = errors.New("doctor is not available at that time")
	ErrMissingPatientDetails   = errors.New("patient name and phone are required")
	ErrSlotInPast              = errors.New("slot has already started")
)

// Settings are the clinic's booking rules.
type Settings struct {
	Hours           ClinicHours
	Location        *time.Location
	SearchDays      int
	DefaultDuration int // minutes, used when the doctor has none
}

type Service struct {
	repo     Repository
	doctors  doctor.Repository
	locker   redisclient.Locker
	settings Settings
	metrics  *Metrics
	logger   zerolog.Logger
	now      func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }
func WithMetrics(m *Metrics) Option         { return func(s *Service) { s.metrics = m } }

func NewService(repo Repository, doctors doctor.Repository, locker redisclient.Locker, settings Settings, logger zerolog.Logger, opts ...Option) *Service {
	if settings.Location == nil {
		settings.Location = time.UTC
	}
	if settings.SearchDays <= 0 {
		settings.SearchDays = 14
	}
	if settings.DefaultDuration <= 0 {
		settings.DefaultDuration = 30
	}
	s := &Service{
		repo:     repo,
		doctors:  doctors,
		locker:   locker,
		settings: settings,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Location() *time.Location { return s.settings.Location }

// Create books a slot for a patient with status scheduled. A per-slot lock
// serializes concurrent attempts and the repository re-checks for a
// blocking appointment inside it, so two writers cannot both succeed.
func (s *Service) Create(ctx context.Context, in NewAppointment) (*Appointment, error) {
	in.PatientName = strings.TrimSpace(in.PatientName)
	in.PatientPhone = strings.TrimSpace(in.PatientPhone)
	if in.PatientName == "" || in.PatientPhone == "" {
		return nil, ErrMissingPatientDetails
	}

	doc, err := s.doctors.GetByID(ctx, in.DoctorID)
	if err != nil {
		if errors.Is(err, doctor.ErrDoctorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load doctor: %w", err)
	}

	at := in.ScheduledAt.In(s.settings.Location)
	if !s.withinAvailability(*doc, at) {
		return nil, ErrOutsideAvailability
	}
	if at.Before(s.now()) {
		return nil, ErrSlotInPast
	}

	duration := in.DurationMinutes
	if duration <= 0 {
		duration = doc.ConsultationMinutes
	}
	if duration <= 0 {
		duration = s.settings.DefaultDuration
	}

	now := s.now()
	appt := Appointment{
		ID:              uuid.New(),
		PatientName:     in.PatientName,
		PatientPhone:    in.PatientPhone,
		PatientEmail:    optional(in.PatientEmail),
		ScheduledAt:     at,
		DurationMinutes: duration,
		DoctorID:        doc.ID,
		DoctorName:      doc.DisplayName(),
		Reason:          strings.TrimSpace(in.Reason),
		Status:          StatusScheduled,
		ConversationID:  optional(in.ConversationID),
		Notes:           optional(in.Notes),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	var created *Appointment
	err = s.locker.WithLock(ctx, redisclient.SlotKey(doc.ID, at), func(lockCtx context.Context) error {
		existing, err := s.repo.FindBlocking(lockCtx, doc.ID, at)
		if err != nil && !errors.Is(err, ErrAppointmentNotFound) {
			return fmt.Errorf("check existing appointment: %w", err)
		}
		if existing != nil {
			return ErrSlotAlreadyBooked
		}

		a, err := s.repo.Create(lockCtx, appt)
		if err != nil {
			return err
		}
		created = a

		s.logEvent(lockCtx, a.ID, EventAppointmentCreated, map[string]any{
			"doctor_id":    doc.ID.String(),
			"scheduled_at": at.Format(DateLayout + " " + ClockLayout),
		})
		return nil
	})

	if err != nil {
		switch {
		case errors.Is(err, redisclient.ErrLockNotAcquired):
			s.metrics.observeBooking("contended")
			return nil, ErrSlotBeingBooked
		case errors.Is(err, ErrSlotAlreadyBooked):
			s.metrics.observeBooking("conflict")
			return nil, err
		default:
			s.metrics.observeBooking("error")
			return nil, fmt.Errorf("create appointment: %w", err)
		}
	}

	s.metrics.observeBooking("created")
	s.logger.Info().
		Str("appointment_id", created.ID.String()).
		Str("doctor_id", doc.ID.String()).
		Time("scheduled_at", at).
		Msg("appointment created")
	return created, nil
}

func (s *Service) withinAvailability(doc doctor.Doctor, at time.Time) bool {
	if !doc.WorksOn(at.Weekday()) {
		return false
	}
	if at.Minute() != 0 || at.Second() != 0 {
		return false
	}
	return at.Hour() >= s.settings.Hours.Open && at.Hour() < s.settings.Hours.Close
}

// UpdateStatus applies an allowed status transition. Setting the current
// status again is a no-op.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, to Status) (*Appointment, error) {
	if !to.Valid() {
		return nil, ErrInvalidStatus
	}

	appt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load appointment: %w", err)
	}
	if appt.Status == to {
		return appt, nil
	}
	if !canTransition(appt.Status, to) {
		return nil, ErrInvalidStatusTransition
	}

	updated, err := s.repo.UpdateStatus(ctx, id, appt.Status, to, s.now())
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			// status moved underneath us
			return nil, ErrInvalidStatusTransition
		}
		return nil, fmt.Errorf("update appointment status: %w", err)
	}

	if ev := statusEvent(to); ev != "" {
		s.logEvent(ctx, id, ev, map[string]any{"from": string(appt.Status)})
	}
	return updated, nil
}

func statusEvent(to Status) string {
	switch to {
	case StatusConfirmed:
		return EventAppointmentConfirmed
	case StatusCancelled:
		return EventAppointmentCancelled
	case StatusCompleted:
		return EventAppointmentCompleted
	default:
		return ""
	}
}

func (s *Service) Confirm(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.UpdateStatus(ctx, id, StatusConfirmed)
}

func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.UpdateStatus(ctx, id, StatusCancelled)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	return appt, nil
}

func (s *Service) List(ctx context.Context, f ListFilter) ([]Appointment, error) {
	if f.Limit <= 0 {
		f.Limit = 20
	}
	if f.Limit > 100 {
		f.Limit = 100
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	if f.Status != "" && !f.Status.Valid() {
		return nil, ErrInvalidStatus
	}

	appts, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return appts, nil
}

// SlotQuery asks for a doctor's open slots. A zero From means today; Days
// and Limit fall back to the clinic search window and no cap.
type SlotQuery struct {
	DoctorID  uuid.UUID
	From      time.Time
	Days      int
	TimeOfDay TimeOfDay
	Limit     int
}

// FindSlots resolves open slots for one doctor, excluding booked ones and
// anything already in the past.
func (s *Service) FindSlots(ctx context.Context, q SlotQuery) ([]SlotCandidate, error) {
	doc, err := s.doctors.GetByID(ctx, q.DoctorID)
	if err != nil {
		return nil, fmt.Errorf("load doctor: %w", err)
	}
	return s.FindSlotsFor(ctx, *doc, q)
}

func (s *Service) FindSlotsFor(ctx context.Context, doc doctor.Doctor, q SlotQuery) ([]SlotCandidate, error) {
	loc := s.settings.Location
	now := s.now().In(loc)

	from := now
	if !q.From.IsZero() {
		y, m, d := q.From.Date()
		from = time.Date(y, m, d, 0, 0, 0, 0, loc)
	}
	days := q.Days
	if days <= 0 {
		days = s.settings.SearchDays
	}

	start := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, loc)
	end := start.AddDate(0, 0, days)

	booked, err := s.repo.ListBooked(ctx, doc.ID, start, end)
	if err != nil {
		return nil, fmt.Errorf("list booked appointments: %w", err)
	}

	slots := AvailableSlots(doc, Window{From: start, Days: days, NotBefore: now}, s.settings.Hours, NewBookedSet(booked))
	slots = FilterByTimeOfDay(slots, q.TimeOfDay)
	if q.Limit > 0 && len(slots) > q.Limit {
		slots = slots[:q.Limit]
	}
	return slots, nil
}

// CompletePastAppointments marks confirmed appointments whose time has
// ended as completed. It is called by the completion worker.
func (s *Service) CompletePastAppointments(ctx context.Context) (int, error) {
	now := s.now().In(s.settings.Location)
	candidates, err := s.repo.List(ctx, ListFilter{Status: StatusConfirmed, Before: now, Limit: 500})
	if err != nil {
		return 0, fmt.Errorf("find past confirmed appointments: %w", err)
	}

	completed := 0
	for _, appt := range candidates {
		if appt.EndsAt().After(now) {
			continue
		}
		_, err := s.repo.UpdateStatus(ctx, appt.ID, StatusConfirmed, StatusCompleted, now)
		if err != nil && !errors.Is(err, ErrAppointmentNotFound) {
			s.logger.Error().Err(err).Str("appointment_id", appt.ID.String()).Msg("failed to complete appointment")
			continue
		}
		if err == nil {
			completed++
			s.logEvent(ctx, appt.ID, EventAppointmentCompleted, map[string]any{"reason": "worker"})
		}
	}
	return completed, nil
}

func (s *Service) logEvent(ctx context.Context, appointmentID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Warn().Err(err).Str("event", eventType).Msg("failed to marshal event payload")
		data = nil
	}

	apptID := appointmentID
	ev := EventLog{
		EventType:     eventType,
		AppointmentID: &apptID,
		Payload:       data,
		CreatedAt:     s.now(),
	}

	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		s.logger.Warn().Err(err).Str("event", eventType).Str("appointment_id", appointmentID.String()).Msg("failed to insert event log")
	}
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
