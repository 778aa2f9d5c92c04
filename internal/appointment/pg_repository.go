package appointment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/hackgods/conversational-appointment-booking/internal/db"
)

const activeSlotConstraint = "appointments_active_slot_uniq"

// PgRepository stores appointments in postgres. scheduled_at is a
// timestamp without time zone holding the clinic wall clock.
type PgRepository struct {
	db  db.Querier
	loc *time.Location
}

func NewPgRepository(q db.Querier, loc *time.Location) *PgRepository {
	if loc == nil {
		loc = time.UTC
	}
	return &PgRepository{db: q, loc: loc}
}

const appointmentColumns = `id, patient_name, patient_phone, patient_email, scheduled_at, duration_minutes,
	doctor_id, doctor_name, reason, status, conversation_id, notes, created_at, updated_at, confirmed_at`

func (r *PgRepository) scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var scheduled time.Time

	err := row.Scan(
		&a.ID,
		&a.PatientName,
		&a.PatientPhone,
		&a.PatientEmail,
		&scheduled,
		&a.DurationMinutes,
		&a.DoctorID,
		&a.DoctorName,
		&a.Reason,
		&a.Status,
		&a.ConversationID,
		&a.Notes,
		&a.CreatedAt,
		&a.UpdatedAt,
		&a.ConfirmedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	a.ScheduledAt = r.fromWall(scheduled)
	return &a, nil
}

func (r *PgRepository) collect(rows pgx.Rows) ([]Appointment, error) {
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := r.scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// toWall drops the zone so postgres stores the clinic wall clock.
func (r *PgRepository) toWall(t time.Time) time.Time {
	t = t.In(r.loc)
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC)
}

func (r *PgRepository) fromWall(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, r.loc)
}

func (r *PgRepository) Create(ctx context.Context, a Appointment) (*Appointment, error) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}

	row := r.db.QueryRow(ctx, `
		INSERT INTO appointments (id, patient_name, patient_phone, patient_email, scheduled_at, duration_minutes,
			doctor_id, doctor_name, reason, status, conversation_id, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, now(), now())
		RETURNING `+appointmentColumns,
		a.ID, a.PatientName, a.PatientPhone, a.PatientEmail, r.toWall(a.ScheduledAt), a.DurationMinutes,
		a.DoctorID, a.DoctorName, a.Reason, string(a.Status), a.ConversationID, a.Notes)

	created, err := r.scanAppointment(row)
	if err != nil {
		if db.IsUniqueViolation(err, activeSlotConstraint) {
			return nil, ErrSlotAlreadyBooked
		}
		return nil, fmt.Errorf("insert appointment: %w", err)
	}
	return created, nil
}

func (r *PgRepository) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return r.scanAppointment(row)
}

func (r *PgRepository) FindBlocking(ctx context.Context, doctorID uuid.UUID, at time.Time) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE doctor_id = $1 AND scheduled_at = $2 AND status IN ('scheduled', 'confirmed')
		LIMIT 1
	`, doctorID, r.toWall(at))
	return r.scanAppointment(row)
}

func (r *PgRepository) ListBooked(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]Appointment, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE doctor_id = $1
		  AND scheduled_at >= $2
		  AND scheduled_at < $3
		  AND status IN ('scheduled', 'confirmed')
		ORDER BY scheduled_at
	`, doctorID, r.toWall(from), r.toWall(to))
	if err != nil {
		return nil, fmt.Errorf("list booked appointments: %w", err)
	}
	return r.collect(rows)
}

func (r *PgRepository) List(ctx context.Context, f ListFilter) ([]Appointment, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.Status != "" {
		add("status = $%d", string(f.Status))
	}
	if f.Phone != "" {
		add("patient_phone = $%d", f.Phone)
	}
	if f.DoctorID != uuid.Nil {
		add("doctor_id = $%d", f.DoctorID)
	}
	if !f.Before.IsZero() {
		add("scheduled_at < $%d", r.toWall(f.Before))
	}

	query := `SELECT ` + appointmentColumns + ` FROM appointments`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY scheduled_at, created_at`

	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return r.collect(rows)
}

func (r *PgRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status, at time.Time) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    updated_at = $4,
		    confirmed_at = CASE WHEN $2 = 'confirmed' THEN $4 ELSE confirmed_at END
		WHERE id = $1
		  AND status = $3
		RETURNING `+appointmentColumns,
		id, string(to), string(from), at)

	updated, err := r.scanAppointment(row)
	if err != nil {
		if db.IsUniqueViolation(err, activeSlotConstraint) {
			return nil, ErrSlotAlreadyBooked
		}
		return nil, err
	}
	return updated, nil
}

func (r *PgRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO event_logs (event_type, appointment_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.EventType, ev.AppointmentID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}

	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
