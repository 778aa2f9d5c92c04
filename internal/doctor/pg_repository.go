package doctor

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

type PgRepository struct {
	db db.Querier
}

func NewPgRepository(q db.Querier) *PgRepository {
	return &PgRepository{db: q}
}

const doctorColumns = `id, name, specialization, qualification, experience_years, available_days,
	consultation_minutes, active, created_at, updated_at`

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	var days []int32

	err := row.Scan(
		&d.ID,
		&d.Name,
		&d.Specialization,
		&d.Qualification,
		&d.ExperienceYears,
		&days,
		&d.ConsultationMinutes,
		&d.Active,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDoctorNotFound
		}
		return nil, err
	}

	d.AvailableDays = make([]time.Weekday, 0, len(days))
	for _, day := range days {
		d.AvailableDays = append(d.AvailableDays, time.Weekday(day))
	}
	return &d, nil
}

func collectDoctors(rows pgx.Rows) ([]Doctor, error) {
	defer rows.Close()

	var result []Doctor
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PgRepository) List(ctx context.Context, activeOnly bool) ([]Doctor, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+doctorColumns+`
		FROM doctors
		WHERE ($1 = false OR active)
		ORDER BY created_at, name
	`, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("list doctors: %w", err)
	}
	return collectDoctors(rows)
}

func (r *PgRepository) GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+doctorColumns+`
		FROM doctors
		WHERE id = $1
	`, id)
	return scanDoctor(row)
}

func (r *PgRepository) FindByName(ctx context.Context, name string) (*Doctor, error) {
	needle := normalizeName(name)
	if needle == "" {
		return nil, ErrDoctorNotFound
	}
	row := r.db.QueryRow(ctx, `
		SELECT `+doctorColumns+`
		FROM doctors
		WHERE active AND position(lower($1) IN lower(name)) > 0
		ORDER BY created_at, name
		LIMIT 1
	`, needle)
	return scanDoctor(row)
}

func (r *PgRepository) ListBySpecialization(ctx context.Context, s Specialization) ([]Doctor, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+doctorColumns+`
		FROM doctors
		WHERE active AND specialization = $1
		ORDER BY created_at, name
	`, string(s))
	if err != nil {
		return nil, fmt.Errorf("list doctors by specialization: %w", err)
	}
	return collectDoctors(rows)
}

func (r *PgRepository) Search(ctx context.Context, query string) ([]Doctor, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+doctorColumns+`
		FROM doctors
		WHERE active AND (position(lower($1) IN lower(name)) > 0 OR position(lower($1) IN lower(specialization)) > 0)
		ORDER BY created_at, name
	`, strings.TrimSpace(query))
	if err != nil {
		return nil, fmt.Errorf("search doctors: %w", err)
	}
	return collectDoctors(rows)
}

func (r *PgRepository) Upsert(ctx context.Context, d Doctor) error {
	if d.ID == uuid.Nil {
		d.ID = IDFor(d.Name)
	}
	days := make([]int32, 0, len(d.AvailableDays))
	for _, wd := range d.AvailableDays {
		days = append(days, int32(wd))
	}

	_, err := r.db.Exec(ctx, `
		INSERT INTO doctors (id, name, specialization, qualification, experience_years, available_days,
			consultation_minutes, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			specialization = EXCLUDED.specialization,
			qualification = EXCLUDED.qualification,
			experience_years = EXCLUDED.experience_years,
			available_days = EXCLUDED.available_days,
			consultation_minutes = EXCLUDED.consultation_minutes,
			active = EXCLUDED.active,
			updated_at = now()
	`, d.ID, d.Name, string(d.Specialization), d.Qualification, d.ExperienceYears, days,
		d.ConsultationMinutes, d.Active)
	if err != nil {
		return fmt.Errorf("upsert doctor: %w", err)
	}
	return nil
}
