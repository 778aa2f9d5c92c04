package doctor

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var doctorCols = []string{
	"id", "name", "specialization", "qualification", "experience_years", "available_days",
	"consultation_minutes", "active", "created_at", "updated_at",
}

func TestPgRepositoryListBySpecialization(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Now()
	id := IDFor("Amit Verma")
	rows := pgxmock.NewRows(doctorCols).
		AddRow(id, "Amit Verma", Dermatologist, "MBBS", 8, []int32{2, 3, 4, 5, 6}, 30, true, now, now)

	mock.ExpectQuery(`SELECT (.+) FROM doctors\s+WHERE active AND specialization = \$1`).
		WithArgs("Dermatologist").
		WillReturnRows(rows)

	repo := NewPgRepository(mock)
	got, err := repo.ListBySpecialization(context.Background(), Dermatologist)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, id, got[0].ID)
	assert.True(t, got[0].WorksOn(time.Saturday))
	assert.False(t, got[0].WorksOn(time.Monday))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgRepositoryGetByIDNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := IDFor("Nobody")
	mock.ExpectQuery(`SELECT (.+) FROM doctors\s+WHERE id = \$1`).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows(doctorCols))

	_, err = NewPgRepository(mock).GetByID(context.Background(), id)
	assert.ErrorIs(t, err, ErrDoctorNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgRepositoryFindByNameStripsHonorific(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Now()
	rows := pgxmock.NewRows(doctorCols).
		AddRow(IDFor("Priya Sharma"), "Priya Sharma", Cardiologist, "MD", 12, []int32{1, 3, 5}, 45, true, now, now)
	mock.ExpectQuery(`FROM doctors\s+WHERE active AND position\(lower\(\$1\) IN lower\(name\)\) > 0`).
		WithArgs("priya").
		WillReturnRows(rows)

	d, err := NewPgRepository(mock).FindByName(context.Background(), "Dr. Priya")
	require.NoError(t, err)
	assert.Equal(t, "Priya Sharma", d.Name)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgRepositoryMatchesNamesLiterally(t *testing.T) {
	tests := []struct {
		name  string
		query func(*PgRepository) error
		arg   string
	}{
		{"find by name", func(r *PgRepository) error {
			_, err := r.FindByName(context.Background(), "dr. 100%_sure")
			return err
		}, "100%_sure"},
		{"search", func(r *PgRepository) error {
			_, err := r.Search(context.Background(), " car_dio% ")
			return err
		}, "car_dio%"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			mock.ExpectQuery(`position\(lower\(\$1\) IN lower\(name\)\) > 0`).
				WithArgs(tt.arg).
				WillReturnRows(pgxmock.NewRows(doctorCols))

			err = tt.query(NewPgRepository(mock))
			if tt.name == "find by name" {
				assert.ErrorIs(t, err, ErrDoctorNotFound)
			} else {
				assert.NoError(t, err)
			}
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPgRepositoryUpsert(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	d := DefaultRoster(30)[1]
	mock.ExpectExec(`INSERT INTO doctors`).
		WithArgs(d.ID, d.Name, string(d.Specialization), d.Qualification, d.ExperienceYears,
			[]int32{1, 3, 5}, d.ConsultationMinutes, true).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, NewPgRepository(mock).Upsert(context.Background(), d))
	require.NoError(t, mock.ExpectationsWereMet())
}
