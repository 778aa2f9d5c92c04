package appointment

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/conversational-appointment-booking/internal/doctor"
	redisclient "github.com/hackgods/conversational-appointment-booking/internal/redis"
)

type fixture struct {
	svc     *Service
	repo    *MemoryRepository
	metrics *Metrics
	now     time.Time
	rajesh  doctor.Doctor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	roster := doctor.DefaultRoster(30)
	now := time.Date(2025, 3, 3, 8, 0, 0, 0, kolkata)
	repo := NewMemoryRepository()
	metrics := NewMetrics(prometheus.NewRegistry())

	svc := NewService(repo, doctor.NewMemoryRepository(roster), redisclient.NewLocalLocker(2*time.Second),
		Settings{Hours: hours, Location: kolkata, SearchDays: 7, DefaultDuration: 30},
		zerolog.Nop(),
		WithClock(func() time.Time { return now }),
		WithMetrics(metrics),
	)
	return &fixture{svc: svc, repo: repo, metrics: metrics, now: now, rajesh: roster[0]}
}

func (f *fixture) booking(at time.Time) NewAppointment {
	return NewAppointment{
		PatientName:  "Asha Rao",
		PatientPhone: "9876543210",
		ScheduledAt:  at,
		DoctorID:     f.rajesh.ID,
		Reason:       "fever",
	}
}

func TestCreateSchedulesAppointment(t *testing.T) {
	f := newFixture(t)
	at := time.Date(2025, 3, 3, 10, 0, 0, 0, kolkata)

	appt, err := f.svc.Create(context.Background(), f.booking(at))
	require.NoError(t, err)

	assert.Equal(t, StatusScheduled, appt.Status)
	assert.Equal(t, "Dr. Rajesh Kumar", appt.DoctorName)
	assert.Equal(t, 30, appt.DurationMinutes)
	assert.Equal(t, "2025-03-03", appt.Date())
	assert.Equal(t, "10:00", appt.Clock())
	assert.Nil(t, appt.PatientEmail)

	events := f.repo.Events()
	require.Len(t, events, 1)
	assert.Equal(t, EventAppointmentCreated, events[0].EventType)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.bookings.WithLabelValues("created")))
}

func TestCreateUsesDoctorConsultationLength(t *testing.T) {
	f := newFixture(t)
	cardio := doctor.DefaultRoster(30)[1]
	in := f.booking(time.Date(2025, 3, 3, 11, 0, 0, 0, kolkata))
	in.DoctorID = cardio.ID

	appt, err := f.svc.Create(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, 45, appt.DurationMinutes)
}

func TestCreateRejectsInvalidRequests(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name string
		in   func() NewAppointment
		want error
	}{
		{"missing name", func() NewAppointment {
			in := f.booking(time.Date(2025, 3, 3, 10, 0, 0, 0, kolkata))
			in.PatientName = "  "
			return in
		}, ErrMissingPatientDetails},
		{"off day", func() NewAppointment {
			return f.booking(time.Date(2025, 3, 8, 10, 0, 0, 0, kolkata))
		}, ErrOutsideAvailability},
		{"after hours", func() NewAppointment {
			return f.booking(time.Date(2025, 3, 3, 17, 0, 0, 0, kolkata))
		}, ErrOutsideAvailability},
		{"not on the hour", func() NewAppointment {
			return f.booking(time.Date(2025, 3, 3, 10, 30, 0, 0, kolkata))
		}, ErrOutsideAvailability},
		{"already started", func() NewAppointment {
			return f.booking(time.Date(2025, 2, 28, 10, 0, 0, 0, kolkata))
		}, ErrSlotInPast},
		{"unknown doctor", func() NewAppointment {
			in := f.booking(time.Date(2025, 3, 3, 10, 0, 0, 0, kolkata))
			in.DoctorID = doctor.IDFor("nobody")
			return in
		}, doctor.ErrDoctorNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Create(ctx, tt.in())
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCreateDoubleBooking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	at := time.Date(2025, 3, 3, 10, 0, 0, 0, kolkata)

	_, err := f.svc.Create(ctx, f.booking(at))
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, f.booking(at))
	assert.ErrorIs(t, err, ErrSlotAlreadyBooked)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.bookings.WithLabelValues("conflict")))
}

func TestCreateConcurrentSameSlot(t *testing.T) {
	f := newFixture(t)
	at := time.Date(2025, 3, 3, 14, 0, 0, 0, kolkata)

	const writers = 10
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		conflicts int
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Create(context.Background(), f.booking(at))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, ErrSlotAlreadyBooked):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, writers-1, conflicts)
}

func TestCancelledSlotCanBeRebooked(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	at := time.Date(2025, 3, 3, 10, 0, 0, 0, kolkata)

	first, err := f.svc.Create(ctx, f.booking(at))
	require.NoError(t, err)
	_, err = f.svc.Cancel(ctx, first.ID)
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, f.booking(at))
	assert.NoError(t, err)
}

func TestFindSlotsExcludesBookedAndPast(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	slots, err := f.svc.FindSlots(ctx, SlotQuery{DoctorID: f.rajesh.ID, Days: 1})
	require.NoError(t, err)
	require.Len(t, slots, 8)
	assert.Equal(t, "09:00", slots[0].StartTime)

	_, err = f.svc.Create(ctx, f.booking(time.Date(2025, 3, 3, 9, 0, 0, 0, kolkata)))
	require.NoError(t, err)

	slots, err = f.svc.FindSlots(ctx, SlotQuery{DoctorID: f.rajesh.ID, Days: 1, Limit: 3})
	require.NoError(t, err)
	require.Len(t, slots, 3)
	assert.Equal(t, "10:00", slots[0].StartTime)

	for _, s := range slots {
		assert.NotEqual(t, "09:00", s.StartTime)
	}
}

func TestFindSlotsTimeOfDay(t *testing.T) {
	f := newFixture(t)

	slots, err := f.svc.FindSlots(context.Background(), SlotQuery{DoctorID: f.rajesh.ID, Days: 1, TimeOfDay: Afternoon})
	require.NoError(t, err)
	require.Len(t, slots, 5)
	assert.Equal(t, "12:00", slots[0].StartTime)
}

func TestUpdateStatusTransitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	appt, err := f.svc.Create(ctx, f.booking(time.Date(2025, 3, 3, 10, 0, 0, 0, kolkata)))
	require.NoError(t, err)

	confirmed, err := f.svc.Confirm(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, confirmed.Status)
	require.NotNil(t, confirmed.ConfirmedAt)

	again, err := f.svc.Confirm(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, again.Status)

	_, err = f.svc.UpdateStatus(ctx, appt.ID, StatusPending)
	assert.ErrorIs(t, err, ErrInvalidStatusTransition)

	_, err = f.svc.UpdateStatus(ctx, appt.ID, Status("archived"))
	assert.ErrorIs(t, err, ErrInvalidStatus)

	cancelled, err := f.svc.Cancel(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)

	_, err = f.svc.Confirm(ctx, appt.ID)
	assert.ErrorIs(t, err, ErrInvalidStatusTransition)
}

func TestGetUnknownAppointment(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Get(context.Background(), doctor.IDFor("missing"))
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
}

func TestListFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, h := range []int{9, 10, 11} {
		_, err := f.svc.Create(ctx, f.booking(time.Date(2025, 3, 3, h, 0, 0, 0, kolkata)))
		require.NoError(t, err)
	}
	other := f.booking(time.Date(2025, 3, 3, 12, 0, 0, 0, kolkata))
	other.PatientPhone = "9000000000"
	_, err := f.svc.Create(ctx, other)
	require.NoError(t, err)

	all, err := f.svc.List(ctx, ListFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 4)

	byPhone, err := f.svc.List(ctx, ListFilter{Phone: "9876543210", Limit: 2})
	require.NoError(t, err)
	require.Len(t, byPhone, 2)
	assert.Equal(t, "09:00", byPhone[0].Clock())

	_, err = f.svc.List(ctx, ListFilter{Status: "bogus"})
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestCompletePastAppointments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	current := f.now
	svc := NewService(f.repo, doctor.NewMemoryRepository(doctor.DefaultRoster(30)), redisclient.NewLocalLocker(time.Second),
		Settings{Hours: hours, Location: kolkata}, zerolog.Nop(),
		WithClock(func() time.Time { return current }))

	done, err := svc.Create(ctx, f.booking(time.Date(2025, 3, 3, 9, 0, 0, 0, kolkata)))
	require.NoError(t, err)
	_, err = svc.Confirm(ctx, done.ID)
	require.NoError(t, err)

	running, err := svc.Create(ctx, f.booking(time.Date(2025, 3, 3, 10, 0, 0, 0, kolkata)))
	require.NoError(t, err)
	_, err = svc.Confirm(ctx, running.ID)
	require.NoError(t, err)

	unconfirmed, err := svc.Create(ctx, f.booking(time.Date(2025, 3, 3, 11, 0, 0, 0, kolkata)))
	require.NoError(t, err)

	current = time.Date(2025, 3, 3, 12, 15, 0, 0, kolkata)
	n, err := svc.CompletePastAppointments(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	current = time.Date(2025, 3, 3, 10, 15, 0, 0, kolkata)
	n, err = svc.CompletePastAppointments(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "already completed appointments are skipped")

	got, err := svc.Get(ctx, unconfirmed.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusScheduled, got.Status)
}
