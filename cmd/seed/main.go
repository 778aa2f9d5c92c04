package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/rs/zerolog"

	"github.com/hackgods/conversational-appointment-booking/internal/app"
	"github.com/hackgods/conversational-appointment-booking/internal/appointment"
	"github.com/hackgods/conversational-appointment-booking/internal/config"
	"github.com/hackgods/conversational-appointment-booking/internal/logger"
)

var reasons = []string{
	"fever and headache",
	"skin rash",
	"chest pain on exertion",
	"knee pain after running",
	"child has a persistent cough",
	"routine checkup",
	"back pain",
	"acne follow-up",
}

func main() {
	count := flag.Int("appointments", 0, "number of demo appointments to book")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		boot := zerolog.New(os.Stderr)
		boot.Fatal().Err(err).Msg("config load error")
	}
	log := logger.New(logger.Config{Debug: cfg.LogDebug, PrettyFormat: true, Service: "seed"})

	if cfg.PostgresDSN == "" {
		log.Fatal().Msg("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	backends, err := app.Open(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("backend setup failed")
	}
	defer backends.Close()

	n, err := backends.SeedDoctors(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("seed doctors")
	}
	log.Info().Int("doctors", n).Msg("doctors seeded")

	if *count > 0 {
		svc := appointment.NewService(backends.Appointments, backends.Doctors, backends.SlotLocker,
			backends.AppointmentSettings(cfg), log)
		if err := seedAppointments(ctx, backends, svc, *count, log); err != nil {
			log.Fatal().Err(err).Msg("seed appointments")
		}
	}

	log.Info().Msg("seed complete")
}

// seedAppointments books count fake patients into random open slots.
func seedAppointments(ctx context.Context, b *app.Backends, svc *appointment.Service, count int, log zerolog.Logger) error {
	doctors, err := b.Doctors.List(ctx, true)
	if err != nil {
		return err
	}
	if len(doctors) == 0 {
		return errors.New("no active doctors")
	}

	booked := 0
	for attempt := 0; booked < count && attempt < count*3; attempt++ {
		doc := doctors[gofakeit.Number(0, len(doctors)-1)]
		slots, err := svc.FindSlotsFor(ctx, doc, appointment.SlotQuery{})
		if err != nil {
			return err
		}
		if len(slots) == 0 {
			continue
		}
		slot := slots[gofakeit.Number(0, len(slots)-1)]
		at, err := slot.Start(svc.Location())
		if err != nil {
			return err
		}

		_, err = svc.Create(ctx, appointment.NewAppointment{
			PatientName:  gofakeit.Name(),
			PatientPhone: gofakeit.Phone(),
			PatientEmail: gofakeit.Email(),
			ScheduledAt:  at,
			DoctorID:     doc.ID,
			Reason:       gofakeit.RandomString(reasons),
			Notes:        "demo data",
		})
		if errors.Is(err, appointment.ErrSlotAlreadyBooked) {
			continue
		}
		if err != nil {
			return err
		}
		booked++
	}

	log.Info().Int("appointments", booked).Msg("appointments seeded")
	return nil
}
