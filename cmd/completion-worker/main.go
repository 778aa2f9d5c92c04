package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/hackgods/conversational-appointment-booking/internal/app"
	"github.com/hackgods/conversational-appointment-booking/internal/appointment"
	"github.com/hackgods/conversational-appointment-booking/internal/config"
	"github.com/hackgods/conversational-appointment-booking/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := zerolog.New(os.Stderr)
		boot.Fatal().Err(err).Msg("config load error")
	}

	log := logger.New(logger.Config{Debug: cfg.LogDebug, PrettyFormat: cfg.LogPretty, Service: "completion-worker"})
	log.Info().Str("env", cfg.Env).Dur("interval", cfg.WorkerInterval).Msg("completion worker starting up")

	if cfg.PostgresDSN == "" {
		log.Fatal().Msg("POSTGRES_DSN is required")
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backends, err := app.Open(rootCtx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("backend setup failed")
	}
	defer backends.Close()

	svc := appointment.NewService(backends.Appointments, backends.Doctors, backends.SlotLocker,
		backends.AppointmentSettings(cfg), log)

	// Run once at startup
	runOnce(rootCtx, svc, log)

	ticker := time.NewTicker(cfg.WorkerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			log.Info().Msg("shutdown signal received, stopping completion worker")
			return
		case <-ticker.C:
			runOnce(rootCtx, svc, log)
		}
	}
}

func runOnce(ctx context.Context, svc *appointment.Service, log zerolog.Logger) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()
	n, err := svc.CompletePastAppointments(runCtx)
	if err != nil {
		log.Error().Err(err).Msg("completion run failed")
		return
	}
	log.Info().Int("completed", n).Dur("took", time.Since(start)).Msg("completion run complete")
}
