package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/hackgods/conversational-appointment-booking/internal/api"
	"github.com/hackgods/conversational-appointment-booking/internal/app"
	"github.com/hackgods/conversational-appointment-booking/internal/appointment"
	"github.com/hackgods/conversational-appointment-booking/internal/config"
	"github.com/hackgods/conversational-appointment-booking/internal/conversation"
	"github.com/hackgods/conversational-appointment-booking/internal/dialogue"
	"github.com/hackgods/conversational-appointment-booking/internal/intake"
	"github.com/hackgods/conversational-appointment-booking/internal/llm"
	"github.com/hackgods/conversational-appointment-booking/internal/logger"
	"github.com/hackgods/conversational-appointment-booking/internal/workflow"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := zerolog.New(os.Stderr)
		boot.Fatal().Err(err).Msg("config load error")
	}

	log := logger.New(logger.Config{Debug: cfg.LogDebug, PrettyFormat: cfg.LogPretty, Service: "api-server"})
	log.Info().Str("env", cfg.Env).Str("http_port", cfg.HTTPPort).Str("version", version).Msg("api-server starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backends, err := app.Open(rootCtx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("backend setup failed")
	}
	defer backends.Close()

	n, err := backends.SeedDoctors(rootCtx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("doctor roster load failed")
	}
	log.Info().Int("doctors", n).Msg("doctor roster loaded")

	model, err := llm.NewOpenAIClient(cfg.LLM)
	if err != nil {
		log.Fatal().Err(err).Msg("llm client setup failed")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	oracle := llm.Instrument(model, llm.NewMetrics(reg), log)

	appts := appointment.NewService(backends.Appointments, backends.Doctors, backends.SlotLocker,
		backends.AppointmentSettings(cfg), log.With().Str("component", "appointments").Logger(),
		appointment.WithMetrics(appointment.NewMetrics(reg)))

	ctrl := workflow.NewController(backends.Doctors, appts,
		intake.NewExtractor(oracle, cfg.LLM.ExtractionTemperature, cfg.LLM.ExtractionMaxTokens, log),
		dialogue.NewGenerator(oracle, cfg.Clinic.Name, cfg.LLM.Temperature, cfg.LLM.MaxTokens, log),
		log.With().Str("component", "workflow").Logger(),
		workflow.WithMetrics(workflow.NewMetrics(reg)),
		workflow.WithMaxSlots(cfg.Clinic.MaxPresentedSlots),
	)

	convs := conversation.NewService(backends.Conversations, ctrl, backends.ConversationLocker,
		log.With().Str("component", "conversations").Logger())

	router := api.NewRouter(api.RouterConfig{
		Appointments:  appts,
		Doctors:       backends.Doctors,
		Conversations: convs,
		PgPool:        backends.Pg,
		Redis:         backends.Redis,
		Metrics:       promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
		Logger:        log,
		Clinic:        cfg.Clinic.Name,
		Env:           cfg.Env,
		Version:       version,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("http server failed")
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info().Msg("shutting down api-server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
