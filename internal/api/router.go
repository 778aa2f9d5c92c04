package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/hackgods/conversational-appointment-booking/internal/appointment"
	"github.com/hackgods/conversational-appointment-booking/internal/conversation"
	"github.com/hackgods/conversational-appointment-booking/internal/doctor"
)

type RouterConfig struct {
	Appointments  *appointment.Service
	Doctors       doctor.Repository
	Conversations *conversation.Service
	PgPool        *pgxpool.Pool // nil when running on memory repositories
	Redis         *redis.Client // nil when running without redis
	Metrics       http.Handler  // served on /metrics when set
	Logger        zerolog.Logger
	Clinic        string
	Env           string
	Version       string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Apply middleware
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))

	// Health endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics)
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/appointments", func(r chi.Router) {
			r.Post("/", createAppointmentHandler(cfg.Appointments))
			r.Get("/", listAppointmentsHandler(cfg.Appointments))
			r.Get("/{id}", getAppointmentHandler(cfg.Appointments))
			r.Patch("/{id}/status", updateStatusHandler(cfg.Appointments))
			r.Delete("/{id}", cancelAppointmentHandler(cfg.Appointments))
		})

		r.Get("/slots/available", availableSlotsHandler(cfg.Appointments))

		r.Route("/doctors", func(r chi.Router) {
			r.Get("/", listDoctorsHandler(cfg.Doctors))
			r.Get("/search", searchDoctorsHandler(cfg.Doctors))
			r.Get("/{id}", getDoctorHandler(cfg.Doctors))
			r.Get("/{id}/slots", availableSlotsHandler(cfg.Appointments))
		})

		r.Route("/conversations", func(r chi.Router) {
			r.Post("/", startConversationHandler(cfg.Conversations))
			r.Get("/{id}", getConversationHandler(cfg.Conversations))
			r.Post("/{id}/messages", sendMessageHandler(cfg.Conversations))
			r.Post("/{id}/reset", resetConversationHandler(cfg.Conversations))
			r.Delete("/{id}", deleteConversationHandler(cfg.Conversations))
		})
	})

	hub := NewChatHub(cfg.Conversations, cfg.Clinic, cfg.Logger)
	r.Get("/ws", hub.ServeHTTP)
	r.Get("/ws/{conversationID}", hub.ServeHTTP)

	return r
}
