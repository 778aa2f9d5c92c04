package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"

	"github.com/hackgods/conversational-appointment-booking/internal/api"
	"github.com/hackgods/conversational-appointment-booking/internal/logger"
	"github.com/hackgods/conversational-appointment-booking/internal/workflow"
)

// SimConfig is read from SIM_* environment variables.
type SimConfig struct {
	APIBaseURL string        `envconfig:"API_BASE_URL" default:"http://localhost:8080"`
	Duration   time.Duration `envconfig:"DURATION" default:"30s"`
	Workers    int           `envconfig:"WORKERS" default:"5"`
	// MaxTurns bounds one conversation so a confused model cannot loop forever.
	MaxTurns int           `envconfig:"MAX_TURNS" default:"8"`
	Timeout  time.Duration `envconfig:"REQUEST_TIMEOUT" default:"60s"`
}

var complaints = []string{
	"I have a skin rash that keeps itching",
	"my chest hurts when I climb stairs",
	"my child has had a fever for two days",
	"I twisted my knee playing football",
	"I need a general checkup",
	"I have a bad toothache",
	"my ears have been ringing",
}

var whens = []string{"", " tomorrow morning", " in the afternoon", " next week", " this evening"}

type Simulator struct {
	config  SimConfig
	client  *http.Client
	metrics Metrics
	log     zerolog.Logger
}

func main() {
	_ = godotenv.Load()
	log := logger.New(logger.Config{PrettyFormat: true, Service: "simulate"})

	var cfg SimConfig
	if err := envconfig.Process("SIM", &cfg); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}
	if cfg.Workers <= 0 || cfg.Duration <= 0 {
		log.Fatal().Msg("SIM_WORKERS and SIM_DURATION must be > 0")
	}

	log.Info().
		Str("api", cfg.APIBaseURL).
		Dur("duration", cfg.Duration).
		Int("workers", cfg.Workers).
		Msg("simulator starting")

	sim := &Simulator{
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		log:    log,
	}
	sim.Run()
	sim.metrics.PrintReport(cfg)
}

func (s *Simulator) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Duration)
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < s.config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for ctx.Err() == nil {
				s.converse(ctx, workerID)
			}
		}(i)
	}

	wg.Wait()
	s.log.Info().Msg("simulation complete")
}

// converse plays one fake patient from greeting to a booked appointment.
func (s *Simulator) converse(ctx context.Context, workerID int) {
	var conv api.ConversationResponse
	if !s.call(ctx, &s.metrics.Start, http.MethodPost, "/api/conversations", nil, &conv) {
		sleep(ctx, time.Second)
		return
	}

	name := gofakeit.Name()
	msg := fmt.Sprintf("Hi, I'm %s, my number is %s and %s%s.",
		name, gofakeit.Phone(), gofakeit.RandomString(complaints), gofakeit.RandomString(whens))

	for turn := 0; turn < s.config.MaxTurns; turn++ {
		if ctx.Err() != nil {
			return
		}

		om := &s.metrics.Intake
		switch conv.Phase {
		case workflow.PhaseAwaitingSelection, workflow.PhasePresentingSlots:
			om = &s.metrics.Selection
		case workflow.PhaseConfirming:
			om = &s.metrics.Confirm
		}

		path := "/api/conversations/" + conv.ID + "/messages"
		if !s.call(ctx, om, http.MethodPost, path, api.SendMessageRequest{Message: msg}, &conv) {
			break
		}

		switch conv.Phase {
		case workflow.PhaseCompleted:
			s.metrics.Completed.Add(1)
			s.log.Debug().Int("worker", workerID).Str("patient", name).Str("appointment_id", conv.AppointmentID).Msg("booked")
			return
		case workflow.PhaseAwaitingSelection, workflow.PhasePresentingSlots:
			n := len(conv.AvailableSlots)
			if n == 0 {
				n = 1
			}
			msg = "Option " + strconv.Itoa(gofakeit.Number(1, n)) + " please"
		case workflow.PhaseConfirming:
			msg = "Yes, that's correct"
		case workflow.PhaseGatheringInfo:
			msg = fmt.Sprintf("My name is %s and the reason is %s", name, gofakeit.RandomString(complaints))
		default:
			msg = "Let's try again. " + msg
		}
	}
	s.metrics.Abandoned.Add(1)
}

// call sends one request and decodes the response into out. A 409 is
// counted as a conflict.
func (s *Simulator) call(ctx context.Context, om *OperationMetrics, method, path string, body, out any) bool {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			om.Record(0, false, false)
			return false
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, s.config.APIBaseURL+path, &buf)
	if err != nil {
		om.Record(0, false, false)
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := s.client.Do(req)
	latency := time.Since(start)
	if err != nil {
		if !errors.Is(err, context.DeadlineExceeded) {
			s.log.Warn().Err(err).Str("path", path).Msg("request failed")
		}
		om.Record(latency, false, false)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusConflict {
		om.Record(latency, false, true)
		return false
	}
	if resp.StatusCode >= 300 {
		om.Record(latency, false, false)
		return false
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		om.Record(latency, false, false)
		return false
	}
	om.Record(latency, true, false)
	return true
}

func sleep(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
