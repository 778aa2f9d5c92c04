package llm

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// Metrics records oracle latency and failures by purpose.
type Metrics struct {
	latency  *prometheus.HistogramVec
	failures *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "booking",
			Subsystem: "llm",
			Name:      "request_duration_seconds",
			Help:      "Latency of language model calls",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 30},
		}, []string{"purpose"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "booking",
			Subsystem: "llm",
			Name:      "failures_total",
			Help:      "Language model calls that returned an error",
		}, []string{"purpose"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.latency, m.failures)
	return m
}

func (m *Metrics) observe(purpose string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.latency.WithLabelValues(purpose).Observe(d.Seconds())
	if err != nil {
		m.failures.WithLabelValues(purpose).Inc()
	}
}

type instrumentedClient struct {
	next    Client
	metrics *Metrics
	logger  zerolog.Logger
}

// Instrument wraps a client with latency metrics and debug logging.
func Instrument(next Client, metrics *Metrics, logger zerolog.Logger) Client {
	return &instrumentedClient{next: next, metrics: metrics, logger: logger}
}

func (c *instrumentedClient) Generate(ctx context.Context, req Request) (string, error) {
	purpose := req.Purpose
	if purpose == "" {
		purpose = "unknown"
	}

	start := time.Now()
	out, err := c.next.Generate(ctx, req)
	elapsed := time.Since(start)
	c.metrics.observe(purpose, elapsed, err)

	if err != nil {
		c.logger.Warn().Err(err).Str("purpose", purpose).Dur("elapsed", elapsed).Msg("llm call failed")
		return "", err
	}
	c.logger.Debug().Str("purpose", purpose).Dur("elapsed", elapsed).Int("chars", len(out)).Msg("llm call")
	return out, nil
}
