package workflow

import "github.com/prometheus/client_golang/prometheus"

type Metrics struct {
	turns    *prometheus.CounterVec
	bookings *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		turns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "booking",
			Subsystem: "workflow",
			Name:      "turns_total",
			Help:      "Conversation turns by phase before and after the turn",
		}, []string{"from", "to"}),
		bookings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "booking",
			Subsystem: "workflow",
			Name:      "finalize_total",
			Help:      "Booking finalize attempts by result",
		}, []string{"result"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.turns, m.bookings)
	return m
}

func (m *Metrics) observeTurn(from, to Phase) {
	if m == nil {
		return
	}
	m.turns.WithLabelValues(string(from), string(to)).Inc()
}

func (m *Metrics) observeFinalize(result string) {
	if m == nil {
		return
	}
	m.bookings.WithLabelValues(result).Inc()
}
