package monitor

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "trivia"

// Metrics groups the service's Prometheus collectors. A nil *Metrics is valid
// and records nothing, which keeps unit tests free of registry plumbing.
type Metrics struct {
	gatherer prometheus.Gatherer

	Connections        prometheus.Gauge
	LiveSessions       prometheus.Gauge
	GamesCreated       prometheus.Counter
	AnswersSubmitted   *prometheus.CounterVec
	BroadcastDelivered prometheus.Counter
	BroadcastDropped   *prometheus.CounterVec
}

// NewMetrics registers all collectors on reg.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		gatherer: reg,
		Connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections",
			Help:      "Number of registered push connections",
		}),
		LiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live_sessions",
			Help:      "Number of in-process game sessions",
		}),
		GamesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_created_total",
			Help:      "Total number of games created",
		}),
		AnswersSubmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "answers_submitted_total",
			Help:      "Recorded answers by correctness",
		}, []string{"correct"}),
		BroadcastDelivered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcast_delivered_total",
			Help:      "Messages queued to connections",
		}),
		BroadcastDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcast_dropped_total",
			Help:      "Messages dropped during fan-out",
		}, []string{"reason"}),
	}

	reg.MustRegister(
		m.Connections,
		m.LiveSessions,
		m.GamesCreated,
		m.AnswersSubmitted,
		m.BroadcastDelivered,
		m.BroadcastDropped,
	)
	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) ConnectionOpened() {
	if m != nil {
		m.Connections.Inc()
	}
}

func (m *Metrics) ConnectionClosed() {
	if m != nil {
		m.Connections.Dec()
	}
}

func (m *Metrics) SetLiveSessions(n int) {
	if m != nil {
		m.LiveSessions.Set(float64(n))
	}
}

func (m *Metrics) GameCreated() {
	if m != nil {
		m.GamesCreated.Inc()
	}
}

func (m *Metrics) AnswerRecorded(correct bool) {
	if m == nil {
		return
	}
	label := "false"
	if correct {
		label = "true"
	}
	m.AnswersSubmitted.WithLabelValues(label).Inc()
}

func (m *Metrics) Delivered() {
	if m != nil {
		m.BroadcastDelivered.Inc()
	}
}

// Dropped counts a fan-out miss; reason is "closed" or "full".
func (m *Metrics) Dropped(reason string) {
	if m != nil {
		m.BroadcastDropped.WithLabelValues(reason).Inc()
	}
}
