package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the process-wide Prometheus collectors.
type Metrics struct {
	Commands             *prometheus.CounterVec
	CommandDuration      *prometheus.HistogramVec
	IncidentsRaised      *prometheus.CounterVec
	SessionsInvalidated  prometheus.Counter
	NotificationsSent    *prometheus.CounterVec
	NotificationsDropped prometheus.Counter
	SinkCircuitOpen      *prometheus.GaugeVec
}

// New registers collectors on the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers collectors on reg; tests pass a fresh registry.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Commands: f.NewCounterVec(prometheus.CounterOpts{
			Name: "aurum_commands_total",
			Help: "Commands executed, by command and outcome code",
		}, []string{"command", "outcome"}),
		CommandDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "aurum_command_duration_seconds",
			Help:    "Command latency including the catalog commit",
			Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5},
		}, []string{"command"}),
		IncidentsRaised: f.NewCounterVec(prometheus.CounterOpts{
			Name: "aurum_incidents_raised_total",
			Help: "Audit entries created OPEN, by action kind",
		}, []string{"kind"}),
		SessionsInvalidated: f.NewCounter(prometheus.CounterOpts{
			Name: "aurum_sessions_invalidated_total",
			Help: "Sessions revoked by logout, user removal or closing operations",
		}),
		NotificationsSent: f.NewCounterVec(prometheus.CounterOpts{
			Name: "aurum_notifications_delivered_total",
			Help: "Audit notifications delivered, by sink and result",
		}, []string{"sink", "result"}),
		NotificationsDropped: f.NewCounter(prometheus.CounterOpts{
			Name: "aurum_notifications_dropped_total",
			Help: "Audit notifications evicted from a full buffer",
		}),
		SinkCircuitOpen: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "aurum_notify_circuit_open",
			Help: "1 while a sink's circuit breaker is open",
		}, []string{"sink"}),
	}
}

// ObserveCommand records one command outcome. A nil receiver is a no-op so
// services can run without metrics in tests.
func (m *Metrics) ObserveCommand(command, outcome string, started time.Time) {
	if m == nil {
		return
	}
	m.Commands.WithLabelValues(command, outcome).Inc()
	m.CommandDuration.WithLabelValues(command).Observe(time.Since(started).Seconds())
}

func (m *Metrics) IncIncident(kind string) {
	if m == nil {
		return
	}
	m.IncidentsRaised.WithLabelValues(kind).Inc()
}

func (m *Metrics) AddSessionsInvalidated(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.SessionsInvalidated.Add(float64(n))
}

func (m *Metrics) IncNotification(sink, result string) {
	if m == nil {
		return
	}
	m.NotificationsSent.WithLabelValues(sink, result).Inc()
}

func (m *Metrics) AddNotificationsDropped(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.NotificationsDropped.Add(float64(n))
}

func (m *Metrics) SetCircuitOpen(sink string, open bool) {
	if m == nil {
		return
	}
	v := 0.0
	if open {
		v = 1
	}
	m.SinkCircuitOpen.WithLabelValues(sink).Set(v)
}
