// Package metrics holds the hub's Prometheus collectors.
//
// A nil *Metrics is valid and records nothing, so components can be built
// without metrics in tests.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "petbuddy"

// Metrics is the set of collectors registered on one registry.
type Metrics struct {
	registry *prometheus.Registry
	started  time.Time

	activeConnections  prometheus.Gauge
	totalConnections   prometheus.Counter
	rejectedConnection prometheus.Counter
	eventsReceived     *prometheus.CounterVec
	errorsSent         *prometheus.CounterVec
	deliveries         *prometheus.CounterVec
	chatMessages       *prometheus.CounterVec
	activeCalls        prometheus.Gauge
	bookingTransitions *prometheus.CounterVec
}

// New creates and registers every collector on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		started:  time.Now(),
		activeConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ws_active_connections",
			Help:      "Currently open websocket connections.",
		}),
		totalConnections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_connections_total",
			Help:      "Websocket connections accepted since start.",
		}),
		rejectedConnection: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_connections_rejected_total",
			Help:      "Websocket connections rejected because the server was full.",
		}),
		eventsReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_events_received_total",
			Help:      "Inbound events by name.",
		}, []string{"event"}),
		errorsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_errors_sent_total",
			Help:      "Error frames sent to clients by code.",
		}, []string{"code"}),
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcast_frames_total",
			Help:      "Fan-out frames by outcome.",
		}, []string{"outcome"}),
		chatMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_messages_total",
			Help:      "Chat messages by persistence result.",
		}, []string{"result"}),
		activeCalls: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "calls_active",
			Help:      "Call rooms with signaling state.",
		}),
		bookingTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_transitions_total",
			Help:      "Booking status transitions by target status.",
		}, []string{"status"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.activeConnections,
		m.totalConnections,
		m.rejectedConnection,
		m.eventsReceived,
		m.errorsSent,
		m.deliveries,
		m.chatMessages,
		m.activeCalls,
		m.bookingTransitions,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry (tests gather from it).
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Uptime returns the time since New.
func (m *Metrics) Uptime() time.Duration {
	if m == nil {
		return 0
	}
	return time.Since(m.started)
}

func (m *Metrics) ConnectionOpened() {
	if m == nil {
		return
	}
	m.totalConnections.Inc()
	m.activeConnections.Inc()
}

func (m *Metrics) ConnectionClosed() {
	if m == nil {
		return
	}
	m.activeConnections.Dec()
}

func (m *Metrics) ConnectionRejected() {
	if m == nil {
		return
	}
	m.rejectedConnection.Inc()
}

func (m *Metrics) EventReceived(event string) {
	if m == nil {
		return
	}
	m.eventsReceived.WithLabelValues(event).Inc()
}

func (m *Metrics) ErrorSent(code string) {
	if m == nil {
		return
	}
	m.errorsSent.WithLabelValues(code).Inc()
}

// Delivered records the outcome of one fan-out.
func (m *Metrics) Delivered(delivered, dropped int) {
	if m == nil {
		return
	}
	m.deliveries.WithLabelValues("delivered").Add(float64(delivered))
	m.deliveries.WithLabelValues("dropped").Add(float64(dropped))
}

func (m *Metrics) MessagePersisted() {
	if m == nil {
		return
	}
	m.chatMessages.WithLabelValues("persisted").Inc()
}

func (m *Metrics) MessageFailed() {
	if m == nil {
		return
	}
	m.chatMessages.WithLabelValues("failed").Inc()
}

// SetActiveCalls sets the number of call rooms in progress.
func (m *Metrics) SetActiveCalls(n int) {
	if m == nil {
		return
	}
	m.activeCalls.Set(float64(n))
}

func (m *Metrics) BookingTransition(status string) {
	if m == nil {
		return
	}
	m.bookingTransitions.WithLabelValues(status).Inc()
}
