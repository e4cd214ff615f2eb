package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.ConnectionOpened()
	m.ConnectionOpened()
	m.ConnectionClosed()
	m.EventReceived("sendMessage")
	m.EventReceived("sendMessage")
	m.Delivered(3, 1)
	m.MessagePersisted()
	m.MessageFailed()
	m.SetActiveCalls(2)
	m.BookingTransition("confirmed")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.activeConnections))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.totalConnections))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.eventsReceived.WithLabelValues("sendMessage")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.deliveries.WithLabelValues("delivered")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.deliveries.WithLabelValues("dropped")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.chatMessages.WithLabelValues("failed")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.activeCalls))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.bookingTransitions.WithLabelValues("confirmed")))
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.ConnectionOpened()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "petbuddy_ws_active_connections 1"))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ConnectionOpened()
		m.ConnectionClosed()
		m.ConnectionRejected()
		m.EventReceived("x")
		m.ErrorSent("bad_request")
		m.Delivered(1, 1)
		m.MessagePersisted()
		m.MessageFailed()
		m.SetActiveCalls(1)
		m.BookingTransition("cancelled")
	})
	assert.Nil(t, m.Registry())
	assert.Zero(t, m.Uptime())
}
