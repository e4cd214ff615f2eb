package websocket

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConnectionHealth_Check(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	h := NewConnectionHealth(start)

	assert.True(t, h.Check(time.Second, start.Add(time.Hour)), "no ping sent yet")

	h.RecordPing(start)
	assert.True(t, h.Check(time.Second, start.Add(500*time.Millisecond)))
	assert.False(t, h.Check(time.Second, start.Add(2*time.Second)))

	h.RecordPong(start.Add(2 * time.Second))
	stats := h.Stats()
	assert.True(t, stats.IsHealthy)
	assert.Zero(t, stats.MissedPongs)
	assert.Equal(t, int64(1), stats.PingsSent)
	assert.Equal(t, int64(1), stats.PongsReceived)
	assert.True(t, h.Check(time.Second, start.Add(2500*time.Millisecond)))
}
