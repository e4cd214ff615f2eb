package websocket

import (
	"sync"
	"time"
)

// HealthStats is a point-in-time copy of a connection's health.
type HealthStats struct {
	IsHealthy     bool      `json:"is_healthy"`
	LastPingTime  time.Time `json:"last_ping_time"`
	LastPongTime  time.Time `json:"last_pong_time"`
	PingsSent     int64     `json:"pings_sent"`
	PongsReceived int64     `json:"pongs_received"`
	MissedPongs   int64     `json:"missed_pongs"`
	ConnectedAt   time.Time `json:"connected_at"`
	LastActivity  time.Time `json:"last_activity"`
}

// ConnectionHealth tracks ping/pong liveness of one connection.
type ConnectionHealth struct {
	stats HealthStats
	mutex sync.RWMutex
}

// NewConnectionHealth creates a new connection health tracker
func NewConnectionHealth(now time.Time) *ConnectionHealth {
	return &ConnectionHealth{
		stats: HealthStats{
			IsHealthy:    true,
			ConnectedAt:  now,
			LastActivity: now,
		},
	}
}

func (h *ConnectionHealth) RecordPing(now time.Time) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.stats.LastPingTime = now
	h.stats.PingsSent++
}

func (h *ConnectionHealth) RecordPong(now time.Time) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.stats.LastPongTime = now
	h.stats.PongsReceived++
	h.stats.IsHealthy = true
	h.stats.MissedPongs = 0
}

func (h *ConnectionHealth) RecordActivity(now time.Time) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.stats.LastActivity = now
}

// Check reports whether a pong arrived within pongTimeout of the last ping.
func (h *ConnectionHealth) Check(pongTimeout time.Duration, now time.Time) bool {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	// ยังไม่เคยส่ง ping ถือว่า healthy
	if h.stats.LastPingTime.IsZero() {
		return true
	}

	last := h.stats.LastPongTime
	if last.IsZero() {
		last = h.stats.LastPingTime
	}
	if now.Sub(last) > pongTimeout {
		h.stats.IsHealthy = false
		h.stats.MissedPongs++
		return false
	}
	return h.stats.IsHealthy
}

func (h *ConnectionHealth) Stats() HealthStats {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return h.stats
}
