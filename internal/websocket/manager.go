package websocket

import (
	"context"
	"errors"
	"log"
	"sort"
	"sync"
	"time"

	"petbuddy-realtime/internal/config"
	"petbuddy-realtime/internal/metrics"
	"petbuddy-realtime/internal/room"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var (
	ErrServerFull         = errors.New("connection limit reached")
	ErrConnectionNotFound = errors.New("connection not found")
)

// Manager owns the set of live connections and delivers frames to them.
type Manager struct {
	connections    map[string]*Connection
	mutex          sync.RWMutex
	maxConnections int
	sendBuffer     int
	pongTimeout    time.Duration
	healthInterval time.Duration
	healthCheck    bool
	metrics        *metrics.Metrics
}

// NewManager creates a new WebSocket manager
func NewManager(cfg *config.ServerConfig, m *metrics.Metrics) *Manager {
	return &Manager{
		connections:    make(map[string]*Connection),
		maxConnections: cfg.MaxConnections,
		sendBuffer:     cfg.SendBuffer,
		pongTimeout:    cfg.PongTimeout,
		healthInterval: cfg.HealthCheckInterval,
		healthCheck:    cfg.EnableHealthCheck,
		metrics:        m,
	}
}

// Add registers a new socket under a fresh id.
func (m *Manager) Add(conn *websocket.Conn) (*Connection, error) {
	c := NewConnection(uuid.NewString(), conn, m.sendBuffer)
	if err := m.Register(c); err != nil {
		return nil, err
	}
	return c, nil
}

// Register adds an already constructed connection.
func (m *Manager) Register(c *Connection) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	// ตรวจสอบ connection limits
	if m.maxConnections > 0 && len(m.connections) >= m.maxConnections {
		m.metrics.ConnectionRejected()
		log.Printf("❌ Connection limit reached, rejecting: %s", c.ID)
		return ErrServerFull
	}

	m.connections[c.ID] = c
	m.metrics.ConnectionOpened()
	log.Printf("📝 Connection registered: %s (Total: %d/%d)", c.ID, len(m.connections), m.maxConnections)
	return nil
}

// Remove unregisters and closes a connection. Removing twice is a no-op.
func (m *Manager) Remove(connID string) {
	m.mutex.Lock()
	c, exists := m.connections[connID]
	if exists {
		delete(m.connections, connID)
	}
	total, limit := len(m.connections), m.maxConnections
	m.mutex.Unlock()

	if !exists {
		return
	}
	c.Close()
	m.metrics.ConnectionClosed()
	log.Printf("🗑️ Connection unregistered: %s (Total: %d/%d)", connID, total, limit)
}

// Get returns a connection by ID
func (m *Manager) Get(connID string) (*Connection, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	c, exists := m.connections[connID]
	return c, exists
}

// Count returns the number of active connections
func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.connections)
}

// IDs returns the sorted ids of all live connections.
func (m *Manager) IDs() []string {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	ids := make([]string, 0, len(m.connections))
	for id := range m.connections {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Send queues frame for connID. A connection whose queue is full is
// unresponsive and gets removed.
func (m *Manager) Send(connID string, frame []byte) error {
	c, ok := m.Get(connID)
	if !ok {
		return ErrConnectionNotFound
	}
	err := c.Enqueue(frame)
	if errors.Is(err, ErrSendBufferFull) {
		log.Printf("🔌 Removed unresponsive connection: %s", connID)
		m.Remove(connID)
	}
	return err
}

// BroadcastAll sends frame to every live connection except excludeID.
func (m *Manager) BroadcastAll(frame []byte, excludeID string) room.Delivery {
	var d room.Delivery
	for _, id := range m.IDs() {
		if id == excludeID {
			continue
		}
		d.Recipients++
		if err := m.Send(id, frame); err != nil {
			d.Dropped++
			continue
		}
		d.Delivered++
	}
	log.Printf("📡 Broadcasted message to %d connections (excluded: %s)", d.Delivered, excludeID)
	return d
}

// SetMaxConnections changes the limit for new connections; existing ones stay.
func (m *Manager) SetMaxConnections(n int) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.maxConnections = n
}

// HealthStats returns health statistics for all connections
func (m *Manager) HealthStats() map[string]HealthStats {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	stats := make(map[string]HealthStats, len(m.connections))
	for id, c := range m.connections {
		stats[id] = c.Health.Stats()
	}
	return stats
}

// Run performs periodic health checks until ctx is done, then closes
// every connection.
func (m *Manager) Run(ctx context.Context) {
	defer m.Shutdown()
	if !m.healthCheck || m.healthInterval <= 0 {
		<-ctx.Done()
		return
	}

	ticker := time.NewTicker(m.healthInterval)
	defer ticker.Stop()
	log.Printf("💓 Starting connection health monitor (interval: %v)", m.healthInterval)

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			m.checkHealth(now)
		}
	}
}

// checkHealth removes connections that missed their pong.
func (m *Manager) checkHealth(now time.Time) int {
	m.mutex.RLock()
	unhealthy := make([]*Connection, 0)
	for _, c := range m.connections {
		if !c.Health.Check(m.pongTimeout, now) {
			unhealthy = append(unhealthy, c)
		}
	}
	healthy := len(m.connections) - len(unhealthy)
	m.mutex.RUnlock()

	for _, c := range unhealthy {
		log.Printf("💔 Removing unhealthy connection: %s (missed pongs: %d)", c.ID, c.Health.Stats().MissedPongs)
		m.Remove(c.ID)
	}
	if len(unhealthy) > 0 {
		log.Printf("💓 Health check completed: %d healthy, %d removed", healthy, len(unhealthy))
	}
	return len(unhealthy)
}

// Shutdown closes every connection.
func (m *Manager) Shutdown() {
	ids := m.IDs()
	for _, id := range ids {
		m.Remove(id)
	}
	if len(ids) > 0 {
		log.Printf("🛑 Closed %d connections", len(ids))
	}
}
