package websocket

import (
	"errors"
	"sync"
	"time"

	"petbuddy-realtime/internal/identity"

	"github.com/gorilla/websocket"
)

var (
	ErrConnectionClosed = errors.New("connection closed")
	ErrSendBufferFull   = errors.New("send buffer full")
)

// Connection is one live websocket session.
type Connection struct {
	ID         string
	RemoteAddr string
	Health     *ConnectionHealth

	conn *websocket.Conn
	send chan []byte

	identity    identity.Identity
	hasIdentity bool
	closed      bool
	mutex       sync.RWMutex
}

// NewConnection wraps conn with an outbound queue of sendBuffer frames.
// conn may be nil in tests that only exercise queueing.
func NewConnection(id string, conn *websocket.Conn, sendBuffer int) *Connection {
	c := &Connection{
		ID:     id,
		Health: NewConnectionHealth(time.Now()),
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
	}
	if conn != nil {
		c.RemoteAddr = conn.RemoteAddr().String()
	}
	return c
}

// Identity returns the caller bound to this connection, if any.
func (c *Connection) Identity() (identity.Identity, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.identity, c.hasIdentity
}

// SetIdentity binds id to the connection. Only the first call has an
// effect; it reports whether id was bound.
func (c *Connection) SetIdentity(id identity.Identity) bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.hasIdentity {
		return false
	}
	c.identity = id
	c.hasIdentity = true
	return true
}

// Enqueue queues frame for the write pump without blocking.
func (c *Connection) Enqueue(frame []byte) error {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	if c.closed {
		return ErrConnectionClosed
	}
	select {
	case c.send <- frame:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// Close stops the outbound queue; the write pump then closes the socket.
// It reports whether this call closed the connection.
func (c *Connection) Close() bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.closed {
		return false
	}
	c.closed = true
	close(c.send)
	return true
}

// Closed reports whether Close was called.
func (c *Connection) Closed() bool {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.closed
}
