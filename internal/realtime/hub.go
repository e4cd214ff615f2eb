// Package realtime upgrades HTTP requests to websocket sessions and routes
// each inbound event to the chat relay, the signaling coordinator or the
// location broadcaster.
package realtime

import (
	"context"
	"log"
	"net/http"
	"time"

	"petbuddy-realtime/internal/chat"
	"petbuddy-realtime/internal/config"
	"petbuddy-realtime/internal/identity"
	"petbuddy-realtime/internal/location"
	"petbuddy-realtime/internal/metrics"
	"petbuddy-realtime/internal/room"
	"petbuddy-realtime/internal/security"
	"petbuddy-realtime/internal/signaling"
	"petbuddy-realtime/internal/websocket"

	gorillaws "github.com/gorilla/websocket"
)

// Deps are the components a Hub routes to.
type Deps struct {
	Manager     *websocket.Manager
	Registry    *room.Registry
	Relay       *chat.Relay
	Calls       *signaling.Coordinator
	Location    location.Broadcaster
	Resolver    identity.Resolver
	Validator   *security.InputValidator
	Metrics     *metrics.Metrics
	CheckOrigin func(r *http.Request) bool
}

// Hub is the /ws endpoint.
type Hub struct {
	Deps
	ctx       context.Context
	pump      websocket.PumpConfig
	opTimeout time.Duration
	upgrader  gorillaws.Upgrader
}

// NewHub creates a hub. ctx bounds identity and persistence calls made on
// behalf of connections.
func NewHub(ctx context.Context, cfg *config.ServerConfig, deps Deps) *Hub {
	checkOrigin := deps.CheckOrigin
	if checkOrigin == nil {
		// อนุญาตทุก origin ถ้าไม่ได้กำหนด
		checkOrigin = func(*http.Request) bool { return true }
	}
	opTimeout := cfg.MongoOpTimeout
	if opTimeout <= 0 {
		opTimeout = 5 * time.Second
	}
	return &Hub{
		Deps: deps,
		ctx:  ctx,
		pump: websocket.PumpConfig{
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			PingInterval: cfg.HeartbeatInterval,
		},
		opTimeout: opTimeout,
		upgrader: gorillaws.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
	}
}

// ServeHTTP upgrades the request and starts the connection's pumps.
// A credential may be presented up front as a Bearer header or ?token=.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := identity.BearerToken(r.Header.Get("Authorization"))
	if token == "" {
		token = r.URL.Query().Get("token")
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Failed to upgrade connection: %v", err)
		return
	}

	c, err := h.Manager.Add(conn)
	if err != nil {
		msg := gorillaws.FormatCloseMessage(gorillaws.CloseTryAgainLater, "server full")
		conn.WriteControl(gorillaws.CloseMessage, msg, time.Now().Add(time.Second))
		conn.Close()
		return
	}
	log.Printf("🔗 New WebSocket connection: %s (ID: %s)", c.RemoteAddr, c.ID)

	if token != "" {
		h.authenticate(c, token)
	}

	go c.WritePump(h.pump)
	go h.readLoop(c)
}

func (h *Hub) readLoop(c *websocket.Connection) {
	defer h.disconnect(c)
	c.ReadPump(h.pump, func(raw []byte) {
		h.dispatch(c, raw)
	})
}

// disconnect tears down every membership of c.
func (h *Hub) disconnect(c *websocket.Connection) {
	h.Calls.Disconnect(c.ID)
	left := h.Registry.LeaveAll(c.ID)
	h.Manager.Remove(c.ID)
	log.Printf("🔌 Connection closed: %s (ID: %s, left %d rooms)", c.RemoteAddr, c.ID, len(left))
}

// authenticate binds the identity carried by token unless one is bound already.
func (h *Hub) authenticate(c *websocket.Connection, token string) error {
	if _, ok := c.Identity(); ok {
		return nil
	}

	ctx, cancel := context.WithTimeout(h.ctx, h.opTimeout)
	defer cancel()

	id, err := h.Resolver.Resolve(ctx, token)
	if err != nil {
		log.Printf("⚠️ Credential rejected for %s: %v", c.ID, err)
		return err
	}
	if c.SetIdentity(id) {
		log.Printf("🔐 %s authenticated as %s (%s)", c.ID, id.ID, id.Role)
	}
	return nil
}

// Stats is a snapshot for the health endpoint.
type Stats struct {
	Connections int `json:"connections"`
	Rooms       int `json:"rooms"`
}

func (h *Hub) Stats() Stats {
	return Stats{
		Connections: h.Manager.Count(),
		Rooms:       h.Registry.RoomCount(),
	}
}
