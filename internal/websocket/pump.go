package websocket

import (
	"log"
	"time"

	"github.com/gorilla/websocket"
)

// PumpConfig holds socket timings for the read and write pumps.
type PumpConfig struct {
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PingInterval time.Duration
}

// WritePump drains the outbound queue to the socket and sends pings.
// It returns, closing the socket, when the queue is closed or a write fails.
func (c *Connection) WritePump(cfg PumpConfig) {
	ticker := time.NewTicker(cfg.PingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout))
			if !ok {
				// queue ถูกปิด
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				log.Printf("❌ Failed to send message to %s: %v", c.ID, err)
				return
			}
			c.Health.RecordActivity(time.Now())

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Printf("❌ Failed to send ping to %s: %v", c.ID, err)
				return
			}
			c.Health.RecordPing(time.Now())
		}
	}
}

// ReadPump reads text frames and hands each to handle, one at a time, in
// arrival order. It returns when the socket fails or the peer closes it.
func (c *Connection) ReadPump(cfg PumpConfig, handle func(raw []byte)) {
	defer c.conn.Close()

	c.conn.SetReadDeadline(time.Now().Add(cfg.ReadTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.Health.RecordPong(time.Now())
		return c.conn.SetReadDeadline(time.Now().Add(cfg.ReadTimeout))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("❌ WebSocket error from %s: %v", c.ID, err)
			}
			return
		}
		c.Health.RecordActivity(time.Now())
		c.conn.SetReadDeadline(time.Now().Add(cfg.ReadTimeout))
		handle(raw)
	}
}
