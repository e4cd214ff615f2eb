// Package chat relays ticket chat messages: persist first, then fan out to
// the other members of the ticket room.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"petbuddy-realtime/internal/identity"
	"petbuddy-realtime/internal/message"
	"petbuddy-realtime/internal/metrics"
	"petbuddy-realtime/internal/protocol"
	"petbuddy-realtime/internal/room"
)

var (
	// ErrSenderMismatch is returned when the payload names a sender other than the caller.
	ErrSenderMismatch = errors.New("sender does not match identity")
	// ErrPersistence wraps failures of the message store.
	ErrPersistence = errors.New("message persistence failed")
)

// Relay joins connections to ticket rooms and relays messages between them.
type Relay struct {
	registry     *room.Registry
	repo         message.Repository
	metrics      *metrics.Metrics
	historyLimit int
	now          func() time.Time
}

// NewRelay creates a relay. historyLimit caps History when the caller passes no limit.
func NewRelay(registry *room.Registry, repo message.Repository, m *metrics.Metrics, historyLimit int) *Relay {
	if historyLimit <= 0 {
		historyLimit = message.DefaultHistoryLimit
	}
	return &Relay{
		registry:     registry,
		repo:         repo,
		metrics:      m,
		historyLimit: historyLimit,
		now:          time.Now,
	}
}

// Join adds connID to the ticket room. There is no authorization check here.
func (r *Relay) Join(connID, ticketID string) bool {
	return r.registry.Join(connID, room.ChatKey(ticketID))
}

// Leave removes connID from the ticket room.
func (r *Relay) Leave(connID, ticketID string) bool {
	return r.registry.Leave(connID, room.ChatKey(ticketID))
}

// Send persists req as sender's message and, only if that succeeds,
// broadcasts receiveMessage to the ticket room excluding connID.
// connID may be empty for messages that did not arrive over a socket.
func (r *Relay) Send(ctx context.Context, connID string, sender identity.Identity, req protocol.SendMessage) (*message.Message, room.Delivery, error) {
	if req.SenderID != "" && req.SenderID != sender.ID {
		return nil, room.Delivery{}, fmt.Errorf("%w: %s", ErrSenderMismatch, req.SenderID)
	}

	name := req.SenderName
	if name == "" {
		name = sender.Name
	}
	msg := &message.Message{
		TicketID:   req.TicketID,
		SenderID:   sender.ID,
		SenderName: name,
		Body:       req.Message,
		Timestamp:  r.now().UTC(),
	}

	if err := r.repo.SaveMessage(ctx, msg); err != nil {
		r.metrics.MessageFailed()
		log.Printf("❌ Failed to persist message for ticket %s from %s: %v", msg.TicketID, msg.SenderID, err)
		return nil, room.Delivery{}, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	r.metrics.MessagePersisted()

	frame := protocol.MustEncode(protocol.EventReceiveMessage, protocol.ReceiveMessage{
		ID:         msg.ID,
		TicketID:   msg.TicketID,
		SenderID:   msg.SenderID,
		SenderName: msg.SenderName,
		Message:    msg.Body,
		Timestamp:  msg.Timestamp,
	})
	d := r.registry.Broadcast(room.ChatKey(msg.TicketID), frame, connID)
	r.metrics.Delivered(d.Delivered, d.Dropped)

	log.Printf("💬 Message %s on ticket %s from %s relayed to %d members", msg.ID, msg.TicketID, msg.SenderID, d.Delivered)
	return msg, d, nil
}

// History returns the newest messages of a ticket, oldest first.
func (r *Relay) History(ctx context.Context, ticketID string, limit int) ([]*message.Message, error) {
	if limit <= 0 || limit > r.historyLimit {
		limit = r.historyLimit
	}
	history, err := r.repo.GetHistory(ctx, ticketID, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return history, nil
}
