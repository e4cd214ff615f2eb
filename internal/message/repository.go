package message

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// DefaultHistoryLimit applies when a caller passes a non-positive limit.
const DefaultHistoryLimit = 50

// ErrInvalidMessage is returned for messages missing a ticket or body.
var ErrInvalidMessage = errors.New("invalid message")

// Repository persists chat messages per ticket.
type Repository interface {
	// SaveMessage stores msg and sets its ID.
	SaveMessage(ctx context.Context, msg *Message) error
	// GetHistory returns the newest limit messages of a ticket, oldest first.
	GetHistory(ctx context.Context, ticketID string, limit int) ([]*Message, error)
}

// InMemoryRepository keeps messages in process memory.
type InMemoryRepository struct {
	messages map[string][]*Message // ticket id -> messages in insert order
	mutex    sync.RWMutex
}

// NewInMemoryRepository creates an empty in-memory repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		messages: make(map[string][]*Message),
	}
}

func (r *InMemoryRepository) SaveMessage(ctx context.Context, msg *Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if msg == nil || msg.TicketID == "" || msg.Body == "" {
		return ErrInvalidMessage
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	msg.ID = uuid.NewString()
	stored := *msg
	r.messages[msg.TicketID] = append(r.messages[msg.TicketID], &stored)
	return nil
}

func (r *InMemoryRepository) GetHistory(ctx context.Context, ticketID string, limit int) ([]*Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	r.mutex.RLock()
	all := make([]*Message, len(r.messages[ticketID]))
	copy(all, r.messages[ticketID])
	r.mutex.RUnlock()

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Timestamp.Before(all[j].Timestamp)
	})
	if len(all) > limit {
		all = all[len(all)-limit:]
	}

	history := make([]*Message, 0, len(all))
	for _, m := range all {
		c := *m
		history = append(history, &c)
	}
	return history, nil
}
