package booking

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

var (
	ErrNotFound = errors.New("booking not found")
	// ErrConflict is returned when the stored status changed under a transition.
	ErrConflict = errors.New("booking status changed concurrently")
)

// Filter selects bookings for List. Empty fields match everything.
type Filter struct {
	UserID     string
	ProviderID string
	Status     Status
}

func (f Filter) match(b *Booking) bool {
	return (f.UserID == "" || b.UserID == f.UserID) &&
		(f.ProviderID == "" || b.ProviderID == f.ProviderID) &&
		(f.Status == "" || b.Status == f.Status)
}

// Repository stores bookings.
type Repository interface {
	Create(ctx context.Context, b *Booking) error
	Get(ctx context.Context, id string) (*Booking, error)
	// List returns matching bookings, newest first.
	List(ctx context.Context, f Filter) ([]*Booking, error)
	// UpdateStatus sets the status to `to` only if it is still `from`.
	UpdateStatus(ctx context.Context, id string, from, to Status, at time.Time) (*Booking, error)
}

// InMemoryRepository keeps bookings in process memory.
type InMemoryRepository struct {
	bookings map[string]*Booking
	mutex    sync.RWMutex
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{bookings: make(map[string]*Booking)}
}

func (r *InMemoryRepository) Create(ctx context.Context, b *Booking) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.bookings[b.ID]; exists {
		return ErrConflict
	}
	c := *b
	r.bookings[b.ID] = &c
	return nil
}

func (r *InMemoryRepository) Get(ctx context.Context, id string) (*Booking, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	b, ok := r.bookings[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := *b
	return &c, nil
}

func (r *InMemoryRepository) List(ctx context.Context, f Filter) ([]*Booking, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mutex.RLock()
	result := make([]*Booking, 0)
	for _, b := range r.bookings {
		if f.match(b) {
			c := *b
			result = append(result, &c)
		}
	}
	r.mutex.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID > result[j].ID
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (r *InMemoryRepository) UpdateStatus(ctx context.Context, id string, from, to Status, at time.Time) (*Booking, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mutex.Lock()
	defer r.mutex.Unlock()

	b, ok := r.bookings[id]
	if !ok {
		return nil, ErrNotFound
	}
	if b.Status != from {
		return nil, ErrConflict
	}
	b.Status = to
	b.UpdatedAt = at
	c := *b
	return &c, nil
}
