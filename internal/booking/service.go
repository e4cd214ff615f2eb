// Package booking implements the pethouse booking and clinic consultation
// lifecycle: pending, confirmed, completed, cancelled.
package booking

import (
	"context"
	"fmt"
	"log"
	"time"

	"petbuddy-realtime/internal/identity"
	"petbuddy-realtime/internal/metrics"

	"github.com/google/uuid"
)

// Service applies lifecycle rules on top of a Repository.
type Service struct {
	repo    Repository
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewService(repo Repository, m *metrics.Metrics) *Service {
	return &Service{repo: repo, metrics: m, now: time.Now}
}

// Create stores a new pending booking owned by actor.
func (s *Service) Create(ctx context.Context, actor identity.Identity, req CreateRequest) (*Booking, error) {
	if actor.ID == "" || (actor.Role != "" && actor.Role != identity.RoleUser) {
		return nil, fmt.Errorf("%w: only users can create bookings", ErrForbidden)
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	b := &Booking{
		ID:           uuid.NewString(),
		UserID:       actor.ID,
		ProviderID:   req.ProviderID,
		ProviderKind: req.ProviderKind,
		PetID:        req.PetID,
		ServiceTypes: req.ServiceTypes,
		StartDate:    req.StartDate.UTC(),
		EndDate:      req.EndDate.UTC(),
		Mode:         req.Mode,
		Notes:        req.Notes,
		Payment: Payment{
			Amount: req.Payment.Amount,
			Method: req.Payment.Method,
			Status: PaymentPending,
		},
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, b); err != nil {
		return nil, err
	}

	log.Printf("📅 Booking %s created by %s with %s %s", b.ID, b.UserID, b.ProviderKind, b.ProviderID)
	return b, nil
}

// Get returns a booking visible to actor.
func (s *Service) Get(ctx context.Context, actor identity.Identity, id string) (*Booking, error) {
	b, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !b.IsOwner(actor) && !b.IsProvider(actor) {
		return nil, fmt.Errorf("%w: booking %s", ErrForbidden, id)
	}
	return b, nil
}

// List returns the actor's bookings: a user's own, or a provider's incoming.
func (s *Service) List(ctx context.Context, actor identity.Identity, status Status) ([]*Booking, error) {
	f := Filter{Status: status}
	switch actor.Role {
	case "", identity.RoleUser:
		f.UserID = actor.ID
	case identity.RolePethouse, identity.RoleClinic:
		f.ProviderID = actor.ID
	default:
		return nil, fmt.Errorf("%w: role %s has no bookings", ErrForbidden, actor.Role)
	}
	if actor.ID == "" {
		return nil, ErrForbidden
	}

	bookings, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, err
	}
	// provider เห็นแค่ booking ของ kind ตัวเอง
	if f.ProviderID != "" {
		own := bookings[:0]
		for _, b := range bookings {
			if b.IsProvider(actor) {
				own = append(own, b)
			}
		}
		bookings = own
	}
	return bookings, nil
}

// Transition applies action for actor. The stored status is only changed
// if it still matches the status the decision was made on.
func (s *Service) Transition(ctx context.Context, actor identity.Identity, id string, action Action) (*Booking, error) {
	b, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	next, err := Next(b, actor, action)
	if err != nil {
		log.Printf("⚠️ Booking %s: %v", id, err)
		return nil, err
	}

	updated, err := s.repo.UpdateStatus(ctx, id, b.Status, next, s.now().UTC())
	if err != nil {
		return nil, err
	}

	s.metrics.BookingTransition(string(next))
	log.Printf("📅 Booking %s %s -> %s by %s", id, b.Status, next, actor.ID)
	return updated, nil
}
