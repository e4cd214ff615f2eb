package booking

import (
	"errors"
	"fmt"

	"petbuddy-realtime/internal/identity"
)

var (
	// ErrForbidden is returned when the actor may not perform the action.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidTransition is an ErrForbidden for transitions the current status does not allow.
	ErrInvalidTransition = fmt.Errorf("%w: invalid status transition", ErrForbidden)
	ErrUnknownAction     = errors.New("unknown booking action")
)

// Action is a requested lifecycle transition.
type Action string

const (
	ActionAccept   Action = "accept"
	ActionCancel   Action = "cancel"
	ActionComplete Action = "complete"
)

// ParseAction maps a path segment to an Action.
func ParseAction(s string) (Action, error) {
	switch a := Action(s); a {
	case ActionAccept, ActionCancel, ActionComplete:
		return a, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAction, s)
}

// IsProvider reports whether actor is the pethouse or clinic the booking was made with.
func (b *Booking) IsProvider(actor identity.Identity) bool {
	return actor.ID != "" && actor.ID == b.ProviderID && string(actor.Role) == string(b.ProviderKind)
}

// IsOwner reports whether actor is the user who made the booking.
func (b *Booking) IsOwner(actor identity.Identity) bool {
	return actor.ID != "" && actor.ID == b.UserID && (actor.Role == "" || actor.Role == identity.RoleUser)
}

// Next returns the status action moves b to when performed by actor.
//
//	pending   -> confirmed (accept, provider)
//	pending   -> cancelled (cancel, provider or owner)
//	confirmed -> completed (complete, provider)
//	confirmed -> cancelled (cancel, provider or owner)
func Next(b *Booking, actor identity.Identity, action Action) (Status, error) {
	var allowed bool
	switch action {
	case ActionAccept, ActionComplete:
		allowed = b.IsProvider(actor)
	case ActionCancel:
		allowed = b.IsProvider(actor) || b.IsOwner(actor)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
	if !allowed {
		return "", fmt.Errorf("%w: %s may not %s booking %s", ErrForbidden, actor.ID, action, b.ID)
	}
	if b.Status.Terminal() {
		return "", fmt.Errorf("%w: booking %s is already %s", ErrInvalidTransition, b.ID, b.Status)
	}

	switch {
	case action == ActionAccept && b.Status == StatusPending:
		return StatusConfirmed, nil
	case action == ActionComplete && b.Status == StatusConfirmed:
		return StatusCompleted, nil
	case action == ActionCancel && (b.Status == StatusPending || b.Status == StatusConfirmed):
		return StatusCancelled, nil
	}
	return "", fmt.Errorf("%w: cannot %s a %s booking", ErrInvalidTransition, action, b.Status)
}
