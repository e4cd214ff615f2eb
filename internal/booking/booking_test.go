package booking

import (
	"context"
	"testing"
	"time"

	"petbuddy-realtime/internal/identity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	owner    = identity.Identity{ID: "user-1", Role: identity.RoleUser}
	pethouse = identity.Identity{ID: "ph-1", Role: identity.RolePethouse}
	clinic   = identity.Identity{ID: "cl-1", Role: identity.RoleClinic}
	stranger = identity.Identity{ID: "user-2", Role: identity.RoleUser}
)

func pethouseRequest() CreateRequest {
	start := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	req := CreateRequest{
		ProviderID:   "ph-1",
		ProviderKind: ProviderPethouse,
		PetID:        "pet-1",
		ServiceTypes: []ServiceType{{Name: "boarding", PetType: "small dog", Price: 500}},
		StartDate:    start,
		EndDate:      start.Add(48 * time.Hour),
	}
	req.Payment.Amount = 1000
	req.Payment.Method = PaymentUPI
	return req
}

func TestService_BookingScenario(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewInMemoryRepository(), nil)

	b, err := svc.Create(ctx, owner, pethouseRequest())
	require.NoError(t, err)
	assert.Equal(t, StatusPending, b.Status)
	assert.Equal(t, "user-1", b.UserID)
	assert.Equal(t, PaymentPending, b.Payment.Status)

	_, err = svc.Transition(ctx, stranger, b.ID, ActionAccept)
	assert.ErrorIs(t, err, ErrForbidden)
	got, err := svc.Get(ctx, owner, b.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status)

	accepted, err := svc.Transition(ctx, pethouse, b.ID, ActionAccept)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, accepted.Status)

	cancelled, err := svc.Transition(ctx, pethouse, b.ID, ActionCancel)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)

	_, err = svc.Transition(ctx, pethouse, b.ID, ActionAccept)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = svc.Transition(ctx, owner, b.ID, ActionCancel)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestNext(t *testing.T) {
	cases := []struct {
		name   string
		status Status
		actor  identity.Identity
		action Action
		want   Status
		err    error
	}{
		{"provider accepts", StatusPending, pethouse, ActionAccept, StatusConfirmed, nil},
		{"owner cannot accept", StatusPending, owner, ActionAccept, "", ErrForbidden},
		{"owner cancels pending", StatusPending, owner, ActionCancel, StatusCancelled, nil},
		{"owner cancels confirmed", StatusConfirmed, owner, ActionCancel, StatusCancelled, nil},
		{"provider completes", StatusConfirmed, pethouse, ActionComplete, StatusCompleted, nil},
		{"complete pending", StatusPending, pethouse, ActionComplete, "", ErrInvalidTransition},
		{"accept confirmed", StatusConfirmed, pethouse, ActionAccept, "", ErrInvalidTransition},
		{"cancel completed", StatusCompleted, owner, ActionCancel, "", ErrInvalidTransition},
		{"cancel cancelled", StatusCancelled, pethouse, ActionCancel, "", ErrInvalidTransition},
		{"accept cancelled", StatusCancelled, pethouse, ActionAccept, "", ErrInvalidTransition},
		{"complete completed", StatusCompleted, pethouse, ActionComplete, "", ErrInvalidTransition},
		{"wrong provider kind", StatusPending, identity.Identity{ID: "ph-1", Role: identity.RoleClinic}, ActionAccept, "", ErrForbidden},
		{"unknown action", StatusPending, pethouse, Action("refund"), "", ErrUnknownAction},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := &Booking{ID: "b", UserID: "user-1", ProviderID: "ph-1", ProviderKind: ProviderPethouse, Status: tc.status}
			got, err := Next(b, tc.actor, tc.action)
			if tc.err != nil {
				assert.ErrorIs(t, err, tc.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestStatus_Terminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusConfirmed.Terminal())
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusCancelled.Terminal())
}

func TestService_TransitionConflict(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryRepository()
	svc := NewService(repo, nil)

	b, err := svc.Create(ctx, owner, pethouseRequest())
	require.NoError(t, err)

	// someone else cancels between read and write
	_, err = repo.UpdateStatus(ctx, b.ID, StatusPending, StatusCancelled, time.Now())
	require.NoError(t, err)
	_, err = repo.UpdateStatus(ctx, b.ID, StatusPending, StatusConfirmed, time.Now())
	assert.ErrorIs(t, err, ErrConflict)

	_, err = svc.Transition(ctx, pethouse, "missing", ActionAccept)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestService_ClinicConsultation(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewInMemoryRepository(), nil)

	req := CreateRequest{
		ProviderID:   "cl-1",
		ProviderKind: ProviderClinic,
		PetID:        "pet-1",
		StartDate:    time.Date(2024, 6, 2, 15, 0, 0, 0, time.UTC),
		Mode:         ModeVideoCall,
		Notes:        "itchy ears",
	}
	req.Payment.Method = PaymentCard

	b, err := svc.Create(ctx, owner, req)
	require.NoError(t, err)
	assert.Equal(t, b.StartDate, b.EndDate)

	_, err = svc.Transition(ctx, pethouse, b.ID, ActionAccept)
	assert.ErrorIs(t, err, ErrForbidden)
	confirmed, err := svc.Transition(ctx, clinic, b.ID, ActionAccept)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, confirmed.Status)
	done, err := svc.Transition(ctx, clinic, b.ID, ActionComplete)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, done.Status)
}

func TestService_CreateValidation(t *testing.T) {
	svc := NewService(NewInMemoryRepository(), nil)

	_, err := svc.Create(context.Background(), pethouse, pethouseRequest())
	assert.ErrorIs(t, err, ErrForbidden)

	for name, mutate := range map[string]func(*CreateRequest){
		"no provider":    func(r *CreateRequest) { r.ProviderID = " " },
		"bad kind":       func(r *CreateRequest) { r.ProviderKind = "groomer" },
		"no services":    func(r *CreateRequest) { r.ServiceTypes = nil },
		"end before":     func(r *CreateRequest) { r.EndDate = r.StartDate.Add(-time.Hour) },
		"bad method":     func(r *CreateRequest) { r.Payment.Method = "cheque" },
		"pethouse mode":  func(r *CreateRequest) { r.Mode = ModeVideoCall },
		"negative price": func(r *CreateRequest) { r.Payment.Amount = -1 },
	} {
		t.Run(name, func(t *testing.T) {
			req := pethouseRequest()
			mutate(&req)
			_, err := svc.Create(context.Background(), owner, req)
			assert.ErrorIs(t, err, ErrInvalidBooking)
		})
	}
}

func TestService_ListAndGetVisibility(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewInMemoryRepository(), nil)

	b, err := svc.Create(ctx, owner, pethouseRequest())
	require.NoError(t, err)

	mine, err := svc.List(ctx, owner, "")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	incoming, err := svc.List(ctx, pethouse, StatusPending)
	require.NoError(t, err)
	require.Len(t, incoming, 1)
	none, err := svc.List(ctx, stranger, "")
	require.NoError(t, err)
	assert.Empty(t, none)
	confirmed, err := svc.List(ctx, pethouse, StatusConfirmed)
	require.NoError(t, err)
	assert.Empty(t, confirmed)

	_, err = svc.List(ctx, identity.Identity{ID: "d-1", Role: identity.RoleDriver}, "")
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = svc.Get(ctx, stranger, b.ID)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestParseAction(t *testing.T) {
	a, err := ParseAction("complete")
	require.NoError(t, err)
	assert.Equal(t, ActionComplete, a)

	_, err = ParseAction("status")
	assert.ErrorIs(t, err, ErrUnknownAction)
}
