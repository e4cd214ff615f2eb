package chat

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"petbuddy-realtime/internal/identity"
	"petbuddy-realtime/internal/message"
	"petbuddy-realtime/internal/protocol"
	"petbuddy-realtime/internal/room"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type inbox struct {
	mu     sync.Mutex
	frames map[string][]protocol.Frame
}

func newInbox() *inbox { return &inbox{frames: map[string][]protocol.Frame{}} }

func (i *inbox) Send(connID string, frame []byte) error {
	var f struct {
		Event string          `json:"event"`
		Data  json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(frame, &f); err != nil {
		return err
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	i.frames[connID] = append(i.frames[connID], protocol.Frame{Event: f.Event, Data: f.Data})
	return nil
}

func (i *inbox) count(connID string) int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.frames[connID])
}

type failingRepo struct{ message.Repository }

func (failingRepo) SaveMessage(context.Context, *message.Message) error {
	return errors.New("mongo unavailable")
}

func newTestRelay(repo message.Repository) (*Relay, *inbox) {
	box := newInbox()
	return NewRelay(room.NewRegistry(box), repo, nil, 100), box
}

var asha = identity.Identity{ID: "u-1", Name: "Asha", Role: identity.RoleUser}

func TestRelay_SendBroadcastsToOtherMembers(t *testing.T) {
	relay, box := newTestRelay(message.NewInMemoryRepository())
	relay.Join("c1", "T-1")
	relay.Join("c2", "T-1")
	relay.Join("c3", "T-2")

	msg, d, err := relay.Send(context.Background(), "c1", asha, protocol.SendMessage{TicketID: "T-1", Message: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "u-1", msg.SenderID)
	assert.Equal(t, "Asha", msg.SenderName)
	assert.Equal(t, room.Delivery{Recipients: 1, Delivered: 1}, d)

	assert.Zero(t, box.count("c1"))
	assert.Zero(t, box.count("c3"))
	require.Equal(t, 1, box.count("c2"))

	got := box.frames["c2"][0]
	assert.Equal(t, protocol.EventReceiveMessage, got.Event)
	var rm protocol.ReceiveMessage
	require.NoError(t, json.Unmarshal(got.Data.(json.RawMessage), &rm))
	assert.Equal(t, "hello", rm.Message)
	assert.Equal(t, "T-1", rm.TicketID)
	assert.Equal(t, msg.ID, rm.ID)
}

func TestRelay_HistoryRoundTrip(t *testing.T) {
	relay, _ := newTestRelay(message.NewInMemoryRepository())
	before := time.Now().UTC()

	sent, _, err := relay.Send(context.Background(), "c1", asha, protocol.SendMessage{TicketID: "T-1", Message: "M"})
	require.NoError(t, err)

	history, err := relay.History(context.Background(), "T-1", 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, sent.ID, history[0].ID)
	assert.Equal(t, "M", history[0].Body)
	assert.False(t, history[0].Timestamp.Before(before))
}

func TestRelay_ResendIsNotDeduplicated(t *testing.T) {
	relay, box := newTestRelay(message.NewInMemoryRepository())
	relay.Join("c2", "T-1")
	req := protocol.SendMessage{TicketID: "T-1", Message: "same"}

	_, _, err := relay.Send(context.Background(), "c1", asha, req)
	require.NoError(t, err)
	_, _, err = relay.Send(context.Background(), "c1", asha, req)
	require.NoError(t, err)

	history, err := relay.History(context.Background(), "T-1", 10)
	require.NoError(t, err)
	assert.Len(t, history, 2)
	assert.Equal(t, 2, box.count("c2"))
}

func TestRelay_PersistFailureSkipsBroadcast(t *testing.T) {
	relay, box := newTestRelay(failingRepo{})
	relay.Join("c1", "T-1")
	relay.Join("c2", "T-1")

	msg, d, err := relay.Send(context.Background(), "c1", asha, protocol.SendMessage{TicketID: "T-1", Message: "lost"})
	assert.ErrorIs(t, err, ErrPersistence)
	assert.Nil(t, msg)
	assert.Equal(t, room.Delivery{}, d)
	assert.Zero(t, box.count("c2"))
}

func TestRelay_SenderMismatch(t *testing.T) {
	relay, box := newTestRelay(message.NewInMemoryRepository())
	relay.Join("c2", "T-1")

	_, _, err := relay.Send(context.Background(), "c1", asha, protocol.SendMessage{TicketID: "T-1", SenderID: "someone-else", Message: "x"})
	assert.ErrorIs(t, err, ErrSenderMismatch)
	assert.Zero(t, box.count("c2"))

	msg, _, err := relay.Send(context.Background(), "c1", asha, protocol.SendMessage{TicketID: "T-1", SenderID: "u-1", SenderName: "Asha K", Message: "x"})
	require.NoError(t, err)
	assert.Equal(t, "Asha K", msg.SenderName)
}

func TestRelay_NoExclusionForRESTSend(t *testing.T) {
	relay, box := newTestRelay(message.NewInMemoryRepository())
	relay.Join("c1", "T-1")
	relay.Join("c2", "T-1")

	_, d, err := relay.Send(context.Background(), "", asha, protocol.SendMessage{TicketID: "T-1", Message: "from rest"})
	require.NoError(t, err)
	assert.Equal(t, 2, d.Delivered)
	assert.Equal(t, 1, box.count("c1"))
}

func TestRelay_LeaveStopsDelivery(t *testing.T) {
	relay, box := newTestRelay(message.NewInMemoryRepository())
	relay.Join("c2", "T-1")
	assert.True(t, relay.Leave("c2", "T-1"))
	assert.False(t, relay.Leave("c2", "T-1"))

	_, d, err := relay.Send(context.Background(), "c1", asha, protocol.SendMessage{TicketID: "T-1", Message: "x"})
	require.NoError(t, err)
	assert.Zero(t, d.Recipients)
	assert.Zero(t, box.count("c2"))
}
