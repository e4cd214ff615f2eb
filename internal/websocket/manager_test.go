package websocket

import (
	"context"
	"testing"
	"time"

	"petbuddy-realtime/internal/config"
	"petbuddy-realtime/internal/identity"
	"petbuddy-realtime/internal/room"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.ServerConfig {
	cfg := config.DefaultServerConfig()
	cfg.MaxConnections = 3
	cfg.SendBuffer = 2
	cfg.PongTimeout = time.Second
	return cfg
}

func TestConnection_IdentityIsSetOnce(t *testing.T) {
	c := NewConnection("c1", nil, 1)
	_, ok := c.Identity()
	assert.False(t, ok)

	assert.True(t, c.SetIdentity(identity.Identity{ID: "u-1"}))
	assert.False(t, c.SetIdentity(identity.Identity{ID: "u-2"}))

	id, ok := c.Identity()
	require.True(t, ok)
	assert.Equal(t, "u-1", id.ID)
}

func TestConnection_EnqueueAndClose(t *testing.T) {
	c := NewConnection("c1", nil, 1)
	require.NoError(t, c.Enqueue([]byte("a")))
	assert.ErrorIs(t, c.Enqueue([]byte("b")), ErrSendBufferFull)

	assert.True(t, c.Close())
	assert.False(t, c.Close())
	assert.True(t, c.Closed())
	assert.ErrorIs(t, c.Enqueue([]byte("c")), ErrConnectionClosed)

	frame, ok := <-c.send
	assert.True(t, ok)
	assert.Equal(t, "a", string(frame))
	_, ok = <-c.send
	assert.False(t, ok)
}

func TestManager_ConnectionLimit(t *testing.T) {
	m := NewManager(testConfig(), nil)
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, m.Register(NewConnection(id, nil, 1)))
	}
	assert.ErrorIs(t, m.Register(NewConnection("d", nil, 1)), ErrServerFull)

	m.SetMaxConnections(4)
	require.NoError(t, m.Register(NewConnection("d", nil, 1)))
	assert.Equal(t, 4, m.Count())

	m.Remove("a")
	m.Remove("a")
	assert.Equal(t, []string{"b", "c", "d"}, m.IDs())
}

func TestManager_SendRemovesUnresponsive(t *testing.T) {
	m := NewManager(testConfig(), nil)
	c := NewConnection("slow", nil, 1)
	require.NoError(t, m.Register(c))

	require.NoError(t, m.Send("slow", []byte("1")))
	assert.ErrorIs(t, m.Send("slow", []byte("2")), ErrSendBufferFull)

	_, exists := m.Get("slow")
	assert.False(t, exists)
	assert.True(t, c.Closed())
	assert.ErrorIs(t, m.Send("slow", []byte("3")), ErrConnectionNotFound)
}

func TestManager_BroadcastAll(t *testing.T) {
	m := NewManager(testConfig(), nil)
	conns := map[string]*Connection{}
	for _, id := range []string{"a", "b", "c"} {
		conns[id] = NewConnection(id, nil, 2)
		require.NoError(t, m.Register(conns[id]))
	}

	d := m.BroadcastAll([]byte("loc"), "a")
	assert.Equal(t, room.Delivery{Recipients: 2, Delivered: 2}, d)
	assert.Len(t, conns["a"].send, 0)
	assert.Len(t, conns["b"].send, 1)
	assert.Len(t, conns["c"].send, 1)
}

func TestManager_IsRegistrySender(t *testing.T) {
	m := NewManager(testConfig(), nil)
	c := NewConnection("a", nil, 2)
	require.NoError(t, m.Register(c))

	reg := room.NewRegistry(m)
	reg.Join("a", room.ChatKey("T"))
	reg.Join("gone", room.ChatKey("T"))

	d := reg.Broadcast(room.ChatKey("T"), []byte("x"), "")
	assert.Equal(t, room.Delivery{Recipients: 2, Delivered: 1, Dropped: 1}, d)
}

func TestManager_CheckHealth(t *testing.T) {
	m := NewManager(testConfig(), nil)
	now := time.Now()

	alive := NewConnection("alive", nil, 1)
	stale := NewConnection("stale", nil, 1)
	fresh := NewConnection("fresh", nil, 1)
	for _, c := range []*Connection{alive, stale, fresh} {
		require.NoError(t, m.Register(c))
	}

	alive.Health.RecordPing(now.Add(-500 * time.Millisecond))
	alive.Health.RecordPong(now.Add(-400 * time.Millisecond))
	stale.Health.RecordPing(now.Add(-5 * time.Second))

	assert.Equal(t, 1, m.checkHealth(now))
	assert.Equal(t, []string{"alive", "fresh"}, m.IDs())
	assert.True(t, stale.Closed())
	assert.Equal(t, int64(1), stale.Health.Stats().MissedPongs)
}

func TestManager_RunShutsDownOnCancel(t *testing.T) {
	cfg := testConfig()
	cfg.HealthCheckInterval = 10 * time.Millisecond
	m := NewManager(cfg, nil)
	c := NewConnection("a", nil, 1)
	require.NoError(t, m.Register(c))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Zero(t, m.Count())
	assert.True(t, c.Closed())
}
