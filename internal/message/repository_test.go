package message

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryRepository_SaveAndHistory(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		msg := &Message{
			TicketID:  "T-1",
			SenderID:  "u-1",
			Body:      fmt.Sprintf("m%d", i),
			Timestamp: base.Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, repo.SaveMessage(ctx, msg))
		assert.NotEmpty(t, msg.ID)
	}
	require.NoError(t, repo.SaveMessage(ctx, &Message{TicketID: "T-2", Body: "other", Timestamp: base}))

	history, err := repo.GetHistory(ctx, "T-1", 3)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "m2", history[0].Body)
	assert.Equal(t, "m4", history[2].Body)

	all, err := repo.GetHistory(ctx, "T-1", 0)
	require.NoError(t, err)
	assert.Len(t, all, 5)

	empty, err := repo.GetHistory(ctx, "missing", 10)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestInMemoryRepository_DuplicatesAreKept(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()
	now := time.Now()

	first := &Message{TicketID: "T-1", SenderID: "u-1", Body: "same", Timestamp: now}
	second := &Message{TicketID: "T-1", SenderID: "u-1", Body: "same", Timestamp: now}
	require.NoError(t, repo.SaveMessage(ctx, first))
	require.NoError(t, repo.SaveMessage(ctx, second))

	assert.NotEqual(t, first.ID, second.ID)
	history, err := repo.GetHistory(ctx, "T-1", 10)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestInMemoryRepository_Rejects(t *testing.T) {
	repo := NewInMemoryRepository()

	assert.ErrorIs(t, repo.SaveMessage(context.Background(), &Message{Body: "x"}), ErrInvalidMessage)
	assert.ErrorIs(t, repo.SaveMessage(context.Background(), &Message{TicketID: "T"}), ErrInvalidMessage)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, repo.SaveMessage(ctx, &Message{TicketID: "T", Body: "x"}), context.Canceled)
}

func TestMessageDocument_RoundTrip(t *testing.T) {
	msg := &Message{
		ID:         "65f1c0ffee0000000000abcd",
		TicketID:   "T-1",
		SenderID:   "u-1",
		SenderName: "Asha",
		Body:       "hello",
		Timestamp:  time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	}

	var doc MessageDocument
	doc.FromMessage(msg)
	assert.Equal(t, msg, doc.ToMessage())
	assert.False(t, doc.CreatedAt.IsZero())
}
