package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultMongoConfig(t *testing.T) {
	cfg := DefaultMongoConfig()
	assert.Equal(t, "petbuddy", cfg.Database)
	assert.NotZero(t, cfg.ConnectTimeout)
	assert.GreaterOrEqual(t, cfg.MaxPoolSize, cfg.MinPoolSize)
}

func TestIndexModels(t *testing.T) {
	models := indexModels()
	require.Contains(t, models, ChatMessagesCollection)
	require.Contains(t, models, BookingsCollection)

	assert.Len(t, models[BookingsCollection], 3)
	require.Len(t, models[ChatMessagesCollection], 1)
	assert.Nil(t, models[ChatMessagesCollection][0].Options)
}
