package backend

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/storefront-api/internal/config"
	"github.com/fairyhunter13/storefront-api/internal/store"
)

func TestOpenMemory(t *testing.T) {
	s, err := Open(context.Background(), config.Config{StoreDriver: config.DriverMemory})
	require.NoError(t, err)
	assert.IsType(t, &store.Memory{}, s)
	assert.NoError(t, s.Ping(context.Background()))
}

func TestOpenUnknown(t *testing.T) {
	_, err := Open(context.Background(), config.Config{StoreDriver: "cassandra"})
	assert.Error(t, err)
}
