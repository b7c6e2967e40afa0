package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyPrefix(t *testing.T) {
	r := NewRedisClient(Options{Prefix: "gh:"})
	defer r.Close()
	assert.Equal(t, "gh:user:1", r.key("user:1"))
}

func TestUnreachableServerReturnsError(t *testing.T) {
	r := NewRedisClient(Options{Addr: "127.0.0.1:1"})
	defer r.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.Error(t, r.Ping(ctx))
	_, ok, err := r.Get(ctx, "k")
	assert.Error(t, err)
	assert.False(t, ok)
	assert.NoError(t, r.Delete(ctx))
}
