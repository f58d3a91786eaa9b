package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdempotencyCache_SetAndGet(t *testing.T) {
	_, client := newTestClient(t)
	cache := NewIdempotencyCache(client)
	ctx := context.Background()

	key := "alice:POST:/api/v1/loans/fund:k-1"
	value := []byte(`{"status":201,"body":{"success":true}}`)

	result, err := cache.Get(ctx, key)
	assert.NoError(t, err)
	assert.Nil(t, result)

	require.NoError(t, cache.Set(ctx, key, value, 24*time.Hour))

	result, err = cache.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, value, result)
}

func TestIdempotencyCache_TTLExpiry(t *testing.T) {
	s, client := newTestClient(t)
	cache := NewIdempotencyCache(client)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "k", []byte(`{}`), time.Second))
	s.FastForward(2 * time.Second)

	result, err := cache.Get(ctx, "k")
	assert.NoError(t, err)
	assert.Nil(t, result, "expired key should return nil")
}

func TestIdempotencyCache_UsesPrefix(t *testing.T) {
	s, client := newTestClient(t)
	cache := NewIdempotencyCache(client)

	require.NoError(t, cache.Set(context.Background(), "k", []byte("v"), time.Minute))
	assert.True(t, s.Exists("ledger:idempotency:k"))
}

func TestIdempotencyCache_ClaimAndRelease(t *testing.T) {
	_, client := newTestClient(t)
	cache := NewIdempotencyCache(client)
	ctx := context.Background()

	ok, err := cache.Claim(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = cache.Claim(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "second claim must fail while the first is held")

	require.NoError(t, cache.Release(ctx, "k"))

	ok, err = cache.Claim(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestIdempotencyCache_ClaimExpires(t *testing.T) {
	s, client := newTestClient(t)
	cache := NewIdempotencyCache(client)
	ctx := context.Background()

	_, err := cache.Claim(ctx, "k", time.Second)
	require.NoError(t, err)
	s.FastForward(2 * time.Second)

	ok, err := cache.Claim(ctx, "k", time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
}
