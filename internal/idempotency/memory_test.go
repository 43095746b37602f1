package idempotency

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_GetPut(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, found, err := store.Get(ctx, "payout:p1:attempt:0")
	require.NoError(t, err)
	assert.False(t, found)

	value := []byte(`{"status":"completed"}`)
	require.NoError(t, store.Put(ctx, "payout:p1:attempt:0", value, time.Hour))
	value[0] = 'X'

	got, found, err := store.Get(ctx, "payout:p1:attempt:0")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, `{"status":"completed"}`, string(got), "stored value is a copy")
}

func TestMemoryStore_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store := NewMemoryStore()
	store.now = func() time.Time { return now }

	require.NoError(t, store.Put(ctx, "k", []byte("v"), 24*time.Hour))

	now = now.Add(23 * time.Hour)
	_, found, _ := store.Get(ctx, "k")
	assert.True(t, found)

	now = now.Add(time.Hour)
	_, found, _ = store.Get(ctx, "k")
	assert.False(t, found, "key expires exactly at its TTL")
}

func TestMemoryStore_Reserve(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store := NewMemoryStore()
	store.now = func() time.Time { return now }

	ok, err := store.Reserve(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = store.Reserve(ctx, "k", time.Minute)
	assert.False(t, ok, "second reservation loses while the first holds")

	require.NoError(t, store.Release(ctx, "k"))
	ok, _ = store.Reserve(ctx, "k", time.Minute)
	assert.True(t, ok)

	now = now.Add(2 * time.Minute)
	ok, _ = store.Reserve(ctx, "k", time.Minute)
	assert.True(t, ok, "stale reservations can be taken over")
}
