package guard

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_SlidingWindow(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	t0 := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		ok, err := s.Allow(ctx, "u1", 3, time.Minute, t0.Add(time.Duration(i)*time.Second))
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, _ := s.Allow(ctx, "u1", 3, time.Minute, t0.Add(30*time.Second))
	assert.False(t, ok)

	ok, _ = s.Allow(ctx, "u2", 3, time.Minute, t0.Add(30*time.Second))
	assert.True(t, ok, "limits are per key")

	// The first hit leaves the window one minute later.
	ok, _ = s.Allow(ctx, "u1", 3, time.Minute, t0.Add(time.Minute+time.Millisecond))
	assert.True(t, ok)
}

func TestMemoryStore_IdempotencyTTL(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	require.NoError(t, s.PutIdempotent(ctx, "k", "msg-1", 5*time.Second))
	id, ok, err := s.GetIdempotent(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "msg-1", id)

	now = now.Add(5 * time.Second)
	_, ok, _ = s.GetIdempotent(ctx, "k")
	assert.False(t, ok)
}

func TestMemoryStore_Sweep(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	t0 := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return t0 }

	_, _ = s.Allow(ctx, "u1", 10, time.Minute, t0)
	require.NoError(t, s.PutIdempotent(ctx, "k", "msg-1", 5*time.Second))

	s.Sweep(t0.Add(10 * time.Second))
	assert.Len(t, s.keys, 0)
	assert.Len(t, s.windows, 1)

	s.Sweep(t0.Add(2 * time.Minute))
	assert.Len(t, s.windows, 0)
}

func TestMemoryStore_ClaimIsSetIfAbsent(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	won, err := s.ClaimIdempotent(ctx, "k", 5*time.Second)
	require.NoError(t, err)
	assert.True(t, won)
	won, _ = s.ClaimIdempotent(ctx, "k", 5*time.Second)
	assert.False(t, won)

	_, ok, _ := s.GetIdempotent(ctx, "k")
	assert.False(t, ok, "a bare claim is not a stored message")

	require.NoError(t, s.PutIdempotent(ctx, "k", "msg-1", 5*time.Second))
	id, ok, _ := s.GetIdempotent(ctx, "k")
	assert.True(t, ok)
	assert.Equal(t, "msg-1", id)

	require.NoError(t, s.ReleaseIdempotent(ctx, "k"))
	_, ok, _ = s.GetIdempotent(ctx, "k")
	assert.True(t, ok, "release leaves stored ids alone")
	won, _ = s.ClaimIdempotent(ctx, "k", 5*time.Second)
	assert.False(t, won)
}

func TestMemoryStore_ReleaseAndExpiryFreeClaim(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	won, _ := s.ClaimIdempotent(ctx, "k", 5*time.Second)
	require.True(t, won)
	require.NoError(t, s.ReleaseIdempotent(ctx, "k"))
	won, _ = s.ClaimIdempotent(ctx, "k", 5*time.Second)
	require.True(t, won)

	now = now.Add(5 * time.Second)
	won, _ = s.ClaimIdempotent(ctx, "k", 5*time.Second)
	assert.True(t, won)
}
