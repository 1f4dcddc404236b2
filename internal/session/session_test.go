package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func managers(t *testing.T) map[string]Manager {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return map[string]Manager{
		"memory": NewMemoryManager(),
		"redis":  NewRedisManager(client),
	}
}

func TestManagerRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, m := range managers(t) {
		t.Run(name, func(t *testing.T) {
			assert.True(t, m.Get(ctx, 1).Idle())
			assert.False(t, m.InProgress(ctx, 1))

			start := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
			m.Put(ctx, 1, Session{
				Step:           StepAwaitingConfirmation,
				Reason:         "boredom",
				PlannedMinutes: 15,
				StartTime:      start,
			})

			got := m.Get(ctx, 1)
			require.Equal(t, StepAwaitingConfirmation, got.Step)
			assert.Equal(t, "boredom", got.Reason)
			assert.Equal(t, 15, got.PlannedMinutes)
			assert.True(t, got.StartTime.Equal(start))
			assert.True(t, m.InProgress(ctx, 1))

			// Other users are unaffected.
			assert.True(t, m.Get(ctx, 2).Idle())

			m.Clear(ctx, 1)
			assert.True(t, m.Get(ctx, 1).Idle())
			assert.False(t, m.InProgress(ctx, 1))
		})
	}
}

func TestClearIsIdempotent(t *testing.T) {
	ctx := context.Background()
	for name, m := range managers(t) {
		t.Run(name, func(t *testing.T) {
			m.Clear(ctx, 42)
			m.Put(ctx, 42, Session{Step: StepAwaitingReason})
			m.Clear(ctx, 42)
			m.Clear(ctx, 42)
			assert.True(t, m.Get(ctx, 42).Idle())
		})
	}
}

func TestRedisReadFailureDegradesToIdle(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	m := NewRedisManager(client)

	m.Put(ctx, 7, Session{Step: StepAwaitingDuration})
	mr.Close()

	got := m.Get(ctx, 7)
	assert.True(t, got.Idle())
}
