package usecase

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"herald/internal/adapter/memory"
	"herald/internal/core/domain"
)

func TestAllowDeniesWithinInterval(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	bot, err := store.Bots().Create(ctx, &domain.Bot{Title: "b", Token: "t"})
	require.NoError(t, err)

	l := NewRateLimiter(time.Second, 1, store.Bots(), testLogger())
	now := time.Unix(1000, 0)
	l.now = func() time.Time { return now }

	require.True(t, l.Allow(ctx, bot.ID))
	require.False(t, l.Allow(ctx, bot.ID))

	// Half the interval later the slot is still taken.
	now = now.Add(500 * time.Millisecond)
	require.False(t, l.Allow(ctx, bot.ID))

	// A full interval later the next slot opens.
	now = now.Add(600 * time.Millisecond)
	require.True(t, l.Allow(ctx, bot.ID))
}

func TestAllowAdvancesPersistedAccessTime(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	bot, err := store.Bots().Create(ctx, &domain.Bot{Title: "b", Token: "t"})
	require.NoError(t, err)

	l := NewRateLimiter(time.Second, 1, store.Bots(), testLogger())
	now := time.Unix(1000, 0)
	l.now = func() time.Time { return now }

	require.True(t, l.Allow(ctx, bot.ID))

	got, err := store.Bots().Get(ctx, bot.ID)
	require.NoError(t, err)
	require.True(t, got.RRAccessTime.Equal(now),
		"winning Allow must advance RRAccessTime, got %v", got.RRAccessTime)
}

// TestAllowConcurrentSingleWinner runs many concurrent callers against one
// bot and requires exactly one grant per interval.
func TestAllowConcurrentSingleWinner(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	bot, err := store.Bots().Create(ctx, &domain.Bot{Title: "b", Token: "t"})
	require.NoError(t, err)

	l := NewRateLimiter(time.Minute, 1, store.Bots(), testLogger())

	var granted atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Allow(ctx, bot.ID) {
				granted.Add(1)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, int64(1), granted.Load())
}

func TestBotsRateLimitedIndependently(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	b1, err := store.Bots().Create(ctx, &domain.Bot{Title: "b1", Token: "t1"})
	require.NoError(t, err)
	b2, err := store.Bots().Create(ctx, &domain.Bot{Title: "b2", Token: "t2"})
	require.NoError(t, err)

	l := NewRateLimiter(time.Minute, 1, store.Bots(), testLogger())

	require.True(t, l.Allow(ctx, b1.ID))
	require.False(t, l.Allow(ctx, b1.ID))

	// Exhausting b1 does not touch b2.
	require.True(t, l.Allow(ctx, b2.ID))
}

func TestSendsPerWindowDividesInterval(t *testing.T) {
	ctx := context.Background()
	l := NewRateLimiter(time.Second, 4, nil, testLogger())
	now := time.Unix(1000, 0)
	l.now = func() time.Time { return now }

	require.True(t, l.Allow(ctx, 1))
	require.False(t, l.Allow(ctx, 1))
	now = now.Add(250 * time.Millisecond)
	require.True(t, l.Allow(ctx, 1))
}
