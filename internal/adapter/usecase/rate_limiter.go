package usecase

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"herald/internal/core/port"
)

// RateLimiter enforces the per-bot minimum inter-send interval as an atomic
// compare-and-advance on the bot's last access time. The fast path is a
// process-local atomic; when a store is attached the winning caller also
// advances the persisted RRAccessTime through the store's compare-and-set,
// so concurrent processes arbitrate through the same row. Bots are fully
// independent: contention on one never blocks another.
type RateLimiter struct {
	interval time.Duration
	store    port.BotStore
	log      *slog.Logger
	now      func() time.Time

	cells sync.Map // botID -> *limiterCell
}

type limiterCell struct {
	last   atomic.Int64 // unix nanos of the last granted slot
	primed atomic.Bool  // persisted time loaded at least once
}

// NewRateLimiter builds a limiter granting at most sendsPerWindow slots per
// bot per window. A nil store keeps the limiter purely in-memory.
func NewRateLimiter(window time.Duration, sendsPerWindow int, store port.BotStore, log *slog.Logger) *RateLimiter {
	if sendsPerWindow < 1 {
		sendsPerWindow = 1
	}
	return &RateLimiter{
		interval: window / time.Duration(sendsPerWindow),
		store:    store,
		log:      log,
		now:      time.Now,
	}
}

func (l *RateLimiter) cell(botID int64) *limiterCell {
	if c, ok := l.cells.Load(botID); ok {
		return c.(*limiterCell)
	}
	c, _ := l.cells.LoadOrStore(botID, &limiterCell{})
	return c.(*limiterCell)
}

// Allow reports whether the caller won the bot's current send slot. At most
// one concurrent caller wins per interval; losing callers observe no state
// change.
func (l *RateLimiter) Allow(ctx context.Context, botID int64) bool {
	c := l.cell(botID)
	l.prime(ctx, botID, c)

	for {
		last := c.last.Load()
		now := l.now().UnixNano()
		if now-last < int64(l.interval) {
			return false
		}
		if !c.last.CompareAndSwap(last, now) {
			// Someone advanced the cell between load and swap; re-read
			// and re-check the interval rather than spinning blind.
			continue
		}
		if l.store == nil {
			return true
		}

		ok, err := l.store.CompareAndSetAccessTime(ctx, botID,
			time.Unix(0, last).UTC(), time.Unix(0, now).UTC())
		if err != nil {
			l.log.Warn("rate state write failed", slog.Int64("bot_id", botID), slog.Any("error", err))
			// The local swap already won; granting keeps a store outage
			// from freezing dispatch entirely.
			return true
		}
		if !ok {
			// Another process advanced the row; resync and deny.
			l.resync(ctx, botID, c)
			return false
		}
		return true
	}
}

// prime loads the persisted access time into the local cell once per bot, so
// a restarted process does not hand out a slot the previous holder already
// used within the window.
func (l *RateLimiter) prime(ctx context.Context, botID int64, c *limiterCell) {
	if l.store == nil || c.primed.Load() {
		return
	}
	if !c.primed.CompareAndSwap(false, true) {
		return
	}
	bot, err := l.store.Get(ctx, botID)
	if err != nil || bot == nil {
		return
	}
	if t := bot.RRAccessTime.UnixNano(); t > c.last.Load() {
		c.last.Store(t)
	}
}

func (l *RateLimiter) resync(ctx context.Context, botID int64, c *limiterCell) {
	bot, err := l.store.Get(ctx, botID)
	if err != nil || bot == nil {
		return
	}
	if t := bot.RRAccessTime.UnixNano(); t > c.last.Load() {
		c.last.Store(t)
	}
}
