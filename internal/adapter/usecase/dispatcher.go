package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"herald/internal/core/domain"
	"herald/internal/core/port"
)

// DispatcherConfig tunes the worker pool. Zero values fall back to the
// defaults applied in NewDispatcher.
type DispatcherConfig struct {
	Workers       int
	SendTimeout   time.Duration
	MaxAttempts   int
	BackoffMin    time.Duration
	BackoffMax    time.Duration
	ReclaimAfter  time.Duration
	SweepInterval time.Duration
	GlobalRate    int // sends per second across all bots of this process
}

func (c DispatcherConfig) withDefaults() DispatcherConfig {
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.SendTimeout <= 0 {
		c.SendTimeout = 15 * time.Second
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.BackoffMin <= 0 {
		c.BackoffMin = 200 * time.Millisecond
	}
	if c.BackoffMax <= 0 {
		c.BackoffMax = 10 * time.Second
	}
	if c.ReclaimAfter <= 0 {
		c.ReclaimAfter = 5 * time.Minute
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = time.Minute
	}
	if c.GlobalRate <= 0 {
		c.GlobalRate = 25
	}
	return c
}

// Dispatcher runs the pool of send workers. Each worker loops: pick a bot
// round-robin, claim one delivery, send it through the transport with a
// bounded timeout, and write the single terminal transition of record.
// Campaign deactivation is observed naturally: deactivated campaigns stop
// producing claims, while already-dispatched sends complete.
type Dispatcher struct {
	cfg       DispatcherConfig
	store     port.Store
	queue     port.ClaimQueue
	transport port.Transport
	global    *rate.Limiter
	log       *slog.Logger
	instance  string
}

// NewDispatcher wires the pool. The global limiter caps the whole process's
// outbound rate on top of the per-bot limiter inside the claim queue.
func NewDispatcher(cfg DispatcherConfig, store port.Store, queue port.ClaimQueue, transport port.Transport, log *slog.Logger) *Dispatcher {
	cfg = cfg.withDefaults()
	return &Dispatcher{
		cfg:       cfg,
		store:     store,
		queue:     queue,
		transport: transport,
		global:    rate.NewLimiter(rate.Limit(cfg.GlobalRate), cfg.GlobalRate),
		log:       log,
		instance:  uuid.NewString()[:8],
	}
}

// Run starts the workers and the reclaim sweep and blocks until ctx is
// cancelled and all workers have drained.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.log.Info("dispatcher starting",
		slog.String("instance", d.instance),
		slog.Int("workers", d.cfg.Workers))

	var wg sync.WaitGroup
	wg.Add(d.cfg.Workers + 1)
	for i := 0; i < d.cfg.Workers; i++ {
		go func(idx int) {
			defer wg.Done()
			d.worker(ctx, idx)
		}(i)
	}
	go func() {
		defer wg.Done()
		d.sweep(ctx)
	}()

	wg.Wait()
	d.log.Info("dispatcher stopped", slog.String("instance", d.instance))
	return nil
}

func (d *Dispatcher) worker(ctx context.Context, idx int) {
	backoff := d.cfg.BackoffMin

	for ctx.Err() == nil {
		bot, err := d.store.Bots().NextRoundRobin(ctx, time.Now())
		if err != nil {
			// Store unavailable: the whole claim cycle backs off.
			d.log.Error("bot rotation failed", slog.Int("worker", idx), slog.Any("error", err))
			backoff = d.pause(ctx, backoff)
			continue
		}
		if bot == nil {
			backoff = d.pause(ctx, backoff)
			continue
		}

		res, err := d.queue.Take(ctx, bot.ID)
		switch {
		case err == nil:
			backoff = d.cfg.BackoffMin
			d.deliver(ctx, idx, bot, res)
		case errors.Is(err, port.ErrRateLimited),
			errors.Is(err, port.ErrNoEligibleDelivery):
			backoff = d.pause(ctx, backoff)
		case ctx.Err() != nil:
			return
		default:
			d.log.Error("claim failed",
				slog.Int("worker", idx), slog.Int64("bot_id", bot.ID), slog.Any("error", err))
			backoff = d.pause(ctx, backoff)
		}
	}
}

// pause sleeps for the current backoff and returns the next one, doubling
// up to the configured cap.
func (d *Dispatcher) pause(ctx context.Context, backoff time.Duration) time.Duration {
	tmr := time.NewTimer(backoff)
	defer tmr.Stop()
	select {
	case <-ctx.Done():
	case <-tmr.C:
	}

	backoff *= 2
	if backoff > d.cfg.BackoffMax {
		backoff = d.cfg.BackoffMax
	}
	return backoff
}

func (d *Dispatcher) deliver(ctx context.Context, idx int, bot *domain.Bot, res *domain.DeliveryTakeResult) {
	if err := d.global.Wait(ctx); err != nil {
		// Shutting down with a claim in hand: hand the row back instead
		// of leaving it for the reclaim sweep.
		d.release(ctx, res.Delivery.ID)
		return
	}

	sctx, cancel := context.WithTimeout(ctx, d.cfg.SendTimeout)
	err := d.transport.Send(sctx, bot.Token, res.User.TelegramID, res.Campaign.Message)
	cancel()

	d.resolve(ctx, idx, res, err)
}

// resolve writes the outcome of one send attempt. Terminal transitions go
// through the same compare-and-swap as claims, so a row that was reclaimed
// mid-send cannot be moved out of a state someone else already set.
func (d *Dispatcher) resolve(ctx context.Context, idx int, res *domain.DeliveryTakeResult, sendErr error) {
	// Outcome writes must survive shutdown; otherwise a completed send
	// would be resent after the reclaim sweep.
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	deliveries := d.store.Deliveries()
	id := res.Delivery.ID

	switch {
	case sendErr == nil:
		ok, err := deliveries.CompareAndSetState(wctx, id,
			domain.DeliveryStateProgress, domain.DeliveryStateSuccess)
		if err != nil {
			d.log.Error("success write failed", slog.Int64("delivery_id", id), slog.Any("error", err))
			return
		}
		if !ok {
			d.log.Warn("delivery no longer in progress after send",
				slog.Int64("delivery_id", id))
		}

	case port.IsPermanentSendError(sendErr):
		d.log.Warn("permanent send failure",
			slog.Int("worker", idx),
			slog.Int64("delivery_id", id),
			slog.Int64("telegram_id", res.User.TelegramID),
			slog.Any("error", sendErr))
		if _, err := deliveries.CompareAndSetState(wctx, id,
			domain.DeliveryStateProgress, domain.DeliveryStateFail); err != nil {
			d.log.Error("fail write failed", slog.Int64("delivery_id", id), slog.Any("error", err))
		}

	default:
		// Retryable, including send timeouts.
		attempt := res.Delivery.Attempts + 1
		if attempt >= d.cfg.MaxAttempts {
			d.log.Warn("delivery failed after retries",
				slog.Int("worker", idx),
				slog.Int64("delivery_id", id),
				slog.Int("attempts", attempt),
				slog.Any("error", sendErr))
			if _, err := deliveries.CompareAndSetState(wctx, id,
				domain.DeliveryStateProgress, domain.DeliveryStateFail); err != nil {
				d.log.Error("fail write failed", slog.Int64("delivery_id", id), slog.Any("error", err))
			}
			return
		}
		d.log.Debug("send retry scheduled",
			slog.Int("worker", idx),
			slog.Int64("delivery_id", id),
			slog.Int("attempt", attempt),
			slog.Any("error", sendErr))
		if err := deliveries.ReleaseForRetry(wctx, id); err != nil {
			d.log.Error("retry release failed", slog.Int64("delivery_id", id), slog.Any("error", err))
		}
	}
}

// release returns an unsent claim to the pending pool without burning an
// attempt.
func (d *Dispatcher) release(ctx context.Context, id int64) {
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if _, err := d.store.Deliveries().CompareAndSetState(wctx, id,
		domain.DeliveryStateProgress, domain.DeliveryStatePending); err != nil {
		d.log.Error("claim release failed", slog.Int64("delivery_id", id), slog.Any("error", err))
	}
}

// sweep periodically revives deliveries abandoned in progress, the
// crash-recovery path behind the derived "timed out" statistic.
func (d *Dispatcher) sweep(ctx context.Context) {
	ticker := time.NewTicker(d.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := d.store.Deliveries().Reclaim(ctx, time.Now().Add(-d.cfg.ReclaimAfter))
			if err != nil {
				d.log.Error("reclaim sweep failed", slog.Any("error", err))
				continue
			}
			if n > 0 {
				d.log.Info("reclaimed abandoned deliveries", slog.Int64("count", n))
			}
		}
	}
}
