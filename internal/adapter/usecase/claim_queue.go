package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"herald/internal/core/domain"
	"herald/internal/core/port"
)

// ClaimQueue selects the next eligible pending delivery for a bot and
// claims it with a compare-and-swap, so concurrent callers can never walk
// away with the same delivery. Selection is FIFO: oldest active campaign
// first, creation order within a campaign, which keeps later campaigns from
// starving earlier ones on a shared bot.
type ClaimQueue struct {
	store   port.Store
	limiter port.RateLimiter
	log     *slog.Logger
}

// NewClaimQueue wires the queue over the record store and the per-bot rate
// limiter.
func NewClaimQueue(store port.Store, limiter port.RateLimiter, log *slog.Logger) *ClaimQueue {
	return &ClaimQueue{store: store, limiter: limiter, log: log}
}

// Take claims one delivery for the bot. It returns ErrRateLimited when the
// bot's send slot is taken, and ErrNoEligibleDelivery after recording the
// possibly-empty hint when nothing is claimable. Lost compare-and-swap races
// are resolved internally by re-selecting.
func (q *ClaimQueue) Take(ctx context.Context, botID int64) (*domain.DeliveryTakeResult, error) {
	if !q.limiter.Allow(ctx, botID) {
		return nil, port.ErrRateLimited
	}

	deliveries := q.store.Deliveries()
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		candidate, err := deliveries.GetPendingDelivery(ctx, botID, time.Now())
		if err != nil {
			return nil, fmt.Errorf("select pending delivery: %w", err)
		}
		if candidate == nil {
			if err := q.store.Bots().SetPossiblyEmpty(ctx, botID, true); err != nil {
				q.log.Warn("possibly-empty hint write failed",
					slog.Int64("bot_id", botID), slog.Any("error", err))
			}
			return nil, port.ErrNoEligibleDelivery
		}

		claimed, err := deliveries.CompareAndSetState(ctx, candidate.ID,
			domain.DeliveryStatePending, domain.DeliveryStateProgress)
		if err != nil {
			return nil, fmt.Errorf("claim delivery %d: %w", candidate.ID, err)
		}
		if !claimed {
			// ClaimConflict: another caller won this row. Re-select.
			continue
		}
		candidate.State = domain.DeliveryStateProgress

		return q.join(ctx, candidate)
	}
}

// join assembles the full take result so the worker needs no further round
// trips before sending.
func (q *ClaimQueue) join(ctx context.Context, d *domain.Delivery) (*domain.DeliveryTakeResult, error) {
	campaign, err := q.store.Campaigns().Get(ctx, d.BotID, d.CampaignID)
	if err != nil {
		return nil, fmt.Errorf("load campaign %d: %w", d.CampaignID, err)
	}
	if campaign == nil {
		return nil, fmt.Errorf("campaign %d: %w", d.CampaignID, port.ErrNotFound)
	}

	user, err := q.store.Users().Get(ctx, d.BotID, d.TelegramID)
	if err != nil {
		return nil, fmt.Errorf("load user %d: %w", d.TelegramID, err)
	}
	if user == nil {
		return nil, fmt.Errorf("user %d of bot %d: %w", d.TelegramID, d.BotID, port.ErrNotFound)
	}

	return &domain.DeliveryTakeResult{
		Delivery: *d,
		Campaign: *campaign,
		User:     *user,
	}, nil
}
