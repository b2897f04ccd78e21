package port

import (
	"context"
	"time"

	"herald/internal/core/domain"
)

// BotStore persists bot identities and the per-bot scheduler state. It is an
// outbound port; implementations must be safe for concurrent use. Lookup
// methods return (nil, nil) when the entity does not exist.
type BotStore interface {
	Create(ctx context.Context, bot *domain.Bot) (*domain.Bot, error)
	Update(ctx context.Context, bot *domain.Bot) (*domain.Bot, error)
	Get(ctx context.Context, id int64) (*domain.Bot, error)
	// List returns a page of bots in creation order plus the total item
	// count before windowing.
	List(ctx context.Context, req domain.PaginatorRequest) ([]domain.Bot, int, error)

	// NextRoundRobin returns the bot with the oldest RRAccessTime that is
	// not flagged possibly-empty, or (nil, nil) when no bot is eligible.
	// It does not advance the access time; the rate limiter does that, which
	// is what rotates a granted bot to the back of the order.
	NextRoundRobin(ctx context.Context, now time.Time) (*domain.Bot, error)

	// SetPossiblyEmpty records the claim queue's hint that the bot has no
	// further eligible deliveries.
	SetPossiblyEmpty(ctx context.Context, botID int64, v bool) error

	// CompareAndSetAccessTime advances RRAccessTime from expected to next
	// and reports whether the swap won. A false return means another
	// process advanced the time first.
	CompareAndSetAccessTime(ctx context.Context, botID int64, expected, next time.Time) (bool, error)
}

// UserStore persists bot subscribers keyed by (BotID, TelegramID).
type UserStore interface {
	// Put inserts or updates the subscriber and materializes pending
	// deliveries for every active campaign of the bot, clearing the bot's
	// possibly-empty hint when it creates any.
	Put(ctx context.Context, user *domain.User) (*domain.User, error)
	Get(ctx context.Context, botID, telegramID int64) (*domain.User, error)
	List(ctx context.Context, botID int64, req domain.PaginatorRequest) ([]domain.User, int, error)
}

// CampaignStore persists campaigns. Get and Update treat a campaign whose
// BotID does not match as absent.
type CampaignStore interface {
	Create(ctx context.Context, campaign *domain.Campaign) (*domain.Campaign, error)
	Update(ctx context.Context, campaign *domain.Campaign) (*domain.Campaign, error)
	Get(ctx context.Context, botID, id int64) (*domain.Campaign, error)
	List(ctx context.Context, botID int64, req domain.PaginatorRequest) ([]domain.Campaign, int, error)
	SetActive(ctx context.Context, botID, id int64, active bool) (*domain.Campaign, error)
}

// DeliveryStore persists delivery work items and provides the atomic
// primitives the claim path is built on.
type DeliveryStore interface {
	// GetPendingDelivery returns the next claimable pending delivery for
	// the bot: oldest active campaign first, creation order within the
	// campaign. Returns (nil, nil) when none exists. It only selects; the
	// caller claims via CompareAndSetState.
	GetPendingDelivery(ctx context.Context, botID int64, now time.Time) (*domain.Delivery, error)

	// CompareAndSetState transitions the delivery from expected to next
	// atomically and reports whether the swap won. Losing the swap is the
	// ClaimConflict case, not an error.
	CompareAndSetState(ctx context.Context, id int64, expected, next domain.DeliveryState) (bool, error)

	// ReleaseForRetry reverts an in-progress delivery to pending and
	// increments its attempt counter. No-op if the row is not in progress.
	ReleaseForRetry(ctx context.Context, id int64) error

	// Reclaim reverts in-progress deliveries last touched before olderThan
	// back to pending and returns how many rows it swept.
	Reclaim(ctx context.Context, olderThan time.Time) (int64, error)

	Get(ctx context.Context, campaignID, telegramID int64) (*domain.Delivery, error)
	ListByCampaign(ctx context.Context, campaignID int64, req domain.PaginatorRequest) ([]domain.Delivery, int, error)

	// CountByState computes the aggregated statistics buckets from a single
	// consistent read. In-progress rows last touched before timedOutBefore
	// count as TimedOut; fresher ones are counted only in Users.
	CountByState(ctx context.Context, campaignID int64, timedOutBefore time.Time) (*domain.CampaignAggregatedStatistics, error)

	// MaterializeCampaign inserts a pending delivery for every subscriber
	// of the campaign's bot that does not already have one, clears the
	// bot's possibly-empty hint when it created any, and returns the number
	// of rows created.
	MaterializeCampaign(ctx context.Context, campaignID int64) (int64, error)
}

// Store aggregates the record store contract consumed by the dispatch core.
type Store interface {
	Bots() BotStore
	Users() UserStore
	Campaigns() CampaignStore
	Deliveries() DeliveryStore
}
