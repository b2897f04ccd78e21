package port

import (
	"context"

	"herald/internal/core/domain"
)

// ClaimQueue hands out pending deliveries to dispatch workers. Take selects
// the next eligible delivery for the bot and atomically marks it in
// progress, so no two callers ever receive the same delivery. It returns
// ErrNoEligibleDelivery when the bot has nothing claimable and ErrRateLimited
// when the bot's current send window is exhausted.
type ClaimQueue interface {
	Take(ctx context.Context, botID int64) (*domain.DeliveryTakeResult, error)
}

// RateLimiter enforces the minimum inter-send interval per bot. Allow
// reports whether the caller won the bot's current send slot; exactly one
// concurrent caller wins per interval.
type RateLimiter interface {
	Allow(ctx context.Context, botID int64) bool
}

// StatisticsAggregator computes the delivery state distribution of a
// campaign from a consistent snapshot.
type StatisticsAggregator interface {
	Aggregate(ctx context.Context, campaignID int64) (*domain.CampaignAggregatedStatistics, error)
}

// AdminUseCase is the inbound port behind the HTTP surface: bot, user and
// campaign administration plus the reporting operations. Entity lookups
// return ErrNotFound for missing or foreign-bot entities.
type AdminUseCase interface {
	CreateBot(ctx context.Context, bot *domain.Bot) (*domain.Bot, error)
	UpdateBot(ctx context.Context, bot *domain.Bot) (*domain.Bot, error)
	GetBot(ctx context.Context, id int64) (*domain.Bot, error)
	ListBots(ctx context.Context, req domain.PaginatorRequest) ([]domain.Bot, *domain.PaginatorResponse, error)

	PutUser(ctx context.Context, user *domain.User) (*domain.User, error)
	GetUser(ctx context.Context, botID, telegramID int64) (*domain.User, error)
	ListUsers(ctx context.Context, botID int64, req domain.PaginatorRequest) ([]domain.User, *domain.PaginatorResponse, error)

	CreateCampaign(ctx context.Context, campaign *domain.Campaign) (*domain.Campaign, error)
	// UpdateCampaign rejects message changes with ErrMessageLocked once
	// deliveries exist for the campaign. The Active flag is ignored;
	// activation state changes only through Activate/Deactivate.
	UpdateCampaign(ctx context.Context, campaign *domain.Campaign) (*domain.Campaign, error)
	GetCampaign(ctx context.Context, botID, campaignID int64) (*domain.Campaign, error)
	ListCampaigns(ctx context.Context, botID int64, req domain.PaginatorRequest) ([]domain.Campaign, *domain.PaginatorResponse, error)

	// ActivateCampaign flips the campaign active and materializes its
	// recipient set; it returns the number of deliveries created.
	ActivateCampaign(ctx context.Context, botID, campaignID int64) (*domain.Campaign, int64, error)
	DeactivateCampaign(ctx context.Context, botID, campaignID int64) (*domain.Campaign, error)

	CampaignStatistics(ctx context.Context, botID, campaignID int64) (*domain.CampaignAggregatedStatistics, error)
	ListDeliveries(ctx context.Context, botID, campaignID int64, req domain.PaginatorRequest) ([]domain.Delivery, *domain.PaginatorResponse, error)
}
