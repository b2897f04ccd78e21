package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"herald/internal/core/domain"
	"herald/internal/core/port"
	"herald/internal/pagination"
)

// Admin implements the administrative port behind the HTTP surface. It maps
// the store's (nil, nil) absence convention onto ErrNotFound and attaches
// pagination metadata to listings.
type Admin struct {
	store port.Store
	stats port.StatisticsAggregator
	log   *slog.Logger
}

func NewAdmin(store port.Store, stats port.StatisticsAggregator, log *slog.Logger) *Admin {
	return &Admin{store: store, stats: stats, log: log}
}

func (a *Admin) CreateBot(ctx context.Context, bot *domain.Bot) (*domain.Bot, error) {
	if strings.TrimSpace(bot.Token) == "" {
		return nil, fmt.Errorf("%w: bot token is required", port.ErrInvalidInput)
	}
	created, err := a.store.Bots().Create(ctx, bot)
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}
	a.log.Info("bot created", slog.Int64("bot_id", created.ID), slog.String("title", created.Title))
	return created, nil
}

func (a *Admin) UpdateBot(ctx context.Context, bot *domain.Bot) (*domain.Bot, error) {
	updated, err := a.store.Bots().Update(ctx, bot)
	if err != nil {
		return nil, fmt.Errorf("update bot %d: %w", bot.ID, err)
	}
	if updated == nil {
		return nil, port.ErrNotFound
	}
	return updated, nil
}

func (a *Admin) GetBot(ctx context.Context, id int64) (*domain.Bot, error) {
	bot, err := a.store.Bots().Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get bot %d: %w", id, err)
	}
	if bot == nil {
		return nil, port.ErrNotFound
	}
	return bot, nil
}

func (a *Admin) ListBots(ctx context.Context, req domain.PaginatorRequest) ([]domain.Bot, *domain.PaginatorResponse, error) {
	req = pagination.Normalize(req)
	items, total, err := a.store.Bots().List(ctx, req)
	if err != nil {
		return nil, nil, fmt.Errorf("list bots: %w", err)
	}
	return items, pagination.Describe(req, total), nil
}

func (a *Admin) PutUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	stored, err := a.store.Users().Put(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("put user %d of bot %d: %w", user.TelegramID, user.BotID, err)
	}
	return stored, nil
}

func (a *Admin) GetUser(ctx context.Context, botID, telegramID int64) (*domain.User, error) {
	user, err := a.store.Users().Get(ctx, botID, telegramID)
	if err != nil {
		return nil, fmt.Errorf("get user %d of bot %d: %w", telegramID, botID, err)
	}
	if user == nil {
		return nil, port.ErrNotFound
	}
	return user, nil
}

func (a *Admin) ListUsers(ctx context.Context, botID int64, req domain.PaginatorRequest) ([]domain.User, *domain.PaginatorResponse, error) {
	req = pagination.Normalize(req)
	items, total, err := a.store.Users().List(ctx, botID, req)
	if err != nil {
		return nil, nil, fmt.Errorf("list users of bot %d: %w", botID, err)
	}
	return items, pagination.Describe(req, total), nil
}

func (a *Admin) CreateCampaign(ctx context.Context, campaign *domain.Campaign) (*domain.Campaign, error) {
	if strings.TrimSpace(campaign.Message) == "" {
		return nil, fmt.Errorf("%w: campaign message is required", port.ErrInvalidInput)
	}
	created, err := a.store.Campaigns().Create(ctx, campaign)
	if err != nil {
		return nil, fmt.Errorf("create campaign: %w", err)
	}
	a.log.Info("campaign created",
		slog.Int64("campaign_id", created.ID),
		slog.Int64("bot_id", created.BotID),
		slog.String("title", created.Title))
	return created, nil
}

// UpdateCampaign applies the edit unless it would change the message of a
// campaign that already has deliveries. Recipients claimed under the old
// text and recipients still pending must not receive different messages.
// The Active flag is not updatable here: activation state changes only
// through Activate/Deactivate, which handle the delivery fan-out.
func (a *Admin) UpdateCampaign(ctx context.Context, campaign *domain.Campaign) (*domain.Campaign, error) {
	current, err := a.store.Campaigns().Get(ctx, campaign.BotID, campaign.ID)
	if err != nil {
		return nil, fmt.Errorf("get campaign %d: %w", campaign.ID, err)
	}
	if current == nil {
		return nil, port.ErrNotFound
	}
	campaign.Active = current.Active

	if campaign.Message != current.Message {
		stats, err := a.stats.Aggregate(ctx, campaign.ID)
		if err != nil {
			return nil, fmt.Errorf("check campaign %d deliveries: %w", campaign.ID, err)
		}
		if stats.Users > 0 {
			return nil, port.ErrMessageLocked
		}
	}

	updated, err := a.store.Campaigns().Update(ctx, campaign)
	if err != nil {
		return nil, fmt.Errorf("update campaign %d: %w", campaign.ID, err)
	}
	if updated == nil {
		return nil, port.ErrNotFound
	}
	return updated, nil
}

func (a *Admin) GetCampaign(ctx context.Context, botID, campaignID int64) (*domain.Campaign, error) {
	campaign, err := a.store.Campaigns().Get(ctx, botID, campaignID)
	if err != nil {
		return nil, fmt.Errorf("get campaign %d: %w", campaignID, err)
	}
	if campaign == nil {
		return nil, port.ErrNotFound
	}
	return campaign, nil
}

func (a *Admin) ListCampaigns(ctx context.Context, botID int64, req domain.PaginatorRequest) ([]domain.Campaign, *domain.PaginatorResponse, error) {
	req = pagination.Normalize(req)
	items, total, err := a.store.Campaigns().List(ctx, botID, req)
	if err != nil {
		return nil, nil, fmt.Errorf("list campaigns of bot %d: %w", botID, err)
	}
	return items, pagination.Describe(req, total), nil
}

// ActivateCampaign flips the campaign active and materializes a pending
// delivery for every current subscriber. Subscribers who join later are
// picked up by the user upsert path, so the count returned here is only the
// initial fan-out.
func (a *Admin) ActivateCampaign(ctx context.Context, botID, campaignID int64) (*domain.Campaign, int64, error) {
	campaign, err := a.store.Campaigns().SetActive(ctx, botID, campaignID, true)
	if err != nil {
		return nil, 0, fmt.Errorf("activate campaign %d: %w", campaignID, err)
	}
	if campaign == nil {
		return nil, 0, port.ErrNotFound
	}

	created, err := a.store.Deliveries().MaterializeCampaign(ctx, campaignID)
	if err != nil {
		return nil, 0, fmt.Errorf("materialize campaign %d: %w", campaignID, err)
	}

	// The possibly-empty hint may be stale after a deactivate/reactivate
	// cycle: the rows already exist, so materialization creates nothing,
	// yet the pending ones are claimable again. Clear it unconditionally.
	if err := a.store.Bots().SetPossiblyEmpty(ctx, botID, false); err != nil {
		return nil, 0, fmt.Errorf("clear scan hint for bot %d: %w", botID, err)
	}
	a.log.Info("campaign activated",
		slog.Int64("campaign_id", campaignID),
		slog.Int64("bot_id", botID),
		slog.Int64("deliveries_created", created))
	return campaign, created, nil
}

// DeactivateCampaign is a soft stop: pending deliveries stay in place but
// stop being claimable until the campaign is reactivated.
func (a *Admin) DeactivateCampaign(ctx context.Context, botID, campaignID int64) (*domain.Campaign, error) {
	campaign, err := a.store.Campaigns().SetActive(ctx, botID, campaignID, false)
	if err != nil {
		return nil, fmt.Errorf("deactivate campaign %d: %w", campaignID, err)
	}
	if campaign == nil {
		return nil, port.ErrNotFound
	}
	a.log.Info("campaign deactivated",
		slog.Int64("campaign_id", campaignID), slog.Int64("bot_id", botID))
	return campaign, nil
}

func (a *Admin) CampaignStatistics(ctx context.Context, botID, campaignID int64) (*domain.CampaignAggregatedStatistics, error) {
	campaign, err := a.store.Campaigns().Get(ctx, botID, campaignID)
	if err != nil {
		return nil, fmt.Errorf("get campaign %d: %w", campaignID, err)
	}
	if campaign == nil {
		return nil, port.ErrNotFound
	}
	return a.stats.Aggregate(ctx, campaignID)
}

func (a *Admin) ListDeliveries(ctx context.Context, botID, campaignID int64, req domain.PaginatorRequest) ([]domain.Delivery, *domain.PaginatorResponse, error) {
	campaign, err := a.store.Campaigns().Get(ctx, botID, campaignID)
	if err != nil {
		return nil, nil, fmt.Errorf("get campaign %d: %w", campaignID, err)
	}
	if campaign == nil {
		return nil, nil, port.ErrNotFound
	}

	req = pagination.Normalize(req)
	items, total, err := a.store.Deliveries().ListByCampaign(ctx, campaignID, req)
	if err != nil {
		return nil, nil, fmt.Errorf("list deliveries of campaign %d: %w", campaignID, err)
	}
	return items, pagination.Describe(req, total), nil
}
