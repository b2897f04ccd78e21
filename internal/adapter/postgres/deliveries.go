package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"herald/internal/core/domain"
	"herald/internal/pagination"
)

type deliveryRepo struct {
	pool *pgxpool.Pool
}

const deliveryColumns = `id, campaign_id, bot_id, telegram_id, state, attempts, created_at, updated_at`

func scanDelivery(row pgx.Row) (*domain.Delivery, error) {
	var d domain.Delivery
	err := row.Scan(&d.ID, &d.CampaignID, &d.BotID, &d.TelegramID, &d.State, &d.Attempts, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *deliveryRepo) GetPendingDelivery(ctx context.Context, botID int64, _ time.Time) (*domain.Delivery, error) {
	// Oldest active campaign first, insertion order within it. The caller
	// claims the row via CompareAndSetState; losing that swap just means
	// re-selecting here.
	return scanDelivery(r.pool.QueryRow(ctx, `SELECT d.id, d.campaign_id, d.bot_id, d.telegram_id, d.state, d.attempts, d.created_at, d.updated_at
FROM deliveries d
JOIN campaigns c ON c.id = d.campaign_id
WHERE d.bot_id = $1 AND d.state = $2 AND c.active
ORDER BY d.campaign_id, d.id
LIMIT 1`, botID, domain.DeliveryStatePending))
}

func (r *deliveryRepo) CompareAndSetState(ctx context.Context, id int64, expected, next domain.DeliveryState) (bool, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE deliveries SET state = $3, updated_at = now()
WHERE id = $1 AND state = $2`, id, expected, next)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *deliveryRepo) ReleaseForRetry(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx, `UPDATE deliveries
SET state = $2, attempts = attempts + 1, updated_at = now()
WHERE id = $1 AND state = $3`,
		id, domain.DeliveryStatePending, domain.DeliveryStateProgress)
	return err
}

func (r *deliveryRepo) Reclaim(ctx context.Context, olderThan time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE deliveries
SET state = $1, updated_at = now()
WHERE state = $2 AND updated_at < $3`,
		domain.DeliveryStatePending, domain.DeliveryStateProgress, olderThan)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *deliveryRepo) Get(ctx context.Context, campaignID, telegramID int64) (*domain.Delivery, error) {
	return scanDelivery(r.pool.QueryRow(ctx, `SELECT `+deliveryColumns+`
FROM deliveries WHERE campaign_id = $1 AND telegram_id = $2`, campaignID, telegramID))
}

func (r *deliveryRepo) ListByCampaign(ctx context.Context, campaignID int64, req domain.PaginatorRequest) ([]domain.Delivery, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM deliveries WHERE campaign_id = $1`, campaignID).Scan(&total); err != nil {
		return nil, 0, err
	}

	offset, limit := pagination.Window(req)
	rows, err := r.pool.Query(ctx, `SELECT `+deliveryColumns+`
FROM deliveries WHERE campaign_id = $1 ORDER BY id LIMIT $2 OFFSET $3`, campaignID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Delivery, error) {
		var d domain.Delivery
		err := row.Scan(&d.ID, &d.CampaignID, &d.BotID, &d.TelegramID, &d.State, &d.Attempts, &d.CreatedAt, &d.UpdatedAt)
		return d, err
	})
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *deliveryRepo) CountByState(ctx context.Context, campaignID int64, timedOutBefore time.Time) (*domain.CampaignAggregatedStatistics, error) {
	var stat domain.CampaignAggregatedStatistics
	err := r.pool.QueryRow(ctx, `SELECT
    count(*),
    count(*) FILTER (WHERE state = $2),
    count(*) FILTER (WHERE state = $3),
    count(*) FILTER (WHERE state = $4),
    count(*) FILTER (WHERE state = $5 AND updated_at < $6)
FROM deliveries WHERE campaign_id = $1`,
		campaignID,
		domain.DeliveryStateSuccess,
		domain.DeliveryStateFail,
		domain.DeliveryStatePending,
		domain.DeliveryStateProgress,
		timedOutBefore).
		Scan(&stat.Users, &stat.Delivered, &stat.Errors, &stat.Pending, &stat.TimedOut)
	if err != nil {
		return nil, err
	}
	return &stat, nil
}

func (r *deliveryRepo) MaterializeCampaign(ctx context.Context, campaignID int64) (int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			_ = tx.Commit(ctx)
		}
	}()

	tag, err := tx.Exec(ctx, `INSERT INTO deliveries (campaign_id, bot_id, telegram_id)
SELECT c.id, c.bot_id, u.telegram_id
FROM campaigns c
JOIN users u ON u.bot_id = c.bot_id
WHERE c.id = $1
ON CONFLICT (campaign_id, telegram_id) DO NOTHING`, campaignID)
	if err != nil {
		return 0, err
	}

	created := tag.RowsAffected()
	if created > 0 {
		_, err = tx.Exec(ctx, `UPDATE bots SET rr_possibly_empty = FALSE
WHERE id = (SELECT bot_id FROM campaigns WHERE id = $1)`, campaignID)
		if err != nil {
			return 0, err
		}
	}
	return created, nil
}
