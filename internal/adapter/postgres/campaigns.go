package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"herald/internal/core/domain"
	"herald/internal/pagination"
)

type campaignRepo struct {
	pool *pgxpool.Pool
}

func (r *campaignRepo) Create(ctx context.Context, campaign *domain.Campaign) (*domain.Campaign, error) {
	var out domain.Campaign
	err := r.pool.QueryRow(ctx, `INSERT INTO campaigns (bot_id, title, message, active)
VALUES ($1, $2, $3, $4)
RETURNING id, bot_id, title, message, active`,
		campaign.BotID, campaign.Title, campaign.Message, campaign.Active).
		Scan(&out.ID, &out.BotID, &out.Title, &out.Message, &out.Active)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *campaignRepo) Update(ctx context.Context, campaign *domain.Campaign) (*domain.Campaign, error) {
	var out domain.Campaign
	err := r.pool.QueryRow(ctx, `UPDATE campaigns SET title = $3, message = $4, active = $5
WHERE id = $1 AND bot_id = $2
RETURNING id, bot_id, title, message, active`,
		campaign.ID, campaign.BotID, campaign.Title, campaign.Message, campaign.Active).
		Scan(&out.ID, &out.BotID, &out.Title, &out.Message, &out.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *campaignRepo) Get(ctx context.Context, botID, id int64) (*domain.Campaign, error) {
	var out domain.Campaign
	err := r.pool.QueryRow(ctx, `SELECT id, bot_id, title, message, active
FROM campaigns WHERE id = $1 AND bot_id = $2`, id, botID).
		Scan(&out.ID, &out.BotID, &out.Title, &out.Message, &out.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *campaignRepo) List(ctx context.Context, botID int64, req domain.PaginatorRequest) ([]domain.Campaign, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM campaigns WHERE bot_id = $1`, botID).Scan(&total); err != nil {
		return nil, 0, err
	}

	offset, limit := pagination.Window(req)
	rows, err := r.pool.Query(ctx, `SELECT id, bot_id, title, message, active
FROM campaigns WHERE bot_id = $1 ORDER BY id LIMIT $2 OFFSET $3`, botID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Campaign, error) {
		var c domain.Campaign
		err := row.Scan(&c.ID, &c.BotID, &c.Title, &c.Message, &c.Active)
		return c, err
	})
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *campaignRepo) SetActive(ctx context.Context, botID, id int64, active bool) (*domain.Campaign, error) {
	var out domain.Campaign
	err := r.pool.QueryRow(ctx, `UPDATE campaigns SET active = $3
WHERE id = $1 AND bot_id = $2
RETURNING id, bot_id, title, message, active`, id, botID, active).
		Scan(&out.ID, &out.BotID, &out.Title, &out.Message, &out.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}
