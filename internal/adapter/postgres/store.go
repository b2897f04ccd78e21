// Package postgres implements the record store contract on pgxpool. All
// atomic primitives (claim compare-and-swap, rate state advance) are single
// conditional UPDATE statements, so the claim path never holds a row lock
// across a round trip.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"herald/internal/core/domain"
	"herald/internal/core/port"
	"herald/internal/pagination"
)

// Store bundles the per-entity repositories over one pool.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore returns a record store backed by the given pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Bots() port.BotStore            { return &botRepo{pool: s.pool} }
func (s *Store) Users() port.UserStore          { return &userRepo{pool: s.pool} }
func (s *Store) Campaigns() port.CampaignStore  { return &campaignRepo{pool: s.pool} }
func (s *Store) Deliveries() port.DeliveryStore { return &deliveryRepo{pool: s.pool} }

type botRepo struct {
	pool *pgxpool.Pool
}

func (r *botRepo) Create(ctx context.Context, bot *domain.Bot) (*domain.Bot, error) {
	var out domain.Bot
	err := r.pool.QueryRow(ctx, `INSERT INTO bots (title, token)
VALUES ($1, $2)
RETURNING id, title, token, rr_access_time, rr_possibly_empty`,
		bot.Title, bot.Token).
		Scan(&out.ID, &out.Title, &out.Token, &out.RRAccessTime, &out.RRPossiblyEmpty)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *botRepo) Update(ctx context.Context, bot *domain.Bot) (*domain.Bot, error) {
	var out domain.Bot
	err := r.pool.QueryRow(ctx, `UPDATE bots SET title = $2, token = $3
WHERE id = $1
RETURNING id, title, token, rr_access_time, rr_possibly_empty`,
		bot.ID, bot.Title, bot.Token).
		Scan(&out.ID, &out.Title, &out.Token, &out.RRAccessTime, &out.RRPossiblyEmpty)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *botRepo) Get(ctx context.Context, id int64) (*domain.Bot, error) {
	var out domain.Bot
	err := r.pool.QueryRow(ctx, `SELECT id, title, token, rr_access_time, rr_possibly_empty
FROM bots WHERE id = $1`, id).
		Scan(&out.ID, &out.Title, &out.Token, &out.RRAccessTime, &out.RRPossiblyEmpty)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *botRepo) List(ctx context.Context, req domain.PaginatorRequest) ([]domain.Bot, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM bots`).Scan(&total); err != nil {
		return nil, 0, err
	}

	offset, limit := pagination.Window(req)
	rows, err := r.pool.Query(ctx, `SELECT id, title, token, rr_access_time, rr_possibly_empty
FROM bots ORDER BY id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Bot, error) {
		var b domain.Bot
		err := row.Scan(&b.ID, &b.Title, &b.Token, &b.RRAccessTime, &b.RRPossiblyEmpty)
		return b, err
	})
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *botRepo) NextRoundRobin(ctx context.Context, _ time.Time) (*domain.Bot, error) {
	var out domain.Bot
	err := r.pool.QueryRow(ctx, `SELECT id, title, token, rr_access_time, rr_possibly_empty
FROM bots WHERE NOT rr_possibly_empty
ORDER BY rr_access_time, id LIMIT 1`).
		Scan(&out.ID, &out.Title, &out.Token, &out.RRAccessTime, &out.RRPossiblyEmpty)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *botRepo) SetPossiblyEmpty(ctx context.Context, botID int64, flag bool) error {
	_, err := r.pool.Exec(ctx, `UPDATE bots SET rr_possibly_empty = $2 WHERE id = $1`, botID, flag)
	return err
}

func (r *botRepo) CompareAndSetAccessTime(ctx context.Context, botID int64, expected, next time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE bots SET rr_access_time = $3
WHERE id = $1 AND rr_access_time = $2`, botID, expected, next)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
