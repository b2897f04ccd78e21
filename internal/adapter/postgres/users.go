package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"herald/internal/core/domain"
	"herald/internal/pagination"
)

type userRepo struct {
	pool *pgxpool.Pool
}

// Put upserts the subscriber and, in the same transaction, materializes
// pending deliveries for every active campaign of the bot. Empty profile
// fields on update keep their stored values.
func (r *userRepo) Put(ctx context.Context, user *domain.User) (*domain.User, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			_ = tx.Commit(ctx)
		}
	}()

	var out domain.User
	err = tx.QueryRow(ctx, `INSERT INTO users (bot_id, telegram_id, first_name, last_name, display_name, user_name)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (bot_id, telegram_id) DO UPDATE SET
    first_name   = CASE WHEN EXCLUDED.first_name   <> '' THEN EXCLUDED.first_name   ELSE users.first_name   END,
    last_name    = CASE WHEN EXCLUDED.last_name    <> '' THEN EXCLUDED.last_name    ELSE users.last_name    END,
    display_name = CASE WHEN EXCLUDED.display_name <> '' THEN EXCLUDED.display_name ELSE users.display_name END,
    user_name    = CASE WHEN EXCLUDED.user_name    <> '' THEN EXCLUDED.user_name    ELSE users.user_name    END
RETURNING bot_id, telegram_id, first_name, last_name, display_name, user_name`,
		user.BotID, user.TelegramID, user.FirstName, user.LastName, user.DisplayName, user.UserName).
		Scan(&out.BotID, &out.TelegramID, &out.FirstName, &out.LastName, &out.DisplayName, &out.UserName)
	if err != nil {
		return nil, err
	}

	tag, err := tx.Exec(ctx, `INSERT INTO deliveries (campaign_id, bot_id, telegram_id)
SELECT c.id, c.bot_id, $2 FROM campaigns c
WHERE c.bot_id = $1 AND c.active
ON CONFLICT (campaign_id, telegram_id) DO NOTHING`,
		user.BotID, user.TelegramID)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() > 0 {
		if _, err = tx.Exec(ctx, `UPDATE bots SET rr_possibly_empty = FALSE WHERE id = $1`, user.BotID); err != nil {
			return nil, err
		}
	}
	return &out, nil
}

func (r *userRepo) Get(ctx context.Context, botID, telegramID int64) (*domain.User, error) {
	var out domain.User
	err := r.pool.QueryRow(ctx, `SELECT bot_id, telegram_id, first_name, last_name, display_name, user_name
FROM users WHERE bot_id = $1 AND telegram_id = $2`, botID, telegramID).
		Scan(&out.BotID, &out.TelegramID, &out.FirstName, &out.LastName, &out.DisplayName, &out.UserName)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *userRepo) List(ctx context.Context, botID int64, req domain.PaginatorRequest) ([]domain.User, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM users WHERE bot_id = $1`, botID).Scan(&total); err != nil {
		return nil, 0, err
	}

	offset, limit := pagination.Window(req)
	rows, err := r.pool.Query(ctx, `SELECT bot_id, telegram_id, first_name, last_name, display_name, user_name
FROM users WHERE bot_id = $1 ORDER BY created_at, telegram_id LIMIT $2 OFFSET $3`,
		botID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.User, error) {
		var u domain.User
		err := row.Scan(&u.BotID, &u.TelegramID, &u.FirstName, &u.LastName, &u.DisplayName, &u.UserName)
		return u, err
	})
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}
