package db

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Seed inserts demo data: a couple of bots, a subscriber base and one
// active campaign per bot with its deliveries materialized.
func Seed(ctx context.Context, db *pgxpool.Pool) error {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	for i := 1; i <= 2; i++ {
		title := fmt.Sprintf("Demo Bot %d", i)
		token := fmt.Sprintf("%d:%s", 100000+i, uuid.NewString())

		var botID int64
		err := db.QueryRow(ctx, `INSERT INTO bots (title, token)
VALUES ($1, $2) RETURNING id`, title, token).Scan(&botID)
		if err != nil {
			return err
		}

		// subscribers
		userCount := 20 + r.Intn(30)
		for j := 1; j <= userCount; j++ {
			telegramID := int64(1_000_000*i + j)
			firstName := fmt.Sprintf("User%d", j)
			userName := fmt.Sprintf("demo_user_%d_%d", i, j)
			_, err = db.Exec(ctx, `INSERT INTO users
(bot_id, telegram_id, first_name, user_name)
VALUES ($1, $2, $3, $4) ON CONFLICT DO NOTHING`,
				botID, telegramID, firstName, userName)
			if err != nil {
				return err
			}
		}

		// one active campaign with deliveries fanned out
		var campaignID int64
		err = db.QueryRow(ctx, `INSERT INTO campaigns (bot_id, title, message, active)
VALUES ($1, $2, $3, TRUE) RETURNING id`,
			botID,
			fmt.Sprintf("Welcome broadcast %d", i),
			"Hello! Thanks for subscribing.").Scan(&campaignID)
		if err != nil {
			return err
		}

		_, err = db.Exec(ctx, `INSERT INTO deliveries (campaign_id, bot_id, telegram_id)
SELECT $1, u.bot_id, u.telegram_id FROM users u WHERE u.bot_id = $2
ON CONFLICT DO NOTHING`, campaignID, botID)
		if err != nil {
			return err
		}
	}
	return nil
}
