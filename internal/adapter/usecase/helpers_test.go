package usecase

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"herald/internal/adapter/memory"
	"herald/internal/core/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// allowAll is a rate limiter that always grants the slot.
type allowAll struct{}

func (allowAll) Allow(context.Context, int64) bool { return true }

// denyAll is a rate limiter that never grants the slot.
type denyAll struct{}

func (denyAll) Allow(context.Context, int64) bool { return false }

// seedBot creates a bot with n subscribers and one active campaign, with
// deliveries materialized for everyone.
func seedBot(t *testing.T, s *memory.Store, n int) (*domain.Bot, *domain.Campaign) {
	t.Helper()
	ctx := context.Background()

	bot, err := s.Bots().Create(ctx, &domain.Bot{Title: "bot", Token: "token"})
	require.NoError(t, err)
	campaign, err := s.Campaigns().Create(ctx, &domain.Campaign{
		BotID: bot.ID, Title: "campaign", Message: "hello", Active: true,
	})
	require.NoError(t, err)
	for i := 1; i <= n; i++ {
		_, err = s.Users().Put(ctx, &domain.User{BotID: bot.ID, TelegramID: int64(i)})
		require.NoError(t, err)
	}
	return bot, campaign
}
