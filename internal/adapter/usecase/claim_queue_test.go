package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"herald/internal/adapter/memory"
	"herald/internal/core/domain"
	"herald/internal/core/port"
)

func TestTakeReturnsJoinedResult(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	bot, campaign := seedBot(t, store, 1)

	q := NewClaimQueue(store, allowAll{}, testLogger())
	res, err := q.Take(ctx, bot.ID)
	require.NoError(t, err)
	require.Equal(t, domain.DeliveryStateProgress, res.Delivery.State)
	require.Equal(t, campaign.ID, res.Campaign.ID)
	require.Equal(t, "hello", res.Campaign.Message)
	require.Equal(t, res.Delivery.TelegramID, res.User.TelegramID)
}

func TestTakeRateLimited(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	bot, _ := seedBot(t, store, 1)

	q := NewClaimQueue(store, denyAll{}, testLogger())
	_, err := q.Take(ctx, bot.ID)
	require.ErrorIs(t, err, port.ErrRateLimited)
}

func TestTakeSetsPossiblyEmptyHint(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	bot, _ := seedBot(t, store, 1)

	q := NewClaimQueue(store, allowAll{}, testLogger())
	_, err := q.Take(ctx, bot.ID)
	require.NoError(t, err)

	_, err = q.Take(ctx, bot.ID)
	require.ErrorIs(t, err, port.ErrNoEligibleDelivery)

	got, err := store.Bots().Get(ctx, bot.ID)
	require.NoError(t, err)
	require.True(t, got.RRPossiblyEmpty)

	// A new subscriber brings fresh work and clears the hint.
	_, err = store.Users().Put(ctx, &domain.User{BotID: bot.ID, TelegramID: 999})
	require.NoError(t, err)
	got, err = store.Bots().Get(ctx, bot.ID)
	require.NoError(t, err)
	require.False(t, got.RRPossiblyEmpty)

	_, err = q.Take(ctx, bot.ID)
	require.NoError(t, err)
}

func TestTakeSkipsInactiveCampaigns(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	bot, campaign := seedBot(t, store, 1)

	_, err := store.Campaigns().SetActive(ctx, bot.ID, campaign.ID, false)
	require.NoError(t, err)

	q := NewClaimQueue(store, allowAll{}, testLogger())
	_, err = q.Take(ctx, bot.ID)
	require.ErrorIs(t, err, port.ErrNoEligibleDelivery)
}

// TestTakeOrdersOldestCampaignFirst drains a bot with two active campaigns
// and requires every delivery of the older campaign before any of the newer
// one.
func TestTakeOrdersOldestCampaignFirst(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	bot, first := seedBot(t, store, 3)

	second, err := store.Campaigns().Create(ctx, &domain.Campaign{
		BotID: bot.ID, Title: "later", Message: "second", Active: true,
	})
	require.NoError(t, err)
	_, err = store.Deliveries().MaterializeCampaign(ctx, second.ID)
	require.NoError(t, err)

	q := NewClaimQueue(store, allowAll{}, testLogger())
	var order []int64
	for {
		res, err := q.Take(ctx, bot.ID)
		if errors.Is(err, port.ErrNoEligibleDelivery) {
			break
		}
		require.NoError(t, err)
		order = append(order, res.Delivery.CampaignID)
	}

	require.Len(t, order, 6)
	require.Equal(t, []int64{first.ID, first.ID, first.ID, second.ID, second.ID, second.ID}, order)
}

// TestTakeConcurrentNoDoubleClaim hammers Take from many goroutines and
// requires every delivery to be handed out exactly once.
func TestTakeConcurrentNoDoubleClaim(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	bot, _ := seedBot(t, store, 50)

	q := NewClaimQueue(store, allowAll{}, testLogger())

	var mu sync.Mutex
	seen := make(map[int64]int)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				res, err := q.Take(ctx, bot.ID)
				if errors.Is(err, port.ErrNoEligibleDelivery) {
					return
				}
				if err != nil {
					t.Errorf("take: %v", err)
					return
				}
				mu.Lock()
				seen[res.Delivery.ID]++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Len(t, seen, 50)
	for id, n := range seen {
		require.Equal(t, 1, n, "delivery %d claimed %d times", id, n)
	}
}
