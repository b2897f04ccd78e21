package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"herald/internal/adapter/memory"
	"herald/internal/core/domain"
)

// TestAggregateBuckets builds a campaign with deliveries in every state and
// checks the distribution, including the derived timed-out bucket.
func TestAggregateBuckets(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(10_000, 0)
	store := memory.NewWithClock(func() time.Time { return now })

	_, campaign := seedBot(t, store, 5)
	deliveries := store.Deliveries()

	// 1: success, 2: fail, 3: stale progress, 4: fresh progress, 5: pending.
	ids := make([]int64, 6)
	for i := int64(1); i <= 5; i++ {
		d, err := deliveries.Get(ctx, campaign.ID, i)
		require.NoError(t, err)
		ids[i] = d.ID
	}

	claim := func(id int64, next domain.DeliveryState) {
		ok, err := deliveries.CompareAndSetState(ctx, id, domain.DeliveryStatePending, domain.DeliveryStateProgress)
		require.NoError(t, err)
		require.True(t, ok)
		if next != domain.DeliveryStateProgress {
			ok, err = deliveries.CompareAndSetState(ctx, id, domain.DeliveryStateProgress, next)
			require.NoError(t, err)
			require.True(t, ok)
		}
	}

	claim(ids[1], domain.DeliveryStateSuccess)
	claim(ids[2], domain.DeliveryStateFail)
	claim(ids[3], domain.DeliveryStateProgress)

	// The fourth claim happens after the reclaim horizon has moved past the
	// third, so only the third shows up as timed out.
	now = now.Add(10 * time.Minute)
	claim(ids[4], domain.DeliveryStateProgress)

	reclaimAfter := 5 * time.Minute
	agg := NewAggregator(deliveries, reclaimAfter)
	agg.now = func() time.Time { return now }

	stats, err := agg.Aggregate(ctx, campaign.ID)
	require.NoError(t, err)
	require.Equal(t, int64(5), stats.Users)
	require.Equal(t, int64(1), stats.Delivered)
	require.Equal(t, int64(1), stats.Errors)
	require.Equal(t, int64(1), stats.Pending)
	require.Equal(t, int64(1), stats.TimedOut)
}

func TestAggregateEmptyCampaign(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	bot, err := store.Bots().Create(ctx, &domain.Bot{Title: "b", Token: "t"})
	require.NoError(t, err)
	campaign, err := store.Campaigns().Create(ctx, &domain.Campaign{BotID: bot.ID, Title: "c", Message: "m"})
	require.NoError(t, err)

	agg := NewAggregator(store.Deliveries(), 5*time.Minute)
	stats, err := agg.Aggregate(ctx, campaign.ID)
	require.NoError(t, err)
	require.Equal(t, &domain.CampaignAggregatedStatistics{}, stats)
}
