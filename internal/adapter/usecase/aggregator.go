package usecase

import (
	"context"
	"time"

	"herald/internal/core/domain"
	"herald/internal/core/port"
)

// Aggregator computes campaign delivery statistics from a single snapshot
// read. "Timed out" is a derived bucket: in-progress deliveries older than
// the reclaim threshold, i.e. rows a crashed worker abandoned that the next
// sweep will revive. Fresher in-progress rows are actively in flight and
// appear only in the Users total.
type Aggregator struct {
	deliveries   port.DeliveryStore
	reclaimAfter time.Duration
	now          func() time.Time
}

// NewAggregator builds an aggregator using the same reclaim threshold the
// dispatcher sweeps with, so the dashboard and the sweep agree on what
// "timed out" means.
func NewAggregator(deliveries port.DeliveryStore, reclaimAfter time.Duration) *Aggregator {
	return &Aggregator{
		deliveries:   deliveries,
		reclaimAfter: reclaimAfter,
		now:          time.Now,
	}
}

// Aggregate returns the state distribution of the campaign's deliveries.
func (a *Aggregator) Aggregate(ctx context.Context, campaignID int64) (*domain.CampaignAggregatedStatistics, error) {
	return a.deliveries.CountByState(ctx, campaignID, a.now().Add(-a.reclaimAfter))
}
