package memory

import (
	"context"
	"fmt"
	"slices"
	"time"

	"herald/internal/core/domain"
	"herald/internal/core/port"
	"herald/internal/pagination"
)

type deliveryView struct{ s *Store }

// insertDeliveryLocked creates a pending delivery for (campaign, recipient)
// unless one already exists, clearing the bot's possibly-empty hint on
// insert. Callers hold s.mu.
func (s *Store) insertDeliveryLocked(c *domain.Campaign, telegramID int64) bool {
	key := deliveryKey{campaignID: c.ID, telegramID: telegramID}
	if _, ok := s.deliveryByKey[key]; ok {
		return false
	}

	s.nextDeliveryID++
	now := s.now()
	d := &domain.Delivery{
		ID:         s.nextDeliveryID,
		CampaignID: c.ID,
		BotID:      c.BotID,
		TelegramID: telegramID,
		State:      domain.DeliveryStatePending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	s.deliveries[d.ID] = d
	s.deliveryByKey[key] = d.ID

	if bot, ok := s.bots[c.BotID]; ok {
		bot.RRPossiblyEmpty = false
	}
	return true
}

func (v deliveryView) GetPendingDelivery(_ context.Context, botID int64, _ time.Time) (*domain.Delivery, error) {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()

	// Oldest active campaign first, creation order within the campaign.
	var best *domain.Delivery
	for _, d := range s.deliveries {
		if d.BotID != botID || d.State != domain.DeliveryStatePending {
			continue
		}
		c, ok := s.campaigns[d.CampaignID]
		if !ok || !c.Active {
			continue
		}
		if best == nil ||
			d.CampaignID < best.CampaignID ||
			(d.CampaignID == best.CampaignID && d.ID < best.ID) {
			best = d
		}
	}
	if best == nil {
		return nil, nil
	}
	out := *best
	return &out, nil
}

func (v deliveryView) CompareAndSetState(_ context.Context, id int64, expected, next domain.DeliveryState) (bool, error) {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.deliveries[id]
	if !ok {
		return false, fmt.Errorf("delivery %d: %w", id, port.ErrNotFound)
	}
	if d.State != expected {
		return false, nil
	}
	d.State = next
	d.UpdatedAt = s.now()
	return true, nil
}

func (v deliveryView) ReleaseForRetry(_ context.Context, id int64) error {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.deliveries[id]
	if !ok {
		return fmt.Errorf("delivery %d: %w", id, port.ErrNotFound)
	}
	if d.State != domain.DeliveryStateProgress {
		return nil
	}
	d.State = domain.DeliveryStatePending
	d.Attempts++
	d.UpdatedAt = s.now()
	return nil
}

func (v deliveryView) Reclaim(_ context.Context, olderThan time.Time) (int64, error) {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()

	var swept int64
	for _, d := range s.deliveries {
		if d.State == domain.DeliveryStateProgress && d.UpdatedAt.Before(olderThan) {
			d.State = domain.DeliveryStatePending
			d.UpdatedAt = s.now()
			swept++
		}
	}
	return swept, nil
}

func (v deliveryView) Get(_ context.Context, campaignID, telegramID int64) (*domain.Delivery, error) {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.deliveryByKey[deliveryKey{campaignID: campaignID, telegramID: telegramID}]
	if !ok {
		return nil, nil
	}
	out := *s.deliveries[id]
	return &out, nil
}

func (v deliveryView) ListByCampaign(_ context.Context, campaignID int64, req domain.PaginatorRequest) ([]domain.Delivery, int, error) {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()

	var ids []int64
	for id, d := range s.deliveries {
		if d.CampaignID == campaignID {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)

	offset, limit := pagination.Window(req)
	start, end := clamp(offset, limit, len(ids))

	items := make([]domain.Delivery, 0, end-start)
	for _, id := range ids[start:end] {
		items = append(items, *s.deliveries[id])
	}
	return items, len(ids), nil
}

func (v deliveryView) CountByState(_ context.Context, campaignID int64, timedOutBefore time.Time) (*domain.CampaignAggregatedStatistics, error) {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()

	stat := &domain.CampaignAggregatedStatistics{}
	for _, d := range s.deliveries {
		if d.CampaignID != campaignID {
			continue
		}
		stat.Users++
		switch d.State {
		case domain.DeliveryStateSuccess:
			stat.Delivered++
		case domain.DeliveryStateFail:
			stat.Errors++
		case domain.DeliveryStatePending:
			stat.Pending++
		case domain.DeliveryStateProgress:
			// Abandoned rows surface as timed out; fresh in-flight rows
			// stay out of every bucket but Users.
			if d.UpdatedAt.Before(timedOutBefore) {
				stat.TimedOut++
			}
		}
	}
	return stat, nil
}

func (v deliveryView) MaterializeCampaign(_ context.Context, campaignID int64) (int64, error) {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.campaigns[campaignID]
	if !ok {
		return 0, fmt.Errorf("campaign %d: %w", campaignID, port.ErrNotFound)
	}

	var created int64
	for _, key := range s.userOrder[c.BotID] {
		if s.insertDeliveryLocked(c, key.telegramID) {
			created++
		}
	}
	return created, nil
}
