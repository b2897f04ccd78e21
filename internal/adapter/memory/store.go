// Package memory implements the record store contract with mutex-guarded
// maps. It backs the test suite and the demo store driver; the semantics of
// every primitive (compare-and-set claims, round-robin selection, hint
// lifecycle) match the postgres adapter.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"herald/internal/core/domain"
	"herald/internal/core/port"
	"herald/internal/pagination"
)

type userKey struct {
	botID      int64
	telegramID int64
}

type deliveryKey struct {
	campaignID int64
	telegramID int64
}

// Store holds all entities behind a single mutex. Contention is irrelevant
// at test/demo scale and the single lock gives the consistent snapshots the
// statistics contract asks for.
type Store struct {
	mu  sync.Mutex
	now func() time.Time

	bots      map[int64]*domain.Bot
	botOrder  []int64
	users     map[userKey]*domain.User
	userOrder map[int64][]userKey

	campaigns     map[int64]*domain.Campaign
	campaignOrder map[int64][]int64

	deliveries    map[int64]*domain.Delivery
	deliveryByKey map[deliveryKey]int64

	nextBotID      int64
	nextCampaignID int64
	nextDeliveryID int64
}

// New returns an empty store using the wall clock.
func New() *Store {
	return NewWithClock(time.Now)
}

// NewWithClock returns an empty store that reads timestamps from now. Tests
// use it to age in-progress deliveries without sleeping.
func NewWithClock(now func() time.Time) *Store {
	return &Store{
		now:           now,
		bots:          make(map[int64]*domain.Bot),
		users:         make(map[userKey]*domain.User),
		userOrder:     make(map[int64][]userKey),
		campaigns:     make(map[int64]*domain.Campaign),
		campaignOrder: make(map[int64][]int64),
		deliveries:    make(map[int64]*domain.Delivery),
		deliveryByKey: make(map[deliveryKey]int64),
	}
}

func (s *Store) Bots() port.BotStore           { return botView{s} }
func (s *Store) Users() port.UserStore         { return userView{s} }
func (s *Store) Campaigns() port.CampaignStore { return campaignView{s} }
func (s *Store) Deliveries() port.DeliveryStore {
	return deliveryView{s}
}

func clamp(offset, limit, total int) (int, int) {
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return offset, end
}

//---------------------------------------------------------------------------
// bots

type botView struct{ s *Store }

func (v botView) Create(_ context.Context, bot *domain.Bot) (*domain.Bot, error) {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextBotID++
	stored := *bot
	stored.ID = s.nextBotID
	if stored.RRAccessTime.IsZero() {
		// Same baseline the SQL schema uses, so the rate limiter's
		// compare-and-set starts from an agreed value.
		stored.RRAccessTime = time.Unix(0, 0).UTC()
	}
	s.bots[stored.ID] = &stored
	s.botOrder = append(s.botOrder, stored.ID)

	out := stored
	return &out, nil
}

func (v botView) Update(_ context.Context, bot *domain.Bot) (*domain.Bot, error) {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.bots[bot.ID]
	if !ok {
		return nil, nil
	}
	// Scheduler state stays owned by the rate limiter and claim queue.
	stored.Title = bot.Title
	stored.Token = bot.Token

	out := *stored
	return &out, nil
}

func (v botView) Get(_ context.Context, id int64) (*domain.Bot, error) {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.bots[id]
	if !ok {
		return nil, nil
	}
	out := *stored
	return &out, nil
}

func (v botView) List(_ context.Context, req domain.PaginatorRequest) ([]domain.Bot, int, error) {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()

	offset, limit := pagination.Window(req)
	start, end := clamp(offset, limit, len(s.botOrder))

	items := make([]domain.Bot, 0, end-start)
	for _, id := range s.botOrder[start:end] {
		items = append(items, *s.bots[id])
	}
	return items, len(s.botOrder), nil
}

func (v botView) NextRoundRobin(_ context.Context, _ time.Time) (*domain.Bot, error) {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()

	var best *domain.Bot
	for _, id := range s.botOrder {
		b := s.bots[id]
		if b.RRPossiblyEmpty {
			continue
		}
		if best == nil || b.RRAccessTime.Before(best.RRAccessTime) {
			best = b
		}
	}
	if best == nil {
		return nil, nil
	}
	out := *best
	return &out, nil
}

func (v botView) SetPossiblyEmpty(_ context.Context, botID int64, flag bool) error {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.bots[botID]
	if !ok {
		return fmt.Errorf("bot %d: %w", botID, port.ErrNotFound)
	}
	stored.RRPossiblyEmpty = flag
	return nil
}

func (v botView) CompareAndSetAccessTime(_ context.Context, botID int64, expected, next time.Time) (bool, error) {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.bots[botID]
	if !ok {
		return false, fmt.Errorf("bot %d: %w", botID, port.ErrNotFound)
	}
	if !stored.RRAccessTime.Equal(expected) {
		return false, nil
	}
	stored.RRAccessTime = next
	return true, nil
}

//---------------------------------------------------------------------------
// users

type userView struct{ s *Store }

func (v userView) Put(_ context.Context, user *domain.User) (*domain.User, error) {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.bots[user.BotID]; !ok {
		return nil, fmt.Errorf("bot %d: %w", user.BotID, port.ErrNotFound)
	}

	key := userKey{botID: user.BotID, telegramID: user.TelegramID}
	stored, ok := s.users[key]
	if !ok {
		cp := *user
		s.users[key] = &cp
		s.userOrder[user.BotID] = append(s.userOrder[user.BotID], key)
		stored = &cp
	} else {
		// Profile fields are advisory; a partial update keeps what it
		// does not mention.
		if user.FirstName != "" {
			stored.FirstName = user.FirstName
		}
		if user.LastName != "" {
			stored.LastName = user.LastName
		}
		if user.DisplayName != "" {
			stored.DisplayName = user.DisplayName
		}
		if user.UserName != "" {
			stored.UserName = user.UserName
		}
	}

	// A new subscriber joins every active campaign of the bot.
	if !ok {
		for _, cid := range s.campaignOrder[user.BotID] {
			c := s.campaigns[cid]
			if !c.Active {
				continue
			}
			s.insertDeliveryLocked(c, user.TelegramID)
		}
	}

	out := *stored
	return &out, nil
}

func (v userView) Get(_ context.Context, botID, telegramID int64) (*domain.User, error) {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.users[userKey{botID: botID, telegramID: telegramID}]
	if !ok {
		return nil, nil
	}
	out := *stored
	return &out, nil
}

func (v userView) List(_ context.Context, botID int64, req domain.PaginatorRequest) ([]domain.User, int, error) {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()

	order := s.userOrder[botID]
	offset, limit := pagination.Window(req)
	start, end := clamp(offset, limit, len(order))

	items := make([]domain.User, 0, end-start)
	for _, key := range order[start:end] {
		items = append(items, *s.users[key])
	}
	return items, len(order), nil
}

//---------------------------------------------------------------------------
// campaigns

type campaignView struct{ s *Store }

func (v campaignView) Create(_ context.Context, campaign *domain.Campaign) (*domain.Campaign, error) {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.bots[campaign.BotID]; !ok {
		return nil, fmt.Errorf("bot %d: %w", campaign.BotID, port.ErrNotFound)
	}

	s.nextCampaignID++
	stored := *campaign
	stored.ID = s.nextCampaignID
	s.campaigns[stored.ID] = &stored
	s.campaignOrder[stored.BotID] = append(s.campaignOrder[stored.BotID], stored.ID)

	out := stored
	return &out, nil
}

func (v campaignView) Update(_ context.Context, campaign *domain.Campaign) (*domain.Campaign, error) {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.campaigns[campaign.ID]
	if !ok || stored.BotID != campaign.BotID {
		return nil, nil
	}
	stored.Title = campaign.Title
	stored.Message = campaign.Message
	stored.Active = campaign.Active

	out := *stored
	return &out, nil
}

func (v campaignView) Get(_ context.Context, botID, id int64) (*domain.Campaign, error) {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.campaigns[id]
	if !ok || stored.BotID != botID {
		return nil, nil
	}
	out := *stored
	return &out, nil
}

func (v campaignView) List(_ context.Context, botID int64, req domain.PaginatorRequest) ([]domain.Campaign, int, error) {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()

	order := s.campaignOrder[botID]
	offset, limit := pagination.Window(req)
	start, end := clamp(offset, limit, len(order))

	items := make([]domain.Campaign, 0, end-start)
	for _, id := range order[start:end] {
		items = append(items, *s.campaigns[id])
	}
	return items, len(order), nil
}

func (v campaignView) SetActive(_ context.Context, botID, id int64, active bool) (*domain.Campaign, error) {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.campaigns[id]
	if !ok || stored.BotID != botID {
		return nil, nil
	}
	stored.Active = active

	out := *stored
	return &out, nil
}
