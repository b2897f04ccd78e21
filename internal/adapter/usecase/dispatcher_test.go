package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"herald/internal/adapter/memory"
	"herald/internal/core/domain"
	"herald/internal/core/port"
)

// fakeTransport records sends and fails selected recipients.
type fakeTransport struct {
	mu    sync.Mutex
	sent  map[int64]int
	fails map[int64]error
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{sent: make(map[int64]int), fails: make(map[int64]error)}
}

func (f *fakeTransport) Send(_ context.Context, _ string, telegramID int64, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent[telegramID]++
	if err, ok := f.fails[telegramID]; ok {
		return err
	}
	return nil
}

func (f *fakeTransport) sends(telegramID int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sent[telegramID]
}

func testDispatcher(store port.Store, transport port.Transport) *Dispatcher {
	queue := NewClaimQueue(store, allowAll{}, testLogger())
	return NewDispatcher(DispatcherConfig{
		Workers:       2,
		MaxAttempts:   3,
		BackoffMin:    time.Millisecond,
		BackoffMax:    5 * time.Millisecond,
		SweepInterval: 10 * time.Millisecond,
		ReclaimAfter:  time.Hour,
		GlobalRate:    10_000,
	}, store, queue, transport, testLogger())
}

func claimOne(t *testing.T, store port.Store, botID int64) *domain.DeliveryTakeResult {
	t.Helper()
	q := NewClaimQueue(store, allowAll{}, testLogger())
	res, err := q.Take(context.Background(), botID)
	require.NoError(t, err)
	return res
}

func deliveryState(t *testing.T, store port.Store, campaignID, telegramID int64) *domain.Delivery {
	t.Helper()
	d, err := store.Deliveries().Get(context.Background(), campaignID, telegramID)
	require.NoError(t, err)
	require.NotNil(t, d)
	return d
}

func TestResolveSuccess(t *testing.T) {
	store := memory.New()
	bot, campaign := seedBot(t, store, 1)
	d := testDispatcher(store, newFakeTransport())

	res := claimOne(t, store, bot.ID)
	d.resolve(context.Background(), 0, res, nil)

	got := deliveryState(t, store, campaign.ID, res.Delivery.TelegramID)
	require.Equal(t, domain.DeliveryStateSuccess, got.State)
}

func TestResolvePermanentFailure(t *testing.T) {
	store := memory.New()
	bot, campaign := seedBot(t, store, 1)
	d := testDispatcher(store, newFakeTransport())

	res := claimOne(t, store, bot.ID)
	d.resolve(context.Background(), 0, res, port.PermanentSendError(errors.New("bot was blocked by the user")))

	got := deliveryState(t, store, campaign.ID, res.Delivery.TelegramID)
	require.Equal(t, domain.DeliveryStateFail, got.State)
	require.Equal(t, 0, got.Attempts)
}

func TestResolveRetryableReleases(t *testing.T) {
	store := memory.New()
	bot, campaign := seedBot(t, store, 1)
	d := testDispatcher(store, newFakeTransport())

	res := claimOne(t, store, bot.ID)
	d.resolve(context.Background(), 0, res, port.RetryableSendError(errors.New("connection reset")))

	got := deliveryState(t, store, campaign.ID, res.Delivery.TelegramID)
	require.Equal(t, domain.DeliveryStatePending, got.State)
	require.Equal(t, 1, got.Attempts)
}

// TestResolveRetryExhaustion walks a delivery through the full retry budget
// and requires the terminal fail after the last attempt.
func TestResolveRetryExhaustion(t *testing.T) {
	store := memory.New()
	bot, campaign := seedBot(t, store, 1)
	d := testDispatcher(store, newFakeTransport())
	transient := port.RetryableSendError(errors.New("gateway timeout"))

	var last *domain.DeliveryTakeResult
	for i := 0; i < 3; i++ {
		last = claimOne(t, store, bot.ID)
		require.Equal(t, i, last.Delivery.Attempts)
		d.resolve(context.Background(), 0, last, transient)
	}

	got := deliveryState(t, store, campaign.ID, last.Delivery.TelegramID)
	require.Equal(t, domain.DeliveryStateFail, got.State)
	require.Equal(t, 2, got.Attempts)
}

// TestResolveTimeoutIsRetryable checks that a deadline error without a
// transport classification counts as transient.
func TestResolveTimeoutIsRetryable(t *testing.T) {
	store := memory.New()
	bot, campaign := seedBot(t, store, 1)
	d := testDispatcher(store, newFakeTransport())

	res := claimOne(t, store, bot.ID)
	d.resolve(context.Background(), 0, res, context.DeadlineExceeded)

	got := deliveryState(t, store, campaign.ID, res.Delivery.TelegramID)
	require.Equal(t, domain.DeliveryStatePending, got.State)
}

// TestResolveDoesNotOverwriteReclaimedRow simulates the sweep racing a slow
// send: once the row left progress, the late success must not land.
func TestResolveDoesNotOverwriteReclaimedRow(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	bot, campaign := seedBot(t, store, 1)
	d := testDispatcher(store, newFakeTransport())

	res := claimOne(t, store, bot.ID)
	_, err := store.Deliveries().Reclaim(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)

	d.resolve(ctx, 0, res, nil)

	got := deliveryState(t, store, campaign.ID, res.Delivery.TelegramID)
	require.Equal(t, domain.DeliveryStatePending, got.State)
}

// TestRunDrainsCampaign runs the full pool against the in-memory store and
// waits for every delivery to reach a terminal state.
func TestRunDrainsCampaign(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := memory.New()
	_, campaign := seedBot(t, store, 20)
	transport := newFakeTransport()
	transport.fails[3] = port.PermanentSendError(errors.New("chat not found"))

	d := testDispatcher(store, transport)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = d.Run(ctx)
	}()

	deadline := time.After(5 * time.Second)
	for {
		stats, err := store.Deliveries().CountByState(context.Background(), campaign.ID, time.Unix(0, 0))
		require.NoError(t, err)
		if stats.Delivered == 19 && stats.Errors == 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("campaign not drained: %+v", stats)
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	<-done

	// Exactly one send per successful recipient.
	for i := int64(1); i <= 20; i++ {
		if i == 3 {
			continue
		}
		require.Equal(t, 1, transport.sends(i), "recipient %d", i)
	}
}
