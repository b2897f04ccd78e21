package httpadapter

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"herald/internal/adapter/memory"
	"herald/internal/adapter/usecase"
	"herald/internal/core/domain"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	store := memory.New()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	stats := usecase.NewAggregator(store.Deliveries(), 5*time.Minute)
	admin := usecase.NewAdmin(store, stats, logger)

	srv := httptest.NewServer(NewHandler(admin, logger).Router())
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url, body string, out any) int {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 300 {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestBotAndCampaignLifecycle(t *testing.T) {
	srv := newTestServer(t)
	base := srv.URL + "/api/v1"

	var bot domain.Bot
	code := doJSON(t, http.MethodPost, base+"/bots", `{"Title":"news","Token":"123:abc"}`, &bot)
	require.Equal(t, http.StatusCreated, code)
	require.NotZero(t, bot.ID)

	// Token is mandatory.
	code = doJSON(t, http.MethodPost, base+"/bots", `{"Title":"no token"}`, nil)
	require.Equal(t, http.StatusBadRequest, code)

	botBase := fmt.Sprintf("%s/bots/%d", base, bot.ID)

	var user domain.User
	code = doJSON(t, http.MethodPut, botBase+"/users", `{"TelegramID":42,"FirstName":"Ada"}`, &user)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, bot.ID, user.BotID)

	var campaign domain.Campaign
	code = doJSON(t, http.MethodPost, botBase+"/campaigns", `{"Title":"launch","Message":"hi"}`, &campaign)
	require.Equal(t, http.StatusCreated, code)
	require.False(t, campaign.Active)

	campaignBase := fmt.Sprintf("%s/campaigns/%d", botBase, campaign.ID)

	var activation struct {
		Campaign          domain.Campaign
		DeliveriesCreated int64
	}
	code = doJSON(t, http.MethodPost, campaignBase+"/activate", "", &activation)
	require.Equal(t, http.StatusOK, code)
	require.True(t, activation.Campaign.Active)
	require.Equal(t, int64(1), activation.DeliveriesCreated)

	// Message edits are rejected once deliveries exist.
	code = doJSON(t, http.MethodPut, campaignBase, `{"Title":"launch","Message":"different","Active":true}`, nil)
	require.Equal(t, http.StatusConflict, code)

	var stats domain.CampaignAggregatedStatistics
	code = doJSON(t, http.MethodGet, campaignBase+"/statistics", "", &stats)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, int64(1), stats.Users)
	require.Equal(t, int64(1), stats.Pending)

	var deliveries listing[domain.Delivery]
	code = doJSON(t, http.MethodGet, campaignBase+"/deliveries", "", &deliveries)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, deliveries.Items, 1)
	require.Equal(t, int64(42), deliveries.Items[0].TelegramID)
}

func TestNotFoundAndBadIDs(t *testing.T) {
	srv := newTestServer(t)
	base := srv.URL + "/api/v1"

	code := doJSON(t, http.MethodGet, base+"/bots/999", "", nil)
	require.Equal(t, http.StatusNotFound, code)

	code = doJSON(t, http.MethodGet, base+"/bots/abc", "", nil)
	require.Equal(t, http.StatusBadRequest, code)

	code = doJSON(t, http.MethodGet, base+"/bots/1/campaigns/7/statistics", "", nil)
	require.Equal(t, http.StatusNotFound, code)
}

func TestListBotsPagination(t *testing.T) {
	srv := newTestServer(t)
	base := srv.URL + "/api/v1"

	for i := 0; i < 5; i++ {
		body := fmt.Sprintf(`{"Title":"bot %d","Token":"%d:tok"}`, i, i)
		code := doJSON(t, http.MethodPost, base+"/bots", body, nil)
		require.Equal(t, http.StatusCreated, code)
	}

	var page listing[domain.Bot]
	code := doJSON(t, http.MethodGet, base+"/bots?page=2&size=2", "", &page)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, page.Items, 2)
	require.Equal(t, 3, page.Paginator.Total)
	require.Equal(t, 5, page.Paginator.TotalItems)
}
