package httpadapter

import (
	"net/http"

	"herald/internal/core/domain"
)

// handleCampaignStatistics returns the campaign's delivery state
// distribution from a single snapshot read.
func (h *Handler) handleCampaignStatistics(w http.ResponseWriter, r *http.Request) {
	botID, ok := pathID(r, "botID")
	if !ok {
		http.Error(w, "invalid bot id", http.StatusBadRequest)
		return
	}
	campaignID, ok := pathID(r, "campaignID")
	if !ok {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}
	stats, err := h.svc.CampaignStatistics(r.Context(), botID, campaignID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) handleListDeliveries(w http.ResponseWriter, r *http.Request) {
	botID, ok := pathID(r, "botID")
	if !ok {
		http.Error(w, "invalid bot id", http.StatusBadRequest)
		return
	}
	campaignID, ok := pathID(r, "campaignID")
	if !ok {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}
	items, paginator, err := h.svc.ListDeliveries(r.Context(), botID, campaignID, pageRequest(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, listing[domain.Delivery]{Items: items, Paginator: paginator})
}
