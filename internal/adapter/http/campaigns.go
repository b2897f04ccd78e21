package httpadapter

import (
	"encoding/json"
	"net/http"

	"herald/internal/core/domain"
)

func (h *Handler) handleCreateCampaign(w http.ResponseWriter, r *http.Request) {
	botID, ok := pathID(r, "botID")
	if !ok {
		http.Error(w, "invalid bot id", http.StatusBadRequest)
		return
	}
	var campaign domain.Campaign
	if err := json.NewDecoder(r.Body).Decode(&campaign); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	campaign.BotID = botID
	// Campaigns start inactive; dispatch begins through the activate call.
	campaign.Active = false

	created, err := h.svc.CreateCampaign(r.Context(), &campaign)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, created)
}

// handleUpdateCampaign edits a campaign. Message changes are rejected with
// 409 once deliveries exist, since recipients must all receive the same
// text.
func (h *Handler) handleUpdateCampaign(w http.ResponseWriter, r *http.Request) {
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
	var campaign domain.Campaign
	if err := json.NewDecoder(r.Body).Decode(&campaign); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	campaign.BotID = botID
	campaign.ID = campaignID

	updated, err := h.svc.UpdateCampaign(r.Context(), &campaign)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) handleGetCampaign(w http.ResponseWriter, r *http.Request) {
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
	campaign, err := h.svc.GetCampaign(r.Context(), botID, campaignID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, campaign)
}

func (h *Handler) handleListCampaigns(w http.ResponseWriter, r *http.Request) {
	botID, ok := pathID(r, "botID")
	if !ok {
		http.Error(w, "invalid bot id", http.StatusBadRequest)
		return
	}
	items, paginator, err := h.svc.ListCampaigns(r.Context(), botID, pageRequest(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, listing[domain.Campaign]{Items: items, Paginator: paginator})
}

// activationResult reports the fan-out of an activate call.
type activationResult struct {
	Campaign          *domain.Campaign
	DeliveriesCreated int64
}

func (h *Handler) handleActivateCampaign(w http.ResponseWriter, r *http.Request) {
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
	campaign, created, err := h.svc.ActivateCampaign(r.Context(), botID, campaignID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, activationResult{Campaign: campaign, DeliveriesCreated: created})
}

func (h *Handler) handleDeactivateCampaign(w http.ResponseWriter, r *http.Request) {
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
	campaign, err := h.svc.DeactivateCampaign(r.Context(), botID, campaignID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, campaign)
}
