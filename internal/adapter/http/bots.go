package httpadapter

import (
	"encoding/json"
	"net/http"

	"herald/internal/core/domain"
)

// handleCreateBot registers a new bot. The body carries Title and Token;
// scheduler state fields are ignored on input. Returns the created bot with
// its assigned ID.
func (h *Handler) handleCreateBot(w http.ResponseWriter, r *http.Request) {
	var bot domain.Bot
	if err := json.NewDecoder(r.Body).Decode(&bot); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	created, err := h.svc.CreateBot(r.Context(), &bot)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) handleUpdateBot(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "botID")
	if !ok {
		http.Error(w, "invalid bot id", http.StatusBadRequest)
		return
	}
	var bot domain.Bot
	if err := json.NewDecoder(r.Body).Decode(&bot); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	bot.ID = id

	updated, err := h.svc.UpdateBot(r.Context(), &bot)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) handleGetBot(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "botID")
	if !ok {
		http.Error(w, "invalid bot id", http.StatusBadRequest)
		return
	}
	bot, err := h.svc.GetBot(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, bot)
}

func (h *Handler) handleListBots(w http.ResponseWriter, r *http.Request) {
	items, paginator, err := h.svc.ListBots(r.Context(), pageRequest(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, listing[domain.Bot]{Items: items, Paginator: paginator})
}
