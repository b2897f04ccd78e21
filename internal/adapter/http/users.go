package httpadapter

import (
	"encoding/json"
	"net/http"

	"herald/internal/core/domain"
)

// handlePutUser upserts a subscriber. The operation is idempotent: repeating
// it with the same profile changes nothing, and empty profile fields leave
// the stored values untouched.
func (h *Handler) handlePutUser(w http.ResponseWriter, r *http.Request) {
	botID, ok := pathID(r, "botID")
	if !ok {
		http.Error(w, "invalid bot id", http.StatusBadRequest)
		return
	}
	var user domain.User
	if err := json.NewDecoder(r.Body).Decode(&user); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if user.TelegramID <= 0 {
		http.Error(w, "invalid telegram id", http.StatusBadRequest)
		return
	}
	user.BotID = botID

	stored, err := h.svc.PutUser(r.Context(), &user)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, stored)
}

func (h *Handler) handleGetUser(w http.ResponseWriter, r *http.Request) {
	botID, ok := pathID(r, "botID")
	if !ok {
		http.Error(w, "invalid bot id", http.StatusBadRequest)
		return
	}
	telegramID, ok := pathID(r, "telegramID")
	if !ok {
		http.Error(w, "invalid telegram id", http.StatusBadRequest)
		return
	}
	user, err := h.svc.GetUser(r.Context(), botID, telegramID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, user)
}

func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	botID, ok := pathID(r, "botID")
	if !ok {
		http.Error(w, "invalid bot id", http.StatusBadRequest)
		return
	}
	items, paginator, err := h.svc.ListUsers(r.Context(), botID, pageRequest(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, listing[domain.User]{Items: items, Paginator: paginator})
}
