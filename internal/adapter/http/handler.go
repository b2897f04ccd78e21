package httpadapter

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"herald/internal/core/domain"
	"herald/internal/core/port"
)

// Handler contains dependencies and routes. It is an inbound adapter for
// HTTP: it holds the admin use case to execute business logic and a logger
// for structured logging. Routes are registered on a chi.Router for
// convenient method handling.
type Handler struct {
	svc    port.AdminUseCase
	logger *slog.Logger
	router chi.Router
}

// NewHandler creates a handler with all routes configured.
func NewHandler(svc port.AdminUseCase, logger *slog.Logger) *Handler {
	h := &Handler{svc: svc, logger: logger}
	r := chi.NewRouter()

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/bots", func(r chi.Router) {
			r.Post("/", h.handleCreateBot)
			r.Get("/", h.handleListBots)

			r.Route("/{botID}", func(r chi.Router) {
				r.Get("/", h.handleGetBot)
				r.Put("/", h.handleUpdateBot)

				r.Route("/users", func(r chi.Router) {
					r.Put("/", h.handlePutUser)
					r.Get("/", h.handleListUsers)
					r.Get("/{telegramID}", h.handleGetUser)
				})

				r.Route("/campaigns", func(r chi.Router) {
					r.Post("/", h.handleCreateCampaign)
					r.Get("/", h.handleListCampaigns)

					r.Route("/{campaignID}", func(r chi.Router) {
						r.Get("/", h.handleGetCampaign)
						r.Put("/", h.handleUpdateCampaign)
						r.Post("/activate", h.handleActivateCampaign)
						r.Post("/deactivate", h.handleDeactivateCampaign)
						r.Get("/statistics", h.handleCampaignStatistics)
						r.Get("/deliveries", h.handleListDeliveries)
					})
				})
			})
		})
	})
	h.router = r
	return h
}

// Router returns the underlying http.Handler.
func (h *Handler) Router() http.Handler {
	return h.router
}

// listing is the envelope of every paginated response.
type listing[T any] struct {
	Items     []T
	Paginator *domain.PaginatorResponse
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("encode response error", slog.Any("error", err))
	}
}

// writeError maps use case errors onto HTTP statuses. Anything unmapped is
// an internal error: logged in full, reported generically.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, port.ErrNotFound):
		http.NotFound(w, r)
	case errors.Is(err, port.ErrMessageLocked):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, port.ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		h.logger.Error("request failed",
			slog.String("path", r.URL.Path), slog.Any("error", err))
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id, err == nil && id > 0
}

// pageRequest reads the optional page/size query parameters. Absent or
// malformed values fall back to the defaults applied downstream.
func pageRequest(r *http.Request) domain.PaginatorRequest {
	var req domain.PaginatorRequest
	q := r.URL.Query()
	if v, err := strconv.Atoi(q.Get("page")); err == nil {
		req.Page = v
	}
	if v, err := strconv.Atoi(q.Get("size")); err == nil {
		req.Size = v
	}
	return req
}
