package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	queryService "volunteerhub/internal/query/service"
	"volunteerhub/pkg/platform/httputil"
)

// Service defines the read-side views the handler exposes.
type Service interface {
	Stats(ctx context.Context) (*queryService.Stats, error)
}

// Handler serves the admin dashboard stats.
type Handler struct {
	logger *slog.Logger
	query  Service
}

func New(query Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, query: query}
}

// RegisterAdmin mounts the dashboard routes.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/stats", h.handleStats)
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.query.Stats(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "stats read failed", "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}
