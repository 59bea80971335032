package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	orgModel "volunteerhub/internal/org/models"
	"volunteerhub/pkg/domain"
	"volunteerhub/pkg/platform/httputil"
	"volunteerhub/pkg/requestcontext"
)

// Service defines the organization profile operations the handler exposes.
type Service interface {
	Get(ctx context.Context, id domain.OrgID) (*orgModel.Organization, error)
	UpdateProfile(ctx context.Context, id domain.OrgID, p orgModel.Profile) (*orgModel.Organization, error)
	List(ctx context.Context, orgTypes []string) ([]*orgModel.Organization, error)
}

// Handler serves the organization profile routes and the admin directory.
type Handler struct {
	logger *slog.Logger
	orgs   Service
}

func New(orgs Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, orgs: orgs}
}

// RegisterOrg mounts the self-service profile routes.
func (h *Handler) RegisterOrg(r chi.Router) {
	r.Get("/profile", h.handleGetOwn)
	r.Put("/profile", h.handleUpdateOwn)
}

// RegisterAdmin mounts the admin organization directory.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/organizations", h.handleList)
	r.Get("/organizations/{orgID}", h.handleGetByID)
}

func (h *Handler) handleGetOwn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orgID := domain.OrgID(requestcontext.SubjectID(ctx))

	o, err := h.orgs.Get(ctx, orgID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, o)
}

func (h *Handler) handleUpdateOwn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	orgID := domain.OrgID(requestcontext.SubjectID(ctx))

	profile, ok := httputil.Decode[orgModel.Profile](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	o, err := h.orgs.UpdateProfile(ctx, orgID, profile)
	if err != nil {
		h.logger.WarnContext(ctx, "organization profile update failed",
			"request_id", requestID, "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, o)
}

// handleList serves the directory. The type query accepts a comma-separated
// list; an absent or blank filter lists every organization.
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	orgs, err := h.orgs.List(r.Context(), strings.Split(r.URL.Query().Get("type"), ","))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, orgs)
}

func (h *Handler) handleGetByID(w http.ResponseWriter, r *http.Request) {
	orgID, err := domain.ParseOrgID(chi.URLParam(r, "orgID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	o, err := h.orgs.Get(r.Context(), orgID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, o)
}
