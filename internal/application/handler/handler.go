package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	appModel "volunteerhub/internal/application/models"
	"volunteerhub/pkg/domain"
	dErrors "volunteerhub/pkg/domain-errors"
	"volunteerhub/pkg/platform/httputil"
	"volunteerhub/pkg/requestcontext"
)

// Service defines the application operations the handler exposes.
type Service interface {
	Apply(ctx context.Context, volunteerID domain.VolunteerID, taskID domain.TaskID, motivation string) (*appModel.Application, error)
	Withdraw(ctx context.Context, volunteerID domain.VolunteerID, id domain.ApplicationID) (*appModel.Application, error)
	Decide(ctx context.Context, orgID domain.OrgID, id domain.ApplicationID, outcome domain.DecisionOutcome) (*appModel.Application, error)
	ListForVolunteer(ctx context.Context, volunteerID domain.VolunteerID, status *domain.ApplicationStatus) ([]*appModel.WithTask, error)
	ListForOrg(ctx context.Context, orgID domain.OrgID, status *domain.ApplicationStatus) ([]*appModel.WithTask, error)
}

// Handler serves the volunteer application routes and the organization's
// decision routes.
type Handler struct {
	logger       *slog.Logger
	applications Service
}

func New(applications Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, applications: applications}
}

// RegisterVolunteer mounts the volunteer-facing application routes.
func (h *Handler) RegisterVolunteer(r chi.Router) {
	r.Post("/applications", h.handleApply)
	r.Delete("/application/withdraw/{applicationID}", h.handleWithdraw)
	r.Get("/get/applications/{status}", h.handleListMine)
}

// RegisterOrg mounts the organization review routes.
func (h *Handler) RegisterOrg(r chi.Router) {
	r.Get("/pending/application", h.handleListPending)
	r.Get("/applications/get", h.handleListAll)
	r.Put("/set/{applicationID}/{status}", h.handleDecide)
}

func (h *Handler) handleApply(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	volunteerID := domain.VolunteerID(requestcontext.SubjectID(ctx))

	req, ok := httputil.Decode[appModel.ApplyRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	req.Normalize()
	taskID, err := domain.ParseTaskID(req.TaskID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	a, err := h.applications.Apply(ctx, volunteerID, taskID, req.Motivation)
	if err != nil {
		h.logger.WarnContext(ctx, "application create failed",
			"request_id", requestID, "task_id", taskID, "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, a)
}

func (h *Handler) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	volunteerID := domain.VolunteerID(requestcontext.SubjectID(ctx))

	id, err := domain.ParseApplicationID(chi.URLParam(r, "applicationID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	a, err := h.applications.Withdraw(ctx, volunteerID, id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, a)
}

func (h *Handler) handleListMine(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	volunteerID := domain.VolunteerID(requestcontext.SubjectID(ctx))

	status, err := statusFilter(chi.URLParam(r, "status"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	apps, err := h.applications.ListForVolunteer(ctx, volunteerID, status)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, apps)
}

func (h *Handler) handleListPending(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orgID := domain.OrgID(requestcontext.SubjectID(ctx))

	pending := domain.ApplicationStatusPending
	apps, err := h.applications.ListForOrg(ctx, orgID, &pending)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, apps)
}

func (h *Handler) handleListAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orgID := domain.OrgID(requestcontext.SubjectID(ctx))

	apps, err := h.applications.ListForOrg(ctx, orgID, nil)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, apps)
}

func (h *Handler) handleDecide(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	orgID := domain.OrgID(requestcontext.SubjectID(ctx))

	id, err := domain.ParseApplicationID(chi.URLParam(r, "applicationID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	raw := chi.URLParam(r, "status")
	outcome, ok := domain.ParseDecisionOutcome(strings.ToUpper(strings.TrimSpace(raw)))
	if !ok {
		httputil.WriteError(w, dErrors.Newf(dErrors.CodeValidation, "outcome must be APPROVED or REJECTED, got %q", raw))
		return
	}

	a, err := h.applications.Decide(ctx, orgID, id, outcome)
	if err != nil {
		h.logger.WarnContext(ctx, "application decision failed",
			"request_id", requestID, "application_id", id, "outcome", outcome, "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, a)
}

// statusFilter parses the {status} path segment. The literal ALL lifts the
// filter.
func statusFilter(raw string) (*domain.ApplicationStatus, error) {
	normalized := strings.ToUpper(strings.TrimSpace(raw))
	if normalized == "ALL" {
		return nil, nil
	}
	status, ok := domain.ParseApplicationStatus(normalized)
	if !ok {
		return nil, dErrors.Newf(dErrors.CodeValidation, "unknown application status %q", raw)
	}
	return &status, nil
}
