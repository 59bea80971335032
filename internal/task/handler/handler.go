package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	taskModel "volunteerhub/internal/task/models"
	"volunteerhub/pkg/domain"
	dErrors "volunteerhub/pkg/domain-errors"
	"volunteerhub/pkg/platform/httputil"
	"volunteerhub/pkg/requestcontext"
)

// Service defines the task operations the handler exposes.
type Service interface {
	Create(ctx context.Context, orgID domain.OrgID, spec taskModel.Spec) (*taskModel.Task, error)
	Get(ctx context.Context, id domain.TaskID) (*taskModel.Task, error)
	Update(ctx context.Context, orgID domain.OrgID, id domain.TaskID, spec taskModel.Spec) (*taskModel.Task, error)
	Close(ctx context.Context, orgID domain.OrgID, id domain.TaskID) (*taskModel.Task, error)
	List(ctx context.Context, status *domain.TaskStatus) ([]*taskModel.Task, error)
	ListByOrg(ctx context.Context, orgID domain.OrgID, status *domain.TaskStatus) ([]*taskModel.Task, error)
}

// Handler serves the task routes for all three roles. Role middleware is
// attached by the router that mounts each Register method.
type Handler struct {
	logger *slog.Logger
	tasks  Service
}

func New(tasks Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, tasks: tasks}
}

// RegisterOrg mounts the organization task routes.
func (h *Handler) RegisterOrg(r chi.Router) {
	r.Post("/task/create", h.handleCreate)
	r.Put("/task/update/{taskID}", h.handleUpdate)
	r.Post("/task/close/{taskID}", h.handleClose)
	r.Get("/tasks/{status}", h.handleListOwned)
}

// RegisterVolunteer mounts the read-only catalog routes.
func (h *Handler) RegisterVolunteer(r chi.Router) {
	r.Get("/tasks/{status}", h.handleListByStatus)
	r.Get("/task/{taskID}", h.handleGet)
}

// RegisterAdmin mounts the admin task listing.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/tasks/{orgID}", h.handleListByOrgAdmin)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	orgID := domain.OrgID(requestcontext.SubjectID(ctx))

	spec, ok := httputil.Decode[taskModel.Spec](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	t, err := h.tasks.Create(ctx, orgID, spec)
	if err != nil {
		h.logger.WarnContext(ctx, "task create failed", "request_id", requestID, "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, t)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	orgID := domain.OrgID(requestcontext.SubjectID(ctx))

	taskID, err := domain.ParseTaskID(chi.URLParam(r, "taskID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	spec, ok := httputil.Decode[taskModel.Spec](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	t, err := h.tasks.Update(ctx, orgID, taskID, spec)
	if err != nil {
		h.logger.WarnContext(ctx, "task update failed",
			"request_id", requestID, "task_id", taskID, "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, t)
}

func (h *Handler) handleClose(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orgID := domain.OrgID(requestcontext.SubjectID(ctx))

	taskID, err := domain.ParseTaskID(chi.URLParam(r, "taskID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	t, err := h.tasks.Close(ctx, orgID, taskID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, t)
}

func (h *Handler) handleListOwned(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orgID := domain.OrgID(requestcontext.SubjectID(ctx))

	status, err := statusFilter(chi.URLParam(r, "status"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	ts, err := h.tasks.ListByOrg(ctx, orgID, status)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ts)
}

func (h *Handler) handleListByStatus(w http.ResponseWriter, r *http.Request) {
	status, err := statusFilter(chi.URLParam(r, "status"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	ts, err := h.tasks.List(r.Context(), status)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ts)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	taskID, err := domain.ParseTaskID(chi.URLParam(r, "taskID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	t, err := h.tasks.Get(r.Context(), taskID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, t)
}

func (h *Handler) handleListByOrgAdmin(w http.ResponseWriter, r *http.Request) {
	orgID, err := domain.ParseOrgID(chi.URLParam(r, "orgID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	ts, err := h.tasks.ListByOrg(r.Context(), orgID, nil)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ts)
}

// statusFilter parses the {status} path segment. The literal ALL lifts the
// filter.
func statusFilter(raw string) (*domain.TaskStatus, error) {
	normalized := strings.ToUpper(strings.TrimSpace(raw))
	if normalized == "ALL" {
		return nil, nil
	}
	status, ok := domain.ParseTaskStatus(normalized)
	if !ok {
		return nil, dErrors.Newf(dErrors.CodeValidation, "unknown task status %q", raw)
	}
	return &status, nil
}
