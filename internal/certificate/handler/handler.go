package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	certModel "volunteerhub/internal/certificate/models"
	"volunteerhub/internal/render"
	"volunteerhub/pkg/domain"
	"volunteerhub/pkg/platform/httputil"
	"volunteerhub/pkg/requestcontext"
)

// Service defines the certificate operations the handler exposes.
type Service interface {
	Download(ctx context.Context, callerID, volunteerID domain.VolunteerID, taskID domain.TaskID) (render.Document, error)
	SetBlocked(ctx context.Context, id domain.CertificateID, blocked bool) (*certModel.Certificate, error)
	ListMine(ctx context.Context, volunteerID domain.VolunteerID) ([]*certModel.Certificate, error)
	ListAll(ctx context.Context) ([]*certModel.Certificate, error)
}

// Handler serves the volunteer certificate routes and the admin block
// controls.
type Handler struct {
	logger       *slog.Logger
	certificates Service
}

func New(certificates Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, certificates: certificates}
}

// RegisterVolunteer mounts the volunteer certificate routes.
func (h *Handler) RegisterVolunteer(r chi.Router) {
	r.Get("/certification", h.handleListMine)
	r.Get("/certificates/download/{volunteerID}/{taskID}", h.handleDownload)
}

// RegisterAdmin mounts the admin certificate routes.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/certificates", h.handleListAll)
	r.Put("/update-block-status/{certificateID}", h.handleSetBlocked)
}

func (h *Handler) handleListMine(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	volunteerID := domain.VolunteerID(requestcontext.SubjectID(ctx))

	certs, err := h.certificates.ListMine(ctx, volunteerID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, certs)
}

func (h *Handler) handleDownload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	callerID := domain.VolunteerID(requestcontext.SubjectID(ctx))

	volunteerID, err := domain.ParseVolunteerID(chi.URLParam(r, "volunteerID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	taskID, err := domain.ParseTaskID(chi.URLParam(r, "taskID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	doc, err := h.certificates.Download(ctx, callerID, volunteerID, taskID)
	if err != nil {
		h.logger.WarnContext(ctx, "certificate download refused",
			"request_id", requestID, "volunteer_id", volunteerID, "task_id", taskID, "error", err)
		httputil.WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", doc.ContentType)
	w.WriteHeader(http.StatusOK)
	w.Write(doc.Body)
}

func (h *Handler) handleListAll(w http.ResponseWriter, r *http.Request) {
	certs, err := h.certificates.ListAll(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, certs)
}

func (h *Handler) handleSetBlocked(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	id, err := domain.ParseCertificateID(chi.URLParam(r, "certificateID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.Decode[certModel.BlockRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	c, err := h.certificates.SetBlocked(ctx, id, req.Blocked)
	if err != nil {
		h.logger.WarnContext(ctx, "certificate block update failed",
			"request_id", requestID, "certificate_id", id, "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, c)
}
