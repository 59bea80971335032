package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	subModel "volunteerhub/internal/submission/models"
	"volunteerhub/pkg/domain"
	dErrors "volunteerhub/pkg/domain-errors"
	"volunteerhub/pkg/platform/httputil"
	"volunteerhub/pkg/requestcontext"
)

// maxProofSize bounds a single proof upload.
const maxProofSize = 10 << 20

// Service defines the submission operations the handler exposes.
type Service interface {
	Submit(ctx context.Context, volunteerID domain.VolunteerID, applicationID domain.ApplicationID, contentType string, proof io.Reader) (*subModel.Submission, error)
	Approve(ctx context.Context, orgID domain.OrgID, id domain.SubmissionID) (*subModel.Submission, error)
	ApproveAsAdmin(ctx context.Context, id domain.SubmissionID) (*subModel.Submission, error)
	GetForOrg(ctx context.Context, orgID domain.OrgID, id domain.SubmissionID) (*subModel.Submission, error)
	GetForAdmin(ctx context.Context, id domain.SubmissionID) (*subModel.Submission, error)
	OpenProof(ctx context.Context, orgID domain.OrgID, id domain.SubmissionID) (io.ReadCloser, string, error)
	ListForVolunteer(ctx context.Context, volunteerID domain.VolunteerID) ([]*subModel.Submission, error)
	ListForOrg(ctx context.Context, orgID domain.OrgID, status domain.SubmissionStatus) ([]*subModel.Submission, error)
	ListByStatus(ctx context.Context, status domain.SubmissionStatus) ([]*subModel.Submission, error)
}

// Handler serves the proof submission and review routes.
type Handler struct {
	logger      *slog.Logger
	submissions Service
}

func New(submissions Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, submissions: submissions}
}

// RegisterVolunteer mounts the volunteer submission routes.
func (h *Handler) RegisterVolunteer(r chi.Router) {
	r.Post("/submit", h.handleSubmit)
	r.Get("/submissions", h.handleListMine)
}

// RegisterOrg mounts the organization review routes. Literal segments are
// registered before the id route so chi matches them first.
func (h *Handler) RegisterOrg(r chi.Router) {
	r.Get("/submission/approved", h.handleOrgApproved)
	r.Get("/submission/in-process", h.handleOrgInProcess)
	r.Get("/submission/{submissionID}", h.handleGetForOrg)
	r.Get("/submission/{submissionID}/proof", h.handleProof)
	r.Put("/update-submission/{submissionID}", h.handleApprove)
}

// RegisterAdmin mounts the admin review routes.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/submissions/approved", h.handleAdminApproved)
	r.Get("/submissions/pending", h.handleAdminPending)
	r.Get("/submission/{submissionID}", h.handleGetForAdmin)
	r.Put("/update-submission/{submissionID}", h.handleApproveAsAdmin)
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	volunteerID := domain.VolunteerID(requestcontext.SubjectID(ctx))

	if err := r.ParseMultipartForm(maxProofSize); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "expected multipart form with applicationId and file"))
		return
	}
	applicationID, err := domain.ParseApplicationID(r.FormValue("applicationId"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "file part is required"))
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	sub, err := h.submissions.Submit(ctx, volunteerID, applicationID, contentType, file)
	if err != nil {
		h.logger.WarnContext(ctx, "submission create failed",
			"request_id", requestID, "application_id", applicationID, "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, sub)
}

func (h *Handler) handleListMine(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	volunteerID := domain.VolunteerID(requestcontext.SubjectID(ctx))

	subs, err := h.submissions.ListForVolunteer(ctx, volunteerID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, subs)
}

func (h *Handler) handleOrgApproved(w http.ResponseWriter, r *http.Request) {
	h.listForOrg(w, r, domain.SubmissionStatusApproved)
}

func (h *Handler) handleOrgInProcess(w http.ResponseWriter, r *http.Request) {
	h.listForOrg(w, r, domain.SubmissionStatusUnderReview)
}

func (h *Handler) listForOrg(w http.ResponseWriter, r *http.Request, status domain.SubmissionStatus) {
	ctx := r.Context()
	orgID := domain.OrgID(requestcontext.SubjectID(ctx))

	subs, err := h.submissions.ListForOrg(ctx, orgID, status)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, subs)
}

func (h *Handler) handleGetForOrg(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orgID := domain.OrgID(requestcontext.SubjectID(ctx))

	id, err := domain.ParseSubmissionID(chi.URLParam(r, "submissionID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	sub, err := h.submissions.GetForOrg(ctx, orgID, id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sub)
}

func (h *Handler) handleProof(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orgID := domain.OrgID(requestcontext.SubjectID(ctx))

	id, err := domain.ParseSubmissionID(chi.URLParam(r, "submissionID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	rc, contentType, err := h.submissions.OpenProof(ctx, orgID, id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	io.Copy(w, rc)
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	orgID := domain.OrgID(requestcontext.SubjectID(ctx))

	id, err := domain.ParseSubmissionID(chi.URLParam(r, "submissionID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	sub, err := h.submissions.Approve(ctx, orgID, id)
	if err != nil {
		h.logger.WarnContext(ctx, "submission approval failed",
			"request_id", requestID, "submission_id", id, "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sub)
}

func (h *Handler) handleAdminApproved(w http.ResponseWriter, r *http.Request) {
	h.listByStatus(w, r, domain.SubmissionStatusApproved)
}

func (h *Handler) handleAdminPending(w http.ResponseWriter, r *http.Request) {
	h.listByStatus(w, r, domain.SubmissionStatusUnderReview)
}

func (h *Handler) listByStatus(w http.ResponseWriter, r *http.Request, status domain.SubmissionStatus) {
	subs, err := h.submissions.ListByStatus(r.Context(), status)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, subs)
}

func (h *Handler) handleGetForAdmin(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseSubmissionID(chi.URLParam(r, "submissionID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	sub, err := h.submissions.GetForAdmin(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sub)
}

func (h *Handler) handleApproveAsAdmin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	id, err := domain.ParseSubmissionID(chi.URLParam(r, "submissionID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	sub, err := h.submissions.ApproveAsAdmin(ctx, id)
	if err != nil {
		h.logger.WarnContext(ctx, "submission approval failed",
			"request_id", requestID, "submission_id", id, "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sub)
}
