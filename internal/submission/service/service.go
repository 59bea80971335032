package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	appModel "volunteerhub/internal/application/models"
	certModel "volunteerhub/internal/certificate/models"
	"volunteerhub/internal/storage"
	"volunteerhub/internal/submission/models"
	taskModel "volunteerhub/internal/task/models"
	"volunteerhub/pkg/domain"
	dErrors "volunteerhub/pkg/domain-errors"
	"volunteerhub/pkg/platform/audit"
	"volunteerhub/pkg/platform/sentinel"
	txcontext "volunteerhub/pkg/platform/tx"
	"volunteerhub/pkg/requestcontext"
)

// Store is the persistence contract for submissions.
type Store interface {
	Create(ctx context.Context, sub *models.Submission) error
	FindByID(ctx context.Context, id domain.SubmissionID) (*models.Submission, error)
	TransitionStatus(ctx context.Context, id domain.SubmissionID, from, to domain.SubmissionStatus, reviewedAt *time.Time) error
	ListByVolunteer(ctx context.Context, volunteerID domain.VolunteerID) ([]*models.Submission, error)
	ListByTasks(ctx context.Context, taskIDs []domain.TaskID, status *domain.SubmissionStatus) ([]*models.Submission, error)
	ListByStatus(ctx context.Context, status domain.SubmissionStatus) ([]*models.Submission, error)
	Count(ctx context.Context) (int, error)
}

// ApplicationReader supplies the application rows submissions hang off.
type ApplicationReader interface {
	FindByID(ctx context.Context, id domain.ApplicationID) (*appModel.Application, error)
}

// TaskReader supplies tasks for ownership checks and org listings.
type TaskReader interface {
	FindByID(ctx context.Context, id domain.TaskID) (*taskModel.Task, error)
	List(ctx context.Context, f taskModel.Filter) ([]*taskModel.Task, error)
}

// CertificateIssuer issues the certificate when a submission is approved.
// The implementation must be transaction-aware: it is called with the
// approval transaction's context.
type CertificateIssuer interface {
	Issue(ctx context.Context, volunteerID domain.VolunteerID, taskID domain.TaskID) (*certModel.Certificate, error)
}

// Metrics is the subset of counters the submission service records.
type Metrics interface {
	RecordSubmissionCreated()
	RecordSubmissionApproved()
}

type Service struct {
	store   Store
	apps    ApplicationReader
	tasks   TaskReader
	proofs  storage.ProofStore
	issuer  CertificateIssuer
	runner  txcontext.Runner
	auditor audit.Store
	metrics Metrics
	logger  *slog.Logger
}

type Option func(*Service)

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func WithAuditStore(a audit.Store) Option {
	return func(s *Service) { s.auditor = a }
}

func WithMetrics(m Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func New(store Store, apps ApplicationReader, tasks TaskReader, proofs storage.ProofStore, issuer CertificateIssuer, runner txcontext.Runner, opts ...Option) *Service {
	s := &Service{
		store:  store,
		apps:   apps,
		tasks:  tasks,
		proofs: proofs,
		issuer: issuer,
		runner: runner,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit stores the proof file and records the submission. The file lands in
// the proof store before the row is written; a failed upload leaves no row.
func (s *Service) Submit(ctx context.Context, volunteerID domain.VolunteerID, applicationID domain.ApplicationID, contentType string, proof io.Reader) (*models.Submission, error) {
	app, err := s.apps.FindByID(ctx, applicationID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "application not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load application")
	}
	if app.VolunteerID != volunteerID {
		return nil, dErrors.New(dErrors.CodeNotFound, "application not found")
	}
	if app.Status != domain.ApplicationStatusApproved {
		return nil, dErrors.New(dErrors.CodeInvalidState, "proof can only be submitted for approved applications")
	}

	sub := &models.Submission{
		ID:            domain.NewSubmissionID(),
		ApplicationID: applicationID,
		VolunteerID:   volunteerID,
		TaskID:        app.TaskID,
		Status:        domain.SubmissionStatusUnderReview,
		SubmittedAt:   requestcontext.Now(ctx),
	}

	ref, err := s.proofs.Save(ctx, sub.ID.String(), contentType, proof)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "store proof file")
	}
	sub.ProofRef = ref

	if err := s.store.Create(ctx, sub); err != nil {
		if rmErr := s.proofs.Remove(ctx, ref); rmErr != nil {
			s.logger.ErrorContext(ctx, "orphaned proof file", "proof_ref", ref, "error", rmErr)
		}
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "a submission for this application is already under review")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "create submission")
	}

	s.recordAudit(ctx, audit.ActionSubmissionCreated, sub.ID.String())
	if s.metrics != nil {
		s.metrics.RecordSubmissionCreated()
	}
	s.logger.InfoContext(ctx, "submission created",
		"submission_id", sub.ID, "application_id", applicationID)
	return sub, nil
}

// Approve settles the submission on behalf of the owning organization.
func (s *Service) Approve(ctx context.Context, orgID domain.OrgID, id domain.SubmissionID) (*models.Submission, error) {
	if _, err := s.getForOrg(ctx, orgID, id); err != nil {
		return nil, err
	}
	return s.approve(ctx, id)
}

// ApproveAsAdmin settles the submission with the admin override; no
// ownership check.
func (s *Service) ApproveAsAdmin(ctx context.Context, id domain.SubmissionID) (*models.Submission, error) {
	if _, err := s.get(ctx, id); err != nil {
		return nil, err
	}
	return s.approve(ctx, id)
}

// approve runs the review transaction: status flip plus idempotent
// certificate issuance commit together or not at all. Two concurrent
// approvals race on the conditional update; the loser sees invalid_state.
func (s *Service) approve(ctx context.Context, id domain.SubmissionID) (*models.Submission, error) {
	now := requestcontext.Now(ctx)
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		cur, err := s.store.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if !cur.Status.CanTransition(domain.SubmissionStatusApproved) {
			return sentinel.ErrInvalidState
		}
		if err := s.store.TransitionStatus(ctx, id, domain.SubmissionStatusUnderReview, domain.SubmissionStatusApproved, &now); err != nil {
			return err
		}
		if _, err := s.issuer.Issue(ctx, cur.VolunteerID, cur.TaskID); err != nil {
			return err
		}
		if s.auditor != nil {
			return s.auditor.Append(ctx, s.event(ctx, audit.ActionSubmissionApproved, id.String()))
		}
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.New(dErrors.CodeNotFound, "submission not found")
		case errors.Is(err, sentinel.ErrInvalidState):
			return nil, dErrors.New(dErrors.CodeInvalidState, "submission has already been reviewed")
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "approve submission")
		}
	}

	if s.metrics != nil {
		s.metrics.RecordSubmissionApproved()
	}
	s.logger.InfoContext(ctx, "submission approved", "submission_id", id)
	return s.store.FindByID(ctx, id)
}

// GetForOrg returns the submission if its task belongs to orgID.
func (s *Service) GetForOrg(ctx context.Context, orgID domain.OrgID, id domain.SubmissionID) (*models.Submission, error) {
	return s.getForOrg(ctx, orgID, id)
}

// GetForAdmin returns any submission by id.
func (s *Service) GetForAdmin(ctx context.Context, id domain.SubmissionID) (*models.Submission, error) {
	return s.get(ctx, id)
}

// OpenProof streams the stored proof file for a submission the organization
// may review.
func (s *Service) OpenProof(ctx context.Context, orgID domain.OrgID, id domain.SubmissionID) (io.ReadCloser, string, error) {
	sub, err := s.getForOrg(ctx, orgID, id)
	if err != nil {
		return nil, "", err
	}
	rc, contentType, err := s.proofs.Open(ctx, sub.ProofRef)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, "", dErrors.New(dErrors.CodeNotFound, "proof file not found")
		}
		return nil, "", dErrors.Wrap(err, dErrors.CodeUnavailable, "open proof file")
	}
	return rc, contentType, nil
}

// ListForVolunteer returns the volunteer's submissions.
func (s *Service) ListForVolunteer(ctx context.Context, volunteerID domain.VolunteerID) ([]*models.Submission, error) {
	subs, err := s.store.ListByVolunteer(ctx, volunteerID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list submissions")
	}
	return subs, nil
}

// ListForOrg returns submissions across the organization's tasks narrowed to
// one review status.
func (s *Service) ListForOrg(ctx context.Context, orgID domain.OrgID, status domain.SubmissionStatus) ([]*models.Submission, error) {
	tasks, err := s.tasks.List(ctx, taskModel.Filter{OrgID: &orgID})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list tasks")
	}
	ids := make([]domain.TaskID, 0, len(tasks))
	for _, t := range tasks {
		ids = append(ids, t.ID)
	}
	subs, err := s.store.ListByTasks(ctx, ids, &status)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list submissions")
	}
	return subs, nil
}

// ListByStatus returns all submissions in one review status for the admin
// views.
func (s *Service) ListByStatus(ctx context.Context, status domain.SubmissionStatus) ([]*models.Submission, error) {
	subs, err := s.store.ListByStatus(ctx, status)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list submissions")
	}
	return subs, nil
}

// Count reports the total number of submissions for the admin dashboard.
func (s *Service) Count(ctx context.Context) (int, error) {
	n, err := s.store.Count(ctx)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "count submissions")
	}
	return n, nil
}

func (s *Service) get(ctx context.Context, id domain.SubmissionID) (*models.Submission, error) {
	sub, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "submission not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load submission")
	}
	return sub, nil
}

// getForOrg hides submissions whose task the caller does not own.
func (s *Service) getForOrg(ctx context.Context, orgID domain.OrgID, id domain.SubmissionID) (*models.Submission, error) {
	sub, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	task, err := s.tasks.FindByID(ctx, sub.TaskID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load task")
	}
	if task.OrgID != orgID {
		return nil, dErrors.New(dErrors.CodeNotFound, "submission not found")
	}
	return sub, nil
}

func (s *Service) event(ctx context.Context, action audit.Action, subject string) audit.Event {
	return audit.Event{
		Timestamp: time.Now().UTC(),
		Action:    action,
		Subject:   subject,
		ActorID:   requestcontext.SubjectID(ctx),
		RequestID: requestcontext.RequestID(ctx),
		ClientIP:  requestcontext.ClientIP(ctx),
		UserAgent: requestcontext.UserAgent(ctx),
	}
}

func (s *Service) recordAudit(ctx context.Context, action audit.Action, subject string) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.Append(ctx, s.event(ctx, action, subject)); err != nil {
		s.logger.ErrorContext(ctx, "audit append failed", "action", action, "error", err)
	}
}
