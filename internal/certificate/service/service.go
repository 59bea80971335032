package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"volunteerhub/internal/certificate/models"
	"volunteerhub/internal/render"
	taskModel "volunteerhub/internal/task/models"
	"volunteerhub/pkg/domain"
	dErrors "volunteerhub/pkg/domain-errors"
	"volunteerhub/pkg/platform/audit"
	"volunteerhub/pkg/platform/sentinel"
	"volunteerhub/pkg/requestcontext"
)

// Store is the persistence contract for certificates.
type Store interface {
	Issue(ctx context.Context, c *models.Certificate) (*models.Certificate, error)
	FindByID(ctx context.Context, id domain.CertificateID) (*models.Certificate, error)
	FindByPair(ctx context.Context, volunteerID domain.VolunteerID, taskID domain.TaskID) (*models.Certificate, error)
	SetBlocked(ctx context.Context, id domain.CertificateID, blocked bool, at time.Time) (bool, error)
	ListByVolunteer(ctx context.Context, volunteerID domain.VolunteerID) ([]*models.Certificate, error)
	ListAll(ctx context.Context) ([]*models.Certificate, error)
	Count(ctx context.Context) (int, error)
}

// TaskReader supplies task titles for rendered certificates.
type TaskReader interface {
	FindByID(ctx context.Context, id domain.TaskID) (*taskModel.Task, error)
}

// Metrics is the subset of counters the certificate service records.
type Metrics interface {
	RecordCertificateIssued()
	RecordCertificateBlocked()
	RecordCertificateUnblocked()
}

type Service struct {
	store    Store
	tasks    TaskReader
	renderer render.Renderer
	baseURL  string
	auditor  audit.Store
	metrics  Metrics
	logger   *slog.Logger
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

// WithBaseURL sets the public URL prefix encoded into certificate QR
// payloads.
func WithBaseURL(u string) Option {
	return func(s *Service) { s.baseURL = u }
}

func New(store Store, tasks TaskReader, renderer render.Renderer, opts ...Option) *Service {
	s := &Service{store: store, tasks: tasks, renderer: renderer, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Issue creates the certificate for (volunteer, task) or returns the
// existing one. Safe to call from inside the submission approval
// transaction; the audit row joins that transaction via the context.
func (s *Service) Issue(ctx context.Context, volunteerID domain.VolunteerID, taskID domain.TaskID) (*models.Certificate, error) {
	candidate := &models.Certificate{
		ID:          domain.NewCertificateID(),
		VolunteerID: volunteerID,
		TaskID:      taskID,
		IssuedAt:    requestcontext.Now(ctx),
	}
	c, err := s.store.Issue(ctx, candidate)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "issue certificate")
	}
	if c.ID == candidate.ID {
		if s.auditor != nil {
			if err := s.auditor.Append(ctx, s.event(ctx, audit.ActionCertificateIssued, c.ID.String())); err != nil {
				return nil, dErrors.Wrap(err, dErrors.CodeInternal, "record issuance")
			}
		}
		if s.metrics != nil {
			s.metrics.RecordCertificateIssued()
		}
		s.logger.InfoContext(ctx, "certificate issued",
			"certificate_id", c.ID, "volunteer_id", volunteerID, "task_id", taskID)
	}
	return c, nil
}

// SetBlocked applies the admin verdict. Repeating the current verdict is a
// no-op that still returns the row.
func (s *Service) SetBlocked(ctx context.Context, id domain.CertificateID, blocked bool) (*models.Certificate, error) {
	changed, err := s.store.SetBlocked(ctx, id, blocked, requestcontext.Now(ctx))
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "certificate not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "set certificate blocked")
	}
	if changed {
		action := audit.ActionCertificateBlocked
		if !blocked {
			action = audit.ActionCertificateUnblocked
		}
		s.recordAudit(ctx, action, id.String())
		if s.metrics != nil {
			if blocked {
				s.metrics.RecordCertificateBlocked()
			} else {
				s.metrics.RecordCertificateUnblocked()
			}
		}
		s.logger.InfoContext(ctx, "certificate block state changed",
			"certificate_id", id, "blocked", blocked)
	}
	return s.get(ctx, id)
}

// Download renders the certificate for the volunteer who owns it. Blocked
// certificates fail with a revocation error, never with not found.
func (s *Service) Download(ctx context.Context, callerID, volunteerID domain.VolunteerID, taskID domain.TaskID) (render.Document, error) {
	if callerID != volunteerID {
		return render.Document{}, dErrors.New(dErrors.CodeForbidden, "certificates belong to their volunteer")
	}
	c, err := s.store.FindByPair(ctx, volunteerID, taskID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return render.Document{}, dErrors.New(dErrors.CodeNotFound, "certificate not found")
		}
		return render.Document{}, dErrors.Wrap(err, dErrors.CodeInternal, "load certificate")
	}
	if c.Blocked {
		return render.Document{}, dErrors.New(dErrors.CodeCertificateRevoked, "certificate is blocked")
	}

	title := ""
	if task, err := s.tasks.FindByID(ctx, c.TaskID); err == nil {
		title = task.Title
	}
	doc, err := s.renderer.Render(ctx, render.Input{
		CertificateID: c.ID.String(),
		VolunteerID:   c.VolunteerID.String(),
		TaskID:        c.TaskID.String(),
		TaskTitle:     title,
		IssuedAt:      c.IssuedAt,
		QRPayload:     render.QRPayload(s.baseURL, c.VolunteerID.String(), c.TaskID.String()),
	})
	if err != nil {
		return render.Document{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "render certificate")
	}
	return doc, nil
}

// ListMine returns the volunteer's certificates, blocked ones included so
// the dashboard can show their state.
func (s *Service) ListMine(ctx context.Context, volunteerID domain.VolunteerID) ([]*models.Certificate, error) {
	certs, err := s.store.ListByVolunteer(ctx, volunteerID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list certificates")
	}
	return certs, nil
}

// ListAll returns every certificate for the admin view.
func (s *Service) ListAll(ctx context.Context) ([]*models.Certificate, error) {
	certs, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list certificates")
	}
	return certs, nil
}

// Count reports the total number of certificates for the admin dashboard.
func (s *Service) Count(ctx context.Context) (int, error) {
	n, err := s.store.Count(ctx)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "count certificates")
	}
	return n, nil
}

func (s *Service) get(ctx context.Context, id domain.CertificateID) (*models.Certificate, error) {
	c, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "certificate not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load certificate")
	}
	return c, nil
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
