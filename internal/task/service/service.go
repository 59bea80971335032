package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"volunteerhub/internal/task/models"
	"volunteerhub/pkg/domain"
	dErrors "volunteerhub/pkg/domain-errors"
	"volunteerhub/pkg/platform/audit"
	"volunteerhub/pkg/platform/sentinel"
	"volunteerhub/pkg/requestcontext"
)

// Store is the persistence contract the task service depends on.
type Store interface {
	Create(ctx context.Context, t *models.Task) error
	FindByID(ctx context.Context, id domain.TaskID) (*models.Task, error)
	UpdateSpec(ctx context.Context, id domain.TaskID, spec models.Spec) error
	Close(ctx context.Context, id domain.TaskID) error
	List(ctx context.Context, f models.Filter) ([]*models.Task, error)
	Count(ctx context.Context) (int, error)
}

// Metrics is the subset of counters the task service records.
type Metrics interface {
	RecordTaskCreated()
	RecordTaskClosed()
}

type Service struct {
	store   Store
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

func New(store Store, opts ...Option) *Service {
	s := &Service{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create publishes a new open task owned by the calling organization.
func (s *Service) Create(ctx context.Context, orgID domain.OrgID, spec models.Spec) (*models.Task, error) {
	spec.Normalize()
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	t := &models.Task{
		ID:           domain.NewTaskID(),
		OrgID:        orgID,
		Title:        spec.Title,
		Description:  spec.Description,
		Capacity:     spec.Capacity,
		StartDate:    spec.StartDate,
		EndDate:      spec.EndDate,
		LocationLink: spec.LocationLink,
		ImageRef:     spec.ImageRef,
		Status:       domain.TaskStatusOpen,
		CreatedAt:    requestcontext.Now(ctx),
	}
	if err := s.store.Create(ctx, t); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "create task")
	}

	s.recordAudit(ctx, audit.ActionTaskCreated, t.ID.String())
	if s.metrics != nil {
		s.metrics.RecordTaskCreated()
	}
	s.logger.InfoContext(ctx, "task created", "task_id", t.ID, "org_id", orgID)
	return t, nil
}

// Get returns a task by ID regardless of status.
func (s *Service) Get(ctx context.Context, id domain.TaskID) (*models.Task, error) {
	t, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, mapStoreErr(err, "task")
	}
	return t, nil
}

// getOwned loads the task and hides it from non-owners.
func (s *Service) getOwned(ctx context.Context, id domain.TaskID, orgID domain.OrgID) (*models.Task, error) {
	t, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.OrgID != orgID {
		return nil, dErrors.New(dErrors.CodeNotFound, "task not found")
	}
	return t, nil
}

// Update replaces the editable fields of an open task owned by orgID.
func (s *Service) Update(ctx context.Context, orgID domain.OrgID, id domain.TaskID, spec models.Spec) (*models.Task, error) {
	spec.Normalize()
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.getOwned(ctx, id, orgID); err != nil {
		return nil, err
	}
	if err := s.store.UpdateSpec(ctx, id, spec); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrInvalidState):
			return nil, dErrors.New(dErrors.CodeInvalidState, "closed tasks cannot be edited")
		case errors.Is(err, sentinel.ErrCapacityExceeded):
			return nil, dErrors.New(dErrors.CodeValidation, "capacity cannot be reduced below the approved count")
		}
		return nil, mapStoreErr(err, "task")
	}
	return s.Get(ctx, id)
}

// Close transitions the task to closed. Closing twice is not an error.
func (s *Service) Close(ctx context.Context, orgID domain.OrgID, id domain.TaskID) (*models.Task, error) {
	t, err := s.getOwned(ctx, id, orgID)
	if err != nil {
		return nil, err
	}
	closable := t.Status.CanTransition(domain.TaskStatusClosed)
	if err := s.store.Close(ctx, id); err != nil {
		return nil, mapStoreErr(err, "task")
	}
	if closable {
		s.recordAudit(ctx, audit.ActionTaskClosed, id.String())
		if s.metrics != nil {
			s.metrics.RecordTaskClosed()
		}
		s.logger.InfoContext(ctx, "task closed", "task_id", id, "org_id", orgID)
	}
	return s.Get(ctx, id)
}

// List returns tasks across all organizations, optionally narrowed to one
// status. Volunteers browse the OPEN slice.
func (s *Service) List(ctx context.Context, status *domain.TaskStatus) ([]*models.Task, error) {
	ts, err := s.store.List(ctx, models.Filter{Status: status})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list tasks")
	}
	return ts, nil
}

// ListByOrg returns the organization's tasks, optionally narrowed to one
// status.
func (s *Service) ListByOrg(ctx context.Context, orgID domain.OrgID, status *domain.TaskStatus) ([]*models.Task, error) {
	ts, err := s.store.List(ctx, models.Filter{Status: status, OrgID: &orgID})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list tasks")
	}
	return ts, nil
}

// Count reports the total number of tasks for the admin dashboard.
func (s *Service) Count(ctx context.Context) (int, error) {
	n, err := s.store.Count(ctx)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "count tasks")
	}
	return n, nil
}

func (s *Service) recordAudit(ctx context.Context, action audit.Action, subject string) {
	if s.auditor == nil {
		return
	}
	evt := audit.Event{
		Timestamp: time.Now().UTC(),
		Action:    action,
		Subject:   subject,
		ActorID:   requestcontext.SubjectID(ctx),
		RequestID: requestcontext.RequestID(ctx),
		ClientIP:  requestcontext.ClientIP(ctx),
		UserAgent: requestcontext.UserAgent(ctx),
	}
	if err := s.auditor.Append(ctx, evt); err != nil {
		s.logger.ErrorContext(ctx, "audit append failed", "action", action, "error", err)
	}
}

func mapStoreErr(err error, entity string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, entity+" not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, entity+" already exists")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, entity+" store")
	}
}
