package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"volunteerhub/internal/application/models"
	taskModel "volunteerhub/internal/task/models"
	"volunteerhub/pkg/domain"
	dErrors "volunteerhub/pkg/domain-errors"
	"volunteerhub/pkg/platform/audit"
	"volunteerhub/pkg/platform/sentinel"
	txcontext "volunteerhub/pkg/platform/tx"
	"volunteerhub/pkg/requestcontext"
)

// Store is the persistence contract for applications.
type Store interface {
	Create(ctx context.Context, a *models.Application) error
	FindByID(ctx context.Context, id domain.ApplicationID) (*models.Application, error)
	TransitionStatus(ctx context.Context, id domain.ApplicationID, from, to domain.ApplicationStatus, decidedAt *time.Time) error
	ListByVolunteer(ctx context.Context, volunteerID domain.VolunteerID, status *domain.ApplicationStatus) ([]*models.Application, error)
	ListByTasks(ctx context.Context, taskIDs []domain.TaskID, status *domain.ApplicationStatus) ([]*models.Application, error)
	Count(ctx context.Context) (int, error)
}

// TaskStore is the slice of the task store the application service needs:
// reads for guards and the capacity compare-and-swap for approvals.
type TaskStore interface {
	FindByID(ctx context.Context, id domain.TaskID) (*taskModel.Task, error)
	IncrementApprovedIfCapacity(ctx context.Context, id domain.TaskID) error
	List(ctx context.Context, f taskModel.Filter) ([]*taskModel.Task, error)
}

// Metrics is the subset of counters the application service records.
type Metrics interface {
	RecordApplicationCreated()
	RecordApplicationApproved()
	RecordApplicationRejected()
	RecordApplicationWithdrawn()
	RecordApplicationCapacityDenied()
}

type Service struct {
	store   Store
	tasks   TaskStore
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

func New(store Store, tasks TaskStore, runner txcontext.Runner, opts ...Option) *Service {
	s := &Service{store: store, tasks: tasks, runner: runner, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Apply files a pending application for an open task. A volunteer holds at
// most one non-withdrawn application per task.
func (s *Service) Apply(ctx context.Context, volunteerID domain.VolunteerID, taskID domain.TaskID, motivation string) (*models.Application, error) {
	task, err := s.tasks.FindByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "task not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load task")
	}
	if task.Status.Terminal() {
		return nil, dErrors.New(dErrors.CodeInvalidState, "task is closed for applications")
	}

	a := &models.Application{
		ID:          domain.NewApplicationID(),
		TaskID:      taskID,
		VolunteerID: volunteerID,
		Status:      domain.ApplicationStatusPending,
		Motivation:  motivation,
		CreatedAt:   requestcontext.Now(ctx),
	}
	if err := s.store.Create(ctx, a); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "an application for this task already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "create application")
	}

	s.recordAudit(ctx, audit.ActionApplicationCreated, a.ID.String(), "")
	if s.metrics != nil {
		s.metrics.RecordApplicationCreated()
	}
	s.logger.InfoContext(ctx, "application created",
		"application_id", a.ID, "task_id", taskID, "volunteer_id", volunteerID)
	return a, nil
}

// Withdraw retires a pending application. Decided applications stay put.
func (s *Service) Withdraw(ctx context.Context, volunteerID domain.VolunteerID, id domain.ApplicationID) (*models.Application, error) {
	a, err := s.getOwnedByVolunteer(ctx, id, volunteerID)
	if err != nil {
		return nil, err
	}
	if a.Status.Terminal() {
		return nil, dErrors.New(dErrors.CodeInvalidState, "only pending applications can be withdrawn")
	}

	now := requestcontext.Now(ctx)
	err = s.store.TransitionStatus(ctx, id, domain.ApplicationStatusPending, domain.ApplicationStatusWithdrawn, &now)
	if err != nil {
		return nil, mapTransitionErr(err, "only pending applications can be withdrawn")
	}

	s.recordAudit(ctx, audit.ActionApplicationWithdrawn, id.String(), "")
	if s.metrics != nil {
		s.metrics.RecordApplicationWithdrawn()
	}
	s.logger.InfoContext(ctx, "application withdrawn", "application_id", id)
	return s.store.FindByID(ctx, id)
}

// Decide settles a pending application for a task owned by orgID. Approval
// admits the volunteer only while the task still has capacity: the status
// flip and the counter increment commit atomically or not at all.
func (s *Service) Decide(ctx context.Context, orgID domain.OrgID, id domain.ApplicationID, outcome domain.DecisionOutcome) (*models.Application, error) {
	a, err := s.getForOrg(ctx, id, orgID)
	if err != nil {
		return nil, err
	}
	if !a.Status.CanTransition(outcome) {
		return nil, dErrors.New(dErrors.CodeInvalidState, "application has already been decided")
	}

	now := requestcontext.Now(ctx)

	if outcome == domain.ApplicationStatusRejected {
		err := s.store.TransitionStatus(ctx, id, domain.ApplicationStatusPending, domain.ApplicationStatusRejected, &now)
		if err != nil {
			return nil, mapTransitionErr(err, "application has already been decided")
		}
		s.recordAudit(ctx, audit.ActionApplicationRejected, id.String(), string(outcome))
		if s.metrics != nil {
			s.metrics.RecordApplicationRejected()
		}
		s.logger.InfoContext(ctx, "application rejected", "application_id", id)
		return s.store.FindByID(ctx, id)
	}

	err = s.runner.RunInTx(ctx, func(ctx context.Context) error {
		// Re-check inside the transaction so the serial in-memory runner
		// never reaches a write it cannot roll back.
		cur, err := s.store.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if !cur.Status.CanTransition(domain.ApplicationStatusApproved) {
			return sentinel.ErrInvalidState
		}
		task, err := s.tasks.FindByID(ctx, cur.TaskID)
		if err != nil {
			return err
		}
		if task.ApprovedCount >= task.Capacity {
			return sentinel.ErrCapacityExceeded
		}
		if err := s.store.TransitionStatus(ctx, id, domain.ApplicationStatusPending, domain.ApplicationStatusApproved, &now); err != nil {
			return err
		}
		if err := s.tasks.IncrementApprovedIfCapacity(ctx, cur.TaskID); err != nil {
			return err
		}
		if s.auditor != nil {
			return s.auditor.Append(ctx, s.event(ctx, audit.ActionApplicationApproved, id.String(), string(outcome)))
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrCapacityExceeded) {
			s.recordAudit(ctx, audit.ActionApplicationCapacityDenied, id.String(), "capacity_denied")
			if s.metrics != nil {
				s.metrics.RecordApplicationCapacityDenied()
			}
			s.logger.WarnContext(ctx, "approval denied at capacity",
				"application_id", id, "task_id", a.TaskID)
			return nil, dErrors.New(dErrors.CodeCapacityExceeded, "task has no remaining capacity")
		}
		return nil, mapTransitionErr(err, "application has already been decided")
	}

	if s.metrics != nil {
		s.metrics.RecordApplicationApproved()
	}
	s.logger.InfoContext(ctx, "application approved", "application_id", id, "task_id", a.TaskID)
	return s.store.FindByID(ctx, id)
}

// ListForVolunteer returns the volunteer's applications joined with their
// tasks, optionally narrowed to one status.
func (s *Service) ListForVolunteer(ctx context.Context, volunteerID domain.VolunteerID, status *domain.ApplicationStatus) ([]*models.WithTask, error) {
	apps, err := s.store.ListByVolunteer(ctx, volunteerID, status)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list applications")
	}
	out := make([]*models.WithTask, 0, len(apps))
	for _, a := range apps {
		task, err := s.tasks.FindByID(ctx, a.TaskID)
		if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load task")
		}
		out = append(out, &models.WithTask{Application: a, Task: task})
	}
	return out, nil
}

// ListForOrg returns applications across the organization's tasks,
// optionally narrowed to one status.
func (s *Service) ListForOrg(ctx context.Context, orgID domain.OrgID, status *domain.ApplicationStatus) ([]*models.WithTask, error) {
	tasks, err := s.tasks.List(ctx, taskModel.Filter{OrgID: &orgID})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list tasks")
	}
	byID := make(map[domain.TaskID]*taskModel.Task, len(tasks))
	ids := make([]domain.TaskID, 0, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
		ids = append(ids, t.ID)
	}

	apps, err := s.store.ListByTasks(ctx, ids, status)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list applications")
	}
	out := make([]*models.WithTask, 0, len(apps))
	for _, a := range apps {
		out = append(out, &models.WithTask{Application: a, Task: byID[a.TaskID]})
	}
	return out, nil
}

// Count reports the total number of applications for the admin dashboard.
func (s *Service) Count(ctx context.Context) (int, error) {
	n, err := s.store.Count(ctx)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "count applications")
	}
	return n, nil
}

func (s *Service) getOwnedByVolunteer(ctx context.Context, id domain.ApplicationID, volunteerID domain.VolunteerID) (*models.Application, error) {
	a, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "application not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load application")
	}
	if a.VolunteerID != volunteerID {
		return nil, dErrors.New(dErrors.CodeNotFound, "application not found")
	}
	return a, nil
}

// getForOrg hides applications whose task the caller does not own.
func (s *Service) getForOrg(ctx context.Context, id domain.ApplicationID, orgID domain.OrgID) (*models.Application, error) {
	a, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "application not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load application")
	}
	task, err := s.tasks.FindByID(ctx, a.TaskID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load task")
	}
	if task.OrgID != orgID {
		return nil, dErrors.New(dErrors.CodeNotFound, "application not found")
	}
	return a, nil
}

func (s *Service) event(ctx context.Context, action audit.Action, subject, decision string) audit.Event {
	return audit.Event{
		Timestamp: time.Now().UTC(),
		Action:    action,
		Subject:   subject,
		ActorID:   requestcontext.SubjectID(ctx),
		Decision:  decision,
		RequestID: requestcontext.RequestID(ctx),
		ClientIP:  requestcontext.ClientIP(ctx),
		UserAgent: requestcontext.UserAgent(ctx),
	}
}

func (s *Service) recordAudit(ctx context.Context, action audit.Action, subject, decision string) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.Append(ctx, s.event(ctx, action, subject, decision)); err != nil {
		s.logger.ErrorContext(ctx, "audit append failed", "action", action, "error", err)
	}
}

func mapTransitionErr(err error, invalidMsg string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "application not found")
	case errors.Is(err, sentinel.ErrInvalidState):
		return dErrors.New(dErrors.CodeInvalidState, invalidMsg)
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "application store")
	}
}
