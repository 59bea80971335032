package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"volunteerhub/internal/application/models"
	appStore "volunteerhub/internal/application/store/memory"
	taskModel "volunteerhub/internal/task/models"
	taskStore "volunteerhub/internal/task/store/memory"
	"volunteerhub/pkg/domain"
	dErrors "volunteerhub/pkg/domain-errors"
	"volunteerhub/pkg/platform/audit"
	auditStore "volunteerhub/pkg/platform/audit/store/memory"
	txcontext "volunteerhub/pkg/platform/tx"
)

// =============================================================================
// Application Service Test Suite
// =============================================================================
// The admission-control path is exercised here directly because the race
// between concurrent approvals is hard to provoke through the HTTP surface.

type ApplicationServiceSuite struct {
	suite.Suite
	apps    *appStore.InMemory
	tasks   *taskStore.InMemory
	audit   *auditStore.Store
	service *Service
	orgID   domain.OrgID
}

func TestApplicationServiceSuite(t *testing.T) {
	suite.Run(t, new(ApplicationServiceSuite))
}

func (s *ApplicationServiceSuite) SetupTest() {
	s.apps = appStore.NewInMemory()
	s.tasks = taskStore.NewInMemory()
	s.audit = auditStore.New()
	s.service = New(s.apps, s.tasks, txcontext.NewSerialRunner(), WithAuditStore(s.audit))
	s.orgID = domain.NewOrgID()
}

func (s *ApplicationServiceSuite) SetupSubTest() {
	s.SetupTest()
}

func (s *ApplicationServiceSuite) newTask(capacity uint) *taskModel.Task {
	start := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)
	t := &taskModel.Task{
		ID:          domain.NewTaskID(),
		OrgID:       s.orgID,
		Title:       "Food bank shift",
		Description: "Sort and pack donations",
		Capacity:    capacity,
		StartDate:   start,
		EndDate:     start.Add(4 * time.Hour),
		Status:      domain.TaskStatusOpen,
		CreatedAt:   time.Now().UTC(),
	}
	s.Require().NoError(s.tasks.Create(context.Background(), t))
	return t
}

func (s *ApplicationServiceSuite) apply(taskID domain.TaskID) *models.Application {
	a, err := s.service.Apply(context.Background(), domain.NewVolunteerID(), taskID, "")
	s.Require().NoError(err)
	return a
}

// =============================================================================
// Apply Tests
// =============================================================================

func (s *ApplicationServiceSuite) TestApply() {
	ctx := context.Background()

	s.Run("creates pending application", func() {
		task := s.newTask(3)
		a := s.apply(task.ID)
		s.Equal(domain.ApplicationStatusPending, a.Status)
		s.Len(s.audit.ByAction(audit.ActionApplicationCreated), 1)
	})

	s.Run("unknown task returns not found", func() {
		_, err := s.service.Apply(ctx, domain.NewVolunteerID(), domain.NewTaskID(), "")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("closed task rejects applications", func() {
		task := s.newTask(3)
		s.Require().NoError(s.tasks.Close(ctx, task.ID))
		_, err := s.service.Apply(ctx, domain.NewVolunteerID(), task.ID, "")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})

	s.Run("second active application conflicts", func() {
		task := s.newTask(3)
		volunteerID := domain.NewVolunteerID()
		_, err := s.service.Apply(ctx, volunteerID, task.ID, "")
		s.Require().NoError(err)
		_, err = s.service.Apply(ctx, volunteerID, task.ID, "")
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("reapplying after withdrawal succeeds", func() {
		task := s.newTask(3)
		volunteerID := domain.NewVolunteerID()
		a, err := s.service.Apply(ctx, volunteerID, task.ID, "")
		s.Require().NoError(err)
		_, err = s.service.Withdraw(ctx, volunteerID, a.ID)
		s.Require().NoError(err)

		again, err := s.service.Apply(ctx, volunteerID, task.ID, "")
		s.Require().NoError(err)
		s.NotEqual(a.ID, again.ID)
	})
}

// =============================================================================
// Withdraw Tests
// =============================================================================

func (s *ApplicationServiceSuite) TestWithdraw() {
	ctx := context.Background()

	s.Run("pending application withdraws", func() {
		task := s.newTask(3)
		volunteerID := domain.NewVolunteerID()
		a, err := s.service.Apply(ctx, volunteerID, task.ID, "")
		s.Require().NoError(err)

		withdrawn, err := s.service.Withdraw(ctx, volunteerID, a.ID)
		s.Require().NoError(err)
		s.Equal(domain.ApplicationStatusWithdrawn, withdrawn.Status)
		s.NotNil(withdrawn.DecidedAt)
	})

	s.Run("decided application cannot withdraw", func() {
		task := s.newTask(3)
		a := s.apply(task.ID)
		_, err := s.service.Decide(ctx, s.orgID, a.ID, domain.ApplicationStatusApproved)
		s.Require().NoError(err)

		_, err = s.service.Withdraw(ctx, a.VolunteerID, a.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})

	s.Run("another volunteers application is invisible", func() {
		task := s.newTask(3)
		a := s.apply(task.ID)
		_, err := s.service.Withdraw(ctx, domain.NewVolunteerID(), a.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

// =============================================================================
// Decide Tests
// =============================================================================

func (s *ApplicationServiceSuite) TestDecide() {
	ctx := context.Background()

	s.Run("approval admits and bumps the counter", func() {
		task := s.newTask(2)
		a := s.apply(task.ID)

		decided, err := s.service.Decide(ctx, s.orgID, a.ID, domain.ApplicationStatusApproved)
		s.Require().NoError(err)
		s.Equal(domain.ApplicationStatusApproved, decided.Status)

		reloaded, err := s.tasks.FindByID(ctx, task.ID)
		s.Require().NoError(err)
		s.EqualValues(1, reloaded.ApprovedCount)
		s.Len(s.audit.ByAction(audit.ActionApplicationApproved), 1)
	})

	s.Run("rejection leaves the counter alone", func() {
		task := s.newTask(2)
		a := s.apply(task.ID)

		decided, err := s.service.Decide(ctx, s.orgID, a.ID, domain.ApplicationStatusRejected)
		s.Require().NoError(err)
		s.Equal(domain.ApplicationStatusRejected, decided.Status)

		reloaded, err := s.tasks.FindByID(ctx, task.ID)
		s.Require().NoError(err)
		s.EqualValues(0, reloaded.ApprovedCount)
	})

	s.Run("second decision is rejected", func() {
		task := s.newTask(2)
		a := s.apply(task.ID)
		_, err := s.service.Decide(ctx, s.orgID, a.ID, domain.ApplicationStatusApproved)
		s.Require().NoError(err)

		_, err = s.service.Decide(ctx, s.orgID, a.ID, domain.ApplicationStatusRejected)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})

	s.Run("approval at capacity is denied", func() {
		task := s.newTask(1)
		first := s.apply(task.ID)
		second := s.apply(task.ID)
		_, err := s.service.Decide(ctx, s.orgID, first.ID, domain.ApplicationStatusApproved)
		s.Require().NoError(err)

		_, err = s.service.Decide(ctx, s.orgID, second.ID, domain.ApplicationStatusApproved)
		s.True(dErrors.HasCode(err, dErrors.CodeCapacityExceeded))

		reloaded, err := s.apps.FindByID(ctx, second.ID)
		s.Require().NoError(err)
		s.Equal(domain.ApplicationStatusPending, reloaded.Status)
		s.Len(s.audit.ByAction(audit.ActionApplicationCapacityDenied), 1)
	})

	s.Run("rejection after capacity denial still works", func() {
		task := s.newTask(1)
		first := s.apply(task.ID)
		second := s.apply(task.ID)
		_, err := s.service.Decide(ctx, s.orgID, first.ID, domain.ApplicationStatusApproved)
		s.Require().NoError(err)
		_, err = s.service.Decide(ctx, s.orgID, second.ID, domain.ApplicationStatusApproved)
		s.True(dErrors.HasCode(err, dErrors.CodeCapacityExceeded))

		decided, err := s.service.Decide(ctx, s.orgID, second.ID, domain.ApplicationStatusRejected)
		s.Require().NoError(err)
		s.Equal(domain.ApplicationStatusRejected, decided.Status)
	})

	s.Run("foreign org sees not found", func() {
		task := s.newTask(2)
		a := s.apply(task.ID)
		_, err := s.service.Decide(ctx, domain.NewOrgID(), a.ID, domain.ApplicationStatusApproved)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

// TestDecideCapacityRace approves N pending applications concurrently for a
// task with capacity k and requires exactly k admissions.
func (s *ApplicationServiceSuite) TestDecideCapacityRace() {
	ctx := context.Background()
	const n = 50
	const k = 3

	task := s.newTask(k)
	apps := make([]*models.Application, n)
	for i := range apps {
		apps[i] = s.apply(task.ID)
	}

	var wg sync.WaitGroup
	results := make(chan error, n)
	for _, a := range apps {
		wg.Add(1)
		go func(id domain.ApplicationID) {
			defer wg.Done()
			_, err := s.service.Decide(ctx, s.orgID, id, domain.ApplicationStatusApproved)
			results <- err
		}(a.ID)
	}
	wg.Wait()
	close(results)

	var approved, denied int
	for err := range results {
		switch {
		case err == nil:
			approved++
		case dErrors.HasCode(err, dErrors.CodeCapacityExceeded):
			denied++
		default:
			s.Failf("unexpected decision error", "%v", err)
		}
	}
	s.Equal(k, approved)
	s.Equal(n-k, denied)

	reloaded, err := s.tasks.FindByID(ctx, task.ID)
	s.Require().NoError(err)
	s.EqualValues(k, reloaded.ApprovedCount)
}

// =============================================================================
// Listing Tests
// =============================================================================

func (s *ApplicationServiceSuite) TestListing() {
	ctx := context.Background()

	s.Run("volunteer listing joins tasks", func() {
		task := s.newTask(3)
		volunteerID := domain.NewVolunteerID()
		_, err := s.service.Apply(ctx, volunteerID, task.ID, "ready to help")
		s.Require().NoError(err)

		list, err := s.service.ListForVolunteer(ctx, volunteerID, nil)
		s.Require().NoError(err)
		s.Require().Len(list, 1)
		s.Equal(task.ID, list[0].Task.ID)
		s.Equal("ready to help", list[0].Application.Motivation)
	})

	s.Run("org listing filters by status", func() {
		task := s.newTask(3)
		a1 := s.apply(task.ID)
		s.apply(task.ID)
		_, err := s.service.Decide(ctx, s.orgID, a1.ID, domain.ApplicationStatusApproved)
		s.Require().NoError(err)

		pending := domain.ApplicationStatusPending
		list, err := s.service.ListForOrg(ctx, s.orgID, &pending)
		s.Require().NoError(err)
		s.Require().Len(list, 1)
		s.Equal(domain.ApplicationStatusPending, list[0].Application.Status)
	})
}
