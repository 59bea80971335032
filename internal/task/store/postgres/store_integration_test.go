//go:build integration

package postgres_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"volunteerhub/internal/task/models"
	"volunteerhub/internal/task/store/postgres"
	"volunteerhub/pkg/domain"
	"volunteerhub/pkg/platform/sentinel"
	"volunteerhub/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *postgres.Store
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = postgres.New(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "tasks"))
}

func newTestTask(capacity uint) *models.Task {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &models.Task{
		ID:        domain.NewTaskID(),
		OrgID:     domain.NewOrgID(),
		Title:     "Beach cleanup",
		Capacity:  capacity,
		StartDate: now.Add(24 * time.Hour),
		EndDate:   now.Add(48 * time.Hour),
		Status:    domain.TaskStatusOpen,
		CreatedAt: now,
	}
}

func (s *PostgresStoreSuite) TestCreateAndFind() {
	ctx := context.Background()

	task := newTestTask(5)
	s.Require().NoError(s.store.Create(ctx, task))

	found, err := s.store.FindByID(ctx, task.ID)
	s.Require().NoError(err)
	s.Equal(task.ID, found.ID)
	s.Equal(task.OrgID, found.OrgID)
	s.Equal(task.Title, found.Title)
	s.Equal(uint(5), found.Capacity)
	s.Equal(uint(0), found.ApprovedCount)
	s.Equal(domain.TaskStatusOpen, found.Status)

	_, err = s.store.FindByID(ctx, domain.NewTaskID())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestUpdateSpecGuards() {
	ctx := context.Background()

	task := newTestTask(5)
	s.Require().NoError(s.store.Create(ctx, task))

	spec := models.Spec{
		Title:     "Beach cleanup, north end",
		Capacity:  8,
		StartDate: task.StartDate,
		EndDate:   task.EndDate,
	}
	s.Require().NoError(s.store.UpdateSpec(ctx, task.ID, spec))

	found, err := s.store.FindByID(ctx, task.ID)
	s.Require().NoError(err)
	s.Equal("Beach cleanup, north end", found.Title)
	s.Equal(uint(8), found.Capacity)

	s.Require().NoError(s.store.IncrementApprovedIfCapacity(ctx, task.ID))
	s.Require().NoError(s.store.IncrementApprovedIfCapacity(ctx, task.ID))
	shrunk := spec
	shrunk.Capacity = 1
	err = s.store.UpdateSpec(ctx, task.ID, shrunk)
	s.ErrorIs(err, sentinel.ErrCapacityExceeded)

	found, err = s.store.FindByID(ctx, task.ID)
	s.Require().NoError(err)
	s.LessOrEqual(found.ApprovedCount, found.Capacity)

	s.Require().NoError(s.store.Close(ctx, task.ID))
	err = s.store.UpdateSpec(ctx, task.ID, spec)
	s.ErrorIs(err, sentinel.ErrInvalidState)

	err = s.store.UpdateSpec(ctx, domain.NewTaskID(), spec)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

// TestConcurrentIncrement verifies the capacity guard under concurrent
// approvals: with capacity 3 and 20 contenders, exactly 3 succeed.
func (s *PostgresStoreSuite) TestConcurrentIncrement() {
	ctx := context.Background()

	task := newTestTask(3)
	s.Require().NoError(s.store.Create(ctx, task))

	const contenders = 20
	var wg sync.WaitGroup
	var wins, denials atomic.Int32

	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.store.IncrementApprovedIfCapacity(ctx, task.ID)
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, sentinel.ErrCapacityExceeded):
				denials.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(3), wins.Load(), "exactly capacity increments should win")
	s.Equal(int32(contenders-3), denials.Load())

	found, err := s.store.FindByID(ctx, task.ID)
	s.Require().NoError(err)
	s.Equal(uint(3), found.ApprovedCount)
}

func (s *PostgresStoreSuite) TestListFilters() {
	ctx := context.Background()

	open := newTestTask(5)
	s.Require().NoError(s.store.Create(ctx, open))

	closed := newTestTask(5)
	closed.OrgID = open.OrgID
	s.Require().NoError(s.store.Create(ctx, closed))
	s.Require().NoError(s.store.Close(ctx, closed.ID))

	other := newTestTask(5)
	s.Require().NoError(s.store.Create(ctx, other))

	openStatus := domain.TaskStatusOpen
	got, err := s.store.List(ctx, models.Filter{Status: &openStatus, OrgID: &open.OrgID})
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.Equal(open.ID, got[0].ID)

	got, err = s.store.List(ctx, models.Filter{OrgID: &open.OrgID})
	s.Require().NoError(err)
	s.Len(got, 2)

	n, err := s.store.Count(ctx)
	s.Require().NoError(err)
	s.Equal(3, n)
}
