//go:build integration

package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"volunteerhub/internal/submission/models"
	"volunteerhub/internal/submission/store/postgres"
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
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "submissions"))
}

func newTestSubmission(applicationID domain.ApplicationID) *models.Submission {
	return &models.Submission{
		ID:            domain.NewSubmissionID(),
		ApplicationID: applicationID,
		VolunteerID:   domain.NewVolunteerID(),
		TaskID:        domain.NewTaskID(),
		Status:        domain.SubmissionStatusUnderReview,
		ProofRef:      "proofs/abc",
		SubmittedAt:   time.Now().UTC().Truncate(time.Microsecond),
	}
}

func (s *PostgresStoreSuite) TestOnePendingProofPerApplication() {
	ctx := context.Background()
	applicationID := domain.NewApplicationID()

	first := newTestSubmission(applicationID)
	s.Require().NoError(s.store.Create(ctx, first))

	err := s.store.Create(ctx, newTestSubmission(applicationID))
	s.ErrorIs(err, sentinel.ErrConflict)

	// Once reviewed, the slot opens again.
	now := time.Now().UTC()
	s.Require().NoError(s.store.TransitionStatus(ctx, first.ID,
		domain.SubmissionStatusUnderReview, domain.SubmissionStatusApproved, &now))
	s.Require().NoError(s.store.Create(ctx, newTestSubmission(applicationID)))
}

func (s *PostgresStoreSuite) TestTransitionStatusGuards() {
	ctx := context.Background()
	sub := newTestSubmission(domain.NewApplicationID())
	s.Require().NoError(s.store.Create(ctx, sub))

	now := time.Now().UTC().Truncate(time.Microsecond)
	s.Require().NoError(s.store.TransitionStatus(ctx, sub.ID,
		domain.SubmissionStatusUnderReview, domain.SubmissionStatusApproved, &now))

	found, err := s.store.FindByID(ctx, sub.ID)
	s.Require().NoError(err)
	s.Equal(domain.SubmissionStatusApproved, found.Status)
	s.Require().NotNil(found.ReviewedAt)

	err = s.store.TransitionStatus(ctx, sub.ID,
		domain.SubmissionStatusUnderReview, domain.SubmissionStatusApproved, &now)
	s.ErrorIs(err, sentinel.ErrInvalidState)

	err = s.store.TransitionStatus(ctx, domain.NewSubmissionID(),
		domain.SubmissionStatusUnderReview, domain.SubmissionStatusApproved, &now)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestListing() {
	ctx := context.Background()

	a := newTestSubmission(domain.NewApplicationID())
	s.Require().NoError(s.store.Create(ctx, a))
	b := newTestSubmission(domain.NewApplicationID())
	b.TaskID = a.TaskID
	s.Require().NoError(s.store.Create(ctx, b))
	c := newTestSubmission(domain.NewApplicationID())
	s.Require().NoError(s.store.Create(ctx, c))

	now := time.Now().UTC()
	s.Require().NoError(s.store.TransitionStatus(ctx, b.ID,
		domain.SubmissionStatusUnderReview, domain.SubmissionStatusApproved, &now))

	mine, err := s.store.ListByVolunteer(ctx, a.VolunteerID)
	s.Require().NoError(err)
	s.Require().Len(mine, 1)
	s.Equal(a.ID, mine[0].ID)

	approved := domain.SubmissionStatusApproved
	byTask, err := s.store.ListByTasks(ctx, []domain.TaskID{a.TaskID}, &approved)
	s.Require().NoError(err)
	s.Require().Len(byTask, 1)
	s.Equal(b.ID, byTask[0].ID)

	pending, err := s.store.ListByStatus(ctx, domain.SubmissionStatusUnderReview)
	s.Require().NoError(err)
	s.Len(pending, 2)

	n, err := s.store.Count(ctx)
	s.Require().NoError(err)
	s.Equal(3, n)
}
