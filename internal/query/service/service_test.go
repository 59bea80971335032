package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	appModel "volunteerhub/internal/application/models"
	appStore "volunteerhub/internal/application/store/memory"
	certModel "volunteerhub/internal/certificate/models"
	certStore "volunteerhub/internal/certificate/store/memory"
	orgModel "volunteerhub/internal/org/models"
	orgStore "volunteerhub/internal/org/store/memory"
	subModel "volunteerhub/internal/submission/models"
	subStore "volunteerhub/internal/submission/store/memory"
	taskModel "volunteerhub/internal/task/models"
	taskStore "volunteerhub/internal/task/store/memory"
	"volunteerhub/pkg/domain"
)

// =============================================================================
// Query Facade Test Suite
// =============================================================================

type QuerySuite struct {
	suite.Suite
	orgs    *orgStore.InMemory
	tasks   *taskStore.InMemory
	apps    *appStore.InMemory
	subs    *subStore.InMemory
	certs   *certStore.InMemory
	service *Service
}

func TestQuerySuite(t *testing.T) {
	suite.Run(t, new(QuerySuite))
}

func (s *QuerySuite) SetupTest() {
	s.orgs = orgStore.NewInMemory()
	s.tasks = taskStore.NewInMemory()
	s.apps = appStore.NewInMemory()
	s.subs = subStore.NewInMemory()
	s.certs = certStore.NewInMemory()
	s.service = New(s.orgs, s.tasks, s.apps, s.subs, s.certs, s.apps)
}

func (s *QuerySuite) TestStats() {
	ctx := context.Background()
	now := time.Now().UTC()

	s.Run("empty system reports zeros", func() {
		stats, err := s.service.Stats(ctx)
		s.Require().NoError(err)
		s.Equal(&Stats{}, stats)
	})

	s.Run("counts reflect the registries", func() {
		orgID := domain.NewOrgID()
		s.Require().NoError(s.orgs.Upsert(ctx, &orgModel.Organization{
			ID: orgID, Name: "Helping Hands", CreatedAt: now,
		}))

		taskID := domain.NewTaskID()
		s.Require().NoError(s.tasks.Create(ctx, &taskModel.Task{
			ID: taskID, OrgID: orgID, Title: "Tree planting", Capacity: 4,
			StartDate: now, EndDate: now.Add(time.Hour),
			Status: domain.TaskStatusOpen, CreatedAt: now,
		}))

		volunteerID := domain.NewVolunteerID()
		appID := domain.NewApplicationID()
		s.Require().NoError(s.apps.Create(ctx, &appModel.Application{
			ID: appID, TaskID: taskID, VolunteerID: volunteerID,
			Status: domain.ApplicationStatusApproved, CreatedAt: now,
		}))
		s.Require().NoError(s.apps.Create(ctx, &appModel.Application{
			ID: domain.NewApplicationID(), TaskID: taskID,
			VolunteerID: volunteerID, Status: domain.ApplicationStatusWithdrawn, CreatedAt: now,
		}))

		s.Require().NoError(s.subs.Create(ctx, &subModel.Submission{
			ID: domain.NewSubmissionID(), ApplicationID: appID,
			VolunteerID: volunteerID, TaskID: taskID,
			Status: domain.SubmissionStatusUnderReview, ProofRef: "p", SubmittedAt: now,
		}))

		_, err := s.certs.Issue(ctx, &certModel.Certificate{
			ID: domain.NewCertificateID(), VolunteerID: volunteerID,
			TaskID: taskID, IssuedAt: now,
		})
		s.Require().NoError(err)

		stats, err := s.service.Stats(ctx)
		s.Require().NoError(err)
		s.Equal(&Stats{
			Volunteers:    1,
			Organizations: 1,
			Tasks:         1,
			Applications:  2,
			Submissions:   1,
			Certificates:  1,
		}, stats)
	})
}
