package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	certStore "volunteerhub/internal/certificate/store/memory"
	"volunteerhub/internal/render"
	taskModel "volunteerhub/internal/task/models"
	taskStore "volunteerhub/internal/task/store/memory"
	"volunteerhub/pkg/domain"
	dErrors "volunteerhub/pkg/domain-errors"
	"volunteerhub/pkg/platform/audit"
	auditStore "volunteerhub/pkg/platform/audit/store/memory"
)

// =============================================================================
// Certificate Service Test Suite
// =============================================================================

type CertificateServiceSuite struct {
	suite.Suite
	certs   *certStore.InMemory
	tasks   *taskStore.InMemory
	audit   *auditStore.Store
	service *Service
}

func TestCertificateServiceSuite(t *testing.T) {
	suite.Run(t, new(CertificateServiceSuite))
}

func (s *CertificateServiceSuite) SetupTest() {
	s.certs = certStore.NewInMemory()
	s.tasks = taskStore.NewInMemory()
	s.audit = auditStore.New()
	s.service = New(s.certs, s.tasks, render.NewJSONRenderer(),
		WithAuditStore(s.audit), WithBaseURL("https://volunteerhub.example"))
}

func (s *CertificateServiceSuite) SetupSubTest() {
	s.SetupTest()
}

func (s *CertificateServiceSuite) newTask() *taskModel.Task {
	start := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)
	t := &taskModel.Task{
		ID:        domain.NewTaskID(),
		OrgID:     domain.NewOrgID(),
		Title:     "River cleanup",
		Capacity:  5,
		StartDate: start,
		EndDate:   start.Add(3 * time.Hour),
		Status:    domain.TaskStatusOpen,
		CreatedAt: time.Now().UTC(),
	}
	s.Require().NoError(s.tasks.Create(context.Background(), t))
	return t
}

// =============================================================================
// Issue Tests
// =============================================================================

func (s *CertificateServiceSuite) TestIssue() {
	ctx := context.Background()

	s.Run("first issue creates and audits", func() {
		c, err := s.service.Issue(ctx, domain.NewVolunteerID(), s.newTask().ID)
		s.Require().NoError(err)
		s.False(c.Blocked)
		s.Len(s.audit.ByAction(audit.ActionCertificateIssued), 1)
	})

	s.Run("second issue returns the existing row", func() {
		volunteerID := domain.NewVolunteerID()
		taskID := s.newTask().ID
		first, err := s.service.Issue(ctx, volunteerID, taskID)
		s.Require().NoError(err)
		issued := len(s.audit.ByAction(audit.ActionCertificateIssued))

		second, err := s.service.Issue(ctx, volunteerID, taskID)
		s.Require().NoError(err)
		s.Equal(first.ID, second.ID)
		s.Len(s.audit.ByAction(audit.ActionCertificateIssued), issued)
	})
}

// =============================================================================
// Block Tests
// =============================================================================

func (s *CertificateServiceSuite) TestSetBlocked() {
	ctx := context.Background()

	s.Run("block then unblock round-trips", func() {
		c, err := s.service.Issue(ctx, domain.NewVolunteerID(), s.newTask().ID)
		s.Require().NoError(err)

		blocked, err := s.service.SetBlocked(ctx, c.ID, true)
		s.Require().NoError(err)
		s.True(blocked.Blocked)
		s.NotNil(blocked.BlockedAt)

		unblocked, err := s.service.SetBlocked(ctx, c.ID, false)
		s.Require().NoError(err)
		s.False(unblocked.Blocked)
		s.Nil(unblocked.BlockedAt)
	})

	s.Run("repeating the verdict is a no-op", func() {
		c, err := s.service.Issue(ctx, domain.NewVolunteerID(), s.newTask().ID)
		s.Require().NoError(err)

		_, err = s.service.SetBlocked(ctx, c.ID, true)
		s.Require().NoError(err)
		_, err = s.service.SetBlocked(ctx, c.ID, true)
		s.Require().NoError(err)
		s.Len(s.audit.ByAction(audit.ActionCertificateBlocked), 1)
	})

	s.Run("unknown certificate returns not found", func() {
		_, err := s.service.SetBlocked(ctx, domain.NewCertificateID(), true)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

// =============================================================================
// Download Tests
// =============================================================================

func (s *CertificateServiceSuite) TestDownload() {
	ctx := context.Background()

	s.Run("owner downloads rendered document", func() {
		volunteerID := domain.NewVolunteerID()
		task := s.newTask()
		_, err := s.service.Issue(ctx, volunteerID, task.ID)
		s.Require().NoError(err)

		doc, err := s.service.Download(ctx, volunteerID, volunteerID, task.ID)
		s.Require().NoError(err)
		s.Equal("application/json", doc.ContentType)

		var in render.Input
		s.Require().NoError(json.Unmarshal(doc.Body, &in))
		s.Equal("River cleanup", in.TaskTitle)
		s.NotEmpty(in.QRPayload)
	})

	s.Run("foreign caller is forbidden", func() {
		volunteerID := domain.NewVolunteerID()
		task := s.newTask()
		_, err := s.service.Issue(ctx, volunteerID, task.ID)
		s.Require().NoError(err)

		_, err = s.service.Download(ctx, domain.NewVolunteerID(), volunteerID, task.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("unknown pair returns not found", func() {
		volunteerID := domain.NewVolunteerID()
		_, err := s.service.Download(ctx, volunteerID, volunteerID, domain.NewTaskID())
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("blocked certificate is revoked not missing", func() {
		volunteerID := domain.NewVolunteerID()
		task := s.newTask()
		c, err := s.service.Issue(ctx, volunteerID, task.ID)
		s.Require().NoError(err)
		_, err = s.service.SetBlocked(ctx, c.ID, true)
		s.Require().NoError(err)

		_, err = s.service.Download(ctx, volunteerID, volunteerID, task.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeCertificateRevoked))

		_, err = s.service.SetBlocked(ctx, c.ID, false)
		s.Require().NoError(err)
		doc, err := s.service.Download(ctx, volunteerID, volunteerID, task.ID)
		s.Require().NoError(err)
		s.NotEmpty(doc.Body)
	})
}
