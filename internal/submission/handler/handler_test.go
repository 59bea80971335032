package handler

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	appModel "volunteerhub/internal/application/models"
	appStore "volunteerhub/internal/application/store/memory"
	certService "volunteerhub/internal/certificate/service"
	certStore "volunteerhub/internal/certificate/store/memory"
	"volunteerhub/internal/render"
	"volunteerhub/internal/storage"
	subModel "volunteerhub/internal/submission/models"
	"volunteerhub/internal/submission/service"
	subStore "volunteerhub/internal/submission/store/memory"
	taskModel "volunteerhub/internal/task/models"
	taskStore "volunteerhub/internal/task/store/memory"
	"volunteerhub/pkg/domain"
	txcontext "volunteerhub/pkg/platform/tx"
	"volunteerhub/pkg/testutil"
)

// =============================================================================
// Submission Handler Test Suite
// =============================================================================

type HandlerSuite struct {
	suite.Suite
	subs   *subStore.InMemory
	apps   *appStore.InMemory
	tasks  *taskStore.InMemory
	certs  *certStore.InMemory
	router chi.Router

	orgID         domain.OrgID
	taskID        domain.TaskID
	volunteerID   domain.VolunteerID
	applicationID domain.ApplicationID
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.subs = subStore.NewInMemory()
	s.apps = appStore.NewInMemory()
	s.tasks = taskStore.NewInMemory()
	s.certs = certStore.NewInMemory()

	issuer := certService.New(s.certs, s.tasks, render.NewJSONRenderer(),
		certService.WithLogger(logger))
	svc := service.New(s.subs, s.apps, s.tasks, storage.NewInMemoryStore(), issuer,
		txcontext.NewSerialRunner(), service.WithLogger(logger))
	h := New(svc, logger)

	s.router = chi.NewRouter()
	s.router.Route("/volunteer", func(r chi.Router) { h.RegisterVolunteer(r) })
	s.router.Route("/organization", func(r chi.Router) { h.RegisterOrg(r) })
	s.router.Route("/admin", func(r chi.Router) { h.RegisterAdmin(r) })

	ctx := context.Background()
	s.orgID = domain.NewOrgID()
	s.taskID = domain.NewTaskID()
	s.volunteerID = domain.NewVolunteerID()
	now := time.Now().UTC()

	s.Require().NoError(s.tasks.Create(ctx, &taskModel.Task{
		ID: s.taskID, OrgID: s.orgID, Title: "Tree planting", Capacity: 10,
		StartDate: now.Add(-48 * time.Hour), EndDate: now.Add(48 * time.Hour),
		Status: domain.TaskStatusOpen, CreatedAt: now.Add(-72 * time.Hour),
	}))

	s.applicationID = s.seedApplication(s.volunteerID, domain.ApplicationStatusApproved)
}

func (s *HandlerSuite) seedApplication(volunteerID domain.VolunteerID, status domain.ApplicationStatus) domain.ApplicationID {
	id := domain.NewApplicationID()
	s.Require().NoError(s.apps.Create(context.Background(), &appModel.Application{
		ID: id, TaskID: s.taskID, VolunteerID: volunteerID,
		Status: status, CreatedAt: time.Now().UTC(),
	}))
	return id
}

// multipartSubmit posts the proof form the way a browser upload does.
func (s *HandlerSuite) multipartSubmit(volunteerID domain.VolunteerID, applicationID string, body string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	s.Require().NoError(w.WriteField("applicationId", applicationID))
	part, err := w.CreateFormFile("file", "proof.png")
	s.Require().NoError(err)
	_, err = part.Write([]byte(body))
	s.Require().NoError(err)
	s.Require().NoError(w.Close())

	req := httptest.NewRequest(http.MethodPost, "/volunteer/submit", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return testutil.DoRequest(s.router, testutil.AsVolunteer(req, volunteerID))
}

func (s *HandlerSuite) submit() *subModel.Submission {
	rr := s.multipartSubmit(s.volunteerID, s.applicationID.String(), "proof bytes")
	testutil.AssertStatus(s.T(), rr, http.StatusCreated)
	return testutil.UnmarshalResponse[subModel.Submission](s.T(), rr)
}

func (s *HandlerSuite) approvePath(id domain.SubmissionID) string {
	return "/organization/update-submission/" + id.String()
}

func (s *HandlerSuite) TestSubmit() {
	s.Run("records the proof and opens review", func() {
		sub := s.submit()
		s.Equal(domain.SubmissionStatusUnderReview, sub.Status)
		s.Equal(s.applicationID, sub.ApplicationID)
		s.Equal(s.taskID, sub.TaskID)
		s.NotEmpty(sub.ProofRef)
	})

	s.Run("rejects a second proof while one is under review", func() {
		rr := s.multipartSubmit(s.volunteerID, s.applicationID.String(), "again")
		testutil.AssertStatusAndError(s.T(), rr, http.StatusConflict, "conflict")
	})

	s.Run("rejects proof for a pending application", func() {
		other := domain.NewVolunteerID()
		pending := s.seedApplication(other, domain.ApplicationStatusPending)
		rr := s.multipartSubmit(other, pending.String(), "early")
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "invalid_state")
	})

	s.Run("hides someone else's application", func() {
		rr := s.multipartSubmit(domain.NewVolunteerID(), s.applicationID.String(), "steal")
		testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, "not_found")
	})

	s.Run("rejects a malformed application id", func() {
		rr := s.multipartSubmit(s.volunteerID, "not-a-uuid", "x")
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "validation_error")
	})

	s.Run("rejects a non-multipart body", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/volunteer/submit",
			map[string]string{"applicationId": s.applicationID.String()})
		rr := testutil.DoRequest(s.router, testutil.AsVolunteer(req, s.volunteerID))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "validation_error")
	})
}

func (s *HandlerSuite) TestListMine() {
	sub := s.submit()

	req := testutil.NewRequest(s.T(), http.MethodGet, "/volunteer/submissions")
	rr := testutil.DoRequest(s.router, testutil.AsVolunteer(req, s.volunteerID))
	testutil.AssertStatus(s.T(), rr, http.StatusOK)

	subs := testutil.UnmarshalResponse[[]*subModel.Submission](s.T(), rr)
	s.Require().Len(*subs, 1)
	s.Equal(sub.ID, (*subs)[0].ID)
}

func (s *HandlerSuite) TestOrgReview() {
	sub := s.submit()

	s.Run("in-process queue lists the open submission", func() {
		req := testutil.NewRequest(s.T(), http.MethodGet, "/organization/submission/in-process")
		rr := testutil.DoRequest(s.router, testutil.AsOrganization(req, s.orgID))
		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		s.Len(*testutil.UnmarshalResponse[[]*subModel.Submission](s.T(), rr), 1)
	})

	s.Run("proof download streams the stored file", func() {
		req := testutil.NewRequest(s.T(), http.MethodGet,
			"/organization/submission/"+sub.ID.String()+"/proof")
		rr := testutil.DoRequest(s.router, testutil.AsOrganization(req, s.orgID))
		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		s.Equal("proof bytes", rr.Body.String())
	})

	s.Run("another org cannot see the submission", func() {
		req := testutil.NewRequest(s.T(), http.MethodGet, "/organization/submission/"+sub.ID.String())
		rr := testutil.DoRequest(s.router, testutil.AsOrganization(req, domain.NewOrgID()))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, "not_found")
	})

	s.Run("approval settles the submission and issues the certificate", func() {
		req := testutil.NewRequest(s.T(), http.MethodPut, s.approvePath(sub.ID))
		rr := testutil.DoRequest(s.router, testutil.AsOrganization(req, s.orgID))
		testutil.AssertStatus(s.T(), rr, http.StatusOK)

		approved := testutil.UnmarshalResponse[subModel.Submission](s.T(), rr)
		s.Equal(domain.SubmissionStatusApproved, approved.Status)
		s.NotNil(approved.ReviewedAt)

		cert, err := s.certs.FindByPair(context.Background(), s.volunteerID, s.taskID)
		s.Require().NoError(err)
		s.False(cert.Blocked)
	})

	s.Run("a second approval reports the settled state", func() {
		req := testutil.NewRequest(s.T(), http.MethodPut, s.approvePath(sub.ID))
		rr := testutil.DoRequest(s.router, testutil.AsOrganization(req, s.orgID))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "invalid_state")
	})
}

func (s *HandlerSuite) TestAdminReview() {
	sub := s.submit()

	s.Run("pending queue lists the open submission", func() {
		req := testutil.NewRequest(s.T(), http.MethodGet, "/admin/submissions/pending")
		rr := testutil.DoRequest(s.router, testutil.AsAdmin(req))
		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		s.Len(*testutil.UnmarshalResponse[[]*subModel.Submission](s.T(), rr), 1)
	})

	s.Run("admin fetches any submission without ownership", func() {
		req := testutil.NewRequest(s.T(), http.MethodGet, "/admin/submission/"+sub.ID.String())
		rr := testutil.DoRequest(s.router, testutil.AsAdmin(req))
		testutil.AssertStatus(s.T(), rr, http.StatusOK)
	})

	s.Run("admin override approves and issues the certificate", func() {
		req := testutil.NewRequest(s.T(), http.MethodPut, "/admin/update-submission/"+sub.ID.String())
		rr := testutil.DoRequest(s.router, testutil.AsAdmin(req))
		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		s.Equal(domain.SubmissionStatusApproved,
			testutil.UnmarshalResponse[subModel.Submission](s.T(), rr).Status)

		_, err := s.certs.FindByPair(context.Background(), s.volunteerID, s.taskID)
		s.NoError(err)
	})

	s.Run("approved queue reflects the verdict", func() {
		req := testutil.NewRequest(s.T(), http.MethodGet, "/admin/submissions/approved")
		rr := testutil.DoRequest(s.router, testutil.AsAdmin(req))
		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		s.Len(*testutil.UnmarshalResponse[[]*subModel.Submission](s.T(), rr), 1)
	})

	s.Run("unknown submission is not found", func() {
		req := testutil.NewRequest(s.T(), http.MethodPut,
			"/admin/update-submission/"+domain.NewSubmissionID().String())
		rr := testutil.DoRequest(s.router, testutil.AsAdmin(req))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, "not_found")
	})
}
