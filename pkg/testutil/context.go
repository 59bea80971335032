package testutil

import (
	"net/http"

	"github.com/google/uuid"

	"volunteerhub/pkg/domain"
	"volunteerhub/pkg/requestcontext"
)

// WithSubject puts an authenticated caller into the request context,
// simulating what the auth middleware does for a valid token.
func WithSubject(req *http.Request, subjectID uuid.UUID, role domain.Role) *http.Request {
	ctx := requestcontext.WithSubject(req.Context(), subjectID, role)
	return req.WithContext(ctx)
}

// AsVolunteer marks the request as coming from the given volunteer.
func AsVolunteer(req *http.Request, volunteerID domain.VolunteerID) *http.Request {
	return WithSubject(req, uuid.UUID(volunteerID), domain.RoleVolunteer)
}

// AsOrganization marks the request as coming from the given organization.
func AsOrganization(req *http.Request, orgID domain.OrgID) *http.Request {
	return WithSubject(req, uuid.UUID(orgID), domain.RoleOrganization)
}

// AsAdmin marks the request as coming from an admin.
func AsAdmin(req *http.Request) *http.Request {
	return WithSubject(req, uuid.New(), domain.RoleAdmin)
}
