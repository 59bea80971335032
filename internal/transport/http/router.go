// Package httptransport assembles the public HTTP surface. Routes are split
// into three role-gated trees: /volunteer, /organization, and /admin. Each
// domain handler registers its own routes on the tree matching its audience.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	applicationHandler "volunteerhub/internal/application/handler"
	certificateHandler "volunteerhub/internal/certificate/handler"
	orgHandler "volunteerhub/internal/org/handler"
	"volunteerhub/internal/platform/middleware"
	queryHandler "volunteerhub/internal/query/handler"
	submissionHandler "volunteerhub/internal/submission/handler"
	taskHandler "volunteerhub/internal/task/handler"
	"volunteerhub/pkg/domain"
	"volunteerhub/pkg/platform/httputil"
)

// Deps carries everything the router needs. Nil handlers are not tolerated;
// main wires all of them.
type Deps struct {
	Logger   *slog.Logger
	Verifier middleware.IdentityVerifier

	Tasks        *taskHandler.Handler
	Applications *applicationHandler.Handler
	Submissions  *submissionHandler.Handler
	Certificates *certificateHandler.Handler
	Orgs         *orgHandler.Handler
	Query        *queryHandler.Handler

	// HealthChecks report readiness of backing stores, keyed by name.
	HealthChecks map[string]func(ctx context.Context) error
}

// NewRouter wires middleware and all role trees.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.ClientMetadata)
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", handleHealth(deps.HealthChecks))
	r.Handle("/metrics", promhttp.Handler())

	auth := middleware.RequireAuth(deps.Verifier, deps.Logger)

	r.Route("/volunteer", func(vr chi.Router) {
		vr.Use(auth)
		vr.Use(middleware.RequireRole(domain.RoleVolunteer, deps.Logger))
		deps.Tasks.RegisterVolunteer(vr)
		deps.Applications.RegisterVolunteer(vr)
		deps.Submissions.RegisterVolunteer(vr)
		deps.Certificates.RegisterVolunteer(vr)
	})

	r.Route("/organization", func(or chi.Router) {
		or.Use(auth)
		or.Use(middleware.RequireRole(domain.RoleOrganization, deps.Logger))
		deps.Orgs.RegisterOrg(or)
		deps.Tasks.RegisterOrg(or)
		deps.Applications.RegisterOrg(or)
		deps.Submissions.RegisterOrg(or)
	})

	r.Route("/admin", func(ar chi.Router) {
		ar.Use(auth)
		ar.Use(middleware.RequireRole(domain.RoleAdmin, deps.Logger))
		deps.Orgs.RegisterAdmin(ar)
		deps.Tasks.RegisterAdmin(ar)
		deps.Submissions.RegisterAdmin(ar)
		deps.Certificates.RegisterAdmin(ar)
		deps.Query.RegisterAdmin(ar)
	})

	return r
}

func handleHealth(checks map[string]func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		status := http.StatusOK
		report := map[string]string{"status": "ok"}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status = http.StatusServiceUnavailable
				report["status"] = "degraded"
				report[name] = err.Error()
			} else {
				report[name] = "ok"
			}
		}
		httputil.WriteJSON(w, status, report)
	}
}
