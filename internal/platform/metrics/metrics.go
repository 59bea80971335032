package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus counters for the lifecycle operations.
// Services hold a nil *Metrics when metrics are disabled and guard each
// increment.
type Metrics struct {
	TasksCreated prometheus.Counter
	TasksClosed  prometheus.Counter

	ApplicationsCreated   prometheus.Counter
	ApplicationsApproved  prometheus.Counter
	ApplicationsRejected  prometheus.Counter
	ApplicationsWithdrawn prometheus.Counter
	CapacityDenied        prometheus.Counter

	SubmissionsCreated  prometheus.Counter
	SubmissionsApproved prometheus.Counter

	CertificatesIssued    prometheus.Counter
	CertificatesBlocked   prometheus.Counter
	CertificatesUnblocked prometheus.Counter
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		TasksCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "volunteerhub_tasks_created_total",
			Help: "Total number of tasks created",
		}),
		TasksClosed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "volunteerhub_tasks_closed_total",
			Help: "Total number of tasks closed",
		}),
		ApplicationsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "volunteerhub_applications_created_total",
			Help: "Total number of volunteer applications created",
		}),
		ApplicationsApproved: promauto.NewCounter(prometheus.CounterOpts{
			Name: "volunteerhub_applications_approved_total",
			Help: "Total number of applications approved",
		}),
		ApplicationsRejected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "volunteerhub_applications_rejected_total",
			Help: "Total number of applications rejected",
		}),
		ApplicationsWithdrawn: promauto.NewCounter(prometheus.CounterOpts{
			Name: "volunteerhub_applications_withdrawn_total",
			Help: "Total number of applications withdrawn by volunteers",
		}),
		CapacityDenied: promauto.NewCounter(prometheus.CounterOpts{
			Name: "volunteerhub_applications_capacity_denied_total",
			Help: "Total number of approvals refused because the task was full",
		}),
		SubmissionsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "volunteerhub_submissions_created_total",
			Help: "Total number of proof submissions created",
		}),
		SubmissionsApproved: promauto.NewCounter(prometheus.CounterOpts{
			Name: "volunteerhub_submissions_approved_total",
			Help: "Total number of proof submissions approved",
		}),
		CertificatesIssued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "volunteerhub_certificates_issued_total",
			Help: "Total number of certificates issued",
		}),
		CertificatesBlocked: promauto.NewCounter(prometheus.CounterOpts{
			Name: "volunteerhub_certificates_blocked_total",
			Help: "Total number of certificate block actions",
		}),
		CertificatesUnblocked: promauto.NewCounter(prometheus.CounterOpts{
			Name: "volunteerhub_certificates_unblocked_total",
			Help: "Total number of certificate unblock actions",
		}),
	}
}

func (m *Metrics) RecordTaskCreated() {
	m.TasksCreated.Inc()
}

func (m *Metrics) RecordTaskClosed() {
	m.TasksClosed.Inc()
}

func (m *Metrics) RecordApplicationCreated() {
	m.ApplicationsCreated.Inc()
}

func (m *Metrics) RecordApplicationApproved() {
	m.ApplicationsApproved.Inc()
}

func (m *Metrics) RecordApplicationRejected() {
	m.ApplicationsRejected.Inc()
}

func (m *Metrics) RecordApplicationWithdrawn() {
	m.ApplicationsWithdrawn.Inc()
}

func (m *Metrics) RecordApplicationCapacityDenied() {
	m.CapacityDenied.Inc()
}

func (m *Metrics) RecordSubmissionCreated() {
	m.SubmissionsCreated.Inc()
}

func (m *Metrics) RecordSubmissionApproved() {
	m.SubmissionsApproved.Inc()
}

func (m *Metrics) RecordCertificateIssued() {
	m.CertificatesIssued.Inc()
}

func (m *Metrics) RecordCertificateBlocked() {
	m.CertificatesBlocked.Inc()
}

func (m *Metrics) RecordCertificateUnblocked() {
	m.CertificatesUnblocked.Inc()
}
