// Package audit records lifecycle events through a transactional outbox.
//
// Services append events in the same database transaction as the state
// change they describe; the relay ships committed outbox rows to Kafka.
// This keeps "approved but no certificate event" impossible without a
// distributed transaction.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Action names a lifecycle event.
type Action string

const (
	ActionTaskCreated Action = "task_created"
	ActionTaskClosed  Action = "task_closed"

	ActionApplicationCreated        Action = "application_created"
	ActionApplicationApproved       Action = "application_approved"
	ActionApplicationRejected       Action = "application_rejected"
	ActionApplicationWithdrawn      Action = "application_withdrawn"
	ActionApplicationCapacityDenied Action = "application_capacity_denied"

	ActionSubmissionCreated  Action = "submission_created"
	ActionSubmissionApproved Action = "submission_approved"

	ActionCertificateIssued    Action = "certificate_issued"
	ActionCertificateBlocked   Action = "certificate_blocked"
	ActionCertificateUnblocked Action = "certificate_unblocked"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp time.Time
	Action    Action
	// Subject is the entity the event is about (task, application,
	// submission or certificate id).
	Subject string
	// ActorID is who performed the action (volunteer, organization or
	// admin subject id).
	ActorID uuid.UUID
	// Decision carries the outcome for decision events (approved,
	// rejected, capacity_denied).
	Decision string
	// RequestID is the correlation id from the HTTP request context.
	RequestID string
	// ClientIP and UserAgent come from the client metadata middleware.
	ClientIP  string
	UserAgent string
}

// Store persists events. The Postgres implementation writes to the outbox
// table and joins any transaction carried by the context.
type Store interface {
	Append(ctx context.Context, event Event) error
}
