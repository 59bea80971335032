package models

import (
	"time"

	"volunteerhub/pkg/domain"
)

// Certificate records a completed task for a volunteer. Exactly one row
// exists per (volunteer, task); issuance is idempotent.
type Certificate struct {
	ID          domain.CertificateID `json:"certificate_id"`
	VolunteerID domain.VolunteerID   `json:"volunteer_id"`
	TaskID      domain.TaskID        `json:"task_id"`
	IssuedAt    time.Time            `json:"issued_at"`
	Blocked     bool                 `json:"blocked"`
	BlockedAt   *time.Time           `json:"blocked_at,omitempty"`
}

// BlockRequest toggles the blocked flag on a certificate.
type BlockRequest struct {
	Blocked bool `json:"blocked"`
}
