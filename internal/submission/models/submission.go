package models

import (
	"time"

	"volunteerhub/pkg/domain"
)

// Submission is a volunteer's proof of completed work for an approved
// application. At most one submission per application is under review.
type Submission struct {
	ID            domain.SubmissionID     `json:"submission_id"`
	ApplicationID domain.ApplicationID    `json:"application_id"`
	VolunteerID   domain.VolunteerID      `json:"volunteer_id"`
	TaskID        domain.TaskID           `json:"task_id"`
	Status        domain.SubmissionStatus `json:"status"`
	ProofRef      string                  `json:"proof_ref"`
	SubmittedAt   time.Time               `json:"submitted_at"`
	ReviewedAt    *time.Time              `json:"reviewed_at,omitempty"`
}
