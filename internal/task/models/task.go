package models

import (
	"strings"
	"time"

	"volunteerhub/pkg/domain"
	dErrors "volunteerhub/pkg/domain-errors"
)

// Task is a volunteer opportunity published by an organization.
// approvedCount counts approved applications and may never exceed capacity;
// the stores enforce that with a conditional counter update.
type Task struct {
	ID            domain.TaskID     `json:"task_id"`
	OrgID         domain.OrgID      `json:"org_id"`
	Title         string            `json:"title"`
	Description   string            `json:"description"`
	Capacity      uint              `json:"capacity"`
	ApprovedCount uint              `json:"approved_count"`
	StartDate     time.Time         `json:"start_date"`
	EndDate       time.Time         `json:"end_date"`
	LocationLink  string            `json:"location_link,omitempty"`
	ImageRef      string            `json:"image_ref,omitempty"`
	Status        domain.TaskStatus `json:"status"`
	CreatedAt     time.Time         `json:"created_at"`
}

// Spec carries the caller-supplied task fields for create and update.
type Spec struct {
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Capacity     uint      `json:"capacity"`
	StartDate    time.Time `json:"start_date"`
	EndDate      time.Time `json:"end_date"`
	LocationLink string    `json:"location_link,omitempty"`
	ImageRef     string    `json:"image_ref,omitempty"`
}

// Normalize trims free-text fields in place.
func (s *Spec) Normalize() {
	s.Title = strings.TrimSpace(s.Title)
	s.Description = strings.TrimSpace(s.Description)
	s.LocationLink = strings.TrimSpace(s.LocationLink)
}

// Validate rejects malformed specs before any state change.
func (s *Spec) Validate() error {
	if s.Title == "" {
		return dErrors.New(dErrors.CodeValidation, "title is required")
	}
	if s.Capacity < 1 {
		return dErrors.New(dErrors.CodeValidation, "capacity must be at least 1")
	}
	if s.StartDate.IsZero() || s.EndDate.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "start and end dates are required")
	}
	if s.EndDate.Before(s.StartDate) {
		return dErrors.New(dErrors.CodeValidation, "end date must not precede start date")
	}
	return nil
}

// Filter narrows task listings. Nil fields match everything.
type Filter struct {
	Status *domain.TaskStatus
	OrgID  *domain.OrgID
}
