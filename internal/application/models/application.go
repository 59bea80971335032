package models

import (
	"strings"
	"time"

	taskModel "volunteerhub/internal/task/models"
	"volunteerhub/pkg/domain"
)

// Application is a volunteer's request to join a task. One active
// application per (task, volunteer); withdrawn rows do not count.
type Application struct {
	ID          domain.ApplicationID     `json:"application_id"`
	TaskID      domain.TaskID            `json:"task_id"`
	VolunteerID domain.VolunteerID       `json:"volunteer_id"`
	Status      domain.ApplicationStatus `json:"status"`
	Motivation  string                   `json:"motivation,omitempty"`
	CreatedAt   time.Time                `json:"created_at"`
	DecidedAt   *time.Time               `json:"decided_at,omitempty"`
}

// ApplyRequest is the volunteer-facing application payload.
type ApplyRequest struct {
	TaskID     string `json:"task_id"`
	Motivation string `json:"motivation,omitempty"`
}

func (r *ApplyRequest) Normalize() {
	r.TaskID = strings.TrimSpace(r.TaskID)
	r.Motivation = strings.TrimSpace(r.Motivation)
}

// WithTask pairs an application with its task for list views.
type WithTask struct {
	Application *Application    `json:"application"`
	Task        *taskModel.Task `json:"task,omitempty"`
}
