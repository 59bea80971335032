package models

import (
	"strings"
	"time"

	"volunteerhub/pkg/domain"
	dErrors "volunteerhub/pkg/domain-errors"
)

// Organization is the profile of a task-publishing organization. Identity
// and credentials live in the external auth service; this row carries the
// presentation profile keyed by the auth subject id.
type Organization struct {
	ID          domain.OrgID `json:"org_id"`
	Name        string       `json:"name"`
	Type        string       `json:"type,omitempty"`
	Address     string       `json:"address,omitempty"`
	Contact     string       `json:"contact,omitempty"`
	Description string       `json:"description,omitempty"`
	LogoRef     string       `json:"logo_ref,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}

// Profile carries the caller-editable organization fields.
type Profile struct {
	Name        string `json:"name"`
	Type        string `json:"type,omitempty"`
	Address     string `json:"address,omitempty"`
	Contact     string `json:"contact,omitempty"`
	Description string `json:"description,omitempty"`
	LogoRef     string `json:"logo_ref,omitempty"`
}

func (p *Profile) Normalize() {
	p.Name = strings.TrimSpace(p.Name)
	p.Type = strings.TrimSpace(p.Type)
	p.Address = strings.TrimSpace(p.Address)
	p.Contact = strings.TrimSpace(p.Contact)
	p.Description = strings.TrimSpace(p.Description)
}

func (p *Profile) Validate() error {
	if p.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "organization name is required")
	}
	return nil
}
