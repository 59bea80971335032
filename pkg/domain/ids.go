// Package domain holds the shared vocabulary of the volunteer platform:
// typed identifiers, roles, and the per-entity status machines.
//
// IDs are distinct uuid-backed types so a TaskID can never be passed where
// an ApplicationID is expected; the compiler enforces what would otherwise
// be a runtime mixup.
package domain

import (
	"github.com/google/uuid"

	dErrors "volunteerhub/pkg/domain-errors"
)

// Typed identifiers for the core entities.
type (
	OrgID         uuid.UUID
	VolunteerID   uuid.UUID
	TaskID        uuid.UUID
	ApplicationID uuid.UUID
	SubmissionID  uuid.UUID
	CertificateID uuid.UUID
)

// NewOrgID returns a fresh random OrgID.
func NewOrgID() OrgID { return OrgID(uuid.New()) }

// NewVolunteerID returns a fresh random VolunteerID.
func NewVolunteerID() VolunteerID { return VolunteerID(uuid.New()) }

// NewTaskID returns a fresh random TaskID.
func NewTaskID() TaskID { return TaskID(uuid.New()) }

// NewApplicationID returns a fresh random ApplicationID.
func NewApplicationID() ApplicationID { return ApplicationID(uuid.New()) }

// NewSubmissionID returns a fresh random SubmissionID.
func NewSubmissionID() SubmissionID { return SubmissionID(uuid.New()) }

// NewCertificateID returns a fresh random CertificateID.
func NewCertificateID() CertificateID { return CertificateID(uuid.New()) }

func (id OrgID) String() string         { return uuid.UUID(id).String() }
func (id VolunteerID) String() string   { return uuid.UUID(id).String() }
func (id TaskID) String() string        { return uuid.UUID(id).String() }
func (id ApplicationID) String() string { return uuid.UUID(id).String() }
func (id SubmissionID) String() string  { return uuid.UUID(id).String() }
func (id CertificateID) String() string { return uuid.UUID(id).String() }

// MarshalText renders IDs as canonical UUID strings in JSON payloads.
func (id OrgID) MarshalText() ([]byte, error)         { return []byte(id.String()), nil }
func (id VolunteerID) MarshalText() ([]byte, error)   { return []byte(id.String()), nil }
func (id TaskID) MarshalText() ([]byte, error)        { return []byte(id.String()), nil }
func (id ApplicationID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id SubmissionID) MarshalText() ([]byte, error)  { return []byte(id.String()), nil }
func (id CertificateID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *OrgID) UnmarshalText(b []byte) error {
	parsed, err := ParseOrgID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *VolunteerID) UnmarshalText(b []byte) error {
	parsed, err := ParseVolunteerID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *TaskID) UnmarshalText(b []byte) error {
	parsed, err := ParseTaskID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *ApplicationID) UnmarshalText(b []byte) error {
	parsed, err := ParseApplicationID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *SubmissionID) UnmarshalText(b []byte) error {
	parsed, err := ParseSubmissionID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *CertificateID) UnmarshalText(b []byte) error {
	parsed, err := ParseCertificateID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id OrgID) IsNil() bool         { return uuid.UUID(id) == uuid.Nil }
func (id VolunteerID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id TaskID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }
func (id ApplicationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id SubmissionID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id CertificateID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// parseUUID enforces the shared invariant: IDs must be valid, non-empty,
// non-nil UUIDs. Violations surface as validation errors at trust boundaries.
func parseUUID(raw, kind string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeValidation, kind+" id is required")
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeValidation, "invalid "+kind+" id")
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeValidation, kind+" id must not be nil")
	}
	return parsed, nil
}

// ParseOrgID parses an organization id from its string form.
func ParseOrgID(raw string) (OrgID, error) {
	parsed, err := parseUUID(raw, "organization")
	return OrgID(parsed), err
}

// ParseVolunteerID parses a volunteer id from its string form.
func ParseVolunteerID(raw string) (VolunteerID, error) {
	parsed, err := parseUUID(raw, "volunteer")
	return VolunteerID(parsed), err
}

// ParseTaskID parses a task id from its string form.
func ParseTaskID(raw string) (TaskID, error) {
	parsed, err := parseUUID(raw, "task")
	return TaskID(parsed), err
}

// ParseApplicationID parses an application id from its string form.
func ParseApplicationID(raw string) (ApplicationID, error) {
	parsed, err := parseUUID(raw, "application")
	return ApplicationID(parsed), err
}

// ParseSubmissionID parses a submission id from its string form.
func ParseSubmissionID(raw string) (SubmissionID, error) {
	parsed, err := parseUUID(raw, "submission")
	return SubmissionID(parsed), err
}

// ParseCertificateID parses a certificate id from its string form.
func ParseCertificateID(raw string) (CertificateID, error) {
	parsed, err := parseUUID(raw, "certificate")
	return CertificateID(parsed), err
}
