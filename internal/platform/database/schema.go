package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is the full DDL for the service. Every statement is idempotent so
// EnsureSchema can run on each start.
//
// Two partial unique indexes carry lifecycle invariants that application
// code alone cannot enforce under concurrency: a volunteer holds at most one
// live application per task, and an application has at most one proof under
// review at a time. The certificate uniqueness pair makes issuance
// idempotent.
const schema = `
CREATE TABLE IF NOT EXISTS organizations (
	id          UUID PRIMARY KEY,
	name        TEXT NOT NULL,
	type        TEXT NOT NULL DEFAULT '',
	address     TEXT NOT NULL DEFAULT '',
	contact     TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	logo_ref    TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS tasks (
	id             UUID PRIMARY KEY,
	org_id         UUID NOT NULL,
	title          TEXT NOT NULL,
	description    TEXT NOT NULL DEFAULT '',
	capacity       INTEGER NOT NULL CHECK (capacity >= 1),
	approved_count INTEGER NOT NULL DEFAULT 0 CHECK (approved_count >= 0),
	start_date     TIMESTAMPTZ NOT NULL,
	end_date       TIMESTAMPTZ NOT NULL,
	location_link  TEXT NOT NULL DEFAULT '',
	image_ref      TEXT NOT NULL DEFAULT '',
	status         TEXT NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL,
	CHECK (approved_count <= capacity)
);

CREATE INDEX IF NOT EXISTS tasks_org_id_idx ON tasks (org_id);
CREATE INDEX IF NOT EXISTS tasks_status_idx ON tasks (status);

CREATE TABLE IF NOT EXISTS applications (
	id           UUID PRIMARY KEY,
	task_id      UUID NOT NULL,
	volunteer_id UUID NOT NULL,
	status       TEXT NOT NULL,
	motivation   TEXT NOT NULL DEFAULT '',
	created_at   TIMESTAMPTZ NOT NULL,
	decided_at   TIMESTAMPTZ
);

CREATE UNIQUE INDEX IF NOT EXISTS applications_live_per_task_idx
	ON applications (task_id, volunteer_id)
	WHERE status <> 'WITHDRAWN';
CREATE INDEX IF NOT EXISTS applications_volunteer_idx ON applications (volunteer_id);
CREATE INDEX IF NOT EXISTS applications_task_idx ON applications (task_id);

CREATE TABLE IF NOT EXISTS submissions (
	id             UUID PRIMARY KEY,
	application_id UUID NOT NULL,
	volunteer_id   UUID NOT NULL,
	task_id        UUID NOT NULL,
	status         TEXT NOT NULL,
	proof_ref      TEXT NOT NULL,
	submitted_at   TIMESTAMPTZ NOT NULL,
	reviewed_at    TIMESTAMPTZ
);

CREATE UNIQUE INDEX IF NOT EXISTS submissions_open_per_application_idx
	ON submissions (application_id)
	WHERE status = 'UNDER_REVIEW';
CREATE INDEX IF NOT EXISTS submissions_volunteer_idx ON submissions (volunteer_id);
CREATE INDEX IF NOT EXISTS submissions_task_idx ON submissions (task_id);
CREATE INDEX IF NOT EXISTS submissions_status_idx ON submissions (status);

CREATE TABLE IF NOT EXISTS certificates (
	id           UUID PRIMARY KEY,
	volunteer_id UUID NOT NULL,
	task_id      UUID NOT NULL,
	issued_at    TIMESTAMPTZ NOT NULL,
	blocked      BOOLEAN NOT NULL DEFAULT FALSE,
	blocked_at   TIMESTAMPTZ,
	UNIQUE (volunteer_id, task_id)
);

CREATE INDEX IF NOT EXISTS certificates_volunteer_idx ON certificates (volunteer_id);

CREATE TABLE IF NOT EXISTS audit_outbox (
	id           UUID PRIMARY KEY,
	action       TEXT NOT NULL,
	subject      TEXT NOT NULL,
	payload      JSONB NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL,
	published_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS audit_outbox_unpublished_idx
	ON audit_outbox (created_at)
	WHERE published_at IS NULL;
`

// EnsureSchema applies the DDL. Safe to call on every start.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
