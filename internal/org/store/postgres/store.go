package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"volunteerhub/internal/org/models"
	"volunteerhub/pkg/domain"
	"volunteerhub/pkg/platform/sentinel"
	txcontext "volunteerhub/pkg/platform/tx"
)

// Store persists organization profiles in Postgres.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Upsert writes the profile; created_at survives updates.
func (s *Store) Upsert(ctx context.Context, o *models.Organization) error {
	const q = `
		INSERT INTO organizations (id, name, type, address, contact, description, logo_ref, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, type = EXCLUDED.type, address = EXCLUDED.address,
			contact = EXCLUDED.contact, description = EXCLUDED.description,
			logo_ref = EXCLUDED.logo_ref`
	_, err := txcontext.Resolve(ctx, s.db).ExecContext(ctx, q,
		o.ID.String(), o.Name, o.Type, o.Address, o.Contact, o.Description, o.LogoRef, o.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert organization: %w", err)
	}
	return nil
}

func (s *Store) FindByID(ctx context.Context, id domain.OrgID) (*models.Organization, error) {
	const q = `
		SELECT id, name, type, address, contact, description, logo_ref, created_at
		FROM organizations WHERE id = $1`
	return scanOrg(txcontext.Resolve(ctx, s.db).QueryRowContext(ctx, q, id.String()))
}

// List returns organizations, optionally narrowed to a set of types. The
// caller supplies lowercased types; the column is lowered for the match.
func (s *Store) List(ctx context.Context, orgTypes []string) ([]*models.Organization, error) {
	q := `
		SELECT id, name, type, address, contact, description, logo_ref, created_at
		FROM organizations`
	var args []any
	if len(orgTypes) > 0 {
		args = append(args, pq.Array(orgTypes))
		q += " WHERE LOWER(type) = ANY($1)"
	}
	q += " ORDER BY name"

	rows, err := txcontext.Resolve(ctx, s.db).QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list organizations: %w", err)
	}
	defer rows.Close()

	var out []*models.Organization
	for rows.Next() {
		o, err := scanOrg(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := txcontext.Resolve(ctx, s.db).QueryRowContext(ctx, `SELECT COUNT(*) FROM organizations`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count organizations: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrg(row rowScanner) (*models.Organization, error) {
	var (
		o                                        models.Organization
		id                                       string
		orgType, address, contact, desc, logoRef sql.NullString
	)
	err := row.Scan(&id, &o.Name, &orgType, &address, &contact, &desc, &logoRef, &o.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan organization: %w", err)
	}
	if o.ID, err = domain.ParseOrgID(id); err != nil {
		return nil, err
	}
	o.Type = orgType.String
	o.Address = address.String
	o.Contact = contact.String
	o.Description = desc.String
	o.LogoRef = logoRef.String
	return &o, nil
}
