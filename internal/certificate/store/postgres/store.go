package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"volunteerhub/internal/certificate/models"
	"volunteerhub/pkg/domain"
	"volunteerhub/pkg/platform/sentinel"
	txcontext "volunteerhub/pkg/platform/tx"
)

// Store persists certificates in Postgres. The unique index on
// (volunteer_id, task_id) makes issuance idempotent under concurrency.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Issue inserts the certificate, swallowing the conflict when another
// transaction got there first, then returns whichever row won.
func (s *Store) Issue(ctx context.Context, c *models.Certificate) (*models.Certificate, error) {
	const q = `
		INSERT INTO certificates (id, volunteer_id, task_id, issued_at, blocked)
		VALUES ($1, $2, $3, $4, FALSE)
		ON CONFLICT (volunteer_id, task_id) DO NOTHING`
	_, err := txcontext.Resolve(ctx, s.db).ExecContext(ctx, q,
		c.ID.String(), c.VolunteerID.String(), c.TaskID.String(), c.IssuedAt)
	if err != nil {
		return nil, fmt.Errorf("insert certificate: %w", err)
	}
	return s.FindByPair(ctx, c.VolunteerID, c.TaskID)
}

func (s *Store) FindByID(ctx context.Context, id domain.CertificateID) (*models.Certificate, error) {
	const q = `
		SELECT id, volunteer_id, task_id, issued_at, blocked, blocked_at
		FROM certificates WHERE id = $1`
	return scanCertificate(txcontext.Resolve(ctx, s.db).QueryRowContext(ctx, q, id.String()))
}

func (s *Store) FindByPair(ctx context.Context, volunteerID domain.VolunteerID, taskID domain.TaskID) (*models.Certificate, error) {
	const q = `
		SELECT id, volunteer_id, task_id, issued_at, blocked, blocked_at
		FROM certificates WHERE volunteer_id = $1 AND task_id = $2`
	return scanCertificate(txcontext.Resolve(ctx, s.db).QueryRowContext(ctx, q, volunteerID.String(), taskID.String()))
}

// SetBlocked flips the blocked flag only when it differs, so repeated
// verdicts report no change.
func (s *Store) SetBlocked(ctx context.Context, id domain.CertificateID, blocked bool, at time.Time) (bool, error) {
	const q = `
		UPDATE certificates
		SET blocked = $2, blocked_at = CASE WHEN $2 THEN $3 ELSE NULL END
		WHERE id = $1 AND blocked <> $2`
	res, err := txcontext.Resolve(ctx, s.db).ExecContext(ctx, q, id.String(), blocked, at)
	if err != nil {
		return false, fmt.Errorf("set certificate blocked: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	if n > 0 {
		return true, nil
	}
	if _, err := s.FindByID(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

func (s *Store) ListByVolunteer(ctx context.Context, volunteerID domain.VolunteerID) ([]*models.Certificate, error) {
	const q = `
		SELECT id, volunteer_id, task_id, issued_at, blocked, blocked_at
		FROM certificates WHERE volunteer_id = $1
		ORDER BY issued_at DESC`
	return s.queryCertificates(ctx, q, volunteerID.String())
}

func (s *Store) ListAll(ctx context.Context) ([]*models.Certificate, error) {
	const q = `
		SELECT id, volunteer_id, task_id, issued_at, blocked, blocked_at
		FROM certificates ORDER BY issued_at DESC`
	return s.queryCertificates(ctx, q)
}

func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := txcontext.Resolve(ctx, s.db).QueryRowContext(ctx, `SELECT COUNT(*) FROM certificates`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count certificates: %w", err)
	}
	return n, nil
}

func (s *Store) queryCertificates(ctx context.Context, q string, args ...any) ([]*models.Certificate, error) {
	rows, err := txcontext.Resolve(ctx, s.db).QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list certificates: %w", err)
	}
	defer rows.Close()

	var out []*models.Certificate
	for rows.Next() {
		c, err := scanCertificate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCertificate(row rowScanner) (*models.Certificate, error) {
	var (
		c             models.Certificate
		id, vol, task string
		blockedAt     sql.NullTime
	)
	err := row.Scan(&id, &vol, &task, &c.IssuedAt, &c.Blocked, &blockedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan certificate: %w", err)
	}
	if c.ID, err = domain.ParseCertificateID(id); err != nil {
		return nil, err
	}
	if c.VolunteerID, err = domain.ParseVolunteerID(vol); err != nil {
		return nil, err
	}
	if c.TaskID, err = domain.ParseTaskID(task); err != nil {
		return nil, err
	}
	if blockedAt.Valid {
		t := blockedAt.Time
		c.BlockedAt = &t
	}
	return &c, nil
}
