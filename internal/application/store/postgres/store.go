package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"volunteerhub/internal/application/models"
	"volunteerhub/pkg/domain"
	"volunteerhub/pkg/platform/sentinel"
	txcontext "volunteerhub/pkg/platform/tx"
)

const uniqueViolation = "23505"

// Store persists applications in Postgres. A partial unique index on
// (task_id, volunteer_id) where status <> 'WITHDRAWN' enforces the single
// active application rule.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Create(ctx context.Context, a *models.Application) error {
	const q = `
		INSERT INTO applications (id, task_id, volunteer_id, status, motivation, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := txcontext.Resolve(ctx, s.db).ExecContext(ctx, q,
		a.ID.String(), a.TaskID.String(), a.VolunteerID.String(), a.Status, a.Motivation, a.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert application: %w", err)
	}
	return nil
}

func (s *Store) FindByID(ctx context.Context, id domain.ApplicationID) (*models.Application, error) {
	const q = `
		SELECT id, task_id, volunteer_id, status, motivation, created_at, decided_at
		FROM applications WHERE id = $1`
	return scanApplication(txcontext.Resolve(ctx, s.db).QueryRowContext(ctx, q, id.String()))
}

// TransitionStatus is a compare-and-swap on the status column. Zero matched
// rows means either the row is gone or someone else decided first.
func (s *Store) TransitionStatus(ctx context.Context, id domain.ApplicationID, from, to domain.ApplicationStatus, decidedAt *time.Time) error {
	const q = `
		UPDATE applications SET status = $2, decided_at = COALESCE($3, decided_at)
		WHERE id = $1 AND status = $4`
	res, err := txcontext.Resolve(ctx, s.db).ExecContext(ctx, q, id.String(), to, decidedAt, from)
	if err != nil {
		return fmt.Errorf("transition application: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n > 0 {
		return nil
	}
	if _, err := s.FindByID(ctx, id); err != nil {
		return err
	}
	return sentinel.ErrInvalidState
}

func (s *Store) ListByVolunteer(ctx context.Context, volunteerID domain.VolunteerID, status *domain.ApplicationStatus) ([]*models.Application, error) {
	q := `
		SELECT id, task_id, volunteer_id, status, motivation, created_at, decided_at
		FROM applications WHERE volunteer_id = $1`
	args := []any{volunteerID.String()}
	if status != nil {
		args = append(args, *status)
		q += " AND status = $2"
	}
	q += " ORDER BY created_at DESC"
	return s.queryApplications(ctx, q, args...)
}

func (s *Store) ListByTasks(ctx context.Context, taskIDs []domain.TaskID, status *domain.ApplicationStatus) ([]*models.Application, error) {
	if len(taskIDs) == 0 {
		return nil, nil
	}
	ids := make([]string, len(taskIDs))
	for i, id := range taskIDs {
		ids[i] = id.String()
	}
	q := `
		SELECT id, task_id, volunteer_id, status, motivation, created_at, decided_at
		FROM applications WHERE task_id = ANY($1)`
	args := []any{pq.Array(ids)}
	if status != nil {
		args = append(args, *status)
		q += " AND status = $2"
	}
	q += " ORDER BY created_at DESC"
	return s.queryApplications(ctx, q, args...)
}

func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := txcontext.Resolve(ctx, s.db).QueryRowContext(ctx, `SELECT COUNT(*) FROM applications`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count applications: %w", err)
	}
	return n, nil
}

// CountVolunteers reports how many distinct volunteers have ever applied.
func (s *Store) CountVolunteers(ctx context.Context) (int, error) {
	var n int
	err := txcontext.Resolve(ctx, s.db).QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT volunteer_id) FROM applications`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count volunteers: %w", err)
	}
	return n, nil
}

func (s *Store) queryApplications(ctx context.Context, q string, args ...any) ([]*models.Application, error) {
	rows, err := txcontext.Resolve(ctx, s.db).QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	defer rows.Close()

	var out []*models.Application
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanApplication(row rowScanner) (*models.Application, error) {
	var (
		a                 models.Application
		id, taskID, volID string
		status            string
		motivation        sql.NullString
		decidedAt         sql.NullTime
	)
	err := row.Scan(&id, &taskID, &volID, &status, &motivation, &a.CreatedAt, &decidedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan application: %w", err)
	}
	if a.ID, err = domain.ParseApplicationID(id); err != nil {
		return nil, err
	}
	if a.TaskID, err = domain.ParseTaskID(taskID); err != nil {
		return nil, err
	}
	if a.VolunteerID, err = domain.ParseVolunteerID(volID); err != nil {
		return nil, err
	}
	st, ok := domain.ParseApplicationStatus(status)
	if !ok {
		return nil, fmt.Errorf("scan application: unknown status %q", status)
	}
	a.Status = st
	a.Motivation = motivation.String
	if decidedAt.Valid {
		t := decidedAt.Time
		a.DecidedAt = &t
	}
	return &a, nil
}
