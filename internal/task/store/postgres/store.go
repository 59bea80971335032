package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"volunteerhub/internal/task/models"
	"volunteerhub/pkg/domain"
	"volunteerhub/pkg/platform/sentinel"
	txcontext "volunteerhub/pkg/platform/tx"
)

// Store persists tasks in Postgres. All statements resolve their executor
// through the context so the store participates in caller-managed
// transactions.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Create(ctx context.Context, t *models.Task) error {
	const q = `
		INSERT INTO tasks (id, org_id, title, description, capacity, approved_count,
		                   start_date, end_date, location_link, image_ref, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := txcontext.Resolve(ctx, s.db).ExecContext(ctx, q,
		t.ID.String(), t.OrgID.String(), t.Title, t.Description, t.Capacity, t.ApprovedCount,
		t.StartDate, t.EndDate, t.LocationLink, t.ImageRef, t.Status, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

func (s *Store) FindByID(ctx context.Context, id domain.TaskID) (*models.Task, error) {
	const q = `
		SELECT id, org_id, title, description, capacity, approved_count,
		       start_date, end_date, location_link, image_ref, status, created_at
		FROM tasks WHERE id = $1`
	return scanTask(txcontext.Resolve(ctx, s.db).QueryRowContext(ctx, q, id.String()))
}

// UpdateSpec rewrites the mutable fields while the task is still open. The
// capacity guard keeps approved_count <= capacity: a spec that would shrink
// capacity below the admitted counter matches zero rows.
func (s *Store) UpdateSpec(ctx context.Context, id domain.TaskID, spec models.Spec) error {
	const q = `
		UPDATE tasks
		SET title = $2, description = $3, capacity = $4, start_date = $5,
		    end_date = $6, location_link = $7, image_ref = $8
		WHERE id = $1 AND status = $9 AND approved_count <= $4`
	res, err := txcontext.Resolve(ctx, s.db).ExecContext(ctx, q,
		id.String(), spec.Title, spec.Description, spec.Capacity,
		spec.StartDate, spec.EndDate, spec.LocationLink, spec.ImageRef, domain.TaskStatusOpen)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n > 0 {
		return nil
	}
	t, err := s.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if t.Status != domain.TaskStatusOpen {
		return sentinel.ErrInvalidState
	}
	return sentinel.ErrCapacityExceeded
}

func (s *Store) Close(ctx context.Context, id domain.TaskID) error {
	const q = `UPDATE tasks SET status = $2 WHERE id = $1`
	res, err := txcontext.Resolve(ctx, s.db).ExecContext(ctx, q, id.String(), domain.TaskStatusClosed)
	if err != nil {
		return fmt.Errorf("close task: %w", err)
	}
	return s.classifyNoRows(ctx, id, res, sentinel.ErrNotFound)
}

// IncrementApprovedIfCapacity is the admission-control compare-and-swap. The
// guard makes concurrent approvals serialize on the task row; once the counter
// reaches capacity the statement matches zero rows.
func (s *Store) IncrementApprovedIfCapacity(ctx context.Context, id domain.TaskID) error {
	const q = `
		UPDATE tasks SET approved_count = approved_count + 1
		WHERE id = $1 AND approved_count < capacity`
	res, err := txcontext.Resolve(ctx, s.db).ExecContext(ctx, q, id.String())
	if err != nil {
		return fmt.Errorf("increment approved count: %w", err)
	}
	return s.classifyNoRows(ctx, id, res, sentinel.ErrCapacityExceeded)
}

func (s *Store) List(ctx context.Context, f models.Filter) ([]*models.Task, error) {
	q := `
		SELECT id, org_id, title, description, capacity, approved_count,
		       start_date, end_date, location_link, image_ref, status, created_at
		FROM tasks`
	var args []any
	if f.Status != nil {
		args = append(args, *f.Status)
		q += fmt.Sprintf(" WHERE status = $%d", len(args))
	}
	if f.OrgID != nil {
		args = append(args, f.OrgID.String())
		if len(args) == 1 {
			q += " WHERE"
		} else {
			q += " AND"
		}
		q += fmt.Sprintf(" org_id = $%d", len(args))
	}
	q += " ORDER BY created_at DESC"

	rows, err := txcontext.Resolve(ctx, s.db).QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var out []*models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := txcontext.Resolve(ctx, s.db).QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count tasks: %w", err)
	}
	return n, nil
}

// classifyNoRows distinguishes a missing row from a guard miss after a
// conditional update matched nothing.
func (s *Store) classifyNoRows(ctx context.Context, id domain.TaskID, res sql.Result, guardErr error) error {
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
	return guardErr
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*models.Task, error) {
	var (
		t             models.Task
		id, orgID     string
		status        string
		location, img sql.NullString
	)
	err := row.Scan(&id, &orgID, &t.Title, &t.Description, &t.Capacity, &t.ApprovedCount,
		&t.StartDate, &t.EndDate, &location, &img, &status, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan task: %w", err)
	}
	if t.ID, err = domain.ParseTaskID(id); err != nil {
		return nil, err
	}
	if t.OrgID, err = domain.ParseOrgID(orgID); err != nil {
		return nil, err
	}
	st, ok := domain.ParseTaskStatus(status)
	if !ok {
		return nil, fmt.Errorf("scan task: unknown status %q", status)
	}
	t.Status = st
	t.LocationLink = location.String
	t.ImageRef = img.String
	return &t, nil
}
