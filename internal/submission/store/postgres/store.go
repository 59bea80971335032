package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"volunteerhub/internal/submission/models"
	"volunteerhub/pkg/domain"
	"volunteerhub/pkg/platform/sentinel"
	txcontext "volunteerhub/pkg/platform/tx"
)

const uniqueViolation = "23505"

// Store persists submissions in Postgres. A partial unique index on
// application_id where status = 'UNDER_REVIEW' enforces the single open
// submission rule.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Create(ctx context.Context, sub *models.Submission) error {
	const q = `
		INSERT INTO submissions (id, application_id, volunteer_id, task_id, status, proof_ref, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := txcontext.Resolve(ctx, s.db).ExecContext(ctx, q,
		sub.ID.String(), sub.ApplicationID.String(), sub.VolunteerID.String(),
		sub.TaskID.String(), sub.Status, sub.ProofRef, sub.SubmittedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert submission: %w", err)
	}
	return nil
}

func (s *Store) FindByID(ctx context.Context, id domain.SubmissionID) (*models.Submission, error) {
	const q = `
		SELECT id, application_id, volunteer_id, task_id, status, proof_ref, submitted_at, reviewed_at
		FROM submissions WHERE id = $1`
	return scanSubmission(txcontext.Resolve(ctx, s.db).QueryRowContext(ctx, q, id.String()))
}

// TransitionStatus is a compare-and-swap on the status column.
func (s *Store) TransitionStatus(ctx context.Context, id domain.SubmissionID, from, to domain.SubmissionStatus, reviewedAt *time.Time) error {
	const q = `
		UPDATE submissions SET status = $2, reviewed_at = COALESCE($3, reviewed_at)
		WHERE id = $1 AND status = $4`
	res, err := txcontext.Resolve(ctx, s.db).ExecContext(ctx, q, id.String(), to, reviewedAt, from)
	if err != nil {
		return fmt.Errorf("transition submission: %w", err)
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

func (s *Store) ListByVolunteer(ctx context.Context, volunteerID domain.VolunteerID) ([]*models.Submission, error) {
	const q = `
		SELECT id, application_id, volunteer_id, task_id, status, proof_ref, submitted_at, reviewed_at
		FROM submissions WHERE volunteer_id = $1
		ORDER BY submitted_at DESC`
	return s.querySubmissions(ctx, q, volunteerID.String())
}

func (s *Store) ListByTasks(ctx context.Context, taskIDs []domain.TaskID, status *domain.SubmissionStatus) ([]*models.Submission, error) {
	if len(taskIDs) == 0 {
		return nil, nil
	}
	ids := make([]string, len(taskIDs))
	for i, id := range taskIDs {
		ids[i] = id.String()
	}
	q := `
		SELECT id, application_id, volunteer_id, task_id, status, proof_ref, submitted_at, reviewed_at
		FROM submissions WHERE task_id = ANY($1)`
	args := []any{pq.Array(ids)}
	if status != nil {
		args = append(args, *status)
		q += " AND status = $2"
	}
	q += " ORDER BY submitted_at DESC"
	return s.querySubmissions(ctx, q, args...)
}

func (s *Store) ListByStatus(ctx context.Context, status domain.SubmissionStatus) ([]*models.Submission, error) {
	const q = `
		SELECT id, application_id, volunteer_id, task_id, status, proof_ref, submitted_at, reviewed_at
		FROM submissions WHERE status = $1
		ORDER BY submitted_at DESC`
	return s.querySubmissions(ctx, q, status)
}

func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := txcontext.Resolve(ctx, s.db).QueryRowContext(ctx, `SELECT COUNT(*) FROM submissions`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count submissions: %w", err)
	}
	return n, nil
}

func (s *Store) querySubmissions(ctx context.Context, q string, args ...any) ([]*models.Submission, error) {
	rows, err := txcontext.Resolve(ctx, s.db).QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close()

	var out []*models.Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubmission(row rowScanner) (*models.Submission, error) {
	var (
		sub                models.Submission
		id, app, vol, task string
		status             string
		reviewedAt         sql.NullTime
	)
	err := row.Scan(&id, &app, &vol, &task, &status, &sub.ProofRef, &sub.SubmittedAt, &reviewedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan submission: %w", err)
	}
	if sub.ID, err = domain.ParseSubmissionID(id); err != nil {
		return nil, err
	}
	if sub.ApplicationID, err = domain.ParseApplicationID(app); err != nil {
		return nil, err
	}
	if sub.VolunteerID, err = domain.ParseVolunteerID(vol); err != nil {
		return nil, err
	}
	if sub.TaskID, err = domain.ParseTaskID(task); err != nil {
		return nil, err
	}
	st, ok := domain.ParseSubmissionStatus(status)
	if !ok {
		return nil, fmt.Errorf("scan submission: unknown status %q", status)
	}
	sub.Status = st
	if reviewedAt.Valid {
		t := reviewedAt.Time
		sub.ReviewedAt = &t
	}
	return &sub, nil
}
