package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"volunteerhub/internal/submission/models"
	"volunteerhub/pkg/domain"
	"volunteerhub/pkg/platform/sentinel"
)

// InMemory is a mutex-guarded submission store for tests and local
// development.
type InMemory struct {
	mu   sync.RWMutex
	subs map[domain.SubmissionID]*models.Submission
}

func NewInMemory() *InMemory {
	return &InMemory{subs: make(map[domain.SubmissionID]*models.Submission)}
}

// Create rejects a second under-review submission for the same application,
// mirroring the partial unique index in Postgres.
func (s *InMemory) Create(_ context.Context, sub *models.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.subs {
		if existing.ApplicationID == sub.ApplicationID && !existing.Status.Terminal() {
			return sentinel.ErrConflict
		}
	}
	cp := *sub
	s.subs[sub.ID] = &cp
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id domain.SubmissionID) (*models.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.subs[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *sub
	return &cp, nil
}

// TransitionStatus moves the submission between review states only if it
// currently holds the expected status.
func (s *InMemory) TransitionStatus(_ context.Context, id domain.SubmissionID, from, to domain.SubmissionStatus, reviewedAt *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.subs[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	if sub.Status != from {
		return sentinel.ErrInvalidState
	}
	sub.Status = to
	if reviewedAt != nil {
		sub.ReviewedAt = reviewedAt
	}
	return nil
}

func (s *InMemory) ListByVolunteer(_ context.Context, volunteerID domain.VolunteerID) ([]*models.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Submission
	for _, sub := range s.subs {
		if sub.VolunteerID == volunteerID {
			cp := *sub
			out = append(out, &cp)
		}
	}
	sortBySubmitted(out)
	return out, nil
}

func (s *InMemory) ListByTasks(_ context.Context, taskIDs []domain.TaskID, status *domain.SubmissionStatus) ([]*models.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	wanted := make(map[domain.TaskID]struct{}, len(taskIDs))
	for _, id := range taskIDs {
		wanted[id] = struct{}{}
	}
	var out []*models.Submission
	for _, sub := range s.subs {
		if _, ok := wanted[sub.TaskID]; !ok {
			continue
		}
		if status != nil && sub.Status != *status {
			continue
		}
		cp := *sub
		out = append(out, &cp)
	}
	sortBySubmitted(out)
	return out, nil
}

func (s *InMemory) ListByStatus(_ context.Context, status domain.SubmissionStatus) ([]*models.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Submission
	for _, sub := range s.subs {
		if sub.Status == status {
			cp := *sub
			out = append(out, &cp)
		}
	}
	sortBySubmitted(out)
	return out, nil
}

func (s *InMemory) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs), nil
}

func sortBySubmitted(subs []*models.Submission) {
	sort.Slice(subs, func(i, j int) bool { return subs[i].SubmittedAt.After(subs[j].SubmittedAt) })
}
