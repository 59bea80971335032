package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"volunteerhub/internal/application/models"
	"volunteerhub/pkg/domain"
	"volunteerhub/pkg/platform/sentinel"
)

// InMemory is a mutex-guarded application store for tests and local
// development.
type InMemory struct {
	mu   sync.RWMutex
	apps map[domain.ApplicationID]*models.Application
}

func NewInMemory() *InMemory {
	return &InMemory{apps: make(map[domain.ApplicationID]*models.Application)}
}

// Create rejects a second non-withdrawn application for the same task and
// volunteer, mirroring the partial unique index in Postgres.
func (s *InMemory) Create(_ context.Context, a *models.Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.apps {
		if existing.TaskID == a.TaskID && existing.VolunteerID == a.VolunteerID &&
			existing.Status != domain.ApplicationStatusWithdrawn {
			return sentinel.ErrConflict
		}
	}
	cp := *a
	s.apps[a.ID] = &cp
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id domain.ApplicationID) (*models.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.apps[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

// TransitionStatus moves the application from one status to another only if
// it currently holds the expected status.
func (s *InMemory) TransitionStatus(_ context.Context, id domain.ApplicationID, from, to domain.ApplicationStatus, decidedAt *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.apps[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	if a.Status != from {
		return sentinel.ErrInvalidState
	}
	a.Status = to
	if decidedAt != nil {
		a.DecidedAt = decidedAt
	}
	return nil
}

func (s *InMemory) ListByVolunteer(_ context.Context, volunteerID domain.VolunteerID, status *domain.ApplicationStatus) ([]*models.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Application
	for _, a := range s.apps {
		if a.VolunteerID != volunteerID {
			continue
		}
		if status != nil && a.Status != *status {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	sortByCreated(out)
	return out, nil
}

func (s *InMemory) ListByTasks(_ context.Context, taskIDs []domain.TaskID, status *domain.ApplicationStatus) ([]*models.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	wanted := make(map[domain.TaskID]struct{}, len(taskIDs))
	for _, id := range taskIDs {
		wanted[id] = struct{}{}
	}
	var out []*models.Application
	for _, a := range s.apps {
		if _, ok := wanted[a.TaskID]; !ok {
			continue
		}
		if status != nil && a.Status != *status {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	sortByCreated(out)
	return out, nil
}

func (s *InMemory) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.apps), nil
}

// CountVolunteers reports how many distinct volunteers have ever applied.
func (s *InMemory) CountVolunteers(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[domain.VolunteerID]struct{})
	for _, a := range s.apps {
		seen[a.VolunteerID] = struct{}{}
	}
	return len(seen), nil
}

func sortByCreated(apps []*models.Application) {
	sort.Slice(apps, func(i, j int) bool { return apps[i].CreatedAt.After(apps[j].CreatedAt) })
}
