package memory

import (
	"context"
	"sort"
	"sync"

	"volunteerhub/internal/task/models"
	"volunteerhub/pkg/domain"
	"volunteerhub/pkg/platform/sentinel"
)

// InMemory is a mutex-guarded task store for tests and local development.
type InMemory struct {
	mu    sync.RWMutex
	tasks map[domain.TaskID]*models.Task
}

func NewInMemory() *InMemory {
	return &InMemory{tasks: make(map[domain.TaskID]*models.Task)}
}

func (s *InMemory) Create(_ context.Context, t *models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[t.ID]; ok {
		return sentinel.ErrConflict
	}
	cp := *t
	s.tasks[t.ID] = &cp
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id domain.TaskID) (*models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

// UpdateSpec replaces the mutable fields of an open task. Closed tasks are
// rejected with ErrInvalidState, and the new capacity may not undercut the
// admitted counter.
func (s *InMemory) UpdateSpec(_ context.Context, id domain.TaskID, spec models.Spec) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	if t.Status != domain.TaskStatusOpen {
		return sentinel.ErrInvalidState
	}
	if spec.Capacity < t.ApprovedCount {
		return sentinel.ErrCapacityExceeded
	}
	t.Title = spec.Title
	t.Description = spec.Description
	t.Capacity = spec.Capacity
	t.StartDate = spec.StartDate
	t.EndDate = spec.EndDate
	t.LocationLink = spec.LocationLink
	t.ImageRef = spec.ImageRef
	return nil
}

// Close marks the task closed. Closing an already closed task is a no-op.
func (s *InMemory) Close(_ context.Context, id domain.TaskID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	t.Status = domain.TaskStatusClosed
	return nil
}

// IncrementApprovedIfCapacity bumps the approved counter only while it is
// strictly below capacity.
func (s *InMemory) IncrementApprovedIfCapacity(_ context.Context, id domain.TaskID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	if t.ApprovedCount >= t.Capacity {
		return sentinel.ErrCapacityExceeded
	}
	t.ApprovedCount++
	return nil
}

func (s *InMemory) List(_ context.Context, f models.Filter) ([]*models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if f.Status != nil && t.Status != *f.Status {
			continue
		}
		if f.OrgID != nil && t.OrgID != *f.OrgID {
			continue
		}
		cp := *t
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemory) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tasks), nil
}
