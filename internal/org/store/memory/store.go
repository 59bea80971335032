package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"volunteerhub/internal/org/models"
	"volunteerhub/pkg/domain"
	"volunteerhub/pkg/platform/sentinel"
)

// InMemory is a mutex-guarded organization store for tests and local
// development.
type InMemory struct {
	mu   sync.RWMutex
	orgs map[domain.OrgID]*models.Organization
}

func NewInMemory() *InMemory {
	return &InMemory{orgs: make(map[domain.OrgID]*models.Organization)}
}

// Upsert writes the profile, creating the row on first save.
func (s *InMemory) Upsert(_ context.Context, o *models.Organization) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.orgs[o.ID]; ok {
		cp := *o
		cp.CreatedAt = existing.CreatedAt
		s.orgs[o.ID] = &cp
		return nil
	}
	cp := *o
	s.orgs[o.ID] = &cp
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id domain.OrgID) (*models.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orgs[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

// List returns all organizations, optionally narrowed to one type
// (case-insensitive).
func (s *InMemory) List(_ context.Context, orgTypes []string) ([]*models.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Organization
	for _, o := range s.orgs {
		if len(orgTypes) > 0 && !matchesType(o.Type, orgTypes) {
			continue
		}
		cp := *o
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func matchesType(t string, types []string) bool {
	for _, want := range types {
		if strings.EqualFold(t, want) {
			return true
		}
	}
	return false
}

func (s *InMemory) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.orgs), nil
}
