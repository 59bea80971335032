package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"volunteerhub/internal/certificate/models"
	"volunteerhub/pkg/domain"
	"volunteerhub/pkg/platform/sentinel"
)

type pairKey struct {
	volunteerID domain.VolunteerID
	taskID      domain.TaskID
}

// InMemory is a mutex-guarded certificate store for tests and local
// development.
type InMemory struct {
	mu     sync.RWMutex
	certs  map[domain.CertificateID]*models.Certificate
	byPair map[pairKey]domain.CertificateID
}

func NewInMemory() *InMemory {
	return &InMemory{
		certs:  make(map[domain.CertificateID]*models.Certificate),
		byPair: make(map[pairKey]domain.CertificateID),
	}
}

// Issue inserts the certificate unless one already exists for the pair, in
// which case the existing row is returned unchanged.
func (s *InMemory) Issue(_ context.Context, c *models.Certificate) (*models.Certificate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := pairKey{volunteerID: c.VolunteerID, taskID: c.TaskID}
	if id, ok := s.byPair[key]; ok {
		cp := *s.certs[id]
		return &cp, nil
	}
	cp := *c
	s.certs[c.ID] = &cp
	s.byPair[key] = c.ID
	out := cp
	return &out, nil
}

func (s *InMemory) FindByID(_ context.Context, id domain.CertificateID) (*models.Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.certs[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *InMemory) FindByPair(_ context.Context, volunteerID domain.VolunteerID, taskID domain.TaskID) (*models.Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byPair[pairKey{volunteerID: volunteerID, taskID: taskID}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *s.certs[id]
	return &cp, nil
}

// SetBlocked flips the blocked flag. The returned bool reports whether the
// row actually changed; repeating the same verdict is a no-op.
func (s *InMemory) SetBlocked(_ context.Context, id domain.CertificateID, blocked bool, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.certs[id]
	if !ok {
		return false, sentinel.ErrNotFound
	}
	if c.Blocked == blocked {
		return false, nil
	}
	c.Blocked = blocked
	if blocked {
		t := at
		c.BlockedAt = &t
	} else {
		c.BlockedAt = nil
	}
	return true, nil
}

func (s *InMemory) ListByVolunteer(_ context.Context, volunteerID domain.VolunteerID) ([]*models.Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Certificate
	for _, c := range s.certs {
		if c.VolunteerID == volunteerID {
			cp := *c
			out = append(out, &cp)
		}
	}
	sortByIssued(out)
	return out, nil
}

func (s *InMemory) ListAll(_ context.Context) ([]*models.Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Certificate, 0, len(s.certs))
	for _, c := range s.certs {
		cp := *c
		out = append(out, &cp)
	}
	sortByIssued(out)
	return out, nil
}

func (s *InMemory) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.certs), nil
}

func sortByIssued(certs []*models.Certificate) {
	sort.Slice(certs, func(i, j int) bool { return certs[i].IssuedAt.After(certs[j].IssuedAt) })
}
