package storage

import (
	"bytes"
	"context"
	"io"
	"sync"

	"volunteerhub/pkg/platform/sentinel"
)

// InMemoryStore keeps proof objects in a map for tests.
type InMemoryStore struct {
	mu      sync.RWMutex
	objects map[string]memObject
}

type memObject struct {
	data        []byte
	contentType string
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{objects: make(map[string]memObject)}
}

func (s *InMemoryStore) Save(_ context.Context, key, contentType string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[key]; ok {
		return "", sentinel.ErrConflict
	}
	s.objects[key] = memObject{data: data, contentType: contentType}
	return key, nil
}

func (s *InMemoryStore) Open(_ context.Context, key string) (io.ReadCloser, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[key]
	if !ok {
		return nil, "", sentinel.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(obj.data)), obj.contentType, nil
}

func (s *InMemoryStore) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}
