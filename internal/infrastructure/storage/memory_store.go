package storage

import (
	"context"
	"net/url"
	"sync"
)

// MemoryDocumentStore keeps documents in process memory. It is used when no
// bucket is configured and in tests.
type MemoryDocumentStore struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
	baseURL string
}

type memoryObject struct {
	data        []byte
	contentType string
}

// NewMemoryDocumentStore creates an empty store whose links start with baseURL
func NewMemoryDocumentStore(baseURL string) *MemoryDocumentStore {
	if baseURL == "" {
		baseURL = "memory://documents"
	}
	return &MemoryDocumentStore{objects: make(map[string]memoryObject), baseURL: baseURL}
}

// Put stores a copy of data
func (s *MemoryDocumentStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if key == "" {
		return ErrKeyRequired
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = memoryObject{data: append([]byte(nil), data...), contentType: contentType}
	return nil
}

// PresignGet returns baseURL/key
func (s *MemoryDocumentStore) PresignGet(_ context.Context, key string) (string, error) {
	if key == "" {
		return "", ErrKeyRequired
	}
	return s.baseURL + "/" + url.PathEscape(key), nil
}

// Exists reports whether key is stored
func (s *MemoryDocumentStore) Exists(_ context.Context, key string) (bool, error) {
	if key == "" {
		return false, ErrKeyRequired
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.objects[key]
	return ok, nil
}

// Delete removes key
func (s *MemoryDocumentStore) Delete(_ context.Context, key string) error {
	if key == "" {
		return ErrKeyRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

// Get returns the stored bytes and content type
func (s *MemoryDocumentStore) Get(key string) ([]byte, string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[key]
	if !ok {
		return nil, "", false
	}
	return append([]byte(nil), obj.data...), obj.contentType, true
}
