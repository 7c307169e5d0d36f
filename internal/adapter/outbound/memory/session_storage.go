// Package memory provides in-memory implementations of outbound ports.
package memory

import (
	"context"
	"sync"

	"github.com/passa-a-bola/web/internal/domain/session"
)

// SessionStorage implements session.Storage with an in-memory map.
// Thread-safe for concurrent access. Contents are lost on exit, which is
// what a per-tab browser store amounts to for a single process.
type SessionStorage struct {
	values map[string]string
	mu     sync.RWMutex
}

// NewSessionStorage creates an empty in-memory storage.
func NewSessionStorage() *SessionStorage {
	return &SessionStorage{
		values: make(map[string]string),
	}
}

// Get returns the value for key.
func (s *SessionStorage) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.values[key]
	return v, ok, nil
}

// Set stores value under key.
func (s *SessionStorage) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = value
	return nil
}

// Delete removes key.
func (s *SessionStorage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.values, key)
	return nil
}

// Compile-time interface verification.
var _ session.Storage = (*SessionStorage)(nil)
