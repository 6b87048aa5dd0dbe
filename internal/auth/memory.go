package auth

import (
	"context"
	"sync"
)

// MemoryStore is a map-backed Store.
type MemoryStore struct {
	mu       sync.RWMutex
	accounts map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{accounts: make(map[string]string)}
}

func (s *MemoryStore) Lookup(_ context.Context, username string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	digest, ok := s.accounts[username]
	return digest, ok, nil
}

func (s *MemoryStore) Insert(_ context.Context, username, digest string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[username]; ok {
		return ErrDuplicateUser
	}
	s.accounts[username] = digest
	return nil
}
