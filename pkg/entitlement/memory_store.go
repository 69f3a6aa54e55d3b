package entitlement

import (
	"context"
	"sync"
)

// MemoryStore implements Store with a mutex-guarded map.
// Suited for tests and single-process deployments.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Entitlement
}

// NewMemoryStore creates an empty in-memory entitlement store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Entitlement)}
}

func (s *MemoryStore) Get(ctx context.Context, userID string) (Entitlement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ent, ok := s.records[userID]
	if !ok {
		return Entitlement{}, ErrEntitlementNotFound
	}
	return ent, nil
}

// Apply writes ent only when it supersedes the stored record. The check and
// the write happen under one lock, giving the conditional-update semantics
// the reconciler depends on.
func (s *MemoryStore) Apply(ctx context.Context, ent Entitlement) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.records[ent.UserID]
	if exists && !Supersedes(ent.LastEventID, ent.LastEventAt, current) {
		return false, nil
	}

	s.records[ent.UserID] = ent
	return true, nil
}
