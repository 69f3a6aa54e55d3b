package quota

import (
	"context"
	"sync"
	"time"
)

// MemoryStore implements Store with a mutex-guarded map. Suited for tests
// and single-process deployments; multi-instance setups should use the
// Redis or Postgres store so the CAS holds across processes.
type MemoryStore struct {
	mu     sync.RWMutex
	states map[string]memoryRecord

	cleanupInterval time.Duration
	stopCleanup     chan struct{}
	closeOnce       sync.Once
}

type memoryRecord struct {
	state      State
	lastAccess time.Time
}

// MemoryStoreOption configures a MemoryStore.
type MemoryStoreOption func(*MemoryStore)

// WithCleanupInterval sets how often idle records are scanned for removal.
// Set to 0 to disable automatic cleanup.
func WithCleanupInterval(interval time.Duration) MemoryStoreOption {
	return func(ms *MemoryStore) {
		ms.cleanupInterval = interval
	}
}

// NewMemoryStore creates an in-memory store with optional background cleanup
// of records idle past both counting windows.
func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	ms := &MemoryStore{
		states:          make(map[string]memoryRecord),
		cleanupInterval: 6 * time.Hour,
		stopCleanup:     make(chan struct{}),
	}

	for _, opt := range opts {
		opt(ms)
	}

	if ms.cleanupInterval > 0 {
		go ms.cleanup()
	}

	return ms
}

func (ms *MemoryStore) Get(ctx context.Context, userID string) (State, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	rec, ok := ms.states[userID]
	if !ok {
		return State{}, ErrStateNotFound
	}
	return rec.state, nil
}

// Save performs the compare-and-swap: the write succeeds only when the
// stored version matches the caller's snapshot, then the version is bumped.
func (ms *MemoryStore) Save(ctx context.Context, state State) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	current, exists := ms.states[state.UserID]
	if exists {
		if current.state.Version != state.Version {
			return ErrVersionConflict
		}
	} else if state.Version != 0 {
		return ErrVersionConflict
	}

	state.Version++
	ms.states[state.UserID] = memoryRecord{state: state, lastAccess: time.Now()}
	return nil
}

func (ms *MemoryStore) cleanup() {
	ticker := time.NewTicker(ms.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ms.removeStale()
		case <-ms.stopCleanup:
			return
		}
	}
}

// removeStale drops records whose monthly window expired more than a month
// ago; they will be lazily recreated with zero counts on the next request,
// so eviction never changes observable behavior.
func (ms *MemoryStore) removeStale() {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	cutoff := time.Now().AddDate(0, -1, 0)
	for userID, rec := range ms.states {
		if rec.lastAccess.Before(cutoff) {
			delete(ms.states, userID)
		}
	}
}

// Close stops the cleanup goroutine. Safe to call multiple times.
func (ms *MemoryStore) Close() {
	ms.closeOnce.Do(func() { close(ms.stopCleanup) })
}
