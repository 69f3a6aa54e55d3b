package quota

import "context"

// Store persists one State record per user with conditional-update semantics.
//
// Save must atomically verify that the stored version equals state.Version
// before writing, bump the version, and return ErrVersionConflict otherwise.
// A state with Version 0 is treated as a creation and must fail with
// ErrVersionConflict if a record already exists. Transient backend failures
// are reported wrapping ErrStoreUnavailable.
//
// These semantics let the Ledger run its reset-check-increment routine as an
// optimistic compare-and-swap without any cross-process lock.
type Store interface {
	// Get retrieves the state for a user.
	// Returns ErrStateNotFound if no record exists yet.
	Get(ctx context.Context, userID string) (State, error)

	// Save conditionally persists the state (see interface comment).
	Save(ctx context.Context, state State) error
}
