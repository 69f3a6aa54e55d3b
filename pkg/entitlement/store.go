package entitlement

import "context"

// Store defines entitlement persistence. Each user has at most one record,
// keyed by user ID.
//
// Apply must be conditional: the write happens only when the incoming record
// is strictly newer (see Supersedes) than the stored one, or when no record
// exists yet. The bool result distinguishes an applied write from an ignored
// stale/duplicate event; persistence failures are reported as errors wrapping
// ErrStoreUnavailable, never as a silent no-op.
type Store interface {
	// Get retrieves the entitlement for a user.
	// Returns ErrEntitlementNotFound if none exists.
	Get(ctx context.Context, userID string) (Entitlement, error)

	// Apply conditionally writes ent, ordered by its LastEventID/LastEventAt.
	Apply(ctx context.Context, ent Entitlement) (applied bool, err error)
}
