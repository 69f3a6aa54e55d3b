package entitlement

import "errors"

var (
	ErrEntitlementNotFound = errors.New("entitlement not found")
	ErrUnknownTier         = errors.New("unknown entitlement tier")
	ErrMissingUserID       = errors.New("user ID is required")
	ErrMissingEventID      = errors.New("event ID is required")

	ErrFailedToLoadTiers        = errors.New("failed to load tier configuration")
	ErrInvalidTierConfiguration = errors.New("invalid tier configuration")

	// ErrStoreUnavailable marks transient persistence failures. Callers must
	// treat it as retryable and never as a successful no-op.
	ErrStoreUnavailable = errors.New("entitlement store unavailable")
)
