package quota

import "errors"

var (
	ErrDailyLimitExceeded   = errors.New("daily quota limit exceeded")
	ErrMonthlyLimitExceeded = errors.New("monthly quota limit exceeded")

	ErrMissingUserID      = errors.New("user ID is required")
	ErrNilReservation     = errors.New("reservation is nil")
	ErrStateNotFound      = errors.New("quota state not found")
	ErrVersionConflict    = errors.New("quota state changed since read")
	ErrNoLimitProvider    = errors.New("no limit provider configured")
	ErrTooMuchContention  = errors.New("quota update retries exhausted")
	ErrStoreUnavailable   = errors.New("quota store unavailable")
	ErrInvalidLimitValues = errors.New("limits must not be negative")
)

// DeniedScope extracts the exhausted window from a denial error, letting
// callers report the scope without matching sentinel errors themselves.
func DeniedScope(err error) (Scope, bool) {
	switch {
	case errors.Is(err, ErrMonthlyLimitExceeded):
		return ScopeMonthly, true
	case errors.Is(err, ErrDailyLimitExceeded):
		return ScopeDaily, true
	default:
		return "", false
	}
}
