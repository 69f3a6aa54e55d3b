package gateway

import "github.com/promptforge/gengate/pkg/quota"

// Status is the terminal outcome of an enforcement pass. Each request
// resolves to exactly one.
type Status string

const (
	// StatusGenerated means the prompt passed all gates and Text holds the
	// generated output; the reservation is committed.
	StatusGenerated Status = "generated"
	// StatusBlocked means the injection filter flagged the prompt. No quota
	// was consumed. User-correctable; not retried by the system.
	StatusBlocked Status = "blocked"
	// StatusQuotaExceeded means a counting window is exhausted; Scope names
	// which. Resets automatically at the window boundary.
	StatusQuotaExceeded Status = "quota_exceeded"
	// StatusUpstreamFailure means the generation provider failed or timed
	// out after a reservation was taken; the reservation was released.
	StatusUpstreamFailure Status = "upstream_failure"
	// StatusUnavailable means the quota or entitlement persistence layer was
	// unreachable. Transient; the caller may retry.
	StatusUnavailable Status = "unavailable"
)

// Result reports the outcome of Enforce.
type Result struct {
	Status Status
	Text   string      // generated text, set for StatusGenerated
	Reason string      // matched injection marker, set for StatusBlocked
	Scope  quota.Scope // exhausted window, set for StatusQuotaExceeded
	Err    error       // underlying cause for failure statuses
}
