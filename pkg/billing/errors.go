package billing

import "errors"

var (
	// ErrInvalidSignature means the payload failed authenticity verification.
	// Rejected before any parsing or persistence access; not retryable.
	ErrInvalidSignature = errors.New("invalid webhook signature")

	// ErrMalformedPayload means the payload could not be parsed into a
	// billing event after its signature verified.
	ErrMalformedPayload = errors.New("malformed webhook payload")

	ErrUnknownEventType = errors.New("unknown billing event type")
	ErrMissingSecret    = errors.New("webhook secret is required")
)
