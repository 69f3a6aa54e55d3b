package billing

import (
	"time"

	"github.com/promptforge/gengate/pkg/entitlement"
)

// EventType enumerates the billing events the reconciler understands.
type EventType string

const (
	EventCheckoutCompleted     EventType = "checkout_completed"
	EventPaymentSucceeded      EventType = "payment_succeeded"
	EventSubscriptionCancelled EventType = "subscription_cancelled"
)

// Event is a normalized billing event. Events are transient: nothing beyond
// the ordering identity (ID, OccurredAt) is retained after application.
type Event struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	UserID     string    `json:"user_id"`
	OccurredAt time.Time `json:"occurred_at"`

	// Limits optionally overrides the tier's configured allowances, for
	// providers that carry effective limits on the event itself.
	Limits *entitlement.Limits `json:"limits,omitempty"`
}

// TargetTier maps the event type to the tier it transitions the user to.
// Cancellation drops to free immediately, not at period end.
func (e Event) TargetTier() (entitlement.Tier, error) {
	switch e.Type {
	case EventCheckoutCompleted, EventPaymentSucceeded:
		return entitlement.TierPaid, nil
	case EventSubscriptionCancelled:
		return entitlement.TierFree, nil
	default:
		return "", ErrUnknownEventType
	}
}

// Validate checks the fields every event must carry.
func (e Event) Validate() error {
	if e.ID == "" || e.UserID == "" || e.OccurredAt.IsZero() {
		return ErrMalformedPayload
	}
	if _, err := e.TargetTier(); err != nil {
		return err
	}
	return nil
}
