package entitlement

import "time"

// Tier represents a subscription tier derived from billing events.
type Tier string

const (
	TierFree      Tier = "free"
	TierPaid      Tier = "paid"
	TierCancelled Tier = "cancelled"
)

// Limits holds the request allowances for one tier.
type Limits struct {
	Daily   int `yaml:"daily" json:"daily" bson:"daily"`
	Monthly int `yaml:"monthly" json:"monthly" bson:"monthly"`
}

// Entitlement is the subscription-derived configuration of a user's limits.
// LastEventID/LastEventAt record the most recently applied billing event and
// strictly order applications per user.
type Entitlement struct {
	UserID      string    `json:"user_id" bson:"_id"`
	Tier        Tier      `json:"tier" bson:"tier"`
	Limits      Limits    `json:"limits" bson:"limits"`
	LastEventID string    `json:"last_event_id" bson:"last_event_id"`
	LastEventAt time.Time `json:"last_event_at" bson:"last_event_at"`
}

// Outcome reports what Apply did with an event.
type Outcome string

const (
	// OutcomeApplied means the event was strictly newer and was written.
	OutcomeApplied Outcome = "applied"
	// OutcomeIgnored means the event was a duplicate or out of order.
	// It is a success, not an error.
	OutcomeIgnored Outcome = "ignored"
)

// Supersedes reports whether an event with the given identity is strictly
// newer than the currently applied one. Equal timestamps fall back to a
// lexicographic event ID comparison so replays of the same event are ignored
// while distinct same-instant events still order deterministically.
func Supersedes(eventID string, occurredAt time.Time, current Entitlement) bool {
	if occurredAt.After(current.LastEventAt) {
		return true
	}
	if occurredAt.Equal(current.LastEventAt) {
		return eventID > current.LastEventID
	}
	return false
}
