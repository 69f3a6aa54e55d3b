package quota

import (
	"sync/atomic"
	"time"
)

// Scope identifies which counting window a denial or reset refers to.
type Scope string

const (
	ScopeDaily   Scope = "daily"
	ScopeMonthly Scope = "monthly"
)

// State is the persisted quota record for one user. Counts accumulate since
// the window start recorded in the matching ResetAt field (always UTC).
// Version implements optimistic concurrency: Store.Save only succeeds when
// the stored version still matches, and bumps it on write.
type State struct {
	UserID         string    `json:"user_id"`
	DailyCount     int       `json:"daily_count"`
	MonthlyCount   int       `json:"monthly_count"`
	DailyResetAt   time.Time `json:"daily_reset_at"`
	MonthlyResetAt time.Time `json:"monthly_reset_at"`
	Version        int64     `json:"version"`
}

// newState lazily creates the record on a user's first request: zero counts,
// windows anchored at the current UTC day and month starts.
func newState(userID string, now time.Time) State {
	now = now.UTC()
	return State{
		UserID:         userID,
		DailyResetAt:   startOfDay(now),
		MonthlyResetAt: startOfMonth(now),
	}
}

// Reservation is a provisional claim on one unit of quota. It remembers the
// window anchors observed at reservation time so a later Release can detect
// that the window already rolled over and skip the compensation.
type Reservation struct {
	ID             string
	UserID         string
	DailyResetAt   time.Time
	MonthlyResetAt time.Time

	// settled flips once on Commit or the first Release, making both
	// idempotent and mutually exclusive.
	settled atomic.Bool
}

// Settled reports whether the reservation has been committed or released.
func (r *Reservation) Settled() bool {
	return r.settled.Load()
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func startOfMonth(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
