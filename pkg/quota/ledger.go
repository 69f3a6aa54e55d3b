package quota

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// LimitFunc returns the current daily and monthly allowances for a user.
// The ledger calls it on every reservation so entitlement changes pushed by
// billing webhooks take effect without any cache invalidation.
type LimitFunc func(ctx context.Context, userID string) (daily, monthly int, err error)

// defaultMaxRetries bounds the CAS loop. Conflicts only occur between
// concurrent requests of the same user, so a handful of retries is plenty.
const defaultMaxRetries = 5

// Ledger owns per-user quota accounting. All mutation goes through an
// optimistic compare-and-swap against the Store, so it is safe for
// concurrent use across goroutines and across processes sharing a store.
type Ledger struct {
	store      Store
	limits     LimitFunc
	maxRetries int
}

// LedgerOption configures a Ledger.
type LedgerOption func(*Ledger)

// WithMaxRetries overrides how many CAS attempts a single operation makes
// before giving up with ErrTooMuchContention.
func WithMaxRetries(n int) LedgerOption {
	return func(l *Ledger) {
		if n > 0 {
			l.maxRetries = n
		}
	}
}

// NewLedger creates a Ledger. Panics on nil dependencies to fail fast during
// initialization.
func NewLedger(store Store, limits LimitFunc, opts ...LedgerOption) *Ledger {
	if store == nil {
		panic("quota: Store is required")
	}
	if limits == nil {
		panic("quota: LimitFunc is required")
	}

	l := &Ledger{
		store:      store,
		limits:     limits,
		maxRetries: defaultMaxRetries,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// CheckAndReserve claims one unit of quota for the user at the given time.
//
// In a single atomic unit it lazily creates the state, zeroes any counting
// window whose span has elapsed (daily and monthly evaluated independently),
// re-reads the limits from the entitlement, and either returns a denial
// without mutating state or increments both counters and persists. A denial
// when both windows are exhausted reports the monthly scope, since that is
// the window the user cannot wait out within a day.
func (l *Ledger) CheckAndReserve(ctx context.Context, userID string, now time.Time) (*Reservation, error) {
	if userID == "" {
		return nil, ErrMissingUserID
	}
	now = now.UTC()

	for range l.maxRetries {
		state, err := l.store.Get(ctx, userID)
		if err != nil {
			if !errors.Is(err, ErrStateNotFound) {
				return nil, err
			}
			state = newState(userID, now)
		}

		applyResets(&state, now)

		daily, monthly, err := l.limits(ctx, userID)
		if err != nil {
			return nil, err
		}
		if daily < 0 || monthly < 0 {
			return nil, ErrInvalidLimitValues
		}

		if state.MonthlyCount+1 > monthly {
			return nil, ErrMonthlyLimitExceeded
		}
		if state.DailyCount+1 > daily {
			return nil, ErrDailyLimitExceeded
		}

		state.DailyCount++
		state.MonthlyCount++

		if err := l.store.Save(ctx, state); err != nil {
			if errors.Is(err, ErrVersionConflict) {
				continue
			}
			return nil, err
		}

		return &Reservation{
			ID:             uuid.NewString(),
			UserID:         userID,
			DailyResetAt:   state.DailyResetAt,
			MonthlyResetAt: state.MonthlyResetAt,
		}, nil
	}

	return nil, ErrTooMuchContention
}

// Commit confirms a reservation as final. The increment already happened at
// reservation time, so this only marks the reservation settled; a Release
// after Commit is a no-op.
func (l *Ledger) Commit(ctx context.Context, res *Reservation) error {
	if res == nil {
		return ErrNilReservation
	}
	res.settled.Store(true)
	return nil
}

// Release compensates a reservation whose downstream call failed, returning
// both counters to their pre-reservation values. It is idempotent: only the
// first call for a reservation has an effect. A counter is only decremented
// while its counting window is still the one the reservation was taken in;
// after a rollover the reservation expired with the window and Release
// becomes a no-op for that scope.
func (l *Ledger) Release(ctx context.Context, res *Reservation) error {
	if res == nil {
		return ErrNilReservation
	}
	if !res.settled.CompareAndSwap(false, true) {
		return nil
	}

	err := l.release(ctx, res)
	if err != nil {
		// Leave the reservation unsettled so the caller can retry the
		// compensation after a transient store failure.
		res.settled.Store(false)
	}
	return err
}

func (l *Ledger) release(ctx context.Context, res *Reservation) error {
	for range l.maxRetries {
		state, err := l.store.Get(ctx, res.UserID)
		if err != nil {
			if errors.Is(err, ErrStateNotFound) {
				return nil
			}
			return err
		}

		changed := false
		if state.DailyResetAt.Equal(res.DailyResetAt) && state.DailyCount > 0 {
			state.DailyCount--
			changed = true
		}
		if state.MonthlyResetAt.Equal(res.MonthlyResetAt) && state.MonthlyCount > 0 {
			state.MonthlyCount--
			changed = true
		}
		if !changed {
			return nil
		}

		if err := l.store.Save(ctx, state); err != nil {
			if errors.Is(err, ErrVersionConflict) {
				continue
			}
			return err
		}
		return nil
	}
	return ErrTooMuchContention
}

// applyResets zeroes counting windows whose span has elapsed. Daily and
// monthly windows are evaluated independently: a daily rollover does not
// imply a monthly one, and vice versa.
func applyResets(state *State, now time.Time) {
	if !now.Before(state.DailyResetAt.AddDate(0, 0, 1)) {
		state.DailyCount = 0
		state.DailyResetAt = startOfDay(now)
	}
	if !now.Before(state.MonthlyResetAt.AddDate(0, 1, 0)) {
		state.MonthlyCount = 0
		state.MonthlyResetAt = startOfMonth(now)
	}
}
