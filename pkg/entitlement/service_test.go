package entitlement_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promptforge/gengate/pkg/entitlement"
)

func newService(t *testing.T) *entitlement.Service {
	t.Helper()
	svc, err := entitlement.NewService(context.Background(), entitlement.NewMemoryStore(), nil)
	require.NoError(t, err)
	return svc
}

func TestService_Get(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("unknown user resolves to free tier", func(t *testing.T) {
		t.Parallel()
		svc := newService(t)

		ent, err := svc.Get(ctx, "user-1")
		require.NoError(t, err)
		assert.Equal(t, entitlement.TierFree, ent.Tier)
		assert.Equal(t, entitlement.DefaultTiers()[entitlement.TierFree], ent.Limits)
	})

	t.Run("empty user ID is rejected", func(t *testing.T) {
		t.Parallel()
		svc := newService(t)

		_, err := svc.Get(ctx, "")
		assert.ErrorIs(t, err, entitlement.ErrMissingUserID)
	})
}

func TestService_Apply(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	paid := entitlement.Limits{Daily: 100, Monthly: 2000}
	free := entitlement.Limits{Daily: 5, Monthly: 50}

	t.Run("first event creates the entitlement", func(t *testing.T) {
		t.Parallel()
		svc := newService(t)

		outcome, err := svc.Apply(ctx, "user-1", entitlement.TierPaid, paid, "evt-1", time.Now())
		require.NoError(t, err)
		assert.Equal(t, entitlement.OutcomeApplied, outcome)

		ent, err := svc.Get(ctx, "user-1")
		require.NoError(t, err)
		assert.Equal(t, entitlement.TierPaid, ent.Tier)
		assert.Equal(t, paid, ent.Limits)
		assert.Equal(t, "evt-1", ent.LastEventID)
	})

	t.Run("same event applied twice changes state exactly once", func(t *testing.T) {
		t.Parallel()
		svc := newService(t)
		at := time.Now()

		outcome, err := svc.Apply(ctx, "user-2", entitlement.TierPaid, paid, "evt-1", at)
		require.NoError(t, err)
		assert.Equal(t, entitlement.OutcomeApplied, outcome)

		outcome, err = svc.Apply(ctx, "user-2", entitlement.TierPaid, paid, "evt-1", at)
		require.NoError(t, err)
		assert.Equal(t, entitlement.OutcomeIgnored, outcome)
	})

	t.Run("older event after newer is ignored", func(t *testing.T) {
		t.Parallel()
		svc := newService(t)
		now := time.Now()

		_, err := svc.Apply(ctx, "user-3", entitlement.TierPaid, paid, "evt-2", now)
		require.NoError(t, err)

		// Cancellation that predates the checkout must not demote the account.
		outcome, err := svc.Apply(ctx, "user-3", entitlement.TierCancelled, free, "evt-1", now.Add(-time.Hour))
		require.NoError(t, err)
		assert.Equal(t, entitlement.OutcomeIgnored, outcome)

		ent, err := svc.Get(ctx, "user-3")
		require.NoError(t, err)
		assert.Equal(t, entitlement.TierPaid, ent.Tier)
	})

	t.Run("newer cancellation demotes immediately", func(t *testing.T) {
		t.Parallel()
		svc := newService(t)
		now := time.Now()

		_, err := svc.Apply(ctx, "user-4", entitlement.TierPaid, paid, "evt-1", now)
		require.NoError(t, err)

		outcome, err := svc.Apply(ctx, "user-4", entitlement.TierCancelled, free, "evt-2", now.Add(time.Minute))
		require.NoError(t, err)
		assert.Equal(t, entitlement.OutcomeApplied, outcome)

		ent, err := svc.Get(ctx, "user-4")
		require.NoError(t, err)
		assert.Equal(t, entitlement.TierCancelled, ent.Tier)
	})

	t.Run("equal timestamps tiebreak on event ID", func(t *testing.T) {
		t.Parallel()
		svc := newService(t)
		at := time.Now()

		_, err := svc.Apply(ctx, "user-5", entitlement.TierPaid, paid, "evt-b", at)
		require.NoError(t, err)

		outcome, err := svc.Apply(ctx, "user-5", entitlement.TierCancelled, free, "evt-a", at)
		require.NoError(t, err)
		assert.Equal(t, entitlement.OutcomeIgnored, outcome)
	})

	t.Run("unknown tier is rejected", func(t *testing.T) {
		t.Parallel()
		svc := newService(t)

		_, err := svc.Apply(ctx, "user-6", entitlement.Tier("platinum"), paid, "evt-1", time.Now())
		assert.ErrorIs(t, err, entitlement.ErrUnknownTier)
	})

	t.Run("store failure is an error, not an outcome", func(t *testing.T) {
		t.Parallel()
		svc, err := entitlement.NewService(context.Background(), &failingStore{}, nil)
		require.NoError(t, err)

		_, err = svc.Apply(ctx, "user-7", entitlement.TierPaid, paid, "evt-1", time.Now())
		assert.ErrorIs(t, err, entitlement.ErrStoreUnavailable)
	})
}

func TestService_Limits(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := newService(t)

	daily, monthly, err := svc.Limits(ctx, "fresh-user")
	require.NoError(t, err)
	free := entitlement.DefaultTiers()[entitlement.TierFree]
	assert.Equal(t, free.Daily, daily)
	assert.Equal(t, free.Monthly, monthly)

	paid := entitlement.Limits{Daily: 100, Monthly: 2000}
	_, err = svc.Apply(ctx, "fresh-user", entitlement.TierPaid, paid, "evt-1", time.Now())
	require.NoError(t, err)

	daily, monthly, err = svc.Limits(ctx, "fresh-user")
	require.NoError(t, err)
	assert.Equal(t, paid.Daily, daily)
	assert.Equal(t, paid.Monthly, monthly)
}

type failingStore struct{}

func (f *failingStore) Get(ctx context.Context, userID string) (entitlement.Entitlement, error) {
	return entitlement.Entitlement{}, errors.Join(entitlement.ErrStoreUnavailable, errors.New("connection refused"))
}

func (f *failingStore) Apply(ctx context.Context, ent entitlement.Entitlement) (bool, error) {
	return false, errors.Join(entitlement.ErrStoreUnavailable, errors.New("connection refused"))
}
