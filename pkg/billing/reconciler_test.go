package billing_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promptforge/gengate/pkg/billing"
	"github.com/promptforge/gengate/pkg/entitlement"
)

const testSecret = "whsec_test"

// countingStore wraps a memory store and counts persistence calls, so tests
// can assert that rejected webhooks never reach the store.
type countingStore struct {
	inner entitlement.Store
	calls atomic.Int64
	fail  bool
}

func (c *countingStore) Get(ctx context.Context, userID string) (entitlement.Entitlement, error) {
	c.calls.Add(1)
	if c.fail {
		return entitlement.Entitlement{}, errors.Join(entitlement.ErrStoreUnavailable, errors.New("down"))
	}
	return c.inner.Get(ctx, userID)
}

func (c *countingStore) Apply(ctx context.Context, ent entitlement.Entitlement) (bool, error) {
	c.calls.Add(1)
	if c.fail {
		return false, errors.Join(entitlement.ErrStoreUnavailable, errors.New("down"))
	}
	return c.inner.Apply(ctx, ent)
}

func newReconciler(t *testing.T, store entitlement.Store) (*billing.Reconciler, *entitlement.Service) {
	t.Helper()
	svc, err := entitlement.NewService(context.Background(), store, nil)
	require.NoError(t, err)
	parser, err := billing.NewHMACParser(testSecret)
	require.NoError(t, err)
	return billing.NewReconciler(parser, svc), svc
}

func signedEvent(t *testing.T, event billing.Event) (payload []byte, signature string) {
	t.Helper()
	payload, err := json.Marshal(event)
	require.NoError(t, err)
	signature, err = billing.Sign(testSecret, payload)
	require.NoError(t, err)
	return payload, signature
}

func TestReconciler_Handle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("invalid signature rejected before any store access", func(t *testing.T) {
		t.Parallel()
		store := &countingStore{inner: entitlement.NewMemoryStore()}
		rec, _ := newReconciler(t, store)

		payload, _ := signedEvent(t, billing.Event{
			ID: "evt-1", Type: billing.EventCheckoutCompleted, UserID: "user-1", OccurredAt: time.Now(),
		})

		err := rec.Handle(ctx, payload, "deadbeef")
		assert.ErrorIs(t, err, billing.ErrInvalidSignature)
		assert.Zero(t, store.calls.Load())
	})

	t.Run("malformed payload rejected after verification", func(t *testing.T) {
		t.Parallel()
		store := &countingStore{inner: entitlement.NewMemoryStore()}
		rec, _ := newReconciler(t, store)

		payload := []byte(`{"id": not-json`)
		sig, err := billing.Sign(testSecret, payload)
		require.NoError(t, err)

		err = rec.Handle(ctx, payload, sig)
		assert.ErrorIs(t, err, billing.ErrMalformedPayload)
		assert.Zero(t, store.calls.Load())
	})

	t.Run("checkout upgrades to paid tier", func(t *testing.T) {
		t.Parallel()
		rec, svc := newReconciler(t, entitlement.NewMemoryStore())

		payload, sig := signedEvent(t, billing.Event{
			ID: "evt-1", Type: billing.EventCheckoutCompleted, UserID: "user-2", OccurredAt: time.Now(),
		})
		require.NoError(t, rec.Handle(ctx, payload, sig))

		ent, err := svc.Get(ctx, "user-2")
		require.NoError(t, err)
		assert.Equal(t, entitlement.TierPaid, ent.Tier)
		assert.Equal(t, entitlement.DefaultTiers()[entitlement.TierPaid], ent.Limits)
	})

	t.Run("event limits override tier limits", func(t *testing.T) {
		t.Parallel()
		rec, svc := newReconciler(t, entitlement.NewMemoryStore())

		custom := entitlement.Limits{Daily: 42, Monthly: 420}
		payload, sig := signedEvent(t, billing.Event{
			ID: "evt-1", Type: billing.EventPaymentSucceeded, UserID: "user-3",
			OccurredAt: time.Now(), Limits: &custom,
		})
		require.NoError(t, rec.Handle(ctx, payload, sig))

		ent, err := svc.Get(ctx, "user-3")
		require.NoError(t, err)
		assert.Equal(t, custom, ent.Limits)
	})

	t.Run("duplicate delivery acknowledged as success", func(t *testing.T) {
		t.Parallel()
		rec, _ := newReconciler(t, entitlement.NewMemoryStore())

		payload, sig := signedEvent(t, billing.Event{
			ID: "evt-1", Type: billing.EventCheckoutCompleted, UserID: "user-4", OccurredAt: time.Now(),
		})
		require.NoError(t, rec.Handle(ctx, payload, sig))
		assert.NoError(t, rec.Handle(ctx, payload, sig), "provider retries must see success")
	})

	t.Run("stale cancellation leaves entitlement paid", func(t *testing.T) {
		t.Parallel()
		rec, svc := newReconciler(t, entitlement.NewMemoryStore())
		now := time.Now()

		payload, sig := signedEvent(t, billing.Event{
			ID: "evt-2", Type: billing.EventCheckoutCompleted, UserID: "user-5", OccurredAt: now,
		})
		require.NoError(t, rec.Handle(ctx, payload, sig))

		payload, sig = signedEvent(t, billing.Event{
			ID: "evt-1", Type: billing.EventSubscriptionCancelled, UserID: "user-5",
			OccurredAt: now.Add(-time.Hour),
		})
		require.NoError(t, rec.Handle(ctx, payload, sig))

		ent, err := svc.Get(ctx, "user-5")
		require.NoError(t, err)
		assert.Equal(t, entitlement.TierPaid, ent.Tier)
	})

	t.Run("cancellation drops limits immediately", func(t *testing.T) {
		t.Parallel()
		rec, svc := newReconciler(t, entitlement.NewMemoryStore())
		now := time.Now()

		payload, sig := signedEvent(t, billing.Event{
			ID: "evt-1", Type: billing.EventCheckoutCompleted, UserID: "user-6", OccurredAt: now,
		})
		require.NoError(t, rec.Handle(ctx, payload, sig))

		payload, sig = signedEvent(t, billing.Event{
			ID: "evt-2", Type: billing.EventSubscriptionCancelled, UserID: "user-6",
			OccurredAt: now.Add(time.Minute),
		})
		require.NoError(t, rec.Handle(ctx, payload, sig))

		ent, err := svc.Get(ctx, "user-6")
		require.NoError(t, err)
		assert.Equal(t, entitlement.TierFree, ent.Tier)
		assert.Equal(t, entitlement.DefaultTiers()[entitlement.TierFree], ent.Limits)
	})

	t.Run("unknown event type rejected", func(t *testing.T) {
		t.Parallel()
		rec, _ := newReconciler(t, entitlement.NewMemoryStore())

		payload, sig := signedEvent(t, billing.Event{
			ID: "evt-1", Type: billing.EventType("refund_issued"), UserID: "user-7", OccurredAt: time.Now(),
		})
		err := rec.Handle(ctx, payload, sig)
		assert.ErrorIs(t, err, billing.ErrUnknownEventType)
	})

	t.Run("persistence failure propagates for provider retry", func(t *testing.T) {
		t.Parallel()
		store := &countingStore{inner: entitlement.NewMemoryStore(), fail: true}
		rec, _ := newReconciler(t, store)

		payload, sig := signedEvent(t, billing.Event{
			ID: "evt-1", Type: billing.EventCheckoutCompleted, UserID: "user-8", OccurredAt: time.Now(),
		})
		err := rec.Handle(ctx, payload, sig)
		assert.ErrorIs(t, err, entitlement.ErrStoreUnavailable)
	})
}
