package entitlement

import (
	"context"
	"errors"
	"maps"
	"time"
)

// Service is the read/write surface for entitlements. Reads fall back to the
// free tier for unknown users; writes go exclusively through Apply.
type Service struct {
	store Store
	tiers map[Tier]Limits
}

// NewService creates a Service over the given store. Tier limits come from
// src, or DefaultTiers when src is nil. Panics on a nil store to fail fast
// during initialization.
func NewService(ctx context.Context, store Store, src Source) (*Service, error) {
	if store == nil {
		panic("entitlement: Store is required")
	}

	tiers := DefaultTiers()
	if src != nil {
		loaded, err := src.Load(ctx)
		if err != nil {
			return nil, err
		}
		tiers = loaded
	}

	if err := validateTiers(tiers); err != nil {
		return nil, err
	}

	return &Service{store: store, tiers: tiers}, nil
}

// Get returns the user's entitlement, or a default free-tier entitlement when
// none has been created by a billing event yet.
func (s *Service) Get(ctx context.Context, userID string) (Entitlement, error) {
	if userID == "" {
		return Entitlement{}, ErrMissingUserID
	}

	ent, err := s.store.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrEntitlementNotFound) {
			return Entitlement{
				UserID: userID,
				Tier:   TierFree,
				Limits: s.tiers[TierFree],
			}, nil
		}
		return Entitlement{}, err
	}
	return ent, nil
}

// Limits returns the current daily and monthly allowances for a user.
// This is the lookup the quota ledger performs on every reservation.
func (s *Service) Limits(ctx context.Context, userID string) (daily, monthly int, err error) {
	ent, err := s.Get(ctx, userID)
	if err != nil {
		return 0, 0, err
	}
	return ent.Limits.Daily, ent.Limits.Monthly, nil
}

// TierLimits resolves the configured limits for a tier.
func (s *Service) TierLimits(tier Tier) (Limits, error) {
	limits, ok := s.tiers[tier]
	if !ok {
		return Limits{}, ErrUnknownTier
	}
	return limits, nil
}

// Tiers returns a copy of the configured tier map.
func (s *Service) Tiers() map[Tier]Limits {
	return maps.Clone(s.tiers)
}

// Apply records a billing event's target tier and limits for a user. Only
// events strictly newer than the last applied one take effect; duplicates and
// out-of-order deliveries return OutcomeIgnored with no side effects. A
// persistence failure is returned as an error, distinguishable from both
// outcomes, so webhook callers can trigger the provider's retry.
func (s *Service) Apply(ctx context.Context, userID string, tier Tier, limits Limits, eventID string, occurredAt time.Time) (Outcome, error) {
	if userID == "" {
		return OutcomeIgnored, ErrMissingUserID
	}
	if eventID == "" {
		return OutcomeIgnored, ErrMissingEventID
	}
	if _, ok := s.tiers[tier]; !ok {
		return OutcomeIgnored, ErrUnknownTier
	}

	applied, err := s.store.Apply(ctx, Entitlement{
		UserID:      userID,
		Tier:        tier,
		Limits:      limits,
		LastEventID: eventID,
		LastEventAt: occurredAt.UTC(),
	})
	if err != nil {
		return OutcomeIgnored, err
	}
	if !applied {
		return OutcomeIgnored, nil
	}
	return OutcomeApplied, nil
}
