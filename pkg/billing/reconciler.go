package billing

import (
	"context"
	"log/slog"

	"github.com/promptforge/gengate/pkg/entitlement"
)

// Reconciler applies billing events to the entitlement store. Safe for
// concurrent use; ordering across concurrent deliveries for one user is
// settled by the store's conditional apply, not by locking here.
type Reconciler struct {
	parser       EventParser
	entitlements *entitlement.Service
	log          *slog.Logger
}

// ReconcilerOption configures a Reconciler.
type ReconcilerOption func(*Reconciler)

// WithLogger sets the logger. Defaults to slog.Default.
func WithLogger(log *slog.Logger) ReconcilerOption {
	return func(r *Reconciler) {
		if log != nil {
			r.log = log
		}
	}
}

// NewReconciler creates a Reconciler. Panics on nil dependencies to fail
// fast during initialization.
func NewReconciler(parser EventParser, entitlements *entitlement.Service, opts ...ReconcilerOption) *Reconciler {
	if parser == nil {
		panic("billing: EventParser is required")
	}
	if entitlements == nil {
		panic("billing: entitlement service is required")
	}

	r := &Reconciler{
		parser:       parser,
		entitlements: entitlements,
		log:          slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Handle processes one webhook delivery.
//
// Verification happens before parsing; invalid signatures and malformed
// payloads return ErrInvalidSignature / ErrMalformedPayload and touch no
// state. A duplicate or out-of-order event returns nil; the provider must
// see a 2xx or it retries the same delivery forever. Only a persistence
// failure returns an error after verification, which callers translate to a
// retryable non-2xx response.
func (r *Reconciler) Handle(ctx context.Context, payload []byte, signature string) error {
	event, err := r.parser.Parse(payload, signature)
	if err != nil {
		r.log.WarnContext(ctx, "billing webhook rejected", slog.Any("error", err))
		return err
	}

	tier, err := event.TargetTier()
	if err != nil {
		return err
	}

	limits, err := r.resolveLimits(event, tier)
	if err != nil {
		return err
	}

	outcome, err := r.entitlements.Apply(ctx, event.UserID, tier, limits, event.ID, event.OccurredAt)
	if err != nil {
		r.log.ErrorContext(ctx, "billing event application failed",
			slog.String("event_id", event.ID),
			slog.String("user_id", event.UserID),
			slog.Any("error", err))
		return err
	}

	r.log.InfoContext(ctx, "billing event processed",
		slog.String("event_id", event.ID),
		slog.String("event_type", string(event.Type)),
		slog.String("user_id", event.UserID),
		slog.String("outcome", string(outcome)))
	return nil
}

// resolveLimits prefers explicit limits carried on the event and falls back
// to the configured allowances of the target tier.
func (r *Reconciler) resolveLimits(event Event, tier entitlement.Tier) (entitlement.Limits, error) {
	if event.Limits != nil {
		return *event.Limits, nil
	}
	return r.entitlements.TierLimits(tier)
}
