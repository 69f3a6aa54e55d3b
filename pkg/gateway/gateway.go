package gateway

import (
	"context"
	"log/slog"
	"time"

	"github.com/promptforge/gengate/pkg/promptguard"
	"github.com/promptforge/gengate/pkg/quota"
)

// Generator is the external generation call: it accepts a fully rendered
// prompt and returns generated text or a typed failure. The gateway treats
// it as opaque and bounds it with the configured timeout.
type Generator func(ctx context.Context, prompt string) (string, error)

// DefaultGenerationTimeout bounds the external call; on expiry the gateway
// releases the reservation and reports an upstream failure.
const DefaultGenerationTimeout = 30 * time.Second

// Gateway enforces input safety and quota before every generation call.
type Gateway struct {
	guard    *promptguard.Guard
	ledger   *quota.Ledger
	generate Generator
	template *Template
	timeout  time.Duration
	log      *slog.Logger
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithTemplate wraps screened input in a master prompt before generation.
func WithTemplate(t *Template) Option {
	return func(g *Gateway) { g.template = t }
}

// WithTimeout overrides the generation call timeout. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(g *Gateway) { g.timeout = d }
}

// WithLogger sets the logger. Defaults to slog.Default.
func WithLogger(log *slog.Logger) Option {
	return func(g *Gateway) {
		if log != nil {
			g.log = log
		}
	}
}

// New creates a Gateway. Panics on nil dependencies to fail fast during
// initialization.
func New(guard *promptguard.Guard, ledger *quota.Ledger, generate Generator, opts ...Option) *Gateway {
	if guard == nil {
		panic("gateway: promptguard.Guard is required")
	}
	if ledger == nil {
		panic("gateway: quota.Ledger is required")
	}
	if generate == nil {
		panic("gateway: Generator is required")
	}

	g := &Gateway{
		guard:    guard,
		ledger:   ledger,
		generate: generate,
		timeout:  DefaultGenerationTimeout,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Enforce runs one generation request through the gates in strict order:
// injection filter, quota reservation, generation, settlement. Each request
// resolves to exactly one terminal Result; there is no partial state left
// behind on any path.
func (g *Gateway) Enforce(ctx context.Context, userID, prompt string, now time.Time) Result {
	if cls := g.guard.Classify(prompt); cls.Flagged {
		g.log.InfoContext(ctx, "prompt blocked",
			slog.String("user_id", userID),
			slog.String("pattern", cls.Pattern))
		return Result{Status: StatusBlocked, Reason: cls.Pattern}
	}

	res, err := g.ledger.CheckAndReserve(ctx, userID, now)
	if err != nil {
		if scope, ok := quota.DeniedScope(err); ok {
			g.log.InfoContext(ctx, "quota exhausted",
				slog.String("user_id", userID),
				slog.String("scope", string(scope)))
			return Result{Status: StatusQuotaExceeded, Scope: scope, Err: err}
		}
		g.log.ErrorContext(ctx, "quota reservation failed",
			slog.String("user_id", userID),
			slog.Any("error", err))
		return Result{Status: StatusUnavailable, Err: err}
	}

	// The reservation is taken and no lock is held: the provider call may
	// block for a full network round trip without contending with other
	// requests for this user.
	text, err := g.callGenerator(ctx, prompt)
	if err != nil {
		// Settlement must not be lost to the caller's cancelled context.
		releaseCtx := context.WithoutCancel(ctx)
		if relErr := g.ledger.Release(releaseCtx, res); relErr != nil {
			g.log.ErrorContext(ctx, "reservation release failed",
				slog.String("user_id", userID),
				slog.String("reservation_id", res.ID),
				slog.Any("error", relErr))
		}
		g.log.WarnContext(ctx, "generation failed",
			slog.String("user_id", userID),
			slog.Any("error", err))
		return Result{Status: StatusUpstreamFailure, Err: err}
	}

	if err := g.ledger.Commit(ctx, res); err != nil {
		return Result{Status: StatusUnavailable, Err: err}
	}
	return Result{Status: StatusGenerated, Text: text}
}

// callGenerator renders the final prompt and runs the bounded external call.
func (g *Gateway) callGenerator(ctx context.Context, input string) (string, error) {
	prompt := input
	if g.template != nil {
		prompt = g.template.Render(input)
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	text, err := g.generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", ctxErr
	}
	return text, nil
}
