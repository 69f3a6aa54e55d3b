package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/promptforge/gengate/pkg/apikey"
	"github.com/promptforge/gengate/pkg/billing"
	"github.com/promptforge/gengate/pkg/gateway"
)

// SignatureHeader carries the webhook payload signature.
const SignatureHeader = "X-Webhook-Signature"

// maxWebhookBody bounds webhook payload reads.
const maxWebhookBody = 1 << 20

// Handler wires the enforcement core to HTTP routes.
type Handler struct {
	gateway    *gateway.Gateway
	reconciler *billing.Reconciler
	keys       *apikey.Keyring
	log        *slog.Logger
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the logger. Defaults to slog.Default.
func WithLogger(log *slog.Logger) Option {
	return func(h *Handler) {
		if log != nil {
			h.log = log
		}
	}
}

// New creates a Handler. Panics on nil dependencies to fail fast during
// initialization.
func New(gw *gateway.Gateway, rec *billing.Reconciler, keys *apikey.Keyring, opts ...Option) *Handler {
	if gw == nil {
		panic("httpapi: gateway is required")
	}
	if rec == nil {
		panic("httpapi: billing reconciler is required")
	}
	if keys == nil {
		panic("httpapi: keyring is required")
	}

	h := &Handler{gateway: gw, reconciler: rec, keys: keys, log: slog.Default()}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Router returns the HTTP routes for the enforcement core.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Post("/api/verify", h.verifyKey)
	r.Post("/api/generate", h.generate)
	r.Post("/webhooks/billing", h.billingWebhook)

	return r
}

type verifyRequest struct {
	Key string `json:"key"`
}

func (h *Handler) verifyKey(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Key == "" {
		writeError(w, http.StatusBadRequest, "no key provided")
		return
	}

	if err := h.keys.Verify(req.Key); err != nil {
		writeError(w, http.StatusUnauthorized, "invalid key")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type generateRequest struct {
	Key      string `json:"key"`
	Features string `json:"features"`
}

type generateResponse struct {
	GeneratedText string `json:"generatedText"`
}

func (h *Handler) generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Features == "" {
		writeError(w, http.StatusBadRequest, "features are a required field")
		return
	}
	if err := h.keys.Verify(req.Key); err != nil {
		writeError(w, http.StatusUnauthorized, "invalid key")
		return
	}

	// The access key doubles as the stable user identity for quota purposes.
	result := h.gateway.Enforce(r.Context(), req.Key, req.Features, time.Now().UTC())

	switch result.Status {
	case gateway.StatusGenerated:
		writeJSON(w, http.StatusOK, generateResponse{GeneratedText: result.Text})
	case gateway.StatusBlocked:
		writeError(w, http.StatusBadRequest, "input contains potentially problematic content, please rephrase")
	case gateway.StatusQuotaExceeded:
		writeJSON(w, http.StatusTooManyRequests, map[string]string{
			"error": "quota exceeded",
			"scope": string(result.Scope),
		})
	case gateway.StatusUpstreamFailure:
		writeError(w, http.StatusBadGateway, "text generation failed")
	default:
		writeError(w, http.StatusServiceUnavailable, "service temporarily unavailable")
	}
}

func (h *Handler) billingWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable payload")
		return
	}

	err = h.reconciler.Handle(r.Context(), payload, r.Header.Get(SignatureHeader))
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	case errors.Is(err, billing.ErrInvalidSignature):
		writeError(w, http.StatusUnauthorized, "invalid signature")
	case errors.Is(err, billing.ErrMalformedPayload),
		errors.Is(err, billing.ErrUnknownEventType):
		writeError(w, http.StatusBadRequest, "invalid payload")
	default:
		// Transient failure: a non-2xx response makes the billing provider
		// redeliver the event.
		h.log.ErrorContext(r.Context(), "billing webhook processing failed", slog.Any("error", err))
		writeError(w, http.StatusServiceUnavailable, "temporary failure, retry")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
