package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
)

// Sign computes the hex HMAC-SHA256 of the raw payload under the shared
// secret. Exposed for tests and for provider simulators.
func Sign(secret string, payload []byte) (string, error) {
	if secret == "" {
		return "", ErrMissingSecret
	}
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// VerifySignature validates the payload's authenticity. Uses constant-time
// comparison; runs before any parsing so unauthenticated input never reaches
// the JSON decoder.
func VerifySignature(secret string, payload []byte, signature string) error {
	if secret == "" {
		return ErrMissingSecret
	}
	if signature == "" || len(payload) == 0 {
		return ErrInvalidSignature
	}

	expected, err := Sign(secret, payload)
	if err != nil {
		return err
	}
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrInvalidSignature
	}
	return nil
}

// EventParser turns a raw webhook delivery into a normalized Event.
// Implementations must verify authenticity before parsing and return
// ErrInvalidSignature / ErrMalformedPayload accordingly.
type EventParser interface {
	Parse(payload []byte, signature string) (Event, error)
}

// Config holds webhook verification settings for the default scheme.
type Config struct {
	WebhookSecret string `env:"BILLING_WEBHOOK_SECRET,required"`
}

// HMACParser is the default EventParser: hex HMAC-SHA256 over the raw
// payload, then JSON decoding into Event.
type HMACParser struct {
	secret string
}

// NewHMACParser creates the default parser for the shared secret.
func NewHMACParser(secret string) (*HMACParser, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	return &HMACParser{secret: secret}, nil
}

// NewHMACParserFromConfig creates the default parser from environment-backed
// configuration.
func NewHMACParserFromConfig(cfg Config) (*HMACParser, error) {
	return NewHMACParser(cfg.WebhookSecret)
}

func (p *HMACParser) Parse(payload []byte, signature string) (Event, error) {
	if err := VerifySignature(p.secret, payload, signature); err != nil {
		return Event{}, err
	}

	var event Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return Event{}, errors.Join(ErrMalformedPayload, err)
	}
	if err := event.Validate(); err != nil {
		return Event{}, err
	}
	return event, nil
}
