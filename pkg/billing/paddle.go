package billing

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	paddle "github.com/PaddleHQ/paddle-go-sdk/v4"
)

// PaddleConfig holds Paddle webhook settings.
type PaddleConfig struct {
	WebhookSecret string `env:"PADDLE_WEBHOOK_SECRET,required"`
}

// PaddleParser adapts Paddle webhook deliveries to the EventParser contract,
// verifying the Paddle-Signature header through the official SDK before
// normalizing the payload into an Event.
type PaddleParser struct {
	verifier *paddle.WebhookVerifier
}

// NewPaddleParser creates a parser for the given webhook secret.
func NewPaddleParser(cfg PaddleConfig) (*PaddleParser, error) {
	if cfg.WebhookSecret == "" {
		return nil, ErrMissingSecret
	}
	return &PaddleParser{verifier: paddle.NewWebhookVerifier(cfg.WebhookSecret)}, nil
}

func (p *PaddleParser) Parse(payload []byte, signature string) (Event, error) {
	// The SDK verifier consumes an http.Request, so reconstruct one around
	// the raw body and signature header.
	req, err := http.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(payload))
	if err != nil {
		return Event{}, errors.Join(ErrInvalidSignature, err)
	}
	req.Header.Set("Paddle-Signature", signature)

	valid, err := p.verifier.Verify(req)
	if err != nil {
		return Event{}, errors.Join(ErrInvalidSignature, err)
	}
	if !valid {
		return Event{}, ErrInvalidSignature
	}

	var paddleEvent struct {
		EventID    string         `json:"event_id"`
		EventType  string         `json:"event_type"`
		OccurredAt string         `json:"occurred_at"`
		Data       map[string]any `json:"data"`
	}
	if err := json.Unmarshal(payload, &paddleEvent); err != nil {
		return Event{}, errors.Join(ErrMalformedPayload, err)
	}

	eventType, err := mapPaddleEventType(paddleEvent.EventType)
	if err != nil {
		return Event{}, err
	}

	occurredAt, err := time.Parse(time.RFC3339, paddleEvent.OccurredAt)
	if err != nil {
		return Event{}, errors.Join(ErrMalformedPayload, err)
	}

	event := Event{
		ID:         paddleEvent.EventID,
		Type:       eventType,
		OccurredAt: occurredAt,
		UserID:     paddleCustomerID(paddleEvent.Data),
	}
	if err := event.Validate(); err != nil {
		return Event{}, err
	}
	return event, nil
}

func mapPaddleEventType(providerType string) (EventType, error) {
	switch providerType {
	case "transaction.completed", "checkout.completed":
		return EventCheckoutCompleted, nil
	case "transaction.paid", "subscription.activated":
		return EventPaymentSucceeded, nil
	case "subscription.canceled", "subscription.cancelled":
		return EventSubscriptionCancelled, nil
	default:
		return "", ErrUnknownEventType
	}
}

// paddleCustomerID extracts our user ID from the event's custom data, where
// checkout creation stored it.
func paddleCustomerID(data map[string]any) string {
	customData, ok := data["custom_data"].(map[string]any)
	if !ok {
		return ""
	}
	id, _ := customData["customer_id"].(string)
	return id
}
