// Package billing reconciles billing-provider webhook events into
// entitlement transitions.
//
// The provider delivers events at least once, possibly duplicated and out of
// order, and retries any non-2xx response indefinitely. The Reconciler
// therefore verifies payload authenticity before parsing, maps event types
// to target tiers, and applies them through the entitlement service's
// idempotent, order-aware Apply. A duplicate or stale event is acknowledged
// as success so the provider stops retrying; a transient persistence failure
// is returned as an error so the provider's retry delivers the event again.
//
// Two parsers are provided: the default HMAC-SHA256 scheme over the raw
// payload, and a Paddle adapter built on the official SDK's webhook
// verifier.
package billing
