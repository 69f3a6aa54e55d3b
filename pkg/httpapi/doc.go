// Package httpapi exposes the enforcement core over HTTP: key verification,
// gated generation, and the billing webhook endpoint. Handlers are thin JSON
// adapters; all policy lives in the gateway, billing, and apikey packages.
//
// Status mapping matters for the webhook route: the billing provider retries
// any non-2xx response, so duplicate events return 200 while persistence
// failures return 503 to trigger redelivery.
package httpapi
