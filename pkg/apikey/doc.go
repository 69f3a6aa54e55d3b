// Package apikey verifies access keys against an allowlist loaded from the
// environment. Keys are UUIDs distributed out of band; the keyring is
// immutable after construction and safe for concurrent use.
package apikey
