package apikey

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

// Config holds the allowlist source.
type Config struct {
	// AllowedKeysCSV is a comma-separated list of UUID access keys.
	AllowedKeysCSV string `env:"ALLOWED_KEYS_CSV"`
}

var (
	ErrEmptyKey      = errors.New("no access key provided")
	ErrKeyNotAllowed = errors.New("access key not allowed")
	ErrInvalidKey    = errors.New("access key is not a valid UUID")
)

// Keyring is an immutable set of allowed access keys.
type Keyring struct {
	keys map[string]struct{}
}

// NewKeyring builds a keyring from explicit keys. Entries that are not valid
// UUIDs are silently dropped, matching FromConfig behavior.
func NewKeyring(keys ...string) *Keyring {
	set := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		if _, err := uuid.Parse(key); err != nil {
			continue
		}
		set[key] = struct{}{}
	}
	return &Keyring{keys: set}
}

// FromConfig builds a keyring from the comma-separated allowlist. An empty
// allowlist yields a keyring that rejects every key.
func FromConfig(cfg Config) *Keyring {
	return NewKeyring(strings.Split(cfg.AllowedKeysCSV, ",")...)
}

// Len reports how many keys are loaded.
func (k *Keyring) Len() int {
	return len(k.keys)
}

// Verify checks a submitted key against the allowlist.
func (k *Keyring) Verify(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return ErrEmptyKey
	}
	if _, err := uuid.Parse(key); err != nil {
		return ErrInvalidKey
	}
	if _, ok := k.keys[key]; !ok {
		return ErrKeyNotAllowed
	}
	return nil
}
