package entitlement

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// Source defines how per-tier limits are loaded into the service.
type Source interface {
	Load(ctx context.Context) (map[Tier]Limits, error)
}

// inMemSource serves a fixed tier map from memory.
type inMemSource struct {
	mu    sync.RWMutex
	tiers map[Tier]Limits
}

// NewInMemSource returns a Source over a copy of the given tier map.
func NewInMemSource(tiers map[Tier]Limits) Source {
	return &inMemSource{tiers: maps.Clone(tiers)}
}

func (s *inMemSource) Load(ctx context.Context) (map[Tier]Limits, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.tiers), nil
}

// fileSource loads tier limits from a YAML file of the form:
//
//	free:
//	  daily: 5
//	  monthly: 50
//	paid:
//	  daily: 100
//	  monthly: 2000
type fileSource struct {
	path string
}

// NewFileSource returns a Source reading the tier map from a YAML file.
func NewFileSource(path string) Source {
	return &fileSource{path: path}
}

func (s *fileSource) Load(ctx context.Context) (map[Tier]Limits, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, errors.Join(ErrFailedToLoadTiers, err)
	}

	var tiers map[Tier]Limits
	if err := yaml.Unmarshal(data, &tiers); err != nil {
		return nil, errors.Join(ErrFailedToLoadTiers, err)
	}
	return tiers, nil
}

// DefaultTiers returns the built-in tier configuration used when no Source
// is supplied. Cancelled accounts fall back to free-tier allowances.
func DefaultTiers() map[Tier]Limits {
	return map[Tier]Limits{
		TierFree:      {Daily: 5, Monthly: 50},
		TierPaid:      {Daily: 100, Monthly: 2000},
		TierCancelled: {Daily: 5, Monthly: 50},
	}
}

// validateTiers catches configuration mistakes early so a bad file prevents
// startup instead of surfacing as mid-request denials.
func validateTiers(tiers map[Tier]Limits) error {
	if _, ok := tiers[TierFree]; !ok {
		return errors.Join(ErrInvalidTierConfiguration,
			errors.New("free tier is required"))
	}
	for tier, limits := range tiers {
		if limits.Daily < 0 || limits.Monthly < 0 {
			return errors.Join(ErrInvalidTierConfiguration,
				fmt.Errorf("tier %s has negative limits", tier))
		}
	}
	return nil
}
