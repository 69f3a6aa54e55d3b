package quota

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig holds connection settings for the Redis-backed store.
type RedisConfig struct {
	ConnectionURL  string        `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
	ConnectTimeout time.Duration `env:"REDIS_CONNECT_TIMEOUT" envDefault:"10s"`
	KeyPrefix      string        `env:"QUOTA_REDIS_KEY_PREFIX" envDefault:"gengate:quota:"`
	// RecordTTL bounds how long an idle record survives. Must exceed the
	// monthly window or counts could vanish mid-month; 0 disables expiry.
	RecordTTL time.Duration `env:"QUOTA_REDIS_RECORD_TTL" envDefault:"1440h"`
}

// RedisStore implements Store on Redis, one JSON document per user. The
// conditional update uses WATCH plus a transactional pipeline: if the key
// changes between read and write the transaction fails and Save reports
// ErrVersionConflict, matching the optimistic-concurrency contract.
type RedisStore struct {
	client    redis.UniversalClient
	keyPrefix string
	recordTTL time.Duration
}

// NewRedisStore creates a store over an existing Redis client.
func NewRedisStore(client redis.UniversalClient, cfg RedisConfig) *RedisStore {
	if client == nil {
		panic("quota: redis client is required")
	}
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "gengate:quota:"
	}
	return &RedisStore{
		client:    client,
		keyPrefix: prefix,
		recordTTL: cfg.RecordTTL,
	}
}

// ConnectRedis dials Redis from config and returns a ready client.
func ConnectRedis(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	opt, err := redis.ParseURL(cfg.ConnectionURL)
	if err != nil {
		return nil, errors.Join(ErrStoreUnavailable, err)
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Join(ErrStoreUnavailable, err)
	}
	return client, nil
}

func (s *RedisStore) key(userID string) string {
	return s.keyPrefix + userID
}

func (s *RedisStore) Get(ctx context.Context, userID string) (State, error) {
	data, err := s.client.Get(ctx, s.key(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return State{}, ErrStateNotFound
		}
		return State{}, errors.Join(ErrStoreUnavailable, err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return State{}, errors.Join(ErrStoreUnavailable, err)
	}
	return state, nil
}

func (s *RedisStore) Save(ctx context.Context, state State) error {
	key := s.key(state.UserID)

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
			if state.Version != 0 {
				return ErrVersionConflict
			}
		case err != nil:
			return errors.Join(ErrStoreUnavailable, err)
		default:
			var current State
			if err := json.Unmarshal(data, &current); err != nil {
				return errors.Join(ErrStoreUnavailable, err)
			}
			if current.Version != state.Version {
				return ErrVersionConflict
			}
		}

		state.Version++
		buf, err := json.Marshal(state)
		if err != nil {
			return errors.Join(ErrStoreUnavailable, err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, buf, s.recordTTL)
			return nil
		})
		return err
	}, key)

	// The watched key was modified by a concurrent writer between the read
	// and the EXEC; surface it as the same conflict the caller retries on.
	if errors.Is(err, redis.TxFailedErr) {
		return ErrVersionConflict
	}
	if err != nil && !errors.Is(err, ErrVersionConflict) && !errors.Is(err, ErrStoreUnavailable) {
		return errors.Join(ErrStoreUnavailable, err)
	}
	return err
}
