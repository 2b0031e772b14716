// Package storage provides forecast run storage implementations.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store using Redis, enabling multi-instance
// forecaster deployments to share the forecast/registry/audit sinks.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	mu     sync.RWMutex
}

// NewRedisStore creates a new Redis-backed store.
//
//   - addr: Redis server address (e.g., "localhost:6379")
//   - password: Redis password (empty string for no auth)
//   - db: Redis database number (typically 0)
//   - ttl: bundle expiration duration (0 uses a default of 30 minutes)
func NewRedisStore(addr, password string, db int, ttl time.Duration) (*RedisStore, error) {
	if addr == "" {
		return nil, errors.New("redis address cannot be empty")
	}
	if db < 0 {
		return nil, errors.New("redis database number must be >= 0")
	}

	if ttl == 0 {
		ttl = 30 * time.Minute
	}

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}

	return &RedisStore{
		client: client,
		ttl:    ttl,
	}, nil
}

func runKey(locationID string) string {
	return fmt.Sprintf("forecaster:run:%s", locationID)
}

// Put stores a location's full run bundle in Redis with TTL expiration,
// replacing any prior bundle for that location (delete-then-insert, since
// a Set call on the same key already discards the old value).
func (r *RedisStore) Put(ctx context.Context, run LocationRun) error {
	if run.LocationID == "" {
		return errors.New("location id required")
	}

	for _, c := range run.LocationID {
		if !((c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') ||
			(c >= '0' && c <= '9') || c == '-' || c == '_') {
			return fmt.Errorf("invalid location id %q: only alphanumeric, hyphens, and underscores allowed", run.LocationID)
		}
	}

	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to marshal run: %w", err)
	}

	if err := r.client.Set(ctx, runKey(run.LocationID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store run in redis: %w", err)
	}

	return nil
}

// GetLatest retrieves the latest run bundle for a location.
func (r *RedisStore) GetLatest(ctx context.Context, locationID string) (LocationRun, bool, error) {
	if locationID == "" {
		return LocationRun{}, false, errors.New("location id required")
	}

	data, err := r.client.Get(ctx, runKey(locationID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return LocationRun{}, false, nil
		}
		return LocationRun{}, false, fmt.Errorf("failed to get run from redis: %w", err)
	}

	var run LocationRun
	if err := json.Unmarshal(data, &run); err != nil {
		return LocationRun{}, false, fmt.Errorf("failed to unmarshal run: %w", err)
	}

	return run, true, nil
}

// Close closes the Redis client connection. Safe to call multiple times.
func (r *RedisStore) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.client == nil {
		return nil
	}

	err := r.client.Close()
	r.client = nil
	if err != nil && err.Error() == "redis: client is closed" {
		return nil
	}

	return err
}

// Ping checks the Redis connection health.
func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
