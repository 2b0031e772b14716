// Package store selects and constructs the storage.Store backend the
// forecaster writes results to, based on configuration: an in-memory store
// for local runs and tests, or Redis for a deployed process.
package store

import (
	"fmt"
	"log/slog"

	"github.com/brasero/hourly-forecaster/cmd/forecaster/config"
	"github.com/brasero/hourly-forecaster/pkg/storage"
)

// memoryStore adapts storage.MemoryStore's Stop() to the Close() error
// shape New's other backend (RedisStore) already exposes, so main.go can
// defer-close either backend uniformly.
type memoryStore struct {
	*storage.MemoryStore
}

func (m memoryStore) Close() error {
	m.Stop()
	return nil
}

// New builds a storage.Store from cfg.Storage ("memory" or "redis").
func New(cfg *config.Config, logger *slog.Logger) (storage.Store, error) {
	switch cfg.Storage {
	case "redis":
		s, err := storage.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RedisTTL)
		if err != nil {
			return nil, fmt.Errorf("store: new redis store: %w", err)
		}
		logger.Info("using redis storage backend", "addr", cfg.RedisAddr, "db", cfg.RedisDB)
		return s, nil
	case "memory", "":
		logger.Info("using in-memory storage backend")
		return memoryStore{storage.NewMemoryStore()}, nil
	default:
		return nil, fmt.Errorf("store: unknown storage backend %q (must be memory or redis)", cfg.Storage)
	}
}
