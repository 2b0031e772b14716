package store

import (
	"io"
	"log/slog"
	"testing"

	"github.com/brasero/hourly-forecaster/cmd/forecaster/config"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewMemoryBackend(t *testing.T) {
	cfg := &config.Config{Storage: "memory"}
	s, err := New(cfg, discardLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if s == nil {
		t.Fatal("New() returned nil store")
	}
	if closer, ok := s.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	} else {
		t.Error("memory backend should expose Close() error")
	}
}

func TestNewDefaultsToMemoryBackend(t *testing.T) {
	cfg := &config.Config{}
	s, err := New(cfg, discardLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if s == nil {
		t.Fatal("New() returned nil store")
	}
}

func TestNewUnknownBackend(t *testing.T) {
	cfg := &config.Config{Storage: "bogus"}
	if _, err := New(cfg, discardLogger()); err == nil {
		t.Fatal("New() expected an error for an unknown storage backend")
	}
}

func TestNewRedisBackendInvalidAddr(t *testing.T) {
	cfg := &config.Config{Storage: "redis", RedisAddr: ""}
	if _, err := New(cfg, discardLogger()); err == nil {
		t.Fatal("New() expected an error for an empty redis address")
	}
}
