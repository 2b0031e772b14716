package logger

import (
	"log/slog"
	"testing"

	"github.com/brasero/hourly-forecaster/cmd/forecaster/config"
)

func TestNewReturnsNonNilLogger(t *testing.T) {
	cfg := &config.Config{LogFormat: "text", LogLevel: "info"}
	log := New(cfg)
	if log == nil {
		t.Fatal("New() returned nil")
	}
}

func TestNewJSONFormat(t *testing.T) {
	cfg := &config.Config{LogFormat: "json", LogLevel: "info"}
	log := New(cfg)
	if log == nil {
		t.Fatal("New() returned nil")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want slog.Level
	}{
		{name: "debug", in: "debug", want: slog.LevelDebug},
		{name: "info", in: "info", want: slog.LevelInfo},
		{name: "warn", in: "warn", want: slog.LevelWarn},
		{name: "error", in: "error", want: slog.LevelError},
		{name: "unknown falls back to info", in: "bogus", want: slog.LevelInfo},
		{name: "empty falls back to info", in: "", want: slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseLevel(tt.in); got != tt.want {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
