package telemetry

import (
	"context"
	"log/slog"
	"testing"
)

func TestNewLoggerLevelParsing(t *testing.T) {
	tests := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		logger := NewLogger("json", tt.level)
		if !logger.Enabled(context.Background(), tt.want) {
			t.Errorf("level %q: expected logger enabled at %v", tt.level, tt.want)
		}
	}
}

func TestNewLoggerFormatSwitch(t *testing.T) {
	jsonHandler := NewLogger("json", "info").Handler()
	if _, ok := jsonHandler.(*slog.JSONHandler); !ok {
		t.Fatalf("NewLogger(\"json\", ...) handler = %T, want *slog.JSONHandler", jsonHandler)
	}
	textHandler := NewLogger("text", "info").Handler()
	if _, ok := textHandler.(*slog.TextHandler); !ok {
		t.Fatalf("NewLogger(\"text\", ...) handler = %T, want *slog.TextHandler", textHandler)
	}
}

func TestAllReturnsEveryCollector(t *testing.T) {
	collectors := All()
	if len(collectors) != 6 {
		t.Fatalf("All() returned %d collectors, want 6", len(collectors))
	}
}

func TestNewRegistryRegistersWithoutPanic(t *testing.T) {
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("NewRegistry panicked: %v", r)
		}
	}()
	NewRegistry()
}
