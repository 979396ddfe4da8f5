package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/nerrad567/gray-logic-tuya/internal/climate/syncengine"
	"github.com/nerrad567/gray-logic-tuya/internal/infrastructure/config"
)

// Logger must plug straight into the domain packages.
var _ syncengine.Logger = (*Logger)(nil)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse JSON output %q: %v", buf.String(), err)
	}
	return entry
}

func TestNew_Outputs(t *testing.T) {
	for _, output := range []string{"stdout", "stderr", ""} {
		logger := New(config.LoggingConfig{Level: "info", Format: "json", Output: output}, "1.0.0")
		if logger == nil {
			t.Fatalf("New(output=%q) returned nil", output)
		}
	}
}

func TestNewWithWriter_JSONDefaultFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(config.LoggingConfig{Level: "info", Format: "json"}, "1.2.3", &buf)

	logger.Info("engine started", "device_id", "ac-1")

	entry := decodeLine(t, &buf)
	if entry["service"] != ServiceName {
		t.Errorf("service = %v, want %s", entry["service"], ServiceName)
	}
	if entry["version"] != "1.2.3" {
		t.Errorf("version = %v, want 1.2.3", entry["version"])
	}
	if entry["msg"] != "engine started" || entry["device_id"] != "ac-1" {
		t.Errorf("entry = %v", entry)
	}
}

func TestNewWithWriter_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(config.LoggingConfig{Level: "debug", Format: "text"}, "dev", &buf)

	logger.Debug("delta applied", "keys", 2)

	out := buf.String()
	if !strings.Contains(out, "msg=\"delta applied\"") || !strings.Contains(out, "keys=2") {
		t.Errorf("text output = %q", out)
	}
}

func TestNewWithWriter_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(config.LoggingConfig{Level: "warn"}, "dev", &buf)

	logger.Info("hidden")
	if buf.Len() != 0 {
		t.Errorf("info logged at warn level: %q", buf.String())
	}
	logger.Warn("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("warn not logged: %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"unknown", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"DEBUG", slog.LevelDebug},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if result := parseLevel(tt.input); result != tt.expected {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestLogger_ChildLoggers(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(config.LoggingConfig{Level: "info"}, "dev", &buf)

	child := logger.Component("mqtt").Device("ac-1")
	if child == logger {
		t.Fatal("expected child logger to be different from parent")
	}
	child.Info("connected")

	entry := decodeLine(t, &buf)
	if entry["component"] != "mqtt" || entry["device_id"] != "ac-1" {
		t.Errorf("entry = %v, want component and device_id", entry)
	}
}

func TestDefaultAndDiscard(t *testing.T) {
	if Default() == nil {
		t.Fatal("expected non-nil default logger")
	}
	// Must not panic.
	Discard().Error("dropped", "error", "boom")
}
