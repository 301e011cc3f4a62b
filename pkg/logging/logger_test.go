package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"  WARN ", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"garbage", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewLevelGate(t *testing.T) {
	ctx := context.Background()

	logger := New("warn")
	if logger.Enabled(ctx, slog.LevelInfo) {
		t.Error("warn logger should not enable info")
	}
	if !logger.Enabled(ctx, slog.LevelError) {
		t.Error("warn logger should enable error")
	}
}

func TestComponentTagsOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter("info", &buf).Component("webhook")
	logger.Info("received", "sid", "SM123")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if entry["component"] != "webhook" {
		t.Errorf("component = %v, want webhook", entry["component"])
	}
	if entry["sid"] != "SM123" {
		t.Errorf("sid = %v, want SM123", entry["sid"])
	}
}

func TestDefaultLogger(t *testing.T) {
	logger := Default()
	if logger.Logger == nil {
		t.Fatal("Default() returned nil slog.Logger")
	}
	if !logger.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("Default() should enable info level")
	}
}
