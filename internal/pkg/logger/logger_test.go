package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name   string
		config Config
	}{
		{
			name: "default config",
			config: Config{
				Level:  "info",
				Format: "json",
			},
		},
		{
			name: "text format",
			config: Config{
				Level:  "debug",
				Format: "text",
			},
		},
		{
			name: "with service name",
			config: Config{
				Level:       "info",
				Format:      "json",
				ServiceName: "mapserve-test",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.config.Output = &buf

			log := New(tt.config)
			if log == nil {
				t.Fatal("expected logger, got nil")
			}

			log.Info("test message")
			if buf.Len() == 0 {
				t.Error("expected log output")
			}
		})
	}
}

func TestServiceNameAttribute(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{
		Level:       "info",
		Format:      "json",
		Output:      &buf,
		ServiceName: "mapserve",
	})

	log.Info("hello")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse log entry: %v", err)
	}
	if entry["service"] != "mapserve" {
		t.Errorf("expected service=mapserve, got %v", entry["service"])
	}
}

func TestWithRenderID(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "info", Format: "json", Output: &buf})

	log.WithRenderID("rnd_123").Info("rendering")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse log entry: %v", err)
	}
	if entry["render_id"] != "rnd_123" {
		t.Errorf("expected render_id=rnd_123, got %v", entry["render_id"])
	}
}

func TestFromContext(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "info", Format: "json", Output: &buf})

	ctx := ContextWithRequestID(context.Background(), "req_abc")
	ctx = ContextWithRenderID(ctx, "rnd_xyz")

	log.FromContext(ctx).Info("enriched")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse log entry: %v", err)
	}
	if entry["request_id"] != "req_abc" {
		t.Errorf("expected request_id=req_abc, got %v", entry["request_id"])
	}
	if entry["render_id"] != "rnd_xyz" {
		t.Errorf("expected render_id=rnd_xyz, got %v", entry["render_id"])
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "warn", Format: "json", Output: &buf})

	log.Debug("should be dropped")
	log.Info("should be dropped too")
	if buf.Len() != 0 {
		t.Errorf("expected no output below warn level, got %q", buf.String())
	}

	log.Warn("kept")
	if !strings.Contains(buf.String(), "kept") {
		t.Error("expected warn message in output")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"debug", "DEBUG"},
		{"info", "INFO"},
		{"WARN", "WARN"},
		{"warning", "WARN"},
		{"error", "ERROR"},
		{"bogus", "INFO"},
		{"", "INFO"},
	}

	for _, tt := range tests {
		if got := parseLevel(tt.in).String(); got != tt.want {
			t.Errorf("parseLevel(%q)=%s, want %s", tt.in, got, tt.want)
		}
	}
}
