package observe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("invalid JSON log line %q: %v", line, err)
		}
		out = append(out, entry)
	}
	return out
}

func TestLogger_JSONFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&buf, "info", "json").With(Field{Key: "component", Value: "health"})

	log.Info(context.Background(), "cycle complete", Field{Key: "overall", Value: "down"})

	entries := decodeLines(t, &buf)
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	e := entries[0]
	if e["msg"] != "cycle complete" || e["level"] != "INFO" {
		t.Errorf("unexpected entry: %v", e)
	}
	if e["component"] != "health" || e["overall"] != "down" {
		t.Errorf("fields missing: %v", e)
	}
}

func TestLogger_LevelFilter(t *testing.T) {
	tests := []struct {
		level string
		want  int
	}{
		{"debug", 4},
		{"info", 3},
		{"", 3},
		{"warn", 2},
		{"error", 1},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			log := NewLogger(&buf, tt.level, "json")
			ctx := context.Background()

			log.Debug(ctx, "d")
			log.Info(ctx, "i")
			log.Warn(ctx, "w")
			log.Error(ctx, "e")

			if got := len(decodeLines(t, &buf)); got != tt.want {
				t.Errorf("level %q wrote %d entries, want %d", tt.level, got, tt.want)
			}
		})
	}
}

func TestLogger_Redaction(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&buf, "info", "json")

	log.Info(context.Background(), "configured",
		Field{Key: "token", Value: "ghp_secret"},
		Field{Key: "webhook_url", Value: "https://hooks.slack.com/services/x"},
		Field{Key: "service", Value: "github"},
	)

	out := buf.String()
	if strings.Contains(out, "ghp_secret") || strings.Contains(out, "hooks.slack.com") {
		t.Errorf("sensitive value leaked: %s", out)
	}
	if !strings.Contains(out, "[REDACTED]") || !strings.Contains(out, "github") {
		t.Errorf("unexpected output: %s", out)
	}
}

func TestLogger_TraceIDs(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&buf, "info", "json")

	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()
	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	log.Info(ctx, "inside span")
	span.End()

	e := decodeLines(t, &buf)[0]
	if e["trace_id"] != span.SpanContext().TraceID().String() {
		t.Errorf("trace_id = %v, want %s", e["trace_id"], span.SpanContext().TraceID())
	}
}

func TestLogger_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	NewLogger(&buf, "info", "text").Warn(context.Background(), "slow probe", Err(errors.New("boom")))

	out := buf.String()
	if !strings.Contains(out, "level=WARN") || !strings.Contains(out, "error=boom") {
		t.Errorf("unexpected text output: %q", out)
	}
}

func TestNopLogger(t *testing.T) {
	log := NewNopLogger().With(Field{Key: "a", Value: 1})
	log.Error(context.Background(), "ignored")
}
