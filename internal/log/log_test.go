package log

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestInfoProducesLogfmtWithTimestamp(t *testing.T) {
	buf := new(bytes.Buffer)
	original := Logger()
	ReplaceLogger(slog.New(newHandler(buf)))
	t.Cleanup(func() {
		ReplaceLogger(original)
	})

	Info(context.Background(), "hello", "user", "test")

	line := strings.TrimSpace(buf.String())
	if line == "" {
		t.Fatalf("expected log output, got empty string")
	}
	if !strings.Contains(line, "ts=") {
		t.Fatalf("expected timestamp field in log line, got %q", line)
	}
	if !strings.Contains(line, "level=info") {
		t.Fatalf("expected level field in log line, got %q", line)
	}
	if !strings.Contains(line, "msg=hello") {
		t.Fatalf("expected message field in log line, got %q", line)
	}
	if !strings.Contains(line, "user=test") {
		t.Fatalf("expected structured field in log line, got %q", line)
	}
}

func TestRequestIDIsAttached(t *testing.T) {
	buf := new(bytes.Buffer)
	original := Logger()
	ReplaceLogger(slog.New(newHandler(buf)).With("component", "test"))
	t.Cleanup(func() {
		ReplaceLogger(original)
	})

	ctx := WithRequestID(context.Background(), "req-42")
	Warn(ctx, "slow query")

	line := strings.TrimSpace(buf.String())
	for _, want := range []string{"level=warn", "request_id=req-42", "component=test"} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %q in log line, got %q", want, line)
		}
	}
	if RequestID(ctx) != "req-42" {
		t.Fatalf("RequestID = %q", RequestID(ctx))
	}
	if RequestID(context.Background()) != "" {
		t.Fatal("expected empty request id")
	}
}

func TestSetLevel(t *testing.T) {
	t.Cleanup(func() {
		_ = SetLevel("info")
	})

	for _, level := range []string{"debug", "INFO", "warn", "error", ""} {
		if err := SetLevel(level); err != nil {
			t.Fatalf("SetLevel(%q): %v", level, err)
		}
	}
	if err := SetLevel("verbose"); err == nil {
		t.Fatal("expected error for unknown level")
	}

	buf := new(bytes.Buffer)
	original := Logger()
	ReplaceLogger(slog.New(newHandler(buf)))
	t.Cleanup(func() {
		ReplaceLogger(original)
	})

	if err := SetLevel("warn"); err != nil {
		t.Fatalf("SetLevel: %v", err)
	}
	Info(context.Background(), "hidden")
	if buf.Len() != 0 {
		t.Fatalf("info must be filtered at warn level, got %q", buf.String())
	}
}
