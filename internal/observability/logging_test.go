package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

func TestContextValues(t *testing.T) {
	ctx := context.Background()
	ctx = WithRunID(ctx, "run-1")
	ctx = WithOperation(ctx, "pull")
	ctx = WithRepository(ctx, "/srv/nap")
	ctx = WithTrigger(ctx, "schedule")

	lc := GetContext(ctx)
	if lc.RunID != "run-1" || lc.Operation != "pull" || lc.Repository != "/srv/nap" || lc.Trigger != "schedule" {
		t.Fatalf("unexpected context: %+v", lc)
	}
}

func TestOverwriteContextValue(t *testing.T) {
	ctx := WithOperation(context.Background(), "pull")
	child := WithOperation(ctx, "checkout")

	if got := GetContext(child).Operation; got != "checkout" {
		t.Errorf("expected checkout, got %s", got)
	}
	if got := GetContext(ctx).Operation; got != "pull" {
		t.Errorf("parent context must keep pull, got %s", got)
	}
}

func TestEmptyContext(t *testing.T) {
	lc := GetContext(context.Background())
	if lc != (LogContext{}) {
		t.Errorf("expected empty context, got %+v", lc)
	}
}

func TestInfoContextAddsAttributes(t *testing.T) {
	buf := captureLogs(t)

	ctx := WithRunID(context.Background(), "run-42")
	ctx = WithOperation(ctx, "push")
	InfoContext(ctx, "pushed", slog.String("extra", "value"))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if entry["run_id"] != "run-42" || entry["operation"] != "push" || entry["extra"] != "value" {
		t.Fatalf("missing attributes: %v", entry)
	}
	if _, ok := entry["repository"]; ok {
		t.Fatalf("unset fields must not be logged: %v", entry)
	}
}

func TestLevels(t *testing.T) {
	buf := captureLogs(t)
	ctx := WithTrigger(context.Background(), "cli")

	DebugContext(ctx, "debug message")
	WarnContext(ctx, "warning message")
	ErrorContext(ctx, "error message")

	out := buf.String()
	for _, want := range []string{`"level":"DEBUG"`, `"level":"WARN"`, `"level":"ERROR"`, `"trigger":"cli"`} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %s in output:\n%s", want, out)
		}
	}
}
