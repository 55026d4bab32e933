package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var rec map[string]any
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			t.Fatalf("invalid json log line %q: %v", line, err)
		}
		out = append(out, rec)
	}
	return out
}

func TestLoggerInit(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() {
		if err := Sync(); err != nil {
			t.Errorf("failed to sync logger: %v", err)
		}
	}()

	if Get() == nil {
		t.Fatal("logger is nil after initialization")
	}
	if err := Init(WithFormat("yaml")); err == nil {
		t.Fatal("expected unknown format to fail")
	}
}

func TestLoggerJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	if err := Init(WithFormat(FormatJSON), WithOutput(&buf)); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	_ = SetLevelString("info")

	ctx := context.Background()
	Get().Info(ctx, "upload accepted", String("file", "clip.wav"), Int64("size", 42), Error(errors.New("boom")))

	recs := decodeLines(t, &buf)
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}
	rec := recs[0]
	if rec["msg"] != "upload accepted" {
		t.Errorf("unexpected msg: %v", rec["msg"])
	}
	if rec["file"] != "clip.wav" {
		t.Errorf("unexpected file field: %v", rec["file"])
	}
	if rec["error"] != "boom" {
		t.Errorf("error field should be rendered as text, got %v", rec["error"])
	}
	if src, _ := rec["source"].(string); !strings.Contains(src, "logger_test.go") {
		t.Errorf("source should point at the call site, got %q", src)
	}
}

func TestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	if err := Init(WithFormat(FormatJSON), WithOutput(&buf)); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() { _ = SetLevelString("info") }()

	ctx := context.Background()
	if err := SetLevelString("warn"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	Get().Info(ctx, "dropped")
	Get().Debug(ctx, "dropped")
	Get().Warn(ctx, "kept")
	if recs := decodeLines(t, &buf); len(recs) != 1 || recs[0]["msg"] != "kept" {
		t.Fatalf("expected only the warn record, got %v", recs)
	}

	if err := SetLevelString("verbose"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestLoggerNamedAndWith(t *testing.T) {
	var buf bytes.Buffer
	if err := Init(WithFormat(FormatJSON), WithOutput(&buf)); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	_ = SetLevelString("info")

	l := Named("predictor").With(String("session", "abc"))
	l.Info(context.Background(), "sent")

	recs := decodeLines(t, &buf)
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}
	if recs[0]["component"] != "predictor" || recs[0]["session"] != "abc" {
		t.Errorf("missing scoped fields: %v", recs[0])
	}
}

func TestNop(t *testing.T) {
	l := Nop()
	l.Error(context.Background(), "nothing happens")
	if Nop().Named("x") == nil {
		t.Fatal("named nop logger is nil")
	}
}
