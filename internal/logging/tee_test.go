package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

type failingHandler struct{ err error }

func (failingHandler) Enabled(context.Context, slog.Level) bool { return true }

func (f failingHandler) Handle(context.Context, slog.Record) error { return f.err }

func (f failingHandler) WithAttrs([]slog.Attr) slog.Handler { return f }

func (f failingHandler) WithGroup(string) slog.Handler { return f }

func TestNewTeeHandlerFlattens(t *testing.T) {
	a := slog.NewTextHandler(&bytes.Buffer{}, nil)
	b := slog.NewTextHandler(&bytes.Buffer{}, nil)

	if _, ok := newTeeHandler().(NoopHandler); !ok {
		t.Fatal("expected noop handler for no sinks")
	}
	if h := newTeeHandler(nil, a, NoopHandler{}); h != slog.Handler(a) {
		t.Fatalf("expected single sink, got %T", h)
	}
	nested := newTeeHandler(newTeeHandler(a, b), a)
	tee, ok := nested.(teeHandler)
	if !ok || len(tee) != 3 {
		t.Fatalf("expected flat tee of 3, got %#v", nested)
	}
}

func TestTeeHandlerKeepsWritingPastFailingSink(t *testing.T) {
	var buf bytes.Buffer
	diskFull := errors.New("disk full")
	logger := slog.New(newTeeHandler(failingHandler{err: diskFull}, slog.NewTextHandler(&buf, nil)))

	err := logger.Handler().Handle(context.Background(), slog.NewRecord(time.Time{}, slog.LevelInfo, "kept", 0))
	if !errors.Is(err, diskFull) {
		t.Fatalf("Handle error = %v, want disk full", err)
	}
	if !strings.Contains(buf.String(), "msg=kept") {
		t.Fatalf("second sink missed record: %q", buf.String())
	}
}

func TestTeeLoggerRespectsSinkLevels(t *testing.T) {
	var console, file bytes.Buffer
	base := slog.New(slog.NewTextHandler(&console, &slog.HandlerOptions{Level: slog.LevelWarn}))
	logger := TeeLogger(base, slog.NewJSONHandler(&file, &slog.HandlerOptions{Level: slog.LevelDebug}))

	logger.With(String(FieldComponent, "scorer")).Debug("detail")
	logger.Warn("stall")

	if strings.Contains(console.String(), "detail") || !strings.Contains(console.String(), "stall") {
		t.Fatalf("unexpected console output %q", console.String())
	}
	if !strings.Contains(file.String(), `"component":"scorer"`) || !strings.Contains(file.String(), "stall") {
		t.Fatalf("unexpected file output %q", file.String())
	}
	if !logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("tee should be enabled when any sink is")
	}
}

func TestTeeLoggerNilBase(t *testing.T) {
	var buf bytes.Buffer
	TeeLogger(nil, slog.NewTextHandler(&buf, nil)).Info("only sink")
	if !strings.Contains(buf.String(), "only sink") {
		t.Fatalf("missing output %q", buf.String())
	}
}
