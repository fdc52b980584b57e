package internal

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

type failingHandler struct{ slog.Handler }

func (failingHandler) Handle(context.Context, slog.Record) error { return errors.New("sink down") }

func TestFanout(t *testing.T) {
	info := &bytes.Buffer{}
	debug := &bytes.Buffer{}
	fan := Fanout(
		NewHandler(Options{Level: slog.LevelInfo, DisableTimestamp: true}, info),
		NewHandler(Options{Level: slog.LevelDebug, DisableTimestamp: true}, debug),
	)

	if !fan.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("Fanout should be enabled when any handler is")
	}

	h := fan.WithAttrs([]slog.Attr{slog.String("service", "shop")})
	_ = h.Handle(context.Background(), slog.NewRecord(time.Now(), slog.LevelDebug, "cache warmed", 0))

	if info.Len() != 0 {
		t.Errorf("info handler should skip debug records, got %q", info.String())
	}
	if !strings.Contains(debug.String(), `service="shop"`) {
		t.Errorf("debug handler output = %q", debug.String())
	}
}

func TestFanoutJoinsErrors(t *testing.T) {
	base := NewHandler(Options{Level: slog.LevelInfo}, &bytes.Buffer{})
	fan := Fanout(base, failingHandler{base})

	err := fan.Handle(context.Background(), slog.NewRecord(time.Now(), slog.LevelInfo, "x", 0))
	if err == nil || !strings.Contains(err.Error(), "sink down") {
		t.Errorf("Handle() error = %v, want sink down", err)
	}
}

func TestMinLevel(t *testing.T) {
	next := NewHandler(Options{Level: slog.LevelDebug}, &bytes.Buffer{})
	h := MinLevel(next, slog.LevelWarn)

	if h.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("MinLevel should reject records below its level")
	}
	if !h.Enabled(context.Background(), slog.LevelError) {
		t.Error("MinLevel should accept records at or above its level")
	}
}

func TestFanoutSingleHandler(t *testing.T) {
	h := NewHandler(Options{Level: slog.LevelInfo}, &bytes.Buffer{})
	if Fanout(h) != h {
		t.Error("a single handler should be returned as is")
	}
}

func TestMinLevelKeepsAttrs(t *testing.T) {
	buf := &bytes.Buffer{}
	h := MinLevel(NewHandler(Options{Level: slog.LevelDebug, DisableTimestamp: true}, buf), slog.LevelInfo).
		WithAttrs([]slog.Attr{slog.String("sink", "otlp")})

	_ = h.Handle(context.Background(), slog.NewRecord(time.Now(), slog.LevelWarn, "disk low", 0))
	if !strings.Contains(buf.String(), `sink="otlp"`) {
		t.Errorf("output = %q", buf.String())
	}
}
