package logger

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func TestFromContext(t *testing.T) {
	t.Run("returns default logger when none stored", func(t *testing.T) {
		assert.Equal(t, slog.Default(), FromContext(context.Background()))
	})

	t.Run("returns stored logger", func(t *testing.T) {
		l := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
		ctx := WithLogger(context.Background(), l)
		assert.Equal(t, l, FromContext(ctx))
	})
}

func TestWith(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ctx := WithLogger(context.Background(), l)

	ctx = With(ctx, "delivery_id", "abc123", "repo", "nwb-extensions/ndx-foo-feedstock")
	Info(ctx, "handling event")

	out := buf.String()
	assert.Contains(t, out, "delivery_id=abc123")
	assert.Contains(t, out, "repo=nwb-extensions/ndx-foo-feedstock")
	assert.Contains(t, out, "handling event")
}

func TestError(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(slog.NewTextHandler(&buf, nil))
	ctx := WithLogger(context.Background(), l)

	Error(ctx, "push failed", errors.New("non-fast-forward"), "branch", "master")

	out := buf.String()
	assert.Contains(t, out, "push failed")
	assert.Contains(t, out, "non-fast-forward")
	assert.Contains(t, out, "branch=master")
}

func TestInitialize(t *testing.T) {
	previous := slog.Default()
	defer slog.SetDefault(previous)

	t.Run("warn level hides info when not verbose", func(t *testing.T) {
		var buf bytes.Buffer
		Initialize(Options{Output: &buf})

		slog.Info("hidden")
		slog.Warn("shown")

		assert.NotContains(t, buf.String(), "hidden")
		assert.Contains(t, buf.String(), "shown")
	})

	t.Run("verbose enables info", func(t *testing.T) {
		var buf bytes.Buffer
		Initialize(Options{Verbose: true, Output: &buf})

		slog.Info("visible")

		assert.Contains(t, buf.String(), "visible")
	})

	t.Run("pretty handler renders level badge", func(t *testing.T) {
		color.NoColor = true
		var buf bytes.Buffer
		Initialize(Options{Verbose: true, Pretty: true, Output: &buf})

		slog.Info("rerender finished", "count", 3)

		assert.Contains(t, buf.String(), "[INFO]")
		assert.Contains(t, buf.String(), "rerender finished")
		assert.Contains(t, buf.String(), "count=3")
	})
}
