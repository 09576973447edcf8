package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// splitHandler hands records at or above cut to high and everything else to
// low. Operators tail stdout for traffic and get failures on stderr.
type splitHandler struct {
	cut       slog.Level
	low, high slog.Handler
}

func (h splitHandler) Enabled(ctx context.Context, level slog.Level) bool {
	if level >= h.cut {
		return h.high.Enabled(ctx, level)
	}
	return h.low.Enabled(ctx, level)
}

func (h splitHandler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= h.cut {
		return h.high.Handle(ctx, r)
	}
	return h.low.Handle(ctx, r)
}

func (h splitHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	h.low, h.high = h.low.WithAttrs(attrs), h.high.WithAttrs(attrs)
	return h
}

func (h splitHandler) WithGroup(name string) slog.Handler {
	h.low, h.high = h.low.WithGroup(name), h.high.WithGroup(name)
	return h
}

func newLogger(out, errOut io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	return slog.New(splitHandler{
		cut:  slog.LevelError,
		low:  slog.NewTextHandler(out, opts),
		high: slog.NewTextHandler(errOut, opts),
	})
}

// setupLogger replaces slog's default. A non-empty logPath gets a copy of
// both streams; call the returned func to close it.
func setupLogger(logPath string) (func(), error) {
	if logPath == "" {
		slog.SetDefault(newLogger(os.Stdout, os.Stderr))
		return func() {}, nil
	}

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log %s: %w", logPath, err)
	}
	slog.SetDefault(newLogger(io.MultiWriter(os.Stdout, file), io.MultiWriter(os.Stderr, file)))
	return func() { file.Close() }, nil
}
