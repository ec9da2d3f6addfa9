package logging

import (
	"context"
	"log/slog"
)

// floorHandler drops records below min. The wrapped handler must already be
// at least as verbose as min for records to come through.
type floorHandler struct {
	inner slog.Handler
	min   slog.Level
}

func (h floorHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.min && h.inner.Enabled(ctx, level)
}

func (h floorHandler) Handle(ctx context.Context, record slog.Record) error {
	if record.Level < h.min {
		return nil
	}
	return h.inner.Handle(ctx, record)
}

func (h floorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return floorHandler{inner: h.inner.WithAttrs(attrs), min: h.min}
}

func (h floorHandler) WithGroup(name string) slog.Handler {
	return floorHandler{inner: h.inner.WithGroup(name), min: h.min}
}

// WithLevelOverride returns a logger that only emits records at or above
// level. Applying it again replaces the previous floor instead of stacking.
func WithLevelOverride(logger *slog.Logger, level slog.Level) *slog.Logger {
	if logger == nil {
		return NewNop()
	}
	inner := logger.Handler()
	if existing, ok := inner.(floorHandler); ok {
		inner = existing.inner
	}
	return slog.New(floorHandler{inner: inner, min: level})
}
