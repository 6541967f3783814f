package log

import (
	"context"
	"log/slog"
)

// NewDualHandler wraps a primary handler and a secondary handler that only
// ever receives error level records. When errorsOnlySecondary is set, error
// records skip the primary handler; this keeps a single rendering of each
// error when both handlers write to the same terminal.
func NewDualHandler(primary slog.Handler, secondary slog.Handler, errorsOnlySecondary bool) slog.Handler {
	return &dualHandler{
		primary:             primary,
		secondary:           secondary,
		errorsOnlySecondary: errorsOnlySecondary,
	}
}

type dualHandler struct {
	primary             slog.Handler
	secondary           slog.Handler
	errorsOnlySecondary bool
}

func (h *dualHandler) Enabled(ctx context.Context, level slog.Level) bool {
	if h.primaryAccepts(ctx, level) {
		return true
	}
	return h.secondaryAccepts(ctx, level)
}

func (h *dualHandler) Handle(ctx context.Context, record slog.Record) error {
	if h.primaryAccepts(ctx, record.Level) {
		if err := h.primary.Handle(ctx, record); err != nil {
			return err
		}
	}

	if h.secondaryAccepts(ctx, record.Level) {
		if err := h.secondary.Handle(ctx, record.Clone()); err != nil {
			return err
		}
	}

	return nil
}

func (h *dualHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	if h.primary != nil {
		clone.primary = h.primary.WithAttrs(attrs)
	}
	if h.secondary != nil {
		clone.secondary = h.secondary.WithAttrs(attrs)
	}
	return &clone
}

func (h *dualHandler) WithGroup(name string) slog.Handler {
	clone := *h
	if h.primary != nil {
		clone.primary = h.primary.WithGroup(name)
	}
	if h.secondary != nil {
		clone.secondary = h.secondary.WithGroup(name)
	}
	return &clone
}

func (h *dualHandler) primaryAccepts(ctx context.Context, level slog.Level) bool {
	if h.primary == nil {
		return false
	}
	if h.errorsOnlySecondary && h.secondary != nil && level >= slog.LevelError {
		return false
	}
	return h.primary.Enabled(ctx, level)
}

func (h *dualHandler) secondaryAccepts(ctx context.Context, level slog.Level) bool {
	return h.secondary != nil && level >= slog.LevelError && h.secondary.Enabled(ctx, level)
}
