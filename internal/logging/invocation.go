package logging

import (
	"context"
	"log/slog"
)

// FieldInvocationID tags every record emitted by one CLI process.
const FieldInvocationID = "invocation_id"

type invocationHandler struct {
	base slog.Handler
	id   string
}

// WithInvocationID stamps id on every record logged through the returned logger,
// including records from loggers derived from it with With.
func WithInvocationID(logger *slog.Logger, id string) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	if id == "" {
		return logger
	}
	return slog.New(&invocationHandler{base: logger.Handler(), id: id})
}

func (h *invocationHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.base.Enabled(ctx, level)
}

func (h *invocationHandler) Handle(ctx context.Context, record slog.Record) error {
	record.AddAttrs(slog.String(FieldInvocationID, h.id))
	return h.base.Handle(ctx, record)
}

func (h *invocationHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &invocationHandler{base: h.base.WithAttrs(attrs), id: h.id}
}

func (h *invocationHandler) WithGroup(name string) slog.Handler {
	return &invocationHandler{base: h.base.WithGroup(name), id: h.id}
}
