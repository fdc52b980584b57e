package internal

import (
	"context"
	"log/slog"

	slogmulti "github.com/samber/slog-multi"
)

// Fanout delivers every record to each handler that accepts its level.
// Handler errors are joined.
func Fanout(handlers ...slog.Handler) slog.Handler {
	if len(handlers) == 1 {
		return handlers[0]
	}
	return slogmulti.Fanout(handlers...)
}

// MinLevel gates next at a minimum level, on top of next's own level.
func MinLevel(next slog.Handler, level slog.Leveler) slog.Handler {
	return slogmulti.Pipe(slogmulti.NewEnabledInlineMiddleware(
		func(ctx context.Context, l slog.Level, enabled func(context.Context, slog.Level) bool) bool {
			return l >= level.Level() && enabled(ctx, l)
		},
	)).Handler(next)
}
