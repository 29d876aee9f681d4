package observability

import (
	"context"
	"io"
	"log/slog"

	"github.com/sqlask/sqlask/internal/config"
)

type ctxKey string

const sessionIDKey ctxKey = "session_id"

func NewLogger(cfg config.Config, writer io.Writer) *slog.Logger {
	if writer == nil {
		writer = io.Discard
	}
	var handler slog.Handler
	if cfg.Observability.LogJSON {
		handler = slog.NewJSONHandler(writer, &slog.HandlerOptions{Level: cfg.Observability.LogLevel})
	} else {
		handler = slog.NewTextHandler(writer, &slog.HandlerOptions{Level: cfg.Observability.LogLevel})
	}
	return slog.New(handler).With(
		slog.String("service", cfg.Service.Name),
		slog.String("profile", string(cfg.Profile)),
	)
}

// ContextWithSessionID tags ctx with the id of the session record being
// processed so log lines of one question can be correlated.
func ContextWithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionIDKey, sessionID)
}

func SessionIDFromContext(ctx context.Context) string {
	value, ok := ctx.Value(sessionIDKey).(string)
	if !ok {
		return ""
	}
	return value
}

// LoggerFromContext returns logger annotated with the session id carried by
// ctx, if any.
func LoggerFromContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if sessionID := SessionIDFromContext(ctx); sessionID != "" {
		return logger.With(slog.String("session_id", sessionID))
	}
	return logger
}
