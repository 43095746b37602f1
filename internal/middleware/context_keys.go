package middleware

import (
	"context"
	"log/slog"

	"github.com/gin-gonic/gin"
)

type contextKey string

const (
	loggerCtxKey    = contextKey("logger")
	principalCtxKey = contextKey("principal")
)

// Principal is the authenticated caller.
type Principal struct {
	UserID string
	Role   string
}

// WithLogger stores a logger in the standard context. Scheduler sweeps and
// queue workers use it to hand job-scoped loggers to services.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerCtxKey, logger)
}

// GetLoggerFromCtx retrieves the logger from the standard context, falling back to slog.Default.
func GetLoggerFromCtx(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerCtxKey).(*slog.Logger); ok && logger != nil {
		return logger
	}
	return slog.Default()
}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalCtxKey, p)
}

func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalCtxKey).(Principal)
	return p, ok && p.UserID != ""
}

// GetUserIDFromContext returns the acting user's ID for audit fields.
func GetUserIDFromContext(c *gin.Context) (string, bool) {
	p, ok := PrincipalFrom(c.Request.Context())
	return p.UserID, ok
}
