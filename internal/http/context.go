package http

import (
	"context"
	"log/slog"

	"github.com/GregHandsley/powerbase-kiosk-sub002/internal/logging"
)

type contextKey string

const zoneIDContextKey contextKey = "zone_id"

// ContextWithZoneID injects the zone identifier resolved from the request path.
func ContextWithZoneID(ctx context.Context, zoneID string) context.Context {
	return context.WithValue(ctx, zoneIDContextKey, zoneID)
}

// ZoneIDFromContext extracts a zone identifier previously associated with the context.
func ZoneIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(zoneIDContextKey).(string)
	return id, ok
}

// ContextWithLogger attaches a request scoped logger to the context.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return logging.ContextWithLogger(ctx, logger)
}

// LoggerFromContext extracts a logger previously attached to the context.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx)
}
