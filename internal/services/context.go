package services

import "context"

type contextKey string

const (
	itemKey      contextKey = "item"
	requestIDKey contextKey = "request_id"
	surfaceKey   contextKey = "surface"
)

// WithItem annotates context with the identity of the item being analyzed.
func WithItem(ctx context.Context, identity string) context.Context {
	if identity == "" {
		return ctx
	}
	return context.WithValue(ctx, itemKey, identity)
}

// ItemFromContext returns the item identity if present.
func ItemFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(itemKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithSurface annotates context with the entry point that triggered the run
// (cli, batch, mcp, http).
func WithSurface(ctx context.Context, surface string) context.Context {
	if surface == "" {
		return ctx
	}
	return context.WithValue(ctx, surfaceKey, surface)
}

// SurfaceFromContext returns the surface name if present.
func SurfaceFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(surfaceKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
