// Package ctxutil provides shared context key accessors for request-scoped
// values (request ID, project ID) that cross package boundaries between
// server middleware and downstream components without import cycles.
package ctxutil

import "context"

type contextKey string

const (
	keyRequestID contextKey = "request_id"
	keyProjectID contextKey = "project_id"
)

// WithRequestID returns a new context carrying the given request ID.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, keyRequestID, id)
}

// RequestIDFromContext extracts the request ID from the context, if any.
func RequestIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(keyRequestID).(string); ok {
		return v
	}
	return ""
}

// WithProjectID returns a new context carrying the given project ID.
func WithProjectID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, keyProjectID, id)
}

// ProjectIDFromContext extracts the project ID from the context, if any.
func ProjectIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(keyProjectID).(string); ok {
		return v
	}
	return ""
}
