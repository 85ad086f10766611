package hrmAuth

import "context"

type requestIDContextKey struct{}

// WithRequestID makes pipeline calls under ctx send id as X-Request-ID instead of a
// generated one. Used to correlate a portal request with the backend calls it causes.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDContextKey{}, id)
}

// RequestIDFromContext returns the id set by [WithRequestID].
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, _ := ctx.Value(requestIDContextKey{}).(string)
	return id, id != ""
}
