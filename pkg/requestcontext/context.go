// Package requestcontext provides HTTP-independent accessors for
// request-scoped values.
//
// Middleware sets these values; services read them without importing
// net/http. Tests inject values directly:
//
//	ctx = requestcontext.WithRequestID(ctx, "req-1")
//	ctx = requestcontext.WithClientIP(ctx, "203.0.113.9")
package requestcontext

import "context"

type (
	requestIDKey struct{}
	clientIPKey  struct{}
	userAgentKey struct{}
)

// RequestID retrieves the correlation ID set by the RequestID middleware.
func RequestID(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey{}).(string); ok {
		return v
	}
	return ""
}

// WithRequestID injects a correlation ID into the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// ClientIP retrieves the caller's remote address.
func ClientIP(ctx context.Context) string {
	if v, ok := ctx.Value(clientIPKey{}).(string); ok {
		return v
	}
	return ""
}

// WithClientIP injects the caller's remote address into the context.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey{}, ip)
}

// UserAgent retrieves the raw User-Agent header captured at the edge.
func UserAgent(ctx context.Context) string {
	if v, ok := ctx.Value(userAgentKey{}).(string); ok {
		return v
	}
	return ""
}

// WithUserAgent injects the raw User-Agent header into the context.
func WithUserAgent(ctx context.Context, ua string) context.Context {
	return context.WithValue(ctx, userAgentKey{}, ua)
}
