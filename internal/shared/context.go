package shared

import "context"

type sessionContextKey struct{}

// ContextWithSession stores the dashboard session in the request context.
// The session middleware calls this once per request; everything downstream
// reads through SessionFromContext.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// SessionFromContext returns the session placed by the middleware, or nil on
// requests that never passed through it.
func SessionFromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionContextKey{}).(*Session)
	return sess
}
