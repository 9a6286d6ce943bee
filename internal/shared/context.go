package shared

import "context"

type sessionContextKey struct{}

// ContextWithSession stores a resolved session in context. Only the access guard
// should call it, after the session has been validated.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// SessionFromContext extracts the resolved session from context.
func SessionFromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionContextKey{}).(*Session)
	return sess
}
