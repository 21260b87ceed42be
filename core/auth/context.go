package auth

import (
	"context"

	"github.com/dmitrymomot/authgate/core/session"
)

type sessionContextKey struct{}

type principalContextKey struct{}

// SessionFromContext retrieves the session injected by the authentication
// middleware for the current request.
func SessionFromContext(ctx context.Context) (*session.Session, bool) {
	sess, ok := ctx.Value(sessionContextKey{}).(*session.Session)
	return sess, ok
}

// PrincipalFromContext retrieves the acting principal injected by the
// authentication middleware for the current request.
func PrincipalFromContext(ctx context.Context) (session.Principal, bool) {
	p, ok := ctx.Value(principalContextKey{}).(session.Principal)
	return p, ok
}

func withSession(ctx context.Context, sess *session.Session, p session.Principal) context.Context {
	ctx = context.WithValue(ctx, sessionContextKey{}, sess)
	return context.WithValue(ctx, principalContextKey{}, p)
}
