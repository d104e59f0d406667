package auth

import (
	"context"

	"github.com/goliatone/go-router"
	"github.com/google/uuid"
)

var sessionCtxKey = &contextKey{"session"}

type contextKey struct {
	name string
}

// WithSessionContext sets the verified AccessSession in the given context
func WithSessionContext(r context.Context, session *AccessSession) context.Context {
	return context.WithValue(r, sessionCtxKey, session)
}

// SessionFromContext finds the verified session from the context.
func SessionFromContext(ctx context.Context) (*AccessSession, bool) {
	raw, ok := ctx.Value(sessionCtxKey).(*AccessSession)
	return raw, ok
}

// SessionFromRouterContext extracts the verified session stored by the
// protected-route middleware.
func SessionFromRouterContext(ctx router.Context, key string) (*AccessSession, bool) {
	if key == "" {
		key = "session"
	}
	raw := ctx.Locals(key)
	if raw == nil {
		return nil, false
	}
	session, ok := raw.(*AccessSession)
	return session, ok
}

// UserIDFromContext is a convenience accessor for handlers that only need
// the authenticated user id.
func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	session, ok := SessionFromContext(ctx)
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(session.UserID)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
