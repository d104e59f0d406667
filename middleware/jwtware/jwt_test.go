package jwtware

import (
	"context"
	"errors"
	"testing"

	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSession struct {
	uid  string
	salt string
}

func (s stubSession) GetUserID() string { return s.uid }
func (s stubSession) GetSalt() string   { return s.salt }

type stubVerifier struct {
	session Session
	err     error
	gotRaw  string
}

func (v *stubVerifier) VerifyAccess(ctx context.Context, accessToken string) (Session, error) {
	v.gotRaw = accessToken
	if v.err != nil {
		return nil, v.err
	}
	return v.session, nil
}

// routerContext lets fakeCtx embed router.Context without the embedded
// field name colliding with the Context() method below.
type routerContext = router.Context

// fakeCtx implements the handful of router.Context methods the middleware
// touches; anything else panics through the embedded nil interface.
type fakeCtx struct {
	routerContext
	headers    map[string]string
	locals     map[any]any
	stdCtx     context.Context
	status     int
	body       string
	nextCalled bool
}

func (c *fakeCtx) GetString(key string, defaultValue string) string {
	if v, ok := c.headers[key]; ok {
		return v
	}
	return defaultValue
}

func (c *fakeCtx) Context() context.Context {
	if c.stdCtx != nil {
		return c.stdCtx
	}
	return context.Background()
}

func (c *fakeCtx) SetContext(ctx context.Context) { c.stdCtx = ctx }

func (c *fakeCtx) Locals(key any, value ...any) any {
	if c.locals == nil {
		c.locals = map[any]any{}
	}
	if len(value) > 0 {
		c.locals[key] = value[0]
		return nil
	}
	return c.locals[key]
}

func (c *fakeCtx) Next() error {
	c.nextCalled = true
	return nil
}

func (c *fakeCtx) Status(code int) router.Context {
	c.status = code
	return c
}

func (c *fakeCtx) SendString(s string) error {
	c.body = s
	return nil
}

func TestGetDefaultConfig(t *testing.T) {
	t.Run("Applies defaults", func(t *testing.T) {
		cfg := GetDefaultConfig(Config{Verifier: &stubVerifier{}})

		assert.Equal(t, "session", cfg.ContextKey)
		assert.Equal(t, "header:"+router.HeaderAuthorization, cfg.TokenLookup)
		assert.Equal(t, "Bearer", cfg.AuthScheme)
		assert.NotNil(t, cfg.ErrorHandler)
	})

	t.Run("Panics without a verifier", func(t *testing.T) {
		assert.Panics(t, func() {
			GetDefaultConfig(Config{})
		})
	})
}

func TestGetExtractors(t *testing.T) {
	extractors := GetExtractors("header:Authorization, cookie:jwt, query:auth_token, param:token")
	assert.Len(t, extractors, 4)

	extractors = GetExtractors("body:nope")
	assert.Len(t, extractors, 0)
}

func TestMiddlewareAttachesSession(t *testing.T) {
	session := stubSession{uid: "user-1", salt: "salt-1"}
	verifier := &stubVerifier{session: session}

	type ctxKey struct{}
	enriched := false

	mw := New(Config{
		Verifier: verifier,
		ContextEnricher: func(ctx context.Context, s Session) context.Context {
			enriched = true
			return context.WithValue(ctx, ctxKey{}, s)
		},
	})

	ctx := &fakeCtx{headers: map[string]string{
		router.HeaderAuthorization: "Bearer raw-token",
	}}

	handlerCalled := false
	handler := func(c router.Context) error {
		handlerCalled = true
		return nil
	}

	err := mw(handler)(ctx)
	require.NoError(t, err)

	assert.Equal(t, "raw-token", verifier.gotRaw)
	assert.Equal(t, session, ctx.Locals("session"))
	assert.True(t, enriched)
	assert.True(t, handlerCalled)
	require.NotNil(t, ctx.stdCtx)
	assert.Equal(t, Session(session), ctx.stdCtx.Value(ctxKey{}))
}

func TestMiddlewareRejectsMissingToken(t *testing.T) {
	mw := New(Config{Verifier: &stubVerifier{}})
	ctx := &fakeCtx{}

	err := mw(nil)(ctx)
	require.NoError(t, err)

	assert.Equal(t, router.StatusBadRequest, ctx.status)
	assert.Equal(t, ErrJWTMissingOrMalformed.Error(), ctx.body)
	assert.False(t, ctx.nextCalled)
}

func TestMiddlewareRejectsBadToken(t *testing.T) {
	mw := New(Config{Verifier: &stubVerifier{err: errors.New("session has been revoked")}})
	ctx := &fakeCtx{headers: map[string]string{
		router.HeaderAuthorization: "Bearer stale-token",
	}}

	err := mw(nil)(ctx)
	require.NoError(t, err)

	assert.Equal(t, router.StatusUnauthorized, ctx.status)
	assert.False(t, ctx.nextCalled)
}

func TestMiddlewareFilterSkipsVerification(t *testing.T) {
	verifier := &stubVerifier{}
	mw := New(Config{
		Verifier: verifier,
		Filter:   func(router.Context) bool { return true },
	})

	ctx := &fakeCtx{}
	err := mw(nil)(ctx)
	require.NoError(t, err)

	assert.True(t, ctx.nextCalled)
	assert.Empty(t, verifier.gotRaw)
}
