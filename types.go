package auth

import (
	"context"
	"fmt"
	"time"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Error(format string, args ...any)
}

// Config holds auth options
type Config interface {
	GetSigningKey() string
	GetIssuer() string
	GetAudience() []string
	GetAccessTokenTTL() time.Duration
	GetSessionDuration() time.Duration
	GetExtendedSessionDuration() time.Duration
	GetTokenLookup() string
	GetAuthScheme() string
	GetContextKey() string
}

// Authenticator is the session lifecycle engine consumed by the HTTP layer.
type Authenticator interface {
	Authenticate(ctx context.Context, email, password string, rememberMe bool) (*LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
	Logout(ctx context.Context, salt, refreshToken string) error
	VerifyAccess(ctx context.Context, accessToken string) (*AccessSession, error)
}

// PasswordAuthenticator authenticates passwords
type PasswordAuthenticator interface {
	HashPassword(password string) (string, error)
	ComparePasswordAndHash(password, hash string) error
}

// TokenPair bundles the signed tokens issued for one session, plus the
// access-token lifetime the client should plan around.
type TokenPair struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	Lifetime     time.Duration `json:"lifetime"`
}

// LoginResult is a token pair plus the public profile of the account.
type LoginResult struct {
	TokenPair
	Profile *Profile `json:"profile"`
}

// AccessSession is what the verification gate attaches to the request
// context: the identity claim and the salt binding it to a live session.
type AccessSession struct {
	UserID string `json:"user_id"`
	Salt   string `json:"salt"`
}

// GetUserID returns the authenticated user id.
func (s *AccessSession) GetUserID() string {
	return s.UserID
}

// GetSalt returns the salt binding the token to its session row.
func (s *AccessSession) GetSalt() string {
	return s.Salt
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] AUTH "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] AUTH "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] AUTH "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
