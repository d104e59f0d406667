package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AuthClaims is the claim surface shared by access and refresh tokens: every
// signed token carries a subject and the salt that keeps it alive.
type AuthClaims interface {
	Subject() string
	SaltValue() string
	Expires() time.Time
	IssuedAt() time.Time
}

// AccessClaims is the claim set of a short-lived access token: the user id
// plus the session salt.
type AccessClaims struct {
	jwt.RegisteredClaims
	UID  string `json:"uid"`
	Salt string `json:"salt"`
}

var _ AuthClaims = (*AccessClaims)(nil)

// Subject returns the subject claim
func (c *AccessClaims) Subject() string {
	return c.RegisteredClaims.Subject
}

// UserID returns the user ID carried by the token.
func (c *AccessClaims) UserID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.Subject()
}

// UserUUID parses the user ID into a uuid.
func (c *AccessClaims) UserUUID() (uuid.UUID, error) {
	return uuid.Parse(c.UserID())
}

// SaltValue returns the session salt embedded in the token.
func (c *AccessClaims) SaltValue() string {
	return c.Salt
}

// Expires returns the expiration time
func (c *AccessClaims) Expires() time.Time {
	if c.ExpiresAt != nil {
		return c.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedAt returns the issued at time
func (c *AccessClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}

// RefreshClaims is the claim set of a refresh token: the refresh row id, the
// session duration in hours, and the session salt. The expiry lives on the
// database row; the signed expiry only mirrors it.
type RefreshClaims struct {
	jwt.RegisteredClaims
	RefreshID     string `json:"rid"`
	DurationHours int    `json:"dur"`
	Salt          string `json:"salt"`
}

var _ AuthClaims = (*RefreshClaims)(nil)

// Subject returns the subject claim
func (c *RefreshClaims) Subject() string {
	return c.RegisteredClaims.Subject
}

// RefreshUUID parses the refresh row id into a uuid.
func (c *RefreshClaims) RefreshUUID() (uuid.UUID, error) {
	return uuid.Parse(c.RefreshID)
}

// Duration returns the session duration the token was issued with.
func (c *RefreshClaims) Duration() time.Duration {
	return time.Duration(c.DurationHours) * time.Hour
}

// SaltValue returns the session salt embedded in the token.
func (c *RefreshClaims) SaltValue() string {
	return c.Salt
}

// Expires returns the expiration time
func (c *RefreshClaims) Expires() time.Time {
	if c.ExpiresAt != nil {
		return c.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedAt returns the issued at time
func (c *RefreshClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}
