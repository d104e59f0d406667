package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// TokenService signs and verifies the compact tokens issued by the engine.
// It is a stateless function of the signing key; salt liveness is checked by
// the caller against the Salts repository.
type TokenService interface {
	SignAccess(userID uuid.UUID, salt string) (string, error)
	SignRefresh(refreshID uuid.UUID, duration time.Duration, salt string) (string, error)
	ValidateAccess(tokenString string) (*AccessClaims, error)
	ValidateRefresh(tokenString string) (*RefreshClaims, error)
	DecodeRefresh(tokenString string) (*RefreshClaims, error)
	AccessTTL() time.Duration
}

// TokenServiceImpl implements the TokenService interface
type TokenServiceImpl struct {
	signingKey []byte
	accessTTL  time.Duration
	issuer     string
	audience   jwt.ClaimStrings
	logger     Logger
}

// NewTokenService creates a new TokenService instance
func NewTokenService(signingKey []byte, accessTTL time.Duration, issuer string, audience jwt.ClaimStrings, logger Logger) TokenService {
	if logger == nil {
		logger = defLogger{}
	}
	return &TokenServiceImpl{
		signingKey: signingKey,
		accessTTL:  accessTTL,
		issuer:     issuer,
		audience:   audience,
		logger:     logger,
	}
}

// AccessTTL returns the fixed access-token lifetime. It is independent of
// the refresh duration so short-lived access tokens can be refreshed often
// while remember-me only stretches the refresh window.
func (ts *TokenServiceImpl) AccessTTL() time.Duration {
	return ts.accessTTL
}

// SignAccess creates an access token bound to the user and session salt.
func (ts *TokenServiceImpl) SignAccess(userID uuid.UUID, salt string) (string, error) {
	now := time.Now()
	claims := &AccessClaims{
		RegisteredClaims: ts.registeredClaims(userID.String(), now, ts.accessTTL),
		UID:              userID.String(),
		Salt:             salt,
	}
	return ts.signClaims(claims)
}

// SignRefresh creates a refresh token embedding the refresh row id, the
// session duration, and the session salt. The signed TTL equals the duration.
func (ts *TokenServiceImpl) SignRefresh(refreshID uuid.UUID, duration time.Duration, salt string) (string, error) {
	now := time.Now()
	claims := &RefreshClaims{
		RegisteredClaims: ts.registeredClaims(refreshID.String(), now, duration),
		RefreshID:        refreshID.String(),
		DurationHours:    int(duration / time.Hour),
		Salt:             salt,
	}
	return ts.signClaims(claims)
}

// ValidateAccess parses and validates an access token string.
func (ts *TokenServiceImpl) ValidateAccess(tokenString string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := ts.parseInto(tokenString, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// ValidateRefresh parses and validates a refresh token string.
func (ts *TokenServiceImpl) ValidateRefresh(tokenString string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := ts.parseInto(tokenString, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// DecodeRefresh extracts refresh claims without verifying the signature.
// Trust boundary: callers use this only for tokens that already passed an
// access-token check upstream, e.g. reading the row id during logout.
func (ts *TokenServiceImpl) DecodeRefresh(tokenString string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(tokenString, claims); err != nil {
		return nil, errors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).
			WithTextCode(ErrTokenMalformed.TextCode)
	}
	return claims, nil
}

func (ts *TokenServiceImpl) registeredClaims(subject string, now time.Time, ttl time.Duration) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Issuer:    ts.issuer,
		Subject:   subject,
		Audience:  ts.audience,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
}

func (ts *TokenServiceImpl) signClaims(claims jwt.Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedString, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign JWT")
	}

	return signedString, nil
}

func (ts *TokenServiceImpl) parseInto(tokenString string, claims jwt.Claims) error {
	parserOptions := make([]jwt.ParserOption, 0, 2)
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}
	if len(ts.audience) > 0 {
		parserOptions = append(parserOptions, jwt.WithAudience(ts.audience...))
	}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("TokenService validate encountered unexpected signing method", "alg", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signingKey, nil
	}, parserOptions...)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrTokenExpired
		}
		return errors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).
			WithTextCode(ErrTokenMalformed.TextCode)
	}

	if !token.Valid {
		ts.logger.Error("TokenService validate could not decode or validate claims")
		return ErrTokenMalformed
	}

	return nil
}
