package auth

import (
	"strings"

	"github.com/goliatone/go-errors"
)

// Sentinel errors for the account/session lifecycle. They are rich
// *errors.Error values so the HTTP layer can map category and code to a
// status without string matching.
var (
	// ErrIdentityNotFound is returned when no account matches the identifier.
	ErrIdentityNotFound = errors.New("identity not found", errors.CategoryNotFound).
				WithCode(errors.CodeNotFound).
				WithTextCode("IDENTITY_NOT_FOUND")

	// ErrEmailTaken is returned when registering an email that already exists.
	ErrEmailTaken = errors.New("email already registered", errors.CategoryConflict).
			WithCode(errors.CodeConflict).
			WithTextCode("EMAIL_TAKEN")

	// ErrActivationNotFound is returned when no salt matches the activation code.
	ErrActivationNotFound = errors.New("activation code not found", errors.CategoryNotFound).
				WithCode(errors.CodeNotFound).
				WithTextCode("ACTIVATION_NOT_FOUND")

	// ErrAlreadyActivated is returned when the account reached its terminal
	// activation state before this call.
	ErrAlreadyActivated = errors.New("account already activated", errors.CategoryConflict).
				WithCode(errors.CodeConflict).
				WithTextCode("ALREADY_ACTIVATED")

	// ErrAccountInactive is returned on login for accounts that never activated.
	ErrAccountInactive = errors.New("account is not activated", errors.CategoryAuthz).
				WithCode(errors.CodeForbidden).
				WithTextCode("ACCOUNT_INACTIVE")

	// ErrInvalidCredentials is returned when the password comparison fails.
	ErrInvalidCredentials = errors.New("invalid credentials", errors.CategoryAuth).
				WithCode(errors.CodeUnauthorized).
				WithTextCode("INVALID_CREDENTIALS")

	// ErrTokenExpired distinguishes expiry from other verification failures so
	// clients can trigger a refresh instead of a hard logout.
	ErrTokenExpired = errors.New("token is expired", errors.CategoryAuth).
			WithCode(errors.CodeUnauthorized).
			WithTextCode("TOKEN_EXPIRED")

	// ErrTokenMalformed is returned for tokens that fail signature or shape checks.
	ErrTokenMalformed = errors.New("token is malformed", errors.CategoryAuth).
				WithCode(errors.CodeUnauthorized).
				WithTextCode("TOKEN_MALFORMED")

	// ErrSessionRevoked is returned when a token's salt no longer has a live row.
	ErrSessionRevoked = errors.New("session has been revoked", errors.CategoryAuth).
				WithCode(errors.CodeUnauthorized).
				WithTextCode("SESSION_REVOKED")

	// ErrRefreshReplayed is returned when a refresh token is redeemed twice.
	// The delete row count is the authority: zero rows deleted means someone
	// else already rotated this token.
	ErrRefreshReplayed = errors.New("refresh token already redeemed", errors.CategoryAuth).
				WithCode(errors.CodeUnauthorized).
				WithTextCode("REFRESH_REPLAYED")

	// ErrResetNotFound is returned when no reset row matches the token.
	ErrResetNotFound = errors.New("password reset token not found", errors.CategoryNotFound).
				WithCode(errors.CodeNotFound).
				WithTextCode("RESET_NOT_FOUND")

	// ErrStoreUnavailable wraps store timeouts so callers can retry.
	ErrStoreUnavailable = errors.New("backing store unavailable", errors.CategoryOperation).
				WithTextCode("SERVICE_UNAVAILABLE")

	// ErrMismatchedHashAndPassword is the low-level bcrypt mismatch.
	ErrMismatchedHashAndPassword = errors.New("mismatched password and hash", errors.CategoryAuth).
					WithCode(errors.CodeUnauthorized)

	// ErrNoEmptyString rejects empty passwords before they reach bcrypt.
	ErrNoEmptyString = errors.New("value should not be an empty string", errors.CategoryBadInput).
				WithCode(errors.CodeBadRequest)
)

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	var rich *errors.Error
	if errors.As(err, &rich) && rich.TextCode == ErrTokenExpired.TextCode {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	var rich *errors.Error
	if errors.As(err, &rich) && rich.TextCode == ErrTokenMalformed.TextCode {
		return true
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}
