package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Auther implements the session lifecycle: credential verification, salted
// token issuance, refresh rotation, and revocation. It raises typed errors
// and performs no local recovery; every failure surfaces to the caller.
type Auther struct {
	repo                    RepositoryManager
	tokenService            TokenService
	signingKey              []byte
	accessTokenTTL          time.Duration
	issuer                  string
	audience                []string
	sessionDuration         time.Duration
	extendedSessionDuration time.Duration
	logger                  Logger
}

var _ Authenticator = (*Auther)(nil)

// NewAuthenticator returns a new Authenticator
func NewAuthenticator(repo RepositoryManager, opts Config) *Auther {
	tokenService := NewTokenService(
		[]byte(opts.GetSigningKey()),
		opts.GetAccessTokenTTL(),
		opts.GetIssuer(),
		opts.GetAudience(),
		defLogger{},
	)

	return &Auther{
		repo:                    repo,
		tokenService:            tokenService,
		signingKey:              []byte(opts.GetSigningKey()),
		accessTokenTTL:          opts.GetAccessTokenTTL(),
		issuer:                  opts.GetIssuer(),
		audience:                opts.GetAudience(),
		sessionDuration:         opts.GetSessionDuration(),
		extendedSessionDuration: opts.GetExtendedSessionDuration(),
		logger:                  defLogger{},
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	s.logger = logger
	// Update the TokenService logger as well
	s.tokenService = NewTokenService(
		s.signingKey,
		s.accessTokenTTL,
		s.issuer,
		s.audience,
		logger,
	)
	return s
}

// WithTokenService overrides the token service, mainly for tests.
func (s *Auther) WithTokenService(ts TokenService) *Auther {
	s.tokenService = ts
	return s
}

// TokenService returns the TokenService instance used by this Authenticator
func (s *Auther) TokenService() TokenService {
	return s.tokenService
}

// Authenticate verifies the credentials and, on success, issues a fresh
// token pair. The refresh window is controlled by rememberMe; the access
// token lifetime is fixed regardless.
func (s *Auther) Authenticate(ctx context.Context, email, password string, rememberMe bool) (*LoginResult, error) {
	user, err := s.repo.Users().GetByEmail(ctx, email)
	if err != nil {
		if goerrors.IsNotFound(err) {
			s.logger.Info("Authenticate unknown email", "email", email)
			return nil, ErrIdentityNotFound
		}
		return nil, storeError(err, "failed to look up user")
	}

	if !user.IsActivated {
		s.logger.Info("Authenticate blocked inactive account", "user_id", user.ID)
		return nil, ErrAccountInactive
	}

	if err := ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		s.logger.Info("Authenticate password mismatch", "user_id", user.ID)
		return nil, ErrInvalidCredentials
	}

	duration := s.sessionDuration
	if rememberMe {
		duration = s.extendedSessionDuration
	}

	var pair *TokenPair
	err = s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var txErr error
		pair, txErr = s.issueTokenPairTx(ctx, tx, user.ID, duration)
		return txErr
	})
	if err != nil {
		return nil, storeError(err, "failed to issue token pair")
	}

	return &LoginResult{
		TokenPair: *pair,
		Profile:   user.PublicProfile(),
	}, nil
}

// Refresh redeems a refresh token exactly once: the row and the old salt
// are rotated together, so a stolen-but-unused token dies the moment the
// legitimate client refreshes.
func (s *Auther) Refresh(ctx context.Context, refreshTokenString string) (*TokenPair, error) {
	claims, err := s.tokenService.ValidateRefresh(refreshTokenString)
	if err != nil {
		return nil, err
	}

	live, err := s.repo.Salts().IsValid(ctx, claims.SaltValue())
	if err != nil {
		return nil, storeError(err, "failed to check salt liveness")
	}
	if !live {
		s.logger.Info("Refresh rejected revoked session")
		return nil, ErrSessionRevoked
	}

	rowID, err := claims.RefreshUUID()
	if err != nil {
		return nil, ErrTokenMalformed
	}

	var pair *TokenPair
	err = s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		row, txErr := s.repo.RefreshTokens().FindByIDAndDeleteTx(ctx, tx, rowID)
		if txErr != nil {
			if goerrors.IsNotFound(txErr) {
				return ErrRefreshReplayed
			}
			return txErr
		}

		// the row owns the validity window; a fresh signature on an
		// expired row does not reopen the session
		if row.Expired() {
			return ErrTokenExpired
		}

		if _, txErr = s.repo.Salts().DeleteBySaltTx(ctx, tx, claims.SaltValue()); txErr != nil {
			return txErr
		}

		pair, txErr = s.issueTokenPairTx(ctx, tx, row.UserID, claims.Duration())
		return txErr
	})
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}
		return nil, storeError(err, "failed to rotate refresh token")
	}

	return pair, nil
}

// Logout tears down one session: the salt row and the refresh row. The
// refresh token is decoded without signature verification; the access-token
// check that gated this call already established trust.
func (s *Auther) Logout(ctx context.Context, salt, refreshTokenString string) error {
	claims, err := s.tokenService.DecodeRefresh(refreshTokenString)
	if err != nil {
		return err
	}

	rowID, err := claims.RefreshUUID()
	if err != nil {
		return ErrTokenMalformed
	}

	if _, err := s.repo.Salts().DeleteBySalt(ctx, salt); err != nil {
		return storeError(err, "failed to delete session salt")
	}

	if _, err := s.repo.RefreshTokens().DeleteByID(ctx, rowID); err != nil {
		return storeError(err, "failed to delete refresh token")
	}

	return nil
}

// VerifyAccess is the gate in front of every authenticated operation:
// signature, expiry, then salt liveness. Deleting the salt row kills the
// session regardless of the token's embedded expiry.
func (s *Auther) VerifyAccess(ctx context.Context, accessToken string) (*AccessSession, error) {
	claims, err := s.tokenService.ValidateAccess(accessToken)
	if err != nil {
		return nil, err
	}

	live, err := s.repo.Salts().IsValid(ctx, claims.SaltValue())
	if err != nil {
		return nil, storeError(err, "failed to check salt liveness")
	}
	if !live {
		return nil, ErrSessionRevoked
	}

	return &AccessSession{
		UserID: claims.UserID(),
		Salt:   claims.SaltValue(),
	}, nil
}

// issueTokenPairTx creates the stateful side of a session (salt row plus
// refresh row) and signs both tokens against it.
func (s *Auther) issueTokenPairTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, duration time.Duration) (*TokenPair, error) {
	salt, err := NewSaltValue()
	if err != nil {
		return nil, err
	}

	if _, err := s.repo.Salts().CreateTx(ctx, tx, &Salt{Salt: salt, UserID: userID}); err != nil {
		return nil, err
	}

	row, err := s.repo.RefreshTokens().CreateTx(ctx, tx, NewRefreshTokenRecord(userID, duration))
	if err != nil {
		return nil, err
	}

	refreshToken, err := s.tokenService.SignRefresh(row.ID, duration, salt)
	if err != nil {
		return nil, err
	}

	accessToken, err := s.tokenService.SignAccess(userID, salt)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Lifetime:     s.tokenService.AccessTTL(),
	}, nil
}

// storeError maps store timeouts to a retryable condition and wraps
// everything else as internal.
func storeError(err error, msg string) error {
	if err == nil {
		return nil
	}
	if goerrors.Is(err, context.DeadlineExceeded) {
		return goerrors.Wrap(err, ErrStoreUnavailable.Category, ErrStoreUnavailable.Message).
			WithTextCode(ErrStoreUnavailable.TextCode)
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr
	}
	return goerrors.Wrap(err, goerrors.CategoryInternal, msg)
}
