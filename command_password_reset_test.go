package auth_test

import (
	"context"
	"testing"

	auth "github.com/avelhart/go-identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitializePasswordReset(t *testing.T) {
	ctx := context.Background()

	t.Run("Known email gets a stored reset token", func(t *testing.T) {
		repo := newFakeRepo()
		seedUser(t, repo, "forgetful@example.com", "password123", true)

		var resp *auth.InitializePasswordResetResponse
		err := auth.NewInitializePasswordResetHandler(repo).Execute(ctx, auth.InitializePasswordResetMessage{
			Email: "Forgetful@Example.com",
			OnResponse: func(r *auth.InitializePasswordResetResponse) {
				resp = r
			},
		})
		require.NoError(t, err)
		require.NotNil(t, resp)

		assert.Equal(t, "forgetful@example.com", resp.Email)
		assert.NotEmpty(t, resp.Token)

		repo.db.mu.Lock()
		reset, ok := repo.db.resets[resp.Token]
		repo.db.mu.Unlock()
		require.True(t, ok, "reset token should be persisted")
		assert.Equal(t, "forgetful@example.com", reset.Email)
	})

	t.Run("Unknown email is rejected", func(t *testing.T) {
		repo := newFakeRepo()

		err := auth.NewInitializePasswordResetHandler(repo).Execute(ctx, auth.InitializePasswordResetMessage{
			Email: "nobody@example.com",
		})
		require.Error(t, err)
		assert.Equal(t, auth.ErrIdentityNotFound, err)
	})
}

func TestFinalizePasswordReset(t *testing.T) {
	ctx := context.Background()

	// initReset seeds a user with a live session and a pending reset token.
	initReset := func(t *testing.T, repo *fakeRepo) (*auth.LoginResult, string) {
		t.Helper()

		seedUser(t, repo, "reset@example.com", "old-password-1", true)

		auther := auth.NewAuthenticator(repo, newTestConfig())
		login, err := auther.Authenticate(ctx, "reset@example.com", "old-password-1", false)
		require.NoError(t, err)

		var resp *auth.InitializePasswordResetResponse
		err = auth.NewInitializePasswordResetHandler(repo).Execute(ctx, auth.InitializePasswordResetMessage{
			Email: "reset@example.com",
			OnResponse: func(r *auth.InitializePasswordResetResponse) {
				resp = r
			},
		})
		require.NoError(t, err)
		return login, resp.Token
	}

	t.Run("Valid token rewrites the password and revokes every session", func(t *testing.T) {
		repo := newFakeRepo()
		login, token := initReset(t, repo)

		var resp *auth.FinalizePasswordResetResponse
		err := auth.NewFinalizePasswordResetHandler(repo).Execute(ctx, auth.FinalizePasswordResetMessage{
			Token:    token,
			Password: "new-password-1",
			OnResponse: func(r *auth.FinalizePasswordResetResponse) {
				resp = r
			},
		})
		require.NoError(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, "reset@example.com", resp.Email)

		auther := auth.NewAuthenticator(repo, newTestConfig())

		_, err = auther.Authenticate(ctx, "reset@example.com", "old-password-1", false)
		assert.Equal(t, auth.ErrInvalidCredentials, err)

		_, err = auther.Authenticate(ctx, "reset@example.com", "new-password-1", false)
		assert.NoError(t, err)

		_, err = auther.VerifyAccess(ctx, login.AccessToken)
		assert.Equal(t, auth.ErrSessionRevoked, err)

		_, err = auther.Refresh(ctx, login.RefreshToken)
		require.Error(t, err)

		repo.db.mu.Lock()
		saltCount := len(repo.db.salts)
		refreshCount := len(repo.db.refresh)
		_, tokenAlive := repo.db.resets[token]
		repo.db.mu.Unlock()

		assert.Equal(t, 0, saltCount)
		assert.Equal(t, 0, refreshCount)
		assert.False(t, tokenAlive, "reset token must be single use")
	})

	t.Run("Unknown token is rejected", func(t *testing.T) {
		repo := newFakeRepo()

		err := auth.NewFinalizePasswordResetHandler(repo).Execute(ctx, auth.FinalizePasswordResetMessage{
			Token:    "no-such-token",
			Password: "new-password-1",
		})
		require.Error(t, err)
		assert.Equal(t, auth.ErrResetNotFound, err)
	})

	t.Run("Consumed token cannot be replayed", func(t *testing.T) {
		repo := newFakeRepo()
		_, token := initReset(t, repo)

		handler := auth.NewFinalizePasswordResetHandler(repo)
		require.NoError(t, handler.Execute(ctx, auth.FinalizePasswordResetMessage{
			Token:    token,
			Password: "new-password-1",
		}))

		err := handler.Execute(ctx, auth.FinalizePasswordResetMessage{
			Token:    token,
			Password: "another-password",
		})
		require.Error(t, err)
		assert.Equal(t, auth.ErrResetNotFound, err)
	})
}
