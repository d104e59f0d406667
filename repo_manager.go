package auth

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// RepositoryManager exposes all repositories
type RepositoryManager interface {
	repository.Validator
	repository.TransactionManager
	Users() Users
	Salts() Salts
	PasswordResets() PasswordResets
	RefreshTokens() RefreshTokens
}

type mngr struct {
	db             *bun.DB
	users          Users
	salts          Salts
	passwordResets PasswordResets
	refreshTokens  RefreshTokens
}

func NewRepositoryManager(db *bun.DB) RepositoryManager {
	return &mngr{
		db:             db,
		users:          NewUsersRepository(db),
		salts:          NewSaltsRepository(db),
		passwordResets: NewPasswordResetsRepository(db),
		refreshTokens:  NewRefreshTokensRepository(db),
	}
}

func (m mngr) Validate() error {
	if m.users == nil {
		return errors.New("repository users should be initialized")
	}

	if m.salts == nil {
		return errors.New("repository salts should be initialized")
	}

	if m.passwordResets == nil {
		return errors.New("repository passwordResets should be initialized")
	}

	if m.refreshTokens == nil {
		return errors.New("repository refreshTokens should be initialized")
	}

	return nil
}

func (m mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

func (m mngr) Users() Users {
	return m.users
}

func (m mngr) Salts() Salts {
	return m.salts
}

func (m mngr) PasswordResets() PasswordResets {
	return m.passwordResets
}

func (m mngr) RefreshTokens() RefreshTokens {
	return m.refreshTokens
}
