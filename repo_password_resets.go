package auth

import (
	"context"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// PasswordResets is the repository owning recovery tokens. Rows are only
// removed by consumption; duplicates for the same email can accumulate and
// remain individually redeemable.
type PasswordResets interface {
	repository.Repository[*PasswordReset]

	Create(ctx context.Context, record *PasswordReset, criteria ...repository.InsertCriteria) (*PasswordReset, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *PasswordReset, criteria ...repository.InsertCriteria) (*PasswordReset, error)

	GetByToken(ctx context.Context, token string) (*PasswordReset, error)
	GetByTokenTx(ctx context.Context, tx bun.IDB, token string) (*PasswordReset, error)

	DeleteByToken(ctx context.Context, token string) (int64, error)
	DeleteByTokenTx(ctx context.Context, tx bun.IDB, token string) (int64, error)
}

type passwordResets struct {
	repository.Repository[*PasswordReset]
	db *bun.DB
}

var (
	_ PasswordResets                        = (*passwordResets)(nil)
	_ repository.Repository[*PasswordReset] = (*passwordResets)(nil)
)

func NewPasswordResetsRepository(db *bun.DB) PasswordResets {
	repo := repository.NewRepository[*PasswordReset](db, repository.ModelHandlers[*PasswordReset]{
		NewRecord: func() *PasswordReset { return &PasswordReset{} },
		GetID: func(r *PasswordReset) uuid.UUID {
			if r == nil {
				return uuid.Nil
			}
			return r.ID
		},
		SetID: func(r *PasswordReset, id uuid.UUID) {
			if r != nil {
				r.ID = id
			}
		},
		GetIdentifier: func() string {
			return "token"
		},
	})

	return &passwordResets{
		Repository: repo,
		db:         db,
	}
}

func (a *passwordResets) Create(ctx context.Context, record *PasswordReset, criteria ...repository.InsertCriteria) (*PasswordReset, error) {
	return a.CreateTx(ctx, a.db, record, criteria...)
}

func (a *passwordResets) CreateTx(ctx context.Context, tx bun.IDB, record *PasswordReset, criteria ...repository.InsertCriteria) (*PasswordReset, error) {
	if record != nil && record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record != nil {
		record.Email = normalizeEmail(record.Email)
	}
	return a.Repository.CreateTx(ctx, tx, record, criteria...)
}

func (a *passwordResets) GetByToken(ctx context.Context, token string) (*PasswordReset, error) {
	return a.GetByTokenTx(ctx, a.db, token)
}

func (a *passwordResets) GetByTokenTx(ctx context.Context, tx bun.IDB, token string) (*PasswordReset, error) {
	record := &PasswordReset{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.token = ?", token).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"token": token,
				})
		}
		return nil, err
	}

	return record, nil
}

func (a *passwordResets) DeleteByToken(ctx context.Context, token string) (int64, error) {
	return a.DeleteByTokenTx(ctx, a.db, token)
}

// DeleteByTokenTx consumes the token. Absent rows delete silently so the
// reset flow stays idempotent on retry.
func (a *passwordResets) DeleteByTokenTx(ctx context.Context, tx bun.IDB, token string) (int64, error) {
	res, err := tx.NewDelete().
		Model((*PasswordReset)(nil)).
		Where("?TableAlias.token = ?", token).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	affected, _ := res.RowsAffected()
	return affected, nil
}
