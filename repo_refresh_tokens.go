package auth

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// RefreshTokens is the repository owning the durable half of refresh
// tokens. FindByIDAndDelete is the one-time-use primitive: the delete row
// count decides whether a redemption is legitimate or a replay.
type RefreshTokens interface {
	repository.Repository[*RefreshToken]

	Create(ctx context.Context, record *RefreshToken, criteria ...repository.InsertCriteria) (*RefreshToken, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *RefreshToken, criteria ...repository.InsertCriteria) (*RefreshToken, error)

	FindByIDAndDelete(ctx context.Context, id uuid.UUID) (*RefreshToken, error)
	FindByIDAndDeleteTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*RefreshToken, error)

	DeleteByID(ctx context.Context, id uuid.UUID) (int64, error)
	DeleteByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (int64, error)
	DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error)
	DeleteByUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) (int64, error)
}

type refreshTokens struct {
	repository.Repository[*RefreshToken]
	db *bun.DB
}

var (
	_ RefreshTokens                        = (*refreshTokens)(nil)
	_ repository.Repository[*RefreshToken] = (*refreshTokens)(nil)
)

func NewRefreshTokensRepository(db *bun.DB) RefreshTokens {
	repo := repository.NewRepository[*RefreshToken](db, repository.ModelHandlers[*RefreshToken]{
		NewRecord: func() *RefreshToken { return &RefreshToken{} },
		GetID: func(r *RefreshToken) uuid.UUID {
			if r == nil {
				return uuid.Nil
			}
			return r.ID
		},
		SetID: func(r *RefreshToken, id uuid.UUID) {
			if r != nil {
				r.ID = id
			}
		},
	})

	return &refreshTokens{
		Repository: repo,
		db:         db,
	}
}

func (a *refreshTokens) Create(ctx context.Context, record *RefreshToken, criteria ...repository.InsertCriteria) (*RefreshToken, error) {
	return a.CreateTx(ctx, a.db, record, criteria...)
}

func (a *refreshTokens) CreateTx(ctx context.Context, tx bun.IDB, record *RefreshToken, criteria ...repository.InsertCriteria) (*RefreshToken, error) {
	if record != nil && record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	return a.Repository.CreateTx(ctx, tx, record, criteria...)
}

func (a *refreshTokens) FindByIDAndDelete(ctx context.Context, id uuid.UUID) (*RefreshToken, error) {
	return a.FindByIDAndDeleteTx(ctx, a.db, id)
}

// FindByIDAndDeleteTx atomically removes the row and returns it. Two racing
// redemptions can both carry a valid signature; only the one whose delete
// actually removed the row wins, the other gets a not-found.
func (a *refreshTokens) FindByIDAndDeleteTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*RefreshToken, error) {
	record := &RefreshToken{}
	res, err := tx.NewDelete().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Returning("*").
		Exec(ctx)
	if err != nil {
		return nil, err
	}

	if affected, _ := res.RowsAffected(); affected == 0 {
		return nil, repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"id": id.String(),
			})
	}

	return record, nil
}

func (a *refreshTokens) DeleteByID(ctx context.Context, id uuid.UUID) (int64, error) {
	return a.DeleteByIDTx(ctx, a.db, id)
}

func (a *refreshTokens) DeleteByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (int64, error) {
	res, err := tx.NewDelete().
		Model((*RefreshToken)(nil)).
		Where("?TableAlias.id = ?", id).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	affected, _ := res.RowsAffected()
	return affected, nil
}

func (a *refreshTokens) DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	return a.DeleteByUserTx(ctx, a.db, userID)
}

func (a *refreshTokens) DeleteByUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) (int64, error) {
	res, err := tx.NewDelete().
		Model((*RefreshToken)(nil)).
		Where("?TableAlias.user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	affected, _ := res.RowsAffected()
	return affected, nil
}

// NewRefreshTokenRecord builds an unsaved row whose validity window amounts
// to now+duration.
func NewRefreshTokenRecord(userID uuid.UUID, duration time.Duration) *RefreshToken {
	return &RefreshToken{
		ID:        uuid.New(),
		UserID:    userID,
		ExpiresAt: time.Now().Add(duration),
	}
}
