package auth

import (
	"context"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Salts is the repository owning live session salts. A row here is what
// keeps a token honored; deleting rows is the revocation kill-switch.
type Salts interface {
	repository.Repository[*Salt]

	Create(ctx context.Context, record *Salt, criteria ...repository.InsertCriteria) (*Salt, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *Salt, criteria ...repository.InsertCriteria) (*Salt, error)

	GetBySalt(ctx context.Context, value string) (*Salt, error)
	GetBySaltTx(ctx context.Context, tx bun.IDB, value string) (*Salt, error)
	IsValid(ctx context.Context, value string) (bool, error)

	DeleteBySalt(ctx context.Context, value string) (int64, error)
	DeleteBySaltTx(ctx context.Context, tx bun.IDB, value string) (int64, error)
	DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error)
	DeleteByUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) (int64, error)
}

type salts struct {
	repository.Repository[*Salt]
	db *bun.DB
}

var (
	_ Salts                        = (*salts)(nil)
	_ repository.Repository[*Salt] = (*salts)(nil)
)

func NewSaltsRepository(db *bun.DB) Salts {
	repo := repository.NewRepository[*Salt](db, repository.ModelHandlers[*Salt]{
		NewRecord: func() *Salt { return &Salt{} },
		GetID: func(s *Salt) uuid.UUID {
			if s == nil {
				return uuid.Nil
			}
			return s.ID
		},
		SetID: func(s *Salt, id uuid.UUID) {
			if s != nil {
				s.ID = id
			}
		},
		GetIdentifier: func() string {
			return "salt"
		},
	})

	return &salts{
		Repository: repo,
		db:         db,
	}
}

func (a *salts) Create(ctx context.Context, record *Salt, criteria ...repository.InsertCriteria) (*Salt, error) {
	return a.CreateTx(ctx, a.db, record, criteria...)
}

func (a *salts) CreateTx(ctx context.Context, tx bun.IDB, record *Salt, criteria ...repository.InsertCriteria) (*Salt, error) {
	if record != nil && record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	return a.Repository.CreateTx(ctx, tx, record, criteria...)
}

func (a *salts) GetBySalt(ctx context.Context, value string) (*Salt, error) {
	return a.GetBySaltTx(ctx, a.db, value)
}

func (a *salts) GetBySaltTx(ctx context.Context, tx bun.IDB, value string) (*Salt, error) {
	record := &Salt{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.salt = ?", value).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"salt": value,
				})
		}
		return nil, err
	}

	return record, nil
}

// IsValid reports whether a live row exists for the salt value. This is the
// check behind every authenticated request.
func (a *salts) IsValid(ctx context.Context, value string) (bool, error) {
	if value == "" {
		return false, nil
	}
	return a.db.NewSelect().
		Model((*Salt)(nil)).
		Where("?TableAlias.salt = ?", value).
		Exists(ctx)
}

func (a *salts) DeleteBySalt(ctx context.Context, value string) (int64, error) {
	return a.DeleteBySaltTx(ctx, a.db, value)
}

// DeleteBySaltTx deletes a single salt row. Deleting an absent row is not an
// error; callers that care inspect the returned count.
func (a *salts) DeleteBySaltTx(ctx context.Context, tx bun.IDB, value string) (int64, error) {
	res, err := tx.NewDelete().
		Model((*Salt)(nil)).
		Where("?TableAlias.salt = ?", value).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	affected, _ := res.RowsAffected()
	return affected, nil
}

func (a *salts) DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	return a.DeleteByUserTx(ctx, a.db, userID)
}

// DeleteByUserTx removes every salt belonging to the user, revoking all of
// their sessions at once.
func (a *salts) DeleteByUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) (int64, error) {
	res, err := tx.NewDelete().
		Model((*Salt)(nil)).
		Where("?TableAlias.user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	affected, _ := res.RowsAffected()
	return affected, nil
}
