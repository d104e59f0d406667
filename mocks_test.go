package auth_test

import (
	"context"
	"database/sql"
	"strings"
	"sync"
	"time"

	auth "github.com/avelhart/go-identity"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// testConfig satisfies auth.Config with plain fields.
type testConfig struct {
	signingKey              string
	issuer                  string
	audience                []string
	accessTokenTTL          time.Duration
	sessionDuration         time.Duration
	extendedSessionDuration time.Duration
	tokenLookup             string
	authScheme              string
	contextKey              string
}

func newTestConfig() *testConfig {
	return &testConfig{
		signingKey:              "test-signing-key",
		issuer:                  "test-issuer",
		audience:                []string{"test:audience"},
		accessTokenTTL:          15 * time.Minute,
		sessionDuration:         24 * time.Hour,
		extendedSessionDuration: 720 * time.Hour,
		tokenLookup:             "header:Authorization",
		authScheme:              "Bearer",
		contextKey:              "session",
	}
}

func (c *testConfig) GetSigningKey() string            { return c.signingKey }
func (c *testConfig) GetIssuer() string                { return c.issuer }
func (c *testConfig) GetAudience() []string            { return c.audience }
func (c *testConfig) GetAccessTokenTTL() time.Duration { return c.accessTokenTTL }
func (c *testConfig) GetSessionDuration() time.Duration { return c.sessionDuration }
func (c *testConfig) GetExtendedSessionDuration() time.Duration {
	return c.extendedSessionDuration
}
func (c *testConfig) GetTokenLookup() string { return c.tokenLookup }
func (c *testConfig) GetAuthScheme() string  { return c.authScheme }
func (c *testConfig) GetContextKey() string  { return c.contextKey }

// recordingLogger captures log output for assertions.
type recordingLogger struct {
	mu     sync.Mutex
	infos  []string
	errors []string
}

func (l *recordingLogger) Debug(format string, args ...any) {}

func (l *recordingLogger) Info(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.infos = append(l.infos, format)
}

func (l *recordingLogger) Error(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, format)
}

// memDB backs the in-memory repositories used by the engine tests.
type memDB struct {
	mu      sync.Mutex
	users   map[uuid.UUID]*auth.User
	salts   map[string]*auth.Salt
	resets  map[string]*auth.PasswordReset
	refresh map[uuid.UUID]*auth.RefreshToken
}

func newMemDB() *memDB {
	return &memDB{
		users:   map[uuid.UUID]*auth.User{},
		salts:   map[string]*auth.Salt{},
		resets:  map[string]*auth.PasswordReset{},
		refresh: map[uuid.UUID]*auth.RefreshToken{},
	}
}

func notFound(meta map[string]any) error {
	return repository.NewRecordNotFound().WithMetadata(meta)
}

// fakeRepo is an in-memory auth.RepositoryManager. Only the methods the
// engine exercises are implemented; anything else panics through the
// embedded nil interface.
type fakeRepo struct {
	db            *memDB
	users         fakeUsers
	salts         fakeSalts
	resets        fakeResets
	refreshTokens fakeRefresh
}

func newFakeRepo() *fakeRepo {
	db := newMemDB()
	return &fakeRepo{
		db:            db,
		users:         fakeUsers{db: db},
		salts:         fakeSalts{db: db},
		resets:        fakeResets{db: db},
		refreshTokens: fakeRefresh{db: db},
	}
}

func (f *fakeRepo) Validate() error { return nil }
func (f *fakeRepo) MustValidate()   {}

func (f *fakeRepo) RunInTx(ctx context.Context, opts *sql.TxOptions, fn func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return fn(ctx, bun.Tx{})
	}
}

func (f *fakeRepo) Users() auth.Users                   { return f.users }
func (f *fakeRepo) Salts() auth.Salts                   { return f.salts }
func (f *fakeRepo) PasswordResets() auth.PasswordResets { return f.resets }
func (f *fakeRepo) RefreshTokens() auth.RefreshTokens   { return f.refreshTokens }

type fakeUsers struct {
	auth.Users
	db *memDB
}

func (f fakeUsers) GetByID(ctx context.Context, id string, criteria ...repository.SelectCriteria) (*auth.User, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()

	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, notFound(map[string]any{"id": id})
	}

	user, ok := f.db.users[uid]
	if !ok {
		return nil, notFound(map[string]any{"id": id})
	}
	return user, nil
}

func (f fakeUsers) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()

	for _, user := range f.db.users {
		if strings.EqualFold(user.Email, email) {
			return user, nil
		}
	}
	return nil, notFound(map[string]any{"email": email})
}

func (f fakeUsers) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*auth.User, error) {
	return f.GetByEmail(ctx, email)
}

func (f fakeUsers) IsRegistered(ctx context.Context, email string) (bool, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()

	for _, user := range f.db.users {
		if strings.EqualFold(user.Email, email) {
			return true, nil
		}
	}
	return false, nil
}

func (f fakeUsers) CreateTx(ctx context.Context, tx bun.IDB, record *auth.User, criteria ...repository.InsertCriteria) (*auth.User, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	record.Email = strings.ToLower(strings.TrimSpace(record.Email))

	now := time.Now()
	record.CreatedAt = &now
	record.UpdatedAt = &now

	f.db.users[record.ID] = record
	return record, nil
}

func (f fakeUsers) MarkActivatedTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*auth.User, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()

	user, ok := f.db.users[id]
	if !ok {
		return nil, notFound(map[string]any{"id": id.String()})
	}
	user.IsActivated = true
	return user, nil
}

func (f fakeUsers) Update(ctx context.Context, record *auth.User, criteria ...repository.UpdateCriteria) (*auth.User, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()

	if _, ok := f.db.users[record.ID]; !ok {
		return nil, notFound(map[string]any{"id": record.ID.String()})
	}
	f.db.users[record.ID] = record
	return record, nil
}

func (f fakeUsers) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()

	user, ok := f.db.users[id]
	if !ok {
		return notFound(map[string]any{"id": id.String()})
	}
	user.PasswordHash = passwordHash
	return nil
}

func (f fakeUsers) ResetPasswordByEmailTx(ctx context.Context, tx bun.IDB, email, passwordHash string) (*auth.User, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()

	for _, user := range f.db.users {
		if strings.EqualFold(user.Email, email) {
			user.PasswordHash = passwordHash
			return user, nil
		}
	}
	return nil, notFound(map[string]any{"email": email})
}

type fakeSalts struct {
	auth.Salts
	db *memDB
}

func (f fakeSalts) CreateTx(ctx context.Context, tx bun.IDB, record *auth.Salt, criteria ...repository.InsertCriteria) (*auth.Salt, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	f.db.salts[record.Salt] = record
	return record, nil
}

func (f fakeSalts) GetBySalt(ctx context.Context, value string) (*auth.Salt, error) {
	return f.GetBySaltTx(ctx, nil, value)
}

func (f fakeSalts) GetBySaltTx(ctx context.Context, tx bun.IDB, value string) (*auth.Salt, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()

	record, ok := f.db.salts[value]
	if !ok {
		return nil, notFound(map[string]any{"salt": value})
	}
	return record, nil
}

func (f fakeSalts) IsValid(ctx context.Context, value string) (bool, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()

	if value == "" {
		return false, nil
	}
	_, ok := f.db.salts[value]
	return ok, nil
}

func (f fakeSalts) DeleteBySalt(ctx context.Context, value string) (int64, error) {
	return f.DeleteBySaltTx(ctx, nil, value)
}

func (f fakeSalts) DeleteBySaltTx(ctx context.Context, tx bun.IDB, value string) (int64, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()

	if _, ok := f.db.salts[value]; !ok {
		return 0, nil
	}
	delete(f.db.salts, value)
	return 1, nil
}

func (f fakeSalts) DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	return f.DeleteByUserTx(ctx, nil, userID)
}

func (f fakeSalts) DeleteByUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) (int64, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()

	var deleted int64
	for value, record := range f.db.salts {
		if record.UserID == userID {
			delete(f.db.salts, value)
			deleted++
		}
	}
	return deleted, nil
}

type fakeResets struct {
	auth.PasswordResets
	db *memDB
}

func (f fakeResets) CreateTx(ctx context.Context, tx bun.IDB, record *auth.PasswordReset, criteria ...repository.InsertCriteria) (*auth.PasswordReset, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	f.db.resets[record.Token] = record
	return record, nil
}

func (f fakeResets) GetByTokenTx(ctx context.Context, tx bun.IDB, token string) (*auth.PasswordReset, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()

	record, ok := f.db.resets[token]
	if !ok {
		return nil, notFound(map[string]any{"token": token})
	}
	return record, nil
}

func (f fakeResets) DeleteByTokenTx(ctx context.Context, tx bun.IDB, token string) (int64, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()

	if _, ok := f.db.resets[token]; !ok {
		return 0, nil
	}
	delete(f.db.resets, token)
	return 1, nil
}

type fakeRefresh struct {
	auth.RefreshTokens
	db *memDB
}

func (f fakeRefresh) CreateTx(ctx context.Context, tx bun.IDB, record *auth.RefreshToken, criteria ...repository.InsertCriteria) (*auth.RefreshToken, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	f.db.refresh[record.ID] = record
	return record, nil
}

func (f fakeRefresh) FindByIDAndDeleteTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*auth.RefreshToken, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()

	record, ok := f.db.refresh[id]
	if !ok {
		return nil, notFound(map[string]any{"id": id.String()})
	}
	delete(f.db.refresh, id)
	return record, nil
}

func (f fakeRefresh) DeleteByID(ctx context.Context, id uuid.UUID) (int64, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()

	if _, ok := f.db.refresh[id]; !ok {
		return 0, nil
	}
	delete(f.db.refresh, id)
	return 1, nil
}

func (f fakeRefresh) DeleteByUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) (int64, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()

	var deleted int64
	for id, record := range f.db.refresh {
		if record.UserID == userID {
			delete(f.db.refresh, id)
			deleted++
		}
	}
	return deleted, nil
}
