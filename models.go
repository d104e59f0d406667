package auth

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the account model. PasswordHash and IsActivated are owned by the
// engine; repositories are the only code that touches persistence for them.
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Name          string     `bun:"name,notnull" json:"name,omitempty"`
	Email         string     `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash  string     `bun:"password_hash" json:"-"`
	AvatarURL     string     `bun:"avatar_url" json:"avatar_url,omitempty"`
	IsActivated   bool       `bun:"is_activated" json:"is_activated"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// Profile is the public subset of User returned by the API. It never carries
// the password hash.
type Profile struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Email       string     `json:"email"`
	AvatarURL   string     `json:"avatar_url,omitempty"`
	IsActivated bool       `json:"is_activated"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
}

// PublicProfile projects the user into its API representation.
func (u *User) PublicProfile() *Profile {
	if u == nil {
		return nil
	}
	return &Profile{
		ID:          u.ID,
		Name:        u.Name,
		Email:       u.Email,
		AvatarURL:   u.AvatarURL,
		IsActivated: u.IsActivated,
		CreatedAt:   u.CreatedAt,
	}
}

// Salt is a live authentication context. Its random value is embedded in
// every token we sign; deleting the row is the revocation mechanism, there
// is no token blacklist. A salt created at registration doubles as the
// one-time activation code.
type Salt struct {
	bun.BaseModel `bun:"table:salts,alias:slt"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Salt          string     `bun:"salt,notnull,unique" json:"salt,omitempty"`
	UserID        uuid.UUID  `bun:"user_id,notnull,type:uuid" json:"user_id,omitempty"`
	User          *User      `bun:"rel:belongs-to,join:user_id=id" json:"user,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// PasswordReset is a short-lived recovery token, consumed (deleted) when the
// password change goes through.
type PasswordReset struct {
	bun.BaseModel `bun:"table:password_resets,alias:pwdr"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email         string     `bun:"email,notnull" json:"email,omitempty"`
	Token         string     `bun:"token,notnull,unique" json:"token,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// RefreshToken is the durable half of a signed refresh token. The row id is
// what the signed token embeds; the row owns the validity window, and
// deleting the row makes the signed token worthless.
type RefreshToken struct {
	bun.BaseModel `bun:"table:refresh_tokens,alias:rft"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UserID        uuid.UUID  `bun:"user_id,notnull,type:uuid" json:"user_id,omitempty"`
	User          *User      `bun:"rel:belongs-to,join:user_id=id" json:"user,omitempty"`
	ExpiresAt     time.Time  `bun:"expires_at,notnull" json:"expires_at"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// Expired reports whether the row's validity window has passed.
func (r *RefreshToken) Expired() bool {
	if r == nil {
		return true
	}
	return r.ExpiresAt.Before(time.Now())
}
