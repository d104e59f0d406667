package auth

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// ProfilePatch carries the mutable profile fields. Zero values are skipped
// so a patch only touches what it names.
type ProfilePatch struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// ProfileService exposes the authenticated self-service operations. It is
// repository backed and returns only the public profile subset.
type ProfileService struct {
	repo   RepositoryManager
	logger Logger
}

func NewProfileService(repo RepositoryManager) *ProfileService {
	return &ProfileService{
		repo:   repo,
		logger: defLogger{},
	}
}

func (s *ProfileService) WithLogger(logger Logger) *ProfileService {
	s.logger = logger
	return s
}

func (s *ProfileService) GetUser(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	user, err := s.repo.Users().GetByID(ctx, userID.String())
	if err != nil {
		if goerrors.IsNotFound(err) {
			return nil, ErrIdentityNotFound
		}
		return nil, storeError(err, "failed to load user")
	}
	return user.PublicProfile(), nil
}

func (s *ProfileService) UpdateUser(ctx context.Context, userID uuid.UUID, patch ProfilePatch) (*Profile, error) {
	user, err := s.repo.Users().GetByID(ctx, userID.String())
	if err != nil {
		if goerrors.IsNotFound(err) {
			return nil, ErrIdentityNotFound
		}
		return nil, storeError(err, "failed to load user")
	}

	if patch.Name != "" {
		user.Name = patch.Name
	}
	if patch.Email != "" {
		user.Email = normalizeEmail(patch.Email)
	}

	updated, err := s.repo.Users().Update(ctx, user)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return nil, ErrIdentityNotFound
		}
		return nil, storeError(err, "failed to update user")
	}

	return updated.PublicProfile(), nil
}

// UpdateAvatar stores the new avatar URL and returns the previous one so
// the caller can delete the old blob from storage.
func (s *ProfileService) UpdateAvatar(ctx context.Context, userID uuid.UUID, url string) (*Profile, string, error) {
	user, err := s.repo.Users().GetByID(ctx, userID.String())
	if err != nil {
		if goerrors.IsNotFound(err) {
			return nil, "", ErrIdentityNotFound
		}
		return nil, "", storeError(err, "failed to load user")
	}

	previous := user.AvatarURL
	user.AvatarURL = url

	updated, err := s.repo.Users().Update(ctx, user)
	if err != nil {
		return nil, "", storeError(err, "failed to update avatar")
	}

	return updated.PublicProfile(), previous, nil
}

// UpdatePassword hashes and stores a new password for an authenticated
// account. It deliberately does not revoke existing sessions; only the
// token-based recovery flow does that.
func (s *ProfileService) UpdatePassword(ctx context.Context, userID uuid.UUID, password string) error {
	hash, err := HashPassword(password)
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return goerrors.Wrap(richErr, goerrors.CategoryValidation, "invalid password provided")
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	if err := s.repo.Users().UpdatePassword(ctx, userID, hash); err != nil {
		if goerrors.IsNotFound(err) {
			return ErrIdentityNotFound
		}
		return storeError(err, "failed to store new password")
	}

	return nil
}
