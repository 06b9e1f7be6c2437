package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/CodeArtisanRiz/media-blob-kit/pkg/models"
)

// ============================================
// USER OPERATIONS
// ============================================

func (s *GORMStore) GetUser(ctx context.Context, username string) (*models.User, error) {
	return getByField[models.User](s.db, ctx, "username", username, models.ErrUserNotFound)
}

func (s *GORMStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return getByField[models.User](s.db, ctx, "id", id, models.ErrUserNotFound)
}

func (s *GORMStore) CreateUser(ctx context.Context, user *models.User) (string, error) {
	if err := user.Validate(); err != nil {
		return "", err
	}
	user.CreatedAt = time.Now()
	return createWithID(s.db, ctx, user, func(u *models.User, id string) { u.ID = id }, user.ID, models.ErrDuplicateUser)
}

func (s *GORMStore) DeleteUser(ctx context.Context, username string) error {
	return deleteByField[models.User](s.db, ctx, "username", username, models.ErrUserNotFound)
}

// ValidateCredentials checks a username/password pair against the stored
// bcrypt hash. Returns ErrInvalidCredentials for both unknown users and
// wrong passwords so callers cannot probe for usernames.
func (s *GORMStore) ValidateCredentials(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.GetUser(ctx, username)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			return nil, models.ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, models.ErrInvalidCredentials
	}

	return user, nil
}

// ============================================
// SUPERUSER BOOTSTRAP
// ============================================

// EnsureSuperuser creates the superuser account if it does not exist.
// Returns true when the account was created by this call.
func (s *GORMStore) EnsureSuperuser(ctx context.Context, username, password string) (bool, error) {
	if username == "" || password == "" {
		return false, fmt.Errorf("superuser username and password are required")
	}

	_, err := s.GetUser(ctx, username)
	if err == nil {
		return false, nil // already exists
	}
	if !errors.Is(err, models.ErrUserNotFound) {
		return false, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return false, fmt.Errorf("failed to hash password: %w", err)
	}

	su := &models.User{
		Username:     username,
		PasswordHash: string(hash),
		Role:         string(models.RoleSuperuser),
	}
	if _, err := s.CreateUser(ctx, su); err != nil {
		return false, fmt.Errorf("failed to create superuser: %w", err)
	}
	return true, nil
}
