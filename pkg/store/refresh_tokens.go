package store

import (
	"context"
	"time"

	"github.com/CodeArtisanRiz/media-blob-kit/pkg/models"
)

// ============================================
// REFRESH TOKEN OPERATIONS
// ============================================

// HashToken returns the sha256 hex digest under which a refresh token is
// stored. Same digest scheme as API keys.
func HashToken(plaintext string) string {
	return HashApiKey(plaintext)
}

// CreateRefreshToken stores the sha256 digest of a refresh token.
func (s *GORMStore) CreateRefreshToken(ctx context.Context, userID, tokenHash string, expiresAt time.Time) (*models.RefreshToken, error) {
	token := &models.RefreshToken{
		UserID:    userID,
		TokenHash: tokenHash,
		ExpiresAt: expiresAt,
	}
	if _, err := createWithID(s.db, ctx, token, func(t *models.RefreshToken, id string) { t.ID = id }, token.ID, models.ErrRefreshTokenNotFound); err != nil {
		return nil, err
	}
	return token, nil
}

// GetRefreshToken looks up a token by digest. Expired tokens are treated
// as not found.
func (s *GORMStore) GetRefreshToken(ctx context.Context, tokenHash string) (*models.RefreshToken, error) {
	token, err := getByField[models.RefreshToken](s.db, ctx, "token_hash", tokenHash, models.ErrRefreshTokenNotFound)
	if err != nil {
		return nil, err
	}
	if token.IsExpired(time.Now()) {
		return nil, models.ErrRefreshTokenNotFound
	}
	return token, nil
}

// DeleteRefreshToken removes a single token (rotation consumes the old one).
func (s *GORMStore) DeleteRefreshToken(ctx context.Context, tokenHash string) error {
	return deleteByField[models.RefreshToken](s.db, ctx, "token_hash", tokenHash, models.ErrRefreshTokenNotFound)
}

// DeleteUserRefreshTokens revokes every token a user holds.
func (s *GORMStore) DeleteUserRefreshTokens(ctx context.Context, userID string) error {
	return s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&models.RefreshToken{}).Error
}
