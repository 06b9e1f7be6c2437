// Package auth provides JWT issuance and validation for the HTTP API.
package auth

import (
	"github.com/golang-jwt/jwt/v5"

	"github.com/CodeArtisanRiz/media-blob-kit/pkg/models"
)

// TokenType indicates whether a token is an access token or refresh token.
type TokenType string

const (
	// TokenTypeAccess is a short-lived token used for API authorization.
	TokenTypeAccess TokenType = "access"
	// TokenTypeRefresh is a long-lived token used to obtain new access tokens.
	TokenTypeRefresh TokenType = "refresh"
)

// Claims are the JWT claims carried by both token types.
type Claims struct {
	jwt.RegisteredClaims

	// UserID is the user's UUID.
	UserID string `json:"uid"`

	// Username is the human-readable username.
	Username string `json:"username"`

	// Role is the user's role ("su", "admin" or "user").
	Role string `json:"role"`

	// TokenType indicates whether this is an access or refresh token.
	TokenType TokenType `json:"token_type"`
}

// IsAccessToken returns true if this is an access token.
func (c *Claims) IsAccessToken() bool {
	return c.TokenType == TokenTypeAccess
}

// IsRefreshToken returns true if this is a refresh token.
func (c *Claims) IsRefreshToken() bool {
	return c.TokenType == TokenTypeRefresh
}

// IsSuperuser returns true for the su role.
func (c *Claims) IsSuperuser() bool {
	return c.Role == string(models.RoleSuperuser)
}

// IsAdmin returns true for admin and su roles.
func (c *Claims) IsAdmin() bool {
	return c.Role == string(models.RoleAdmin) || c.IsSuperuser()
}
