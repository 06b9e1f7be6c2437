package models

import (
	"fmt"
	"time"
)

// UserRole represents the role of a user in the system.
type UserRole string

const (
	// RoleSuperuser can see and manage every project and user.
	RoleSuperuser UserRole = "su"
	// RoleAdmin can manage users and see all jobs.
	RoleAdmin UserRole = "admin"
	// RoleUser owns and manages only their own projects.
	RoleUser UserRole = "user"
)

// IsValid checks if the role is a valid UserRole.
func (r UserRole) IsValid() bool {
	return r == RoleSuperuser || r == RoleAdmin || r == RoleUser
}

// User represents an account that can authenticate against the API.
type User struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	Username     string    `gorm:"uniqueIndex;not null;size:255" json:"username"`
	PasswordHash string    `gorm:"not null" json:"-"`
	Role         string    `gorm:"default:user;size:50" json:"role"` // su, admin, user
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`

	Projects []Project `gorm:"foreignKey:OwnerID" json:"-"`
}

// TableName returns the table name for User.
func (User) TableName() string {
	return "users"
}

// GetRole returns the user's role as a UserRole type.
func (u *User) GetRole() UserRole {
	return UserRole(u.Role)
}

// IsSuperuser checks if the user has the su role.
func (u *User) IsSuperuser() bool {
	return u.Role == string(RoleSuperuser)
}

// IsAdmin checks if the user has admin privileges (su counts).
func (u *User) IsAdmin() bool {
	return u.Role == string(RoleAdmin) || u.IsSuperuser()
}

// Validate checks if the user has valid configuration.
func (u *User) Validate() error {
	if u.Username == "" {
		return fmt.Errorf("username is required")
	}
	if u.Role != "" && !UserRole(u.Role).IsValid() {
		return fmt.Errorf("invalid role %q", u.Role)
	}
	return nil
}

// RefreshToken is a single-use token for rotating JWT access tokens.
// Only the sha256 of the token is stored.
type RefreshToken struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	UserID    string    `gorm:"index;not null;size:36" json:"user_id"`
	TokenHash string    `gorm:"uniqueIndex;not null;size:64" json:"-"`
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName returns the table name for RefreshToken.
func (RefreshToken) TableName() string {
	return "refresh_tokens"
}

// IsExpired reports whether the token is past its expiry.
func (t *RefreshToken) IsExpired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}
