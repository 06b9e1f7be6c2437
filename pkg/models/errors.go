package models

import "errors"

// Common errors for store and pipeline operations.
var (
	// Project errors
	ErrProjectNotFound  = errors.New("project not found")
	ErrProjectDeleted   = errors.New("project is deleted")
	ErrDuplicateProject = errors.New("project already exists")

	// File errors
	ErrFileNotFound  = errors.New("file not found")
	ErrDuplicateFile = errors.New("file with this key already exists")

	// Job errors
	ErrJobNotFound   = errors.New("job not found")
	ErrNoPendingJobs = errors.New("no pending jobs")

	// User errors
	ErrUserNotFound       = errors.New("user not found")
	ErrDuplicateUser      = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")

	// API key errors
	ErrApiKeyNotFound  = errors.New("api key not found")
	ErrApiKeyInactive  = errors.New("api key is inactive or expired")
	ErrDuplicateApiKey = errors.New("api key already exists")

	// Refresh token errors
	ErrRefreshTokenNotFound = errors.New("refresh token not found")
)
