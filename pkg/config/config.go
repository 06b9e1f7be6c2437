// Package config loads service configuration from the environment.
package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/CodeArtisanRiz/media-blob-kit/internal/logger"
	"github.com/CodeArtisanRiz/media-blob-kit/pkg/objectstore/s3"
	"github.com/CodeArtisanRiz/media-blob-kit/pkg/store"
)

// Config represents the service configuration.
//
// All values come from environment variables; there is no config file.
// Required: DATABASE_URL, JWT_SECRET, S3_BUCKET_NAME. Everything else has
// a default or is optional.
type Config struct {
	// Logging controls log output behavior (LOG_LEVEL, LOG_FORMAT).
	Logging logger.Config

	// HTTPAddr is the listen address for the API server (HTTP_ADDR).
	HTTPAddr string `validate:"required"`

	// Database configures the relational store (DATABASE_URL).
	Database store.Config

	// S3 configures object storage (AWS_REGION, AWS_ACCESS_KEY_ID,
	// AWS_SECRET_ACCESS_KEY, S3_BUCKET_NAME, S3_ENDPOINT).
	S3 s3.Config

	// JWTSecret signs access and refresh tokens (JWT_SECRET).
	JWTSecret string `validate:"required"`

	// WorkerConcurrency bounds concurrent image jobs (WORKER_CONCURRENCY).
	WorkerConcurrency int `validate:"min=1"`

	// Superuser bootstrap credentials (SU_USERNAME, SU_PASSWORD).
	// When both are set the account is created at startup if missing.
	SUUsername string
	SUPassword string
}

// Load reads configuration from the environment and validates it.
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("LOG_LEVEL", "INFO")
	v.SetDefault("LOG_FORMAT", "text")
	v.SetDefault("HTTP_ADDR", ":3000")
	v.SetDefault("AWS_REGION", "us-east-1")
	v.SetDefault("WORKER_CONCURRENCY", 1)

	cfg := &Config{
		Logging: logger.Config{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
		HTTPAddr: v.GetString("HTTP_ADDR"),
		Database: store.Config{
			DSN: v.GetString("DATABASE_URL"),
		},
		S3: s3.Config{
			Region:          v.GetString("AWS_REGION"),
			Endpoint:        v.GetString("S3_ENDPOINT"),
			AccessKeyID:     v.GetString("AWS_ACCESS_KEY_ID"),
			SecretAccessKey: v.GetString("AWS_SECRET_ACCESS_KEY"),
			Bucket:          v.GetString("S3_BUCKET_NAME"),
		},
		JWTSecret:         v.GetString("JWT_SECRET"),
		WorkerConcurrency: v.GetInt("WORKER_CONCURRENCY"),
		SUUsername:        v.GetString("SU_USERNAME"),
		SUPassword:        v.GetString("SU_PASSWORD"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required settings and delegates to the component configs.
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.S3.Bucket == "" {
		return fmt.Errorf("S3_BUCKET_NAME is required")
	}

	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	c.Database.ApplyDefaults()
	if err := c.Database.Validate(); err != nil {
		return fmt.Errorf("invalid database configuration: %w", err)
	}

	c.S3.ApplyDefaults()
	if err := c.S3.Validate(); err != nil {
		return fmt.Errorf("invalid object store configuration: %w", err)
	}

	return nil
}
