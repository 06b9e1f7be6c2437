// Package objectstore defines the typed interface over S3-compatible object
// storage plus the key grammar and URL-or-key resolver shared by the upload
// pipeline, the worker and the reconciler.
package objectstore

import (
	"context"
	"errors"
	"time"
)

// ErrObjectNotFound is returned by Get and Head for missing keys.
var ErrObjectNotFound = errors.New("object not found")

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	Key         string
	Size        int64
	ContentType string
}

// Store is the object storage contract.
//
// Put must not fail silently on partial upload. Delete during cleanup is
// best-effort at the caller level; the store itself reports errors and the
// caller decides whether to swallow them.
type Store interface {
	// Put stores data under key with the given content type. Objects are
	// written with a public-read ACL so public URLs work unsigned.
	Put(ctx context.Context, key string, data []byte, contentType string) error

	// Get downloads the full object.
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete removes the object. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Head returns object metadata without the body.
	Head(ctx context.Context, key string) (*ObjectInfo, error)

	// HeadBucket probes bucket existence and access.
	HeadBucket(ctx context.Context) error

	// EnsureBucket is idempotent: it probes the bucket, creates it when
	// absent and installs the public-read object policy.
	EnsureBucket(ctx context.Context) error

	// PresignGet issues a time-limited signed GET URL for the key.
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)

	// Resolve maps a stored variant value, bare key or absolute URL, to
	// the bare object key.
	Resolve(value string) string

	// Bucket returns the configured bucket name.
	Bucket() string
}
