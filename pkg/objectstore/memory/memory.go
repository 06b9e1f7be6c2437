// Package memory implements objectstore.Store in process memory.
// It backs the worker, reconciler and pipeline tests.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/CodeArtisanRiz/media-blob-kit/pkg/objectstore"
)

type object struct {
	data        []byte
	contentType string
}

// Store is an in-memory objectstore.Store. Safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	bucket  string
	objects map[string]object

	bucketExists    bool
	policyInstalled bool

	// Deleted records every key passed to Delete, in order.
	// Tests assert cleanup behavior against it.
	Deleted []string
}

// New creates an empty in-memory store for the given bucket name.
func New(bucket string) *Store {
	return &Store{
		bucket:  bucket,
		objects: make(map[string]object),
	}
}

// Bucket returns the configured bucket name.
func (s *Store) Bucket() string {
	return s.bucket
}

// Put stores the object.
func (s *Store) Put(_ context.Context, key string, data []byte, contentType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	buf := make([]byte, len(data))
	copy(buf, data)
	s.objects[key] = object{data: buf, contentType: contentType}
	return nil
}

// Get downloads the object.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[key]
	if !ok {
		return nil, fmt.Errorf("get %q: %w", key, objectstore.ErrObjectNotFound)
	}
	buf := make([]byte, len(obj.data))
	copy(buf, obj.data)
	return buf, nil
}

// Delete removes the object and records the key. Missing keys are not an
// error, matching S3 semantics.
func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	s.Deleted = append(s.Deleted, key)
	return nil
}

// Head returns object metadata.
func (s *Store) Head(_ context.Context, key string) (*objectstore.ObjectInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[key]
	if !ok {
		return nil, fmt.Errorf("head %q: %w", key, objectstore.ErrObjectNotFound)
	}
	return &objectstore.ObjectInfo{
		Key:         key,
		Size:        int64(len(obj.data)),
		ContentType: obj.contentType,
	}, nil
}

// HeadBucket reports whether EnsureBucket has run.
func (s *Store) HeadBucket(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.bucketExists {
		return fmt.Errorf("bucket %q does not exist", s.bucket)
	}
	return nil
}

// EnsureBucket creates the bucket and marks the public-read policy
// installed. Idempotent.
func (s *Store) EnsureBucket(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bucketExists = true
	s.policyInstalled = true
	return nil
}

// PolicyInstalled reports whether the public-read policy is in place.
func (s *Store) PolicyInstalled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.policyInstalled
}

// PresignGet returns a deterministic fake signed URL. S3 presigns missing
// keys without complaint, so no existence check here either.
func (s *Store) PresignGet(_ context.Context, key string, ttl time.Duration) (string, error) {
	return fmt.Sprintf("https://%s.example/%s?X-Amz-Expires=%d", s.bucket, key, int(ttl.Seconds())), nil
}

// Resolve maps a stored variant value to a bare object key.
func (s *Store) Resolve(value string) string {
	return objectstore.ResolveKey(s.bucket, value)
}

// Exists reports whether the key holds an object.
func (s *Store) Exists(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.objects[key]
	return ok
}

// Len returns the number of stored objects.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
