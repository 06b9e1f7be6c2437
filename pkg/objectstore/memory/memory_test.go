package memory

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/CodeArtisanRiz/media-blob-kit/pkg/objectstore"
)

func TestPutGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := New("media")

	data := []byte("png bytes")
	if err := store.Put(ctx, "p-1/images/original/f1.png", data, "image/png"); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := store.Get(ctx, "p-1/images/original/f1.png")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("round trip mismatch: %q", got)
	}

	info, err := store.Head(ctx, "p-1/images/original/f1.png")
	if err != nil {
		t.Fatalf("head: %v", err)
	}
	if info.ContentType != "image/png" || info.Size != int64(len(data)) {
		t.Errorf("head info: %+v", info)
	}
}

func TestMissingObject(t *testing.T) {
	ctx := context.Background()
	store := New("media")

	if _, err := store.Get(ctx, "nope"); !errors.Is(err, objectstore.ErrObjectNotFound) {
		t.Errorf("expected ErrObjectNotFound, got %v", err)
	}
	if _, err := store.Head(ctx, "nope"); !errors.Is(err, objectstore.ErrObjectNotFound) {
		t.Errorf("expected ErrObjectNotFound, got %v", err)
	}
}

func TestDeleteIsBestEffortFriendly(t *testing.T) {
	ctx := context.Background()
	store := New("media")

	if err := store.Put(ctx, "k1", []byte("x"), "text/plain"); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := store.Delete(ctx, "k1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	// Missing keys delete cleanly, like S3.
	if err := store.Delete(ctx, "k1"); err != nil {
		t.Fatalf("second delete: %v", err)
	}
	if len(store.Deleted) != 2 {
		t.Errorf("expected 2 recorded deletes, got %d", len(store.Deleted))
	}
}

func TestEnsureBucketIdempotent(t *testing.T) {
	ctx := context.Background()
	store := New("media")

	if err := store.HeadBucket(ctx); err == nil {
		t.Error("expected missing bucket before ensure")
	}

	if err := store.EnsureBucket(ctx); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if err := store.EnsureBucket(ctx); err != nil {
		t.Fatalf("second ensure: %v", err)
	}
	if err := store.HeadBucket(ctx); err != nil {
		t.Errorf("head after ensure: %v", err)
	}
	if !store.PolicyInstalled() {
		t.Error("policy not installed after ensure")
	}
}

func TestPresignGet(t *testing.T) {
	store := New("media")
	url, err := store.PresignGet(context.Background(), "a/b/c.jpg", time.Hour)
	if err != nil {
		t.Fatalf("presign: %v", err)
	}
	if url != "https://media.example/a/b/c.jpg?X-Amz-Expires=3600" {
		t.Errorf("unexpected url: %q", url)
	}
}
