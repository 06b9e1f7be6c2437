package reconciler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/CodeArtisanRiz/media-blob-kit/pkg/models"
	"github.com/CodeArtisanRiz/media-blob-kit/pkg/objectstore/memory"
	"github.com/CodeArtisanRiz/media-blob-kit/pkg/store"
	"github.com/CodeArtisanRiz/media-blob-kit/pkg/upload"
)

func createTestStore(t *testing.T) *store.GORMStore {
	t.Helper()
	st, err := store.New(&store.Config{Type: store.DatabaseTypeSQLite, DSN: ":memory:"})
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func createTestProject(t *testing.T, st *store.GORMStore, name string) *models.Project {
	t.Helper()
	owner := &models.User{Username: name + "-owner", PasswordHash: "x", Role: string(models.RoleAdmin)}
	if _, err := st.CreateUser(context.Background(), owner); err != nil {
		t.Fatalf("failed to create owner: %v", err)
	}
	project := &models.Project{
		OwnerID: owner.ID,
		Name:    name,
		Settings: models.ProjectSettings{
			Variants: map[string]models.VariantConfig{
				"thumb": {Width: 32, Height: 32, Fit: "cover", Format: "webp"},
			},
		},
	}
	if _, err := st.CreateProject(context.Background(), project); err != nil {
		t.Fatalf("failed to create project: %v", err)
	}
	return project
}

func TestPurgeExpired(t *testing.T) {
	st := createTestStore(t)
	objects := memory.New("media")
	pipeline := upload.New(st, objects, nil)
	ctx := context.Background()

	doomed := createTestProject(t, st, "Doomed")
	survivor := createTestProject(t, st, "Survivor")

	file, _, err := pipeline.UploadImage(ctx, doomed, &upload.Upload{
		Filename: "a.png", MimeType: "image/png", Data: []byte("png-bytes"),
	})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	// Simulate the worker having produced a variant.
	variantKey := "doomed-" + doomed.ID + "/images/thumb/" + file.ID + ".webp"
	if err := objects.Put(ctx, variantKey, []byte("webp-bytes"), "image/webp"); err != nil {
		t.Fatalf("put variant: %v", err)
	}
	if err := st.SetFileReady(ctx, file.ID, models.VariantsMap{"thumb": variantKey}); err != nil {
		t.Fatalf("set ready: %v", err)
	}

	base := time.Now()
	if err := st.SoftDeleteProject(ctx, doomed.ID, base); err != nil {
		t.Fatalf("soft delete: %v", err)
	}

	r := New(st, objects, nil)

	// Inside the grace period nothing is purged.
	r.SetClock(func() time.Time { return base.Add(29 * 24 * time.Hour) })
	purged, err := r.PurgeExpired(ctx)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if purged != 0 {
		t.Fatalf("purged %d projects inside grace period", purged)
	}

	// Past 30 days the project, its rows and its objects all go.
	r.SetClock(func() time.Time { return base.Add(31 * 24 * time.Hour) })
	purged, err = r.PurgeExpired(ctx)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if purged != 1 {
		t.Fatalf("purged %d projects, want 1", purged)
	}

	if _, err := st.GetProject(ctx, doomed.ID); !errors.Is(err, models.ErrProjectNotFound) {
		t.Errorf("doomed project still present: %v", err)
	}
	if _, err := st.GetFile(ctx, file.ID); !errors.Is(err, models.ErrFileNotFound) {
		t.Errorf("doomed file still present: %v", err)
	}
	if objects.Exists(file.S3Key) || objects.Exists(variantKey) {
		t.Error("objects survived the purge")
	}

	// The live project is untouched.
	if _, err := st.GetLiveProject(ctx, survivor.ID); err != nil {
		t.Errorf("survivor gone: %v", err)
	}

	// A second sweep finds nothing; the purge is idempotent.
	purged, err = r.PurgeExpired(ctx)
	if err != nil {
		t.Fatalf("second purge: %v", err)
	}
	if purged != 0 {
		t.Errorf("second sweep purged %d projects", purged)
	}
}

func TestPurgeResolvesStoredURLs(t *testing.T) {
	st := createTestStore(t)
	objects := memory.New("media")
	ctx := context.Background()

	project := createTestProject(t, st, "Legacy")
	key := "legacy-" + project.ID + "/images/original/f1.jpg"
	if err := objects.Put(ctx, key, []byte("jpeg"), "image/jpeg"); err != nil {
		t.Fatalf("put: %v", err)
	}
	// Older rows stored absolute URLs instead of bare keys.
	file := &models.File{
		ProjectID:   project.ID,
		S3Key:       key,
		Filename:    "f1.jpg",
		MimeType:    "image/jpeg",
		Status:      models.FileStatusReady,
		VariantsMap: models.VariantsMap{"thumb": "https://cdn.example/media/" + key},
	}
	if _, err := st.CreateFile(ctx, file); err != nil {
		t.Fatalf("create file: %v", err)
	}

	base := time.Now()
	if err := st.SoftDeleteProject(ctx, project.ID, base); err != nil {
		t.Fatalf("soft delete: %v", err)
	}

	r := New(st, objects, nil)
	r.SetClock(func() time.Time { return base.Add(31 * 24 * time.Hour) })
	if _, err := r.PurgeExpired(ctx); err != nil {
		t.Fatalf("purge: %v", err)
	}

	// Both the original key and the URL-shaped variant resolve to the same
	// object; Delete must have received the bare key for each.
	for _, deleted := range objects.Deleted {
		if deleted != key {
			t.Errorf("deleted unresolved key %q", deleted)
		}
	}
	if objects.Exists(key) {
		t.Error("object survived URL-shaped purge")
	}
}

func TestResyncProject(t *testing.T) {
	st := createTestStore(t)
	objects := memory.New("media")
	pipeline := upload.New(st, objects, nil)
	ctx := context.Background()

	project := createTestProject(t, st, "Gallery")
	if _, _, err := pipeline.UploadImage(ctx, project, &upload.Upload{
		Filename: "a.png", MimeType: "image/png", Data: []byte("png"),
	}); err != nil {
		t.Fatalf("upload: %v", err)
	}
	if _, err := pipeline.UploadFile(ctx, project, &upload.Upload{
		Filename: "doc.pdf", MimeType: "application/pdf", Data: []byte("%PDF-"),
	}); err != nil {
		t.Fatalf("upload file: %v", err)
	}

	r := New(st, objects, nil)
	job, count, err := r.ResyncProject(ctx, project.ID)
	if err != nil {
		t.Fatalf("resync: %v", err)
	}
	if count != 1 {
		t.Errorf("image count %d, want 1", count)
	}
	if job.Payload.Kind() != models.KindSyncProjectVariants {
		t.Errorf("job kind %q", job.Payload.Kind())
	}
	if job.Payload.ProjectID != project.ID {
		t.Errorf("job project %q", job.Payload.ProjectID)
	}
	if _, ok := job.Payload.VariantSet()["thumb"]; !ok {
		t.Error("resync payload missing settings snapshot")
	}
}

func TestResyncDeletedProject(t *testing.T) {
	st := createTestStore(t)
	objects := memory.New("media")
	ctx := context.Background()

	project := createTestProject(t, st, "Gone")
	if err := st.SoftDeleteProject(ctx, project.ID, time.Now()); err != nil {
		t.Fatalf("soft delete: %v", err)
	}

	r := New(st, objects, nil)
	if _, _, err := r.ResyncProject(ctx, project.ID); !errors.Is(err, models.ErrProjectNotFound) {
		t.Fatalf("expected ErrProjectNotFound, got %v", err)
	}
}
