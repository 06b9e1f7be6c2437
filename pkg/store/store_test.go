package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/CodeArtisanRiz/media-blob-kit/pkg/models"
)

// createTestStore creates an in-memory SQLite store for testing.
func createTestStore(t *testing.T) *GORMStore {
	t.Helper()
	store, err := New(&Config{
		Type: DatabaseTypeSQLite,
		DSN:  ":memory:",
	})
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func createTestOwner(t *testing.T, store *GORMStore, username string) *models.User {
	t.Helper()
	owner := &models.User{
		Username:     username,
		PasswordHash: "x",
		Role:         string(models.RoleAdmin),
	}
	if _, err := store.CreateUser(context.Background(), owner); err != nil {
		t.Fatalf("failed to create owner: %v", err)
	}
	return owner
}

func createTestProject(t *testing.T, store *GORMStore, name string) *models.Project {
	t.Helper()
	owner := createTestOwner(t, store, name+"-owner")
	project := &models.Project{
		OwnerID: owner.ID,
		Name:    name,
		Settings: models.ProjectSettings{
			Variants: map[string]models.VariantConfig{
				"thumb": {Width: 64, Height: 64, Fit: "cover", Format: "webp"},
			},
		},
	}
	if _, err := store.CreateProject(context.Background(), project); err != nil {
		t.Fatalf("failed to create project: %v", err)
	}
	return project
}

func createTestFile(t *testing.T, store *GORMStore, projectID, key, mime string) *models.File {
	t.Helper()
	file := &models.File{
		ProjectID: projectID,
		S3Key:     key,
		Filename:  "photo.png",
		MimeType:  mime,
		SizeBytes: 1024,
		Status:    models.FileStatusProcessing,
	}
	if _, err := store.CreateFile(context.Background(), file); err != nil {
		t.Fatalf("failed to create file: %v", err)
	}
	return file
}

func TestNew(t *testing.T) {
	t.Run("default config uses sqlite", func(t *testing.T) {
		config := &Config{}
		config.ApplyDefaults()

		if config.Type != DatabaseTypeSQLite {
			t.Errorf("expected SQLite, got %s", config.Type)
		}
	})

	t.Run("postgres inferred from url", func(t *testing.T) {
		config := &Config{DSN: "postgres://u:p@localhost/mediablob"}
		config.ApplyDefaults()

		if config.Type != DatabaseTypePostgres {
			t.Errorf("expected postgres, got %s", config.Type)
		}
	})

	t.Run("invalid config returns error", func(t *testing.T) {
		_, err := New(&Config{Type: "invalid"})
		if err == nil {
			t.Error("expected error for invalid config")
		}
	})
}

func TestProjectOperations(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	project := createTestProject(t, store, "My Site")

	t.Run("get project", func(t *testing.T) {
		got, err := store.GetProject(ctx, project.ID)
		if err != nil {
			t.Fatalf("failed to get project: %v", err)
		}
		if got.Name != "My Site" {
			t.Errorf("expected name 'My Site', got %q", got.Name)
		}
		if got.Settings.Variants["thumb"].Width != 64 {
			t.Errorf("settings did not round-trip: %+v", got.Settings)
		}
	})

	t.Run("get project not found", func(t *testing.T) {
		_, err := store.GetProject(ctx, "nonexistent")
		if !errors.Is(err, models.ErrProjectNotFound) {
			t.Errorf("expected ErrProjectNotFound, got %v", err)
		}
	})

	t.Run("update settings", func(t *testing.T) {
		project.Settings.Variants["large"] = models.VariantConfig{MaxWidth: 1920, MaxHeight: 1080}
		if err := store.UpdateProject(ctx, project); err != nil {
			t.Fatalf("failed to update project: %v", err)
		}

		got, _ := store.GetProject(ctx, project.ID)
		if _, ok := got.Settings.Variants["large"]; !ok {
			t.Errorf("updated settings missing variant: %+v", got.Settings)
		}
	})

	t.Run("soft delete hides project from live queries", func(t *testing.T) {
		if err := store.SoftDeleteProject(ctx, project.ID, time.Now()); err != nil {
			t.Fatalf("failed to soft delete: %v", err)
		}

		if _, err := store.GetLiveProject(ctx, project.ID); !errors.Is(err, models.ErrProjectNotFound) {
			t.Errorf("expected ErrProjectNotFound from live lookup, got %v", err)
		}

		got, err := store.GetProject(ctx, project.ID)
		if err != nil {
			t.Fatalf("raw lookup should still work: %v", err)
		}
		if got.DeletedAt == nil {
			t.Error("deleted_at not set")
		}
	})

	t.Run("soft delete twice fails", func(t *testing.T) {
		err := store.SoftDeleteProject(ctx, project.ID, time.Now())
		if !errors.Is(err, models.ErrProjectNotFound) {
			t.Errorf("expected ErrProjectNotFound on second soft delete, got %v", err)
		}
	})

	t.Run("expired projects listing", func(t *testing.T) {
		cutoff := time.Now().Add(time.Hour)
		expired, err := store.ListExpiredProjects(ctx, cutoff)
		if err != nil {
			t.Fatalf("failed to list expired: %v", err)
		}
		if len(expired) != 1 || expired[0].ID != project.ID {
			t.Errorf("expected the soft-deleted project, got %d rows", len(expired))
		}

		// A cutoff in the past must not match the fresh deletion.
		none, err := store.ListExpiredProjects(ctx, time.Now().Add(-time.Hour))
		if err != nil {
			t.Fatalf("failed to list expired: %v", err)
		}
		if len(none) != 0 {
			t.Errorf("expected no rows for old cutoff, got %d", len(none))
		}
	})
}

func TestHardDeleteCascade(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	project := createTestProject(t, store, "doomed")
	file := createTestFile(t, store, project.ID, "doomed-1/images/original/f1.png", "image/png")
	job, err := store.EnqueueJob(ctx, file.ID, models.JobPayload{
		Variants: project.Settings.Variants,
	})
	if err != nil {
		t.Fatalf("failed to enqueue: %v", err)
	}

	if err := store.HardDeleteProject(ctx, project.ID); err != nil {
		t.Fatalf("failed to hard delete: %v", err)
	}

	if _, err := store.GetProject(ctx, project.ID); !errors.Is(err, models.ErrProjectNotFound) {
		t.Errorf("project survived hard delete: %v", err)
	}
	if _, err := store.GetFile(ctx, file.ID); !errors.Is(err, models.ErrFileNotFound) {
		t.Errorf("file survived hard delete: %v", err)
	}
	if _, err := store.GetJob(ctx, job.ID); !errors.Is(err, models.ErrJobNotFound) {
		t.Errorf("job survived hard delete: %v", err)
	}
}

func TestEnqueueProjectScopeJob(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	project := createTestProject(t, store, "synced")

	// Project-wide jobs carry no file binding; the row must insert with a
	// NULL file_id rather than tripping the jobs -> files foreign key.
	job, err := store.EnqueueJob(ctx, "", models.JobPayload{
		Type:           string(models.KindSyncProjectVariants),
		ProjectID:      project.ID,
		VariantsConfig: project.Settings.Variants,
	})
	if err != nil {
		t.Fatalf("failed to enqueue project-scope job: %v", err)
	}
	if job.FileRef() != "" {
		t.Errorf("expected no file binding, got %q", job.FileRef())
	}

	got, err := store.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("failed to get job: %v", err)
	}
	if got.FileID != nil {
		t.Errorf("expected NULL file_id, got %q", *got.FileID)
	}
	if got.Payload.Kind() != models.KindSyncProjectVariants {
		t.Errorf("payload kind %q", got.Payload.Kind())
	}

	// File-bound jobs still claim first when older, and the binding survives.
	file := createTestFile(t, store, project.ID, "synced-1/images/original/f1.png", "image/png")
	bound, err := store.EnqueueJob(ctx, file.ID, models.JobPayload{Variants: project.Settings.Variants})
	if err != nil {
		t.Fatalf("failed to enqueue file job: %v", err)
	}
	if bound.FileRef() != file.ID {
		t.Errorf("file binding %q, want %q", bound.FileRef(), file.ID)
	}
}

func TestFileOperations(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	project := createTestProject(t, store, "photos")
	file := createTestFile(t, store, project.ID, "photos-1/images/original/f1.png", "image/png")

	t.Run("duplicate key fails", func(t *testing.T) {
		dup := &models.File{
			ProjectID: project.ID,
			S3Key:     file.S3Key,
			Filename:  "other.png",
		}
		_, err := store.CreateFile(ctx, dup)
		if !errors.Is(err, models.ErrDuplicateFile) {
			t.Errorf("expected ErrDuplicateFile, got %v", err)
		}
	})

	t.Run("set ready replaces variants map", func(t *testing.T) {
		variants := models.VariantsMap{"thumb": "photos-1/images/thumb/f1.webp"}
		if err := store.SetFileReady(ctx, file.ID, variants); err != nil {
			t.Fatalf("failed to set ready: %v", err)
		}

		got, _ := store.GetFile(ctx, file.ID)
		if got.Status != models.FileStatusReady {
			t.Errorf("expected ready, got %s", got.Status)
		}
		if got.VariantsMap["thumb"] != "photos-1/images/thumb/f1.webp" {
			t.Errorf("variants map not persisted: %+v", got.VariantsMap)
		}
	})

	t.Run("image file listing filters by mime", func(t *testing.T) {
		createTestFile(t, store, project.ID, "photos-1/files/f2.bin", "application/octet-stream")

		images, err := store.ListProjectImageFiles(ctx, project.ID)
		if err != nil {
			t.Fatalf("failed to list images: %v", err)
		}
		if len(images) != 1 || images[0].ID != file.ID {
			t.Errorf("expected only the png, got %d files", len(images))
		}

		count, err := store.CountProjectImageFiles(ctx, project.ID)
		if err != nil {
			t.Fatalf("failed to count images: %v", err)
		}
		if count != 1 {
			t.Errorf("expected image count 1, got %d", count)
		}
	})

	t.Run("delete file removes jobs", func(t *testing.T) {
		job, err := store.EnqueueJob(ctx, file.ID, models.JobPayload{Variants: map[string]models.VariantConfig{}})
		if err != nil {
			t.Fatalf("failed to enqueue: %v", err)
		}
		if err := store.DeleteFile(ctx, file.ID); err != nil {
			t.Fatalf("failed to delete file: %v", err)
		}
		if _, err := store.GetJob(ctx, job.ID); !errors.Is(err, models.ErrJobNotFound) {
			t.Errorf("job survived file delete: %v", err)
		}
	})
}

func TestPagination(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	project := createTestProject(t, store, "paged")
	for i := 0; i < 15; i++ {
		createTestFile(t, store, project.ID, "paged-1/files/f"+string(rune('a'+i))+".bin", "application/pdf")
	}

	files, total, err := store.ListFiles(ctx, project.ID, Page{Number: 2, Size: 10})
	if err != nil {
		t.Fatalf("failed to list files: %v", err)
	}
	if total != 15 {
		t.Errorf("expected total 15, got %d", total)
	}
	if len(files) != 5 {
		t.Errorf("expected 5 files on page 2, got %d", len(files))
	}

	// Zero values normalize to page 1, size 10.
	files, _, err = store.ListFiles(ctx, project.ID, Page{})
	if err != nil {
		t.Fatalf("failed to list files: %v", err)
	}
	if len(files) != 10 {
		t.Errorf("expected default page size 10, got %d", len(files))
	}
}

func TestUserOperations(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	t.Run("superuser bootstrap is idempotent", func(t *testing.T) {
		created, err := store.EnsureSuperuser(ctx, "root", "hunter22")
		if err != nil {
			t.Fatalf("failed to ensure superuser: %v", err)
		}
		if !created {
			t.Error("expected first call to create the account")
		}

		created, err = store.EnsureSuperuser(ctx, "root", "hunter22")
		if err != nil {
			t.Fatalf("second ensure failed: %v", err)
		}
		if created {
			t.Error("expected second call to be a no-op")
		}
	})

	t.Run("validate credentials", func(t *testing.T) {
		user, err := store.ValidateCredentials(ctx, "root", "hunter22")
		if err != nil {
			t.Fatalf("expected valid credentials: %v", err)
		}
		if !user.IsSuperuser() {
			t.Errorf("expected su role, got %q", user.Role)
		}

		if _, err := store.ValidateCredentials(ctx, "root", "wrong"); !errors.Is(err, models.ErrInvalidCredentials) {
			t.Errorf("expected ErrInvalidCredentials, got %v", err)
		}
		if _, err := store.ValidateCredentials(ctx, "ghost", "x"); !errors.Is(err, models.ErrInvalidCredentials) {
			t.Errorf("unknown user should map to ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("duplicate username fails", func(t *testing.T) {
		_, err := store.CreateUser(ctx, &models.User{Username: "root", PasswordHash: "x"})
		if !errors.Is(err, models.ErrDuplicateUser) {
			t.Errorf("expected ErrDuplicateUser, got %v", err)
		}
	})
}

func TestApiKeyOperations(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	project := createTestProject(t, store, "keyed")

	key, plaintext, err := store.CreateApiKey(ctx, project.ID, "ci", nil)
	if err != nil {
		t.Fatalf("failed to create api key: %v", err)
	}
	if plaintext == "" {
		t.Fatal("expected plaintext key")
	}

	t.Run("lookup by hash", func(t *testing.T) {
		got, err := store.GetApiKeyByHash(ctx, HashApiKey(plaintext))
		if err != nil {
			t.Fatalf("failed to look up key: %v", err)
		}
		if got.ProjectID != project.ID {
			t.Errorf("key bound to wrong project: %q", got.ProjectID)
		}
	})

	t.Run("unknown hash", func(t *testing.T) {
		_, err := store.GetApiKeyByHash(ctx, HashApiKey("not-a-key"))
		if !errors.Is(err, models.ErrApiKeyNotFound) {
			t.Errorf("expected ErrApiKeyNotFound, got %v", err)
		}
	})

	t.Run("deactivated key rejected", func(t *testing.T) {
		if err := store.SetApiKeyActive(ctx, key.ID, false); err != nil {
			t.Fatalf("failed to deactivate: %v", err)
		}
		_, err := store.GetApiKeyByHash(ctx, HashApiKey(plaintext))
		if !errors.Is(err, models.ErrApiKeyInactive) {
			t.Errorf("expected ErrApiKeyInactive, got %v", err)
		}
	})

	t.Run("reactivated key accepted", func(t *testing.T) {
		if err := store.SetApiKeyActive(ctx, key.ID, true); err != nil {
			t.Fatalf("failed to reactivate: %v", err)
		}
		if _, err := store.GetApiKeyByHash(ctx, HashApiKey(plaintext)); err != nil {
			t.Errorf("reactivated key rejected: %v", err)
		}
	})

	t.Run("expired key rejected", func(t *testing.T) {
		past := time.Now().Add(-time.Hour)
		_, expiredPlaintext, err := store.CreateApiKey(ctx, project.ID, "old", &past)
		if err != nil {
			t.Fatalf("failed to create expired key: %v", err)
		}
		_, err = store.GetApiKeyByHash(ctx, HashApiKey(expiredPlaintext))
		if !errors.Is(err, models.ErrApiKeyInactive) {
			t.Errorf("expected ErrApiKeyInactive, got %v", err)
		}
	})
}

func TestRefreshTokenOperations(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	if _, err := store.CreateUser(ctx, &models.User{ID: "u1", Username: "alice", PasswordHash: "x"}); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	if _, err := store.CreateRefreshToken(ctx, "u1", "hash-1", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("failed to create token: %v", err)
	}

	t.Run("lookup", func(t *testing.T) {
		token, err := store.GetRefreshToken(ctx, "hash-1")
		if err != nil {
			t.Fatalf("failed to get token: %v", err)
		}
		if token.UserID != "u1" {
			t.Errorf("token bound to wrong user: %q", token.UserID)
		}
	})

	t.Run("expired token is not found", func(t *testing.T) {
		if _, err := store.CreateRefreshToken(ctx, "u1", "hash-old", time.Now().Add(-time.Minute)); err != nil {
			t.Fatalf("failed to create token: %v", err)
		}
		_, err := store.GetRefreshToken(ctx, "hash-old")
		if !errors.Is(err, models.ErrRefreshTokenNotFound) {
			t.Errorf("expected ErrRefreshTokenNotFound, got %v", err)
		}
	})

	t.Run("rotation consumes token", func(t *testing.T) {
		if err := store.DeleteRefreshToken(ctx, "hash-1"); err != nil {
			t.Fatalf("failed to delete token: %v", err)
		}
		if _, err := store.GetRefreshToken(ctx, "hash-1"); !errors.Is(err, models.ErrRefreshTokenNotFound) {
			t.Errorf("expected ErrRefreshTokenNotFound, got %v", err)
		}
	})
}
