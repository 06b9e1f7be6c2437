// Package upload implements the ingest pipeline: multipart body in, object
// stored, file row written, processing job enqueued.
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/CodeArtisanRiz/media-blob-kit/internal/logger"
	"github.com/CodeArtisanRiz/media-blob-kit/pkg/metrics"
	"github.com/CodeArtisanRiz/media-blob-kit/pkg/models"
	"github.com/CodeArtisanRiz/media-blob-kit/pkg/objectstore"
	"github.com/CodeArtisanRiz/media-blob-kit/pkg/store"
)

// ErrNotAnImage is returned by UploadImage for non-image content types.
var ErrNotAnImage = errors.New("content type is not an image")

// ErrMissingFile is returned when the multipart body has no "file" field.
var ErrMissingFile = errors.New("multipart field 'file' is required")

// maxUploadMemory bounds the in-memory portion of multipart parsing.
// Larger bodies spill to temp files; they are still fully buffered before
// the S3 put (streaming uploads are out of scope).
const maxUploadMemory = 32 << 20 // 32 MiB

// Upload is one extracted multipart file.
type Upload struct {
	Filename string
	MimeType string
	Data     []byte
}

// Pipeline wires the object store, the relational store and the job queue.
type Pipeline struct {
	store   *store.GORMStore
	objects objectstore.Store
	metrics *metrics.Metrics
}

// New creates an upload pipeline.
func New(st *store.GORMStore, objects objectstore.Store, m *metrics.Metrics) *Pipeline {
	return &Pipeline{
		store:   st,
		objects: objects,
		metrics: m,
	}
}

// FromRequest extracts the "file" field from a multipart request.
func FromRequest(r *http.Request) (*Upload, error) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		return nil, fmt.Errorf("failed to parse multipart body: %w", err)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, ErrMissingFile
		}
		return nil, fmt.Errorf("failed to read file field: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to buffer upload: %w", err)
	}

	return &Upload{
		Filename: header.Filename,
		MimeType: contentType(header),
		Data:     data,
	}, nil
}

// contentType reads the part's declared content type, defaulting to
// octet-stream.
func contentType(header *multipart.FileHeader) string {
	ct := header.Header.Get("Content-Type")
	if ct == "" {
		return "application/octet-stream"
	}
	return ct
}

// UploadImage stores an original image, writes its file row with status
// processing and enqueues the derivation job carrying a snapshot of the
// project's current variant configuration. Non-image content types are
// rejected.
func (p *Pipeline) UploadImage(ctx context.Context, project *models.Project, up *Upload) (*models.File, *models.Job, error) {
	if !strings.Contains(up.MimeType, "image") {
		return nil, nil, ErrNotAnImage
	}

	if err := p.objects.EnsureBucket(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to ensure bucket: %w", err)
	}

	fileID := uuid.New().String()
	prefix := objectstore.ProjectPrefix(project.Name, project.ID)
	ext := objectstore.ExtensionForMIME(up.MimeType)
	key := objectstore.OriginalImageKey(prefix, fileID, ext)

	if err := p.objects.Put(ctx, key, up.Data, up.MimeType); err != nil {
		return nil, nil, fmt.Errorf("failed to store original: %w", err)
	}

	file := &models.File{
		ID:        fileID,
		ProjectID: project.ID,
		S3Key:     key,
		Filename:  up.Filename,
		MimeType:  up.MimeType,
		SizeBytes: int64(len(up.Data)),
		Status:    models.FileStatusProcessing,
	}
	if _, err := p.store.CreateFile(ctx, file); err != nil {
		return nil, nil, fmt.Errorf("failed to create file row: %w", err)
	}

	// Snapshot the variants so later settings changes do not mutate jobs
	// already in flight.
	job, err := p.store.EnqueueJob(ctx, file.ID, models.JobPayload{
		Variants: project.Settings.Variants,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to enqueue processing job: %w", err)
	}

	p.metrics.ObserveUpload("image")
	logger.Info("image uploaded",
		"file_id", file.ID,
		"project_id", project.ID,
		"key", key,
		"bytes", file.SizeBytes,
		"job_id", job.ID)

	return file, job, nil
}

// UploadFile stores an arbitrary file. No processing happens, so the row
// is ready immediately and no job is enqueued.
func (p *Pipeline) UploadFile(ctx context.Context, project *models.Project, up *Upload) (*models.File, error) {
	if err := p.objects.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure bucket: %w", err)
	}

	fileID := uuid.New().String()
	prefix := objectstore.ProjectPrefix(project.Name, project.ID)
	ext := objectstore.ExtensionForFilename(up.Filename, up.MimeType)
	key := objectstore.RawFileKey(prefix, fileID, ext)

	if err := p.objects.Put(ctx, key, up.Data, up.MimeType); err != nil {
		return nil, fmt.Errorf("failed to store file: %w", err)
	}

	file := &models.File{
		ID:        fileID,
		ProjectID: project.ID,
		S3Key:     key,
		Filename:  up.Filename,
		MimeType:  up.MimeType,
		SizeBytes: int64(len(up.Data)),
		Status:    models.FileStatusReady,
	}
	if _, err := p.store.CreateFile(ctx, file); err != nil {
		return nil, fmt.Errorf("failed to create file row: %w", err)
	}

	p.metrics.ObserveUpload("file")
	logger.Info("file uploaded",
		"file_id", file.ID,
		"project_id", project.ID,
		"key", key,
		"bytes", file.SizeBytes)

	return file, nil
}
