package services

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/japanesestudent/course-authoring/internal/models"
	"github.com/japanesestudent/course-authoring/internal/storage"
	"go.uber.org/zap"
)

// CourseEditorRepository defines the interface for course edit data access
type CourseEditorRepository interface {
	// FetchForEdit loads a course for editing.
	//
	// "ctx" is the context for the request.
	// "courseID" is the identifier of the course.
	//
	// Returns the course with its tags and ordered media, or an error.
	FetchForEdit(ctx context.Context, courseID int) (*models.CourseSeed, error)
	// ApplyUpdate writes a course update atomically.
	//
	// "ctx" is the context for the request.
	// "update" is the update to apply.
	//
	// Returns the media identifiers keyed by LocalID, or an error.
	ApplyUpdate(ctx context.Context, update *models.CourseRecordUpdate) (map[string]int, error)
}

// FileStore defines the interface for persistent course asset storage
type FileStore interface {
	// Save stores the content of "r" under "id" in the "kind" namespace
	Save(ctx context.Context, id, kind string, r io.Reader, size int64, contentType string) error
	// Delete removes a stored file
	Delete(ctx context.Context, id, kind string) error
	// URL returns the public URL of a stored file
	URL(id, kind string) string
}

type courseUpdater struct {
	repo   CourseEditorRepository
	store  FileStore
	logger *zap.Logger
}

// NewCourseUpdater creates the collaborator that persists authoring sessions
func NewCourseUpdater(repo CourseEditorRepository, store FileStore, logger *zap.Logger) *courseUpdater {
	return &courseUpdater{
		repo:   repo,
		store:  store,
		logger: logger,
	}
}

// storedFile is a file uploaded by an update that is not yet committed
type storedFile struct {
	id   string
	kind string
}

// UpdateCourse uploads the new files of an update and writes the update in one transaction.
// Uploaded files are deleted again when any step fails.
func (u *courseUpdater) UpdateCourse(ctx context.Context, req *models.UpdateCourseRequest) (*models.UpdateCourseResult, error) {
	var uploaded []storedFile
	success := false
	defer func() {
		if !success {
			u.discard(uploaded)
		}
	}()

	upload := func(f models.LocalFile, kind string) (string, error) {
		id, err := u.upload(ctx, f, kind)
		if err != nil {
			return "", err
		}
		uploaded = append(uploaded, storedFile{id: id, kind: kind})
		return u.store.URL(id, kind), nil
	}

	record := &models.CourseRecordUpdate{
		CourseID:        req.CourseID,
		Metadata:        req.Metadata,
		Status:          req.Status,
		RemovedMediaIDs: req.RemovedMediaIDs,
		Media:           make([]models.MediaRecord, len(req.Media)),
	}
	for i, m := range req.Media {
		rec := models.MediaRecord{
			LocalID:         m.LocalID,
			ID:              m.PersistedID,
			Position:        m.Position,
			Title:           m.Title,
			Description:     m.Description,
			DurationSeconds: m.DurationSeconds,
			SourceURL:       m.SourceRef,
			ThumbnailURL:    m.ThumbnailRef,
		}
		if m.PersistedID == nil {
			if m.SourceFile == nil {
				return nil, fmt.Errorf("media %q has neither an identifier nor a source file", m.Title)
			}
			url, err := upload(m.SourceFile, storage.KindCourseMedia)
			if err != nil {
				return nil, err
			}
			rec.SourceURL = url
		}
		if m.ThumbnailFile != nil {
			url, err := upload(m.ThumbnailFile, storage.KindCourseThumbnail)
			if err != nil {
				return nil, err
			}
			rec.ThumbnailURL = url
		}
		record.Media[i] = rec
	}

	result := &models.UpdateCourseResult{Media: make(map[string]models.CommittedMedia, len(req.Media))}
	if req.CoverFile != nil {
		url, err := upload(req.CoverFile, storage.KindCourseCover)
		if err != nil {
			return nil, err
		}
		record.CoverURL = &url
		result.CoverRef = url
	}

	ids, err := u.repo.ApplyUpdate(ctx, record)
	if err != nil {
		u.logger.Error("failed to apply course update", zap.Int("course_id", req.CourseID), zap.Error(err))
		return nil, fmt.Errorf("failed to apply course update: %w", err)
	}
	success = true

	for _, rec := range record.Media {
		result.Media[rec.LocalID] = models.CommittedMedia{
			ID:           ids[rec.LocalID],
			SourceRef:    rec.SourceURL,
			ThumbnailRef: rec.ThumbnailURL,
		}
	}

	u.logger.Info("course updated",
		zap.Int("course_id", req.CourseID),
		zap.String("status", string(req.Status)),
		zap.Int("media", len(record.Media)),
		zap.Int("removed", len(req.RemovedMediaIDs)),
		zap.Int("uploaded", len(uploaded)),
	)
	return result, nil
}

// upload copies a local file into the store under a new generated name
func (u *courseUpdater) upload(ctx context.Context, f models.LocalFile, kind string) (string, error) {
	ext := filepath.Ext(f.Name())
	if ext == "" {
		ext = storage.ExtensionFor(f.ContentType())
	}
	id := storage.GenerateFileName(ext)

	r, err := f.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", f.Name(), err)
	}
	defer r.Close()

	if err := u.store.Save(ctx, id, kind, r, f.Size(), f.ContentType()); err != nil {
		u.logger.Error("failed to upload file", zap.String("file", f.Name()), zap.String("kind", kind), zap.Error(err))
		return "", fmt.Errorf("failed to upload %s: %w", f.Name(), err)
	}
	return id, nil
}

// discard removes files uploaded by a failed update
func (u *courseUpdater) discard(files []storedFile) {
	for _, f := range files {
		if err := u.store.Delete(context.Background(), f.id, f.kind); err != nil {
			u.logger.Warn("failed to delete uploaded file", zap.String("id", f.id), zap.String("kind", f.kind), zap.Error(err))
		}
	}
}
