// Package authoring implements the course authoring session: the client-held
// editing state of one course, its change detection, validation and commit flow.
package authoring

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/japanesestudent/course-authoring/internal/models"
	"go.uber.org/zap"
)

// CourseUpdater is the remote collaborator that persists a course update
type CourseUpdater interface {
	// UpdateCourse applies a differential update to a course.
	//
	// "ctx" is the context for the request.
	// "req" is the assembled update. Media entries without PersistedID are new and
	// carry their local SourceFile; a nil CoverFile keeps the existing cover.
	//
	// Returns the identities and references allocated for new items, or an error.
	// On error nothing must have been applied.
	UpdateCourse(ctx context.Context, req *models.UpdateCourseRequest) (*models.UpdateCourseResult, error)
}

// Limits of an authoring session
const (
	MaxMediaItems    = 20
	MaxMediaFileSize = 500 * 1024 * 1024
	MaxTags          = 10
	MaxTagLength     = 50
)

// Session is the authoring state of one course edit. All methods are safe for
// concurrent use; mutations are serialized by an internal mutex.
type Session struct {
	mu sync.Mutex

	courseID        int
	status          models.LifecycleStatus
	metadata        models.CourseMetadata
	cover           models.ImageRef
	media           []models.MediaItem
	pendingRemovals []int
	selectedIndex   int
	base            snapshot

	committing bool
	closed     bool
	inFlight   map[models.LocalFile]struct{}
	deferred   []models.LocalFile

	updater  CourseUpdater
	pipeline *DurationPipeline
	logger   *zap.Logger

	probeCtx     context.Context
	cancelProbes context.CancelFunc
	probes       sync.WaitGroup
}

// NewSession creates an authoring session from a fetched course.
//
// "pipeline" may be nil, in which case new media keep a zero duration.
func NewSession(seed *models.CourseSeed, updater CourseUpdater, pipeline *DurationPipeline, logger *zap.Logger) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		courseID:     seed.CourseID,
		status:       seed.Status,
		metadata:     seed.Metadata.Clone(),
		cover:        models.ImageRef{Ref: seed.CoverRef},
		updater:      updater,
		pipeline:     pipeline,
		logger:       logger,
		probeCtx:     ctx,
		cancelProbes: cancel,
	}
	if s.status == "" {
		s.status = models.LifecycleStatusDraft
	}
	if s.metadata.Language == "" {
		s.metadata.Language = models.DefaultLanguage
	}

	s.media = make([]models.MediaItem, 0, len(seed.Media))
	for _, m := range seed.Media {
		id := m.ID
		s.media = append(s.media, models.MediaItem{
			LocalID:         uuid.NewString(),
			PersistedID:     &id,
			Title:           m.Title,
			Description:     m.Description,
			DurationSeconds: m.DurationSeconds,
			Thumbnail:       models.ImageRef{Ref: m.ThumbnailRef},
			Source:          models.MediaSource{Ref: m.SourceRef},
		})
	}

	s.base = s.captureLocked()
	return s
}

// CourseID returns the identifier of the edited course
func (s *Session) CourseID() int {
	return s.courseID
}

// Status returns the current lifecycle status
func (s *Session) Status() models.LifecycleStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Metadata returns a copy of the current metadata
func (s *Session) Metadata() models.CourseMetadata {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.metadata.Clone()
}

// Media returns a copy of the current media list
func (s *Session) Media() []models.MediaItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.CloneMediaItems(s.media)
}

// Cover returns the current cover
func (s *Session) Cover() models.ImageRef {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cover
}

// PendingRemovals returns the persisted media IDs marked for deletion
func (s *Session) PendingRemovals() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.pendingRemovals)
}

// SelectedIndex returns the index of the media item under inspection
func (s *Session) SelectedIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectedIndex
}

// View returns the API representation of the session
func (s *Session) View() models.SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]models.MediaItemView, len(s.media))
	for i, item := range s.media {
		items[i] = models.NewMediaItemView(item)
	}
	removals := slices.Clone(s.pendingRemovals)
	if removals == nil {
		removals = []int{}
	}

	return models.SessionView{
		CourseID:        s.courseID,
		Status:          s.status,
		Metadata:        s.metadata.Clone(),
		CoverRef:        s.cover.Ref,
		HasNewCover:     s.cover.IsNew(),
		Media:           items,
		PendingRemovals: removals,
		SelectedIndex:   s.selectedIndex,
		Dirty:           s.isDirtyLocked(),
		CommitInFlight:  s.committing,
		Summary:         models.SummarizeDuration(s.media),
	}
}

// Close discards the session: outstanding duration probes are cancelled and
// every local file handle still owned by the session is released.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.cancelProbes()
	s.probes.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range s.media {
		s.releaseFile(item.Source.File)
		s.releaseFile(item.Thumbnail.File)
	}
	s.releaseFile(s.cover.File)
}

// releaseFile frees a local file handle, logging failures. Files read by an
// in-flight commit are released when the commit resolves.
func (s *Session) releaseFile(f models.LocalFile) {
	if f == nil {
		return
	}
	if _, busy := s.inFlight[f]; busy {
		s.deferRelease(f)
		return
	}
	if err := f.Release(); err != nil {
		s.logger.Warn("failed to release local file", zap.String("file", f.Name()), zap.Error(err))
	}
}

// indexOf returns the position of the media item with the given local ID or -1
func (s *Session) indexOf(localID string) int {
	return slices.IndexFunc(s.media, func(m models.MediaItem) bool {
		return m.LocalID == localID
	})
}
