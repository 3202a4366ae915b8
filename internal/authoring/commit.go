package authoring

import (
	"context"
	"fmt"
	"slices"

	"github.com/japanesestudent/course-authoring/internal/models"
	"go.uber.org/zap"
)

// assembleUpdate builds the differential update for the given state. It performs
// no validation. The cover file is included only when a new one was chosen.
func assembleUpdate(courseID int, meta models.CourseMetadata, media []models.MediaItem, removals []int, cover models.ImageRef, target models.LifecycleStatus) *models.UpdateCourseRequest {
	req := &models.UpdateCourseRequest{
		CourseID:        courseID,
		Metadata:        meta.Clone(),
		Status:          target,
		Media:           make([]models.MediaUpdate, len(media)),
		RemovedMediaIDs: slices.Clone(removals),
	}
	if req.RemovedMediaIDs == nil {
		req.RemovedMediaIDs = []int{}
	}
	if cover.IsNew() {
		req.CoverFile = cover.File
	}

	for i, item := range media {
		update := models.MediaUpdate{
			LocalID:         item.LocalID,
			Position:        i,
			Title:           item.Title,
			Description:     item.Description,
			DurationSeconds: item.DurationSeconds,
			SourceRef:       item.Source.Ref,
			ThumbnailRef:    item.Thumbnail.Ref,
			ThumbnailFile:   item.Thumbnail.File,
		}
		if item.PersistedID != nil {
			id := *item.PersistedID
			update.PersistedID = &id
		} else {
			update.SourceFile = item.Source.File
		}
		req.Media[i] = update
	}
	return req
}

// Commit persists the session through the given intent.
//
// The intent must be valid from the current lifecycle status, its validation gate
// must pass and the session must be dirty; otherwise no remote call is issued.
// Validation failures return a result carrying the field errors together with
// ErrValidationFailed. While a commit is in flight every further commit is
// refused with ErrCommitInFlight and leaves the session untouched.
//
// On a remote failure the session keeps its state and the error wraps ErrCommitFailed.
// On success the status moves to the intent's target and the snapshot is re-baselined
// to the committed state.
func (s *Session) Commit(ctx context.Context, intent models.CommitIntent) (*models.CommitResult, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrSessionClosed
	}
	if s.committing {
		s.mu.Unlock()
		return nil, ErrCommitInFlight
	}
	rule, err := ruleFor(intent, s.status)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if errs := s.validateTierLocked(rule.tier); len(errs) > 0 {
		status := s.status
		s.mu.Unlock()
		return &models.CommitResult{Success: false, Status: status, Errors: errs}, ErrValidationFailed
	}
	if !s.isDirtyLocked() {
		status := s.status
		s.mu.Unlock()
		return &models.CommitResult{Success: false, Status: status}, ErrNoChanges
	}

	req := assembleUpdate(s.courseID, s.metadata, s.media, s.pendingRemovals, s.cover, rule.target)
	committed := s.captureLocked()
	s.committing = true
	s.inFlight = committedFiles(req)
	s.mu.Unlock()

	result, err := s.updater.UpdateCourse(ctx, req)

	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.finishCommitLocked()

	if err != nil {
		s.logger.Error("failed to commit course",
			zap.Int("course_id", s.courseID),
			zap.String("intent", string(intent)),
			zap.Error(err),
		)
		return &models.CommitResult{Success: false, Status: s.status}, fmt.Errorf("%w: %w", ErrCommitFailed, err)
	}

	s.applyAckLocked(req, result, &committed)
	s.status = rule.target
	s.base = committed

	s.logger.Info("course committed",
		zap.Int("course_id", s.courseID),
		zap.String("intent", string(intent)),
		zap.String("status", string(s.status)),
	)
	return &models.CommitResult{Success: true, Status: s.status}, nil
}

// CommitInFlight reports whether a commit is waiting for the remote acknowledgement
func (s *Session) CommitInFlight() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.committing
}

// applyAckLocked merges the identities and references allocated by the collaborator
// into the live state and into the committed snapshot. Local files that were
// uploaded by the commit are released.
func (s *Session) applyAckLocked(req *models.UpdateCourseRequest, result *models.UpdateCourseResult, committed *snapshot) {
	if result == nil {
		result = &models.UpdateCourseResult{}
	}

	for i := range committed.media {
		item := &committed.media[i]
		ack, ok := result.Media[item.LocalID]
		if !ok {
			continue
		}
		id := ack.ID
		item.PersistedID = &id
		if item.Source.File != nil {
			item.Source = models.MediaSource{Ref: ack.SourceRef}
		}
		if item.Thumbnail.File != nil {
			item.Thumbnail = models.ImageRef{Ref: ack.ThumbnailRef}
		}
	}
	if req.CoverFile != nil {
		committed.cover = models.ImageRef{Ref: result.CoverRef}
	}

	for _, sent := range req.Media {
		ack, ok := result.Media[sent.LocalID]
		if !ok {
			continue
		}
		idx := s.indexOf(sent.LocalID)
		if idx < 0 {
			// Removed while the commit was in flight; the collaborator already stored it
			if sent.PersistedID == nil {
				s.addPendingRemoval(ack.ID)
			}
			continue
		}
		item := &s.media[idx]
		id := ack.ID
		item.PersistedID = &id
		if sent.SourceFile != nil && item.Source.File == sent.SourceFile {
			s.deferRelease(item.Source.File)
			item.Source = models.MediaSource{Ref: ack.SourceRef}
		}
		if sent.ThumbnailFile != nil && item.Thumbnail.File == sent.ThumbnailFile {
			s.deferRelease(item.Thumbnail.File)
			item.Thumbnail = models.ImageRef{Ref: ack.ThumbnailRef}
		}
	}

	if req.CoverFile != nil && s.cover.File == req.CoverFile {
		s.deferRelease(s.cover.File)
		s.cover = models.ImageRef{Ref: result.CoverRef}
	}

	s.pendingRemovals = slices.DeleteFunc(s.pendingRemovals, func(id int) bool {
		return slices.Contains(req.RemovedMediaIDs, id)
	})
}

// committedFiles collects the local files referenced by an update request
func committedFiles(req *models.UpdateCourseRequest) map[models.LocalFile]struct{} {
	files := make(map[models.LocalFile]struct{})
	add := func(f models.LocalFile) {
		if f != nil {
			files[f] = struct{}{}
		}
	}
	add(req.CoverFile)
	for _, m := range req.Media {
		add(m.SourceFile)
		add(m.ThumbnailFile)
	}
	return files
}

// deferRelease marks an in-flight file for release once the commit resolves
func (s *Session) deferRelease(f models.LocalFile) {
	if f == nil || slices.Contains(s.deferred, f) {
		return
	}
	s.deferred = append(s.deferred, f)
}

// finishCommitLocked clears the in-flight guard and releases the files that were
// dropped while the commit was running. Must be called with s.mu held.
func (s *Session) finishCommitLocked() {
	s.committing = false
	s.inFlight = nil
	deferred := s.deferred
	s.deferred = nil
	for _, f := range deferred {
		s.releaseFile(f)
	}
}
