package authoring

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/japanesestudent/course-authoring/internal/models"
	"go.uber.org/zap"
)

// AddMedia appends new lesson videos to the end of the media list.
//
// Files that are not videos or exceed MaxMediaFileSize are rejected one by one.
// Files beyond the MaxMediaItems ceiling are discarded with a single notice.
// Rejected and discarded files are released immediately. Accepted files are
// handed to the duration pipeline and start with a zero duration.
func (s *Session) AddMedia(files []models.LocalFile) (*models.AddMediaResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		for _, f := range files {
			s.releaseFile(f)
		}
		return nil, ErrSessionClosed
	}

	result := &models.AddMediaResult{Accepted: []string{}}
	for _, f := range files {
		if f == nil {
			continue
		}
		if err := checkVideoFile(f); err != nil {
			result.Rejected = append(result.Rejected, models.IngestionError{
				FileName: f.Name(),
				Reason:   err.Error(),
			})
			s.releaseFile(f)
			continue
		}
		if len(s.media) >= MaxMediaItems {
			result.Discarded++
			s.releaseFile(f)
			continue
		}

		item := models.MediaItem{
			LocalID: uuid.NewString(),
			Title:   titleFromFileName(f.Name()),
			Source:  models.MediaSource{File: f},
		}
		s.media = append(s.media, item)
		result.Accepted = append(result.Accepted, item.LocalID)
		s.startProbe(item.LocalID, f)
	}

	if result.Discarded > 0 {
		result.Notice = fmt.Sprintf("a course can contain at most %d videos, %d file(s) were discarded", MaxMediaItems, result.Discarded)
	}
	s.clampSelection()
	result.Summary = models.SummarizeDuration(s.media)

	s.logger.Debug("media added",
		zap.Int("course_id", s.courseID),
		zap.Int("accepted", len(result.Accepted)),
		zap.Int("rejected", len(result.Rejected)),
		zap.Int("discarded", result.Discarded),
	)

	return result, nil
}

// RemoveMedia removes a media item. Persisted items are recorded for deletion
// on the next commit; local files of the item are released.
func (s *Session) RemoveMedia(localID string) (models.DurationSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return models.DurationSummary{}, ErrSessionClosed
	}
	idx := s.indexOf(localID)
	if idx < 0 {
		return models.DurationSummary{}, ErrMediaNotFound
	}

	item := s.media[idx]
	s.media = slices.Delete(s.media, idx, idx+1)

	if item.PersistedID != nil {
		s.addPendingRemoval(*item.PersistedID)
	}
	s.releaseFile(item.Source.File)
	s.releaseFile(item.Thumbnail.File)

	if idx < s.selectedIndex {
		s.selectedIndex--
	}
	s.clampSelection()

	return models.SummarizeDuration(s.media), nil
}

// ReorderMedia moves the item at "from" to "to", shifting the items in between.
// The selected item stays selected.
func (s *Session) ReorderMedia(from, to int) (models.DurationSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return models.DurationSummary{}, ErrSessionClosed
	}
	if from < 0 || from >= len(s.media) || to < 0 || to >= len(s.media) {
		return models.DurationSummary{}, ErrIndexOutOfRange
	}
	if from == to {
		return models.SummarizeDuration(s.media), nil
	}

	item := s.media[from]
	s.media = slices.Delete(s.media, from, from+1)
	s.media = slices.Insert(s.media, to, item)

	s.selectedIndex = remapSelection(s.selectedIndex, from, to)
	s.clampSelection()

	return models.SummarizeDuration(s.media), nil
}

// EditMediaMetadata replaces the given title, description and thumbnail of one
// media item. Fields left nil keep their current value. A replaced local
// thumbnail file is released.
func (s *Session) EditMediaMetadata(localID string, fields models.MediaItemFields) (models.DurationSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		if fields.Thumbnail != nil {
			s.releaseFile(fields.Thumbnail.File)
		}
		return models.DurationSummary{}, ErrSessionClosed
	}
	idx := s.indexOf(localID)
	if idx < 0 {
		if fields.Thumbnail != nil {
			s.releaseFile(fields.Thumbnail.File)
		}
		return models.DurationSummary{}, ErrMediaNotFound
	}
	if fields.Thumbnail != nil && fields.Thumbnail.File != nil && !isImage(fields.Thumbnail.File) {
		s.releaseFile(fields.Thumbnail.File)
		return models.DurationSummary{}, ErrNotAnImage
	}

	item := &s.media[idx]
	if fields.Title != nil {
		item.Title = *fields.Title
	}
	if fields.Description != nil {
		item.Description = *fields.Description
	}
	if fields.Thumbnail != nil {
		if item.Thumbnail.File != nil && item.Thumbnail.File != fields.Thumbnail.File {
			s.releaseFile(item.Thumbnail.File)
		}
		item.Thumbnail = *fields.Thumbnail
	}

	return models.SummarizeDuration(s.media), nil
}

// SelectMedia points the selection at the given index
func (s *Session) SelectMedia(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}
	if len(s.media) == 0 && index == 0 {
		s.selectedIndex = 0
		return nil
	}
	if index < 0 || index >= len(s.media) {
		return ErrIndexOutOfRange
	}
	s.selectedIndex = index
	return nil
}

// DurationSummary returns the total duration of all media items
func (s *Session) DurationSummary() models.DurationSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.SummarizeDuration(s.media)
}

// remapSelection keeps the same logical item selected after moving "from" to "to"
func remapSelection(selected, from, to int) int {
	switch {
	case selected == from:
		return to
	case from < to && selected > from && selected <= to:
		return selected - 1
	case from > to && selected >= to && selected < from:
		return selected + 1
	default:
		return selected
	}
}

// clampSelection restores the selection invariant: a valid index, or 0 when empty
func (s *Session) clampSelection() {
	if len(s.media) == 0 {
		s.selectedIndex = 0
		return
	}
	if s.selectedIndex >= len(s.media) {
		s.selectedIndex = len(s.media) - 1
	}
	if s.selectedIndex < 0 {
		s.selectedIndex = 0
	}
}

func (s *Session) addPendingRemoval(id int) {
	if !slices.Contains(s.pendingRemovals, id) {
		s.pendingRemovals = append(s.pendingRemovals, id)
	}
}

func checkVideoFile(f models.LocalFile) error {
	if !strings.HasPrefix(f.ContentType(), "video/") {
		return ErrUnsupportedMediaType
	}
	if f.Size() > MaxMediaFileSize {
		return ErrMediaTooLarge
	}
	return nil
}

func isImage(f models.LocalFile) bool {
	return strings.HasPrefix(f.ContentType(), "image/")
}

// titleFromFileName strips the directory and extension from a file name
func titleFromFileName(name string) string {
	base := filepath.Base(name)
	title := strings.TrimSuffix(base, filepath.Ext(base))
	if title == "" {
		return base
	}
	return title
}
