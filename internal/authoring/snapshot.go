package authoring

import "github.com/japanesestudent/course-authoring/internal/models"

// snapshot is the last persisted form of the session. It is never mutated in
// place, only replaced after a successful commit.
type snapshot struct {
	metadata models.CourseMetadata
	media    []models.MediaItem
	cover    models.ImageRef
}

// captureLocked copies the current state into a new snapshot.
// Must be called with s.mu held.
func (s *Session) captureLocked() snapshot {
	return snapshot{
		metadata: s.metadata.Clone(),
		media:    models.CloneMediaItems(s.media),
		cover:    s.cover,
	}
}

// IsDirty reports whether the session has changes that are not persisted yet
func (s *Session) IsDirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isDirtyLocked()
}

func (s *Session) isDirtyLocked() bool {
	if len(s.pendingRemovals) > 0 {
		return true
	}
	if s.cover.ChangedFrom(s.base.cover) {
		return true
	}
	if !s.metadata.Equal(s.base.metadata) {
		return true
	}
	return models.MediaListChanged(s.media, s.base.media)
}
