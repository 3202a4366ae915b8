package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/japanesestudent/course-authoring/internal/authoring"
	"go.uber.org/zap"
)

// ErrSessionNotFound is returned for unknown or evicted authoring sessions
var ErrSessionNotFound = errors.New("authoring session not found")

// sessionEntry is a registered session and the time it was last used
type sessionEntry struct {
	session  *authoring.Session
	lastUsed time.Time
}

// CourseEditorService keeps the authoring sessions of the running process
type CourseEditorService struct {
	repo        CourseEditorRepository
	updater     authoring.CourseUpdater
	pipeline    *authoring.DurationPipeline
	idleTimeout time.Duration
	logger      *zap.Logger
	now         func() time.Time

	mu       sync.RWMutex
	sessions map[string]*sessionEntry
}

// NewCourseEditorService creates a new course editor service.
//
// "idleTimeout" is how long an unused session is kept; zero disables eviction.
func NewCourseEditorService(repo CourseEditorRepository, updater authoring.CourseUpdater, pipeline *authoring.DurationPipeline, idleTimeout time.Duration, logger *zap.Logger) *CourseEditorService {
	return &CourseEditorService{
		repo:        repo,
		updater:     updater,
		pipeline:    pipeline,
		idleTimeout: idleTimeout,
		logger:      logger,
		now:         time.Now,
		sessions:    make(map[string]*sessionEntry),
	}
}

// Open starts an authoring session for an existing course.
//
// Returns the session identifier and the session, or an error.
func (s *CourseEditorService) Open(ctx context.Context, courseID int) (string, *authoring.Session, error) {
	if courseID <= 0 {
		return "", nil, fmt.Errorf("invalid course id: %d", courseID)
	}

	seed, err := s.repo.FetchForEdit(ctx, courseID)
	if err != nil {
		return "", nil, err
	}

	session := authoring.NewSession(seed, s.updater, s.pipeline, s.logger.With(zap.Int("course_id", courseID)))
	id := uuid.New().String()

	s.mu.Lock()
	s.sessions[id] = &sessionEntry{session: session, lastUsed: s.now()}
	s.mu.Unlock()

	s.logger.Info("authoring session opened", zap.String("session_id", id), zap.Int("course_id", courseID))
	return id, session, nil
}

// Get returns a registered session and marks it as used
func (s *CourseEditorService) Get(id string) (*authoring.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, exists := s.sessions[id]
	if !exists {
		return nil, ErrSessionNotFound
	}
	entry.lastUsed = s.now()
	return entry.session, nil
}

// Count returns the number of registered sessions
func (s *CourseEditorService) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Close discards a session and releases its local files
func (s *CourseEditorService) Close(id string) error {
	s.mu.Lock()
	entry, exists := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if !exists {
		return ErrSessionNotFound
	}
	entry.session.Close()
	s.logger.Info("authoring session closed", zap.String("session_id", id))
	return nil
}

// EvictIdle discards sessions unused for longer than the idle timeout.
// Sessions with a commit in flight are kept.
//
// Returns the number of evicted sessions.
func (s *CourseEditorService) EvictIdle() int {
	if s.idleTimeout <= 0 {
		return 0
	}
	cutoff := s.now().Add(-s.idleTimeout)

	var evicted []*authoring.Session
	s.mu.Lock()
	for id, entry := range s.sessions {
		if entry.lastUsed.Before(cutoff) && !entry.session.CommitInFlight() {
			delete(s.sessions, id)
			evicted = append(evicted, entry.session)
		}
	}
	s.mu.Unlock()

	for _, session := range evicted {
		session.Close()
	}
	if len(evicted) > 0 {
		s.logger.Info("idle authoring sessions evicted", zap.Int("count", len(evicted)))
	}
	return len(evicted)
}

// RunCleanup evicts idle sessions every "interval" until ctx is cancelled
func (s *CourseEditorService) RunCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.EvictIdle()
		}
	}
}

// Shutdown discards every session
func (s *CourseEditorService) Shutdown() {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*sessionEntry)
	s.mu.Unlock()

	for _, entry := range sessions {
		entry.session.Close()
	}
	s.logger.Info("authoring sessions discarded", zap.Int("count", len(sessions)))
}
