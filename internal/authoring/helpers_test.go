package authoring

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/japanesestudent/course-authoring/internal/models"
	"go.uber.org/zap"
)

// fakeFile is an in-memory implementation of models.LocalFile
type fakeFile struct {
	name        string
	contentType string
	size        int64
	released    atomic.Int32
}

func newVideo(name string) *fakeFile {
	return &fakeFile{name: name, contentType: "video/mp4", size: 10 * 1024 * 1024}
}

func newImage(name string) *fakeFile {
	return &fakeFile{name: name, contentType: "image/png", size: 200 * 1024}
}

func (f *fakeFile) Name() string        { return f.name }
func (f *fakeFile) ContentType() string { return f.contentType }
func (f *fakeFile) Size() int64         { return f.size }
func (f *fakeFile) Path() string        { return "/tmp/staging/" + f.name }

func (f *fakeFile) Open() (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader("content of " + f.name)), nil
}

func (f *fakeFile) Release() error {
	f.released.Add(1)
	return nil
}

func (f *fakeFile) Released() int {
	return int(f.released.Load())
}

// fakeUpdater is a mock implementation of CourseUpdater
type fakeUpdater struct {
	mu       sync.Mutex
	requests []*models.UpdateCourseRequest
	nextID   int
	err      error
	started  chan struct{}
	block    chan struct{}
}

func (f *fakeUpdater) UpdateCourse(ctx context.Context, req *models.UpdateCourseRequest) (*models.UpdateCourseResult, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}
	if f.err != nil {
		return nil, f.err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	result := &models.UpdateCourseResult{Media: make(map[string]models.CommittedMedia)}
	for _, m := range req.Media {
		committed := models.CommittedMedia{ThumbnailRef: m.ThumbnailRef}
		if m.PersistedID != nil {
			committed.ID = *m.PersistedID
		} else {
			f.nextID++
			committed.ID = 1000 + f.nextID
		}
		committed.SourceRef = fmt.Sprintf("courses/%d/media/%d.mp4", req.CourseID, committed.ID)
		if m.ThumbnailFile != nil {
			committed.ThumbnailRef = fmt.Sprintf("courses/%d/thumbnails/%d.png", req.CourseID, committed.ID)
		}
		result.Media[m.LocalID] = committed
	}
	if req.CoverFile != nil {
		result.CoverRef = fmt.Sprintf("courses/%d/cover.png", req.CourseID)
	}
	return result, nil
}

func (f *fakeUpdater) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func (f *fakeUpdater) lastRequest() *models.UpdateCourseRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		return nil
	}
	return f.requests[len(f.requests)-1]
}

func ptr[T any](v T) *T {
	return &v
}

// publishableSeed returns a draft course that passes both validation tiers
func publishableSeed() *models.CourseSeed {
	return &models.CourseSeed{
		CourseID: 7,
		Status:   models.LifecycleStatusDraft,
		Metadata: models.CourseMetadata{
			Title:            "Japanese for Beginners",
			Category:         "Languages",
			SkillLevel:       models.SkillLevelBeginner,
			Price:            ptr(49.99),
			DurationWeeks:    ptr(8),
			HoursPerWeek:     ptr(5),
			Description:      "Learn hiragana, katakana and basic grammar step by step.",
			Tags:             []string{"japanese", "hiragana"},
			WhatYouWillLearn: "Read and write kana",
			Requirements:     "None",
			LearningSchedule: "Two lessons per week",
			Language:         "English",
		},
		CoverRef: "courses/7/cover.png",
		Media: []models.SeedMedia{
			{ID: 10, Title: "Intro", Description: "Course overview", DurationSeconds: 65, ThumbnailRef: "courses/7/thumbnails/10.png", SourceRef: "courses/7/media/10.mp4"},
			{ID: 11, Title: "Hiragana", Description: "The first alphabet", DurationSeconds: 190, ThumbnailRef: "courses/7/thumbnails/11.png", SourceRef: "courses/7/media/11.mp4"},
		},
	}
}

// seedWithMedia returns a draft course with "n" persisted media items and a title
func seedWithMedia(n int) *models.CourseSeed {
	seed := &models.CourseSeed{
		CourseID: 3,
		Status:   models.LifecycleStatusDraft,
		Metadata: models.CourseMetadata{Title: "Kanji"},
	}
	for i := 0; i < n; i++ {
		seed.Media = append(seed.Media, models.SeedMedia{
			ID:        100 + i,
			Title:     fmt.Sprintf("Lesson %d", i+1),
			SourceRef: fmt.Sprintf("courses/3/media/%d.mp4", 100+i),
		})
	}
	return seed
}

func newTestSession(t *testing.T, seed *models.CourseSeed, updater CourseUpdater) *Session {
	t.Helper()
	logger, _ := zap.NewDevelopment()
	if updater == nil {
		updater = &fakeUpdater{}
	}
	s := NewSession(seed, updater, nil, logger)
	t.Cleanup(s.Close)
	return s
}

func localIDs(items []models.MediaItem) []string {
	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.LocalID
	}
	return ids
}
