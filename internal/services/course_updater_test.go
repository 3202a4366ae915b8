package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/japanesestudent/course-authoring/internal/models"
	"github.com/japanesestudent/course-authoring/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// mockEditorRepository is a mock implementation of CourseEditorRepository
type mockEditorRepository struct {
	seed    *models.CourseSeed
	ids     map[string]int
	err     error
	updates []*models.CourseRecordUpdate
}

func (m *mockEditorRepository) FetchForEdit(ctx context.Context, courseID int) (*models.CourseSeed, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.seed, nil
}

func (m *mockEditorRepository) ApplyUpdate(ctx context.Context, update *models.CourseRecordUpdate) (map[string]int, error) {
	m.updates = append(m.updates, update)
	if m.err != nil {
		return nil, m.err
	}
	return m.ids, nil
}

// mockFileStore is an in-memory implementation of FileStore
type mockFileStore struct {
	mu       sync.Mutex
	files    map[string][]byte
	deleted  []string
	failKind string
}

func newMockFileStore() *mockFileStore {
	return &mockFileStore{files: make(map[string][]byte)}
}

func (m *mockFileStore) Save(ctx context.Context, id, kind string, r io.Reader, size int64, contentType string) error {
	if kind == m.failKind {
		return errors.New("bucket unavailable")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[kind+"/"+id] = data
	return nil
}

func (m *mockFileStore) Delete(ctx context.Context, id, kind string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, kind+"/"+id)
	m.deleted = append(m.deleted, kind+"/"+id)
	return nil
}

func (m *mockFileStore) URL(id, kind string) string {
	return "/files/" + kind + "/" + id
}

// memoryFile is an in-memory implementation of models.LocalFile
type memoryFile struct {
	name        string
	contentType string
	data        []byte
}

func (f *memoryFile) Name() string        { return f.name }
func (f *memoryFile) ContentType() string { return f.contentType }
func (f *memoryFile) Size() int64         { return int64(len(f.data)) }
func (f *memoryFile) Path() string        { return "" }
func (f *memoryFile) Release() error      { return nil }
func (f *memoryFile) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(f.data)), nil
}

func intPtr(v int) *int { return &v }

func updateRequest() *models.UpdateCourseRequest {
	return &models.UpdateCourseRequest{
		CourseID: 7,
		Metadata: models.CourseMetadata{Title: "Kanji"},
		Status:   models.LifecycleStatusDraft,
		Media: []models.MediaUpdate{
			{
				LocalID:      "existing",
				PersistedID:  intPtr(10),
				Position:     0,
				Title:        "Intro",
				SourceRef:    "/files/course_media/intro.mp4",
				ThumbnailRef: "/files/course_thumbnail/intro.png",
			},
			{
				LocalID:       "new",
				Position:      1,
				Title:         "Radicals",
				SourceFile:    &memoryFile{name: "radicals.mp4", contentType: "video/mp4", data: []byte("video")},
				ThumbnailFile: &memoryFile{name: "radicals", contentType: "image/png", data: []byte("png")},
			},
		},
		RemovedMediaIDs: []int{11},
		CoverFile:       &memoryFile{name: "cover.jpg", contentType: "image/jpeg", data: []byte("jpeg")},
	}
}

func TestCourseUpdater_UpdateCourse(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	repo := &mockEditorRepository{ids: map[string]int{"existing": 10, "new": 12}}
	store := newMockFileStore()
	updater := NewCourseUpdater(repo, store, logger)

	result, err := updater.UpdateCourse(context.Background(), updateRequest())

	require.NoError(t, err)
	assert.Len(t, store.files, 3)
	assert.Empty(t, store.deleted)

	require.Len(t, repo.updates, 1)
	record := repo.updates[0]
	assert.Equal(t, 7, record.CourseID)
	assert.Equal(t, []int{11}, record.RemovedMediaIDs)
	require.NotNil(t, record.CoverURL)
	assert.True(t, strings.HasPrefix(*record.CoverURL, "/files/course_cover/"))
	assert.True(t, strings.HasSuffix(*record.CoverURL, ".jpg"))

	require.Len(t, record.Media, 2)
	assert.Equal(t, intPtr(10), record.Media[0].ID)
	assert.Equal(t, "/files/course_media/intro.mp4", record.Media[0].SourceURL)
	assert.Nil(t, record.Media[1].ID)
	assert.Equal(t, 1, record.Media[1].Position)
	assert.True(t, strings.HasSuffix(record.Media[1].SourceURL, ".mp4"))
	assert.True(t, strings.HasSuffix(record.Media[1].ThumbnailURL, ".png"))

	assert.Equal(t, *record.CoverURL, result.CoverRef)
	assert.Equal(t, models.CommittedMedia{
		ID:           10,
		SourceRef:    "/files/course_media/intro.mp4",
		ThumbnailRef: "/files/course_thumbnail/intro.png",
	}, result.Media["existing"])
	assert.Equal(t, 12, result.Media["new"].ID)
	assert.Equal(t, record.Media[1].SourceURL, result.Media["new"].SourceRef)
}

func TestCourseUpdater_UpdateCourse_Failures(t *testing.T) {
	tests := []struct {
		name            string
		modify          func(req *models.UpdateCourseRequest)
		failKind        string
		repoErr         error
		expectedDeleted int
		expectRepoCall  bool
	}{
		{
			name:            "cover upload fails",
			failKind:        storage.KindCourseCover,
			expectedDeleted: 2,
		},
		{
			name:            "thumbnail upload fails",
			failKind:        storage.KindCourseThumbnail,
			expectedDeleted: 1,
		},
		{
			name:            "repository fails",
			repoErr:         errors.New("deadlock"),
			expectedDeleted: 3,
			expectRepoCall:  true,
		},
		{
			name: "new media without file",
			modify: func(req *models.UpdateCourseRequest) {
				req.Media[1].SourceFile = nil
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, _ := zap.NewDevelopment()
			repo := &mockEditorRepository{err: tt.repoErr}
			store := newMockFileStore()
			store.failKind = tt.failKind
			updater := NewCourseUpdater(repo, store, logger)

			req := updateRequest()
			if tt.modify != nil {
				tt.modify(req)
			}

			result, err := updater.UpdateCourse(context.Background(), req)

			assert.Error(t, err)
			assert.Nil(t, result)
			assert.Len(t, store.deleted, tt.expectedDeleted)
			assert.Empty(t, store.files)
			assert.Equal(t, tt.expectRepoCall, len(repo.updates) == 1)
		})
	}
}

func TestCourseUpdater_UpdateCourse_KeepsCover(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	repo := &mockEditorRepository{ids: map[string]int{"existing": 10}}
	updater := NewCourseUpdater(repo, newMockFileStore(), logger)

	req := updateRequest()
	req.Media = req.Media[:1]
	req.CoverFile = nil

	result, err := updater.UpdateCourse(context.Background(), req)

	require.NoError(t, err)
	assert.Nil(t, repo.updates[0].CoverURL)
	assert.Empty(t, result.CoverRef)
}
