package storage

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupTestStorage(t *testing.T) (*localStorage, string) {
	logger, _ := zap.NewDevelopment()
	dir := t.TempDir()
	return NewLocalStorage(dir, "http://localhost:8080/media/", logger), dir
}

func TestLocalStorage_SaveOpenDelete(t *testing.T) {
	s, dir := setupTestStorage(t)
	ctx := context.Background()
	content := []byte("fake video bytes")

	err := s.Save(ctx, "lesson.mp4", KindCourseMedia, bytes.NewReader(content), int64(len(content)), "video/mp4")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "course", "media", "lesson.mp4"))

	rc, err := s.Open(ctx, "lesson.mp4", KindCourseMedia)
	require.NoError(t, err)
	stored, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, content, stored)

	require.NoError(t, s.Delete(ctx, "lesson.mp4", KindCourseMedia))
	assert.NoFileExists(t, filepath.Join(dir, "course", "media", "lesson.mp4"))
	assert.True(t, os.IsNotExist(s.Delete(ctx, "lesson.mp4", KindCourseMedia)))
}

func TestLocalStorage_Save_SizeMismatch(t *testing.T) {
	s, dir := setupTestStorage(t)

	err := s.Save(context.Background(), "short.png", KindCourseCover, strings.NewReader("abc"), 10, "image/png")

	assert.Error(t, err)
	assert.NoFileExists(t, filepath.Join(dir, "course", "cover", "short.png"))
}

func TestLocalStorage_PathTraversal(t *testing.T) {
	s, dir := setupTestStorage(t)

	path := s.generatePath("../../etc/passwd", KindCourseThumbnail)

	assert.Equal(t, filepath.Join(dir, "course", "thumbnail", "passwd"), path)
}

func TestLocalStorage_URL(t *testing.T) {
	s, _ := setupTestStorage(t)

	assert.Equal(t, "http://localhost:8080/media/course/thumbnail/a.png", s.URL("a.png", KindCourseThumbnail))
}

func TestMinIOStorage_URL(t *testing.T) {
	logger, _ := zap.NewDevelopment()

	s, err := newMinIOStorage(MinIOConfig{
		Endpoint:        "localhost:9000",
		AccessKeyID:     "minioadmin",
		SecretAccessKey: "minioadmin",
		BucketName:      "courses",
	}, logger)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9000/courses/course/media/a.mp4", s.URL("a.mp4", KindCourseMedia))

	cdn, err := newMinIOStorage(MinIOConfig{
		Endpoint:   "localhost:9000",
		BucketName: "courses",
		PublicURL:  "https://cdn.example.com/",
	}, logger)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/course/cover/c.png", cdn.URL("c.png", KindCourseCover))
}

func TestGenerateFileName(t *testing.T) {
	assert.True(t, strings.HasSuffix(GenerateFileName(".mp4"), ".mp4"))
	assert.True(t, strings.HasSuffix(GenerateFileName("png"), ".png"))
	assert.Len(t, GenerateFileName(""), 36)
	assert.NotEqual(t, GenerateFileName(".mp4"), GenerateFileName(".mp4"))
}

func TestExtensionFor(t *testing.T) {
	assert.Equal(t, ".mp4", ExtensionFor("video/mp4"))
	assert.Equal(t, ".png", ExtensionFor("image/png"))
	assert.Equal(t, "", ExtensionFor("application/octet-stream"))
}
