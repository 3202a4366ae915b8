package storage

import (
	"path"
	"strings"

	"github.com/google/uuid"
)

// Asset kinds of a course. Underscores become path separators in storage keys.
const (
	KindCourseMedia     = "course_media"
	KindCourseThumbnail = "course_thumbnail"
	KindCourseCover     = "course_cover"
)

// GenerateFileName generates a new file name based on the file extension
// It creates a UUID-based filename with the provided extension
func GenerateFileName(extension string) string {
	newUUID := uuid.New().String()
	if extension != "" && extension[0] != '.' {
		return newUUID + "." + extension
	}
	return newUUID + extension
}

// ObjectKey builds the slash separated key of a stored file ("course_media", "x.mp4" -> "course/media/x.mp4")
func ObjectKey(id, kind string) string {
	return path.Join(strings.ReplaceAll(kind, "_", "/"), id)
}

// ExtensionFor infers a file extension from a content type.
// Returns an empty string if the extension cannot be inferred.
func ExtensionFor(contentType string) string {
	contentTypeMap := map[string]string{
		"image/jpeg":       ".jpg",
		"image/png":        ".png",
		"image/gif":        ".gif",
		"image/webp":       ".webp",
		"video/mp4":        ".mp4",
		"video/webm":       ".webm",
		"video/quicktime":  ".mov",
		"video/x-matroska": ".mkv",
		"video/x-msvideo":  ".avi",
		"video/mpeg":       ".mpeg",
	}
	if ext, ok := contentTypeMap[contentType]; ok {
		return ext
	}
	return ""
}

// sizeWriter tracks the total number of bytes written
type sizeWriter struct {
	size int64
}

// Write implements io.Writer interface
func (sw *sizeWriter) Write(p []byte) (int, error) {
	n := len(p)
	sw.size += int64(n)
	return n, nil
}

// Size returns the total number of bytes written
func (sw *sizeWriter) Size() int64 {
	return sw.size
}

// newSizeWriter creates a new sizeWriter instance
func newSizeWriter() *sizeWriter {
	return &sizeWriter{}
}
