package handlers

import (
	"context"
	"io"
	"net/http"
	"os"
	"path"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/japanesestudent/course-authoring/internal/storage"
	"go.uber.org/zap"
)

// FileReader defines the interface for reading stored course assets
type FileReader interface {
	// Open opens a stored file for reading
	Open(ctx context.Context, id, kind string) (io.ReadCloser, error)
}

// FileHandler serves committed course assets from the configured file store
type FileHandler struct {
	BaseHandler
	files FileReader
}

// NewFileHandler creates a new file handler
func NewFileHandler(files FileReader, logger *zap.Logger) *FileHandler {
	return &FileHandler{
		BaseHandler: BaseHandler{Logger: logger},
		files:       files,
	}
}

// assetKinds maps the path segment of a stored file to its storage kind
var assetKinds = map[string]string{
	"media":     storage.KindCourseMedia,
	"thumbnail": storage.KindCourseThumbnail,
	"cover":     storage.KindCourseCover,
}

// RegisterRoutes registers all file handler routes
func (h *FileHandler) RegisterRoutes(r chi.Router) {
	r.Get("/files/course/{asset}/{filename}", h.ServeFile)
}

// ServeFile handles GET /files/course/{asset}/{filename}.
// Seekable files support range requests.
func (h *FileHandler) ServeFile(w http.ResponseWriter, r *http.Request) {
	kind, ok := assetKinds[chi.URLParam(r, "asset")]
	if !ok {
		h.RespondError(w, http.StatusNotFound, "file not found")
		return
	}
	filename := path.Base(chi.URLParam(r, "filename"))

	file, err := h.files.Open(r.Context(), filename, kind)
	if err != nil {
		if os.IsNotExist(err) {
			h.RespondError(w, http.StatusNotFound, "file not found")
			return
		}
		h.Logger.Error("failed to open file", zap.String("file", filename), zap.Error(err))
		h.RespondError(w, http.StatusInternalServerError, "failed to open file")
		return
	}
	defer file.Close()

	if seeker, ok := file.(io.ReadSeeker); ok {
		http.ServeContent(w, r, filename, time.Time{}, seeker)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	if _, err := io.Copy(w, file); err != nil {
		h.Logger.Error("failed to copy file to response", zap.Error(err))
	}
}
