package handlers

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/japanesestudent/course-authoring/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestFileHandler_ServeFile(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	store := storage.NewLocalStorage(t.TempDir(), "http://localhost:8080/files", logger)
	require.NoError(t, store.Save(context.Background(), "lesson.mp4", storage.KindCourseMedia, bytes.NewReader(mp4Header), int64(len(mp4Header)), "video/mp4"))

	r := chi.NewRouter()
	NewFileHandler(store, logger).RegisterRoutes(r)

	tests := []struct {
		name           string
		path           string
		rangeHeader    string
		expectedStatus int
		expectedBody   []byte
	}{
		{
			name:           "whole file",
			path:           "/files/course/media/lesson.mp4",
			expectedStatus: http.StatusOK,
			expectedBody:   mp4Header,
		},
		{
			name:           "range request",
			path:           "/files/course/media/lesson.mp4",
			rangeHeader:    "bytes=4-7",
			expectedStatus: http.StatusPartialContent,
			expectedBody:   []byte("ftyp"),
		},
		{
			name:           "missing file",
			path:           "/files/course/media/other.mp4",
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "unknown asset kind",
			path:           "/files/course/avatar/lesson.mp4",
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.rangeHeader != "" {
				req.Header.Set("Range", tt.rangeHeader)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedBody != nil {
				assert.Equal(t, tt.expectedBody, w.Body.Bytes())
			}
		})
	}
}
