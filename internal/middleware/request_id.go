// Package middleware holds the HTTP middleware chain of the authoring API
package middleware

import (
	"context"
	"net/http"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Headers identifying a request and the authoring session it touched
const (
	RequestIDHeader = "X-Request-ID"
	SessionIDHeader = "X-Authoring-Session"
	CourseIDHeader  = "X-Course-ID"
)

const maxRequestIDLength = 128

type contextKey string

const requestInfoKey contextKey = "requestInfo"

// requestInfo carries the identifiers of one API call. Handlers record the
// session they resolved so the access log and panic reports can name it.
type requestInfo struct {
	mu        sync.Mutex
	requestID string
	sessionID string
	courseID  int
}

// RequestIDMiddleware assigns a request ID to each request. A client supplied
// X-Request-ID is kept when it is short and printable.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if !validRequestID(requestID) {
			requestID = uuid.New().String()
		}

		info := &requestInfo{requestID: requestID}
		ctx := context.WithValue(r.Context(), requestInfoKey, info)
		w.Header().Set(RequestIDHeader, requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID retrieves the request ID from context
func GetRequestID(ctx context.Context) string {
	if info, ok := ctx.Value(requestInfoKey).(*requestInfo); ok {
		return info.requestID
	}
	return ""
}

// TagSession records the authoring session served by the request and echoes
// it in the response headers. It must be called before the response is written.
func TagSession(w http.ResponseWriter, r *http.Request, sessionID string, courseID int) {
	w.Header().Set(SessionIDHeader, sessionID)
	w.Header().Set(CourseIDHeader, strconv.Itoa(courseID))

	info, ok := r.Context().Value(requestInfoKey).(*requestInfo)
	if !ok {
		return
	}
	info.mu.Lock()
	info.sessionID = sessionID
	info.courseID = courseID
	info.mu.Unlock()
}

// requestFields returns the log fields identifying the request
func requestFields(ctx context.Context) []zap.Field {
	info, ok := ctx.Value(requestInfoKey).(*requestInfo)
	if !ok {
		return nil
	}
	info.mu.Lock()
	defer info.mu.Unlock()

	fields := []zap.Field{zap.String("request_id", info.requestID)}
	if info.sessionID != "" {
		fields = append(fields, zap.String("session_id", info.sessionID), zap.Int("course_id", info.courseID))
	}
	return fields
}

func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < 0x21 || id[i] > 0x7e {
			return false
		}
	}
	return true
}
