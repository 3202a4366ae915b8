package middleware

import (
	"mime"
	"net/http"
)

// RequestSizeLimitMiddleware bounds request bodies. Multipart uploads of media,
// thumbnails and covers may use up to "maxUploadSize"; every other body is
// limited to "maxBodySize".
func RequestSizeLimitMiddleware(maxBodySize, maxUploadSize int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			limit := maxBodySize
			if isMultipart(r) {
				limit = maxUploadSize
			}

			if r.ContentLength > limit {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusRequestEntityTooLarge)
				w.Write([]byte(`{"error":"request body too large"}`))
				return
			}

			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}
