package middleware

import (
	"net/http"
	"slices"
	"strings"
)

// Methods used by the authoring API. Edits of media and metadata are PATCH
// requests, so browsers preflight them.
var allowedMethods = []string{
	http.MethodGet,
	http.MethodPost,
	http.MethodPut,
	http.MethodPatch,
	http.MethodDelete,
}

var (
	allowedHeaders = []string{"Content-Type", "Authorization", RequestIDHeader}
	exposedHeaders = []string{RequestIDHeader, SessionIDHeader, CourseIDHeader}
)

// CORSMiddleware creates a CORS middleware with the specified allowed origins.
// Preflight requests for a method the API does not serve are refused.
func CORSMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			allowedOrigin := getAllowedOrigin(origin, allowedOrigins)
			w.Header().Add("Vary", "Origin")

			if allowedOrigin != "" {
				w.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
				w.Header().Set("Access-Control-Expose-Headers", strings.Join(exposedHeaders, ", "))
				// Browsers reject credentials together with a wildcard origin
				if allowedOrigin != "*" {
					w.Header().Set("Access-Control-Allow-Credentials", "true")
				}
			}

			requested := r.Header.Get("Access-Control-Request-Method")
			if r.Method != http.MethodOptions || requested == "" {
				next.ServeHTTP(w, r)
				return
			}

			// Preflight
			if allowedOrigin == "" || !slices.Contains(allowedMethods, strings.ToUpper(requested)) {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			w.Header().Set("Access-Control-Allow-Methods", strings.Join(allowedMethods, ", "))
			w.Header().Set("Access-Control-Allow-Headers", strings.Join(allowedHeaders, ", "))
			w.Header().Set("Access-Control-Max-Age", "3600")
			w.WriteHeader(http.StatusNoContent)
		})
	}
}

// getAllowedOrigin checks if the request origin is in the allowed origins list.
// Returns the origin if allowed, "*" if all origins are allowed, or empty string if not allowed.
func getAllowedOrigin(requestOrigin string, allowedOrigins []string) string {
	if requestOrigin == "" {
		return ""
	}
	if slices.Contains(allowedOrigins, "*") {
		return "*"
	}
	for _, allowed := range allowedOrigins {
		if strings.EqualFold(requestOrigin, allowed) {
			return requestOrigin
		}
	}
	return ""
}
