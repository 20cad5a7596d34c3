package middleware

import (
	"net/http"
	"os"
	"strings"
)

// originList is the set of origins allowed to call the API with
// credentials. Localhost is always allowed so the dashboard can be
// developed against a running instance.
type originList map[string]struct{}

// loadAllowedOrigins builds the origin list from the comma-separated
// WEB_ALLOWED_ORIGINS environment variable.
func loadAllowedOrigins() originList {
	list := make(originList)
	for _, o := range strings.Split(os.Getenv("WEB_ALLOWED_ORIGINS"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			list[o] = struct{}{}
		}
	}
	return list
}

func (l originList) allows(origin string) bool {
	if origin == "" {
		return false
	}
	if origin == "http://localhost" || origin == "https://localhost" ||
		strings.HasPrefix(origin, "http://localhost:") ||
		strings.HasPrefix(origin, "https://localhost:") {
		return true
	}
	_, ok := l[origin]
	return ok
}

// CORS answers preflight requests and echoes the Origin header back for
// origins on the configured list.
func CORS() func(http.Handler) http.Handler {
	allowed := loadAllowedOrigins()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if origin := r.Header.Get("Origin"); allowed.allows(origin) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Credentials", "true")
			}
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, X-Requested-With")
			w.Header().Set("Access-Control-Max-Age", "86400")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SecurityHeaders sets a restrictive CSP. blob: and data: stay in
// img-src for the MJPEG feed and inline photo previews.
func SecurityHeaders() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Security-Policy",
				"default-src 'self'; img-src 'self' data: blob:; "+
					"style-src 'self' 'unsafe-inline'; font-src 'self' data:")
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			next.ServeHTTP(w, r)
		})
	}
}
