package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/cors"

	"github.com/station-labs/station/observability"
)

// CORSConfig configures the router's go-chi/cors middleware. Empty fields
// fall back to the defaults corsMiddleware sets: origin "*", methods GET,
// POST and OPTIONS, and headers Content-Type and Authorization.
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

func corsMiddleware(cfg CORSConfig) func(http.Handler) http.Handler {
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	methods := cfg.AllowedMethods
	if len(methods) == 0 {
		methods = []string{"GET", "POST", "OPTIONS"}
	}
	headers := cfg.AllowedHeaders
	if len(headers) == 0 {
		headers = []string{"Content-Type", "Authorization"}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: methods,
		AllowedHeaders: headers,
		MaxAge:         300,
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// observabilityMiddleware records one observability.HTTP() sample per
// request, adapted from the teacher's
// gateway/middleware/observability.go with its OpenTelemetry span dropped —
// STATION carries no distributed-tracing component (SPEC_FULL.md §4.9).
func observabilityMiddleware(route string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(recorder, r)
			duration := time.Since(start)
			observability.HTTP().Observe(route, r.Method, recorder.status, duration)
		})
	}
}
