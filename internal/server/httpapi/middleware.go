package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/mvasilyev/mediavault/internal/common"
	"github.com/mvasilyev/mediavault/internal/logging"
	"github.com/mvasilyev/mediavault/internal/server/auth"
	"github.com/mvasilyev/mediavault/internal/server/metrics"
)

type ctxKey string

const accountIDKey ctxKey = "accountID"

// AccountIDFromContext returns the authenticated account id stored by the
// bearer middleware.
func AccountIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(accountIDKey).(string)
	return id, ok
}

// NewBearerAuthMiddleware authenticates requests through the identity
// extractor and stores the resolved account id in the request context. This
// is the only path by which handlers learn the caller's identity.
func NewBearerAuthMiddleware(extractor *auth.IdentityExtractor) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			accountID, err := extractor.Authenticate(r.Header.Get(common.AuthorizationHeaderName))
			if err != nil {
				w.Header().Set("WWW-Authenticate", "Bearer")
				writeServiceError(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), accountIDKey, accountID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// statusRecorder wraps http.ResponseWriter and records the status code.
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func (sr *statusRecorder) WriteHeader(code int) {
	if !sr.written {
		sr.statusCode = code
		sr.written = true
	}
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if !sr.written {
		sr.statusCode = http.StatusOK
		sr.written = true
	}
	return sr.ResponseWriter.Write(b)
}

// NewObservabilityMiddleware logs each request and records it in the
// Prometheus collector.
func NewObservabilityMiddleware(logger logging.Logger, collector *metrics.Collector) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rec := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(rec, r)

			duration := time.Since(start)
			collector.RecordRequest(strconv.Itoa(rec.statusCode), duration.Seconds())

			args := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.statusCode,
				"duration_ms", float64(duration.Nanoseconds()) / float64(time.Millisecond),
			}
			if accountID, ok := AccountIDFromContext(r.Context()); ok {
				args = append(args, "account_id", accountID)
			}
			logger.Info(r.Context(), "request", args...)
		})
	}
}
