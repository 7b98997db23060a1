package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// statusRecorder wraps http.ResponseWriter to capture the status code.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

type loggedUserKey struct{}

// RecordUserID attributes the current request's log entry to a user. The auth
// middleware calls it once the token is verified; without it the access log
// only carries the remote IP.
func RecordUserID(ctx context.Context, userID int64) {
	if holder, ok := ctx.Value(loggedUserKey{}).(*int64); ok {
		*holder = userID
	}
}

// RequestLogger returns middleware that logs each HTTP request with method,
// path, status code, duration, remote IP, and the authenticated user when
// a later middleware records one.
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			var userID int64
			ctx := context.WithValue(r.Context(), loggedUserKey{}, &userID)

			next.ServeHTTP(rec, r.WithContext(ctx))

			duration := time.Since(start)
			attrs := []slog.Attr{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", rec.status),
				slog.Duration("duration", duration),
				slog.String("remote", RealIP(r)),
			}
			if userID != 0 {
				attrs = append(attrs, slog.Int64("user_id", userID))
			}

			switch {
			case rec.status >= 500:
				logger.LogAttrs(r.Context(), slog.LevelError, "request", attrs...)
			case rec.status >= 400:
				logger.LogAttrs(r.Context(), slog.LevelWarn, "request", attrs...)
			default:
				logger.LogAttrs(r.Context(), slog.LevelInfo, "request", attrs...)
			}
		})
	}
}
