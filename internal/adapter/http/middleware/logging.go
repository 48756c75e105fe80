package middleware

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// LoggingMiddleware writes one access log line per request.
type LoggingMiddleware struct {
	logger zerolog.Logger
	slow   time.Duration
}

// NewLoggingMiddleware creates a LoggingMiddleware. Requests slower than
// slow are logged at warn level; zero disables the check.
func NewLoggingMiddleware(logger zerolog.Logger, slow time.Duration) *LoggingMiddleware {
	return &LoggingMiddleware{logger: logger, slow: slow}
}

// Wrap wraps next with access logging.
func (m *LoggingMiddleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := newResponseRecorder(w)

		next.ServeHTTP(rec, r)

		elapsed := time.Since(start)
		m.event(rec.status, elapsed).
			Str("request_id", GetRequestID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("query", r.URL.RawQuery).
			Int("status", rec.status).
			Int("bytes", rec.bytes).
			Dur("duration", elapsed).
			Str("remote_addr", r.RemoteAddr).
			Msg("request completed")
	})
}

func (m *LoggingMiddleware) event(status int, elapsed time.Duration) *zerolog.Event {
	switch {
	case status >= http.StatusInternalServerError:
		return m.logger.Error()
	case m.slow > 0 && elapsed > m.slow:
		return m.logger.Warn()
	default:
		return m.logger.Info()
	}
}
