package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type requestIDKey struct{}

// LoggingMiddleware logs one structured line per request via zap.
type LoggingMiddleware struct {
	logger       *zap.Logger
	excludePaths []string
}

// NewLoggingMiddleware creates a new logging middleware.
func NewLoggingMiddleware(logger *zap.Logger, excludePaths []string) *LoggingMiddleware {
	return &LoggingMiddleware{logger: logger, excludePaths: excludePaths}
}

// DefaultLoggingMiddleware creates a logging middleware with default settings.
func DefaultLoggingMiddleware(logger *zap.Logger) *LoggingMiddleware {
	return NewLoggingMiddleware(logger, []string{"/health", "/ready", "/metrics"})
}

// Logging logs request method, path, status, latency and request id.
func (m *LoggingMiddleware) Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.shouldSkipLogging(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()

		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		duration := time.Since(start)
		m.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", requestID),
			zap.Int("status", rw.statusCode),
			zap.Duration("latency", duration),
		)

		if duration > 5*time.Second {
			m.logger.Warn("slow request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("request_id", requestID),
				zap.Duration("latency", duration),
			)
		}
	})
}

// RequestID returns the request id stashed in ctx by Logging, if any.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func (m *LoggingMiddleware) shouldSkipLogging(path string) bool {
	for _, p := range m.excludePaths {
		if p == path {
			return true
		}
	}
	return false
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
