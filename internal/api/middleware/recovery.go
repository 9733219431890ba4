package middleware

import (
	"encoding/json"
	"net/http"
	"runtime/debug"

	"go.uber.org/zap"

	"egress/internal/errs"
)

// RecoveryMiddleware recovers panics and converts them to an
// InternalError EgressError response.
type RecoveryMiddleware struct {
	logger *zap.Logger
	debug  bool
}

// NewRecoveryMiddleware creates a new recovery middleware.
func NewRecoveryMiddleware(logger *zap.Logger, debug bool) *RecoveryMiddleware {
	return &RecoveryMiddleware{logger: logger, debug: debug}
}

// DefaultRecoveryMiddleware creates a recovery middleware in production mode.
func DefaultRecoveryMiddleware(logger *zap.Logger) *RecoveryMiddleware {
	return NewRecoveryMiddleware(logger, false)
}

// Recovery recovers from panics in the handler chain.
func (m *RecoveryMiddleware) Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				requestID := RequestID(r.Context())
				m.logger.Error("panic recovered",
					zap.Any("panic", rec),
					zap.String("stack", string(debug.Stack())),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.String("request_id", requestID),
				)

				egErr := errs.Newf(errs.InternalError, "internal server error").WithDetail("request_id", requestID)
				if m.debug {
					egErr = egErr.WithDetail("panic", rec)
				}
				m.respond(w, egErr)
			}
		}()

		next.ServeHTTP(w, r)
	})
}

func (m *RecoveryMiddleware) respond(w http.ResponseWriter, egErr *errs.EgressError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(egErr.StatusCode)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error":   egErr.Message,
		"code":    egErr.Kind,
		"details": egErr.Details,
	})
}
