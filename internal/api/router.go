package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"egress/internal/api/metrics"
	apimw "egress/internal/api/middleware"
	"egress/internal/config"
	"egress/internal/session"
)

// NewRouter assembles the chi router for one egress session: recovery and
// structured logging wrap every route, security headers and CORS apply
// globally, the mutating operations sit behind bearer auth, and
// process_file is additionally rate limited (spec.md section 6).
func NewRouter(sess *session.Session, cfg *config.Config, logger *zap.Logger) http.Handler {
	collector := metrics.NewCollector()
	h := NewHandlers(sess, collector, logger)

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(apimw.NewSecurityMiddleware(corsHeaders(cfg.Security.AllowedOrigins)).SecurityHeaders)
	r.Use(apimw.DefaultLoggingMiddleware(logger).Logging)
	r.Use(apimw.NewRecoveryMiddleware(logger, cfg.Telemetry.Debug).Recovery)

	r.Get("/healthz", healthz)
	r.Handle("/metrics", promhttp.Handler())

	auth := apimw.NewAuthMiddleware(cfg.Security.JWTSecret)

	r.Route("/api/v1/egress", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if cfg.Security.APIRateLimit > 0 && cfg.Security.APIRateLimitWindow > 0 {
				limiter := apimw.NewRateLimiter(cfg.Security.APIRateLimit, cfg.Security.APIRateLimitWindow)
				r.Use(limiter.RateLimitMiddleware)
			}
			r.Post("/process-file", h.ProcessFile)
		})

		r.Group(func(r chi.Router) {
			if cfg.Security.EnableAuth {
				r.Use(auth.RequireAuth)
			}
			r.Post("/update-cell", h.UpdateCell)
			r.Post("/batch-update-cells", h.BatchUpdateCells)
			r.Post("/apply-wall-buffer", h.ApplyWallBuffer)
		})

		r.Get("/detect-exits", h.DetectExits)
		r.Post("/update-spaces", h.UpdateSpaces)
		r.Post("/create-graph", h.CreateGraph)
		r.Get("/stair-connections", h.GetStairConnections)
		r.Post("/calculate-escape-route", h.CalculateEscapeRoute)
	})

	return r
}

func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// corsHeaders turns a config allow-list into the header set
// SecurityMiddleware injects on every response.
func corsHeaders(allowedOrigins []string) map[string]string {
	origin := "*"
	if len(allowedOrigins) > 0 {
		origin = allowedOrigins[0]
	}
	return map[string]string{
		"Access-Control-Allow-Origin":  origin,
		"Access-Control-Allow-Methods": "GET, POST, PUT, DELETE, OPTIONS",
		"Access-Control-Allow-Headers": "Authorization, Content-Type",
	}
}
