package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/iho/gopayouts/internal/adapter/http/handler"
	"github.com/iho/gopayouts/internal/adapter/http/middleware"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	PayoutHandler *handler.PayoutHandler
	ReportHandler *handler.ReportHandler
	HealthHandler *handler.HealthHandler
	// Registry receives the HTTP collectors and backs /metrics. A private
	// registry is used when nil.
	Registry *prometheus.Registry
	// MetricsHandler overrides the /metrics handler built from Registry.
	MetricsHandler http.Handler
	// SlowRequest is the latency above which requests are logged at warn.
	SlowRequest time.Duration
	Logger      zerolog.Logger
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	reg := cfg.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger, cfg.SlowRequest).Wrap)
	r.Use(middleware.NewHTTPMetrics(reg).Handler)
	r.Use(middleware.Recovery(cfg.Logger))

	// Health endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)

	metricsHandler := cfg.MetricsHandler
	if metricsHandler == nil {
		metricsHandler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
	}
	r.Method(http.MethodGet, "/metrics", metricsHandler)

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/payouts", cfg.PayoutHandler.Run)

		if cfg.ReportHandler != nil {
			r.Get("/reports/{key}", cfg.ReportHandler.Get)
		}
	})

	return r
}
