package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"volscan/internal/infrastructure"
)

const (
	requestsPerSecond = 20
	requestBurst      = 40
)

// MetricsHandler serves the Prometheus scrape endpoint
type MetricsHandler struct {
	exporter http.Handler
}

// NewMetricsHandler wraps the exporter handler; nil means metrics are disabled
func NewMetricsHandler(exporter http.Handler) *MetricsHandler {
	return &MetricsHandler{exporter: exporter}
}

// GetMetrics handles GET /metrics
func (h *MetricsHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	if h.exporter == nil {
		writeProblem(w, r, Problem{
			Type:   "/errors/not-found",
			Title:  "Not Found",
			Status: http.StatusNotFound,
			Detail: "metrics exporter disabled",
		})
		return
	}
	h.exporter.ServeHTTP(w, r)
}

// NewRouter mounts the health and metrics endpoints
func NewRouter(logger *slog.Logger, health *HealthHandler, metrics *MetricsHandler) chi.Router {
	if logger == nil {
		logger = slog.Default()
	}
	logger = infrastructure.WithComponent(logger, "http")

	r := chi.NewRouter()
	r.Use(Recoverer(logger))
	r.Use(NewRateLimiter(requestsPerSecond, requestBurst, logger).Handler)
	r.Use(RequestLogger(logger))

	r.Get("/health", health.HealthCheck)
	r.Get("/metrics", metrics.GetMetrics)
	return r
}
