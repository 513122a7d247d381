package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"volscan/internal/config"
)

// HealthStatus is the body of GET /health
type HealthStatus struct {
	Status  string `json:"status"`
	Phase   string `json:"phase"`
	RunID   string `json:"run_id,omitempty"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
}

// PhaseFunc reports the current pipeline phase
type PhaseFunc func() string

// HealthHandler handles health-related HTTP requests
type HealthHandler struct {
	phase   PhaseFunc
	runID   string
	started time.Time
	logger  *slog.Logger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(phase PhaseFunc, runID string, logger *slog.Logger) *HealthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthHandler{
		phase:   phase,
		runID:   runID,
		started: time.Now(),
		logger:  logger.With(slog.String("handler", "health")),
	}
}

// HealthCheck handles GET /health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	phase := "unknown"
	if h.phase != nil {
		phase = h.phase()
	}

	h.logger.DebugContext(r.Context(), "health check", slog.String("phase", phase))
	render.JSON(w, r, HealthStatus{
		Status:  "ok",
		Phase:   phase,
		RunID:   h.runID,
		Version: config.AppVersion,
		Uptime:  time.Since(h.started).Truncate(time.Millisecond).String(),
	})
}
