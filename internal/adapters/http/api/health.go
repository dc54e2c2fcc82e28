package api

import (
	"net/http"

	"github.com/okian/grader/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HealthHandler handles readiness and metrics requests.
type HealthHandler struct {
	deps    PredictionDependencies
	metrics http.Handler
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(deps PredictionDependencies) *HealthHandler {
	return &HealthHandler{
		deps:    deps,
		metrics: promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}),
	}
}

type healthResponse struct {
	Status           string   `json:"status"`
	ModelLoaded      bool     `json:"model_loaded"`
	ExpectedFeatures []string `json:"expected_features"`
	GradeScale       string   `json:"grade_scale,omitempty"`
}

// HandleHealth handles GET /health. It answers 503 until a model is loaded.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		methodNotAllowed(w, "health", "GET, HEAD")
		return
	}
	if !h.deps.Ready() {
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{
			Status:           "unavailable",
			ExpectedFeatures: []string{},
		})
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{
		Status:           "ok",
		ModelLoaded:      true,
		ExpectedFeatures: h.deps.Features(),
		GradeScale:       h.deps.GradeScale().Name(),
	})
}

// HandleMetrics serves the Prometheus registry.
func (h *HealthHandler) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	h.metrics.ServeHTTP(w, r)
}
