package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

// Version is stamped at build time via -ldflags.
var Version = "dev"

// Pinger is the shape shared by the dependency health checks.
type Pinger interface {
	HealthCheck(ctx context.Context) error
}

// HealthChecker serves liveness and dependency checks. Any dependency may be
// nil when the server runs degraded; nil dependencies are reported as
// "disabled" and do not fail the check.
type HealthChecker struct {
	db    Pinger
	cache Pinger
	queue Pinger
}

// NewHealthChecker creates a health checker over the given dependencies.
func NewHealthChecker(db, cache, queue Pinger) *HealthChecker {
	return &HealthChecker{db: db, cache: cache, queue: queue}
}

// RegisterRoutes registers the health and version endpoints on the root
// router.
func (h *HealthChecker) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/healthz", h.HealthCheck).Methods("GET")
	r.HandleFunc("/version", h.VersionInfo).Methods("GET")
}

// HealthResponse is the health check body.
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// HealthCheck handles /healthz. Basic mode reports process liveness only;
// ?mode=extended pings each dependency with a short timeout.
func (h *HealthChecker) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	if r.URL.Query().Get("mode") != "extended" {
		respondJSON(w, http.StatusOK, response)
		return
	}

	checks := map[string]string{
		"postgres": h.check(r.Context(), h.db),
		"redis":    h.check(r.Context(), h.cache),
		"rabbitmq": h.check(r.Context(), h.queue),
	}

	status := http.StatusOK
	for _, result := range checks {
		if result != "healthy" && result != "disabled" {
			response.Status = "unhealthy"
			status = http.StatusServiceUnavailable
		}
	}
	response.Checks = checks
	respondJSON(w, status, response)
}

func (h *HealthChecker) check(ctx context.Context, dep Pinger) string {
	if dep == nil {
		return "disabled"
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := dep.HealthCheck(ctx); err != nil {
		return "unhealthy: " + err.Error()
	}
	return "healthy"
}

// VersionInfo handles /version.
func (h *HealthChecker) VersionInfo(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"version": Version})
}
