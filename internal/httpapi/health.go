package httpapi

import (
	"net/http"

	"go.uber.org/zap"
)

type healthChecks struct {
	Database string `json:"database"`
}

type healthResponse struct {
	Status string       `json:"status"`
	Checks healthChecks `json:"checks"`
}

// handleHealth implements GET /health: a shallow readiness probe
// distinct from the ambient /healthz,/readyz,/metrics surface served by
// internal/healthserver — this one reports whether the metadata store (and
// therefore the service's own request path) is reachable.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := pingCtx()
	defer cancel()

	if err := s.metadata.Ping(ctx); err != nil {
		s.logger.Error("health check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, envelope{
			Success: false,
			Data:    healthResponse{Status: "unhealthy", Checks: healthChecks{Database: "down"}},
			Error:   "metadata store unreachable",
		})
		return
	}
	writeOK(w, healthResponse{Status: "healthy", Checks: healthChecks{Database: "ok"}})
}
