package api

import (
	"context"
	"net/http"
)

// healthchecker is implemented by metadata stores that can verify
// their own connectivity (pkg/store/metadata/postgres.Store). The
// in-memory store has nothing to check and simply doesn't implement
// this, in which case readiness reports healthy unconditionally.
type healthchecker interface {
	Healthcheck(ctx context.Context) error
}

// liveness handles GET /health — always 200 once the process can
// serve HTTP at all.
func (s *Server) liveness(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, HealthyResponse(map[string]string{"service": "deuce"}))
}

// readiness handles GET /health/ready — pings the metadata store when
// it supports a healthcheck.
func (s *Server) readiness(w http.ResponseWriter, r *http.Request) {
	checker, ok := s.deps.Metadata.(healthchecker)
	if !ok {
		JSON(w, http.StatusOK, HealthyResponse(map[string]string{"service": "deuce"}))
		return
	}

	if err := checker.Healthcheck(r.Context()); err != nil {
		JSON(w, http.StatusServiceUnavailable, UnhealthyResponse(err.Error()))
		return
	}
	JSON(w, http.StatusOK, HealthyResponse(map[string]string{"service": "deuce", "metadata": "connected"}))
}
