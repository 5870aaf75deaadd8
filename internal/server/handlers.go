package server

import (
	"encoding/json"
	"net/http"
)

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":  "healthy",
		"version": Version,
		"service": "volregime",
	}

	if s.db != nil {
		if err := s.db.HealthCheck(r.Context()); err != nil {
			s.log.Error().Err(err).Str("database", s.db.Name()).Msg("Database health check failed")
			response["status"] = "degraded"
			response["database"] = err.Error()
			s.writeJSON(w, http.StatusServiceUnavailable, response)
			return
		}
		response["database"] = "ok"
	}

	s.writeJSON(w, http.StatusOK, response)
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
