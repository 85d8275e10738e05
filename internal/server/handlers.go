package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/aristath/portfolio-analytics/internal/database"
)

// Version is reported by /health.
const Version = "1.0.0"

// handleHealth reports service health, including a quick check of both databases.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := map[string]string{}
	for _, db := range []*database.DB{s.container.AnalyticsDB, s.container.CacheDB} {
		if db == nil {
			continue
		}
		if err := db.HealthCheck(ctx); err != nil {
			s.log.Error().Err(err).Str("database", db.Name()).Msg("Health check failed")
			checks[db.Name()] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[db.Name()] = "ok"
	}

	response := map[string]interface{}{
		"status":    "healthy",
		"version":   Version,
		"service":   "portfolio-analytics",
		"databases": checks,
	}
	if status != http.StatusOK {
		response["status"] = "unhealthy"
	}

	writeJSON(w, status, response)
}

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
