package handler

import (
	"net/http"

	"petwatch/internal/dto"
	"petwatch/internal/logger"
)

// StatsProvider reports the monitor's session state.
type StatsProvider interface {
	Stats() dto.Stats
}

// StatsHandler handles GET /api/stats.
func StatsHandler(provider StatsProvider, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, logger, http.StatusOK, provider.Stats())
	}
}
