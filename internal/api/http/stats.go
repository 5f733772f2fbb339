package http

import (
	"net/http"

	"github.com/quarrydb/quarry/internal/observability"
)

// StatsHandler serves GET /v1/stats: query execution counters.
type StatsHandler struct {
	stats *observability.QueryStats
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(stats *observability.QueryStats) *StatsHandler {
	return &StatsHandler{stats: stats}
}

func (h *StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.stats.Get())
}

// HealthHandler serves GET /healthz.
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
