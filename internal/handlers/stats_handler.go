package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/impensa/internal/common"
	"github.com/ternarybob/impensa/internal/interfaces"
)

// StatsHandler exposes the disk-vs-index reconciliation report.
type StatsHandler struct {
	reconcile interfaces.ReconcileService
	logger    arbor.ILogger
}

func NewStatsHandler(reconcile interfaces.ReconcileService, logger arbor.ILogger) *StatsHandler {
	if logger == nil {
		logger = common.GetLogger()
	}
	return &StatsHandler{
		reconcile: reconcile,
		logger:    logger,
	}
}

// GetStatsHandler handles GET /api/stats
// Disk counts always succeed; if the index engine is unreachable the whole
// report is answered with 502 so the frontend can show a degraded state.
func (h *StatsHandler) GetStatsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	report, err := h.reconcile.Report(r.Context())
	if err != nil {
		if h.logger != nil {
			h.logger.Error().Err(err).Msg("Failed to build stats report")
		}
		WriteError(w, http.StatusBadGateway, "Search index unavailable")
		return
	}

	WriteJSON(w, http.StatusOK, report)
}
