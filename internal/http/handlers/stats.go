package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"ogfetch/internal/domain"
)

type StatsHandler struct {
	logger    *slog.Logger
	queueRepo domain.QueueRepository
}

func NewStatsHandler(logger *slog.Logger, queueRepo domain.QueueRepository) *StatsHandler {
	return &StatsHandler{
		logger:    logger,
		queueRepo: queueRepo,
	}
}

// GetStats handles GET /api/v1/stats and reports queue depth counters.
func (h *StatsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.queueRepo.GetQueueStats(r.Context(), domain.JobTypeExtractGraph)
	if err != nil {
		h.logger.Error("Failed to get queue stats", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{
		"queue": stats,
	}); err != nil {
		h.logger.Error("Failed to encode stats response", "error", err)
	}
}
