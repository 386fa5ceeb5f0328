package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/wonny/aegis-pit/backend/internal/s0_data/quality"
	"github.com/wonny/aegis-pit/backend/pkg/logger"
)

// QualityReader reads stored quality snapshots
type QualityReader interface {
	GetLatestBefore(ctx context.Context, date time.Time) (*quality.Snapshot, error)
}

// DataHandler handles data-related API endpoints
// ⭐ SSOT: 데이터 API 핸들러는 이 구조체에서만
type DataHandler struct {
	quality QualityReader
	logger  *logger.Logger
}

// NewDataHandler creates a new data handler
func NewDataHandler(q QualityReader, log *logger.Logger) *DataHandler {
	return &DataHandler{
		quality: q,
		logger:  log,
	}
}

// GetQuality returns the latest data quality snapshot
// GET /api/data/quality
func (h *DataHandler) GetQuality(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	snapshot, err := h.quality.GetLatestBefore(ctx, time.Now().AddDate(0, 0, 1))
	if err != nil {
		h.logger.WithError(err).Error("Failed to get quality snapshot")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve quality snapshot")
		return
	}
	if snapshot == nil {
		respondError(w, http.StatusNotFound, "No quality snapshot yet")
		return
	}

	respondJSON(w, http.StatusOK, snapshot)
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
