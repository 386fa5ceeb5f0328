package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5"

	"github.com/wonny/aegis-pit/backend/internal/contracts"
	"github.com/wonny/aegis-pit/backend/internal/s3_snapshot"
	"github.com/wonny/aegis-pit/backend/pkg/logger"
)

// SnapshotEngine computes one entity's PIT view
type SnapshotEngine interface {
	Snapshot(entity contracts.Entity, asOf time.Time, records []*contracts.DisclosureRecord) (*contracts.EntityResult, error)
}

// EntityLookup finds a single company
type EntityLookup interface {
	GetEntity(ctx context.Context, code string) (*contracts.Entity, error)
}

// ScoreReader reads stored composite scores
type ScoreReader interface {
	GetScores(ctx context.Context, asOf time.Time) ([]contracts.CompositeScore, error)
}

// PITHandler serves point-in-time queries
// ⭐ SSOT: PIT 조회 API 핸들러는 이 구조체에서만
type PITHandler struct {
	engine      SnapshotEngine
	entities    EntityLookup
	disclosures contracts.DisclosureRepository
	scores      ScoreReader
	logger      *logger.Logger
	now         func() time.Time
}

// NewPITHandler creates a new PIT handler
func NewPITHandler(
	engine SnapshotEngine,
	entities EntityLookup,
	disclosures contracts.DisclosureRepository,
	scores ScoreReader,
	log *logger.Logger,
) *PITHandler {
	return &PITHandler{
		engine:      engine,
		entities:    entities,
		disclosures: disclosures,
		scores:      scores,
		logger:      log,
		now:         time.Now,
	}
}

// SnapshotResponse is the read-only view of one entity at one date
type SnapshotResponse struct {
	Code        string                                      `json:"code"`
	AsOf        string                                      `json:"as_of"`
	Latest      map[string]contracts.DecomposedQuarterValue `json:"latest"`
	Derived     []contracts.DerivedMetricSet                `json:"derived"`
	Diagnostics []string                                    `json:"diagnostics"`
	Excluded    bool                                        `json:"excluded"`
}

// GetSnapshot computes the snapshot of one company as of a date
// GET /api/pit/{code}/snapshot?as_of=YYYY-MM-DD
func (h *PITHandler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	code := mux.Vars(r)["code"]

	asOf, ok := h.parseAsOf(w, r)
	if !ok {
		return
	}

	entity, err := h.entities.GetEntity(ctx, code)
	if errors.Is(err, pgx.ErrNoRows) {
		respondError(w, http.StatusNotFound, "Unknown stock code")
		return
	}
	if err != nil {
		h.logger.WithError(err).WithField("code", code).Error("Failed to get entity")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve entity")
		return
	}

	records, err := h.disclosures.GetVisibleByCode(ctx, code, asOf)
	if err != nil {
		h.logger.WithError(err).WithField("code", code).Error("Failed to get disclosures")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve disclosures")
		return
	}

	result, err := h.engine.Snapshot(*entity, asOf, records)
	if errors.Is(err, s3_snapshot.ErrNotEligible) {
		respondError(w, http.StatusNotFound, "Stock not listed at as_of")
		return
	}
	if err != nil {
		h.logger.WithError(err).WithField("code", code).Error("Failed to compute snapshot")
		respondError(w, http.StatusInternalServerError, "Failed to compute snapshot")
		return
	}

	resp := SnapshotResponse{
		Code:        code,
		AsOf:        asOf.Format("2006-01-02"),
		Derived:     result.Derived,
		Diagnostics: make([]string, 0, len(result.Diagnostics)),
		Excluded:    result.Snapshot == nil,
	}
	if result.Snapshot != nil {
		resp.Latest = result.Snapshot.Latest
	}
	for _, d := range result.Diagnostics {
		resp.Diagnostics = append(resp.Diagnostics, d.String())
	}

	respondJSON(w, http.StatusOK, resp)
}

// GetScores returns stored composite scores of a date in rank order
// GET /api/pit/scores?as_of=YYYY-MM-DD
func (h *PITHandler) GetScores(w http.ResponseWriter, r *http.Request) {
	asOf, ok := h.parseAsOf(w, r)
	if !ok {
		return
	}

	scores, err := h.scores.GetScores(r.Context(), asOf)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get scores")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve scores")
		return
	}
	if scores == nil {
		scores = []contracts.CompositeScore{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"as_of":  asOf.Format("2006-01-02"),
		"count":  len(scores),
		"scores": scores,
	})
}

// parseAsOf reads ?as_of=, defaulting to today
func (h *PITHandler) parseAsOf(w http.ResponseWriter, r *http.Request) (time.Time, bool) {
	raw := r.URL.Query().Get("as_of")
	if raw == "" {
		y, m, d := h.now().Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), true
	}

	asOf, err := time.Parse("2006-01-02", raw)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid 'as_of' date format (expected YYYY-MM-DD)")
		return time.Time{}, false
	}
	return asOf, true
}
