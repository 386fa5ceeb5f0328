package pipeline

import (
	"errors"
	"time"

	"github.com/wonny/aegis-pit/backend/internal/contracts"
	"github.com/wonny/aegis-pit/backend/internal/pitconfig"
	"github.com/wonny/aegis-pit/backend/internal/s2_decompose"
	"github.com/wonny/aegis-pit/backend/internal/s3_snapshot"
	"github.com/wonny/aegis-pit/backend/internal/s4_window"
	"github.com/wonny/aegis-pit/backend/internal/s5_scoring"
	"github.com/wonny/aegis-pit/backend/pkg/logger"
)

// Engine runs S2 → S5 for one as-of date without touching storage.
// Same inputs always give the same outputs.
type Engine struct {
	decomposer *s2_decompose.Decomposer
	resolver   *s3_snapshot.Resolver
	aggregator *s4_window.Aggregator
	scorer     *s5_scoring.Scorer
	logger     *logger.Logger
}

// NewEngine wires the stage components from effective parameters
func NewEngine(params pitconfig.Params, log *logger.Logger) *Engine {
	aggregator := s4_window.NewAggregator(params.Window, log)
	return &Engine{
		decomposer: s2_decompose.NewDecomposer(log),
		resolver:   s3_snapshot.NewResolver(params.Snapshot, log),
		aggregator: aggregator,
		scorer:     s5_scoring.NewScorer(params.Factors, aggregator, log),
		logger:     log.WithField("module", "engine"),
	}
}

// ComputeEntity derives everything known about one entity as of asOf.
// records may contain disclosures after asOf; they are ignored.
// When the snapshot excludes the entity the result is still returned (with its
// decomposed series and diagnostics) together with the exclusion error.
func (e *Engine) ComputeEntity(entity contracts.Entity, asOf time.Time, records []*contracts.DisclosureRecord) (*contracts.EntityResult, error) {
	visible := s3_snapshot.Visible(records, asOf)
	decomposed := e.decomposer.Decompose(entity.Code, visible)

	result := &contracts.EntityResult{
		Code:        entity.Code,
		AsOf:        asOf,
		Decomposed:  decomposed.Values,
		Diagnostics: decomposed.Diagnostics,
	}

	snap, diags, err := e.resolver.Resolve(entity, asOf, decomposed.Values)
	result.Diagnostics = append(result.Diagnostics, diags...)
	if err != nil {
		return result, err
	}
	result.Snapshot = snap

	derived, diags := e.aggregator.Compute(snap)
	result.Derived = derived
	result.Diagnostics = append(result.Diagnostics, diags...)

	e.logger.WithEntity(entity.Code, asOf).WithFields(map[string]interface{}{
		"visible":     len(visible),
		"decomposed":  len(result.Decomposed),
		"derived":     len(result.Derived),
		"diagnostics": len(result.Diagnostics),
	}).Debug("Entity computed")

	return result, nil
}

// Snapshot resolves one entity for read-only queries
func (e *Engine) Snapshot(entity contracts.Entity, asOf time.Time, records []*contracts.DisclosureRecord) (*contracts.EntityResult, error) {
	result, err := e.ComputeEntity(entity, asOf, records)
	if errors.Is(err, s3_snapshot.ErrNoCurrentData) {
		return result, nil
	}
	return result, err
}

// ScoreCrossSection ranks and combines factors across one date's results
func (e *Engine) ScoreCrossSection(asOf time.Time, results []*contracts.EntityResult) ([]contracts.CompositeScore, []contracts.Diagnostic) {
	return e.scorer.Score(asOf, results)
}
