package s3_snapshot

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/wonny/aegis-pit/backend/internal/contracts"
	"github.com/wonny/aegis-pit/backend/pkg/logger"
)

var (
	// ErrNotEligible means the entity was not listed at the as-of date
	ErrNotEligible = errors.New("entity not listed at as-of date")
	// ErrNoCurrentData means nothing visible is recent enough to publish
	ErrNoCurrentData = errors.New("no current data at as-of date")
)

// Config holds snapshot parameters
type Config struct {
	StaleMonths int // 기준 분기가 이보다 오래되면 stale
}

// DefaultConfig returns default snapshot parameters
func DefaultConfig() Config {
	return Config{StaleMonths: 10}
}

// Resolver builds point-in-time snapshots.
// It holds no state between calls: every snapshot is re-derived from its inputs.
type Resolver struct {
	cfg    Config
	logger *logger.Logger
}

// NewResolver creates a new snapshot resolver
func NewResolver(cfg Config, log *logger.Logger) *Resolver {
	if cfg.StaleMonths <= 0 {
		cfg.StaleMonths = DefaultConfig().StaleMonths
	}
	return &Resolver{
		cfg:    cfg,
		logger: log.WithField("module", "snapshot"),
	}
}

// StaleCutoff returns the earliest period end still considered current at asOf
func (r *Resolver) StaleCutoff(asOf time.Time) time.Time {
	return asOf.AddDate(0, -r.cfg.StaleMonths, 0)
}

type periodMetric struct {
	period time.Time
	metric string
}

// Resolve answers what was known about one entity as of asOf.
// values is the entity's decomposed series; anything disclosed after asOf is ignored.
// When the entity is excluded the returned error is ErrNotEligible or
// ErrNoCurrentData and the diagnostics say why.
func (r *Resolver) Resolve(entity contracts.Entity, asOf time.Time, values []contracts.DecomposedQuarterValue) (*contracts.Snapshot, []contracts.Diagnostic, error) {
	if !entity.EligibleAt(asOf) {
		return nil, nil, ErrNotEligible
	}

	visible := Visible(values, asOf)
	if len(visible) == 0 {
		return nil, []contracts.Diagnostic{{
			Kind:    contracts.DiagMissingInput,
			Code:    entity.Code,
			Message: "no disclosures visible at as-of date",
		}}, ErrNoCurrentData
	}

	groups := make(map[periodMetric][]contracts.DecomposedQuarterValue)
	candidates := make(map[string][]contracts.DecomposedQuarterValue)
	for _, v := range visible {
		k := periodMetric{period: v.PeriodEnd, metric: v.Metric}
		groups[k] = append(groups[k], v)
		candidates[v.Metric] = append(candidates[v.Metric], v)
	}

	history := make(map[string][]contracts.DecomposedQuarterValue)
	for _, group := range groups {
		chosen, ok := Select(group, asOf)
		if !ok {
			continue
		}
		history[chosen.Metric] = append(history[chosen.Metric], chosen)
	}
	for metric := range history {
		sortDescending(history[metric])
	}
	for metric := range candidates {
		sortDescending(candidates[metric])
	}

	snap := &contracts.Snapshot{
		Code:       entity.Code,
		AsOf:       asOf,
		Latest:     make(map[string]contracts.DecomposedQuarterValue),
		History:    history,
		Candidates: candidates,
	}

	var diags []contracts.Diagnostic
	cutoff := r.StaleCutoff(asOf)
	metrics := make([]string, 0, len(history))
	for m := range history {
		metrics = append(metrics, m)
	}
	sort.Strings(metrics)

	for _, metric := range metrics {
		latest := history[metric][0]
		if latest.PeriodEnd.Before(cutoff) {
			diags = append(diags, contracts.Diagnostic{
				Kind:    contracts.DiagStaleSnapshot,
				Code:    entity.Code,
				Period:  latest.PeriodEnd,
				Metric:  metric,
				Message: fmt.Sprintf("latest period older than %d months", r.cfg.StaleMonths),
			})
			continue
		}
		snap.Latest[metric] = latest
	}

	if len(snap.Latest) == 0 {
		diags = append(diags, contracts.Diagnostic{
			Kind:    contracts.DiagStaleSnapshot,
			Code:    entity.Code,
			Message: "every metric is stale, entity excluded",
		})
		r.logger.WithFields(map[string]interface{}{
			"code":  entity.Code,
			"as_of": asOf.Format("2006-01-02"),
		}).Debug("Stale snapshot excluded")
		return nil, diags, ErrNoCurrentData
	}

	return snap, diags, nil
}

// sortDescending orders values by period end, newest first
func sortDescending(values []contracts.DecomposedQuarterValue) {
	sort.SliceStable(values, func(i, j int) bool {
		if !values[i].PeriodEnd.Equal(values[j].PeriodEnd) {
			return values[i].PeriodEnd.After(values[j].PeriodEnd)
		}
		return values[i].Source < values[j].Source
	})
}
