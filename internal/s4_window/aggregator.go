package s4_window

import (
	"time"

	"github.com/wonny/aegis-pit/backend/internal/contracts"
	"github.com/wonny/aegis-pit/backend/pkg/logger"
)

// Config holds window parameters
type Config struct {
	YoYIntervalWeeks int     // 기준 분기와 비교 분기 간격 (주)
	YoYToleranceDays int     // 비교 분기 허용 오차 (일)
	WinsorLower      float64 // 하단 분위 (0.01 = 1%)
	WinsorUpper      float64 // 상단 분위 (0.99 = 99%)
}

// DefaultConfig returns default window parameters
func DefaultConfig() Config {
	return Config{
		YoYIntervalWeeks: 52,
		YoYToleranceDays: 45,
		WinsorLower:      0.01,
		WinsorUpper:      0.99,
	}
}

// Interval returns the YoY interval as a duration
func (c Config) Interval() time.Duration {
	return time.Duration(c.YoYIntervalWeeks) * 7 * 24 * time.Hour
}

// Tolerance returns the YoY tolerance as a duration
func (c Config) Tolerance() time.Duration {
	return time.Duration(c.YoYToleranceDays) * 24 * time.Hour
}

// Aggregator computes trailing-window metrics for one snapshot
type Aggregator struct {
	cfg    Config
	logger *logger.Logger
}

// NewAggregator creates a new windowed aggregator
func NewAggregator(cfg Config, log *logger.Logger) *Aggregator {
	def := DefaultConfig()
	if cfg.YoYIntervalWeeks <= 0 {
		cfg.YoYIntervalWeeks = def.YoYIntervalWeeks
	}
	if cfg.YoYToleranceDays < 0 {
		cfg.YoYToleranceDays = def.YoYToleranceDays
	}
	if cfg.WinsorLower < 0 || cfg.WinsorUpper > 1 || cfg.WinsorLower >= cfg.WinsorUpper {
		cfg.WinsorLower, cfg.WinsorUpper = def.WinsorLower, def.WinsorUpper
	}
	return &Aggregator{
		cfg:    cfg,
		logger: log.WithField("module", "window"),
	}
}

// Config returns the effective parameters
func (a *Aggregator) Config() Config {
	return a.cfg
}

// Compute derives TTM and YoY figures for every current metric of the snapshot
func (a *Aggregator) Compute(snap *contracts.Snapshot) ([]contracts.DerivedMetricSet, []contracts.Diagnostic) {
	if snap == nil {
		return nil, nil
	}

	var sets []contracts.DerivedMetricSet
	var diags []contracts.Diagnostic

	for _, metric := range snap.Metrics() {
		ref := snap.Latest[metric]
		history := snap.History[metric]

		set := contracts.DerivedMetricSet{
			Code:      snap.Code,
			AsOf:      snap.AsOf,
			Metric:    metric,
			PeriodEnd: ref.PeriodEnd,
			Quarter:   contracts.Float(ref.Value),
		}

		ttm, quality := TTM(history, ref.PeriodEnd)
		set.TTM = ttm
		set.Quality = quality
		if ttm == nil {
			diags = append(diags, contracts.Diagnostic{
				Kind:    contracts.DiagMissingInput,
				Code:    snap.Code,
				Period:  ref.PeriodEnd,
				Metric:  metric,
				Message: "fewer than four quarters for TTM",
			})
		}

		// 단일 분기 YoY
		baseline, ok, mismatched := findBaseline(snap.Candidates[metric], ref, a.cfg.Interval(), a.cfg.Tolerance())
		switch {
		case mismatched:
			diags = append(diags, undefinedRatio(snap.Code, ref.PeriodEnd, metric,
				"quarter baseline not comparable with "+ref.Status.String()))
		case !ok:
			diags = append(diags, a.baselineMissing(snap.Code, ref.PeriodEnd, metric, "quarter"))
		default:
			growth, defined := Growth(ref.Value, baseline.Value)
			set.YoYGrowth = growth
			if !defined {
				diags = append(diags, undefinedRatio(snap.Code, ref.PeriodEnd, metric, "quarter baseline is zero"))
			}
		}

		// TTM YoY: 비단일분기 값이 섞인 TTM은 비교하지 않음
		switch {
		case ttm == nil:
		case quality == contracts.QualityDegraded:
			diags = append(diags, undefinedRatio(snap.Code, ref.PeriodEnd, metric, "TTM is degraded"))
		default:
			prev, ok := a.baselineTTM(history, ref.PeriodEnd)
			if !ok {
				diags = append(diags, a.baselineMissing(snap.Code, ref.PeriodEnd, metric, "TTM"))
			} else {
				growth, defined := Growth(*ttm, prev)
				set.TTMYoYGrowth = growth
				if !defined {
					diags = append(diags, undefinedRatio(snap.Code, ref.PeriodEnd, metric, "TTM baseline is zero"))
				}
			}
		}

		sets = append(sets, set)
	}

	return sets, diags
}

// baselineTTM finds the TTM of the period closest to one interval before ref.
// Degraded TTMs are not baselines.
func (a *Aggregator) baselineTTM(history []contracts.DecomposedQuarterValue, ref time.Time) (float64, bool) {
	target := ref.Add(-a.cfg.Interval())
	tol := a.cfg.Tolerance()

	var best float64
	bestDist := time.Duration(-1)
	for _, h := range history {
		dist := absDuration(h.PeriodEnd.Sub(target))
		if dist > tol || !h.PeriodEnd.Before(ref) {
			continue
		}
		ttm, quality := TTM(history, h.PeriodEnd)
		if ttm == nil || quality == contracts.QualityDegraded {
			continue
		}
		if bestDist < 0 || dist < bestDist {
			best, bestDist = *ttm, dist
		}
	}
	return best, bestDist >= 0
}

func (a *Aggregator) baselineMissing(code string, period time.Time, metric, what string) contracts.Diagnostic {
	return contracts.Diagnostic{
		Kind:    contracts.DiagBaselineNotFound,
		Code:    code,
		Period:  period,
		Metric:  metric,
		Message: what + " baseline not found within tolerance",
	}
}

func undefinedRatio(code string, period time.Time, metric, msg string) contracts.Diagnostic {
	return contracts.Diagnostic{
		Kind:    contracts.DiagUndefinedRatio,
		Code:    code,
		Period:  period,
		Metric:  metric,
		Message: msg,
	}
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
