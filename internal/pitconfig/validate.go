package pitconfig

import (
	"fmt"
	"math"

	"github.com/wonny/aegis-pit/backend/internal/s5_scoring"
)

// ValidationError 검증 실패 (프로그램 중단)
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks all required constraints
func Validate(cfg *Config) error {
	if cfg.Meta.ParamsID == "" {
		return ValidationError{"meta.params_id", "required"}
	}

	// === Snapshot ===
	if cfg.Snapshot.StaleMonths < 0 {
		return ValidationError{"snapshot.stale_months", "must be >= 0"}
	}

	// === Window ===
	if cfg.Window.YoYIntervalWeeks < 0 {
		return ValidationError{"window.yoy_interval_weeks", "must be >= 0"}
	}
	if cfg.Window.YoYToleranceDays < 0 || cfg.Window.YoYToleranceDays > 120 {
		return ValidationError{"window.yoy_tolerance_days", "must be in [0, 120]"}
	}
	if cfg.Window.WinsorUpper != 0 || cfg.Window.WinsorLower != 0 {
		if err := validatePctRange(cfg.Window.WinsorLower, "window.winsor_lower"); err != nil {
			return err
		}
		if err := validatePctRange(cfg.Window.WinsorUpper, "window.winsor_upper"); err != nil {
			return err
		}
		if cfg.Window.WinsorLower >= cfg.Window.WinsorUpper {
			return ValidationError{"window", "winsor_lower must be < winsor_upper"}
		}
	}

	// === Batch ===
	if cfg.Batch.BatchSize < 0 {
		return ValidationError{"batch.batch_size", "must be >= 0"}
	}
	if cfg.Batch.Workers < 0 {
		return ValidationError{"batch.workers", "must be >= 0"}
	}

	// === Factors ===
	names := make(map[string]struct{}, len(cfg.Factors))
	weights := make([]float64, 0, len(cfg.Factors))
	for i, f := range cfg.Factors {
		field := fmt.Sprintf("factors[%d]", i)
		if f.Name == "" {
			return ValidationError{field + ".name", "required"}
		}
		if _, dup := names[f.Name]; dup {
			return ValidationError{field + ".name", fmt.Sprintf("duplicate factor %q", f.Name)}
		}
		names[f.Name] = struct{}{}

		kind, err := s5_scoring.ParseFactorKind(f.Kind)
		if err != nil {
			return ValidationError{field + ".kind", err.Error()}
		}
		if f.Metric == "" {
			return ValidationError{field + ".metric", "required"}
		}
		if kind == s5_scoring.FactorTTMRatio && f.Denominator == "" {
			return ValidationError{field + ".denominator", "required for ttm_ratio"}
		}
		if f.Weight <= 0 {
			return ValidationError{field + ".weight", "must be > 0"}
		}
		if f.Direction != "" && f.Direction != "higher" && f.Direction != "lower" {
			return ValidationError{field + ".direction", "must be higher or lower"}
		}
		weights = append(weights, f.Weight)
	}

	if len(weights) > 0 {
		if err := validateWeightsSum(weights, 1.0, 1e-6); err != nil {
			return ValidationError{"factors", err.Error()}
		}
	}

	return nil
}

func validateWeightsSum(weights []float64, target float64, epsilon float64) error {
	sum := 0.0
	for _, w := range weights {
		sum += w
	}
	if math.Abs(sum-target) > epsilon {
		return fmt.Errorf("weights must sum to %.2f, got %.6f", target, sum)
	}
	return nil
}

func validatePctRange(pct float64, field string) error {
	if pct < 0 || pct > 1 {
		return ValidationError{field, "must be in [0, 1]"}
	}
	return nil
}
