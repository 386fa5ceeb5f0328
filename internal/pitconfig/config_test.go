package pitconfig

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/aegis-pit/backend/internal/s5_scoring"
	"github.com/wonny/aegis-pit/backend/pkg/config"
)

const validYAML = `
meta:
  params_id: test
snapshot:
  stale_months: 6
window:
  yoy_interval_weeks: 52
  yoy_tolerance_days: 30
  winsor_lower: 0.05
  winsor_upper: 0.95
batch:
  workers: 4
factors:
  - name: rev
    kind: quarter_yoy
    metric: revenue
    weight: 0.6
  - name: margin
    kind: ttm_ratio
    metric: operating_profit
    denominator: revenue
    weight: 0.4
    direction: higher
`

func envDefaults() config.PITConfig {
	return config.PITConfig{
		StaleMonths:      10,
		YoYIntervalWeeks: 52,
		YoYToleranceDays: 45,
		WinsorLower:      0.01,
		WinsorUpper:      0.99,
		BatchSize:        200,
		Workers:          8,
	}
}

func TestLoad(t *testing.T) {
	// 저장소 기본 파라미터 파일
	path := "../../config/pit/params.yaml"
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Skip("params file not found")
	}

	cfg, data, err := Load(path)
	require.NoError(t, err)
	assert.NotEmpty(t, data)
	assert.Equal(t, "pit_growth_margin", cfg.Meta.ParamsID)
	assert.Len(t, cfg.Factors, 4)

	hash, err := Hash(cfg)
	require.NoError(t, err)
	assert.Len(t, hash, 64)

	hash2, _ := Hash(cfg)
	assert.Equal(t, hash, hash2, "hash must be deterministic")
}

func TestParse_UnknownField(t *testing.T) {
	_, err := Parse([]byte("meta:\n  params_id: x\n  typo_field: 1\n"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		yaml  string
		field string
	}{
		{"missing id", "snapshot:\n  stale_months: 3\n", "meta.params_id"},
		{"bad kind", "meta:\n  params_id: x\nfactors:\n  - {name: a, kind: momentum, metric: revenue, weight: 1}\n", "factors[0].kind"},
		{"ratio without denominator", "meta:\n  params_id: x\nfactors:\n  - {name: a, kind: ttm_ratio, metric: revenue, weight: 1}\n", "factors[0].denominator"},
		{"weights not summing", "meta:\n  params_id: x\nfactors:\n  - {name: a, kind: quarter_yoy, metric: revenue, weight: 0.5}\n", "factors"},
		{"duplicate names", "meta:\n  params_id: x\nfactors:\n  - {name: a, kind: quarter_yoy, metric: revenue, weight: 0.5}\n  - {name: a, kind: ttm_yoy, metric: revenue, weight: 0.5}\n", "factors[1].name"},
		{"winsor order", "meta:\n  params_id: x\nwindow:\n  winsor_lower: 0.9\n  winsor_upper: 0.1\n", "window"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			var verr ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestResolve(t *testing.T) {
	t.Run("env only", func(t *testing.T) {
		params, err := Resolve(envDefaults())
		require.NoError(t, err)
		assert.Equal(t, 10, params.Snapshot.StaleMonths)
		assert.Equal(t, s5_scoring.DefaultFactors(), params.Factors)
		assert.Empty(t, params.Hash)
	})

	t.Run("file overrides env", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "params.yaml")
		require.NoError(t, os.WriteFile(path, []byte(validYAML), 0o600))

		pit := envDefaults()
		pit.ParamsFile = path
		params, err := Resolve(pit)
		require.NoError(t, err)

		assert.Equal(t, 6, params.Snapshot.StaleMonths)
		assert.Equal(t, 30, params.Window.YoYToleranceDays)
		assert.Equal(t, 0.05, params.Window.WinsorLower)
		assert.Equal(t, 200, params.BatchSize, "zero in file keeps env value")
		assert.Equal(t, 4, params.Workers)
		require.Len(t, params.Factors, 2)
		assert.Equal(t, s5_scoring.FactorTTMRatio, params.Factors[1].Kind)
		assert.True(t, params.Factors[0].HigherIsBetter)
		assert.Len(t, params.Hash, 64)
	})

	t.Run("missing file", func(t *testing.T) {
		pit := envDefaults()
		pit.ParamsFile = filepath.Join(t.TempDir(), "nope.yaml")
		_, err := Resolve(pit)
		assert.Error(t, err)
	})
}
