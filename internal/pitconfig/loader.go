package pitconfig

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/wonny/aegis-pit/backend/internal/s3_snapshot"
	"github.com/wonny/aegis-pit/backend/internal/s4_window"
	"github.com/wonny/aegis-pit/backend/internal/s5_scoring"
	"github.com/wonny/aegis-pit/backend/pkg/config"
)

// Load reads the YAML parameter file and returns Config with raw bytes
// KnownFields(true): 오타/미사용 필드 즉시 실패
func Load(path string) (*Config, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read params file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, data, err
	}
	return cfg, data, nil
}

// Parse decodes and validates parameter YAML
func Parse(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode params: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Hash generates SHA256 hash from Config (canonical JSON)
// 배치 감사 로그에 어떤 파라미터로 계산했는지 남긴다
func Hash(cfg *Config) (string, error) {
	jsonBytes, err := json.Marshal(cfg)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(jsonBytes)
	return hex.EncodeToString(sum[:]), nil
}

// Params are the effective engine parameters after merging env and file
type Params struct {
	Snapshot  s3_snapshot.Config
	Window    s4_window.Config
	Factors   []s5_scoring.Factor
	BatchSize int
	Workers   int
	Hash      string // 파라미터 파일 해시 (없으면 "")
}

// FromEnv builds parameters from env config only
func FromEnv(pit config.PITConfig) Params {
	return Params{
		Snapshot: s3_snapshot.Config{StaleMonths: pit.StaleMonths},
		Window: s4_window.Config{
			YoYIntervalWeeks: pit.YoYIntervalWeeks,
			YoYToleranceDays: pit.YoYToleranceDays,
			WinsorLower:      pit.WinsorLower,
			WinsorUpper:      pit.WinsorUpper,
		},
		Factors:   s5_scoring.DefaultFactors(),
		BatchSize: pit.BatchSize,
		Workers:   pit.Workers,
	}
}

// Resolve merges env defaults with the parameter file at pit.ParamsFile, if set
func Resolve(pit config.PITConfig) (Params, error) {
	params := FromEnv(pit)
	if pit.ParamsFile == "" {
		return params, nil
	}

	cfg, _, err := Load(pit.ParamsFile)
	if err != nil {
		return params, err
	}
	return Apply(params, cfg)
}

// Apply overrides params with every non-zero field of cfg
func Apply(params Params, cfg *Config) (Params, error) {
	if cfg.Snapshot.StaleMonths > 0 {
		params.Snapshot.StaleMonths = cfg.Snapshot.StaleMonths
	}
	if cfg.Window.YoYIntervalWeeks > 0 {
		params.Window.YoYIntervalWeeks = cfg.Window.YoYIntervalWeeks
	}
	if cfg.Window.YoYToleranceDays > 0 {
		params.Window.YoYToleranceDays = cfg.Window.YoYToleranceDays
	}
	if cfg.Window.WinsorUpper > 0 {
		params.Window.WinsorLower = cfg.Window.WinsorLower
		params.Window.WinsorUpper = cfg.Window.WinsorUpper
	}
	if cfg.Batch.BatchSize > 0 {
		params.BatchSize = cfg.Batch.BatchSize
	}
	if cfg.Batch.Workers > 0 {
		params.Workers = cfg.Batch.Workers
	}

	if len(cfg.Factors) > 0 {
		factors, err := cfg.ScoringFactors()
		if err != nil {
			return params, err
		}
		params.Factors = factors
	}

	hash, err := Hash(cfg)
	if err != nil {
		return params, err
	}
	params.Hash = hash
	return params, nil
}

// ScoringFactors converts factor specs to scoring factors
func (c *Config) ScoringFactors() ([]s5_scoring.Factor, error) {
	factors := make([]s5_scoring.Factor, 0, len(c.Factors))
	for i, f := range c.Factors {
		kind, err := s5_scoring.ParseFactorKind(f.Kind)
		if err != nil {
			return nil, ValidationError{fmt.Sprintf("factors[%d].kind", i), err.Error()}
		}
		factors = append(factors, s5_scoring.Factor{
			Name:           f.Name,
			Kind:           kind,
			Metric:         f.Metric,
			Denominator:    f.Denominator,
			Weight:         f.Weight,
			HigherIsBetter: f.Direction != "lower",
		})
	}
	return factors, nil
}
