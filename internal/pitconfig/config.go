package pitconfig

// Config는 PIT 엔진의 파라미터 파일
// env 기본값(pkg/config)을 덮어쓴다. 0 값 필드는 env 값을 유지.
type Config struct {
	Meta     Meta           `yaml:"meta" json:"meta"`
	Snapshot SnapshotParams `yaml:"snapshot" json:"snapshot"`
	Window   WindowParams   `yaml:"window" json:"window"`
	Batch    BatchParams    `yaml:"batch" json:"batch"`
	Factors  []FactorSpec   `yaml:"factors" json:"factors"`
}

// Meta 메타 정보
type Meta struct {
	ParamsID string `yaml:"params_id" json:"params_id"`
	Version  string `yaml:"version" json:"version"`
}

// SnapshotParams S3: 시점 스냅샷
type SnapshotParams struct {
	StaleMonths int `yaml:"stale_months" json:"stale_months"`
}

// WindowParams S4: TTM / YoY / 윈저라이즈
type WindowParams struct {
	YoYIntervalWeeks int     `yaml:"yoy_interval_weeks" json:"yoy_interval_weeks"`
	YoYToleranceDays int     `yaml:"yoy_tolerance_days" json:"yoy_tolerance_days"`
	WinsorLower      float64 `yaml:"winsor_lower" json:"winsor_lower"`
	WinsorUpper      float64 `yaml:"winsor_upper" json:"winsor_upper"`
}

// BatchParams 배치 실행
type BatchParams struct {
	BatchSize int `yaml:"batch_size" json:"batch_size"`
	Workers   int `yaml:"workers" json:"workers"`
}

// FactorSpec S5: 종합 점수 하위 팩터
type FactorSpec struct {
	Name        string  `yaml:"name" json:"name"`
	Kind        string  `yaml:"kind" json:"kind"` // quarter_yoy | ttm_yoy | ttm_ratio
	Metric      string  `yaml:"metric" json:"metric"`
	Denominator string  `yaml:"denominator,omitempty" json:"denominator,omitempty"`
	Weight      float64 `yaml:"weight" json:"weight"`
	Direction   string  `yaml:"direction" json:"direction"` // higher | lower
}
