package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database
	Database DatabaseConfig

	// External APIs
	DART DARTConfig

	// PIT engine defaults (파라미터 파일이 덮어씀)
	PIT PITConfig

	// Scheduler
	Scheduler SchedulerConfig

	// Logging
	LogLevel  string
	LogFormat string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	URL      string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// DARTConfig holds DART (전자공시) API configuration
type DARTConfig struct {
	APIKey       string
	BaseURL      string
	RateLimitRPS float64 // 초당 요청 수
}

// PITConfig holds point-in-time engine parameters
type PITConfig struct {
	StaleMonths      int
	YoYIntervalWeeks int
	YoYToleranceDays int
	WinsorLower      float64
	WinsorUpper      float64
	BatchSize        int
	Workers          int
	ParamsFile       string // YAML 파라미터 파일 (선택)
}

// SchedulerConfig holds cron settings for the daily batch
type SchedulerConfig struct {
	Enabled      bool
	PITBatchSpec string // cron spec (초 포함 6필드)
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	// Try multiple paths for .env file
	loadEnvFile()

	cfg := &Config{
		// Server
		Port: getEnv("PORT", "8089"),
		Env:  getEnv("ENV", "development"),

		// Database
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			Name:            getEnv("DB_NAME", "aegis_pit"),
			User:            getEnv("DB_USER", "aegis_pit"),
			Password:        getEnv("DB_PASSWORD", ""),
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 5),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		DART: DARTConfig{
			APIKey:       getEnv("DART_API_KEY", ""),
			BaseURL:      getEnv("DART_BASE_URL", "https://opendart.fss.or.kr/api"),
			RateLimitRPS: getEnvAsFloat("DART_RATE_LIMIT_RPS", 5),
		},

		PIT: PITConfig{
			StaleMonths:      getEnvAsInt("PIT_STALE_MONTHS", 10),
			YoYIntervalWeeks: getEnvAsInt("PIT_YOY_INTERVAL_WEEKS", 52),
			YoYToleranceDays: getEnvAsInt("PIT_YOY_TOLERANCE_DAYS", 45),
			WinsorLower:      getEnvAsFloat("PIT_WINSOR_LOWER", 0.01),
			WinsorUpper:      getEnvAsFloat("PIT_WINSOR_UPPER", 0.99),
			BatchSize:        getEnvAsInt("PIT_BATCH_SIZE", 200),
			Workers:          getEnvAsInt("PIT_WORKERS", 8),
			ParamsFile:       getEnv("PIT_PARAMS_FILE", ""),
		},

		Scheduler: SchedulerConfig{
			Enabled: getEnvAsBool("PIT_SCHEDULER_ENABLED", true),
			// 평일 20:30 (공시 마감 후)
			PITBatchSpec: getEnv("PIT_BATCH_CRON", "0 30 20 * * 1-5"),
		},

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "debug"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	// Database URL is required
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	// Validate environment
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.PIT.BatchSize <= 0 {
		return fmt.Errorf("PIT_BATCH_SIZE must be > 0")
	}
	if c.PIT.Workers <= 0 {
		return fmt.Errorf("PIT_WORKERS must be > 0")
	}
	if c.PIT.WinsorLower < 0 || c.PIT.WinsorUpper > 1 || c.PIT.WinsorLower >= c.PIT.WinsorUpper {
		return fmt.Errorf("PIT_WINSOR_LOWER/UPPER must satisfy 0 <= lower < upper <= 1")
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	// Try paths in order of priority
	paths := []string{
		".env",           // Current directory
		"backend/.env",   // From project root
	}

	// Also try relative to executable
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
			filepath.Join(exeDir, "..", "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		// Fallback to default
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
