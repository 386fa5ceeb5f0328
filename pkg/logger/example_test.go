package logger_test

import (
	"errors"
	"os"
	"time"

	"github.com/wonny/aegis-pit/backend/pkg/config"
	"github.com/wonny/aegis-pit/backend/pkg/logger"
)

// Example_basic creates the process logger from config
func Example_basic() {
	cfg := &config.Config{
		Env:       "development",
		LogLevel:  "info",
		LogFormat: "console",
	}

	log := logger.New(cfg)

	log.Debug("not shown at info level")
	log.Info("PIT batch scheduled")
	log.Infof("params hash %s", "3f9a1c")
}

// Example_batch tags batch and entity events the way the runner does
func Example_batch() {
	log := logger.NewWithWriter(os.Stderr, "info").WithField("module", "runner")
	asOf := time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC)

	run := log.WithRun("2c1d7e0a-5b7f-4c47-9a0e-7f3e1d2b6c90")
	run.WithFields(map[string]interface{}{
		"dates":    1,
		"entities": 2412,
	}).Info("Starting PIT batch")

	run.WithEntity("005930", asOf).
		WithError(errors.New("connection reset")).
		Error("Failed to load disclosures")

	run.WithAsOf(asOf).WithFields(map[string]interface{}{
		"success": 2398,
		"failed":  1,
	}).Info("As-of date completed")
}
