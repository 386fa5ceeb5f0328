package config_test

import (
	"fmt"

	"github.com/wonny/aegis-pit/backend/pkg/config"
)

// Example demonstrates how to use the config package
func Example() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		return
	}

	fmt.Printf("Environment: %s\n", cfg.Env)
	fmt.Printf("Database: %s\n", cfg.Database.Name)
	fmt.Printf("Staleness: %d months\n", cfg.PIT.StaleMonths)
	fmt.Printf("YoY window: %d weeks ±%d days\n", cfg.PIT.YoYIntervalWeeks, cfg.PIT.YoYToleranceDays)
	fmt.Printf("Batch: size=%d workers=%d\n", cfg.PIT.BatchSize, cfg.PIT.Workers)
}
