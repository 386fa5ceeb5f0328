package commands

import (
	"fmt"

	"github.com/wonny/aegis-pit/backend/internal/pipeline"
	"github.com/wonny/aegis-pit/backend/internal/pitconfig"
	"github.com/wonny/aegis-pit/backend/internal/s0_data"
	"github.com/wonny/aegis-pit/backend/internal/s1_universe"
	"github.com/wonny/aegis-pit/backend/pkg/config"
	"github.com/wonny/aegis-pit/backend/pkg/database"
	"github.com/wonny/aegis-pit/backend/pkg/logger"
)

// app holds the wiring shared by every command
type app struct {
	cfg    *config.Config
	log    *logger.Logger
	db     *database.DB
	params pitconfig.Params

	stocks      *s0_data.StockRepository
	disclosures *s0_data.DisclosureRepository
	results     *s0_data.ResultRepository
	runs        *s0_data.BatchRunRepository
}

// newApp loads config, connects to the database and resolves PIT parameters
func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if paramsFile != "" {
		cfg.PIT.ParamsFile = paramsFile
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	log := logger.New(cfg)

	params, err := pitconfig.Resolve(cfg.PIT)
	if err != nil {
		return nil, fmt.Errorf("resolve pit params: %w", err)
	}

	db, err := database.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	log.WithFields(map[string]interface{}{
		"env":         cfg.Env,
		"params_hash": params.Hash,
		"batch_size":  params.BatchSize,
		"workers":     params.Workers,
	}).Debug("Application initialized")

	return &app{
		cfg:         cfg,
		log:         log,
		db:          db,
		params:      params,
		stocks:      s0_data.NewStockRepository(db.Pool),
		disclosures: s0_data.NewDisclosureRepository(db.Pool),
		results:     s0_data.NewResultRepository(db.Pool),
		runs:        s0_data.NewBatchRunRepository(db.Pool),
	}, nil
}

// Close releases the database pool
func (a *app) Close() {
	a.db.Close()
}

func (a *app) engine() *pipeline.Engine {
	return pipeline.NewEngine(a.params, a.log)
}

func (a *app) runner() *pipeline.Runner {
	return pipeline.NewRunner(
		a.engine(),
		s1_universe.NewBuilder(s1_universe.DefaultConfig()),
		a.disclosures,
		a.stocks,
		a.results,
		a.runs,
		a.log,
	)
}

// runConfig builds a batch config from the effective parameters
func (a *app) runConfig() pipeline.RunConfig {
	return pipeline.RunConfig{
		BatchSize:  a.params.BatchSize,
		Workers:    a.params.Workers,
		ParamsHash: a.params.Hash,
	}
}
