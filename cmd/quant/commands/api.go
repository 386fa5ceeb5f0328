package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/aegis-pit/backend/internal/api"
	"github.com/wonny/aegis-pit/backend/internal/api/handlers"
	"github.com/wonny/aegis-pit/backend/internal/s0_data/quality"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "조회 전용 API 서버 시작",
	Long: `PIT 결과를 조회하는 HTTP API 서버를 시작합니다.

Endpoints:
  GET /health
  GET /api/pit/scores?as_of=YYYY-MM-DD
  GET /api/pit/{code}/snapshot?as_of=YYYY-MM-DD
  GET /api/data/quality

Example:
  go run ./cmd/quant api
  PORT=9000 go run ./cmd/quant api`,
	RunE: runAPI,
}

func init() {
	rootCmd.AddCommand(apiCmd)
}

func runAPI(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	pitHandler := handlers.NewPITHandler(a.engine(), a.stocks, a.disclosures, a.results, a.log)
	dataHandler := handlers.NewDataHandler(quality.NewRepository(a.db.Pool), a.log)

	router := api.NewRouter(pitHandler, dataHandler, a.log)
	server := api.New(a.cfg, a.log, router)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Run(ctx); err != nil {
		return fmt.Errorf("api server: %w", err)
	}
	return nil
}
