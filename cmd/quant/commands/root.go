package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	paramsFile string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "quant",
	Short: "Aegis PIT - 시점 정합 재무 정규화 엔진",
	Long: `Aegis PIT Unified CLI

불규칙하게 공시되는 재무제표(정기보고서, 잠정실적, 실적 전망)를
기준일 시점에서 알 수 있었던 값만으로 분기 단위 시계열로 정규화하고
TTM / YoY / 종합 점수를 산출합니다.

Usage:
  go run ./cmd/quant [command]

Examples:
  go run ./cmd/quant pit run --as-of 2024-05-20
  go run ./cmd/quant pit snapshot 005930 --as-of 2024-05-20
  go run ./cmd/quant fetcher financials --years 2023,2024
  go run ./cmd/quant api`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&paramsFile, "params", "", "PIT 파라미터 YAML (기본: PIT_PARAMS_FILE)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
