package main

import (
	"os"

	"github.com/wonny/aegis-pit/backend/cmd/quant/commands"
)

// main is the entry point for the Aegis PIT CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/quant [command]
// 종료 코드 1: 명령 실패 또는 배치에서 성공한 종목이 없음
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
