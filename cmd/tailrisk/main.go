package main

import (
	"os"

	"github.com/wonny/tailrisk/cmd/tailrisk/commands"
)

// main is the entry point for the tailrisk CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/tailrisk [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
