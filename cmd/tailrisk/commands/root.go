package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/tailrisk/pkg/config"
	"github.com/wonny/tailrisk/pkg/logger"
)

var (
	// Global flags
	outputFormat string
	verbose      bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "tailrisk",
	Short: "tailrisk - Monte Carlo / VaR / EVT 꼬리 리스크 도구",
	Long: `tailrisk Unified CLI

GBM 경로 시뮬레이션, 경험적 VaR/CVaR, POT/GPD 꼬리 보정.
정규분포 VaR와 EVT VaR의 차이(capital gap)를 계산합니다.

Usage:
  go run ./cmd/tailrisk [command]

Examples:
  go run ./cmd/tailrisk simulate --paths 10000 --steps 252 --seed 42
  go run ./cmd/tailrisk evt compare --student-t --seed 42
  go run ./cmd/tailrisk report run config/scenario/heavy_tail.yaml
  go run ./cmd/tailrisk api`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "output format (table|json)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug log level)")
}

// bootstrap config + logger (모든 커맨드 공통)
func bootstrap() (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	if outputFormat != "table" && outputFormat != "json" {
		return nil, nil, fmt.Errorf("invalid --output %q (table|json)", outputFormat)
	}

	return cfg, logger.New(cfg), nil
}

func jsonOutput() bool {
	return outputFormat == "json"
}
