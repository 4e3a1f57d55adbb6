package commands

import (
	"github.com/spf13/cobra"

	"github.com/wonny/tailrisk/internal/risk"
)

// lethalityCmd represents the lethality command
var lethalityCmd = &cobra.Command{
	Use:   "lethality",
	Short: "복합 지수 꼬리 분석",
	Long: `Beta 분포 인자들의 곱으로 복합 지수를 만들고,
상위 꼬리(--tail-pct 백분위 이상)와 본체의 인자 평균을 비교합니다.

기본 인자: pdg, arf, isg 모두 Beta(2,5)

Example:
  go run ./cmd/tailrisk lethality --n 10000 --seed 42
  go run ./cmd/tailrisk lethality --tail-pct 99 -o json`,
	RunE: runLethality,
}

var (
	lethN       int
	lethTailPct float64
	lethSeed    int64
)

func init() {
	rootCmd.AddCommand(lethalityCmd)

	// Flags
	lethalityCmd.Flags().IntVar(&lethN, "n", 10000, "표본 크기")
	lethalityCmd.Flags().Float64Var(&lethTailPct, "tail-pct", 95, "꼬리 백분위수")
	lethalityCmd.Flags().Int64Var(&lethSeed, "seed", 42, "난수 시드")
}

func runLethality(cmd *cobra.Command, args []string) error {
	if _, _, err := bootstrap(); err != nil {
		return err
	}

	res, err := risk.LethalityIndex(lethN, risk.DefaultLethalityFactors(), lethTailPct, lethSeed)
	if err != nil {
		return err
	}
	res.Index = nil

	out := cmd.OutOrStdout()
	if jsonOutput() {
		return printJSON(out, res)
	}

	renderLethality(out, res)
	renderSummary(out, "Index Summary", res.Summary)
	return nil
}
