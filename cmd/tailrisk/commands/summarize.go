package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/tailrisk/internal/risk"
)

// summarizeCmd represents the summarize command
var summarizeCmd = &cobra.Command{
	Use:   "summarize [file]",
	Short: "샘플 VaR/CVaR 요약",
	Long: `숫자 샘플(파일 또는 stdin)의 경험적 VaR/CVaR와 백분위수를 계산합니다.

--tail upper: 손실 샘플 (양수=손실), VaR = α 백분위수
--tail lower: 가치 샘플 (가격/지수), VaR = (1-α) 백분위수

Example:
  go run ./cmd/tailrisk summarize losses.txt --confidence 0.99
  cat prices.csv | go run ./cmd/tailrisk summarize --tail lower`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSummarize,
}

var (
	sumConfidence float64
	sumTail       string
	sumRanks      []float64
)

func init() {
	rootCmd.AddCommand(summarizeCmd)

	// Flags
	summarizeCmd.Flags().Float64Var(&sumConfidence, "confidence", 0.95, "신뢰수준 (0,1)")
	summarizeCmd.Flags().StringVar(&sumTail, "tail", "upper", "upper|lower")
	summarizeCmd.Flags().Float64SliceVar(&sumRanks, "ranks", nil, "추가 백분위수 (예: 0.5,99.9)")
}

func runSummarize(cmd *cobra.Command, args []string) error {
	if _, _, err := bootstrap(); err != nil {
		return err
	}

	sample, err := readSample(args, cmd.InOrStdin())
	if err != nil {
		return err
	}

	var summary risk.RiskSummary
	switch risk.Tail(sumTail) {
	case risk.TailUpper:
		summary, err = risk.Summarize(sample, sumConfidence)
	case risk.TailLower:
		summary, err = risk.SummarizeValues(sample, sumConfidence)
	default:
		return fmt.Errorf("invalid --tail %q (upper|lower)", sumTail)
	}
	if err != nil {
		return err
	}

	var extra []risk.PercentilePoint
	if len(sumRanks) > 0 {
		if extra, err = risk.Percentiles(sample, sumRanks); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	if jsonOutput() {
		return printJSON(out, map[string]interface{}{
			"summary":     summary,
			"percentiles": extra,
		})
	}

	renderSummary(out, "Risk Summary", summary)
	if len(extra) > 0 {
		renderPercentiles(out, "Percentiles", extra)
	}
	return nil
}
