package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/wonny/tailrisk/internal/report"
	"github.com/wonny/tailrisk/internal/scenario"
	"github.com/wonny/tailrisk/pkg/httputil"
	"github.com/wonny/tailrisk/pkg/logger"
)

// reportCmd represents the report command
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "시나리오 리포트",
	Long: `시나리오 YAML로 리포트를 생성하거나 저장된 리포트를 조회합니다.

Subcommands:
  run    - 시나리오 실행 (DATABASE_URL이 있으면 저장)
  get    - run id로 조회 (DB 필요)
  list   - 시나리오별 최근 리포트 (DB 필요)

Example:
  go run ./cmd/tailrisk report run config/scenario/heavy_tail.yaml
  go run ./cmd/tailrisk report run config/scenario/heavy_tail.yaml --remote http://localhost:8089
  go run ./cmd/tailrisk report list heavy-tail --limit 10
  go run ./cmd/tailrisk report get 1b4e28ba-2fa1-4d2b-883f-0016d3cca427`,
}

var (
	reportRunCmd = &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "시나리오 실행",
		Args:  cobra.ExactArgs(1),
		RunE:  runReport,
	}

	reportGetCmd = &cobra.Command{
		Use:   "get <run_id>",
		Short: "리포트 조회",
		Args:  cobra.ExactArgs(1),
		RunE:  getReport,
	}

	reportListCmd = &cobra.Command{
		Use:   "list <scenario_id>",
		Short: "리포트 목록",
		Args:  cobra.ExactArgs(1),
		RunE:  listReports,
	}

	reportLimit  int
	reportRemote string
)

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.AddCommand(reportRunCmd)
	reportCmd.AddCommand(reportGetCmd)
	reportCmd.AddCommand(reportListCmd)

	reportListCmd.Flags().IntVar(&reportLimit, "limit", 20, "최대 행 수")
	reportRunCmd.Flags().StringVar(&reportRemote, "remote", "", "API 서버 URL (지정 시 서버에서 생성)")
}

func runReport(cmd *cobra.Command, args []string) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}

	sc, data, err := scenario.Load(args[0])
	if err != nil {
		return fmt.Errorf("load scenario: %w", err)
	}

	ctx := context.Background()
	out := cmd.OutOrStdout()

	if reportRemote != "" {
		rep, err := remoteReport(ctx, reportRemote, data, log)
		if err != nil {
			return err
		}
		if jsonOutput() {
			return printJSON(out, rep)
		}
		renderReport(out, rep)
		return nil
	}

	st, err := openStores(ctx, cfg, log, false)
	if err != nil {
		return err
	}
	defer st.Close()

	rep, err := st.reporter.Run(ctx, sc)
	if err != nil {
		return err
	}

	if jsonOutput() {
		return printJSON(out, rep)
	}
	renderReport(out, rep)
	if st.repo != nil {
		PrintSuccess(out, "Report saved: "+rep.RunID)
	}
	return nil
}

// remoteReport POST /api/reports (429/5xx 재시도)
func remoteReport(ctx context.Context, baseURL string, scenarioYAML []byte, log *logger.Logger) (*report.Report, error) {
	client := httputil.New(2*time.Minute, log.Zerolog())

	resp, err := client.Post(ctx, strings.TrimRight(baseURL, "/")+"/api/reports", "application/yaml", scenarioYAML)
	if err != nil {
		return nil, err
	}

	var rep report.Report
	if err := httputil.DecodeJSON(resp, &rep); err != nil {
		return nil, err
	}
	return &rep, nil
}

func getReport(cmd *cobra.Command, args []string) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	if _, err := uuid.Parse(args[0]); err != nil {
		return fmt.Errorf("run id must be a uuid: %w", err)
	}

	ctx := context.Background()
	st, err := openStores(ctx, cfg, log, true)
	if err != nil {
		return err
	}
	defer st.Close()

	rep, err := st.reporter.Get(ctx, args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOutput() {
		return printJSON(out, rep)
	}
	renderReport(out, rep)
	return nil
}

func listReports(cmd *cobra.Command, args []string) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}

	ctx := context.Background()
	st, err := openStores(ctx, cfg, log, true)
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := st.repo.ListByScenario(ctx, args[0], reportLimit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOutput() {
		return printJSON(out, runs)
	}
	if len(runs) == 0 {
		PrintWarning(out, "No reports for "+args[0])
		return nil
	}
	renderRuns(out, args[0], runs)
	return nil
}
