package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/tailrisk/internal/scenario"
	"github.com/wonny/tailrisk/internal/scheduler"
	"github.com/wonny/tailrisk/internal/scheduler/jobs"
	"github.com/wonny/tailrisk/pkg/config"
	"github.com/wonny/tailrisk/pkg/logger"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "스케줄러 관리",
	Long: `시나리오 디렉토리(SCENARIO_DIR)의 meta.schedule에 따라
리포트를 주기적으로 재계산합니다. 시나리오 1개 = 작업 1개.

Subcommands:
  start   - 스케줄러 시작
  list    - 등록된 작업 목록
  run     - 특정 작업 즉시 실행

Example:
  go run ./cmd/tailrisk scheduler start
  go run ./cmd/tailrisk scheduler list --dir config/scenario
  go run ./cmd/tailrisk scheduler run report:heavy-tail`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "스케줄러 시작",
		Long: `스케줄러를 시작하고 schedule이 있는 모든 시나리오를 등록합니다.
실패한 실행은 재시도하지 않습니다. 스케줄러는 Ctrl+C로 종료할 수 있습니다.`,
		RunE: runScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "등록된 작업 목록",
		RunE:  listJobs,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "특정 작업 즉시 실행",
		Args:  cobra.ExactArgs(1),
		RunE:  runJob,
	}

	schedulerDir string
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)

	schedulerCmd.PersistentFlags().StringVar(&schedulerDir, "dir", "", "시나리오 디렉토리 (기본: SCENARIO_DIR)")
}

// initScheduler 시나리오 로드 → 작업 등록
func initScheduler(ctx context.Context, cfg *config.Config, log *logger.Logger) (*scheduler.Scheduler, *stores, error) {
	dir := cfg.ScenarioDir
	if schedulerDir != "" {
		dir = schedulerDir
	}

	loaded, err := scenario.LoadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("load scenarios from %s: %w", dir, err)
	}

	st, err := openStores(ctx, cfg, log, false)
	if err != nil {
		return nil, nil, err
	}

	sched := scheduler.New(log.Zerolog())
	for _, job := range jobs.FromScenarios(loaded, st.reporter, log.Component("scheduler.jobs")) {
		if err := sched.AddJob(job); err != nil {
			st.Close()
			return nil, nil, err
		}
	}

	zl := log.Zerolog()
	zl.Info().
		Str("dir", dir).
		Int("scenarios", len(loaded)).
		Int("jobs", len(sched.GetAllJobs())).
		Msg("Scenarios loaded")

	return sched, st, nil
}

func runScheduler(cmd *cobra.Command, args []string) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}

	sched, st, err := initScheduler(context.Background(), cfg, log)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer st.Close()

	sched.Start()

	out := cmd.OutOrStdout()
	PrintSuccess(out, "Scheduler started")
	for _, name := range sched.GetAllJobs() {
		next, _ := sched.NextRun(name)
		fmt.Fprintf(out, "  - %s (next: %s)\n", name, next.Format("2006-01-02 15:04:05"))
	}
	fmt.Fprintln(out, "\nPress Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	sched.Stop()
	renderJobs(out, sched.GetAllJobs(), sched.GetJobStats())
	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}

	sched, st, err := initScheduler(context.Background(), cfg, log)
	if err != nil {
		return err
	}
	defer st.Close()

	out := cmd.OutOrStdout()
	if jsonOutput() {
		return printJSON(out, sched.GetJobStats())
	}
	renderJobs(out, sched.GetAllJobs(), sched.GetJobStats())
	return nil
}

func runJob(cmd *cobra.Command, args []string) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}

	ctx := context.Background()
	sched, st, err := initScheduler(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.Close()

	res, err := sched.RunNow(ctx, args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOutput() {
		return printJSON(out, res)
	}
	if !res.Success {
		PrintError(out, fmt.Sprintf("%s failed after %s: %s", res.JobName, res.Duration, res.Error))
		return fmt.Errorf("job %s failed", res.JobName)
	}
	PrintSuccess(out, fmt.Sprintf("%s completed in %s (run %s)", res.JobName, res.Duration, res.RunID))
	return nil
}
