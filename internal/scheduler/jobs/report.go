package jobs

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/wonny/tailrisk/internal/report"
	"github.com/wonny/tailrisk/internal/scenario"
)

// Runner 리포트 생성 + 저장 (report.Reporter)
type Runner interface {
	Run(ctx context.Context, cfg *scenario.Config) (*report.Report, error)
}

// ReportJob recalculates one scenario on its meta.schedule
type ReportJob struct {
	scenario scenario.Loaded
	runner   Runner
	log      zerolog.Logger
}

// NewReportJob creates a job for a loaded scenario
func NewReportJob(loaded scenario.Loaded, runner Runner, log zerolog.Logger) *ReportJob {
	return &ReportJob{
		scenario: loaded,
		runner:   runner,
		log:      log.With().Str("job", "report:"+loaded.Config.Meta.ScenarioID).Logger(),
	}
}

// Name returns the job name
func (j *ReportJob) Name() string {
	return "report:" + j.scenario.Config.Meta.ScenarioID
}

// Schedule returns the scenario's cron expression
func (j *ReportJob) Schedule() string {
	return j.scenario.Config.Meta.Schedule
}

// Run generates and stores one report
func (j *ReportJob) Run(ctx context.Context) (string, error) {
	j.log.Debug().
		Str("path", j.scenario.Path).
		Str("scenario_hash", j.scenario.Hash).
		Msg("Starting scheduled report")

	rep, err := j.runner.Run(ctx, j.scenario.Config)
	if err != nil {
		return "", fmt.Errorf("scenario %s: %w", j.scenario.Config.Meta.ScenarioID, err)
	}

	ev := j.log.Info().
		Str("run_id", rep.RunID).
		Int("warnings", len(rep.Warnings))
	if rep.LimitCheck != nil {
		ev = ev.Bool("limits_passed", rep.LimitCheck.Passed)
	}
	ev.Msg("Scheduled report completed")

	return rep.RunID, nil
}

// FromScenarios builds one job per scenario that has a schedule
func FromScenarios(loaded []scenario.Loaded, runner Runner, log zerolog.Logger) []*ReportJob {
	out := make([]*ReportJob, 0, len(loaded))
	for _, l := range loaded {
		if l.Config.Meta.Schedule == "" {
			continue
		}
		out = append(out, NewReportJob(l, runner, log))
	}
	return out
}
