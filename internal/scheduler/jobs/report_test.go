package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/tailrisk/internal/report"
	"github.com/wonny/tailrisk/internal/scenario"
	"github.com/wonny/tailrisk/internal/scheduler"
)

type stubRunner struct {
	calls int
	err   error
}

func (r *stubRunner) Run(_ context.Context, cfg *scenario.Config) (*report.Report, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	return &report.Report{RunID: "run-" + cfg.Meta.ScenarioID, ScenarioID: cfg.Meta.ScenarioID}, nil
}

func loaded(t *testing.T, id, schedule string) scenario.Loaded {
	t.Helper()
	body := `{"meta":{"scenario_id":"` + id + `","version":"1","schedule":"` + schedule + `"},` +
		`"simulation":{"initial_value":100,"drift":0.05,"volatility":0.2,"horizon_steps":10,"step_size":0.1,"path_count":200,"seed":1}}`
	cfg, err := scenario.Parse([]byte(body))
	require.NoError(t, err)
	return scenario.Loaded{Path: id + ".yaml", Config: cfg}
}

func TestFromScenarios_SkipsUnscheduled(t *testing.T) {
	runner := &stubRunner{}
	all := []scenario.Loaded{
		loaded(t, "daily", "@daily"),
		loaded(t, "manual", ""),
		loaded(t, "close", "0 30 18 * * 1-5"),
	}

	jobs := FromScenarios(all, runner, zerolog.Nop())
	require.Len(t, jobs, 2)
	assert.Equal(t, "report:daily", jobs[0].Name())
	assert.Equal(t, "@daily", jobs[0].Schedule())
	assert.Equal(t, "report:close", jobs[1].Name())
}

func TestReportJob_Run(t *testing.T) {
	runner := &stubRunner{}
	job := NewReportJob(loaded(t, "daily", "@daily"), runner, zerolog.Nop())

	runID, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "run-daily", runID)
	assert.Equal(t, 1, runner.calls)

	runner.err = errors.New("database down")
	_, err = job.Run(context.Background())
	assert.ErrorContains(t, err, "scenario daily")
}

func TestReportJob_WithScheduler(t *testing.T) {
	reporter := report.NewReporter(zerolog.Nop())
	s := scheduler.New(zerolog.Nop())

	for _, j := range FromScenarios([]scenario.Loaded{loaded(t, "daily", "@daily")}, reporter, zerolog.Nop()) {
		require.NoError(t, s.AddJob(j))
	}

	res, err := s.RunNow(context.Background(), "report:daily")
	require.NoError(t, err)
	assert.True(t, res.Success, res.Error)
	assert.NotEmpty(t, res.RunID)
}
