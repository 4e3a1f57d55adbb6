package report

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/tailrisk/internal/risk"
)

func sampleReport() *Report {
	return &Report{
		RunID:        "7f1c2a9e-8d43-4b6a-9c1e-2f5b0d3a4e61",
		ScenarioID:   "heavy-tail",
		ScenarioHash: "abc123",
		GeneratedAt:  time.Date(2026, 1, 2, 18, 30, 0, 0, time.UTC),
		Simulation: SimulationSection{
			EffectiveSeed: 7,
			Terminal:      risk.RiskSummary{ValueAtRisk: 0.04},
		},
		Tail: &TailSection{
			Comparison: &risk.TailComparison{TailVaR: 0.11, CapitalGap: 0.03},
		},
	}
}

func TestRepository_Save(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	rep := sampleReport()
	tailVaR, gap := 0.11, 0.03

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO risk.reports")).
		WithArgs(rep.RunID, rep.ScenarioID, rep.ScenarioHash, rep.GeneratedAt, int64(7),
			0.04, &tailVaR, &gap, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, NewRepository(mock).Save(context.Background(), rep))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_SaveWithoutTail(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	rep := sampleReport()
	rep.Tail = nil

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO risk.reports")).
		WithArgs(rep.RunID, rep.ScenarioID, rep.ScenarioHash, rep.GeneratedAt, int64(7),
			0.04, (*float64)(nil), (*float64)(nil), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, NewRepository(mock).Save(context.Background(), rep))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_SaveError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO risk.reports")).
		WillReturnError(errors.New("connection reset"))

	err = NewRepository(mock).Save(context.Background(), sampleReport())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to save report")
}

func TestRepository_Get(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	rep := sampleReport()
	payload, err := json.Marshal(rep)
	require.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT payload")).
		WithArgs(rep.RunID).
		WillReturnRows(pgxmock.NewRows([]string{"payload"}).AddRow(payload))

	got, err := NewRepository(mock).Get(context.Background(), rep.RunID)
	require.NoError(t, err)
	assert.Equal(t, rep.ScenarioID, got.ScenarioID)
	assert.Equal(t, rep.Tail.Comparison.CapitalGap, got.Tail.Comparison.CapitalGap)
	assert.True(t, rep.GeneratedAt.Equal(got.GeneratedAt))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_GetNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT payload")).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err = NewRepository(mock).Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRepository_ListByScenario(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Date(2026, 1, 2, 18, 30, 0, 0, time.UTC)
	tailVaR, gap := 0.11, 0.03

	rows := pgxmock.NewRows([]string{
		"run_id", "scenario_hash", "generated_at", "effective_seed", "value_at_risk", "tail_var", "capital_gap",
	}).
		AddRow("run-2", "abc123", now, int64(7), 0.04, &tailVaR, &gap).
		AddRow("run-1", "abc123", now.Add(-24*time.Hour), int64(7), 0.05, (*float64)(nil), (*float64)(nil))

	mock.ExpectQuery(regexp.QuoteMeta("FROM risk.reports")).
		WithArgs("heavy-tail", 20).
		WillReturnRows(rows)

	list, err := NewRepository(mock).ListByScenario(context.Background(), "heavy-tail", 0)
	require.NoError(t, err)
	require.Len(t, list, 2)

	assert.Equal(t, "run-2", list[0].RunID)
	require.NotNil(t, list[0].CapitalGap)
	assert.Equal(t, 0.03, *list[0].CapitalGap)
	assert.Nil(t, list[1].TailVaR)
	assert.NoError(t, mock.ExpectationsWereMet())
}
