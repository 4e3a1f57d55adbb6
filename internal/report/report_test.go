package report

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/tailrisk/internal/risk"
	"github.com/wonny/tailrisk/internal/scenario"
	"github.com/wonny/tailrisk/pkg/config"
	"github.com/wonny/tailrisk/pkg/redis"
)

// memStore 테스트용 메모리 저장소
type memStore struct {
	mu      sync.Mutex
	reports map[string]*Report
}

func newMemStore() *memStore {
	return &memStore{reports: make(map[string]*Report)}
}

func (m *memStore) Save(_ context.Context, rep *Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports[rep.RunID] = rep
	return nil
}

func (m *memStore) Get(_ context.Context, runID string) (*Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rep, ok := m.reports[runID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, runID)
	}
	return rep, nil
}

func loadScenario(t *testing.T, name string) *scenario.Config {
	t.Helper()
	cfg, _, err := scenario.Load("../../config/scenario/" + name)
	require.NoError(t, err)
	return cfg
}

func TestGenerate_EquityCone(t *testing.T) {
	cfg := loadScenario(t, "equity_cone.yaml")

	rep, err := NewReporter(zerolog.Nop()).Generate(context.Background(), cfg)
	require.NoError(t, err)

	assert.Len(t, rep.RunID, 36)
	assert.Equal(t, "equity-cone", rep.ScenarioID)
	assert.Len(t, rep.ScenarioHash, 64)
	assert.Equal(t, int64(42), rep.Simulation.EffectiveSeed)
	assert.Equal(t, risk.TailLower, rep.Simulation.Terminal.Tail)
	assert.Len(t, rep.Simulation.Cone, cfg.Simulation.HorizonSteps)
	assert.Len(t, rep.Simulation.Percentiles, len(cfg.Summary.Ranks))

	// 초기값 100에서 p5 < 100 < p95
	last := rep.Simulation.Cone[len(rep.Simulation.Cone)-1]
	assert.Less(t, last.Percentiles[0].Value, 100.0)
	assert.Greater(t, last.Percentiles[len(last.Percentiles)-1].Value, 100.0)

	require.NotNil(t, rep.Tail)
	assert.Equal(t, scenario.SourceSimulated, rep.Tail.Source)
	assert.Equal(t, cfg.Simulation.PathCount, rep.Tail.SampleSize)

	require.NotNil(t, rep.LimitCheck)
	assert.Nil(t, rep.Lethality)
}

func TestGenerate_Deterministic(t *testing.T) {
	cfg := loadScenario(t, "heavy_tail.yaml")
	r := NewReporter(zerolog.Nop())

	a, err := r.Generate(context.Background(), cfg)
	require.NoError(t, err)
	b, err := r.Generate(context.Background(), cfg)
	require.NoError(t, err)

	assert.NotEqual(t, a.RunID, b.RunID)
	assert.Equal(t, a.ScenarioHash, b.ScenarioHash)
	assert.Equal(t, a.Simulation.Terminal, b.Simulation.Terminal)
	require.NotNil(t, a.Tail)
	assert.Equal(t, a.Tail.Comparison.CapitalGap, b.Tail.Comparison.CapitalGap)
	assert.Greater(t, a.Tail.Comparison.CapitalGap, 0.0)
}

func TestGenerate_Lethality(t *testing.T) {
	cfg := loadScenario(t, "lethality.yaml")

	rep, err := NewReporter(zerolog.Nop()).Generate(context.Background(), cfg)
	require.NoError(t, err)

	require.NotNil(t, rep.Lethality)
	assert.Nil(t, rep.Lethality.Index)
	assert.Len(t, rep.Lethality.Factors, 3)
	assert.Nil(t, rep.Tail)
}

func TestGenerate_EVTDegeneracyBecomesWarning(t *testing.T) {
	cfg := loadScenario(t, "equity_cone.yaml")
	cfg.Simulation.PathCount = 200 // 95 백분위 위 10개 < 30

	rep, err := NewReporter(zerolog.Nop()).Generate(context.Background(), cfg)
	require.NoError(t, err)

	assert.Nil(t, rep.Tail)
	codes := make([]string, 0, len(rep.Warnings))
	for _, w := range rep.Warnings {
		codes = append(codes, w.Code)
	}
	assert.Contains(t, codes, "EVT_FAILED")
	assert.Contains(t, codes, "THIN_TAIL_SAMPLE")
}

func TestGenerate_GPDSource(t *testing.T) {
	cfg := loadScenario(t, "heavy_tail.yaml")
	cfg.EVT.Source = scenario.SourceGPD
	cfg.EVT.GPD = scenario.GPDSource{N: 20000, Shape: 0.3, Scale: 1, Threshold: 2, Seed: 7}

	rep, err := NewReporter(zerolog.Nop()).Generate(context.Background(), cfg)
	require.NoError(t, err)
	require.NotNil(t, rep.Tail)
	assert.InDelta(t, 0.3, rep.Tail.Comparison.Fit.Shape, 0.15)
}

func TestGenerate_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewReporter(zerolog.Nop()).Generate(ctx, loadScenario(t, "heavy_tail.yaml"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_SavesToStore(t *testing.T) {
	store := newMemStore()
	client, err := redis.New(context.Background(), &config.Config{})
	require.NoError(t, err)

	r := NewReporter(zerolog.Nop()).
		WithStore(store).
		WithCache(redis.NewCache(client, "tailrisk"), redis.TTLShort)

	rep, err := r.Run(context.Background(), loadScenario(t, "heavy_tail.yaml"))
	require.NoError(t, err)

	got, err := r.Get(context.Background(), rep.RunID)
	require.NoError(t, err)
	assert.Equal(t, rep, got)

	_, err = r.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGet_NoStore(t *testing.T) {
	_, err := NewReporter(zerolog.Nop()).Get(context.Background(), "any")
	assert.ErrorIs(t, err, ErrNoStore)
}

func TestReport_ToJSON(t *testing.T) {
	rep, err := NewReporter(zerolog.Nop()).Generate(context.Background(), loadScenario(t, "lethality.yaml"))
	require.NoError(t, err)

	data, err := rep.ToJSON()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"scenario_id": "lethality-index"`)
	assert.Contains(t, string(data), `"effective_seed": 1`)
}
