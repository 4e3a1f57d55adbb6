package risk

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sequence(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i + 1)
	}
	return out
}

func TestPercentile_LinearInterpolation(t *testing.T) {
	sorted := []float64{1, 2, 3, 4, 5}

	tests := []struct {
		rank float64
		want float64
	}{
		{0, 1},
		{10, 1.4},
		{25, 2},
		{50, 3},
		{62.5, 3.5},
		{100, 5},
	}

	for _, tt := range tests {
		got := Percentile(sorted, tt.rank)
		if math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("Percentile(%v) = %v, want %v", tt.rank, got, tt.want)
		}
	}
}

func TestPercentile_Monotonic(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 5))
	sample := make([]float64, 501)
	for i := range sample {
		sample[i] = rng.NormFloat64() * 10
	}

	ranks := make([]float64, 0, 401)
	for r := 0.0; r <= 100; r += 0.25 {
		ranks = append(ranks, r)
	}

	points, err := Percentiles(sample, ranks)
	require.NoError(t, err)

	for i := 1; i < len(points); i++ {
		if points[i].Value < points[i-1].Value {
			t.Fatalf("percentile(%v)=%v < percentile(%v)=%v",
				points[i].Rank, points[i].Value, points[i-1].Rank, points[i-1].Value)
		}
	}
}

func TestPercentiles_RankOutOfRange(t *testing.T) {
	_, err := Percentiles([]float64{1, 2}, []float64{50, 101})
	assert.True(t, IsConfigError(err))
}

func TestSummarize_LossUpperTail(t *testing.T) {
	summary, err := Summarize(sequence(100), 0.95)
	require.NoError(t, err)

	assert.Equal(t, TailUpper, summary.Tail)
	assert.InDelta(t, 95.05, summary.ValueAtRisk, 1e-9)
	assert.InDelta(t, 98.0, summary.ConditionalValueAtRisk, 1e-9)
	assert.Equal(t, 5, summary.TailCount)
	assert.Equal(t, 100, summary.Count)
	assert.InDelta(t, 50.5, summary.Mean, 1e-12)
	assert.GreaterOrEqual(t, summary.ConditionalValueAtRisk, summary.ValueAtRisk)
	assert.Len(t, summary.Percentiles, len(DefaultPercentileRanks))
}

func TestSummarizeValues_LowerTail(t *testing.T) {
	summary, err := SummarizeValues(sequence(100), 0.95)
	require.NoError(t, err)

	assert.Equal(t, TailLower, summary.Tail)
	assert.InDelta(t, 5.95, summary.ValueAtRisk, 1e-9)
	assert.InDelta(t, 3.0, summary.ConditionalValueAtRisk, 1e-9)
	assert.Equal(t, 5, summary.TailCount)
	assert.LessOrEqual(t, summary.ConditionalValueAtRisk, summary.ValueAtRisk)
}

func TestSummarize_SingleElementTail(t *testing.T) {
	summary, err := Summarize([]float64{7}, 0.9)
	require.NoError(t, err)

	assert.Equal(t, 7.0, summary.ValueAtRisk)
	assert.Equal(t, 7.0, summary.ConditionalValueAtRisk)
	assert.Equal(t, 1, summary.TailCount)
	assert.Equal(t, 0.0, summary.StdDev)
}

func TestSummarize_Errors(t *testing.T) {
	_, err := Summarize(nil, 0.95)
	assert.True(t, errors.Is(err, ErrEmptySample))
	assert.True(t, IsDegeneracy(err))

	_, err = Summarize([]float64{1, math.NaN()}, 0.95)
	assert.True(t, errors.Is(err, ErrNonFiniteSample))

	for _, c := range []float64{0, 1, -0.5, 1.5, math.NaN()} {
		_, err = Summarize([]float64{1, 2, 3}, c)
		var cerr *ConfigError
		require.True(t, errors.As(err, &cerr), "confidence %v", c)
		assert.Equal(t, "confidence_level", cerr.Field)
	}
}

func TestSummarize_DoesNotMutateInput(t *testing.T) {
	sample := []float64{5, 1, 4, 2, 3}
	_, err := Summarize(sample, 0.8)
	require.NoError(t, err)
	assert.Equal(t, []float64{5, 1, 4, 2, 3}, sample)
}

func TestSummarize_VaRESOrdering(t *testing.T) {
	for seed := int64(1); seed <= 10; seed++ {
		cfg := coneConfig().WithSeed(seed)
		cfg.PathCount = 500
		cfg.HorizonSteps = 50

		ensemble, err := Simulate(cfg)
		require.NoError(t, err)

		for _, c := range []float64{0.9, 0.95, 0.99} {
			values, err := SummarizeValues(ensemble.Terminal(), c)
			require.NoError(t, err)
			assert.LessOrEqual(t, values.ConditionalValueAtRisk, values.ValueAtRisk)

			losses, err := Summarize(ensemble.TerminalLosses(), c)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, losses.ConditionalValueAtRisk, losses.ValueAtRisk)
		}
	}
}

func TestNormalVaR(t *testing.T) {
	v, err := NormalVaR(0, 1, 0.95)
	require.NoError(t, err)
	assert.InDelta(t, 1.6448536, v, 1e-6)

	v, err = NormalVaR(0.01, 0.02, 0.99)
	require.NoError(t, err)
	assert.InDelta(t, 0.01+0.02*2.3263479, v, 1e-6)

	v, err = NormalVaR(3, 0, 0.99)
	require.NoError(t, err)
	assert.Equal(t, 3.0, v)

	_, err = NormalVaR(0, -1, 0.95)
	assert.True(t, IsConfigError(err))
}

func TestNormalES(t *testing.T) {
	es, err := NormalES(0, 1, 0.99)
	require.NoError(t, err)
	assert.InDelta(t, 2.665214, es, 1e-5)

	v, err := NormalVaR(0, 1, 0.99)
	require.NoError(t, err)
	assert.Greater(t, es, v)
}
