package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStudentTLosses(t *testing.T) {
	losses, err := StudentTLosses(10000, 3, 0.02, 42)
	require.NoError(t, err)

	// 대칭 분포의 양수 쪽 절반 정도만 남는다
	assert.InDelta(t, 5000, len(losses), 300)
	for _, l := range losses {
		assert.Greater(t, l, 0.0)
	}

	again, err := StudentTLosses(10000, 3, 0.02, 42)
	require.NoError(t, err)
	assert.Equal(t, losses, again)

	other, err := StudentTLosses(10000, 3, 0.02, 43)
	require.NoError(t, err)
	assert.NotEqual(t, losses, other)
}

func TestSamplers_InvalidArguments(t *testing.T) {
	tests := []struct {
		name  string
		field string
		run   func() error
	}{
		{"student_t n", "n", func() error { _, err := StudentTLosses(0, 3, 1, 1); return err }},
		{"student_t df", "df", func() error { _, err := StudentTLosses(10, 0, 1, 1); return err }},
		{"student_t scale", "scale", func() error { _, err := StudentTLosses(10, 3, -1, 1); return err }},
		{"gpd scale", "scale", func() error { _, err := GPDSample(10, 0.1, 0, 1); return err }},
		{"beta empty", "components", func() error { _, err := BetaMixture(nil, 1); return err }},
		{"beta count", "components.count", func() error {
			_, err := BetaMixture([]BetaComponent{{Alpha: 2, Beta: 2, Count: 0}}, 1)
			return err
		}},
		{"lethality n", "n", func() error { _, err := LethalityIndex(1, DefaultLethalityFactors(), 95, 1); return err }},
		{"lethality pct", "threshold_percentile", func() error {
			_, err := LethalityIndex(100, DefaultLethalityFactors(), 100, 1)
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run()
			require.Error(t, err)

			var cerr *ConfigError
			require.ErrorAs(t, err, &cerr)
			assert.Equal(t, tt.field, cerr.Field)
		})
	}
}

func TestGPDSample_Support(t *testing.T) {
	draws, err := GPDSample(5000, -0.5, 1, 3)
	require.NoError(t, err)
	for _, x := range draws {
		assert.GreaterOrEqual(t, x, 0.0)
		assert.LessOrEqual(t, x, 2.0) // σ/|ξ|
	}
}

func TestBetaMixture(t *testing.T) {
	components := []BetaComponent{
		{Alpha: 2, Beta: 8, Count: 700},
		{Alpha: 8, Beta: 2, Count: 300},
	}

	out, err := BetaMixture(components, 9)
	require.NoError(t, err)
	require.Len(t, out, 1000)

	for _, v := range out {
		assert.True(t, v >= 0 && v <= 1)
	}
	// 구성요소 순서대로 연결
	assert.Less(t, Mean(out[:700]), 0.5)
	assert.Greater(t, Mean(out[700:]), 0.5)
}

func TestLethalityIndex(t *testing.T) {
	res, err := LethalityIndex(10000, DefaultLethalityFactors(), 95, 42)
	require.NoError(t, err)

	assert.Len(t, res.Index, 10000)
	assert.Equal(t, 10000, res.TailCount+res.BodyCount)
	assert.InDelta(t, 500, res.TailCount, 5)
	assert.Equal(t, res.Summary.ValueAtRisk, res.Threshold)
	assert.Equal(t, res.TailCount, res.Summary.TailCount)

	require.Len(t, res.Factors, 3)
	for _, f := range res.Factors {
		assert.Greater(t, f.TailMean, f.BodyMean, f.Name)
	}
	for _, v := range res.Index {
		assert.True(t, v >= 0 && v <= 1)
	}
}

func TestLethalityIndex_Deterministic(t *testing.T) {
	a, err := LethalityIndex(1000, DefaultLethalityFactors(), 90, 7)
	require.NoError(t, err)
	b, err := LethalityIndex(1000, DefaultLethalityFactors(), 90, 7)
	require.NoError(t, err)

	assert.Equal(t, a.Index, b.Index)
	assert.Equal(t, a.Factors, b.Factors)
}
