package risk

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectThreshold(t *testing.T) {
	u, err := SelectThreshold(sequence(1000), 95)
	require.NoError(t, err)
	assert.InDelta(t, 950.05, u, 1e-9)
}

func TestSelectThreshold_InsufficientTailData(t *testing.T) {
	_, err := SelectThreshold(sequence(100), 95)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInsufficientTailData))

	var serr *StatError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, 5.0, serr.Params["exceedances"])
	assert.Equal(t, float64(DefaultMinExceedances), serr.Params["min_exceedances"])
	assert.Contains(t, err.Error(), "threshold=")
}

func TestSelectThreshold_InvalidPercentile(t *testing.T) {
	for _, pct := range []float64{0, 100, -1, math.NaN()} {
		_, err := SelectThreshold(sequence(100), pct)
		assert.True(t, IsConfigError(err), "pct %v", pct)
	}
}

func TestCalibrator_MinExceedancesOverride(t *testing.T) {
	c := NewCalibrator()
	c.MinExceedances = 5

	u, err := c.SelectThreshold(sequence(100))
	require.NoError(t, err)
	assert.InDelta(t, 95.05, u, 1e-9)
}

func TestExceedances(t *testing.T) {
	losses := []float64{5, 1, 9, 3, 7, 2}
	exc := Exceedances(losses, 4)

	assert.Equal(t, 4.0, exc.Threshold)
	assert.Equal(t, []float64{1, 5, 3}, exc.Excesses)
	assert.Equal(t, len(losses), exc.SampleSize)
	for _, e := range exc.Excesses {
		assert.GreaterOrEqual(t, e, 0.0)
	}
}

func TestFitGPD_RecoversKnownParameters(t *testing.T) {
	const threshold = 2.0

	draws, err := GPDSample(20000, 0.3, 1, 7)
	require.NoError(t, err)

	losses := make([]float64, len(draws))
	for i, x := range draws {
		losses[i] = threshold + x
	}

	fit, exc, err := FitGPD(losses, threshold)
	require.NoError(t, err)
	require.GreaterOrEqual(t, exc.Len(), 5000)

	assert.InDelta(t, 0.3, fit.Shape, 0.05)
	assert.InDelta(t, 1.0, fit.Scale, 0.05)
	assert.Equal(t, 0.0, fit.Location)
	assert.Equal(t, threshold, fit.Threshold)
	assert.Equal(t, FitMLE, fit.Method)
	assert.Equal(t, exc.Len(), fit.ExceedanceCount)
	assert.InDelta(t, float64(exc.Len())/float64(len(losses)), fit.ExceedanceProbability, 1e-12)
}

func TestFitGPD_MLEBeatsStartingPoint(t *testing.T) {
	draws, err := GPDSample(5000, 0.2, 0.5, 11)
	require.NoError(t, err)

	exc := Exceedances(draws, 0)
	pwm, err := EstimatePWM(exc)
	require.NoError(t, err)

	fit, _, err := FitGPD(draws, 0)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, fit.LogLikelihood, pwm.LogLikelihood-1e-9)
}

func TestEstimatePWM_Exponential(t *testing.T) {
	draws, err := GPDSample(20000, 0, 1, 5)
	require.NoError(t, err)

	fit, err := EstimatePWM(Exceedances(draws, 0))
	require.NoError(t, err)

	assert.Equal(t, FitPWM, fit.Method)
	assert.InDelta(t, 0.0, fit.Shape, 0.05)
	assert.InDelta(t, 1.0, fit.Scale, 0.05)
}

func TestFitGPD_BoundedTailKeepsNegativeShape(t *testing.T) {
	draws, err := GPDSample(20000, -0.25, 1, 9)
	require.NoError(t, err)

	fit, _, err := FitGPD(draws, 0)
	require.NoError(t, err)
	assert.Less(t, fit.Shape, 0.0)
	assert.InDelta(t, -0.25, fit.Shape, 0.05)
}

func TestFitGPD_ZeroVariance(t *testing.T) {
	losses := make([]float64, 0, 140)
	for i := 0; i < 100; i++ {
		losses = append(losses, 0)
	}
	for i := 0; i < 40; i++ {
		losses = append(losses, 5)
	}

	_, exc, err := FitGPD(losses, 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFitDidNotConverge))
	assert.Equal(t, 40, exc.Len())

	var serr *StatError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, 0.0, serr.Params["variance"])
}

func TestFitGPD_InvalidInput(t *testing.T) {
	_, _, err := FitGPD(nil, 1)
	assert.True(t, errors.Is(err, ErrEmptySample))

	_, _, err = FitGPD([]float64{1, 2, 3}, math.NaN())
	assert.True(t, IsConfigError(err))

	_, _, err = FitGPD([]float64{1, 2, 3}, 10)
	assert.True(t, errors.Is(err, ErrFitDidNotConverge))
}

func TestFitGPD_HeavyTailAcrossSeeds(t *testing.T) {
	for seed := int64(1); seed <= 20; seed++ {
		losses, err := StudentTLosses(20000, 3, 1, seed)
		require.NoError(t, err)

		u, err := SelectThreshold(losses, 95)
		require.NoError(t, err)

		fit, _, err := FitGPD(losses, u)
		require.NoError(t, err)
		assert.Greater(t, fit.Shape, 0.0, "seed %d", seed)
	}
}

func knownFit() GPDFit {
	return GPDFit{
		Shape:                 0.3,
		Scale:                 1,
		Threshold:             2,
		ExceedanceCount:       500,
		SampleSize:            10000,
		ExceedanceProbability: 0.05,
	}
}

func TestTailVaR_ClosedForm(t *testing.T) {
	v, err := TailVaR(knownFit(), 0.99, 10000)
	require.NoError(t, err)

	want := 2 + (1/0.3)*(math.Pow(0.2, -0.3)-1)
	assert.InDelta(t, want, v, 1e-12)
	assert.InDelta(t, 4.0688, v, 1e-3)
}

func TestTailVaR_ExponentialLimit(t *testing.T) {
	fit := knownFit()
	fit.Shape = 0

	v, err := TailVaR(fit, 0.99, 10000)
	require.NoError(t, err)
	assert.InDelta(t, 2-math.Log(0.2), v, 1e-12)

	fit.Shape = 1e-6
	near, err := TailVaR(fit, 0.99, 10000)
	require.NoError(t, err)
	assert.InDelta(t, v, near, 1e-4)
}

func TestTailVaR_Errors(t *testing.T) {
	_, err := TailVaR(knownFit(), 0.9, 10000)
	var cerr *ConfigError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, "target_confidence", cerr.Field)

	_, err = TailVaR(knownFit(), 0.99, 100)
	assert.True(t, IsConfigError(err))

	fit := knownFit()
	fit.Scale = 0
	_, err = TailVaR(fit, 0.99, 10000)
	assert.True(t, errors.Is(err, ErrDegenerateShape))

	fit = knownFit()
	fit.Shape = math.NaN()
	_, err = TailVaR(fit, 0.99, 10000)
	assert.True(t, errors.Is(err, ErrDegenerateShape))
}

func TestTailES(t *testing.T) {
	fit := knownFit()
	v, err := TailVaR(fit, 0.99, 10000)
	require.NoError(t, err)

	es, err := TailES(fit, v)
	require.NoError(t, err)
	assert.InDelta(t, (v+1-0.3*2)/0.7, es, 1e-12)
	assert.Greater(t, es, v)
}

func TestTailES_UndefinedForShapeAtLeastOne(t *testing.T) {
	for _, shape := range []float64{1, 1.5} {
		fit := knownFit()
		fit.Shape = shape

		_, err := TailES(fit, 5)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrUndefinedExpectedShortfall))

		var serr *StatError
		require.True(t, errors.As(err, &serr))
		assert.Equal(t, shape, serr.Params["shape"])
	}
}

func TestTailDensity(t *testing.T) {
	fit := knownFit()

	assert.Equal(t, 0.0, TailDensity(fit, 1.5))
	assert.InDelta(t, fit.ExceedanceProbability/fit.Scale, TailDensity(fit, fit.Threshold+1e-12), 1e-9)
	assert.Greater(t, TailDensity(fit, 3), TailDensity(fit, 6))

	bounded := fit
	bounded.Shape = -0.5
	assert.Equal(t, 0.0, TailDensity(bounded, fit.Threshold+3))
}

func TestTailSurvival(t *testing.T) {
	fit := knownFit()

	assert.Equal(t, fit.ExceedanceProbability, TailSurvival(fit, fit.Threshold-1))
	assert.Greater(t, TailSurvival(fit, 3), TailSurvival(fit, 6))

	for _, alpha := range []float64{0.99, 0.995, 0.999} {
		v, err := TailVaR(fit, alpha, fit.SampleSize)
		require.NoError(t, err)
		assert.InDelta(t, 1-alpha, TailSurvival(fit, v), 1e-12)
	}

	exp := fit
	exp.Shape = 0
	v, err := TailVaR(exp, 0.99, exp.SampleSize)
	require.NoError(t, err)
	assert.InDelta(t, 0.01, TailSurvival(exp, v), 1e-12)

	bounded := fit
	bounded.Shape = -0.5
	assert.Equal(t, 0.0, TailSurvival(bounded, fit.Threshold+3))
}

func TestCompare_CapitalGapUnderHeavyTails(t *testing.T) {
	losses, err := StudentTLosses(10000, 3, 0.02, 42)
	require.NoError(t, err)

	cmp, err := NewCalibrator().Compare(losses)
	require.NoError(t, err)

	assert.Greater(t, cmp.Fit.Shape, 0.0)
	assert.Greater(t, cmp.TailVaR, cmp.NormalVaR)
	assert.Greater(t, cmp.CapitalGap, 0.0)
	assert.InDelta(t, cmp.TailVaR-cmp.NormalVaR, cmp.CapitalGap, 1e-15)
	assert.Greater(t, cmp.TailES, cmp.TailVaR)
	assert.Equal(t, len(losses), cmp.Fit.SampleSize)
	assert.Equal(t, cmp.Empirical.Count, cmp.Fit.SampleSize)
}

func TestCompare_InvalidCalibrator(t *testing.T) {
	c := NewCalibrator()
	c.Confidence = 1
	_, err := c.Compare(sequence(1000))
	assert.True(t, IsConfigError(err))
}

func TestFitGPDPWM(t *testing.T) {
	draws, err := GPDSample(20000, 0.2, 1, 13)
	require.NoError(t, err)

	fit, exc, err := FitGPDPWM(draws, 0)
	require.NoError(t, err)
	assert.Equal(t, FitPWM, fit.Method)
	assert.Equal(t, exc.Len(), fit.ExceedanceCount)
	assert.InDelta(t, 0.2, fit.Shape, 0.05)

	_, _, err = FitGPDPWM(nil, 0)
	assert.True(t, errors.Is(err, ErrEmptySample))
}
