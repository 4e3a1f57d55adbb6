package risk

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"
)

// =============================================================================
// EVT Tail Calibration (Peaks-Over-Threshold + GPD)
// =============================================================================

const (
	DefaultThresholdPercentile = 95.0
	DefaultTailConfidence      = 0.99

	// DefaultMinExceedances 이보다 적은 초과 관측치로는 GPD 적합 불가
	DefaultMinExceedances = 30

	// ShapeEpsilon |ξ|가 이보다 작으면 지수 꼬리 극한식 사용
	ShapeEpsilon = 1e-8
)

// Calibrator POT 보정 설정
type Calibrator struct {
	ThresholdPercentile float64 `json:"threshold_percentile"`
	MinExceedances      int     `json:"min_exceedances"`
	Confidence          float64 `json:"confidence"`
}

// NewCalibrator 기본값 (95 백분위 threshold, 최소 30개, 99% 신뢰수준)
func NewCalibrator() Calibrator {
	return Calibrator{
		ThresholdPercentile: DefaultThresholdPercentile,
		MinExceedances:      DefaultMinExceedances,
		Confidence:          DefaultTailConfidence,
	}
}

func (c Calibrator) validate() error {
	if err := validateThresholdPercentile(c.ThresholdPercentile); err != nil {
		return err
	}
	if c.MinExceedances < 1 {
		return configErr("min_exceedances", c.MinExceedances, "must be >= 1")
	}
	return validateConfidence("confidence", c.Confidence)
}

// SelectThreshold 설정된 백분위수로 threshold 선택
func (c Calibrator) SelectThreshold(losses []float64) (float64, error) {
	if err := c.validate(); err != nil {
		return 0, err
	}
	return selectThreshold(losses, c.ThresholdPercentile, c.MinExceedances)
}

// Calibrate threshold 선택 후 GPD 적합
func (c Calibrator) Calibrate(losses []float64) (GPDFit, ExceedanceSample, error) {
	u, err := c.SelectThreshold(losses)
	if err != nil {
		return GPDFit{}, ExceedanceSample{}, err
	}
	return FitGPD(losses, u)
}

// Compare 정규분포 VaR/ES와 EVT VaR/ES를 같은 손실 샘플에서 계산
// CapitalGap = TailVaR - NormalVaR
func (c Calibrator) Compare(losses []float64) (*TailComparison, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}

	empirical, err := Summarize(losses, c.Confidence)
	if err != nil {
		return nil, err
	}

	fit, _, err := c.Calibrate(losses)
	if err != nil {
		return nil, err
	}

	tailVaR, err := TailVaR(fit, c.Confidence, len(losses))
	if err != nil {
		return nil, err
	}
	tailES, err := TailES(fit, tailVaR)
	if err != nil {
		return nil, err
	}

	normalVaR, err := NormalVaR(empirical.Mean, empirical.StdDev, c.Confidence)
	if err != nil {
		return nil, err
	}
	normalES, err := NormalES(empirical.Mean, empirical.StdDev, c.Confidence)
	if err != nil {
		return nil, err
	}

	return &TailComparison{
		Confidence: c.Confidence,
		Empirical:  empirical,
		Fit:        fit,
		NormalVaR:  normalVaR,
		NormalES:   normalES,
		TailVaR:    tailVaR,
		TailES:     tailES,
		CapitalGap: tailVaR - normalVaR,
	}, nil
}

// SelectThreshold 손실 샘플의 thresholdPercentile 백분위수 (R-7)
// 초과 관측치가 DefaultMinExceedances 미만이면 ErrInsufficientTailData
func SelectThreshold(losses []float64, thresholdPercentile float64) (float64, error) {
	if err := validateThresholdPercentile(thresholdPercentile); err != nil {
		return 0, err
	}
	return selectThreshold(losses, thresholdPercentile, DefaultMinExceedances)
}

func selectThreshold(losses []float64, pct float64, minExceedances int) (float64, error) {
	sorted, err := sortedCopy("select_threshold", losses)
	if err != nil {
		return 0, err
	}

	u := Percentile(sorted, pct)
	above := len(sorted) - sort.Search(len(sorted), func(i int) bool { return sorted[i] > u })

	if above < minExceedances {
		return 0, statErr("select_threshold", ErrInsufficientTailData, map[string]float64{
			"threshold":            u,
			"threshold_percentile": pct,
			"exceedances":          float64(above),
			"min_exceedances":      float64(minExceedances),
			"count":                float64(len(sorted)),
		})
	}

	return u, nil
}

func validateThresholdPercentile(pct float64) error {
	if math.IsNaN(pct) || pct <= 0 || pct >= 100 {
		return configErr("threshold_percentile", pct, "must be in (0, 100)")
	}
	return nil
}

// Exceedances threshold를 넘는 관측치의 초과분 (x - u > 0)
func Exceedances(losses []float64, threshold float64) ExceedanceSample {
	excesses := make([]float64, 0, len(losses)/10)
	for _, x := range losses {
		if x > threshold {
			excesses = append(excesses, x-threshold)
		}
	}
	return ExceedanceSample{
		Threshold:  threshold,
		Excesses:   excesses,
		SampleSize: len(losses),
	}
}

// =============================================================================
// GPD Fit
// =============================================================================

// FitGPD threshold 초과분에 GPD 최대우도 적합 (location = 0)
// PWM 추정치를 초기값으로 Nelder-Mead로 (ξ, ln σ) 최적화
func FitGPD(losses []float64, threshold float64) (GPDFit, ExceedanceSample, error) {
	if math.IsNaN(threshold) || math.IsInf(threshold, 0) {
		return GPDFit{}, ExceedanceSample{}, configErr("threshold", threshold, "must be finite")
	}
	if _, err := sortedCopy("fit_gpd", losses); err != nil {
		return GPDFit{}, ExceedanceSample{}, err
	}

	exc := Exceedances(losses, threshold)
	fit, err := fitMLE(exc)
	if err != nil {
		return GPDFit{}, exc, err
	}
	return fit, exc, nil
}

// FitGPDPWM FitGPD와 같은 입력 검증, 추정은 PWM만 사용
func FitGPDPWM(losses []float64, threshold float64) (GPDFit, ExceedanceSample, error) {
	if math.IsNaN(threshold) || math.IsInf(threshold, 0) {
		return GPDFit{}, ExceedanceSample{}, configErr("threshold", threshold, "must be finite")
	}
	if _, err := sortedCopy("fit_gpd_pwm", losses); err != nil {
		return GPDFit{}, ExceedanceSample{}, err
	}

	exc := Exceedances(losses, threshold)
	fit, err := EstimatePWM(exc)
	if err != nil {
		return GPDFit{}, exc, err
	}
	return fit, exc, nil
}

func fitMLE(exc ExceedanceSample) (GPDFit, error) {
	if err := checkFittable(exc); err != nil {
		return GPDFit{}, err
	}

	xi0, sigma0 := startingPoint(exc.Excesses)

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			return gpdNegLogLikelihood(exc.Excesses, x[0], math.Exp(x[1]))
		},
	}
	settings := &optimize.Settings{
		MajorIterations: 5000,
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-12,
			Relative:   1e-12,
			Iterations: 200,
		},
	}

	params := map[string]float64{
		"threshold":     exc.Threshold,
		"exceedances":   float64(exc.Len()),
		"initial_shape": xi0,
		"initial_scale": sigma0,
	}

	result, err := optimize.Minimize(problem, []float64{xi0, math.Log(sigma0)}, settings, &optimize.NelderMead{})
	if err != nil {
		return GPDFit{}, statErr("fit_gpd", ErrFitDidNotConverge, params)
	}
	if result.Status == optimize.IterationLimit || result.Status == optimize.FunctionEvaluationLimit {
		return GPDFit{}, statErr("fit_gpd", ErrFitDidNotConverge, params)
	}

	xi, sigma := result.X[0], math.Exp(result.X[1])
	if !isFinite(xi) || !isFinite(sigma) || sigma <= 0 || !isFinite(result.F) {
		params["shape"], params["scale"] = xi, sigma
		return GPDFit{}, statErr("fit_gpd", ErrFitDidNotConverge, params)
	}

	return newFit(exc, xi, sigma, FitMLE, -result.F), nil
}

// EstimatePWM Hosking-Wallis 확률가중적률 추정
// a0 = 평균, a1 = Σ(1-p_i)x_(i)/n, p_i = (i-0.35)/n
// ξ = 2 - a0/(a0-2a1), σ = 2·a0·a1/(a0-2a1)
func EstimatePWM(exc ExceedanceSample) (GPDFit, error) {
	if err := checkFittable(exc); err != nil {
		return GPDFit{}, err
	}

	xi, sigma, ok := pwm(exc.Excesses)
	if !ok {
		return GPDFit{}, statErr("estimate_pwm", ErrFitDidNotConverge, map[string]float64{
			"threshold":   exc.Threshold,
			"exceedances": float64(exc.Len()),
		})
	}
	return newFit(exc, xi, sigma, FitPWM, -gpdNegLogLikelihood(exc.Excesses, xi, sigma)), nil
}

func pwm(excesses []float64) (xi, sigma float64, ok bool) {
	sorted := make([]float64, len(excesses))
	copy(sorted, excesses)
	sort.Float64s(sorted)

	n := float64(len(sorted))
	var a0, a1 float64
	for i, x := range sorted {
		p := (float64(i+1) - 0.35) / n
		a0 += x
		a1 += (1 - p) * x
	}
	a0 /= n
	a1 /= n

	d := a0 - 2*a1
	if d <= 0 {
		return 0, 0, false
	}
	xi = 2 - a0/d
	sigma = 2 * a0 * a1 / d
	return xi, sigma, isFinite(xi) && isFinite(sigma) && sigma > 0
}

// startingPoint PWM 추정치, 실현 불가능하면 지수분포 (ξ=0, σ=평균)
func startingPoint(excesses []float64) (float64, float64) {
	xi, sigma, ok := pwm(excesses)
	if ok && xi > -0.9 && xi < 0.9 && isFinite(gpdNegLogLikelihood(excesses, xi, sigma)) {
		return xi, sigma
	}
	return 0, stat.Mean(excesses, nil)
}

func checkFittable(exc ExceedanceSample) error {
	params := map[string]float64{
		"threshold":   exc.Threshold,
		"exceedances": float64(exc.Len()),
	}
	if exc.Len() < 2 {
		return statErr("fit_gpd", ErrFitDidNotConverge, params)
	}
	if _, variance := stat.MeanVariance(exc.Excesses, nil); !(variance > 0) {
		params["variance"] = variance
		return statErr("fit_gpd", ErrFitDidNotConverge, params)
	}
	return nil
}

func newFit(exc ExceedanceSample, xi, sigma float64, method FitMethod, logLik float64) GPDFit {
	return GPDFit{
		Shape:                 xi,
		Scale:                 sigma,
		Location:              0,
		Threshold:             exc.Threshold,
		ExceedanceProbability: float64(exc.Len()) / float64(exc.SampleSize),
		ExceedanceCount:       exc.Len(),
		SampleSize:            exc.SampleSize,
		Method:                method,
		LogLikelihood:         logLik,
	}
}

// gpdNegLogLikelihood GPD 음의 로그우도 (location 0)
// 지지집합 밖이거나 ξ <= -1이면 +Inf
func gpdNegLogLikelihood(x []float64, xi, sigma float64) float64 {
	if !(sigma > 0) || xi <= -1 || !isFinite(xi) {
		return math.Inf(1)
	}

	n := float64(len(x))
	if math.Abs(xi) < ShapeEpsilon {
		var sum float64
		for _, v := range x {
			sum += v
		}
		return n*math.Log(sigma) + sum/sigma
	}

	var sum float64
	for _, v := range x {
		z := xi * v / sigma
		if 1+z <= 0 {
			return math.Inf(1)
		}
		sum += math.Log1p(z)
	}
	return n*math.Log(sigma) + (1+1/xi)*sum
}

// =============================================================================
// Closed-form Tail Measures
// =============================================================================

// TailVaR EVT VaR
// VaR = u + (σ/ξ)·[((n/n_u)·(1-α))^(-ξ) - 1]
// |ξ| < ShapeEpsilon 이면 극한식 u - σ·ln((n/n_u)·(1-α))
func TailVaR(fit GPDFit, confidence float64, totalCount int) (float64, error) {
	if err := validateFit("tail_var", fit); err != nil {
		return 0, err
	}
	if err := validateConfidence("target_confidence", confidence); err != nil {
		return 0, err
	}
	if fit.ExceedanceCount < 1 {
		return 0, statErr("tail_var", ErrInsufficientTailData, map[string]float64{
			"threshold":   fit.Threshold,
			"exceedances": float64(fit.ExceedanceCount),
		})
	}
	if totalCount < fit.ExceedanceCount {
		return 0, configErr("total_count", totalCount, "must be >= exceedance count")
	}

	ratio := float64(totalCount) / float64(fit.ExceedanceCount) * (1 - confidence)
	if ratio >= 1 {
		return 0, configErr("target_confidence", confidence, "must exceed the threshold level 1 - n_u/n")
	}

	xi, sigma, u := fit.Shape, fit.Scale, fit.Threshold
	if math.Abs(xi) < ShapeEpsilon {
		return u - sigma*math.Log(ratio), nil
	}
	return u + (sigma/xi)*(math.Pow(ratio, -xi)-1), nil
}

// TailES EVT Expected Shortfall
// ES = (VaR + σ - ξ·u) / (1 - ξ), ξ >= 1 이면 평균이 존재하지 않음
func TailES(fit GPDFit, varEstimate float64) (float64, error) {
	if err := validateFit("tail_es", fit); err != nil {
		return 0, err
	}
	if fit.Shape >= 1 {
		return 0, statErr("tail_es", ErrUndefinedExpectedShortfall, map[string]float64{
			"shape": fit.Shape,
			"scale": fit.Scale,
		})
	}
	if !isFinite(varEstimate) {
		return 0, configErr("var_estimate", varEstimate, "must be finite")
	}
	return (varEstimate + fit.Scale - fit.Shape*fit.Threshold) / (1 - fit.Shape), nil
}

// TailDensity threshold 위의 손실 밀도 (GPD pdf × 초과확률)
// x <= u 이거나 지지집합 밖이면 0
func TailDensity(fit GPDFit, x float64) float64 {
	if x <= fit.Threshold || validateFit("tail_density", fit) != nil {
		return 0
	}

	y := x - fit.Threshold
	xi, sigma := fit.Shape, fit.Scale
	if math.Abs(xi) < ShapeEpsilon {
		return fit.ExceedanceProbability / sigma * math.Exp(-y/sigma)
	}

	t := 1 + xi*y/sigma
	if t <= 0 {
		return 0
	}
	return fit.ExceedanceProbability / sigma * math.Pow(t, -1/xi-1)
}

// TailSurvival P(X > x) = ζ·(1 + ξ(x-u)/σ)^(-1/ξ), ζ = 초과확률
// x <= u 이면 ζ (threshold 아래는 모형 밖), 유계 꼬리 끝점 너머는 0
// TailSurvival(fit, TailVaR(fit, α, n)) == 1 - α
func TailSurvival(fit GPDFit, x float64) float64 {
	if validateFit("tail_survival", fit) != nil {
		return 0
	}
	if x <= fit.Threshold {
		return fit.ExceedanceProbability
	}

	y := x - fit.Threshold
	xi, sigma := fit.Shape, fit.Scale
	if math.Abs(xi) < ShapeEpsilon {
		return fit.ExceedanceProbability * math.Exp(-y/sigma)
	}

	t := 1 + xi*y/sigma
	if t <= 0 {
		return 0
	}
	return fit.ExceedanceProbability * math.Pow(t, -1/xi)
}

func validateFit(op string, fit GPDFit) error {
	if !isFinite(fit.Shape) || !isFinite(fit.Scale) || fit.Scale <= 0 || !isFinite(fit.Threshold) {
		return statErr(op, ErrDegenerateShape, map[string]float64{
			"shape":     fit.Shape,
			"scale":     fit.Scale,
			"threshold": fit.Threshold,
		})
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
