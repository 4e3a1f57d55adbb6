package risk

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// =============================================================================
// Distributional Risk Summary
// =============================================================================

// Summarize 손실 샘플 요약 (양수=손실, 상위 꼬리)
// VaR = α·100 백분위수, CVaR = VaR 이상 값들의 평균
func Summarize(losses []float64, confidence float64) (RiskSummary, error) {
	return summarize("summarize", losses, confidence, TailUpper)
}

// SummarizeValues 가치 샘플 요약 (가격/지수, 하위 꼬리)
// VaR = (1-α)·100 백분위수, CVaR = VaR 이하 값들의 평균
func SummarizeValues(values []float64, confidence float64) (RiskSummary, error) {
	return summarize("summarize_values", values, confidence, TailLower)
}

func summarize(op string, sample []float64, confidence float64, tail Tail) (RiskSummary, error) {
	if err := validateConfidence("confidence_level", confidence); err != nil {
		return RiskSummary{}, err
	}

	sorted, err := sortedCopy(op, sample)
	if err != nil {
		return RiskSummary{}, err
	}

	var (
		varValue float64
		tailSet  []float64
	)
	if tail == TailUpper {
		varValue = Percentile(sorted, confidence*100)
		idx := sort.SearchFloat64s(sorted, varValue) // 첫 번째 sorted[i] >= VaR
		tailSet = sorted[idx:]
	} else {
		varValue = Percentile(sorted, (1-confidence)*100)
		idx := sort.Search(len(sorted), func(i int) bool { return sorted[i] > varValue })
		tailSet = sorted[:idx]
	}

	// 보간 반올림으로 꼬리가 비는 경우 방어
	if len(tailSet) == 0 {
		return RiskSummary{}, statErr(op, ErrDegenerateTail, map[string]float64{
			"confidence": confidence,
			"var":        varValue,
			"count":      float64(len(sorted)),
		})
	}

	points := make([]PercentilePoint, len(DefaultPercentileRanks))
	for i, r := range DefaultPercentileRanks {
		points[i] = PercentilePoint{Rank: r, Value: Percentile(sorted, r)}
	}

	return RiskSummary{
		Tail:                   tail,
		ConfidenceLevel:        confidence,
		ValueAtRisk:            varValue,
		ConditionalValueAtRisk: stat.Mean(tailSet, nil),
		Mean:                   Mean(sorted),
		StdDev:                 StdDev(sorted),
		Count:                  len(sorted),
		TailCount:              len(tailSet),
		Percentiles:            points,
	}, nil
}

// Percentiles 임의 rank 목록의 백분위수
func Percentiles(sample []float64, ranks []float64) ([]PercentilePoint, error) {
	for _, r := range ranks {
		if math.IsNaN(r) || r < 0 || r > 100 {
			return nil, configErr("rank", r, "must be in [0, 100]")
		}
	}

	sorted, err := sortedCopy("percentiles", sample)
	if err != nil {
		return nil, err
	}

	out := make([]PercentilePoint, len(ranks))
	for i, r := range ranks {
		out[i] = PercentilePoint{Rank: r, Value: Percentile(sorted, r)}
	}
	return out, nil
}

// sortedCopy 정렬된 복사본 (호출자 슬라이스는 건드리지 않음)
func sortedCopy(op string, sample []float64) ([]float64, error) {
	if len(sample) == 0 {
		return nil, statErr(op, ErrEmptySample, map[string]float64{"count": 0})
	}

	sorted := make([]float64, len(sample))
	for i, v := range sample {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, statErr(op, ErrNonFiniteSample, map[string]float64{"index": float64(i)})
		}
		sorted[i] = v
	}
	sort.Float64s(sorted)

	return sorted, nil
}

func validateConfidence(field string, confidence float64) error {
	if math.IsNaN(confidence) || confidence <= 0 || confidence >= 1 {
		return configErr(field, confidence, "must be in (0, 1)")
	}
	return nil
}

// =============================================================================
// Parametric (Normal) VaR/ES
// =============================================================================

// NormalVaR 정규분포 가정 VaR (손실 분포 상위 꼬리)
// VaR = μ + σ·Φ⁻¹(α)
func NormalVaR(mean, stdDev, confidence float64) (float64, error) {
	if err := validateNormal(mean, stdDev, confidence); err != nil {
		return 0, err
	}
	if stdDev == 0 {
		return mean, nil
	}
	return distuv.Normal{Mu: mean, Sigma: stdDev}.Quantile(confidence), nil
}

// NormalES 정규분포 가정 Expected Shortfall
// ES = μ + σ·φ(z)/(1-α), z = Φ⁻¹(α)
func NormalES(mean, stdDev, confidence float64) (float64, error) {
	if err := validateNormal(mean, stdDev, confidence); err != nil {
		return 0, err
	}
	z := distuv.UnitNormal.Quantile(confidence)
	return mean + stdDev*distuv.UnitNormal.Prob(z)/(1-confidence), nil
}

func validateNormal(mean, stdDev, confidence float64) error {
	if err := validateConfidence("confidence", confidence); err != nil {
		return err
	}
	if math.IsNaN(mean) || math.IsInf(mean, 0) {
		return configErr("mean", mean, "must be finite")
	}
	if math.IsNaN(stdDev) || math.IsInf(stdDev, 0) || stdDev < 0 {
		return configErr("std_dev", stdDev, "must be finite and >= 0")
	}
	return nil
}

// =============================================================================
// 통계 유틸리티
// =============================================================================

// Mean 평균
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return stat.Mean(values, nil)
}

// StdDev 표본 표준편차 (n-1)
func StdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	return stat.StdDev(values, nil)
}

// Percentile 백분위수 (R-7, 선형 보간)
// sorted: 오름차순 정렬, p ∈ [0,100]
// 위치 h = p/100·(n-1), 순서통계량 ⌊h⌋와 ⌊h⌋+1 사이 보간
func Percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[len(sorted)-1]
	}

	idx := p / 100.0 * float64(len(sorted)-1)
	lower := int(math.Floor(idx))
	upper := lower + 1

	if upper >= len(sorted) {
		return sorted[len(sorted)-1]
	}

	// 선형 보간, 구간 밖으로 반올림되지 않게 clamp (rank 단조성 유지)
	lo, hi := sorted[lower], sorted[upper]
	v := lo + (idx-float64(lower))*(hi-lo)
	return math.Min(math.Max(v, lo), hi)
}
