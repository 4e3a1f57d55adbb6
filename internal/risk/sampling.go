package risk

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// samplerStream 표본 생성기용 PCG 스트림 (경로 스트림과 분리)
const samplerStream = 0xda3e39cb94b95bdb

func newSource(seed int64) rand.Source {
	return rand.NewPCG(uint64(seed), samplerStream)
}

// =============================================================================
// Synthetic Loss Samples
// =============================================================================

// StudentTLosses fat tail 시장 손실 샘플
// r = t(df)·scale, 손실 = -r 중 양수만 유지
func StudentTLosses(n int, df, scale float64, seed int64) ([]float64, error) {
	if n < 1 {
		return nil, configErr("n", n, "must be >= 1")
	}
	if !(df > 0) || !isFinite(df) {
		return nil, configErr("df", df, "must be > 0")
	}
	if !(scale > 0) || !isFinite(scale) {
		return nil, configErr("scale", scale, "must be > 0")
	}

	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df, Src: newSource(seed)}

	losses := make([]float64, 0, n/2+1)
	for i := 0; i < n; i++ {
		if loss := -dist.Rand() * scale; loss > 0 {
			losses = append(losses, loss)
		}
	}
	return losses, nil
}

// GPDSample GPD(ξ, σ) 역CDF 표본 (location 0)
func GPDSample(n int, shape, scale float64, seed int64) ([]float64, error) {
	if n < 1 {
		return nil, configErr("n", n, "must be >= 1")
	}
	if !isFinite(shape) {
		return nil, configErr("shape", shape, "must be finite")
	}
	if !(scale > 0) || !isFinite(scale) {
		return nil, configErr("scale", scale, "must be > 0")
	}

	rng := rand.New(newSource(seed))
	out := make([]float64, n)
	for i := range out {
		tail := 1 - rng.Float64() // (0, 1]
		if math.Abs(shape) < ShapeEpsilon {
			out[i] = -scale * math.Log(tail)
		} else {
			out[i] = scale / shape * (math.Pow(tail, -shape) - 1)
		}
	}
	return out, nil
}

// BetaComponent 혼합 구성요소
type BetaComponent struct {
	Alpha float64 `json:"alpha" yaml:"alpha"`
	Beta  float64 `json:"beta" yaml:"beta"`
	Count int     `json:"count" yaml:"count"`
}

// BetaMixture Beta 표본 연결 (이봉형 신용손실 LGD 등)
func BetaMixture(components []BetaComponent, seed int64) ([]float64, error) {
	if len(components) == 0 {
		return nil, configErr("components", 0, "at least one component required")
	}

	total := 0
	for _, c := range components {
		if !(c.Alpha > 0) || !(c.Beta > 0) {
			return nil, configErr("components.alpha_beta", [2]float64{c.Alpha, c.Beta}, "must be > 0")
		}
		if c.Count < 1 {
			return nil, configErr("components.count", c.Count, "must be >= 1")
		}
		total += c.Count
	}

	src := newSource(seed)
	out := make([]float64, 0, total)
	for _, c := range components {
		dist := distuv.Beta{Alpha: c.Alpha, Beta: c.Beta, Src: src}
		for i := 0; i < c.Count; i++ {
			out = append(out, dist.Rand())
		}
	}
	return out, nil
}

// =============================================================================
// Composite Index (Lethality)
// =============================================================================

// LethalityFactor 복합 지수 구성 인자 (0=건강, 1=심각)
type LethalityFactor struct {
	Name  string  `json:"name" yaml:"name"`
	Alpha float64 `json:"alpha" yaml:"alpha"`
	Beta  float64 `json:"beta" yaml:"beta"`
}

// DefaultLethalityFactors PDG(치주), ARF(위험인자), ISG(면역) 모두 Beta(2,5)
func DefaultLethalityFactors() []LethalityFactor {
	return []LethalityFactor{
		{Name: "pdg", Alpha: 2, Beta: 5},
		{Name: "arf", Alpha: 2, Beta: 5},
		{Name: "isg", Alpha: 2, Beta: 5},
	}
}

// FactorContrast 꼬리 vs 본체 인자 평균
type FactorContrast struct {
	Name     string  `json:"name"`
	TailMean float64 `json:"tail_mean"`
	BodyMean float64 `json:"body_mean"`
}

// LethalityResult 복합 지수 시뮬레이션 결과
type LethalityResult struct {
	Threshold float64          `json:"threshold"`
	TailCount int              `json:"tail_count"`
	BodyCount int              `json:"body_count"`
	Factors   []FactorContrast `json:"factors"`
	Summary   RiskSummary      `json:"summary"`
	Index     []float64        `json:"index,omitempty"`
}

// LethalityIndex 인자별 Beta 표본의 곱으로 지수를 만들고 tailPct 백분위에서 꼬리를 분리
// 난수 순서: 인자 순서대로 n개씩
func LethalityIndex(n int, factors []LethalityFactor, tailPct float64, seed int64) (*LethalityResult, error) {
	if n < 2 {
		return nil, configErr("n", n, "must be >= 2")
	}
	if len(factors) == 0 {
		return nil, configErr("factors", 0, "at least one factor required")
	}
	if err := validateThresholdPercentile(tailPct); err != nil {
		return nil, err
	}

	src := newSource(seed)
	draws := make([][]float64, len(factors))
	index := make([]float64, n)
	for i := range index {
		index[i] = 1
	}

	for f, factor := range factors {
		if !(factor.Alpha > 0) || !(factor.Beta > 0) {
			return nil, configErr("factors."+factor.Name, [2]float64{factor.Alpha, factor.Beta}, "alpha and beta must be > 0")
		}
		dist := distuv.Beta{Alpha: factor.Alpha, Beta: factor.Beta, Src: src}
		draws[f] = make([]float64, n)
		for i := 0; i < n; i++ {
			draws[f][i] = dist.Rand()
			index[i] *= draws[f][i]
		}
	}

	summary, err := Summarize(index, tailPct/100)
	if err != nil {
		return nil, err
	}
	threshold := summary.ValueAtRisk

	result := &LethalityResult{
		Threshold: threshold,
		Summary:   summary,
		Index:     index,
		Factors:   make([]FactorContrast, len(factors)),
	}

	tailSums := make([]float64, len(factors))
	bodySums := make([]float64, len(factors))
	for i, v := range index {
		inTail := v >= threshold
		if inTail {
			result.TailCount++
		} else {
			result.BodyCount++
		}
		for f := range factors {
			if inTail {
				tailSums[f] += draws[f][i]
			} else {
				bodySums[f] += draws[f][i]
			}
		}
	}

	for f, factor := range factors {
		c := FactorContrast{Name: factor.Name}
		if result.TailCount > 0 {
			c.TailMean = tailSums[f] / float64(result.TailCount)
		}
		if result.BodyCount > 0 {
			c.BodyMean = bodySums[f] / float64(result.BodyCount)
		}
		result.Factors[f] = c
	}

	return result, nil
}
