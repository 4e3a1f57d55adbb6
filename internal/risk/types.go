package risk

// =============================================================================
// Tail Convention
// =============================================================================

// Tail VaR/CVaR를 읽는 분포 꼬리 방향
type Tail string

const (
	// TailUpper 손실 샘플 (양수=손실). VaR = α 백분위수
	TailUpper Tail = "upper"
	// TailLower 가치 샘플 (가격, 지수). VaR = (1-α) 백분위수
	TailLower Tail = "lower"
)

// VaRConvention VaR 부호 규약
// ⭐ SSOT: Loss를 양수로 표현, VaR/ES는 손실 분포의 상위 꼬리
const VaRConvention = "loss_positive"

// DefaultPercentileRanks 요약에 포함되는 기본 백분위수
var DefaultPercentileRanks = []float64{1, 5, 10, 25, 50, 75, 90, 95, 99}

// =============================================================================
// Simulation Types
// =============================================================================

// Process 확률 과정 종류
type Process string

const (
	// ProcessGeometric S[t] = S[t-1] * exp((μ - σ²/2)dt + σ√dt Z)
	ProcessGeometric Process = "geometric"
	// ProcessArithmetic S[t] = S[t-1] + S[t-1] * (μdt + σ√dt Z)
	ProcessArithmetic Process = "arithmetic"
)

// SimulationConfig 경로 시뮬레이션 설정
// ⭐ SSOT: 동일 Seed + 동일 설정 → 비트 단위로 동일한 앙상블
type SimulationConfig struct {
	InitialValue float64 `json:"initial_value" yaml:"initial_value"`
	Drift        float64 `json:"drift" yaml:"drift"`
	Volatility   float64 `json:"volatility" yaml:"volatility"`
	HorizonSteps int     `json:"horizon_steps" yaml:"horizon_steps"`
	StepSize     float64 `json:"step_size" yaml:"step_size"`
	PathCount    int     `json:"path_count" yaml:"path_count"`
	Process      Process `json:"process,omitempty" yaml:"process"` // 빈 값 = geometric
	Seed         *int64  `json:"seed,omitempty" yaml:"seed"`       // nil = 시계 기반 시드
}

// WithSeed returns a copy of the config pinned to seed.
func (c SimulationConfig) WithSeed(seed int64) SimulationConfig {
	c.Seed = &seed
	return c
}

// Cells 앙상블 버퍼 크기 (PathCount * HorizonSteps)
func (c SimulationConfig) Cells() int {
	return c.PathCount * c.HorizonSteps
}

// PathEnsemble 시뮬레이션 경로 묶음
// Paths[p][0] == Config.InitialValue, len(Paths[p]) == HorizonSteps
// 생성 후 읽기 전용
type PathEnsemble struct {
	Config        SimulationConfig `json:"config"`
	EffectiveSeed int64            `json:"effective_seed"` // 실제 사용된 시드 (재현용)
	Paths         [][]float64      `json:"paths"`
}

// =============================================================================
// Summary Types
// =============================================================================

// PercentilePoint 백분위수 (rank ∈ [0,100])
type PercentilePoint struct {
	Rank  float64 `json:"rank"`
	Value float64 `json:"value"`
}

// RiskSummary 샘플 분포 요약
// ⭐ 샘플에서 순수 계산, 내부 상태 없음
type RiskSummary struct {
	Tail                   Tail              `json:"tail"`
	ConfidenceLevel        float64           `json:"confidence_level"`
	ValueAtRisk            float64           `json:"value_at_risk"`
	ConditionalValueAtRisk float64           `json:"conditional_value_at_risk"`
	Mean                   float64           `json:"mean"`
	StdDev                 float64           `json:"std_dev"`
	Count                  int               `json:"count"`
	TailCount              int               `json:"tail_count"`
	Percentiles            []PercentilePoint `json:"percentiles"`
}

// Percentile looks up a precomputed rank.
func (s RiskSummary) Percentile(rank float64) (float64, bool) {
	for _, p := range s.Percentiles {
		if p.Rank == rank {
			return p.Value, true
		}
	}
	return 0, false
}

// ConeBand 시점별 백분위 밴드 (불확실성 원뿔)
type ConeBand struct {
	Step        int               `json:"step"`
	Time        float64           `json:"time"`
	Percentiles []PercentilePoint `json:"percentiles"`
}

// =============================================================================
// EVT Types
// =============================================================================

// ExceedanceSample threshold 초과분 (x - u), 원래 순서 유지
type ExceedanceSample struct {
	Threshold  float64   `json:"threshold"`
	Excesses   []float64 `json:"excesses"`
	SampleSize int       `json:"sample_size"` // 원본 손실 샘플 크기
}

// Len 초과 관측치 수
func (e ExceedanceSample) Len() int {
	return len(e.Excesses)
}

// FitMethod GPD 추정 방법
type FitMethod string

const (
	FitMLE FitMethod = "mle" // 최대우도 (PWM 초기값)
	FitPWM FitMethod = "pwm" // 확률가중적률 (Hosking-Wallis)
)

// GPDFit POT 보정 결과 (값 타입)
// Shape(ξ) > 0: heavy tail, = 0: exponential, < 0: bounded
type GPDFit struct {
	Shape                 float64   `json:"shape"`
	Scale                 float64   `json:"scale"`
	Location              float64   `json:"location"` // 초과분 기준 항상 0
	Threshold             float64   `json:"threshold"`
	ExceedanceProbability float64   `json:"exceedance_probability"`
	ExceedanceCount       int       `json:"exceedance_count"`
	SampleSize            int       `json:"sample_size"`
	Method                FitMethod `json:"method"`
	LogLikelihood         float64   `json:"log_likelihood"`
}

// TailComparison 정규분포 vs EVT 비교 (같은 손실 샘플 기준)
type TailComparison struct {
	Confidence float64     `json:"confidence"`
	Empirical  RiskSummary `json:"empirical"`
	Fit        GPDFit      `json:"fit"`
	NormalVaR  float64     `json:"normal_var"`
	NormalES   float64     `json:"normal_es"`
	TailVaR    float64     `json:"tail_var"`
	TailES     float64     `json:"tail_es"`
	CapitalGap float64     `json:"capital_gap"` // TailVaR - NormalVaR
}
