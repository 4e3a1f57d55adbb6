package risk

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// =============================================================================
// Engine - 순수 계산기 + 로깅
// =============================================================================

// Engine 리스크 엔진
// ⭐ SSOT: GBM / VaR / CVaR / GPD 공식은 이 패키지에만 존재
// 데이터 조립/저장은 상위 레이어(report, api)에서
type Engine struct {
	calibrator Calibrator
	log        zerolog.Logger
}

// NewEngine 기본 Calibrator로 엔진 생성
func NewEngine(log zerolog.Logger) *Engine {
	return NewEngineWithCalibrator(NewCalibrator(), log)
}

// NewEngineWithCalibrator 커스텀 Calibrator로 엔진 생성
func NewEngineWithCalibrator(c Calibrator, log zerolog.Logger) *Engine {
	return &Engine{
		calibrator: c,
		log:        log.With().Str("component", "risk.engine").Logger(),
	}
}

// Calibrator 현재 POT 설정
func (e *Engine) Calibrator() Calibrator {
	return e.calibrator
}

// Simulate 경로 시뮬레이션
func (e *Engine) Simulate(cfg SimulationConfig) (*PathEnsemble, error) {
	start := time.Now()

	ensemble, err := Simulate(cfg)
	if err != nil {
		e.log.Warn().Err(err).Msg("simulation rejected")
		return nil, err
	}

	e.log.Debug().
		Int("paths", cfg.PathCount).
		Int("steps", cfg.HorizonSteps).
		Int64("seed", ensemble.EffectiveSeed).
		Dur("elapsed", time.Since(start)).
		Msg("simulation completed")

	return ensemble, nil
}

// SummarizeTerminal 앙상블 최종값 요약 (가치 샘플, 하위 꼬리)
func (e *Engine) SummarizeTerminal(ensemble *PathEnsemble, confidence float64) (RiskSummary, error) {
	return SummarizeValues(ensemble.Terminal(), confidence)
}

// Compare 정규 vs EVT 비교
func (e *Engine) Compare(losses []float64) (*TailComparison, error) {
	cmp, err := e.calibrator.Compare(losses)
	if err != nil {
		e.log.Warn().Err(err).Int("samples", len(losses)).Msg("tail comparison failed")
		return nil, err
	}

	e.log.Debug().
		Float64("threshold", cmp.Fit.Threshold).
		Float64("shape", cmp.Fit.Shape).
		Float64("scale", cmp.Fit.Scale).
		Int("exceedances", cmp.Fit.ExceedanceCount).
		Float64("capital_gap", cmp.CapitalGap).
		Msg("tail comparison completed")

	return cmp, nil
}

// =============================================================================
// Risk Check (손실 샘플 한도 체크)
// =============================================================================

// RiskLimits 리스크 한도 (손실 양수)
type RiskLimits struct {
	Confidence    float64 `json:"confidence" yaml:"confidence"`
	MaxVaR        float64 `json:"max_var" yaml:"max_var"`
	MaxCVaR       float64 `json:"max_cvar" yaml:"max_cvar"`
	MaxCapitalGap float64 `json:"max_capital_gap" yaml:"max_capital_gap"` // 0 = 체크 안 함
}

// RiskCheckResult 리스크 체크 결과
type RiskCheckResult struct {
	Passed     bool      `json:"passed"`
	VaR        float64   `json:"var"`
	CVaR       float64   `json:"cvar"`
	CapitalGap *float64  `json:"capital_gap,omitempty"`
	Violations []string  `json:"violations"`
	CheckedAt  time.Time `json:"checked_at"`
}

// CheckLimits 손실 샘플 한도 체크
// cmp가 nil이면 capital gap 체크 생략
func (e *Engine) CheckLimits(losses []float64, limits RiskLimits, cmp *TailComparison) (*RiskCheckResult, error) {
	summary, err := Summarize(losses, limits.Confidence)
	if err != nil {
		return nil, err
	}

	result := &RiskCheckResult{
		Passed:     true,
		VaR:        summary.ValueAtRisk,
		CVaR:       summary.ConditionalValueAtRisk,
		Violations: make([]string, 0),
		CheckedAt:  time.Now(),
	}

	if limits.MaxVaR > 0 && summary.ValueAtRisk > limits.MaxVaR {
		result.Passed = false
		result.Violations = append(result.Violations,
			fmt.Sprintf("VaR %.4f exceeds limit %.4f", summary.ValueAtRisk, limits.MaxVaR))
	}
	if limits.MaxCVaR > 0 && summary.ConditionalValueAtRisk > limits.MaxCVaR {
		result.Passed = false
		result.Violations = append(result.Violations,
			fmt.Sprintf("CVaR %.4f exceeds limit %.4f", summary.ConditionalValueAtRisk, limits.MaxCVaR))
	}
	if cmp != nil {
		gap := cmp.CapitalGap
		result.CapitalGap = &gap
		if limits.MaxCapitalGap > 0 && gap > limits.MaxCapitalGap {
			result.Passed = false
			result.Violations = append(result.Violations,
				fmt.Sprintf("capital gap %.4f exceeds limit %.4f", gap, limits.MaxCapitalGap))
		}
	}

	if !result.Passed {
		e.log.Info().Strs("violations", result.Violations).Msg("risk limits breached")
	}

	return result, nil
}
