package report

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/wonny/tailrisk/internal/risk"
	"github.com/wonny/tailrisk/internal/scenario"
	"github.com/wonny/tailrisk/pkg/redis"
)

// =============================================================================
// Report Types
// =============================================================================

// Report 시나리오 1회 실행 결과
type Report struct {
	RunID        string                `json:"run_id"`
	ScenarioID   string                `json:"scenario_id"`
	ScenarioHash string                `json:"scenario_hash"`
	GeneratedAt  time.Time             `json:"generated_at"`
	Simulation   SimulationSection     `json:"simulation"`
	Tail         *TailSection          `json:"tail,omitempty"`
	Lethality    *risk.LethalityResult `json:"lethality,omitempty"`
	LimitCheck   *risk.RiskCheckResult `json:"limit_check,omitempty"`
	Warnings     []scenario.Warning    `json:"warnings"`
}

// SimulationSection 앙상블 최종값 요약 + 불확실성 원뿔
type SimulationSection struct {
	Config        risk.SimulationConfig  `json:"config"`
	EffectiveSeed int64                  `json:"effective_seed"`
	Terminal      risk.RiskSummary       `json:"terminal"`
	Percentiles   []risk.PercentilePoint `json:"percentiles"`
	Cone          []risk.ConeBand        `json:"cone"`
}

// TailSection 정규 vs EVT 비교
type TailSection struct {
	Source     scenario.LossSource  `json:"source"`
	SampleSize int                  `json:"sample_size"`
	Comparison *risk.TailComparison `json:"comparison"`
}

// ToJSON JSON 형식으로 출력
func (r *Report) ToJSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// =============================================================================
// Reporter
// =============================================================================

// Store 리포트 저장소 (Repository, 테스트 더블)
type Store interface {
	Save(ctx context.Context, rep *Report) error
	Get(ctx context.Context, runID string) (*Report, error)
}

// Reporter 시나리오 → 리포트
// ⭐ SSOT: 리포트 조립은 여기서만, 계산은 risk 패키지
type Reporter struct {
	store    Store
	cache    *redis.Cache
	cacheTTL time.Duration
	base     zerolog.Logger
	log      zerolog.Logger
}

// NewReporter 저장소/캐시 없는 리포터
func NewReporter(log zerolog.Logger) *Reporter {
	return &Reporter{
		base: log,
		log:  log.With().Str("component", "report").Logger(),
	}
}

// WithStore 리포트 저장 활성화
func (r *Reporter) WithStore(store Store) *Reporter {
	r.store = store
	return r
}

// WithCache 시나리오 해시 기준 캐시 활성화 (시드 고정 시나리오만)
func (r *Reporter) WithCache(cache *redis.Cache, ttl time.Duration) *Reporter {
	r.cache = cache
	r.cacheTTL = ttl
	return r
}

// Run 캐시 조회 → 생성 → 저장/캐시
func (r *Reporter) Run(ctx context.Context, cfg *scenario.Config) (*Report, error) {
	hash, err := scenario.Hash(cfg)
	if err != nil {
		return nil, fmt.Errorf("hash scenario: %w", err)
	}

	cacheable := r.cache != nil && cfg.Simulation.Seed != nil
	if cacheable {
		var cached Report
		found, err := r.cache.Get(ctx, redis.ReportKey(hash), &cached)
		if err != nil {
			r.log.Warn().Err(err).Str("scenario_hash", hash).Msg("report cache read failed")
		} else if found {
			r.log.Debug().Str("scenario_id", cfg.Meta.ScenarioID).Str("run_id", cached.RunID).Msg("report cache hit")
			return &cached, nil
		}
	}

	rep, err := r.Generate(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if r.store != nil {
		if err := r.store.Save(ctx, rep); err != nil {
			return nil, fmt.Errorf("save report: %w", err)
		}
	}

	if cacheable {
		if err := r.cache.Set(ctx, redis.ReportKey(hash), rep, r.cacheTTL); err != nil {
			r.log.Warn().Err(err).Str("scenario_hash", hash).Msg("report cache write failed")
		}
	}

	return rep, nil
}

// Get 저장소에서 run id로 조회
func (r *Reporter) Get(ctx context.Context, runID string) (*Report, error) {
	if r.store == nil {
		return nil, ErrNoStore
	}
	return r.store.Get(ctx, runID)
}

// Generate 시뮬레이션 → 최종값 요약/원뿔 → EVT 비교 → 복합 지수 → 한도 체크
// EVT 통계적 퇴화는 경고로 기록하고 리포트는 계속 생성
func (r *Reporter) Generate(ctx context.Context, cfg *scenario.Config) (*Report, error) {
	start := time.Now()

	hash, err := scenario.Hash(cfg)
	if err != nil {
		return nil, fmt.Errorf("hash scenario: %w", err)
	}

	engine := risk.NewEngineWithCalibrator(cfg.EVT.Calibrator(), r.base)

	rep := &Report{
		RunID:        uuid.NewString(),
		ScenarioID:   cfg.Meta.ScenarioID,
		ScenarioHash: hash,
		GeneratedAt:  time.Now().UTC(),
		Warnings:     scenario.Warn(cfg),
	}

	// 1. 경로 시뮬레이션
	ensemble, err := engine.Simulate(cfg.Simulation)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	terminal, err := engine.SummarizeTerminal(ensemble, cfg.Summary.Confidence)
	if err != nil {
		return nil, err
	}
	points, err := risk.Percentiles(ensemble.Terminal(), cfg.Summary.Ranks)
	if err != nil {
		return nil, err
	}
	rep.Simulation = SimulationSection{
		Config:        ensemble.Config,
		EffectiveSeed: ensemble.EffectiveSeed,
		Terminal:      terminal,
		Percentiles:   points,
		Cone:          ensemble.Cone(cfg.Summary.ConeRanks),
	}

	// 2. 꼬리 비교 (선택)
	if cfg.EVT.Enabled {
		losses, err := tailLosses(cfg.EVT, ensemble)
		if err != nil {
			return nil, err
		}
		cmp, err := engine.Compare(losses)
		switch {
		case err == nil:
			rep.Tail = &TailSection{Source: cfg.EVT.Source, SampleSize: len(losses), Comparison: cmp}
		case risk.IsDegeneracy(err):
			rep.Warnings = append(rep.Warnings, scenario.Warning{Code: "EVT_FAILED", Message: err.Error()})
		default:
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// 3. 복합 지수 (선택)
	if l := cfg.Lethality; l.Enabled {
		res, err := risk.LethalityIndex(l.N, l.Factors, l.TailPct, l.Seed)
		if err != nil {
			return nil, err
		}
		res.Index = nil // 원본 지수 벡터는 리포트에 싣지 않음
		rep.Lethality = res
	}

	// 4. 한도 체크 (선택): 시뮬레이션 최종 손실 기준
	if cfg.Limits != nil {
		var cmp *risk.TailComparison
		if rep.Tail != nil {
			cmp = rep.Tail.Comparison
		}
		check, err := engine.CheckLimits(ensemble.TerminalLosses(), *cfg.Limits, cmp)
		if err != nil {
			return nil, err
		}
		rep.LimitCheck = check
	}

	r.log.Info().
		Str("run_id", rep.RunID).
		Str("scenario_id", rep.ScenarioID).
		Int64("seed", rep.Simulation.EffectiveSeed).
		Int("warnings", len(rep.Warnings)).
		Dur("elapsed", time.Since(start)).
		Msg("risk report generated")

	return rep, nil
}

// tailLosses EVT 블록이 지정한 손실 샘플
func tailLosses(e scenario.EVT, ensemble *risk.PathEnsemble) ([]float64, error) {
	switch e.Source {
	case scenario.SourceStudentT:
		return risk.StudentTLosses(e.StudentT.N, e.StudentT.DF, e.StudentT.Scale, e.StudentT.Seed)
	case scenario.SourceGPD:
		draws, err := risk.GPDSample(e.GPD.N, e.GPD.Shape, e.GPD.Scale, e.GPD.Seed)
		if err != nil {
			return nil, err
		}
		for i := range draws {
			draws[i] += e.GPD.Threshold
		}
		return draws, nil
	default:
		return ensemble.TerminalLosses(), nil
	}
}
