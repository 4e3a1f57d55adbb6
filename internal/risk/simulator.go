package risk

import (
	"math"
	"math/rand/v2"
	"runtime"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
)

// pathsPerChunk 워커 하나가 맡는 경로 수
const pathsPerChunk = 256

// =============================================================================
// Path Simulation (Pure)
// =============================================================================

// ValidateSimulationConfig 시뮬레이션 설정 검증 (필드명 + 값 포함)
func ValidateSimulationConfig(cfg SimulationConfig) error {
	for _, f := range []struct {
		name  string
		value float64
	}{
		{"initial_value", cfg.InitialValue},
		{"drift", cfg.Drift},
		{"volatility", cfg.Volatility},
		{"step_size", cfg.StepSize},
	} {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return configErr(f.name, f.value, "must be finite")
		}
	}

	if cfg.InitialValue <= 0 {
		return configErr("initial_value", cfg.InitialValue, "must be > 0")
	}
	if cfg.StepSize <= 0 {
		return configErr("step_size", cfg.StepSize, "must be > 0")
	}
	if cfg.Volatility < 0 {
		return configErr("volatility", cfg.Volatility, "must be >= 0")
	}
	if cfg.HorizonSteps < 1 {
		return configErr("horizon_steps", cfg.HorizonSteps, "must be >= 1")
	}
	if cfg.PathCount < 1 {
		return configErr("path_count", cfg.PathCount, "must be >= 1")
	}
	if cfg.PathCount > math.MaxInt/cfg.HorizonSteps {
		return configErr("path_count", cfg.PathCount, "path_count * horizon_steps overflows")
	}

	switch cfg.Process {
	case "", ProcessGeometric, ProcessArithmetic:
	default:
		return configErr("process", cfg.Process, "must be geometric or arithmetic")
	}

	return nil
}

// Simulate 경로 앙상블 생성
//
// 난수 규약: 경로 p는 PCG(seed, p) 스트림을 단독으로 사용하고, 경로 안에서는
// t = 1..H-1 순서로 표준정규 난수를 하나씩 뽑는다. 워커 수와 무관하게 결과가 같다.
//
// 메모리: PathCount * HorizonSteps 개의 float64를 한 번에 할당 (O(P·H)).
func Simulate(cfg SimulationConfig) (*PathEnsemble, error) {
	if err := ValidateSimulationConfig(cfg); err != nil {
		return nil, err
	}

	seed := time.Now().UnixNano()
	if cfg.Seed != nil {
		seed = *cfg.Seed
	}

	h := cfg.HorizonSteps
	buf := make([]float64, cfg.Cells())
	paths := make([][]float64, cfg.PathCount)
	for p := range paths {
		paths[p] = buf[p*h : (p+1)*h : (p+1)*h]
	}

	step := newStepper(cfg)

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for start := 0; start < cfg.PathCount; start += pathsPerChunk {
		end := min(start+pathsPerChunk, cfg.PathCount)
		g.Go(func() error {
			for p := start; p < end; p++ {
				step.fill(paths[p], cfg.InitialValue, pathSource(seed, p))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &PathEnsemble{
		Config:        cfg,
		EffectiveSeed: seed,
		Paths:         paths,
	}, nil
}

// pathSource 경로별 독립 난수 스트림
func pathSource(seed int64, path int) *rand.Rand {
	return rand.New(rand.NewPCG(uint64(seed), uint64(path)))
}

// stepper 한 스텝 전이식 (설정에서 상수 미리 계산)
type stepper struct {
	geometric bool
	drift     float64
	diffusion float64
}

func newStepper(cfg SimulationConfig) stepper {
	diffusion := cfg.Volatility * math.Sqrt(cfg.StepSize)
	if cfg.Process == ProcessArithmetic {
		return stepper{
			drift:     cfg.Drift * cfg.StepSize,
			diffusion: diffusion,
		}
	}
	return stepper{
		geometric: true,
		drift:     (cfg.Drift - 0.5*cfg.Volatility*cfg.Volatility) * cfg.StepSize,
		diffusion: diffusion,
	}
}

func (s stepper) fill(path []float64, initial float64, rng *rand.Rand) {
	path[0] = initial
	for t := 1; t < len(path); t++ {
		z := rng.NormFloat64()
		prev := path[t-1]
		if s.geometric {
			path[t] = prev * math.Exp(s.drift+s.diffusion*z)
		} else {
			path[t] = prev + prev*(s.drift+s.diffusion*z)
		}
	}
}

// =============================================================================
// Ensemble Views
// =============================================================================

// Terminal 마지막 시점 값 (경로 순서)
func (e *PathEnsemble) Terminal() []float64 {
	out := make([]float64, len(e.Paths))
	for p, path := range e.Paths {
		out[p] = path[len(path)-1]
	}
	return out
}

// TerminalLosses 초기값 대비 손실 (양수=손실)
func (e *PathEnsemble) TerminalLosses() []float64 {
	out := e.Terminal()
	for i, v := range out {
		out[i] = e.Config.InitialValue - v
	}
	return out
}

// Cone 시점별 백분위 밴드 (불확실성 원뿔)
func (e *PathEnsemble) Cone(ranks []float64) []ConeBand {
	if len(e.Paths) == 0 {
		return nil
	}
	if len(ranks) == 0 {
		ranks = DefaultPercentileRanks
	}

	steps := len(e.Paths[0])
	column := make([]float64, len(e.Paths))
	bands := make([]ConeBand, steps)

	for t := 0; t < steps; t++ {
		for p, path := range e.Paths {
			column[p] = path[t]
		}
		sort.Float64s(column)

		points := make([]PercentilePoint, len(ranks))
		for i, r := range ranks {
			points[i] = PercentilePoint{Rank: r, Value: Percentile(column, r)}
		}
		bands[t] = ConeBand{
			Step:        t,
			Time:        float64(t) * e.Config.StepSize,
			Percentiles: points,
		}
	}

	return bands
}
