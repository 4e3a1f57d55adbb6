package scenario

import (
	"time"

	"github.com/wonny/tailrisk/internal/risk"
)

// Config 리스크 시나리오 전체 설정 (YAML 1개 = 시나리오 1개)
type Config struct {
	Meta       Meta                  `yaml:"meta" json:"meta"`
	Simulation risk.SimulationConfig `yaml:"simulation" json:"simulation"`
	Summary    Summary               `yaml:"summary" json:"summary"`
	EVT        EVT                   `yaml:"evt" json:"evt"`
	Lethality  Lethality             `yaml:"lethality" json:"lethality"`
	Limits     *risk.RiskLimits      `yaml:"limits,omitempty" json:"limits,omitempty"`
}

// Meta 메타 정보
type Meta struct {
	ScenarioID  string `yaml:"scenario_id" json:"scenario_id"`
	Version     string `yaml:"version" json:"version"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	Schedule    string `yaml:"schedule,omitempty" json:"schedule,omitempty"` // cron (초 포함), 빈 값 = 스케줄 없음
}

// Summary 최종값 분포 요약
type Summary struct {
	Confidence float64   `yaml:"confidence" json:"confidence"`
	Ranks      []float64 `yaml:"ranks,omitempty" json:"ranks,omitempty"`
	ConeRanks  []float64 `yaml:"cone_ranks,omitempty" json:"cone_ranks,omitempty"`
}

// LossSource EVT 비교에 쓰는 손실 샘플 출처
type LossSource string

const (
	SourceSimulated LossSource = "simulated" // 앙상블 최종 손실 (초기값 - 최종값)
	SourceStudentT  LossSource = "student_t" // fat tail 합성 샘플
	SourceGPD       LossSource = "gpd"       // threshold + GPD 초과분
)

// EVT 정규 vs EVT 꼬리 비교
type EVT struct {
	Enabled        bool       `yaml:"enabled" json:"enabled"`
	Source         LossSource `yaml:"source" json:"source"`
	ThresholdPct   float64    `yaml:"threshold_pct" json:"threshold_pct"`
	MinExceedances int        `yaml:"min_exceedances" json:"min_exceedances"`
	Confidence     float64    `yaml:"confidence" json:"confidence"`
	StudentT       StudentT   `yaml:"student_t" json:"student_t"`
	GPD            GPDSource  `yaml:"gpd" json:"gpd"`
}

// Calibrator EVT 블록 → risk.Calibrator
func (e EVT) Calibrator() risk.Calibrator {
	return risk.Calibrator{
		ThresholdPercentile: e.ThresholdPct,
		MinExceedances:      e.MinExceedances,
		Confidence:          e.Confidence,
	}
}

type StudentT struct {
	N     int     `yaml:"n" json:"n"`
	DF    float64 `yaml:"df" json:"df"`
	Scale float64 `yaml:"scale" json:"scale"`
	Seed  int64   `yaml:"seed" json:"seed"`
}

type GPDSource struct {
	N         int     `yaml:"n" json:"n"`
	Shape     float64 `yaml:"shape" json:"shape"`
	Scale     float64 `yaml:"scale" json:"scale"`
	Threshold float64 `yaml:"threshold" json:"threshold"`
	Seed      int64   `yaml:"seed" json:"seed"`
}

// Lethality 복합 지수 (Beta 인자 곱)
type Lethality struct {
	Enabled bool                   `yaml:"enabled" json:"enabled"`
	N       int                    `yaml:"n" json:"n"`
	Seed    int64                  `yaml:"seed" json:"seed"`
	TailPct float64                `yaml:"tail_pct" json:"tail_pct"`
	Factors []risk.LethalityFactor `yaml:"factors,omitempty" json:"factors,omitempty"`
}

// Loaded 파일에서 읽은 시나리오 (스케줄러용)
type Loaded struct {
	Path     string
	Config   *Config
	Hash     string
	LoadedAt time.Time
}
