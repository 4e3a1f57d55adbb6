package scenario

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/robfig/cron/v3"

	"github.com/wonny/tailrisk/internal/risk"
)

var scenarioIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// ScheduleParser 초 단위 cron (스케줄러와 동일)
var ScheduleParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// ValidationError 검증 실패
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Warning 권장 위반 (경고만)
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Validate checks all required constraints
func Validate(cfg *Config) error {
	// === Meta ===
	if cfg.Meta.ScenarioID == "" {
		return ValidationError{"meta.scenario_id", "required"}
	}
	if !scenarioIDPattern.MatchString(cfg.Meta.ScenarioID) {
		return ValidationError{"meta.scenario_id", "must match [a-z0-9][a-z0-9_-]*"}
	}
	if cfg.Meta.Schedule != "" {
		if _, err := ScheduleParser.Parse(cfg.Meta.Schedule); err != nil {
			return ValidationError{"meta.schedule", err.Error()}
		}
	}

	// === Simulation ===
	if err := risk.ValidateSimulationConfig(cfg.Simulation); err != nil {
		var cerr *risk.ConfigError
		if errors.As(err, &cerr) {
			return ValidationError{"simulation." + cerr.Field, fmt.Sprintf("%v: %s", cerr.Value, cerr.Reason)}
		}
		return ValidationError{"simulation", err.Error()}
	}

	// === Summary ===
	if err := validateUnitOpen(cfg.Summary.Confidence, "summary.confidence"); err != nil {
		return err
	}
	if err := validateRanks(cfg.Summary.Ranks, "summary.ranks"); err != nil {
		return err
	}
	if err := validateRanks(cfg.Summary.ConeRanks, "summary.cone_ranks"); err != nil {
		return err
	}

	// === EVT ===
	if cfg.EVT.Enabled {
		if err := validateEVT(cfg.EVT); err != nil {
			return err
		}
	}

	// === Lethality ===
	if cfg.Lethality.Enabled {
		if err := validateLethality(cfg.Lethality); err != nil {
			return err
		}
	}

	// === Limits ===
	if lim := cfg.Limits; lim != nil {
		if err := validateUnitOpen(lim.Confidence, "limits.confidence"); err != nil {
			return err
		}
		if lim.MaxVaR < 0 || lim.MaxCVaR < 0 || lim.MaxCapitalGap < 0 {
			return ValidationError{"limits", "limits must be >= 0 (0 = unchecked)"}
		}
	}

	return nil
}

func validateEVT(e EVT) error {
	if e.ThresholdPct <= 0 || e.ThresholdPct >= 100 {
		return ValidationError{"evt.threshold_pct", "must be in (0, 100)"}
	}
	if e.MinExceedances < 1 {
		return ValidationError{"evt.min_exceedances", "must be >= 1"}
	}
	if err := validateUnitOpen(e.Confidence, "evt.confidence"); err != nil {
		return err
	}

	switch e.Source {
	case SourceSimulated:
	case SourceStudentT:
		if e.StudentT.N < 1 {
			return ValidationError{"evt.student_t.n", "must be >= 1"}
		}
		if e.StudentT.DF <= 0 {
			return ValidationError{"evt.student_t.df", "must be > 0"}
		}
		if e.StudentT.Scale <= 0 {
			return ValidationError{"evt.student_t.scale", "must be > 0"}
		}
	case SourceGPD:
		if e.GPD.N < 1 {
			return ValidationError{"evt.gpd.n", "must be >= 1"}
		}
		if e.GPD.Scale <= 0 {
			return ValidationError{"evt.gpd.scale", "must be > 0"}
		}
	default:
		return ValidationError{"evt.source", "must be simulated, student_t or gpd"}
	}
	return nil
}

func validateLethality(l Lethality) error {
	if l.N < 2 {
		return ValidationError{"lethality.n", "must be >= 2"}
	}
	if l.TailPct <= 0 || l.TailPct >= 100 {
		return ValidationError{"lethality.tail_pct", "must be in (0, 100)"}
	}

	names := make(map[string]bool, len(l.Factors))
	for i, f := range l.Factors {
		field := fmt.Sprintf("lethality.factors[%d]", i)
		if f.Name == "" {
			return ValidationError{field + ".name", "required"}
		}
		if names[f.Name] {
			return ValidationError{field + ".name", fmt.Sprintf("duplicate factor %q", f.Name)}
		}
		names[f.Name] = true
		if f.Alpha <= 0 || f.Beta <= 0 {
			return ValidationError{field, "alpha and beta must be > 0"}
		}
	}
	return nil
}

// Warn checks recommended constraints (non-fatal)
func Warn(cfg *Config) []Warning {
	var warnings []Warning

	if cfg.Simulation.Seed == nil {
		warnings = append(warnings, Warning{
			Code:    "UNSEEDED",
			Message: "simulation.seed 없음: 실행마다 결과가 달라짐 (effective_seed로 재현 가능)",
		})
	}

	if cfg.Simulation.PathCount < 1000 {
		warnings = append(warnings, Warning{
			Code:    "LOW_PATH_COUNT",
			Message: "path_count < 1000: 꼬리 백분위수 추정 오차 큼",
		})
	}

	// 시뮬레이션 손실 샘플의 기대 초과 관측치 수
	if cfg.EVT.Enabled && cfg.EVT.Source == SourceSimulated {
		expected := float64(cfg.Simulation.PathCount) * (1 - cfg.EVT.ThresholdPct/100)
		if expected < float64(cfg.EVT.MinExceedances) {
			warnings = append(warnings, Warning{
				Code:    "THIN_TAIL_SAMPLE",
				Message: fmt.Sprintf("expected exceedances %.0f < min_exceedances %d", expected, cfg.EVT.MinExceedances),
			})
		}
	}

	return warnings
}

// === Helper Functions ===

func validateUnitOpen(v float64, field string) error {
	if !(v > 0 && v < 1) {
		return ValidationError{field, "must be in (0, 1)"}
	}
	return nil
}

func validateRanks(ranks []float64, field string) error {
	for i, r := range ranks {
		if !(r >= 0 && r <= 100) {
			return ValidationError{fmt.Sprintf("%s[%d]", field, i), "must be in [0, 100]"}
		}
	}
	return nil
}
