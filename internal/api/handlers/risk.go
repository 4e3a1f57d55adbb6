package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/wonny/tailrisk/internal/report"
	"github.com/wonny/tailrisk/internal/risk"
	"github.com/wonny/tailrisk/internal/scenario"
)

// RiskHandler handles risk API endpoints
// ⭐ SSOT: 리스크 API 핸들러는 이 구조체에서만
type RiskHandler struct {
	engine   *risk.Engine
	reporter *report.Reporter
	maxCells int
	log      zerolog.Logger
}

// NewRiskHandler creates a new risk handler
func NewRiskHandler(engine *risk.Engine, reporter *report.Reporter, maxCells int, log zerolog.Logger) *RiskHandler {
	return &RiskHandler{
		engine:   engine,
		reporter: reporter,
		maxCells: maxCells,
		log:      log,
	}
}

// =============================================================================
// Simulation
// =============================================================================

// SimulateRequest POST /api/simulate
type SimulateRequest struct {
	Config       risk.SimulationConfig `json:"config"`
	Confidence   float64               `json:"confidence"`
	ConeRanks    []float64             `json:"cone_ranks,omitempty"`
	IncludePaths bool                  `json:"include_paths,omitempty"`
}

// SimulateResponse 시뮬레이션 결과
type SimulateResponse struct {
	EffectiveSeed int64            `json:"effective_seed"`
	Terminal      risk.RiskSummary `json:"terminal"`
	Cone          []risk.ConeBand  `json:"cone"`
	Paths         [][]float64      `json:"paths,omitempty"`
}

// Simulate runs a path ensemble
// POST /api/simulate
func (h *RiskHandler) Simulate(w http.ResponseWriter, r *http.Request) {
	var req SimulateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Confidence == 0 {
		req.Confidence = 0.95
	}

	if err := risk.ValidateSimulationConfig(req.Config); err != nil {
		respondRiskError(w, err)
		return
	}
	if req.Config.PathCount > h.maxCells/req.Config.HorizonSteps {
		respondJSON(w, http.StatusBadRequest, ErrorResponse{
			Error: "path_count * horizon_steps exceeds server limit",
			Kind:  "invalid_configuration",
			Field: "path_count",
		})
		return
	}

	ensemble, err := h.engine.Simulate(req.Config)
	if err != nil {
		respondRiskError(w, err)
		return
	}

	terminal, err := h.engine.SummarizeTerminal(ensemble, req.Confidence)
	if err != nil {
		respondRiskError(w, err)
		return
	}

	resp := SimulateResponse{
		EffectiveSeed: ensemble.EffectiveSeed,
		Terminal:      terminal,
		Cone:          ensemble.Cone(req.ConeRanks),
	}
	if req.IncludePaths {
		resp.Paths = ensemble.Paths
	}

	respondJSON(w, http.StatusOK, resp)
}

// =============================================================================
// Summary
// =============================================================================

// SummarizeRequest POST /api/summarize
type SummarizeRequest struct {
	Sample     []float64 `json:"sample"`
	Confidence float64   `json:"confidence"`
	Tail       risk.Tail `json:"tail"` // upper(손실) | lower(가치), 기본 upper
	Ranks      []float64 `json:"ranks,omitempty"`
}

// SummarizeResponse 요약 + 추가 백분위수
type SummarizeResponse struct {
	Summary     risk.RiskSummary       `json:"summary"`
	Percentiles []risk.PercentilePoint `json:"percentiles,omitempty"`
}

// Summarize computes VaR/CVaR and percentiles of a sample
// POST /api/summarize
func (h *RiskHandler) Summarize(w http.ResponseWriter, r *http.Request) {
	var req SummarizeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	var (
		summary risk.RiskSummary
		err     error
	)
	switch req.Tail {
	case "", risk.TailUpper:
		summary, err = risk.Summarize(req.Sample, req.Confidence)
	case risk.TailLower:
		summary, err = risk.SummarizeValues(req.Sample, req.Confidence)
	default:
		respondJSON(w, http.StatusBadRequest, ErrorResponse{
			Error: "tail must be upper or lower",
			Kind:  "invalid_configuration",
			Field: "tail",
		})
		return
	}
	if err != nil {
		respondRiskError(w, err)
		return
	}

	resp := SummarizeResponse{Summary: summary}
	if len(req.Ranks) > 0 {
		points, err := risk.Percentiles(req.Sample, req.Ranks)
		if err != nil {
			respondRiskError(w, err)
			return
		}
		resp.Percentiles = points
	}

	respondJSON(w, http.StatusOK, resp)
}

// =============================================================================
// EVT
// =============================================================================

// FitRequest POST /api/evt/fit
// Threshold가 없으면 ThresholdPct 백분위수로 선택
type FitRequest struct {
	Losses           []float64      `json:"losses"`
	Threshold        *float64       `json:"threshold,omitempty"`
	ThresholdPct     float64        `json:"threshold_pct,omitempty"`
	MinExceedances   int            `json:"min_exceedances,omitempty"`
	Method           risk.FitMethod `json:"method,omitempty"`
	TargetConfidence float64        `json:"target_confidence,omitempty"`
}

// FitResponse GPD 적합 결과 (+ 선택적 꼬리 VaR/ES)
type FitResponse struct {
	Fit     risk.GPDFit `json:"fit"`
	TailVaR *float64    `json:"tail_var,omitempty"`
	TailES  *float64    `json:"tail_es,omitempty"`
}

// FitGPD fits a generalized Pareto tail
// POST /api/evt/fit
func (h *RiskHandler) FitGPD(w http.ResponseWriter, r *http.Request) {
	var req FitRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	cal := h.calibrator(req.ThresholdPct, req.MinExceedances, 0)

	var threshold float64
	if req.Threshold != nil {
		threshold = *req.Threshold
	} else {
		u, err := cal.SelectThreshold(req.Losses)
		if err != nil {
			respondRiskError(w, err)
			return
		}
		threshold = u
	}

	var (
		fit risk.GPDFit
		err error
	)
	switch req.Method {
	case "", risk.FitMLE:
		fit, _, err = risk.FitGPD(req.Losses, threshold)
	case risk.FitPWM:
		fit, _, err = risk.FitGPDPWM(req.Losses, threshold)
	default:
		respondJSON(w, http.StatusBadRequest, ErrorResponse{
			Error: "method must be mle or pwm",
			Kind:  "invalid_configuration",
			Field: "method",
		})
		return
	}
	if err != nil {
		respondRiskError(w, err)
		return
	}

	resp := FitResponse{Fit: fit}
	if req.TargetConfidence > 0 {
		v, err := risk.TailVaR(fit, req.TargetConfidence, len(req.Losses))
		if err != nil {
			respondRiskError(w, err)
			return
		}
		resp.TailVaR = &v

		// ξ >= 1이면 ES 없음: VaR만 반환
		if es, err := risk.TailES(fit, v); err == nil {
			resp.TailES = &es
		}
	}

	respondJSON(w, http.StatusOK, resp)
}

// CompareRequest POST /api/evt/compare
type CompareRequest struct {
	Losses         []float64 `json:"losses"`
	ThresholdPct   float64   `json:"threshold_pct,omitempty"`
	MinExceedances int       `json:"min_exceedances,omitempty"`
	Confidence     float64   `json:"confidence,omitempty"`
}

// Compare returns normal vs EVT VaR/ES and the capital gap
// POST /api/evt/compare
func (h *RiskHandler) Compare(w http.ResponseWriter, r *http.Request) {
	var req CompareRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	cmp, err := h.calibrator(req.ThresholdPct, req.MinExceedances, req.Confidence).Compare(req.Losses)
	if err != nil {
		respondRiskError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, cmp)
}

// calibrator 요청 값이 0이면 엔진 기본값
func (h *RiskHandler) calibrator(pct float64, minExc int, confidence float64) risk.Calibrator {
	c := h.engine.Calibrator()
	if pct != 0 {
		c.ThresholdPercentile = pct
	}
	if minExc != 0 {
		c.MinExceedances = minExc
	}
	if confidence != 0 {
		c.Confidence = confidence
	}
	return c
}

// =============================================================================
// Reports
// =============================================================================

// CreateReport generates a report from a scenario body (JSON or YAML)
// POST /api/reports
func (h *RiskHandler) CreateReport(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read body")
		return
	}

	cfg, err := scenario.Parse(body)
	if err != nil {
		var verr scenario.ValidationError
		if errors.As(err, &verr) {
			respondRiskError(w, err)
			return
		}
		respondError(w, http.StatusBadRequest, "invalid scenario: "+err.Error())
		return
	}
	if cfg.Simulation.Cells() > h.maxCells {
		respondJSON(w, http.StatusBadRequest, ErrorResponse{
			Error: "path_count * horizon_steps exceeds server limit",
			Kind:  "invalid_scenario",
			Field: "simulation.path_count",
		})
		return
	}

	rep, err := h.reporter.Run(r.Context(), cfg)
	if err != nil {
		h.log.Error().Err(err).Str("scenario_id", cfg.Meta.ScenarioID).Msg("report generation failed")
		respondRiskError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, rep)
}

// GetReport returns a stored report
// GET /api/reports/{id}
func (h *RiskHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, err := uuid.Parse(id); err != nil {
		respondError(w, http.StatusBadRequest, "id must be a uuid")
		return
	}

	rep, err := h.reporter.Get(r.Context(), id)
	if err != nil {
		respondRiskError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, rep)
}
