package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/wonny/tailrisk/internal/report"
	"github.com/wonny/tailrisk/internal/risk"
	"github.com/wonny/tailrisk/internal/scenario"
)

// maxBodyBytes 요청 본문 상한 (샘플 배열 포함)
const maxBodyBytes = 32 << 20

// ErrorResponse 오류 응답 본문
type ErrorResponse struct {
	Error  string             `json:"error"`
	Kind   string             `json:"kind,omitempty"`
	Field  string             `json:"field,omitempty"`
	Params map[string]float64 `json:"params,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, ErrorResponse{Error: message})
}

// respondRiskError 오류 종류별 상태 코드
// 설정 오류 400, 통계적 퇴화 422, 나머지 500
func respondRiskError(w http.ResponseWriter, err error) {
	var (
		cerr *risk.ConfigError
		serr *risk.StatError
		verr scenario.ValidationError
	)

	switch {
	case errors.As(err, &cerr):
		respondJSON(w, http.StatusBadRequest, ErrorResponse{
			Error: err.Error(),
			Kind:  "invalid_configuration",
			Field: cerr.Field,
		})
	case errors.As(err, &verr):
		respondJSON(w, http.StatusBadRequest, ErrorResponse{
			Error: err.Error(),
			Kind:  "invalid_scenario",
			Field: verr.Field,
		})
	case errors.As(err, &serr):
		respondJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error:  err.Error(),
			Kind:   serr.Kind.Error(),
			Params: serr.Params,
		})
	case errors.Is(err, report.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, report.ErrNoStore):
		respondError(w, http.StatusServiceUnavailable, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}

// decodeJSON strict JSON decode (unknown fields rejected)
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}
