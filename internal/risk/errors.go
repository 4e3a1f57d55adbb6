package risk

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// 설정 오류
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// 통계적 퇴화 오류
	ErrEmptySample                = errors.New("empty sample")
	ErrNonFiniteSample            = errors.New("sample contains non-finite values")
	ErrDegenerateTail             = errors.New("degenerate tail")
	ErrInsufficientTailData       = errors.New("insufficient tail data")
	ErrFitDidNotConverge          = errors.New("gpd fit did not converge")
	ErrDegenerateShape            = errors.New("degenerate gpd shape")
	ErrUndefinedExpectedShortfall = errors.New("expected shortfall undefined for shape >= 1")
)

// ConfigError 범위를 벗어난 입력 (필드명 + 값)
type ConfigError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s=%v: %s", ErrInvalidConfiguration, e.Field, e.Value, e.Reason)
}

func (e *ConfigError) Unwrap() error {
	return ErrInvalidConfiguration
}

func configErr(field string, value any, reason string) error {
	return &ConfigError{Field: field, Value: value, Reason: reason}
}

// StatError 통계적 전제 조건 위반, 원인 파라미터 포함
type StatError struct {
	Op     string
	Kind   error
	Params map[string]float64
}

func (e *StatError) Error() string {
	keys := make([]string, 0, len(e.Params))
	for k := range e.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%g", k, e.Params[k]))
	}
	return fmt.Sprintf("%s: %s (%s)", e.Op, e.Kind, strings.Join(parts, ", "))
}

func (e *StatError) Unwrap() error {
	return e.Kind
}

func statErr(op string, kind error, params map[string]float64) error {
	return &StatError{Op: op, Kind: kind, Params: params}
}

// IsConfigError 호출자 입력 오류 여부
func IsConfigError(err error) bool {
	return errors.Is(err, ErrInvalidConfiguration)
}

// IsDegeneracy 통계적 퇴화 오류 여부
func IsDegeneracy(err error) bool {
	for _, kind := range []error{
		ErrEmptySample,
		ErrNonFiniteSample,
		ErrDegenerateTail,
		ErrInsufficientTailData,
		ErrFitDidNotConverge,
		ErrDegenerateShape,
		ErrUndefinedExpectedShortfall,
	} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}
