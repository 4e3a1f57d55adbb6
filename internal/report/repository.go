package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound = errors.New("report not found")
	ErrNoStore  = errors.New("report store not configured")
)

// DBTX pgxpool.Pool / pgx.Tx / pgxmock 공통 인터페이스
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository handles report persistence
// ⭐ SSOT: risk.reports 저장/조회는 여기서만
type Repository struct {
	db DBTX
}

// NewRepository creates a new report repository
func NewRepository(db DBTX) *Repository {
	return &Repository{db: db}
}

// RunSummary 리포트 목록 행
type RunSummary struct {
	RunID         string    `json:"run_id"`
	ScenarioHash  string    `json:"scenario_hash"`
	GeneratedAt   time.Time `json:"generated_at"`
	EffectiveSeed int64     `json:"effective_seed"`
	ValueAtRisk   float64   `json:"value_at_risk"`
	TailVaR       *float64  `json:"tail_var,omitempty"`
	CapitalGap    *float64  `json:"capital_gap,omitempty"`
}

// Save inserts a report; run ids are unique so a replay is a no-op
func (r *Repository) Save(ctx context.Context, rep *Report) error {
	payload, err := json.Marshal(rep)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	var tailVaR, gap *float64
	if rep.Tail != nil && rep.Tail.Comparison != nil {
		v, g := rep.Tail.Comparison.TailVaR, rep.Tail.Comparison.CapitalGap
		tailVaR, gap = &v, &g
	}

	query := `
		INSERT INTO risk.reports (
			run_id, scenario_id, scenario_hash, generated_at, effective_seed,
			value_at_risk, tail_var, capital_gap, payload
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (run_id) DO NOTHING
	`

	_, err = r.db.Exec(ctx, query,
		rep.RunID, rep.ScenarioID, rep.ScenarioHash, rep.GeneratedAt, rep.Simulation.EffectiveSeed,
		rep.Simulation.Terminal.ValueAtRisk, tailVaR, gap, payload,
	)
	if err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}

	return nil
}

// Get retrieves a report by run id
func (r *Repository) Get(ctx context.Context, runID string) (*Report, error) {
	query := `
		SELECT payload
		FROM risk.reports
		WHERE run_id = $1
	`

	var payload []byte
	err := r.db.QueryRow(ctx, query, runID).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}

	var rep Report
	if err := json.Unmarshal(payload, &rep); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report: %w", err)
	}

	return &rep, nil
}

// ListByScenario retrieves the latest runs of a scenario (newest first)
func (r *Repository) ListByScenario(ctx context.Context, scenarioID string, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT run_id::text, scenario_hash, generated_at, effective_seed,
		       value_at_risk, tail_var, capital_gap
		FROM risk.reports
		WHERE scenario_id = $1
		ORDER BY generated_at DESC
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, scenarioID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var s RunSummary
		if err := rows.Scan(
			&s.RunID, &s.ScenarioHash, &s.GeneratedAt, &s.EffectiveSeed,
			&s.ValueAtRisk, &s.TailVaR, &s.CapitalGap,
		); err != nil {
			return nil, fmt.Errorf("failed to scan report row: %w", err)
		}
		out = append(out, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reports: %w", err)
	}

	return out, nil
}
