package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/wonny/tailrisk/internal/report"
	"github.com/wonny/tailrisk/internal/risk"
	"github.com/wonny/tailrisk/internal/scheduler"
)

// ═══════════════════════════════════════════════════════════
// Common Formatting Utilities
// 모든 커맨드가 동일한 출력 포맷을 사용하도록 통일
// ═══════════════════════════════════════════════════════════

// PrintHeader prints a formatted command header
func PrintHeader(w io.Writer, title string, fields ...[2]string) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "═══════════════════════════════════════════════════════════")
	fmt.Fprintf(w, "  %s\n", title)
	if len(fields) > 0 {
		fmt.Fprintln(w, "───────────────────────────────────────────────────────────")
		for _, f := range fields {
			fmt.Fprintf(w, "  %-10s: %s\n", f[0], f[1])
		}
	}
	fmt.Fprintln(w, "═══════════════════════════════════════════════════════════")
}

// PrintWarning prints a warning message
func PrintWarning(w io.Writer, message string) {
	fmt.Fprintf(w, "⚠️  %s\n", message)
}

// PrintSuccess prints a success message
func PrintSuccess(w io.Writer, message string) {
	fmt.Fprintf(w, "✅ %s\n", message)
}

// PrintError prints an error message
func PrintError(w io.Writer, message string) {
	fmt.Fprintf(w, "❌ %s\n", message)
}

// printJSON --output json
func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// newTable go-pretty 테이블 (rounded box, 숫자 열 우측 정렬)
func newTable(w io.Writer, title string, header table.Row) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.Style().Title.Align = text.AlignCenter
	if title != "" {
		t.SetTitle(title)
	}
	t.AppendHeader(header)

	configs := make([]table.ColumnConfig, 0, len(header))
	for i := 2; i <= len(header); i++ {
		configs = append(configs, table.ColumnConfig{Number: i, Align: text.AlignRight})
	}
	t.SetColumnConfigs(configs)
	return t
}

func f4(v float64) string {
	return fmt.Sprintf("%.4f", v)
}

func optF4(v *float64) string {
	if v == nil {
		return "-"
	}
	return f4(*v)
}

// =============================================================================
// Renderers
// =============================================================================

// renderSummary VaR/CVaR + 백분위수
func renderSummary(w io.Writer, title string, s risk.RiskSummary) {
	t := newTable(w, title, table.Row{"Metric", "Value"})
	t.AppendRows([]table.Row{
		{"tail", string(s.Tail)},
		{"confidence", f4(s.ConfidenceLevel)},
		{"VaR", f4(s.ValueAtRisk)},
		{"CVaR", f4(s.ConditionalValueAtRisk)},
		{"mean", f4(s.Mean)},
		{"std dev", f4(s.StdDev)},
		{"count", s.Count},
		{"tail count", s.TailCount},
	})
	t.AppendSeparator()
	for _, p := range s.Percentiles {
		t.AppendRow(table.Row{fmt.Sprintf("p%g", p.Rank), f4(p.Value)})
	}
	t.Render()
}

// renderPercentiles 임의 rank 백분위수
func renderPercentiles(w io.Writer, title string, points []risk.PercentilePoint) {
	t := newTable(w, title, table.Row{"Rank", "Value"})
	for _, p := range points {
		t.AppendRow(table.Row{fmt.Sprintf("p%g", p.Rank), f4(p.Value)})
	}
	t.Render()
}

// renderCone 시점별 밴드 (every 간격으로 샘플링, 마지막 시점 포함)
func renderCone(w io.Writer, bands []risk.ConeBand, every int) {
	if len(bands) == 0 {
		return
	}
	if every < 1 {
		every = 1
	}

	header := table.Row{"Step", "Time"}
	for _, p := range bands[0].Percentiles {
		header = append(header, fmt.Sprintf("p%g", p.Rank))
	}
	t := newTable(w, "Uncertainty Cone", header)

	for i, b := range bands {
		if i%every != 0 && i != len(bands)-1 {
			continue
		}
		row := table.Row{b.Step, f4(b.Time)}
		for _, p := range b.Percentiles {
			row = append(row, f4(p.Value))
		}
		t.AppendRow(row)
	}
	t.Render()
}

// renderFit GPD 파라미터
func renderFit(w io.Writer, fit risk.GPDFit) {
	t := newTable(w, "GPD Fit ("+string(fit.Method)+")", table.Row{"Parameter", "Value"})
	t.AppendRows([]table.Row{
		{"shape ξ", f4(fit.Shape)},
		{"scale σ", f4(fit.Scale)},
		{"threshold u", f4(fit.Threshold)},
		{"exceedances", fmt.Sprintf("%d / %d", fit.ExceedanceCount, fit.SampleSize)},
		{"P(X > u)", f4(fit.ExceedanceProbability)},
		{"log-likelihood", f4(fit.LogLikelihood)},
	})
	t.Render()
}

// renderComparison 정규 vs EVT
func renderComparison(w io.Writer, cmp *risk.TailComparison) {
	t := newTable(w, fmt.Sprintf("Normal vs EVT @ %.2f%%", cmp.Confidence*100), table.Row{"Method", "VaR", "ES"})
	t.AppendRows([]table.Row{
		{"empirical", f4(cmp.Empirical.ValueAtRisk), f4(cmp.Empirical.ConditionalValueAtRisk)},
		{"normal", f4(cmp.NormalVaR), f4(cmp.NormalES)},
		{"EVT (GPD)", f4(cmp.TailVaR), f4(cmp.TailES)},
	})
	t.AppendFooter(table.Row{"capital gap", f4(cmp.CapitalGap), ""})
	t.Render()

	renderFit(w, cmp.Fit)
}

// renderLethality 꼬리 vs 본체 인자 평균
func renderLethality(w io.Writer, res *risk.LethalityResult) {
	t := newTable(w, fmt.Sprintf("Lethality Index (threshold %.6f)", res.Threshold), table.Row{"Factor", "Tail Mean", "Body Mean"})
	for _, f := range res.Factors {
		t.AppendRow(table.Row{f.Name, f4(f.TailMean), f4(f.BodyMean)})
	}
	t.AppendFooter(table.Row{"count", res.TailCount, res.BodyCount})
	t.Render()
}

// renderReport 리포트 전체
func renderReport(w io.Writer, rep *report.Report) {
	PrintHeader(w, "Risk Report",
		[2]string{"Run ID", rep.RunID},
		[2]string{"Scenario", rep.ScenarioID},
		[2]string{"Hash", shortHash(rep.ScenarioHash)},
		[2]string{"Seed", fmt.Sprintf("%d", rep.Simulation.EffectiveSeed)},
		[2]string{"Generated", rep.GeneratedAt.Format("2006-01-02 15:04:05")},
	)

	renderSummary(w, "Terminal Value", rep.Simulation.Terminal)
	if rep.Tail != nil && rep.Tail.Comparison != nil {
		fmt.Fprintf(w, "\nTail source: %s (n=%d)\n", rep.Tail.Source, rep.Tail.SampleSize)
		renderComparison(w, rep.Tail.Comparison)
	}
	if rep.Lethality != nil {
		renderLethality(w, rep.Lethality)
	}
	if rep.LimitCheck != nil {
		if rep.LimitCheck.Passed {
			PrintSuccess(w, "Risk limits passed")
		} else {
			PrintError(w, "Risk limits violated: "+strings.Join(rep.LimitCheck.Violations, "; "))
		}
	}
	for _, warn := range rep.Warnings {
		PrintWarning(w, fmt.Sprintf("[%s] %s", warn.Code, warn.Message))
	}
}

// renderRuns 저장된 리포트 목록
func renderRuns(w io.Writer, scenarioID string, runs []report.RunSummary) {
	t := newTable(w, "Reports: "+scenarioID, table.Row{"Run ID", "Generated", "Seed", "VaR", "EVT VaR", "Capital Gap"})
	for _, r := range runs {
		t.AppendRow(table.Row{
			r.RunID,
			r.GeneratedAt.Format("2006-01-02 15:04:05"),
			r.EffectiveSeed,
			f4(r.ValueAtRisk),
			optF4(r.TailVaR),
			optF4(r.CapitalGap),
		})
	}
	t.Render()
}

// renderJobs 스케줄러 작업 상태
func renderJobs(w io.Writer, names []string, stats map[string]scheduler.JobStats) {
	t := newTable(w, "Scheduled Jobs", table.Row{"Job", "Schedule", "Runs", "Success Rate", "Last Run ID"})
	for _, name := range names {
		s := stats[name]
		t.AppendRow(table.Row{name, s.Schedule, s.TotalRuns, fmt.Sprintf("%.0f%%", s.SuccessRate*100), s.LastRunID})
	}
	t.Render()
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
