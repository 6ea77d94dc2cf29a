package report

import (
	"log/slog"
)

// LogReport logs the ledger report as structured JSON.
func LogReport(r *Report) {
	slog.Info("=== LEDGER REPORT ===",
		"estimation_runs", r.EstimationRuns,
		"consistent_runs", r.ConsistentRuns,
		"avg_total_slack", r.AvgTotalSlack,
		"max_total_slack", r.MaxTotalSlack,
		"opponent_runs", r.OpponentRuns,
		"opponent_turns", r.OpponentTurns,
		"signalled_runs", r.SignalledRuns,
		"avg_final_hardheaded", r.AvgFinalHardheaded,
	)

	for name, stats := range r.SolverStats {
		attrs := []any{
			"solver", name,
			"runs", stats.Runs,
			"avg_total_slack", stats.AvgTotalSlack,
		}
		if stats.CountedRuns > 0 {
			attrs = append(attrs, "avg_iterations", stats.AvgIterations)
		}
		slog.Info("solver performance", attrs...)
	}
}
