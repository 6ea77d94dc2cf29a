package report

import (
	"database/sql"
	"fmt"
)

// consistentSlack is the total slack below which a ranking counts as fully
// explained by its estimated space.
const consistentSlack = 1e-6

// Tracker aggregates the results ledger.
type Tracker struct {
	db *sql.DB
}

func NewTracker(db *sql.DB) *Tracker {
	return &Tracker{db: db}
}

// Report summarizes every recorded estimation and replay run.
type Report struct {
	EstimationRuns     int
	ConsistentRuns     int
	AvgTotalSlack      float64
	MaxTotalSlack      float64
	OpponentRuns       int
	OpponentTurns      int
	SignalledRuns      int
	AvgFinalHardheaded float64
	SolverStats        map[string]SolverStats
}

// SolverStats contains per-solver estimation figures.
type SolverStats struct {
	Runs          int
	AvgTotalSlack float64
	// CountedRuns is the number of runs whose backend reported pivots;
	// AvgIterations averages over those runs only.
	CountedRuns   int
	AvgIterations float64
}

// Generate computes the full report.
func (t *Tracker) Generate() (*Report, error) {
	r := &Report{
		SolverStats: make(map[string]SolverStats),
	}

	if err := t.computeEstimation(r); err != nil {
		return nil, fmt.Errorf("computing estimation stats: %w", err)
	}
	if err := t.computeSolverStats(r); err != nil {
		return nil, fmt.Errorf("computing solver stats: %w", err)
	}
	if err := t.computeOpponent(r); err != nil {
		return nil, fmt.Errorf("computing opponent stats: %w", err)
	}

	return r, nil
}

func (t *Tracker) computeEstimation(r *Report) error {
	row := t.db.QueryRow(`
		SELECT COUNT(*), COALESCE(AVG(total_slack), 0), COALESCE(MAX(total_slack), 0),
		       COALESCE(SUM(CASE WHEN total_slack < ? THEN 1 ELSE 0 END), 0)
		FROM estimation_runs`, consistentSlack)
	return row.Scan(&r.EstimationRuns, &r.AvgTotalSlack, &r.MaxTotalSlack, &r.ConsistentRuns)
}

func (t *Tracker) computeSolverStats(r *Report) error {
	rows, err := t.db.Query(`
		SELECT solver, COUNT(*), COALESCE(AVG(total_slack), 0),
		       COUNT(iterations), COALESCE(AVG(iterations), 0)
		FROM estimation_runs GROUP BY solver`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		var stats SolverStats
		if err := rows.Scan(&name, &stats.Runs, &stats.AvgTotalSlack, &stats.CountedRuns, &stats.AvgIterations); err != nil {
			return err
		}
		r.SolverStats[name] = stats
	}
	return rows.Err()
}

func (t *Tracker) computeOpponent(r *Report) error {
	row := t.db.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(turns), 0),
		       COUNT(final_hardheaded), COALESCE(AVG(final_hardheaded), 0)
		FROM opponent_runs`)
	return row.Scan(&r.OpponentRuns, &r.OpponentTurns, &r.SignalledRuns, &r.AvgFinalHardheaded)
}
