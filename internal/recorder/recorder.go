package recorder

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"parley/internal/domain"
	"parley/internal/elicit"
)

// Recorder writes engine outputs to the results ledger.
type Recorder struct {
	db *sql.DB
}

func New(db *sql.DB) *Recorder {
	return &Recorder{db: db}
}

// RecordEstimation stores one elicitation run and every estimated value and
// returns the run id.
func (r *Recorder) RecordEstimation(d *domain.Domain, rk *domain.BidRanking, fit *elicit.Fit) (string, error) {
	runID := uuid.NewString()

	var iterations *int
	if fit.Iterations >= 0 {
		iterations = &fit.Iterations
	}

	tx, err := r.db.Begin()
	if err != nil {
		return "", fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO estimation_runs (id, domain, solver, ranked_bids, low_utility, high_utility, total_slack, iterations)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, d.Name, fit.Solver, rk.Len(), rk.LowUtility(), rk.HighUtility(), fit.TotalSlack, iterations,
	)
	if err != nil {
		return "", fmt.Errorf("inserting estimation run: %w", err)
	}

	for _, is := range d.Issues() {
		for _, v := range is.Values {
			_, err := tx.Exec(`
				INSERT INTO estimated_values (run_id, issue_id, issue_name, value, weight, evaluation)
				VALUES (?, ?, ?, ?, ?, ?)`,
				runID, is.ID, is.Name, string(v), fit.Space.Weight(is.ID), fit.Space.Evaluation(is.ID, v),
			)
			if err != nil {
				return "", fmt.Errorf("inserting value %s/%s: %w", is.Name, v, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing estimation run: %w", err)
	}

	slog.Info("estimation recorded", "run_id", runID, "domain", d.Name)
	return runID, nil
}

// TurnRecord is one replayed opponent turn.
type TurnRecord struct {
	Turn       int
	Bid        domain.Bid
	Utility    float64
	Hardheaded *float64
	Weights    map[int]float64
}

// StartOpponentRun opens a replay run and returns its id.
func (r *Recorder) StartOpponentRun(domainName string, window int) (string, error) {
	runID := uuid.NewString()
	_, err := r.db.Exec(`
		INSERT INTO opponent_runs (id, domain, hardheaded_window) VALUES (?, ?, ?)`,
		runID, domainName, window,
	)
	if err != nil {
		return "", fmt.Errorf("inserting opponent run: %w", err)
	}
	return runID, nil
}

func (r *Recorder) RecordTurn(runID string, t TurnRecord) error {
	weights, err := json.Marshal(t.Weights)
	if err != nil {
		return fmt.Errorf("encoding weights: %w", err)
	}

	_, err = r.db.Exec(`
		INSERT INTO opponent_turns (run_id, turn, bid, utility, hardheaded, weights)
		VALUES (?, ?, ?, ?, ?, ?)`,
		runID, t.Turn, t.Bid.String(), t.Utility, t.Hardheaded, string(weights),
	)
	if err != nil {
		return fmt.Errorf("inserting turn %d: %w", t.Turn, err)
	}
	return nil
}

// FinishOpponentRun stores the turn count and the last hardheadedness signal,
// nil when the run never produced one.
func (r *Recorder) FinishOpponentRun(runID string, turns int, finalHardheaded *float64) error {
	_, err := r.db.Exec(`
		UPDATE opponent_runs SET turns = ?, final_hardheaded = ? WHERE id = ?`,
		turns, finalHardheaded, runID,
	)
	if err != nil {
		return fmt.Errorf("finishing opponent run: %w", err)
	}
	return nil
}
