package recorder

import (
	"database/sql"
	"testing"

	"parley/internal/db"
	"parley/internal/domain"
	"parley/internal/elicit"
	"parley/internal/lp"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	database, err := db.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { database.Close() })
	if err := db.Migrate(database); err != nil {
		t.Fatal(err)
	}
	return database
}

func TestRecordEstimation(t *testing.T) {
	database := openTestDB(t)

	d, err := domain.New("ab", []domain.Issue{
		{ID: 1, Name: "A", Values: []domain.Value{"a1", "a2"}},
		{ID: 2, Name: "B", Values: []domain.Value{"b1", "b2", "b3"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	rk, err := domain.NewRanking([]domain.Bid{
		domain.NewBid(map[int]domain.Value{1: "a1", 2: "b1"}),
		domain.NewBid(map[int]domain.Value{1: "a2", 2: "b3"}),
	}, 0.1, 1)
	if err != nil {
		t.Fatal(err)
	}
	fit, err := elicit.NewEstimator(nil).Fit(d, rk)
	if err != nil {
		t.Fatal(err)
	}

	runID, err := New(database).RecordEstimation(d, rk, fit)
	if err != nil {
		t.Fatal(err)
	}
	if runID == "" {
		t.Fatal("expected a run id")
	}

	var solver string
	var ranked int
	row := database.QueryRow(`SELECT solver, ranked_bids FROM estimation_runs WHERE id = ?`, runID)
	if err := row.Scan(&solver, &ranked); err != nil {
		t.Fatal(err)
	}
	if solver != "gonum" {
		t.Errorf("expected solver gonum, got %s", solver)
	}
	if ranked != 2 {
		t.Errorf("expected 2 ranked bids, got %d", ranked)
	}

	var values int
	row = database.QueryRow(`SELECT COUNT(*) FROM estimated_values WHERE run_id = ?`, runID)
	if err := row.Scan(&values); err != nil {
		t.Fatal(err)
	}
	if values != 5 {
		t.Errorf("expected one row per issue value (5), got %d", values)
	}

	// gonum does not count pivots; the tableau backend does.
	var iterations sql.NullInt64
	row = database.QueryRow(`SELECT iterations FROM estimation_runs WHERE id = ?`, runID)
	if err := row.Scan(&iterations); err != nil {
		t.Fatal(err)
	}
	if iterations.Valid {
		t.Errorf("expected NULL iterations for gonum, got %d", iterations.Int64)
	}

	fit, err = elicit.NewEstimator(lp.NewTableau(0, 0)).Fit(d, rk)
	if err != nil {
		t.Fatal(err)
	}
	runID, err = New(database).RecordEstimation(d, rk, fit)
	if err != nil {
		t.Fatal(err)
	}
	row = database.QueryRow(`SELECT iterations FROM estimation_runs WHERE id = ?`, runID)
	if err := row.Scan(&iterations); err != nil {
		t.Fatal(err)
	}
	if !iterations.Valid || iterations.Int64 <= 0 {
		t.Errorf("expected counted tableau iterations, got %+v", iterations)
	}
}

func TestOpponentRunLifecycle(t *testing.T) {
	database := openTestDB(t)
	rec := New(database)

	runID, err := rec.StartOpponentRun("holiday", 3)
	if err != nil {
		t.Fatal(err)
	}

	h := 0.75
	turns := []TurnRecord{
		{Turn: 1, Bid: domain.NewBid(map[int]domain.Value{1: "x"}), Utility: 1, Weights: map[int]float64{1: 1}},
		{Turn: 2, Bid: domain.NewBid(map[int]domain.Value{1: "x"}), Utility: 1, Hardheaded: &h, Weights: map[int]float64{1: 1}},
	}
	for _, tr := range turns {
		if err := rec.RecordTurn(runID, tr); err != nil {
			t.Fatal(err)
		}
	}
	if err := rec.FinishOpponentRun(runID, len(turns), &h); err != nil {
		t.Fatal(err)
	}

	var count int
	row := database.QueryRow(`SELECT COUNT(*) FROM opponent_turns WHERE run_id = ? AND hardheaded IS NULL`, runID)
	if err := row.Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("expected 1 turn without signal, got %d", count)
	}

	var stored int
	var final sql.NullFloat64
	row = database.QueryRow(`SELECT turns, final_hardheaded FROM opponent_runs WHERE id = ?`, runID)
	if err := row.Scan(&stored, &final); err != nil {
		t.Fatal(err)
	}
	if stored != 2 || !final.Valid || final.Float64 != 0.75 {
		t.Errorf("unexpected run summary: turns=%d final=%v", stored, final)
	}
}
