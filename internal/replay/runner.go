package replay

import (
	"errors"
	"fmt"
	"log/slog"

	"parley/internal/domain"
	"parley/internal/opponent"
	"parley/internal/recorder"
)

// Runner feeds a recorded opponent trace through a fresh opponent model one
// bid at a time, the way a negotiation session would.
type Runner struct {
	window   int
	recorder *recorder.Recorder
}

// NewRunner replays with the given hardheadedness window. rec may be nil.
func NewRunner(window int, rec *recorder.Recorder) *Runner {
	return &Runner{window: window, recorder: rec}
}

// Turn is the model state observed right after one opponent bid.
type Turn struct {
	Index      int
	Bid        domain.Bid
	Utility    float64
	Hardheaded float64
	HasSignal  bool
}

type Summary struct {
	RunID string
	Turns []Turn
	Model *opponent.Model
}

// Final returns the last hardheadedness signal, if any turn produced one.
func (s *Summary) Final() (float64, bool) {
	for i := len(s.Turns) - 1; i >= 0; i-- {
		if s.Turns[i].HasSignal {
			return s.Turns[i].Hardheaded, true
		}
	}
	return 0, false
}

// Run replays trace. The first bid doubles as the model's issue template.
func (r *Runner) Run(domainName string, trace []domain.Bid) (*Summary, error) {
	if len(trace) == 0 {
		return nil, errors.New("empty trace")
	}

	model, err := opponent.NewModel(trace[0])
	if err != nil {
		return nil, fmt.Errorf("creating opponent model: %w", err)
	}

	summary := &Summary{Model: model, Turns: make([]Turn, 0, len(trace))}

	if r.recorder != nil {
		runID, err := r.recorder.StartOpponentRun(domainName, r.window)
		if err != nil {
			return nil, err
		}
		summary.RunID = runID
	}

	slog.Info("replay starting", "domain", domainName, "bids", len(trace), "window", r.window)

	for i, b := range trace {
		if err := model.AddBid(b); err != nil {
			return nil, fmt.Errorf("turn %d: %w", i+1, err)
		}

		u := model.Utility(b)
		model.AddUtilityHistory(u)
		h, ok := model.Hardheaded(r.window)

		turn := Turn{Index: i + 1, Bid: b, Utility: u, Hardheaded: h, HasSignal: ok}
		summary.Turns = append(summary.Turns, turn)

		slog.Debug("opponent turn",
			"turn", turn.Index,
			"bid", b.String(),
			"utility", u,
			"hardheaded", h,
			"has_signal", ok,
		)

		if r.recorder != nil {
			rec := recorder.TurnRecord{
				Turn:    turn.Index,
				Bid:     b,
				Utility: u,
				Weights: model.Weights(),
			}
			if ok {
				rec.Hardheaded = &h
			}
			if err := r.recorder.RecordTurn(summary.RunID, rec); err != nil {
				slog.Warn("failed to record turn", "turn", turn.Index, "error", err)
			}
		}
	}

	var final *float64
	if h, ok := summary.Final(); ok {
		final = &h
	}
	if r.recorder != nil {
		if err := r.recorder.FinishOpponentRun(summary.RunID, len(trace), final); err != nil {
			slog.Warn("failed to finish opponent run", "run_id", summary.RunID, "error", err)
		}
	}

	slog.Info("=== REPLAY RESULTS ===",
		"domain", domainName,
		"turns", len(trace),
		"weights", model.Weights(),
		"final_hardheaded", final,
	)
	return summary, nil
}
