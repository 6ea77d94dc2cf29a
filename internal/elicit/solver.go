package elicit

import (
	"fmt"

	"parley/internal/config"
	"parley/internal/lp"
)

// NewSolver builds the LP backend named in cfg.
func NewSolver(cfg config.EstimationConfig) (lp.Solver, error) {
	switch cfg.Solver {
	case "", "gonum":
		return lp.NewGonum(cfg.Tolerance), nil
	case "tableau":
		return lp.NewTableau(cfg.MaxIterations, cfg.Tolerance), nil
	default:
		return nil, fmt.Errorf("unknown solver %q", cfg.Solver)
	}
}

// NewFromConfig returns an Estimator backed by the configured solver.
func NewFromConfig(cfg config.EstimationConfig) (*Estimator, error) {
	solver, err := NewSolver(cfg)
	if err != nil {
		return nil, err
	}
	return NewEstimator(solver), nil
}
