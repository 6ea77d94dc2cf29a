// Package elicit reconstructs an additive utility space from a ranking of
// previously evaluated bids by linear programming.
//
// Each (issue, value) pair gets a non-negative value-utility variable and
// each adjacent pair of the ranking a non-negative slack variable. The
// program minimizes total slack subject to "the better bid is worth at
// least as much as the worse one, plus slack", and two equalities pin the
// summed value-utilities of the best and worst bid to the declared bounds.
package elicit

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"parley/internal/domain"
	"parley/internal/lp"
	"parley/internal/utilspace"
)

var ErrDegenerate = errors.New("estimation produced a degenerate utility space")

// Estimator builds and solves the elicitation program. An Estimator keeps no
// state between calls.
type Estimator struct {
	solver lp.Solver
}

// NewEstimator uses solver, or gonum's simplex when solver is nil.
func NewEstimator(solver lp.Solver) *Estimator {
	if solver == nil {
		solver = lp.NewGonum(lp.DefaultTolerance)
	}
	return &Estimator{solver: solver}
}

func (e *Estimator) SolverName() string { return e.solver.Name() }

// Fit is the estimated space together with solver diagnostics.
type Fit struct {
	Space *utilspace.Additive
	// Slack holds the violation absorbed by each adjacent comparison, worst
	// pair first.
	Slack      []float64
	TotalSlack float64
	// Iterations is lp.UncountedIterations when the backend does not count
	// pivots.
	Iterations int
	Solver     string
}

// Estimate returns the additive utility space most consistent with r.
func (e *Estimator) Estimate(d *domain.Domain, r *domain.BidRanking) (*utilspace.Additive, error) {
	fit, err := e.Fit(d, r)
	if err != nil {
		return nil, err
	}
	return fit.Space, nil
}

// Fit runs the estimation and keeps the per-comparison slack.
func (e *Estimator) Fit(d *domain.Domain, r *domain.BidRanking) (*Fit, error) {
	if d == nil || d.NumIssues() == 0 {
		return nil, domain.ErrEmptyDomain
	}
	if r == nil || r.Len() < 2 {
		return nil, domain.ErrRankingTooShort
	}
	if err := r.ValidateAgainst(d); err != nil {
		return nil, fmt.Errorf("validating ranking: %w", err)
	}

	lay := newLayout(d, r.Len()-1)
	prob := buildProblem(d, r, lay)

	sol, err := e.solver.Solve(prob)
	if err != nil {
		return nil, fmt.Errorf("solving elicitation program with %s: %w", e.solver.Name(), err)
	}

	space, err := buildSpace(d, lay, sol.X)
	if err != nil {
		return nil, err
	}

	fit := &Fit{
		Space:      space,
		Slack:      make([]float64, lay.slacks),
		Iterations: sol.Iterations,
		Solver:     e.solver.Name(),
	}
	for i := range fit.Slack {
		s := math.Max(0, sol.X[lay.slack(i)])
		fit.Slack[i] = s
		fit.TotalSlack += s
	}

	slog.Debug("utility space estimated",
		"domain", d.Name,
		"issues", d.NumIssues(),
		"variables", lay.size(),
		"ranked_bids", r.Len(),
		"total_slack", fit.TotalSlack,
		"solver", fit.Solver,
	)
	return fit, nil
}

// layout places value-utility variables issue-major, value-minor in the
// domain's enumeration order, followed by one slack per comparison.
type layout struct {
	offsets []int
	values  int
	slacks  int
}

func newLayout(d *domain.Domain, comparisons int) layout {
	lay := layout{offsets: make([]int, d.NumIssues()), slacks: comparisons}
	for pos, is := range d.Issues() {
		lay.offsets[pos] = lay.values
		lay.values += len(is.Values)
	}
	return lay
}

func (l layout) column(pos, valueIdx int) int { return l.offsets[pos] + valueIdx }
func (l layout) slack(i int) int              { return l.values + i }
func (l layout) size() int                    { return l.values + l.slacks }

// valueColumn locates the variable of the value b takes on the issue at pos.
// Bids are validated before the program is built.
func (l layout) valueColumn(is domain.Issue, pos int, b domain.Bid) int {
	v, _ := b.Value(is.ID)
	return l.column(pos, is.ValueIndex(v))
}

func buildProblem(d *domain.Domain, r *domain.BidRanking, lay layout) *lp.Problem {
	n := lay.size()

	objective := make([]float64, n)
	for i := 0; i < lay.slacks; i++ {
		objective[lay.slack(i)] = 1
	}
	prob := lp.NewProblem(objective)

	issues := d.Issues()

	// higher - lower + slack >= 0 for each adjacent pair; agreeing issues cancel.
	for i, cmp := range r.Comparisons() {
		row := make([]float64, n)
		for pos, is := range issues {
			lo, _ := cmp.Lower.Value(is.ID)
			hi, _ := cmp.Higher.Value(is.ID)
			if lo == hi {
				continue
			}
			row[lay.valueColumn(is, pos, cmp.Lower)] = -1
			row[lay.valueColumn(is, pos, cmp.Higher)] = 1
		}
		row[lay.slack(i)] = 1
		prob.AddConstraint(row, lp.GEQ, 0)
	}

	for j := 0; j < n; j++ {
		row := make([]float64, n)
		row[j] = 1
		prob.AddConstraint(row, lp.GEQ, 0)
	}

	// One equality per reference bid, one coefficient per issue.
	best := make([]float64, n)
	worst := make([]float64, n)
	for pos, is := range issues {
		best[lay.valueColumn(is, pos, r.Maximal())] = 1
		worst[lay.valueColumn(is, pos, r.Minimal())] = 1
	}
	prob.AddConstraint(best, lp.EQ, r.HighUtility())
	// The same reference bid at the same utility needs only one row.
	if !r.Maximal().Equal(r.Minimal()) || r.LowUtility() != r.HighUtility() {
		prob.AddConstraint(worst, lp.EQ, r.LowUtility())
	}

	return prob
}

// buildSpace clamps the solved value-utilities at zero, takes each issue's
// largest value-utility as its raw weight and normalizes weights to sum to
// one. A value's evaluation is its value-utility relative to its issue's
// maximum, so its weighted utility is value-utility / sum of issue maxima.
func buildSpace(d *domain.Domain, lay layout, x []float64) (*utilspace.Additive, error) {
	raw := make([]float64, lay.values)
	for j := range raw {
		if !isFinite(x[j]) {
			return nil, fmt.Errorf("value-utility %d is %v: %w", j, x[j], ErrDegenerate)
		}
		raw[j] = math.Max(0, x[j])
	}

	space := utilspace.New(d)
	var total float64
	for pos, is := range d.Issues() {
		var maxU float64
		for idx := range is.Values {
			maxU = math.Max(maxU, raw[lay.column(pos, idx)])
		}
		total += maxU

		if err := space.SetWeight(is.ID, maxU); err != nil {
			return nil, err
		}
		for idx, v := range is.Values {
			var eval float64
			if maxU > 0 {
				eval = raw[lay.column(pos, idx)] / maxU
			}
			if err := space.SetEvaluation(is.ID, v, eval); err != nil {
				return nil, err
			}
		}
	}
	if total <= 0 || !isFinite(total) {
		return nil, fmt.Errorf("issue weights sum to %v: %w", total, ErrDegenerate)
	}

	space.NormalizeWeights()
	if err := space.Validate(); err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrDegenerate)
	}
	return space, nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
