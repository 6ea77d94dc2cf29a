// Package lp describes small dense linear programs and solves them.
//
// A Problem minimizes Objective·x over non-negative x subject to a list of
// linear constraints. Solvers are interchangeable behind the Solver
// interface; Gonum wraps gonum's simplex and Tableau is a self-contained
// two-phase simplex with an iteration budget.
package lp

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrInfeasible     = errors.New("lp: problem is infeasible")
	ErrUnbounded      = errors.New("lp: problem is unbounded")
	ErrIterationLimit = errors.New("lp: iteration limit reached")
	ErrNumerical      = errors.New("lp: numerical failure")
)

// Relation is the comparison operator of a constraint row.
type Relation int

const (
	GEQ Relation = iota
	LEQ
	EQ
)

func (r Relation) String() string {
	switch r {
	case GEQ:
		return ">="
	case LEQ:
		return "<="
	case EQ:
		return "="
	default:
		return fmt.Sprintf("Relation(%d)", int(r))
	}
}

// Constraint is Coefficients·x <Relation> RHS.
type Constraint struct {
	Coefficients []float64
	Relation     Relation
	RHS          float64
}

// Problem is: minimize Objective·x subject to Constraints, x >= 0.
type Problem struct {
	Objective   []float64
	Constraints []Constraint
}

// NewProblem creates a problem over len(objective) non-negative variables.
func NewProblem(objective []float64) *Problem {
	obj := make([]float64, len(objective))
	copy(obj, objective)
	return &Problem{Objective: obj}
}

func (p *Problem) NumVariables() int { return len(p.Objective) }

// AddConstraint appends a row. The coefficient slice is retained.
func (p *Problem) AddConstraint(coefficients []float64, rel Relation, rhs float64) {
	p.Constraints = append(p.Constraints, Constraint{
		Coefficients: coefficients,
		Relation:     rel,
		RHS:          rhs,
	})
}

// Validate checks dimensions and finiteness.
func (p *Problem) Validate() error {
	n := len(p.Objective)
	if n == 0 {
		return errors.New("lp: problem has no variables")
	}
	if len(p.Constraints) == 0 {
		return errors.New("lp: problem has no constraints")
	}
	for j, c := range p.Objective {
		if !finite(c) {
			return fmt.Errorf("lp: objective coefficient %d is %v", j, c)
		}
	}
	for i, row := range p.Constraints {
		if len(row.Coefficients) != n {
			return fmt.Errorf("lp: constraint %d has %d coefficients, want %d", i, len(row.Coefficients), n)
		}
		if row.Relation != GEQ && row.Relation != LEQ && row.Relation != EQ {
			return fmt.Errorf("lp: constraint %d has unknown relation %d", i, int(row.Relation))
		}
		if !finite(row.RHS) {
			return fmt.Errorf("lp: constraint %d right-hand side is %v", i, row.RHS)
		}
		for j, a := range row.Coefficients {
			if !finite(a) {
				return fmt.Errorf("lp: constraint %d coefficient %d is %v", i, j, a)
			}
		}
	}
	return nil
}

// UncountedIterations is reported by backends that do not count pivots.
const UncountedIterations = -1

// Solution is an optimal point of a Problem.
type Solution struct {
	X          []float64
	Objective  float64
	Iterations int
}

// Solver finds an optimal point of a Problem.
type Solver interface {
	Name() string
	Solve(p *Problem) (*Solution, error)
}

// standardForm rewrites p as: minimize c·z subject to A z = b, z >= 0, b >= 0.
// Each inequality row gets its own surplus (GEQ) or slack (LEQ) column after
// the original variables; rows with a negative right-hand side are negated.
func standardForm(p *Problem) (c []float64, a [][]float64, b []float64) {
	n := len(p.Objective)
	extra := 0
	for _, row := range p.Constraints {
		if row.Relation != EQ {
			extra++
		}
	}

	cols := n + extra
	c = make([]float64, cols)
	copy(c, p.Objective)

	a = make([][]float64, len(p.Constraints))
	b = make([]float64, len(p.Constraints))

	next := n
	for i, row := range p.Constraints {
		r := make([]float64, cols)
		copy(r, row.Coefficients)
		switch row.Relation {
		case GEQ:
			r[next] = -1
			next++
		case LEQ:
			r[next] = 1
			next++
		}
		rhs := row.RHS
		if rhs < 0 {
			for j := range r {
				r[j] = -r[j]
			}
			rhs = -rhs
		}
		a[i] = r
		b[i] = rhs
	}
	return c, a, b
}

// finish trims a standard-form point back to the original variables and
// rejects non-finite output.
func finish(p *Problem, z []float64, iterations int) (*Solution, error) {
	n := len(p.Objective)
	if len(z) < n {
		return nil, fmt.Errorf("solver returned %d values for %d variables: %w", len(z), n, ErrNumerical)
	}
	x := make([]float64, n)
	var obj float64
	for j := 0; j < n; j++ {
		if !finite(z[j]) {
			return nil, fmt.Errorf("variable %d is %v: %w", j, z[j], ErrNumerical)
		}
		x[j] = z[j]
		obj += p.Objective[j] * z[j]
	}
	return &Solution{X: x, Objective: obj, Iterations: iterations}, nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
