package lp

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
	gonumlp "gonum.org/v1/gonum/optimize/convex/lp"
)

// DefaultTolerance is used when a solver is built with a zero tolerance.
const DefaultTolerance = 1e-9

// Gonum solves problems with gonum's simplex implementation.
type Gonum struct {
	Tolerance float64
}

func NewGonum(tolerance float64) *Gonum {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	return &Gonum{Tolerance: tolerance}
}

func (g *Gonum) Name() string { return "gonum" }

// Solve converts p to standard form, drops all-zero rows, repeated rows and
// all-zero columns (gonum rejects a singular A) and runs the simplex.
func (g *Gonum) Solve(p *Problem) (sol *Solution, err error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	c, a, b := standardForm(p)

	rows, err := nonZeroRows(a, b)
	if err != nil {
		return nil, err
	}
	rows, err = distinctRows(a, b, rows)
	if err != nil {
		return nil, err
	}
	cols, err := nonZeroColumns(c, a, rows)
	if err != nil {
		return nil, err
	}
	if len(rows) > len(cols) {
		return nil, fmt.Errorf("%d equality rows over %d columns: %w", len(rows), len(cols), ErrNumerical)
	}

	data := make([]float64, 0, len(rows)*len(cols))
	rhs := make([]float64, 0, len(rows))
	for _, i := range rows {
		for _, j := range cols {
			data = append(data, a[i][j])
		}
		rhs = append(rhs, b[i])
	}
	cost := make([]float64, 0, len(cols))
	for _, j := range cols {
		cost = append(cost, c[j])
	}

	defer func() {
		if r := recover(); r != nil {
			sol = nil
			err = fmt.Errorf("gonum simplex: %v: %w", r, ErrNumerical)
		}
	}()

	tol := g.Tolerance
	if tol <= 0 {
		tol = DefaultTolerance
	}
	_, x, serr := gonumlp.Simplex(cost, mat.NewDense(len(rows), len(cols), data), rhs, tol, nil)
	if serr != nil {
		return nil, translateGonumError(serr)
	}

	z := make([]float64, len(c))
	for k, j := range cols {
		z[j] = x[k]
	}
	return finish(p, z, UncountedIterations)
}

func translateGonumError(err error) error {
	switch {
	case errors.Is(err, gonumlp.ErrInfeasible):
		return fmt.Errorf("gonum simplex: %v: %w", err, ErrInfeasible)
	case errors.Is(err, gonumlp.ErrUnbounded):
		return fmt.Errorf("gonum simplex: %v: %w", err, ErrUnbounded)
	default:
		return fmt.Errorf("gonum simplex: %v: %w", err, ErrNumerical)
	}
}

// nonZeroRows returns the indices of rows with at least one coefficient.
// An empty row with a non-zero right-hand side can never hold.
func nonZeroRows(a [][]float64, b []float64) ([]int, error) {
	keep := make([]int, 0, len(a))
	for i, row := range a {
		empty := true
		for _, v := range row {
			if v != 0 {
				empty = false
				break
			}
		}
		if !empty {
			keep = append(keep, i)
			continue
		}
		if b[i] != 0 {
			return nil, fmt.Errorf("row %d is empty with rhs %v: %w", i, b[i], ErrInfeasible)
		}
	}
	return keep, nil
}

// distinctRows drops rows that repeat an earlier kept row. Equal coefficients
// with a different right-hand side can never both hold.
func distinctRows(a [][]float64, b []float64, rows []int) ([]int, error) {
	keep := make([]int, 0, len(rows))
	for _, i := range rows {
		dup := false
		for _, k := range keep {
			if !sameCoefficients(a[i], a[k]) {
				continue
			}
			if b[i] != b[k] {
				return nil, fmt.Errorf("rows %d and %d share coefficients with rhs %v and %v: %w", k, i, b[k], b[i], ErrInfeasible)
			}
			dup = true
			break
		}
		if !dup {
			keep = append(keep, i)
		}
	}
	return keep, nil
}

func sameCoefficients(x, y []float64) bool {
	for j := range x {
		if x[j] != y[j] {
			return false
		}
	}
	return true
}

// nonZeroColumns returns the columns that appear in a kept row. A column that
// appears nowhere is fixed at zero unless its cost is negative.
func nonZeroColumns(c []float64, a [][]float64, rows []int) ([]int, error) {
	keep := make([]int, 0, len(c))
	for j := range c {
		used := false
		for _, i := range rows {
			if a[i][j] != 0 {
				used = true
				break
			}
		}
		if used {
			keep = append(keep, j)
			continue
		}
		if c[j] < 0 {
			return nil, fmt.Errorf("column %d is unconstrained with cost %v: %w", j, c[j], ErrUnbounded)
		}
	}
	return keep, nil
}
