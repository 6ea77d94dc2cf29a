package lp

import (
	"fmt"
	"math"
)

// DefaultMaxIterations bounds the pivots a Tableau solver performs.
const DefaultMaxIterations = 100000

// Tableau is a dense two-phase simplex using Bland's rule. Pivots across
// both phases count against MaxIterations.
type Tableau struct {
	MaxIterations int
	Tolerance     float64
}

func NewTableau(maxIterations int, tolerance float64) *Tableau {
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	return &Tableau{MaxIterations: maxIterations, Tolerance: tolerance}
}

func (t *Tableau) Name() string { return "tableau" }

func (t *Tableau) Solve(p *Problem) (*Solution, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	c, a, b := standardForm(p)
	tab := newTableau(a, b, t.tolerance(), t.maxIterations())

	// Phase 1: minimize the sum of artificial variables.
	phase1 := make([]float64, tab.cols)
	for j := tab.n; j < tab.cols; j++ {
		phase1[j] = 1
	}
	tab.setObjective(phase1)
	if err := tab.run(tab.cols); err != nil {
		return nil, err
	}
	if infeasibility := -tab.obj[tab.cols]; infeasibility > tab.tol*math.Max(1, tab.scale) {
		return nil, fmt.Errorf("phase one residual %g: %w", infeasibility, ErrInfeasible)
	}
	tab.evictArtificials()

	// Phase 2: original costs, artificial columns may no longer enter.
	cost := make([]float64, tab.cols)
	copy(cost, c)
	tab.setObjective(cost)
	if err := tab.run(tab.n); err != nil {
		return nil, err
	}

	z := make([]float64, tab.n)
	for i, v := range tab.basis {
		if v < tab.n {
			z[v] = tab.rows[i][tab.cols]
		}
	}
	return finish(p, z, tab.iterations)
}

func (t *Tableau) tolerance() float64 {
	if t.Tolerance <= 0 {
		return DefaultTolerance
	}
	return t.Tolerance
}

func (t *Tableau) maxIterations() int {
	if t.MaxIterations <= 0 {
		return DefaultMaxIterations
	}
	return t.MaxIterations
}

// tableau holds rows [A | I_artificial | b] and a reduced-cost row whose last
// entry is the negated objective value.
type tableau struct {
	rows       [][]float64
	obj        []float64
	basis      []int
	n          int // structural columns
	cols       int // structural + artificial columns
	tol        float64
	scale      float64
	iterations int
	limit      int
}

func newTableau(a [][]float64, b []float64, tol float64, limit int) *tableau {
	m := len(a)
	n := 0
	if m > 0 {
		n = len(a[0])
	}
	cols := n + m

	t := &tableau{
		rows:  make([][]float64, m),
		basis: make([]int, m),
		n:     n,
		cols:  cols,
		tol:   tol,
		scale: 1,
		limit: limit,
	}
	for i := 0; i < m; i++ {
		row := make([]float64, cols+1)
		copy(row, a[i])
		row[n+i] = 1
		row[cols] = b[i]
		t.rows[i] = row
		t.basis[i] = n + i
		t.scale = math.Max(t.scale, math.Abs(b[i]))
	}
	return t
}

// setObjective loads cost and prices out the current basis.
func (t *tableau) setObjective(cost []float64) {
	t.obj = make([]float64, t.cols+1)
	copy(t.obj, cost)
	for i, v := range t.basis {
		cb := cost[v]
		if cb == 0 {
			continue
		}
		row := t.rows[i]
		for j := range t.obj {
			t.obj[j] -= cb * row[j]
		}
	}
}

// run pivots until no column below enterLimit has a negative reduced cost.
func (t *tableau) run(enterLimit int) error {
	for {
		enter := -1
		for j := 0; j < enterLimit; j++ {
			if t.obj[j] < -t.tol {
				enter = j
				break
			}
		}
		if enter < 0 {
			return nil
		}

		leave := -1
		best := math.Inf(1)
		for i, row := range t.rows {
			if row[enter] <= t.tol {
				continue
			}
			ratio := row[t.cols] / row[enter]
			if ratio < best-t.tol || (math.Abs(ratio-best) <= t.tol && t.basis[i] < t.basis[leave]) {
				best = ratio
				leave = i
			}
		}
		if leave < 0 {
			return fmt.Errorf("column %d: %w", enter, ErrUnbounded)
		}

		if t.iterations >= t.limit {
			return fmt.Errorf("after %d pivots: %w", t.iterations, ErrIterationLimit)
		}
		t.pivot(leave, enter)
	}
}

func (t *tableau) pivot(r, c int) {
	t.iterations++

	pr := t.rows[r]
	inv := 1 / pr[c]
	for j := range pr {
		pr[j] *= inv
	}
	pr[c] = 1

	for i, row := range t.rows {
		if i == r {
			continue
		}
		f := row[c]
		if f == 0 {
			continue
		}
		for j := range row {
			row[j] -= f * pr[j]
		}
		row[c] = 0
	}
	if f := t.obj[c]; f != 0 {
		for j := range t.obj {
			t.obj[j] -= f * pr[j]
		}
		t.obj[c] = 0
	}
	t.basis[r] = c
}

// evictArtificials pivots remaining basic artificials out on any structural
// column; rows where none exists are redundant and dropped.
func (t *tableau) evictArtificials() {
	for i := 0; i < len(t.rows); i++ {
		if t.basis[i] < t.n {
			continue
		}
		enter := -1
		for j := 0; j < t.n; j++ {
			if math.Abs(t.rows[i][j]) > t.tol {
				enter = j
				break
			}
		}
		if enter >= 0 {
			t.pivot(i, enter)
			continue
		}
		t.rows = append(t.rows[:i], t.rows[i+1:]...)
		t.basis = append(t.basis[:i], t.basis[i+1:]...)
		i--
	}
}
