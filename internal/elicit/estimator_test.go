package elicit

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parley/internal/domain"
	"parley/internal/lp"
)

const eps = 1e-6

func solvers() []lp.Solver {
	return []lp.Solver{lp.NewGonum(0), lp.NewTableau(0, 0)}
}

func bid(values map[int]domain.Value) domain.Bid { return domain.NewBid(values) }

func twoByTwo(t *testing.T) *domain.Domain {
	t.Helper()
	d, err := domain.New("ab", []domain.Issue{
		{ID: 1, Name: "A", Values: []domain.Value{"a1", "a2"}},
		{ID: 2, Name: "B", Values: []domain.Value{"b1", "b2"}},
	})
	require.NoError(t, err)
	return d
}

func TestEstimate_ThreeBidScenario(t *testing.T) {
	d := twoByTwo(t)
	worst := bid(map[int]domain.Value{1: "a1", 2: "b1"})
	middle := bid(map[int]domain.Value{1: "a2", 2: "b1"})
	best := bid(map[int]domain.Value{1: "a2", 2: "b2"})

	r, err := domain.NewRanking([]domain.Bid{worst, middle, best}, 0.2, 1.0)
	require.NoError(t, err)

	for _, s := range solvers() {
		t.Run(s.Name(), func(t *testing.T) {
			fit, err := NewEstimator(s).Fit(d, r)
			require.NoError(t, err)
			require.NoError(t, fit.Space.Validate())

			// Normalization divides by the sum of issue maxima. Anchored
			// utilities survive only because this optimum's maxima sum to
			// the high bound 1.0.
			assert.InDelta(t, 0, fit.TotalSlack, eps)
			assert.InDelta(t, 1.0, fit.Space.Utility(best), eps)
			assert.InDelta(t, 0.2, fit.Space.Utility(worst), eps)

			mid := fit.Space.Utility(middle)
			assert.GreaterOrEqual(t, mid, 0.2-eps)
			assert.LessOrEqual(t, mid, 1.0+eps)
		})
	}
}

func TestEstimate_Deterministic(t *testing.T) {
	d := twoByTwo(t)
	r, err := domain.NewRanking([]domain.Bid{
		bid(map[int]domain.Value{1: "a1", 2: "b1"}),
		bid(map[int]domain.Value{1: "a1", 2: "b2"}),
		bid(map[int]domain.Value{1: "a2", 2: "b1"}),
		bid(map[int]domain.Value{1: "a2", 2: "b2"}),
	}, 0, 1)
	require.NoError(t, err)

	for _, s := range solvers() {
		t.Run(s.Name(), func(t *testing.T) {
			est := NewEstimator(s)
			first, err := est.Estimate(d, r)
			require.NoError(t, err)
			second, err := est.Estimate(d, r)
			require.NoError(t, err)

			for _, is := range d.Issues() {
				assert.InDelta(t, first.Weight(is.ID), second.Weight(is.ID), 1e-12)
				for _, v := range is.Values {
					assert.InDelta(t, first.Evaluation(is.ID, v), second.Evaluation(is.ID, v), 1e-12)
				}
			}
		})
	}
}

// groundTruthRanking enumerates every bid of a 3x2x2 domain and orders it by
// a known additive utility, worst first.
func groundTruthRanking(t *testing.T) (*domain.Domain, []domain.Bid) {
	t.Helper()
	d, err := domain.New("truth", []domain.Issue{
		{ID: 4, Name: "X", Values: []domain.Value{"x1", "x2", "x3"}},
		{ID: 9, Name: "Y", Values: []domain.Value{"y1", "y2"}},
		{ID: 2, Name: "Z", Values: []domain.Value{"z1", "z2"}},
	})
	require.NoError(t, err)

	weight := map[int]float64{4: 0.5, 9: 0.3, 2: 0.2}
	eval := map[domain.Value]float64{
		"x1": 0, "x2": 0.5, "x3": 1,
		"y1": 0, "y2": 1,
		"z1": 0, "z2": 1,
	}
	truth := func(b domain.Bid) float64 {
		var u float64
		for id, w := range weight {
			v, _ := b.Value(id)
			u += w * eval[v]
		}
		return u
	}

	var bids []domain.Bid
	for _, x := range []domain.Value{"x1", "x2", "x3"} {
		for _, y := range []domain.Value{"y1", "y2"} {
			for _, z := range []domain.Value{"z1", "z2"} {
				bids = append(bids, bid(map[int]domain.Value{4: x, 9: y, 2: z}))
			}
		}
	}
	sort.SliceStable(bids, func(i, j int) bool { return truth(bids[i]) < truth(bids[j]) })
	return d, bids
}

func TestEstimate_ConsistentRankingIsRespected(t *testing.T) {
	d, bids := groundTruthRanking(t)
	r, err := domain.NewRanking(bids, 0.1, 1.0)
	require.NoError(t, err)

	for _, s := range solvers() {
		t.Run(s.Name(), func(t *testing.T) {
			fit, err := NewEstimator(s).Fit(d, r)
			require.NoError(t, err)
			require.NoError(t, fit.Space.Validate())

			assert.InDelta(t, 0, fit.TotalSlack, eps)
			require.Len(t, fit.Slack, len(bids)-1)

			for i := 0; i+1 < len(bids); i++ {
				lo := fit.Space.Utility(bids[i])
				hi := fit.Space.Utility(bids[i+1])
				assert.GreaterOrEqual(t, hi, lo-eps, "pair %d: %s vs %s", i, bids[i], bids[i+1])
			}

			// Holds only because this optimum's issue maxima sum to the high
			// bound 1.0; see TestEstimate_SameAnchorBidAndBounds.
			assert.InDelta(t, 1.0, fit.Space.Utility(r.Maximal()), eps)
			assert.InDelta(t, 0.1, fit.Space.Utility(r.Minimal()), eps)

			var sum float64
			for _, w := range fit.Space.Weights() {
				sum += w
			}
			assert.InDelta(t, 1.0, sum, eps)
		})
	}
}

func TestEstimate_InconsistentRankingUsesSlack(t *testing.T) {
	d, err := domain.New("single", []domain.Issue{
		{ID: 1, Name: "colour", Values: []domain.Value{"p", "q"}},
	})
	require.NoError(t, err)

	p := bid(map[int]domain.Value{1: "p"})
	q := bid(map[int]domain.Value{1: "q"})
	r, err := domain.NewRanking([]domain.Bid{p, q, p, q}, 0.2, 1.0)
	require.NoError(t, err)

	for _, s := range solvers() {
		t.Run(s.Name(), func(t *testing.T) {
			fit, err := NewEstimator(s).Fit(d, r)
			require.NoError(t, err)

			assert.InDelta(t, 0.8, fit.TotalSlack, eps)
			assert.InDelta(t, 0.8, fit.Slack[1], eps)
			assert.InDelta(t, 1.0, fit.Space.Weight(1), eps)
			assert.InDelta(t, 1.0, fit.Space.Evaluation(1, "q"), eps)
			assert.InDelta(t, 0.2, fit.Space.Evaluation(1, "p"), eps)
		})
	}
}

func TestEstimate_ContradictoryAnchorsFail(t *testing.T) {
	d, err := domain.New("single", []domain.Issue{
		{ID: 1, Name: "colour", Values: []domain.Value{"p", "q"}},
	})
	require.NoError(t, err)

	p := bid(map[int]domain.Value{1: "p"})
	q := bid(map[int]domain.Value{1: "q"})
	// Best and worst are the same bid with different declared utilities.
	r, err := domain.NewRanking([]domain.Bid{p, q, p}, 0.2, 1.0)
	require.NoError(t, err)

	for _, s := range solvers() {
		t.Run(s.Name(), func(t *testing.T) {
			_, err := NewEstimator(s).Estimate(d, r)
			assert.ErrorIs(t, err, lp.ErrInfeasible)
		})
	}
}

func TestEstimate_SameAnchorBidAndBounds(t *testing.T) {
	d, err := domain.New("single", []domain.Issue{
		{ID: 1, Name: "colour", Values: []domain.Value{"p", "q"}},
	})
	require.NoError(t, err)

	p := bid(map[int]domain.Value{1: "p"})
	q := bid(map[int]domain.Value{1: "q"})
	r, err := domain.NewRanking([]domain.Bid{p, q, p}, 0.5, 0.5)
	require.NoError(t, err)

	prob := buildProblem(d, r, newLayout(d, r.Len()-1))
	// 2 comparisons + 4 non-negativity rows + 1 anchor.
	assert.Len(t, prob.Constraints, 7)

	for _, s := range solvers() {
		t.Run(s.Name(), func(t *testing.T) {
			fit, err := NewEstimator(s).Fit(d, r)
			require.NoError(t, err)
			require.NoError(t, fit.Space.Validate())

			assert.InDelta(t, 0, fit.TotalSlack, eps)
			assert.InDelta(t, 1.0, fit.Space.Evaluation(1, "p"), eps)
			assert.InDelta(t, 1.0, fit.Space.Evaluation(1, "q"), eps)

			// The anchor fixes p at 0.5 in the LP, but normalizing by the
			// issue maximum rescales it to 1.0.
			assert.InDelta(t, 1.0, fit.Space.Utility(p), eps)
		})
	}
}

func TestEstimate_RejectsIncompleteBid(t *testing.T) {
	d := twoByTwo(t)
	r, err := domain.NewRanking([]domain.Bid{
		bid(map[int]domain.Value{1: "a1"}),
		bid(map[int]domain.Value{1: "a2", 2: "b2"}),
	}, 0, 1)
	require.NoError(t, err)

	_, err = NewEstimator(nil).Estimate(d, r)
	assert.ErrorIs(t, err, domain.ErrIncompleteBid)
}

func TestEstimate_RejectsMissingInput(t *testing.T) {
	d := twoByTwo(t)
	_, err := NewEstimator(nil).Estimate(d, nil)
	assert.ErrorIs(t, err, domain.ErrRankingTooShort)
}

func TestEstimate_IterationBudget(t *testing.T) {
	d, bids := groundTruthRanking(t)
	r, err := domain.NewRanking(bids, 0, 1)
	require.NoError(t, err)

	_, err = NewEstimator(lp.NewTableau(1, 0)).Estimate(d, r)
	assert.ErrorIs(t, err, lp.ErrIterationLimit)
}

func TestBuildProblem_Layout(t *testing.T) {
	d := twoByTwo(t)
	worst := bid(map[int]domain.Value{1: "a1", 2: "b1"})
	best := bid(map[int]domain.Value{1: "a2", 2: "b1"})
	r, err := domain.NewRanking([]domain.Bid{worst, best}, 0.3, 0.9)
	require.NoError(t, err)

	lay := newLayout(d, r.Len()-1)
	prob := buildProblem(d, r, lay)

	// 4 value-utilities + 1 slack.
	require.Equal(t, 5, prob.NumVariables())
	assert.Equal(t, []float64{0, 0, 0, 0, 1}, prob.Objective)

	// 1 comparison + 5 non-negativity rows + 2 anchors.
	require.Len(t, prob.Constraints, 8)

	cmp := prob.Constraints[0]
	assert.Equal(t, []float64{-1, 1, 0, 0, 1}, cmp.Coefficients)
	assert.Equal(t, lp.GEQ, cmp.Relation)

	high := prob.Constraints[6]
	assert.Equal(t, []float64{0, 1, 1, 0, 0}, high.Coefficients)
	assert.Equal(t, lp.EQ, high.Relation)
	assert.Equal(t, 0.9, high.RHS)

	low := prob.Constraints[7]
	assert.Equal(t, []float64{1, 0, 1, 0, 0}, low.Coefficients)
	assert.Equal(t, 0.3, low.RHS)
}
