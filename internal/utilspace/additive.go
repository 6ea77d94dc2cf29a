// Package utilspace holds additive multi-issue utility functions.
package utilspace

import (
	"errors"
	"fmt"
	"math"

	"parley/internal/domain"
)

const sumTolerance = 1e-6

var ErrNotNormalized = errors.New("utility space is not normalized")

// Additive is a linear additive utility function over a domain: the utility
// of a bid is the sum over issues of weight times the evaluation of the
// bid's value on that issue. Evaluations lie in [0, 1].
type Additive struct {
	dom         *domain.Domain
	weights     []float64
	evaluations [][]float64 // [issue position][value index]
}

// New returns a space with zero weights and evaluations.
func New(d *domain.Domain) *Additive {
	issues := d.Issues()
	s := &Additive{
		dom:         d,
		weights:     make([]float64, len(issues)),
		evaluations: make([][]float64, len(issues)),
	}
	for i, is := range issues {
		s.evaluations[i] = make([]float64, len(is.Values))
	}
	return s
}

func (s *Additive) Domain() *domain.Domain { return s.dom }

func (s *Additive) SetWeight(issueID int, w float64) error {
	pos, ok := s.dom.Position(issueID)
	if !ok {
		return fmt.Errorf("issue %d: %w", issueID, domain.ErrUnknownIssue)
	}
	s.weights[pos] = w
	return nil
}

func (s *Additive) SetEvaluation(issueID int, v domain.Value, e float64) error {
	pos, idx, err := s.locate(issueID, v)
	if err != nil {
		return err
	}
	s.evaluations[pos][idx] = e
	return nil
}

// Weight returns the weight of an issue, zero for unknown issues.
func (s *Additive) Weight(issueID int) float64 {
	pos, ok := s.dom.Position(issueID)
	if !ok {
		return 0
	}
	return s.weights[pos]
}

// Weights returns issue weights keyed by issue id.
func (s *Additive) Weights() map[int]float64 {
	out := make(map[int]float64, len(s.weights))
	for pos, is := range s.dom.Issues() {
		out[is.ID] = s.weights[pos]
	}
	return out
}

// Evaluation returns the evaluation of v on an issue, zero if unknown.
func (s *Additive) Evaluation(issueID int, v domain.Value) float64 {
	pos, idx, err := s.locate(issueID, v)
	if err != nil {
		return 0
	}
	return s.evaluations[pos][idx]
}

// WeightedUtility is the contribution of v to a bid's utility.
func (s *Additive) WeightedUtility(issueID int, v domain.Value) float64 {
	return s.Weight(issueID) * s.Evaluation(issueID, v)
}

// Utility evaluates a bid. Issues the bid leaves unassigned contribute zero.
func (s *Additive) Utility(b domain.Bid) float64 {
	var u float64
	for pos, is := range s.dom.Issues() {
		v, ok := b.Value(is.ID)
		if !ok {
			continue
		}
		idx := is.ValueIndex(v)
		if idx < 0 {
			continue
		}
		u += s.weights[pos] * s.evaluations[pos][idx]
	}
	return u
}

// NormalizeWeights rescales weights to sum to one. All-zero weights are left
// untouched.
func (s *Additive) NormalizeWeights() {
	var total float64
	for _, w := range s.weights {
		total += w
	}
	if total <= 0 {
		return
	}
	for i := range s.weights {
		s.weights[i] /= total
	}
}

// Validate checks that weights are non-negative and sum to one and that
// every evaluation lies in [0, 1].
func (s *Additive) Validate() error {
	var total float64
	for pos, w := range s.weights {
		if w < 0 || math.IsNaN(w) {
			return fmt.Errorf("issue position %d weight %v: %w", pos, w, ErrNotNormalized)
		}
		total += w
	}
	if math.Abs(total-1) > sumTolerance {
		return fmt.Errorf("weights sum to %.6f: %w", total, ErrNotNormalized)
	}
	for pos, evals := range s.evaluations {
		for idx, e := range evals {
			if e < 0 || e > 1 || math.IsNaN(e) {
				return fmt.Errorf("issue position %d value %d evaluation %v: %w", pos, idx, e, ErrNotNormalized)
			}
		}
	}
	return nil
}

func (s *Additive) locate(issueID int, v domain.Value) (int, int, error) {
	pos, ok := s.dom.Position(issueID)
	if !ok {
		return 0, 0, fmt.Errorf("issue %d: %w", issueID, domain.ErrUnknownIssue)
	}
	idx := s.dom.Issues()[pos].ValueIndex(v)
	if idx < 0 {
		return 0, 0, fmt.Errorf("issue %d value %q: %w", issueID, v, domain.ErrUnknownValue)
	}
	return pos, idx, nil
}
