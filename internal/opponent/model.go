// Package opponent estimates an opponent's preferences from the bids it
// proposes. Issues whose values the opponent rarely changes are assumed to
// matter more to it, and values it repeats often are assumed to be preferred.
package opponent

import (
	"errors"
	"fmt"
	"log/slog"

	"parley/internal/domain"
)

var ErrNoIssues = errors.New("sample bid has no issues")

// Model is a frequency-based opponent model. It is owned by a single
// negotiation session and is not safe for concurrent use.
type Model struct {
	issueIDs []int
	position map[int]int

	history        []domain.Bid
	utilityHistory []float64

	frequencies []map[domain.Value]int
	evaluations []map[domain.Value]float64
	weights     []float64
}

// NewModel learns the issue set from sample. The sample itself is not
// recorded as an opponent bid.
func NewModel(sample domain.Bid) (*Model, error) {
	ids := sample.IssueIDs()
	if len(ids) == 0 {
		return nil, ErrNoIssues
	}

	m := &Model{
		issueIDs:    ids,
		position:    make(map[int]int, len(ids)),
		frequencies: make([]map[domain.Value]int, len(ids)),
		evaluations: make([]map[domain.Value]float64, len(ids)),
		weights:     make([]float64, len(ids)),
	}
	for pos, id := range ids {
		m.position[id] = pos
		m.frequencies[pos] = make(map[domain.Value]int)
		m.evaluations[pos] = make(map[domain.Value]float64)
	}
	return m, nil
}

// AddBid appends b to the history and recomputes weights and evaluations
// over the whole history, O(history x issues) per call.
func (m *Model) AddBid(b domain.Bid) error {
	if b.Len() != len(m.issueIDs) {
		return fmt.Errorf("bid assigns %d of %d issues: %w", b.Len(), len(m.issueIDs), domain.ErrIncompleteBid)
	}
	for _, id := range m.issueIDs {
		if _, ok := b.Value(id); !ok {
			return fmt.Errorf("issue %d: %w", id, domain.ErrIncompleteBid)
		}
	}

	m.history = append(m.history, b)
	m.recompute()

	slog.Debug("opponent bid recorded", "turn", len(m.history), "bid", b.String())
	return nil
}

// recompute rebuilds every derived table from the history. Each issue has its
// own frequency table so issues never share counts.
func (m *Model) recompute() {
	turns := float64(len(m.history))

	for pos, id := range m.issueIDs {
		freq := make(map[domain.Value]int)
		for _, b := range m.history {
			v, _ := b.Value(id)
			freq[v]++
		}
		m.frequencies[pos] = freq

		most := 0
		for _, n := range freq {
			if n > most {
				most = n
			}
		}

		evals := make(map[domain.Value]float64, len(freq))
		var w float64
		for v, n := range freq {
			evals[v] = float64(n) / float64(most)
			share := float64(n) / turns
			w += share * share
		}
		m.evaluations[pos] = evals
		m.weights[pos] = w
	}

	var total float64
	for _, w := range m.weights {
		total += w
	}
	if total <= 0 {
		return
	}
	for pos := range m.weights {
		m.weights[pos] /= total
	}
}

// Utility estimates the opponent's utility for b. Values never observed on
// an issue contribute zero.
func (m *Model) Utility(b domain.Bid) float64 {
	var u float64
	for pos, id := range m.issueIDs {
		v, ok := b.Value(id)
		if !ok {
			continue
		}
		if e, seen := m.evaluations[pos][v]; seen {
			u += m.weights[pos] * e
		}
	}
	return u
}

// Hardheaded measures how rarely the opponent changed its values over the
// last turns transitions: 1 - (changes / issues) / turns. Values near 1 mean
// a stubborn opponent, near 0 an opponent that changes every value every
// turn. With fewer than turns bids recorded there is no signal and ok is
// false. The result is not clamped.
//
// Exactly turns bids give turns-1 transitions, still divided by turns, so
// the score steps once the history grows past the window: an opponent that
// changes every value scores 1/turns at that point and 0 afterwards.
func (m *Model) Hardheaded(turns int) (float64, bool) {
	if turns < 1 || len(m.history) < turns {
		return 0, false
	}

	changes := 0
	for _, n := range m.issueChanges(turns) {
		changes += n
	}
	return 1 - (float64(changes)/float64(len(m.issueIDs)))/float64(turns), true
}

// issueChanges counts, per issue, the value changes across the most recent
// transitions, walking backward from the newest bid. At most turns
// transitions are inspected.
func (m *Model) issueChanges(turns int) []int {
	newest := len(m.history) - 1
	oldest := newest - turns
	if oldest < 0 {
		oldest = 0
	}

	counts := make([]int, len(m.issueIDs))
	for pos, id := range m.issueIDs {
		for j := newest; j > oldest; j-- {
			cur, _ := m.history[j].Value(id)
			prev, _ := m.history[j-1].Value(id)
			if cur != prev {
				counts[pos]++
			}
		}
	}
	return counts
}

// AddUtilityHistory records a utility observation for external trend
// analysis. The model never reads it.
func (m *Model) AddUtilityHistory(u float64) {
	m.utilityHistory = append(m.utilityHistory, u)
}

func (m *Model) UtilityHistory() []float64 {
	out := make([]float64, len(m.utilityHistory))
	copy(out, m.utilityHistory)
	return out
}

// Len is the number of opponent bids recorded.
func (m *Model) Len() int { return len(m.history) }

// History returns the recorded bids in arrival order.
func (m *Model) History() []domain.Bid {
	out := make([]domain.Bid, len(m.history))
	copy(out, m.history)
	return out
}

// IssueIDs returns the modelled issues in ascending id order.
func (m *Model) IssueIDs() []int {
	out := make([]int, len(m.issueIDs))
	copy(out, m.issueIDs)
	return out
}

func (m *Model) Weight(issueID int) float64 {
	pos, ok := m.position[issueID]
	if !ok {
		return 0
	}
	return m.weights[pos]
}

// Weights returns the normalized issue weights keyed by issue id.
func (m *Model) Weights() map[int]float64 {
	out := make(map[int]float64, len(m.issueIDs))
	for pos, id := range m.issueIDs {
		out[id] = m.weights[pos]
	}
	return out
}

// Evaluation returns the estimated utility of v on an issue, zero if unseen.
func (m *Model) Evaluation(issueID int, v domain.Value) float64 {
	pos, ok := m.position[issueID]
	if !ok {
		return 0
	}
	return m.evaluations[pos][v]
}

// Frequencies returns how often each value was proposed on an issue.
func (m *Model) Frequencies(issueID int) map[domain.Value]int {
	pos, ok := m.position[issueID]
	if !ok {
		return nil
	}
	out := make(map[domain.Value]int, len(m.frequencies[pos]))
	for v, n := range m.frequencies[pos] {
		out[v] = n
	}
	return out
}
