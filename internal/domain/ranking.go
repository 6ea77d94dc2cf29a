package domain

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrRankingTooShort = errors.New("ranking needs at least two distinct bids")
	ErrInvalidBounds   = errors.New("invalid ranking utility bounds")
)

// Comparison is one ordered pair from a ranking: Higher is preferred to Lower.
type Comparison struct {
	Lower  Bid
	Higher Bid
}

// BidRanking is an ordered list of bids from worst to best together with the
// declared utilities of its two extremes.
type BidRanking struct {
	bids []Bid
	low  float64
	high float64
}

// NewRanking validates and stores a worst-to-best ordering. low and high are
// the externally declared utilities of the first and last bid.
func NewRanking(bids []Bid, low, high float64) (*BidRanking, error) {
	if len(bids) < 2 {
		return nil, fmt.Errorf("%d bids: %w", len(bids), ErrRankingTooShort)
	}
	distinct := false
	for _, b := range bids[1:] {
		if !b.Equal(bids[0]) {
			distinct = true
			break
		}
	}
	if !distinct {
		return nil, fmt.Errorf("all %d bids are identical: %w", len(bids), ErrRankingTooShort)
	}
	if math.IsNaN(low) || math.IsInf(low, 0) || math.IsNaN(high) || math.IsInf(high, 0) {
		return nil, fmt.Errorf("low=%v high=%v: %w", low, high, ErrInvalidBounds)
	}
	if low < 0 || low > high {
		return nil, fmt.Errorf("low=%v high=%v: %w", low, high, ErrInvalidBounds)
	}

	cp := make([]Bid, len(bids))
	copy(cp, bids)
	return &BidRanking{bids: cp, low: low, high: high}, nil
}

func (r *BidRanking) Len() int { return len(r.bids) }

// Bids returns the ranking worst first.
func (r *BidRanking) Bids() []Bid { return r.bids }

func (r *BidRanking) LowUtility() float64  { return r.low }
func (r *BidRanking) HighUtility() float64 { return r.high }

// Minimal returns the lowest-ranked bid.
func (r *BidRanking) Minimal() Bid { return r.bids[0] }

// Maximal returns the highest-ranked bid.
func (r *BidRanking) Maximal() Bid { return r.bids[len(r.bids)-1] }

// Comparisons returns the adjacent pairs of the ranking, worst pair first.
func (r *BidRanking) Comparisons() []Comparison {
	out := make([]Comparison, 0, len(r.bids)-1)
	for i := 0; i+1 < len(r.bids); i++ {
		out = append(out, Comparison{Lower: r.bids[i], Higher: r.bids[i+1]})
	}
	return out
}

// ValidateAgainst checks every ranked bid against d.
func (r *BidRanking) ValidateAgainst(d *Domain) error {
	for i, b := range r.bids {
		if err := d.Validate(b); err != nil {
			return fmt.Errorf("ranked bid %d: %w", i, err)
		}
	}
	return nil
}
