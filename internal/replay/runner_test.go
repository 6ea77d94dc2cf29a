package replay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parley/internal/db"
	"parley/internal/domain"
	"parley/internal/recorder"
)

func trace(prices ...domain.Value) []domain.Bid {
	bids := make([]domain.Bid, 0, len(prices))
	for _, p := range prices {
		bids = append(bids, domain.NewBid(map[int]domain.Value{1: p, 2: "fast"}))
	}
	return bids
}

func TestRun_WithoutRecorder(t *testing.T) {
	r := NewRunner(2, nil)

	summary, err := r.Run("shop", trace("high", "high", "mid", "low"))
	require.NoError(t, err)
	require.Len(t, summary.Turns, 4)

	assert.False(t, summary.Turns[0].HasSignal)
	assert.True(t, summary.Turns[1].HasSignal)
	assert.InDelta(t, 1.0, summary.Turns[1].Hardheaded, 1e-12)

	// Last two transitions changed price twice out of two issues.
	final, ok := summary.Final()
	require.True(t, ok)
	assert.InDelta(t, 0.5, final, 1e-12)

	assert.Equal(t, 4, summary.Model.Len())
	assert.Len(t, summary.Model.UtilityHistory(), 4)
	assert.Empty(t, summary.RunID)
}

func TestRun_EmptyTrace(t *testing.T) {
	_, err := NewRunner(2, nil).Run("shop", nil)
	assert.Error(t, err)
}

func TestRun_RejectsIncompleteBid(t *testing.T) {
	bids := append(trace("high"), domain.NewBid(map[int]domain.Value{1: "low"}))
	_, err := NewRunner(2, nil).Run("shop", bids)
	assert.ErrorIs(t, err, domain.ErrIncompleteBid)
}

func TestRun_RecordsTurns(t *testing.T) {
	database, err := db.Open(":memory:")
	require.NoError(t, err)
	defer database.Close()
	require.NoError(t, db.Migrate(database))

	summary, err := NewRunner(3, recorder.New(database)).Run("shop", trace("high", "high"))
	require.NoError(t, err)
	require.NotEmpty(t, summary.RunID)

	var turns int
	require.NoError(t, database.QueryRow(
		`SELECT COUNT(*) FROM opponent_turns WHERE run_id = ?`, summary.RunID).Scan(&turns))
	assert.Equal(t, 2, turns)

	var stored int
	var signalled int
	require.NoError(t, database.QueryRow(
		`SELECT turns, final_hardheaded IS NOT NULL FROM opponent_runs WHERE id = ?`, summary.RunID).Scan(&stored, &signalled))
	assert.Equal(t, 2, stored)
	assert.Equal(t, 0, signalled)
}
