package archive

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zappabad/marketsim/internal/sim"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestTickRoundTrip(t *testing.T) {
	s := openStore(t)

	for ts := sim.Timestamp(1000); ts <= 5000; ts += 1000 {
		require.NoError(t, s.SaveTick(TickRecord{
			Time:   ts,
			Prices: map[string]sim.Price{"ACME": float64(ts) / 10},
		}))
	}

	recs, err := s.Ticks(2000, 5000, 0)
	require.NoError(t, err)
	require.Len(t, recs, 3) // 2000, 3000, 4000; upper bound exclusive
	assert.Equal(t, sim.Timestamp(2000), recs[0].Time)
	assert.Equal(t, 200.0, recs[0].Prices["ACME"])
	assert.Equal(t, sim.Timestamp(4000), recs[2].Time)
}

func TestTicksLimit(t *testing.T) {
	s := openStore(t)
	for ts := sim.Timestamp(1); ts <= 10; ts++ {
		require.NoError(t, s.SaveTick(TickRecord{Time: ts}))
	}

	recs, err := s.Ticks(0, math.MaxUint64, 4)
	require.NoError(t, err)
	require.Len(t, recs, 4)
	assert.Equal(t, sim.Timestamp(1), recs[0].Time)
}

func TestTradesKeepInsertionOrderWithinTimestamp(t *testing.T) {
	s := openStore(t)

	require.NoError(t, s.SaveTrade(sim.Trade{Symbol: "ACME", Price: 100, Quantity: 1, Timestamp: 500}))
	require.NoError(t, s.SaveTrade(sim.Trade{Symbol: "ACME", Price: 101, Quantity: 2, Timestamp: 500}))
	require.NoError(t, s.SaveTrade(sim.Trade{Symbol: "ACME", Price: 102, Quantity: 3, Timestamp: 600}))

	trades, err := s.Trades(0, math.MaxUint64, 0)
	require.NoError(t, err)
	require.Len(t, trades, 3)
	assert.Equal(t, 100.0, trades[0].Price)
	assert.Equal(t, 101.0, trades[1].Price)
	assert.Equal(t, 102.0, trades[2].Price)

	// Range excludes the later print.
	trades, err = s.Trades(500, 600, 0)
	require.NoError(t, err)
	assert.Len(t, trades, 2)
}

func TestEmptyRange(t *testing.T) {
	s := openStore(t)
	recs, err := s.Ticks(100, 200, 0)
	require.NoError(t, err)
	assert.Empty(t, recs)
}
