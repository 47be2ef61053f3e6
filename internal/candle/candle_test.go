package candle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zappabad/marketsim/internal/sim"
)

func TestIntervalRoundTrip(t *testing.T) {
	for _, iv := range Intervals {
		assert.Equal(t, iv, ParseInterval(iv.String()))
	}
	assert.Equal(t, D1, ParseInterval("garbage"))
}

func TestBoundaryFloors(t *testing.T) {
	// 90.5 minutes past epoch.
	ts := sim.Timestamp(90*60_000 + 30_000)
	assert.Equal(t, sim.Timestamp(90*60_000), M1.Boundary(ts))
	assert.Equal(t, sim.Timestamp(90*60_000), M5.Boundary(ts))
	assert.Equal(t, sim.Timestamp(75*60_000), M15.Boundary(ts))
	assert.Equal(t, sim.Timestamp(60*60_000), H1.Boundary(ts))
	assert.Equal(t, sim.Timestamp(0), D1.Boundary(ts))
}

func TestFirstTickOpensBar(t *testing.T) {
	a := NewAggregator()
	a.AddSymbol("ACME")

	a.OnTick("ACME", 100, 50, 61_000)
	cur := a.Current("ACME", M1)
	assert.Equal(t, sim.Timestamp(60_000), cur.Time)
	assert.Equal(t, sim.Price(100), cur.Open)
	assert.Equal(t, sim.Price(100), cur.Close)
	assert.Equal(t, 50.0, cur.Volume)
	assert.Zero(t, a.Count("ACME", M1))
}

func TestSamePeriodUpdatesOHLCV(t *testing.T) {
	a := NewAggregator()
	a.AddSymbol("ACME")

	a.OnTick("ACME", 100, 10, 61_000)
	a.OnTick("ACME", 105, 5, 62_000)
	a.OnTick("ACME", 98, 5, 63_000)
	a.OnTick("ACME", 101, 10, 64_000)

	cur := a.Current("ACME", M1)
	assert.Equal(t, sim.Price(100), cur.Open)
	assert.Equal(t, sim.Price(105), cur.High)
	assert.Equal(t, sim.Price(98), cur.Low)
	assert.Equal(t, sim.Price(101), cur.Close)
	assert.Equal(t, 30.0, cur.Volume)
}

func TestRolloverCompletesBar(t *testing.T) {
	a := NewAggregator()
	a.AddSymbol("ACME")

	a.OnTick("ACME", 100, 10, 61_000)
	a.OnTick("ACME", 104, 5, 90_000)
	// Crosses into the next minute.
	a.OnTick("ACME", 110, 7, 125_000)

	require.Equal(t, 1, a.Count("ACME", M1))
	bars := a.Candles("ACME", M1, 0, 10)
	require.Len(t, bars, 1)
	assert.Equal(t, sim.Timestamp(60_000), bars[0].Time)
	assert.Equal(t, sim.Price(100), bars[0].Open)
	assert.Equal(t, sim.Price(104), bars[0].Close)
	assert.Equal(t, 15.0, bars[0].Volume)

	cur := a.Current("ACME", M1)
	assert.Equal(t, sim.Timestamp(120_000), cur.Time)
	assert.Equal(t, sim.Price(110), cur.Open)

	// The 5-minute bar has not rolled yet.
	assert.Zero(t, a.Count("ACME", M5))
}

func TestRolloverKeepsEpochOpenBar(t *testing.T) {
	a := NewAggregator()
	a.AddSymbol("ACME")

	// The first bar opens exactly at epoch 0 and must still complete.
	a.OnTick("ACME", 100, 1, 0)
	a.OnTick("ACME", 101, 1, 61_000)

	bars := a.Candles("ACME", M1, 0, 10)
	require.Len(t, bars, 1)
	assert.Equal(t, sim.Timestamp(0), bars[0].Time)
	assert.Equal(t, sim.Price(100), bars[0].Close)
}

func TestCandlesSinceAndLimit(t *testing.T) {
	a := NewAggregator()
	a.AddSymbol("ACME")

	// One tick per minute for 10 minutes completes 9 one-minute bars.
	for i := 0; i < 10; i++ {
		a.OnTick("ACME", sim.Price(100+i), 1, sim.Timestamp(i)*60_000+1000)
	}
	require.Equal(t, 9, a.Count("ACME", M1))

	all := a.Candles("ACME", M1, 0, 0)
	assert.Len(t, all, 9)

	since := a.Candles("ACME", M1, 5*60_000, 0)
	require.Len(t, since, 4)
	assert.Equal(t, sim.Timestamp(5*60_000), since[0].Time)

	limited := a.Candles("ACME", M1, 0, 3)
	require.Len(t, limited, 3)
	// Limit keeps the most recent bars.
	assert.Equal(t, sim.Timestamp(8*60_000), limited[2].Time)
}

func TestAllCandles(t *testing.T) {
	a := NewAggregator()
	a.AddSymbol("ACME")
	a.AddSymbol("GLOB")

	for i := 0; i < 3; i++ {
		ts := sim.Timestamp(i) * 60_000
		a.OnTick("ACME", 100, 1, ts)
		a.OnTick("GLOB", 50, 1, ts)
	}

	bulk := a.AllCandles(M1, 0)
	require.Len(t, bulk, 2)
	assert.Len(t, bulk["ACME"], 2)
	assert.Len(t, bulk["GLOB"], 2)
}

func TestUnknownSymbolIgnored(t *testing.T) {
	a := NewAggregator()
	a.OnTick("NOPE", 100, 1, 1000)
	assert.Nil(t, a.Candles("NOPE", M1, 0, 10))
	assert.Zero(t, a.Count("NOPE", M1))
	assert.False(t, a.Current("NOPE", M1).Valid())
}

func TestResetDropsEverything(t *testing.T) {
	a := NewAggregator()
	a.AddSymbol("ACME")
	a.OnTick("ACME", 100, 1, 61_000)
	a.Reset()
	assert.Zero(t, a.Count("ACME", M1))
	assert.False(t, a.Current("ACME", M1).Valid())
}
