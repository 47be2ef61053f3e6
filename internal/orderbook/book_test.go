package orderbook

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zappabad/marketsim/internal/sim"
)

func newTestBook() *Book {
	return New("ACME", DefaultConfig())
}

func limit(side sim.Side, price sim.Price, qty sim.Volume) sim.Order {
	return sim.Order{Symbol: "ACME", Side: side, Type: sim.OrderLimit, Price: price, Quantity: qty}
}

func market(side sim.Side, qty sim.Volume) sim.Order {
	return sim.Order{Symbol: "ACME", Side: side, Type: sim.OrderMarket, Quantity: qty}
}

func TestAddOrderAssignsIDs(t *testing.T) {
	b := newTestBook()

	id1, err := b.AddOrder(limit(sim.SideBuy, 100, 10), 1000)
	require.NoError(t, err)
	id2, err := b.AddOrder(limit(sim.SideSell, 101, 10), 1001)
	require.NoError(t, err)

	assert.Equal(t, sim.OrderID(1), id1)
	assert.Equal(t, sim.OrderID(2), id2)
	assert.Equal(t, 2, b.Len())
}

func TestAddOrderRejectsInvalid(t *testing.T) {
	b := newTestBook()

	_, err := b.AddOrder(limit(sim.SideBuy, 100, 0), 0)
	assert.ErrorIs(t, err, ErrInvalidOrder)

	_, err = b.AddOrder(limit(sim.SideBuy, 0, 10), 0)
	assert.ErrorIs(t, err, ErrInvalidOrder)

	_, err = b.AddOrder(limit(sim.SideBuy, -5, 10), 0)
	assert.ErrorIs(t, err, ErrInvalidOrder)
}

func TestMatchExecutesAtRestingPrice(t *testing.T) {
	b := newTestBook()

	// Resting ask at 100, then an aggressive bid at 102.
	_, err := b.AddOrder(limit(sim.SideSell, 100, 10), 1000)
	require.NoError(t, err)
	_, err = b.AddOrder(limit(sim.SideBuy, 102, 10), 1001)
	require.NoError(t, err)

	trades := b.MatchOrders(1002)
	require.Len(t, trades, 1)
	assert.Equal(t, sim.Price(100), trades[0].Price)
	assert.Equal(t, sim.Volume(10), trades[0].Quantity)
	assert.Equal(t, 0, b.Len())
}

func TestMatchExecutesAtRestingBid(t *testing.T) {
	b := newTestBook()

	_, err := b.AddOrder(limit(sim.SideBuy, 102, 10), 1000)
	require.NoError(t, err)
	_, err = b.AddOrder(limit(sim.SideSell, 100, 10), 1001)
	require.NoError(t, err)

	trades := b.MatchOrders(1002)
	require.Len(t, trades, 1)
	assert.Equal(t, sim.Price(102), trades[0].Price)
}

func TestPriceTimePriority(t *testing.T) {
	b := newTestBook()

	// Two bids at the same price; the earlier one must fill first.
	first, err := b.AddOrder(limit(sim.SideBuy, 100, 5), 1000)
	require.NoError(t, err)
	_, err = b.AddOrder(limit(sim.SideBuy, 100, 5), 1001)
	require.NoError(t, err)
	// A better bid arrives later; it must fill before either.
	best, err := b.AddOrder(limit(sim.SideBuy, 101, 5), 1002)
	require.NoError(t, err)

	_, err = b.AddOrder(limit(sim.SideSell, 99, 10), 1003)
	require.NoError(t, err)

	trades := b.MatchOrders(1004)
	require.Len(t, trades, 2)
	assert.Equal(t, best, trades[0].BuyOrderID)
	assert.Equal(t, first, trades[1].BuyOrderID)
}

func TestPartialFillKeepsRemainder(t *testing.T) {
	b := newTestBook()

	bigBid, err := b.AddOrder(limit(sim.SideBuy, 100, 20), 1000)
	require.NoError(t, err)
	_, err = b.AddOrder(limit(sim.SideSell, 100, 8), 1001)
	require.NoError(t, err)

	trades := b.MatchOrders(1002)
	require.Len(t, trades, 1)
	assert.Equal(t, sim.Volume(8), trades[0].Quantity)

	// 12 shares of the bid must still rest.
	assert.Equal(t, 1, b.Len())
	assert.Equal(t, sim.Price(100), b.BestBid())

	remaining, err := b.Cancel(bigBid)
	require.NoError(t, err)
	assert.Equal(t, sim.Volume(12), remaining)
}

func TestBookNeverCrossedAfterMatch(t *testing.T) {
	b := newTestBook()

	for i := 0; i < 20; i++ {
		price := 100 + sim.Price(i%5)
		_, err := b.AddOrder(limit(sim.SideBuy, price, 3), sim.Timestamp(1000+i))
		require.NoError(t, err)
		_, err = b.AddOrder(limit(sim.SideSell, price+sim.Price(i%3)-1, 3), sim.Timestamp(1000+i))
		require.NoError(t, err)
	}
	b.MatchOrders(2000)

	bid, ask := b.BestBid(), b.BestAsk()
	if bid > 0 && ask > 0 {
		assert.Less(t, bid, ask)
	}
}

func TestMarketOrderTakesOpposingPrice(t *testing.T) {
	b := newTestBook()

	_, err := b.AddOrder(limit(sim.SideSell, 105, 10), 1000)
	require.NoError(t, err)
	_, err = b.AddOrder(market(sim.SideBuy, 4), 1001)
	require.NoError(t, err)

	trades := b.MatchOrders(1002)
	require.Len(t, trades, 1)
	assert.Equal(t, sim.Price(105), trades[0].Price)
	assert.Equal(t, sim.Volume(4), trades[0].Quantity)
}

func TestMarketOrderRestsWithoutLiquidity(t *testing.T) {
	b := newTestBook()

	_, err := b.AddOrder(market(sim.SideSell, 10), 1000)
	require.NoError(t, err)

	trades := b.MatchOrders(1001)
	assert.Empty(t, trades)
	assert.Equal(t, 1, b.Len())

	// Liquidity arrives next tick; the queued market order fills then.
	_, err = b.AddOrder(limit(sim.SideBuy, 99, 10), 1002)
	require.NoError(t, err)
	trades = b.MatchOrders(1003)
	require.Len(t, trades, 1)
	assert.Equal(t, sim.Price(99), trades[0].Price)
}

func TestTwoMarketOrdersDoNotMatchEachOther(t *testing.T) {
	b := newTestBook()

	_, err := b.AddOrder(market(sim.SideBuy, 5), 1000)
	require.NoError(t, err)
	_, err = b.AddOrder(market(sim.SideSell, 5), 1001)
	require.NoError(t, err)

	trades := b.MatchOrders(1002)
	assert.Empty(t, trades)
	assert.Equal(t, 2, b.Len())
}

func TestExpiryDropsStaleOrders(t *testing.T) {
	cfg := Config{MaxOrderAgeMs: 1000}
	b := New("ACME", cfg)

	_, err := b.AddOrder(limit(sim.SideBuy, 100, 10), 0)
	require.NoError(t, err)
	fresh, err := b.AddOrder(limit(sim.SideBuy, 99, 10), 1500)
	require.NoError(t, err)

	trades := b.MatchOrders(2000)
	assert.Empty(t, trades)
	assert.Equal(t, 1, b.Len())

	_, err = b.Cancel(fresh)
	assert.NoError(t, err)
}

func TestCancelUnknownOrder(t *testing.T) {
	b := newTestBook()
	_, err := b.Cancel(42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSnapshotAggregatesLevels(t *testing.T) {
	b := newTestBook()

	_, err := b.AddOrder(limit(sim.SideBuy, 100, 5), 1000)
	require.NoError(t, err)
	_, err = b.AddOrder(limit(sim.SideBuy, 100, 7), 1001)
	require.NoError(t, err)
	_, err = b.AddOrder(limit(sim.SideBuy, 99, 3), 1002)
	require.NoError(t, err)
	_, err = b.AddOrder(limit(sim.SideSell, 101, 4), 1003)
	require.NoError(t, err)

	snap := b.Snapshot(10)
	require.Len(t, snap.Bids, 2)
	require.Len(t, snap.Asks, 1)

	assert.Equal(t, sim.Price(100), snap.Bids[0].Price)
	assert.Equal(t, sim.Volume(12), snap.Bids[0].TotalQuantity)
	assert.Equal(t, 2, snap.Bids[0].OrderCount)
	assert.Equal(t, sim.Price(99), snap.Bids[1].Price)
	assert.Equal(t, sim.Price(101), snap.Asks[0].Price)
	assert.Equal(t, sim.Price(1), snap.Spread)
	assert.Equal(t, sim.Price(100.5), snap.MidPrice)
}

func TestSnapshotDepthLimit(t *testing.T) {
	b := newTestBook()
	for i := 0; i < 8; i++ {
		_, err := b.AddOrder(limit(sim.SideBuy, sim.Price(90+i), 1), sim.Timestamp(1000+i))
		require.NoError(t, err)
	}
	snap := b.Snapshot(3)
	require.Len(t, snap.Bids, 3)
	assert.Equal(t, sim.Price(97), snap.Bids[0].Price)
	assert.Equal(t, sim.Price(96), snap.Bids[1].Price)
	assert.Equal(t, sim.Price(95), snap.Bids[2].Price)
}

func TestClearEmptiesBook(t *testing.T) {
	b := newTestBook()
	_, err := b.AddOrder(limit(sim.SideBuy, 100, 5), 1000)
	require.NoError(t, err)
	_, err = b.AddOrder(market(sim.SideSell, 2), 1001)
	require.NoError(t, err)

	b.Clear()
	assert.Equal(t, 0, b.Len())
	assert.Zero(t, b.BestBid())
	assert.Zero(t, b.BestAsk())
}
