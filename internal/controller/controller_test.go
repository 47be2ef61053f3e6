package controller

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/zappabad/marketsim/internal/agent"
	"github.com/zappabad/marketsim/internal/config"
	"github.com/zappabad/marketsim/internal/sim"
)

func smallConfig() config.Config {
	cfg := config.DefaultConfig()
	cfg.Simulation.TicksPerDay = 1000
	cfg.Simulation.TickRateMs = 2
	cfg.Simulation.PopulateDays = 2
	cfg.Simulation.PopulateTicksPerDay = 10
	cfg.Simulation.PopulateFineTicksPerDay = 20
	cfg.Simulation.PopulateFineDays = 1
	cfg.Counts = agent.Counts{Fundamental: 3, Momentum: 2, Noise: 3, MarketMaker: 2, Event: 1}
	cfg.Instruments = []config.Instrument{
		{Symbol: "ACME", Name: "Acme Corp", Industry: "TECH", InitialPrice: 100, Volatility: 0.02, SharesOutstanding: 1_000_000},
		{Symbol: "GLOB", Name: "Global Energy", Industry: "ENERGY", InitialPrice: 50, Volatility: 0.03, SharesOutstanding: 2_000_000},
	}
	cfg.CrossEffects = map[string][]sim.CrossEffect{
		"ACME": {{TargetSymbol: "GLOB", Coefficient: 0.5}},
	}
	cfg.Server.ArchiveEnabled = false
	return cfg
}

func newController(t *testing.T) *Controller {
	t.Helper()
	c, err := New(smallConfig(), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := smallConfig()
	cfg.Instruments = nil
	_, err := New(cfg, zap.NewNop())
	assert.Error(t, err)
}

func TestStepAdvancesTicks(t *testing.T) {
	c := newController(t)
	require.NoError(t, c.Step(25))
	assert.Equal(t, uint64(25), c.Status().TotalTicks)
	assert.Equal(t, StateStopped, c.State())
}

func TestStepRejectsBadCount(t *testing.T) {
	c := newController(t)
	assert.Error(t, c.Step(0))
}

func TestStartPauseResumeStop(t *testing.T) {
	c := newController(t)

	require.NoError(t, c.Start())
	assert.Error(t, c.Start()) // already running
	waitFor(t, func() bool { return c.Status().TotalTicks > 0 })

	require.NoError(t, c.Pause())
	assert.Equal(t, StatePaused, c.State())
	ticks := c.Status().TotalTicks

	// Paused loop is really stopped.
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, ticks, c.Status().TotalTicks)

	require.NoError(t, c.Start())
	waitFor(t, func() bool { return c.Status().TotalTicks > ticks })
	require.NoError(t, c.Stop())
	assert.Equal(t, StateStopped, c.State())
}

func TestStepWhileRunningFails(t *testing.T) {
	c := newController(t)
	require.NoError(t, c.Start())
	defer func() { _ = c.Stop() }()
	assert.Error(t, c.Step(1))
}

func TestPopulateTwoPhases(t *testing.T) {
	c := newController(t)
	require.NoError(t, c.Populate())
	assert.Error(t, c.Start()) // blocked during populate

	waitFor(t, func() bool { return c.State() == StatePaused })

	st := c.Status()
	// 1 coarse day x 10 ticks + 1 fine day x 20 ticks.
	assert.Equal(t, int64(30), st.PopulateTotal)
	assert.Equal(t, int64(30), st.PopulateDone)
	assert.Equal(t, uint64(30), st.TotalTicks)
	// Live granularity restored.
	assert.Equal(t, 1000, st.TicksPerDay)
	// Two simulated days elapsed.
	assert.Equal(t, sim.Timestamp(2*86_400_000), st.SimTime-mustParse(t, "2024-01-02"))
}

func TestPopulateWhilePopulatingRejected(t *testing.T) {
	cfg := smallConfig()
	cfg.Simulation.PopulateDays = 60
	cfg.Simulation.PopulateTicksPerDay = 200
	c, err := New(cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	require.NoError(t, c.Populate())
	assert.Error(t, c.Populate())
	assert.Equal(t, StatePopulating, c.State())

	waitFor(t, func() bool { return c.State() == StatePaused })
}

func TestManualSellZeroFill(t *testing.T) {
	c := newController(t)

	// No ticks have run, so the book is empty; a market sell rests unfilled.
	_, filled, avgPrice, err := c.SubmitOrder(sim.Order{
		Symbol:   "ACME",
		Side:     sim.SideSell,
		Type:     sim.OrderMarket,
		Quantity: 10,
	})
	require.NoError(t, err)
	assert.Zero(t, filled)
	assert.Zero(t, avgPrice)
}

func mustParse(t *testing.T, date string) sim.Timestamp {
	t.Helper()
	ms, err := sim.ParseDate(date)
	require.NoError(t, err)
	return ms
}

func TestSubscribeReceivesUpdates(t *testing.T) {
	c := newController(t)
	id, ch := c.Subscribe(8)

	require.NoError(t, c.Step(1))
	select {
	case update := <-ch:
		assert.Equal(t, "STOPPED", update.State)
		assert.Contains(t, update.Prices, "ACME")
	case <-time.After(time.Second):
		t.Fatal("no update received")
	}

	c.Unsubscribe(id)
	_, open := <-ch
	assert.False(t, open)
}

func TestInjectNewsVisibleAfterStep(t *testing.T) {
	c := newController(t)
	c.InjectNews(sim.NewsEvent{
		Category:  sim.NewsCompany,
		Symbol:    "ACME",
		Sentiment: sim.SentimentPositive,
		Magnitude: 0.3,
	})
	require.NoError(t, c.Step(1))

	found := false
	for _, ev := range c.RecentNews(0) {
		if ev.Symbol == "ACME" && ev.Magnitude == 0.3 {
			found = true
		}
	}
	assert.True(t, found)
}

func TestSubmitAndCancelOrder(t *testing.T) {
	c := newController(t)

	id, filled, _, err := c.SubmitOrder(sim.Order{
		Symbol: "ACME", Side: sim.SideBuy, Type: sim.OrderLimit, Price: 95, Quantity: 10,
	})
	require.NoError(t, err)
	assert.Zero(t, filled)

	snap, err := c.BookSnapshot("ACME", 5)
	require.NoError(t, err)
	require.NotEmpty(t, snap.Bids)
	assert.Equal(t, sim.Price(95), snap.BestBid)

	remaining, err := c.CancelOrder("ACME", id)
	require.NoError(t, err)
	assert.Equal(t, sim.Volume(10), remaining)
}

func TestUpdateConfigPatch(t *testing.T) {
	c := newController(t)

	cfg, err := c.UpdateConfig([]byte(`{"simulation":{"tickRateMs":9}}`))
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.Simulation.TickRateMs)
	assert.Equal(t, 9, c.Status().TickRateMs)

	_, err = c.UpdateConfig([]byte(`{"simulation":{"ticksPerDay":-5}}`))
	assert.Error(t, err)
	assert.Equal(t, 9, c.Config().Simulation.TickRateMs)
}

func TestResetConfigKeepsServer(t *testing.T) {
	c := newController(t)
	_, err := c.UpdateConfig([]byte(`{"server":{"listenAddr":":7777"},"simulation":{"tickRateMs":9}}`))
	require.NoError(t, err)

	cfg := c.ResetConfig()
	assert.Equal(t, ":7777", cfg.Server.ListenAddr)
	assert.Equal(t, config.DefaultConfig().Simulation.TickRateMs, cfg.Simulation.TickRateMs)
}

func TestReinitializeDiscardsState(t *testing.T) {
	c := newController(t)
	require.NoError(t, c.Step(10))
	require.NoError(t, c.Reinitialize())
	assert.Equal(t, uint64(0), c.Status().TotalTicks)
	assert.Equal(t, sim.Price(100), c.MarketState().Prices["ACME"])
}

func TestRestoreRewindsCleanly(t *testing.T) {
	c := newController(t)
	require.NoError(t, c.Step(10))
	_, _, _, err := c.SubmitOrder(sim.Order{
		Symbol: "ACME", Side: sim.SideBuy, Type: sim.OrderLimit, Price: 90, Quantity: 5,
	})
	require.NoError(t, err)

	require.NoError(t, c.Restore("2024-02-01", map[string]sim.Price{"ACME": 123}))

	state := c.MarketState()
	assert.Equal(t, sim.Price(123), state.Prices["ACME"])
	assert.Equal(t, mustParse(t, "2024-02-01"), state.CurrentTime)

	snap, err := c.BookSnapshot("ACME", 5)
	require.NoError(t, err)
	assert.Empty(t, snap.Bids)

	assert.Error(t, c.Restore("2024-02-01", map[string]sim.Price{"NOPE": 1}))
	assert.Error(t, c.Restore("bad-date", nil))
}

func TestConcurrentReadsWhileRunning(t *testing.T) {
	c := newController(t)
	require.NoError(t, c.Start())

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 50; i++ {
			_ = c.Status()
			_ = c.MarketState()
			_ = c.Assets()
			_ = c.Metrics()
			_ = c.Agents()
			time.Sleep(time.Millisecond)
		}
	}()
	<-done
	require.NoError(t, c.Stop())
}

func TestArchiveRecordsTicks(t *testing.T) {
	cfg := smallConfig()
	cfg.Server.ArchiveEnabled = true
	cfg.Server.ArchivePath = t.TempDir()
	c, err := New(cfg, zap.NewNop())
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	require.NoError(t, c.Step(5))

	recs, err := c.ArchiveTicks(0, 0, 0)
	require.NoError(t, err)
	require.Len(t, recs, 1) // Step archives the final snapshot
	assert.Contains(t, recs[0].Prices, "ACME")
}

func TestArchiveDisabled(t *testing.T) {
	c := newController(t)
	_, err := c.ArchiveTicks(0, 0, 0)
	assert.Error(t, err)
}
