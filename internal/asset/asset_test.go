package asset

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zappabad/marketsim/internal/sim"
)

func newTestAsset() *Asset {
	return New("ACME", "Acme Corp", "TECH", 100, 0.02, 1_000_000, DefaultConfig())
}

func TestNewAsset(t *testing.T) {
	a := newTestAsset()
	assert.Equal(t, "ACME", a.Symbol())
	assert.Equal(t, "TECH", a.Industry())
	assert.Equal(t, sim.Price(100), a.Price())
	assert.Equal(t, sim.Price(100), a.Fundamental())
	assert.Zero(t, a.Mispricing())
	assert.Len(t, a.History(), 1)
}

func TestSetPriceFloor(t *testing.T) {
	a := newTestAsset()
	a.SetPrice(-5)
	assert.Equal(t, sim.Price(0.01), a.Price())
}

func TestCircuitBreakerClampsDailyMove(t *testing.T) {
	a := newTestAsset()
	a.MarkDayOpen()

	a.SetPrice(130) // +30% against a 15% band
	assert.True(t, a.CircuitBroken())
	assert.InDelta(t, 115, a.Price(), 1e-9)

	// Further trade impact is ignored while halted.
	a.ApplyTradePrice(150, 10)
	assert.InDelta(t, 115, a.Price(), 1e-9)

	// Day boundary re-arms the breaker at the new open.
	a.MarkDayOpen()
	assert.False(t, a.CircuitBroken())
	a.ApplyTradePrice(120, 10)
	assert.Greater(t, a.Price(), sim.Price(115))
}

func TestCircuitBreakerDownside(t *testing.T) {
	a := newTestAsset()
	a.MarkDayOpen()
	a.SetPrice(50)
	assert.True(t, a.CircuitBroken())
	assert.InDelta(t, 85, a.Price(), 1e-9)
}

func TestRestorePriceBypassesBreaker(t *testing.T) {
	a := newTestAsset()
	a.MarkDayOpen()
	a.AddVolume(500)

	a.RestorePrice(150) // far outside the 15% band
	assert.Equal(t, sim.Price(150), a.Price())
	assert.False(t, a.CircuitBroken())
	assert.Equal(t, sim.Price(150), a.DayOpen())
	assert.Zero(t, a.DailyVolume())

	// The restored level is the new breaker reference.
	a.SetPrice(180)
	assert.True(t, a.CircuitBroken())
	assert.InDelta(t, 172.5, a.Price(), 1e-9)
}

func TestApplyTradePriceDampens(t *testing.T) {
	a := newTestAsset()
	a.ApplyTradePrice(110, 10)
	// 50% blend toward the print.
	assert.InDelta(t, 105, a.Price(), 1e-9)
}

func TestUpdateFundamentalClampsShock(t *testing.T) {
	a := newTestAsset()
	a.UpdateFundamental(1.0, 0, 0, 0) // absurd shock, clamped to +0.05
	assert.InDelta(t, 100*1.0512710963, a.Fundamental(), 1e-6)

	a = newTestAsset()
	a.UpdateFundamental(-1.0, 0, 0, 0)
	assert.InDelta(t, 100*0.9512294245, a.Fundamental(), 1e-6)
}

func TestUpdateFundamentalCombinesShocks(t *testing.T) {
	a := newTestAsset()
	a.UpdateFundamental(0.01, 0.005, -0.002, 0.001)
	assert.InDelta(t, 100*1.0140984, a.Fundamental(), 1e-3)
}

func TestHistoryBounded(t *testing.T) {
	a := newTestAsset()
	for i := 0; i < 1500; i++ {
		a.SetPrice(100 + sim.Price(i%10))
	}
	assert.Len(t, a.History(), 1000)
}

func TestReturn(t *testing.T) {
	a := newTestAsset()
	a.SetPrice(110)
	assert.InDelta(t, 0.10, a.Return(1), 1e-9)
	assert.Zero(t, a.Return(5)) // not enough history
}

func TestDailyVolumeResetsAtOpen(t *testing.T) {
	a := newTestAsset()
	a.AddVolume(500)
	assert.Equal(t, sim.Volume(500), a.DailyVolume())
	a.MarkDayOpen()
	assert.Zero(t, a.DailyVolume())
}

func TestVolatilityEstimate(t *testing.T) {
	a := newTestAsset()
	// Short history falls back to the configured base.
	assert.Equal(t, 0.02, a.VolatilityEstimate(20))

	// A flat price series has zero realized volatility.
	for i := 0; i < 30; i++ {
		a.SetPrice(100)
	}
	assert.InDelta(t, 0, a.VolatilityEstimate(20), 1e-12)

	// Alternating prices have positive realized volatility.
	for i := 0; i < 30; i++ {
		if i%2 == 0 {
			a.SetPrice(101)
		} else {
			a.SetPrice(100)
		}
	}
	assert.Greater(t, a.VolatilityEstimate(20), 0.001)
}
