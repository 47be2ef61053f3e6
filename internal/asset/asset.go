// Package asset models a single tradable instrument: its market price,
// slow-moving fundamental value, bounded price history, and the daily
// circuit breaker that halts trade-driven price impact.
package asset

import (
	"math"

	"github.com/zappabad/marketsim/internal/sim"
)

const maxHistory = 1000

// Config holds the per-asset price mechanics tunables.
type Config struct {
	// ImpactDampening blends a trade print toward the current price.
	// 1.0 jumps fully to the trade price, lower values dampen.
	ImpactDampening float64 `json:"impactDampening"`
	// MaxDailyMove is the circuit breaker band around the day's open.
	MaxDailyMove float64 `json:"maxDailyMove"`
	// ShockClamp bounds the per-update fundamental shock magnitude.
	ShockClamp float64 `json:"shockClamp"`
	// PriceFloor is the absolute minimum price.
	PriceFloor sim.Price `json:"priceFloor"`
}

// DefaultConfig returns the standard price mechanics.
func DefaultConfig() Config {
	return Config{
		ImpactDampening: 0.5,
		MaxDailyMove:    0.15,
		ShockClamp:      0.05,
		PriceFloor:      0.01,
	}
}

// Asset is one instrument. Deterministic value type: no goroutines, mutexes,
// channels, or time calls; the engine serializes access.
type Asset struct {
	symbol   string
	name     string
	industry string

	cfg Config

	price       sim.Price
	fundamental sim.Price
	volatility  float64
	liquidity   float64

	sharesOutstanding int64
	dailyVolume       sim.Volume

	history []sim.Price

	dayOpen       sim.Price
	circuitBroken bool
}

// New creates an asset trading at initialPrice with fundamental value equal
// to it.
func New(symbol, name, industry string, initialPrice sim.Price, volatility float64, sharesOutstanding int64, cfg Config) *Asset {
	a := &Asset{
		symbol:            symbol,
		name:              name,
		industry:          industry,
		cfg:               cfg,
		price:             initialPrice,
		fundamental:       initialPrice,
		volatility:        volatility,
		liquidity:         1.0,
		sharesOutstanding: sharesOutstanding,
		history:           make([]sim.Price, 0, maxHistory),
	}
	a.history = append(a.history, initialPrice)
	return a
}

func (a *Asset) Symbol() string             { return a.symbol }
func (a *Asset) Name() string               { return a.name }
func (a *Asset) Industry() string           { return a.industry }
func (a *Asset) Price() sim.Price           { return a.price }
func (a *Asset) Fundamental() sim.Price     { return a.fundamental }
func (a *Asset) Volatility() float64        { return a.volatility }
func (a *Asset) Liquidity() float64         { return a.liquidity }
func (a *Asset) SharesOutstanding() int64   { return a.sharesOutstanding }
func (a *Asset) DailyVolume() sim.Volume    { return a.dailyVolume }
func (a *Asset) MarketCap() float64         { return a.price * float64(a.sharesOutstanding) }
func (a *Asset) Mispricing() float64        { return a.fundamental - a.price }
func (a *Asset) CircuitBroken() bool        { return a.circuitBroken }
func (a *Asset) DayOpen() sim.Price         { return a.dayOpen }
func (a *Asset) History() []sim.Price       { return a.history }
func (a *Asset) SetFundamental(v sim.Price) { a.fundamental = v }

// SetPrice records a new price, flooring it and clamping it to the circuit
// breaker band around the day's open. Tripping the band marks the breaker;
// it stays tripped until the next day boundary.
func (a *Asset) SetPrice(p sim.Price) {
	if p <= 0 {
		p = a.cfg.PriceFloor
	}
	if a.dayOpen > 0 && a.cfg.MaxDailyMove > 0 {
		move := (p - a.dayOpen) / a.dayOpen
		if math.Abs(move) > a.cfg.MaxDailyMove {
			a.circuitBroken = true
			sign := 1.0
			if move < 0 {
				sign = -1.0
			}
			p = a.dayOpen * (1.0 + sign*a.cfg.MaxDailyMove)
		}
	}

	a.price = p
	a.history = append(a.history, p)
	if len(a.history) > maxHistory {
		a.history = a.history[1:]
	}

	a.liquidity = math.Min(2.0, math.Max(0.1,
		float64(a.dailyVolume)/(float64(a.sharesOutstanding)*0.01)))
}

// RestorePrice pins the price directly, bypassing the circuit breaker, and
// re-opens the day at the restored level. Used by restore, where the new
// price has no relation to the abandoned day's open.
func (a *Asset) RestorePrice(p sim.Price) {
	if p < a.cfg.PriceFloor {
		p = a.cfg.PriceFloor
	}
	a.price = p
	a.dayOpen = p
	a.dailyVolume = 0
	a.circuitBroken = false
	a.history = append(a.history, p)
	if len(a.history) > maxHistory {
		a.history = a.history[1:]
	}
}

// ApplyTradePrice blends a trade print toward the current price. Ignored
// while the circuit breaker is tripped.
func (a *Asset) ApplyTradePrice(tradePrice sim.Price, qty sim.Volume) {
	if tradePrice <= 0 || a.circuitBroken {
		return
	}
	alpha := a.cfg.ImpactDampening
	a.SetPrice(a.price*(1.0-alpha) + tradePrice*alpha)
}

// UpdateFundamental applies the tick's macro, industry and company shocks
// plus the base growth rate, clamped, as a multiplicative log shock.
func (a *Asset) UpdateFundamental(globalShock, industryShock, companyShock, growthRate float64) {
	total := growthRate + globalShock + industryShock + companyShock
	if total > a.cfg.ShockClamp {
		total = a.cfg.ShockClamp
	} else if total < -a.cfg.ShockClamp {
		total = -a.cfg.ShockClamp
	}
	a.fundamental *= math.Exp(total)
	if a.fundamental < a.cfg.PriceFloor {
		a.fundamental = a.cfg.PriceFloor
	}
}

// AddVolume accumulates into the daily traded volume.
func (a *Asset) AddVolume(v sim.Volume) { a.dailyVolume += v }

// MarkDayOpen pins today's reference price for the circuit breaker and
// resets daily counters. Called at every simulated day boundary.
func (a *Asset) MarkDayOpen() {
	a.dayOpen = a.price
	a.dailyVolume = 0
	a.circuitBroken = false
}

// Return computes the fractional price change over the last periods ticks,
// or 0 when there is not enough history.
func (a *Asset) Return(periods int) float64 {
	if len(a.history) < periods+1 {
		return 0
	}
	old := a.history[len(a.history)-periods-1]
	if old <= 0 {
		return 0
	}
	return (a.price - old) / old
}

// VolatilityEstimate is the stddev of the last periods single-tick returns,
// falling back to the configured base volatility when history is short.
func (a *Asset) VolatilityEstimate(periods int) float64 {
	if len(a.history) < periods+1 {
		return a.volatility
	}
	returns := make([]float64, 0, periods)
	start := len(a.history) - periods - 1
	for i := start; i < len(a.history)-1; i++ {
		if a.history[i] > 0 {
			returns = append(returns, (a.history[i+1]-a.history[i])/a.history[i])
		}
	}
	if len(returns) == 0 {
		return a.volatility
	}
	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))
	sq := 0.0
	for _, r := range returns {
		sq += (r - mean) * (r - mean)
	}
	return math.Sqrt(sq / float64(len(returns)))
}
