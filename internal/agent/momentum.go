package agent

import (
	"math"

	"github.com/zappabad/marketsim/internal/sim"
)

// Momentum trades short/long moving-average crossovers, tilted by sentiment.
type Momentum struct {
	Base
	shortPeriod int
	longPeriod  int
}

func NewMomentum(id sim.AgentID, cash float64, params sim.AgentParams, cfg *Config, rng *sim.Rand) *Momentum {
	m := &Momentum{Base: newBase(id, cash, params, cfg, rng)}
	p := cfg.Momentum
	m.shortPeriod = p.ShortPeriodMin + rng.UniformInt(0, p.ShortPeriodRange)
	m.longPeriod = m.shortPeriod + p.LongPeriodOffsetMin + rng.UniformInt(0, p.LongPeriodOffsetRange)
	return m
}

func (m *Momentum) Type() string { return "Momentum" }

func movingAverage(history []sim.Price, period int) float64 {
	if len(history) < period {
		return 0
	}
	sum := 0.0
	for _, p := range history[len(history)-period:] {
		sum += p
	}
	return sum / float64(period)
}

func (m *Momentum) Decide(state *sim.MarketState) (sim.Order, bool) {
	p := m.cfg.Momentum
	if !m.gate(p.ReactionMult, state.TickScale) {
		return sim.Order{}, false
	}
	symbol, ok := m.pickSymbol(state)
	if !ok {
		return sim.Order{}, false
	}
	history := state.PriceHistory[symbol]
	if len(history) < m.longPeriod {
		return sim.Order{}, false
	}
	price, ok := state.Prices[symbol]
	if !ok {
		return sim.Order{}, false
	}

	shortMA := movingAverage(history, m.shortPeriod)
	longMA := movingAverage(history, m.longPeriod)
	if shortMA <= 0 || longMA <= 0 {
		return sim.Order{}, false
	}

	signal := (shortMA - longMA) / longMA
	signal += m.symbolSentiment[symbol]*p.SymbolSentWeight + m.globalSentiment*p.GlobalSentWeight

	threshold := p.SignalThresholdRiskScale * m.params.RiskAversion

	switch {
	case signal > threshold:
		confidence := math.Min(1.0, math.Abs(signal)/0.02)
		size := m.orderSize(price, confidence)
		if size > 0 && m.canBuy(size, price) {
			limit := price * (1.0 + m.rng.Uniform(p.LimitOffsetMin, p.LimitOffsetMax))
			return m.newOrder(symbol, sim.SideBuy, sim.OrderLimit, limit, size), true
		}
	case signal < -threshold:
		position := m.Position(symbol)
		if position > 0 {
			confidence := math.Min(1.0, math.Abs(signal)/0.02)
			size := minVolume(position, m.orderSize(price, confidence))
			if size > 0 {
				limit := price * (1.0 - m.rng.Uniform(p.LimitOffsetMin, p.LimitOffsetMax))
				return m.newOrder(symbol, sim.SideSell, sim.OrderLimit, limit, size), true
			}
		}
	}
	return sim.Order{}, false
}
