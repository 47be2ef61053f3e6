package agent

import (
	"math"

	"github.com/zappabad/marketsim/internal/sim"
)

// MeanReversion fades moves beyond a z-score band around a rolling mean.
type MeanReversion struct {
	Base
	lookback   int
	zThreshold float64
}

func NewMeanReversion(id sim.AgentID, cash float64, params sim.AgentParams, cfg *Config, rng *sim.Rand) *MeanReversion {
	m := &MeanReversion{Base: newBase(id, cash, params, cfg, rng)}
	p := cfg.MeanReversion
	m.lookback = p.LookbackMin + rng.UniformInt(0, p.LookbackRange)
	m.zThreshold = p.ZThresholdMin + rng.Uniform(0, p.ZThresholdRange)
	return m
}

func (m *MeanReversion) Type() string { return "MeanReversion" }

func (m *MeanReversion) Decide(state *sim.MarketState) (sim.Order, bool) {
	p := m.cfg.MeanReversion
	if !m.gate(p.ReactionMult, state.TickScale) {
		return sim.Order{}, false
	}
	symbol, ok := m.pickSymbol(state)
	if !ok {
		return sim.Order{}, false
	}
	history := state.PriceHistory[symbol]
	if len(history) < m.lookback {
		return sim.Order{}, false
	}
	price, ok := state.Prices[symbol]
	if !ok {
		return sim.Order{}, false
	}

	window := history[len(history)-m.lookback:]
	mean := 0.0
	for _, v := range window {
		mean += v
	}
	mean /= float64(len(window))
	sq := 0.0
	for _, v := range window {
		sq += (v - mean) * (v - mean)
	}
	std := math.Sqrt(sq / float64(len(window)))
	if std <= 0 {
		return sim.Order{}, false
	}

	z := (price - mean) / std
	z += m.symbolSentiment[symbol]*p.SentSymbolWeight + m.globalSentiment*p.SentGlobalWeight

	switch {
	case z > m.zThreshold:
		position := m.Position(symbol)
		if position > 0 {
			confidence := math.Min(1.0, (math.Abs(z)-m.zThreshold)/2.0)
			size := minVolume(position, m.orderSize(price, confidence))
			if size > 0 {
				limit := price * (1.0 - m.rng.Uniform(0, p.LimitOffsetMax))
				return m.newOrder(symbol, sim.SideSell, sim.OrderLimit, limit, size), true
			}
		}
	case z < -m.zThreshold:
		confidence := math.Min(1.0, (math.Abs(z)-m.zThreshold)/2.0)
		size := m.orderSize(price, confidence)
		if size > 0 && m.canBuy(size, price) {
			limit := price * (1.0 + m.rng.Uniform(0, p.LimitOffsetMax))
			return m.newOrder(symbol, sim.SideBuy, sim.OrderLimit, limit, size), true
		}
	}
	return sim.Order{}, false
}
