package agent

import (
	"math"

	"github.com/zappabad/marketsim/internal/sim"
)

// Fundamental trades the gap between its noisy, sentiment-biased estimate of
// fair value and the market price.
type Fundamental struct {
	Base
	threshold float64
	noiseStd  float64
}

func NewFundamental(id sim.AgentID, cash float64, params sim.AgentParams, cfg *Config, rng *sim.Rand) *Fundamental {
	f := &Fundamental{Base: newBase(id, cash, params, cfg, rng)}
	f.threshold = cfg.Fundamental.ThresholdBase + cfg.Fundamental.ThresholdRiskScale*params.RiskAversion
	f.noiseStd = cfg.Fundamental.NoiseStdBase + cfg.Fundamental.NoiseStdRange*rng.Float64()
	return f
}

func (f *Fundamental) Type() string { return "Fundamental" }

func (f *Fundamental) Decide(state *sim.MarketState) (sim.Order, bool) {
	p := f.cfg.Fundamental
	if !f.gate(p.ReactionMult, state.TickScale) {
		return sim.Order{}, false
	}
	symbol, ok := f.pickSymbol(state)
	if !ok {
		return sim.Order{}, false
	}
	price := state.Prices[symbol]
	fundamental, ok := state.Fundamentals[symbol]
	if !ok || price <= 0 {
		return sim.Order{}, false
	}

	estimate := fundamental * (1.0 + f.rng.Normal(0, f.noiseStd))
	sentiment := f.combinedSentiment(symbol, state.SymbolToIndustry[symbol])
	estimate *= 1.0 + sentiment*p.SentimentImpact

	mispricing := (estimate - price) / price

	switch {
	case mispricing > f.threshold:
		confidence := math.Min(1.0, math.Abs(mispricing)/0.1)
		size := f.orderSize(price, confidence)
		if size > 0 && f.canBuy(size, price) {
			limit := price * (1.0 + f.rng.Uniform(0, p.LimitOffsetMax))
			return f.newOrder(symbol, sim.SideBuy, sim.OrderLimit, limit, size), true
		}
	case mispricing < -f.threshold:
		position := f.Position(symbol)
		if position > 0 {
			confidence := math.Min(1.0, math.Abs(mispricing)/0.1)
			size := minVolume(position, f.orderSize(price, confidence))
			if size > 0 {
				limit := price * (1.0 - f.rng.Uniform(0, p.LimitOffsetMax))
				return f.newOrder(symbol, sim.SideSell, sim.OrderLimit, limit, size), true
			}
		}
	}
	return sim.Order{}, false
}
