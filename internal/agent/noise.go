package agent

import (
	"math"

	"github.com/zappabad/marketsim/internal/sim"
)

// Noise trades mostly at random, with a sentiment-weighted buy bias and a
// faster, flatter belief model than the base (all news hits one scalar and
// decays quicker).
type Noise struct {
	Base
	tradeProbability float64
	sentSensitivity  float64
}

func NewNoise(id sim.AgentID, cash float64, params sim.AgentParams, cfg *Config, rng *sim.Rand) *Noise {
	n := &Noise{Base: newBase(id, cash, params, cfg, rng)}
	p := cfg.Noise
	n.tradeProbability = p.TradeProbMin + rng.Uniform(0, p.TradeProbRange)
	n.sentSensitivity = rng.Uniform(p.SentSensitivityMin, p.SentSensitivityMax)
	return n
}

func (n *Noise) Type() string { return "Noise" }

// UpdateBeliefs ignores the layered model: any news nudges the single
// sentiment scalar, scaled by this trader's excitability.
func (n *Noise) UpdateBeliefs(ev sim.NewsEvent) {
	impact := ev.Magnitude * n.params.NewsWeight * n.sentSensitivity * n.cfg.Noise.OverreactionMult
	n.globalSentiment += impact * ev.Sentiment.Sign()
}

// DecaySentiment uses the noise trader's own, slower-fading rates.
func (n *Noise) DecaySentiment(tickScale float64) {
	p := n.cfg.Noise
	n.decayLayers(p.SentimentDecay, p.IndustrySentDecay, p.SymbolSentDecay, tickScale)
}

func (n *Noise) Decide(state *sim.MarketState) (sim.Order, bool) {
	p := n.cfg.Noise

	effectiveProb := n.tradeProbability * (1.0 + math.Abs(n.globalSentiment)) * state.TickScale
	if n.rng.Float64() > effectiveProb {
		return sim.Order{}, false
	}
	symbol, ok := n.pickSymbol(state)
	if !ok {
		return sim.Order{}, false
	}
	price := state.Prices[symbol]
	if price <= 0 {
		return sim.Order{}, false
	}

	buyProb := 0.5 + n.globalSentiment*p.BuyBiasSentWeight + n.rng.Normal(0, p.BuyBiasNoiseStd)
	if n.rng.Float64() < buyProb {
		confidence := n.rng.Uniform(p.ConfidenceMin, p.ConfidenceMax)
		size := n.orderSize(price, confidence)
		if size > 0 && n.canBuy(size, price) {
			typ := sim.OrderLimit
			if n.rng.Float64() < p.MarketOrderProb {
				typ = sim.OrderMarket
			}
			limit := price * (1.0 + n.rng.Uniform(p.LimitOffsetMin, p.LimitOffsetMax))
			return n.newOrder(symbol, sim.SideBuy, typ, limit, size), true
		}
	} else {
		position := n.Position(symbol)
		if position > 0 {
			confidence := n.rng.Uniform(p.ConfidenceMin, p.ConfidenceMax)
			size := minVolume(position, n.orderSize(price, confidence))
			if size > 0 {
				typ := sim.OrderLimit
				if n.rng.Float64() < p.MarketOrderProb {
					typ = sim.OrderMarket
				}
				limit := price * (1.0 - n.rng.Uniform(p.LimitOffsetMin, p.LimitOffsetMax))
				return n.newOrder(symbol, sim.SideSell, typ, limit, size), true
			}
		}
	}
	return sim.Order{}, false
}
