package agent

import (
	"math"

	"github.com/zappabad/marketsim/internal/sim"
)

// CrossEffects watches for a detected move in one instrument and trades a
// related one, scaled by the configured propagation coefficient.
type CrossEffects struct {
	Base
	lookback   int
	threshold  float64
	lastPrices map[string]sim.Price
}

func NewCrossEffects(id sim.AgentID, cash float64, params sim.AgentParams, cfg *Config, rng *sim.Rand) *CrossEffects {
	c := &CrossEffects{
		Base:       newBase(id, cash, params, cfg, rng),
		lastPrices: map[string]sim.Price{},
	}
	p := cfg.CrossEffects
	c.lookback = p.LookbackMin + rng.UniformInt(0, p.LookbackRange)
	c.threshold = p.ThresholdBase + p.ThresholdRiskScale*params.RiskAversion
	return c
}

func (c *CrossEffects) Type() string { return "CrossEffects" }

func (c *CrossEffects) Decide(state *sim.MarketState) (sim.Order, bool) {
	p := c.cfg.CrossEffects
	if !c.gate(p.ReactionMult, state.TickScale) {
		c.recordPrices(state)
		return sim.Order{}, false
	}
	if len(state.Symbols) == 0 || len(state.CrossEffects) == 0 {
		c.recordPrices(state)
		return sim.Order{}, false
	}
	defer c.recordPrices(state)

	for _, source := range state.Symbols {
		effects, ok := state.CrossEffects[source]
		if !ok {
			continue
		}
		sourceChange := c.priceChange(source, state.Prices[source])
		if math.Abs(sourceChange) <= c.threshold {
			continue
		}
		for _, effect := range effects {
			target := effect.TargetSymbol
			price, ok := state.Prices[target]
			if !ok {
				continue
			}
			expected := sourceChange * effect.Coefficient * p.CrossEffectWeight

			if expected > 0.01 {
				confidence := math.Min(1.0, expected/0.05)
				size := c.orderSize(price, confidence)
				if size > 0 && c.canBuy(size, price) {
					limit := price * (1.0 + c.rng.Uniform(0, 0.003))
					return c.newOrder(target, sim.SideBuy, sim.OrderLimit, limit, size), true
				}
			} else if expected < -0.01 {
				position := c.Position(target)
				if position > 0 {
					confidence := math.Min(1.0, math.Abs(expected)/0.05)
					size := minVolume(position, c.orderSize(price, confidence))
					if size > 0 {
						limit := price * (1.0 - c.rng.Uniform(0, 0.003))
						return c.newOrder(target, sim.SideSell, sim.OrderLimit, limit, size), true
					}
				}
			}
		}
	}
	return sim.Order{}, false
}

func (c *CrossEffects) recordPrices(state *sim.MarketState) {
	for _, symbol := range state.Symbols {
		c.lastPrices[symbol] = state.Prices[symbol]
	}
}

func (c *CrossEffects) priceChange(symbol string, current sim.Price) float64 {
	last, ok := c.lastPrices[symbol]
	if !ok || last <= 0 {
		return 0
	}
	return (current - last) / last
}
