package agent

import (
	"math"

	"github.com/zappabad/marketsim/internal/sim"
)

// Inventory rebalances toward a target capital allocation, always trading
// the instrument with the largest deviation from target.
type Inventory struct {
	Base
	targetRatio        float64
	rebalanceThreshold float64
}

func NewInventory(id sim.AgentID, cash float64, params sim.AgentParams, cfg *Config, rng *sim.Rand) *Inventory {
	i := &Inventory{Base: newBase(id, cash, params, cfg, rng)}
	p := cfg.Inventory
	i.targetRatio = p.TargetRatioBase + rng.Uniform(0, p.TargetRatioRange)
	i.rebalanceThreshold = p.RebalanceThresholdBase + p.RebalanceThresholdRiskScale*params.RiskAversion
	return i
}

func (i *Inventory) Type() string { return "Inventory" }

func (i *Inventory) Decide(state *sim.MarketState) (sim.Order, bool) {
	p := i.cfg.Inventory
	if !i.gate(p.ReactionMult, state.TickScale) {
		return sim.Order{}, false
	}
	if len(state.Symbols) == 0 {
		return sim.Order{}, false
	}

	totalValue := i.TotalValue(state.Prices)
	targetValue := totalValue * i.targetRatio
	perSymbolTarget := targetValue / float64(len(state.Symbols))
	norm := totalValue
	if norm <= 0 {
		norm = 1
	}

	bestSymbol := ""
	bestDeviation := 0.0
	bestSide := sim.SideBuy
	for _, symbol := range state.Symbols {
		price := state.Prices[symbol]
		positionValue := float64(i.Position(symbol)) * price
		deviation := (positionValue - perSymbolTarget) / norm
		if math.Abs(deviation) > math.Abs(bestDeviation) {
			bestDeviation = deviation
			bestSymbol = symbol
			if deviation < 0 {
				bestSide = sim.SideBuy
			} else {
				bestSide = sim.SideSell
			}
		}
	}

	if bestSymbol == "" || math.Abs(bestDeviation) < i.rebalanceThreshold {
		return sim.Order{}, false
	}

	price := state.Prices[bestSymbol]
	confidence := math.Min(1.0, math.Abs(bestDeviation)/0.1)
	size := i.orderSize(price, confidence)

	if bestSide == sim.SideBuy {
		if size > 0 && i.canBuy(size, price) {
			limit := price * (1.0 + i.rng.Uniform(0, 0.002))
			return i.newOrder(bestSymbol, sim.SideBuy, sim.OrderLimit, limit, size), true
		}
		return sim.Order{}, false
	}

	size = minVolume(size, i.Position(bestSymbol))
	if size > 0 {
		limit := price * (1.0 - i.rng.Uniform(0, 0.002))
		return i.newOrder(bestSymbol, sim.SideSell, sim.OrderLimit, limit, size), true
	}
	return sim.Order{}, false
}
