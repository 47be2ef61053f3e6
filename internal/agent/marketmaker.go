package agent

import (
	"math"

	"github.com/zappabad/marketsim/internal/sim"
)

// MarketMaker quotes both sides of every instrument, widening its spread
// with realized volatility and sentiment and skewing quotes against its
// inventory. Inventory may run short down to -maxInventory so liquidity
// provision stays symmetric.
type MarketMaker struct {
	Base
	baseSpread    float64
	inventorySkew float64
	maxInventory  sim.Volume
}

func NewMarketMaker(id sim.AgentID, cash float64, params sim.AgentParams, cfg *Config, rng *sim.Rand) *MarketMaker {
	m := &MarketMaker{Base: newBase(id, cash, params, cfg, rng)}
	p := cfg.MarketMaker
	m.baseSpread = rng.Uniform(p.BaseSpreadMin, p.BaseSpreadMax)
	m.inventorySkew = rng.Uniform(p.InventorySkewMin, p.InventorySkewMax)
	m.maxInventory = p.MaxInventoryMin + sim.Volume(rng.UniformInt(0, int(p.MaxInventoryMax-p.MaxInventoryMin)))
	return m
}

func (m *MarketMaker) Type() string { return "MarketMaker" }

// Decide quotes every instrument and submits one of the quotes at random;
// the rest of the two-sided book builds up across ticks.
func (m *MarketMaker) Decide(state *sim.MarketState) (sim.Order, bool) {
	quotes := m.quoteMarket(state)
	if len(quotes) == 0 {
		return sim.Order{}, false
	}
	return quotes[m.rng.UniformInt(0, len(quotes)-1)], true
}

func (m *MarketMaker) quoteMarket(state *sim.MarketState) []sim.Order {
	p := m.cfg.MarketMaker
	var orders []sim.Order

	for _, symbol := range state.Symbols {
		price := state.Prices[symbol]
		if price <= 0 {
			continue
		}

		volatility := realizedVolatility(state.PriceHistory[symbol])
		spread := m.baseSpread * (1.0 + volatility*p.VolatilitySpreadMult)
		spread *= 1.0 + math.Abs(m.globalSentiment)*p.SentimentSpreadMult

		// Blend the quote mid toward fundamental value so fundamental
		// moves transmit into market prices.
		mid := price
		if f, ok := state.Fundamentals[symbol]; ok && f > 0 {
			mid = price*(1.0-p.FundamentalWeight) + f*p.FundamentalWeight
		}
		halfSpread := spread * mid / 2.0

		inventory := m.Position(symbol)

		// Skew is clamped so neither quote crosses the mid.
		skewShift := float64(inventory) * m.inventorySkew * mid
		skewShift = math.Max(-halfSpread, math.Min(halfSpread, skewShift))

		bid := mid - halfSpread - skewShift
		ask := mid + halfSpread - skewShift
		bid = math.Max(0.01, bid)
		ask = math.Max(bid+0.01, ask)

		baseSize := sim.Volume(m.cash * p.QuoteCapitalFrac / price)
		if baseSize < 1 {
			baseSize = 1
		}

		if inventory < m.maxInventory && m.canBuy(baseSize, bid) {
			orders = append(orders, m.newOrder(symbol, sim.SideBuy, sim.OrderLimit, bid, baseSize))
		}
		if inventory > -m.maxInventory {
			orders = append(orders, m.newOrder(symbol, sim.SideSell, sim.OrderLimit, ask, baseSize))
		}
	}
	return orders
}

// realizedVolatility is the root mean square of the last 20 single-tick
// returns, defaulting to 2% when history is short.
func realizedVolatility(history []sim.Price) float64 {
	if len(history) <= 20 {
		return 0.02
	}
	sumSq := 0.0
	for i := len(history) - 20; i < len(history)-1; i++ {
		if history[i] > 0 {
			ret := (history[i+1] - history[i]) / history[i]
			sumSq += ret * ret
		}
	}
	return math.Sqrt(sumSq / 20)
}
