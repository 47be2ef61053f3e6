// Package agent implements the trading agent population: a shared base with
// cash, positions and layered sentiment, plus eight concrete strategies.
// Agents are deterministic given the injected RNG; the engine serializes all
// calls into them.
package agent

import (
	"math"

	"github.com/zappabad/marketsim/internal/sim"
)

// Agent is one autonomous trader. Decide returns at most one order per tick,
// computed against the shared frozen snapshot.
type Agent interface {
	ID() sim.AgentID
	Type() string

	Decide(state *sim.MarketState) (sim.Order, bool)
	OnFill(trade sim.Trade)
	UpdateBeliefs(ev sim.NewsEvent)
	DecaySentiment(tickScale float64)

	Cash() float64
	Portfolio() map[string]sim.Position
	Params() sim.AgentParams
	GlobalSentiment() float64
	TotalValue(prices map[string]sim.Price) float64
	SeedInventory(symbol string, qty sim.Volume, price sim.Price)
}

// Base carries the state and behavior every strategy shares. Strategies embed
// it and implement Decide/Type.
type Base struct {
	id          sim.AgentID
	cash        float64
	initialCash float64
	portfolio   map[string]sim.Position
	params      sim.AgentParams
	cfg         *Config
	rng         *sim.Rand

	// Layered sentiment: global/political, per industry, per symbol.
	globalSentiment   float64
	industrySentiment map[string]float64
	symbolSentiment   map[string]float64
}

func newBase(id sim.AgentID, cash float64, params sim.AgentParams, cfg *Config, rng *sim.Rand) Base {
	return Base{
		id:                id,
		cash:              cash,
		initialCash:       cash,
		portfolio:         map[string]sim.Position{},
		params:            params,
		cfg:               cfg,
		rng:               rng,
		industrySentiment: map[string]float64{},
		symbolSentiment:   map[string]float64{},
	}
}

func (b *Base) ID() sim.AgentID          { return b.id }
func (b *Base) Cash() float64            { return b.cash }
func (b *Base) Params() sim.AgentParams  { return b.params }
func (b *Base) GlobalSentiment() float64 { return b.globalSentiment }

// Portfolio returns a copy of the positions map.
func (b *Base) Portfolio() map[string]sim.Position {
	out := make(map[string]sim.Position, len(b.portfolio))
	for k, v := range b.portfolio {
		out[k] = v
	}
	return out
}

// OnFill settles one side of a trade: buyers pay cash and raise their
// weighted average cost, sellers collect cash. Positions may go negative
// (shorts); a flat position is dropped. When the agent is both
// counterparties the legs cancel and nothing changes.
func (b *Base) OnFill(trade sim.Trade) {
	if trade.BuyerID == b.id && trade.SellerID == b.id {
		return
	}
	cost := trade.Price * float64(trade.Quantity)
	if trade.BuyerID == b.id {
		b.cash -= cost
		pos := b.portfolio[trade.Symbol]
		totalCost := pos.AvgCost*float64(pos.Quantity) + cost
		pos.Quantity += trade.Quantity
		if pos.Quantity > 0 {
			pos.AvgCost = totalCost / float64(pos.Quantity)
		} else {
			pos.AvgCost = 0
		}
		pos.Symbol = trade.Symbol
		b.portfolio[trade.Symbol] = pos
	} else {
		b.cash += cost
		pos := b.portfolio[trade.Symbol]
		pos.Quantity -= trade.Quantity
		pos.Symbol = trade.Symbol
		if pos.Quantity == 0 {
			delete(b.portfolio, trade.Symbol)
		} else {
			b.portfolio[trade.Symbol] = pos
		}
	}
}

// UpdateBeliefs folds a news event into the layered sentiment. Industry news
// spills 30% into the global layer; company news spills 20% into the
// industry layer and 10% into the global layer.
func (b *Base) UpdateBeliefs(ev sim.NewsEvent) {
	signed := ev.Magnitude * b.params.NewsWeight * ev.Sentiment.Sign()

	switch ev.Category {
	case sim.NewsGlobal, sim.NewsPolitical:
		b.globalSentiment += signed
	case sim.NewsIndustry:
		if ev.Industry != "" {
			b.industrySentiment[ev.Industry] += signed
		}
		b.globalSentiment += signed * 0.3
	case sim.NewsCompany:
		if ev.Symbol != "" {
			b.symbolSentiment[ev.Symbol] += signed
		}
		if ev.Industry != "" {
			b.industrySentiment[ev.Industry] += signed * 0.2
		}
		b.globalSentiment += signed * 0.1
	}
}

// DecaySentiment shrinks every layer geometrically. Raising the decay rate
// to tickScale keeps decay-per-wall-clock constant across tick granularity.
func (b *Base) DecaySentiment(tickScale float64) {
	b.decayLayers(b.cfg.Global.SentimentDecayGlobal,
		b.cfg.Global.SentimentDecayIndustry,
		b.cfg.Global.SentimentDecaySymbol, tickScale)
}

func (b *Base) decayLayers(global, industry, symbol, tickScale float64) {
	b.globalSentiment *= math.Pow(global, tickScale)
	di := math.Pow(industry, tickScale)
	for k := range b.industrySentiment {
		b.industrySentiment[k] *= di
	}
	ds := math.Pow(symbol, tickScale)
	for k := range b.symbolSentiment {
		b.symbolSentiment[k] *= ds
	}
}

// combinedSentiment blends the layers for one symbol: 30% global, 50%
// industry, full symbol weight.
func (b *Base) combinedSentiment(symbol, industry string) float64 {
	combined := b.globalSentiment * 0.3
	if v, ok := b.industrySentiment[industry]; ok {
		combined += v * 0.5
	}
	if v, ok := b.symbolSentiment[symbol]; ok {
		combined += v
	}
	return combined
}

// Position returns the signed holding in a symbol.
func (b *Base) Position(symbol string) sim.Volume {
	return b.portfolio[symbol].Quantity
}

// TotalValue is cash plus the marked-to-market portfolio.
func (b *Base) TotalValue(prices map[string]sim.Price) float64 {
	value := b.cash
	for symbol, pos := range b.portfolio {
		if p, ok := prices[symbol]; ok {
			value += float64(pos.Quantity) * p
		}
	}
	return value
}

// canBuy requires the purchase to leave a cash reserve untouched.
func (b *Base) canBuy(qty sim.Volume, price sim.Price) bool {
	reserve := b.initialCash * b.cfg.Global.CashReserve
	return b.cash >= price*float64(qty)+reserve
}

// SeedInventory grants a position without spending cash. Used to bootstrap
// market makers so they can quote both sides from the first tick.
func (b *Base) SeedInventory(symbol string, qty sim.Volume, price sim.Price) {
	pos := b.portfolio[symbol]
	pos.Symbol = symbol
	pos.Quantity += qty
	pos.AvgCost = price
	b.portfolio[symbol] = pos
}

func (b *Base) newOrder(symbol string, side sim.Side, typ sim.OrderType, price sim.Price, qty sim.Volume) sim.Order {
	return sim.Order{
		AgentID:  b.id,
		Symbol:   symbol,
		Side:     side,
		Type:     typ,
		Price:    price,
		Quantity: qty,
	}
}

// orderSize converts confidence and risk aversion into a share count:
// spend at most cash*min(capitalFraction/riskAversion*confidence, 5%),
// capped at the global max order size, floored at one share.
func (b *Base) orderSize(price sim.Price, confidence float64) sim.Volume {
	if price <= 0 || b.cash <= 0 {
		return 0
	}
	sizeFactor := (b.cfg.Global.CapitalFraction / b.params.RiskAversion) * confidence
	maxSpend := b.cash * math.Min(sizeFactor, 0.05)
	size := sim.Volume(maxSpend / price)
	if size > b.cfg.Global.MaxOrderSize {
		size = b.cfg.Global.MaxOrderSize
	}
	if size < 1 {
		size = 1
	}
	return size
}

// gate is the participation check shared by every strategy: trade this tick
// with probability reactionSpeed*mult*tickScale.
func (b *Base) gate(mult, tickScale float64) bool {
	return b.rng.Float64() <= b.params.ReactionSpeed*mult*tickScale
}

// pickSymbol draws a uniform instrument from the snapshot.
func (b *Base) pickSymbol(state *sim.MarketState) (string, bool) {
	if len(state.Symbols) == 0 {
		return "", false
	}
	return state.Symbols[b.rng.UniformInt(0, len(state.Symbols)-1)], true
}

func minVolume(a, b sim.Volume) sim.Volume {
	if a < b {
		return a
	}
	return b
}
