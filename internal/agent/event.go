package agent

import (
	"math"

	"github.com/zappabad/marketsim/internal/sim"
)

// Event fires market orders on unprocessed high-magnitude news, with a
// cooldown between trades and a small dedupe window so the same event is
// never traded twice.
type Event struct {
	Base
	reactionThreshold float64
	cooldownTicks     int
	ticksSinceTrade   int
	processed         []newsKey
}

type newsKey struct {
	timestamp sim.Timestamp
	symbol    string
}

func NewEvent(id sim.AgentID, cash float64, params sim.AgentParams, cfg *Config, rng *sim.Rand) *Event {
	e := &Event{Base: newBase(id, cash, params, cfg, rng)}
	p := cfg.Event
	e.reactionThreshold = p.ReactionThresholdBase + p.ReactionThresholdRiskScale*params.RiskAversion
	e.cooldownTicks = p.CooldownBase + rng.UniformInt(0, p.CooldownRange)
	e.ticksSinceTrade = e.cooldownTicks
	return e
}

func (e *Event) Type() string { return "Event" }

func (e *Event) Decide(state *sim.MarketState) (sim.Order, bool) {
	p := e.cfg.Event
	e.ticksSinceTrade++

	if !e.gate(p.ReactionMult, state.TickScale) {
		return sim.Order{}, false
	}
	if e.ticksSinceTrade < e.cooldownTicks {
		return sim.Order{}, false
	}
	if len(state.RecentNews) == 0 || len(state.Symbols) == 0 {
		return sim.Order{}, false
	}

	for _, news := range state.RecentNews {
		key := newsKey{timestamp: news.Timestamp, symbol: news.Symbol}
		if e.seen(key) {
			continue
		}
		e.remember(key)

		if news.Magnitude < e.reactionThreshold {
			continue
		}

		target := news.Symbol
		if target == "" && news.Category == sim.NewsGlobal {
			target = state.Symbols[e.rng.UniformInt(0, len(state.Symbols)-1)]
		}
		price, ok := state.Prices[target]
		if !ok {
			continue
		}

		confidence := math.Min(1.0, news.Magnitude/0.1)

		if news.Sentiment == sim.SentimentPositive {
			size := e.orderSize(price, confidence)
			if size > 0 && e.canBuy(size, price) {
				e.ticksSinceTrade = 0
				return e.newOrder(target, sim.SideBuy, sim.OrderMarket, 0, size), true
			}
		} else {
			size := minVolume(e.Position(target), e.orderSize(price, confidence))
			if size > 0 {
				e.ticksSinceTrade = 0
				return e.newOrder(target, sim.SideSell, sim.OrderMarket, 0, size), true
			}
		}
	}
	return sim.Order{}, false
}

func (e *Event) seen(key newsKey) bool {
	for _, k := range e.processed {
		if k == key {
			return true
		}
	}
	return false
}

func (e *Event) remember(key newsKey) {
	e.processed = append(e.processed, key)
	if len(e.processed) > 20 {
		e.processed = e.processed[1:]
	}
}
