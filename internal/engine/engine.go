// Package engine runs the per-tick simulation loop: news generation and
// propagation, macro and fundamental updates, agent decisions against a
// frozen market snapshot, order matching, price impact and candle
// aggregation. The engine is deterministic and single-threaded; the
// controller serializes all access to it.
package engine

import (
	"fmt"
	"sort"

	"github.com/zappabad/marketsim/internal/agent"
	"github.com/zappabad/marketsim/internal/asset"
	"github.com/zappabad/marketsim/internal/candle"
	"github.com/zappabad/marketsim/internal/macro"
	"github.com/zappabad/marketsim/internal/news"
	"github.com/zappabad/marketsim/internal/orderbook"
	"github.com/zappabad/marketsim/internal/sim"
)

// UserAgentType tags trades whose counterparty is an external order rather
// than a simulated agent.
const UserAgentType = "User"

// Config holds the engine loop tunables plus the nested component configs.
type Config struct {
	// GrowthRateAnnual is the baseline fundamental drift per year.
	GrowthRateAnnual float64 `json:"growthRateAnnual"`
	// TradingDaysPerYear converts the annual drift to a daily one.
	TradingDaysPerYear int `json:"tradingDaysPerYear"`

	// Industry and company news accumulate into decaying shock pools that
	// leak into fundamentals each tick.
	IndustryShockScale float64 `json:"industryShockScale"`
	IndustryShockDecay float64 `json:"industryShockDecay"`
	CompanyShockScale  float64 `json:"companyShockScale"`
	CompanyShockDecay  float64 `json:"companyShockDecay"`
	// CompanyShockStd is the idiosyncratic per-tick fundamental noise.
	CompanyShockStd float64 `json:"companyShockStd"`

	MaxRecentNews   int `json:"maxRecentNews"`
	MaxRecentTrades int `json:"maxRecentTrades"`

	Asset asset.Config     `json:"asset"`
	Book  orderbook.Config `json:"book"`
	Macro macro.Config     `json:"macro"`
	News  news.Config      `json:"news"`
}

// DefaultConfig returns the standard engine tuning.
func DefaultConfig() Config {
	return Config{
		GrowthRateAnnual:   0.08,
		TradingDaysPerYear: 252,
		IndustryShockScale: 0.005,
		IndustryShockDecay: 0.95,
		CompanyShockScale:  0.005,
		CompanyShockDecay:  0.90,
		CompanyShockStd:    0.0002,
		MaxRecentNews:      50,
		MaxRecentTrades:    100,
		Asset:              asset.DefaultConfig(),
		Book:               orderbook.DefaultConfig(),
		Macro:              macro.DefaultConfig(),
		News:               news.DefaultConfig(),
	}
}

// Engine owns every simulation component and advances them in lockstep.
type Engine struct {
	cfg   Config
	clock *sim.Clock
	rng   *sim.Rand

	macro   *macro.Environment
	newsGen *news.Generator
	candles *candle.Aggregator

	symbols      []string // sorted
	assets       map[string]*asset.Asset
	books        map[string]*orderbook.Book
	crossEffects map[string][]sim.CrossEffect

	agents     []agent.Agent
	agentsByID map[sim.AgentID]agent.Agent
	agentTypes map[sim.AgentID]string

	industryShocks map[string]float64
	companyShocks  map[string]float64

	recentNews     []sim.NewsEvent
	recentTrades   []sim.Trade
	lastTickTrades []sim.Trade
	lastTickNews   []sim.NewsEvent

	typeStats   map[string]*sim.AgentTypeStats
	totalOrders uint64
	totalTrades uint64

	// Previous daily volume per symbol, so candles get the per-tick
	// increment rather than the running daily total.
	lastDailyVolume map[string]sim.Volume
}

// New creates an empty engine on the given clock and RNG. Assets and agents
// are added afterwards.
func New(cfg Config, clock *sim.Clock, rng *sim.Rand) *Engine {
	return &Engine{
		cfg:             cfg,
		clock:           clock,
		rng:             rng,
		macro:           macro.New(cfg.Macro),
		newsGen:         news.NewGenerator(cfg.News),
		candles:         candle.NewAggregator(),
		assets:          map[string]*asset.Asset{},
		books:           map[string]*orderbook.Book{},
		crossEffects:    map[string][]sim.CrossEffect{},
		agentsByID:      map[sim.AgentID]agent.Agent{},
		agentTypes:      map[sim.AgentID]string{},
		industryShocks:  map[string]float64{},
		companyShocks:   map[string]float64{},
		typeStats:       map[string]*sim.AgentTypeStats{},
		lastDailyVolume: map[string]sim.Volume{},
	}
}

// AddAsset registers an instrument along with its order book and candle
// series. The current price becomes today's circuit breaker reference.
func (e *Engine) AddAsset(symbol, name, industry string, initialPrice sim.Price, volatility float64, sharesOutstanding int64) error {
	if _, exists := e.assets[symbol]; exists {
		return fmt.Errorf("asset %s already registered", symbol)
	}
	a := asset.New(symbol, name, industry, initialPrice, volatility, sharesOutstanding, e.cfg.Asset)
	a.MarkDayOpen()
	e.assets[symbol] = a
	e.books[symbol] = orderbook.New(symbol, e.cfg.Book)
	e.candles.AddSymbol(symbol)
	e.newsGen.AddSymbol(symbol, name, industry, a.MarketCap())

	e.symbols = append(e.symbols, symbol)
	sort.Strings(e.symbols)
	return nil
}

// AddAgents registers simulated agents with the engine.
func (e *Engine) AddAgents(agents []agent.Agent) {
	for _, a := range agents {
		e.agents = append(e.agents, a)
		e.agentsByID[a.ID()] = a
		e.agentTypes[a.ID()] = a.Type()
		if _, ok := e.typeStats[a.Type()]; !ok {
			e.typeStats[a.Type()] = &sim.AgentTypeStats{}
		}
	}
}

// SeedMarketMakerInventory grants every market maker a starting position in
// each instrument so both sides can be quoted from the first tick.
func (e *Engine) SeedMarketMakerInventory(qty sim.Volume) {
	for _, a := range e.agents {
		if a.Type() != "MarketMaker" {
			continue
		}
		for _, symbol := range e.symbols {
			a.SeedInventory(symbol, qty, e.assets[symbol].Price())
		}
	}
}

// SetCrossEffects replaces the cross-effect propagation table.
func (e *Engine) SetCrossEffects(effects map[string][]sim.CrossEffect) {
	e.crossEffects = effects
}

// Tick advances the simulation by one step. The phase order is fixed: time,
// news, sentiment decay, macro, fundamentals, decisions, matching, candles.
func (e *Engine) Tick() {
	now := e.clock.Tick()
	tickScale := e.clock.TickScale()
	e.lastTickTrades = e.lastTickTrades[:0]
	e.lastTickNews = e.lastTickNews[:0]

	if e.clock.IsNewDay() {
		e.startNewDay()
	}

	for _, ev := range e.newsGen.Generate(now, tickScale, e.rng) {
		e.processNews(ev)
	}

	for _, a := range e.agents {
		a.DecaySentiment(tickScale)
	}

	e.macro.Update(e.rng)
	e.updateFundamentals()

	state := e.buildState(now, tickScale)
	for _, a := range e.agents {
		if order, ok := a.Decide(state); ok {
			e.submitAgentOrder(order, a.Type())
		}
	}

	e.matchAll(now)
	e.updateCandles(now)
}

func (e *Engine) startNewDay() {
	for _, symbol := range e.symbols {
		a := e.assets[symbol]
		a.MarkDayOpen()
		e.lastDailyVolume[symbol] = 0
		e.newsGen.SetMarketCap(symbol, a.MarketCap())
	}
}

// processNews propagates one event into the macro environment, every agent's
// beliefs, the fundamental shock pools and the bounded recent buffer.
func (e *Engine) processNews(ev sim.NewsEvent) {
	e.macro.ApplyNews(ev)
	for _, a := range e.agents {
		a.UpdateBeliefs(ev)
	}

	switch ev.Category {
	case sim.NewsIndustry:
		e.industryShocks[ev.Industry] += ev.Magnitude * ev.Sentiment.Sign()
	case sim.NewsCompany:
		e.companyShocks[ev.Symbol] += ev.Magnitude * ev.Sentiment.Sign()
	}

	e.newsGen.AddToRecent(ev)
	e.lastTickNews = append(e.lastTickNews, ev)
	e.recentNews = append(e.recentNews, ev)
	if len(e.recentNews) > e.cfg.MaxRecentNews {
		e.recentNews = e.recentNews[1:]
	}
}

func (e *Engine) updateFundamentals() {
	globalShock := e.macro.GlobalShock(e.rng)
	growth := 0.0
	if e.cfg.TradingDaysPerYear > 0 && e.clock.TicksPerDay() > 0 {
		growth = (e.cfg.GrowthRateAnnual / float64(e.cfg.TradingDaysPerYear)) / float64(e.clock.TicksPerDay())
	}

	for _, symbol := range e.symbols {
		a := e.assets[symbol]
		industryShock := e.industryShocks[a.Industry()] * e.cfg.IndustryShockScale
		companyShock := e.rng.Normal(0, e.cfg.CompanyShockStd) +
			e.companyShocks[symbol]*e.cfg.CompanyShockScale
		a.UpdateFundamental(globalShock, industryShock, companyShock, growth)
	}

	for k := range e.industryShocks {
		e.industryShocks[k] *= e.cfg.IndustryShockDecay
	}
	for k := range e.companyShocks {
		e.companyShocks[k] *= e.cfg.CompanyShockDecay
	}
}

// buildState snapshots the market once per tick; every agent decides against
// the same view so within-tick ordering carries no informational edge.
func (e *Engine) buildState(now sim.Timestamp, tickScale float64) *sim.MarketState {
	state := &sim.MarketState{
		CurrentTime:      now,
		TickScale:        tickScale,
		Symbols:          e.symbols,
		Prices:           make(map[string]sim.Price, len(e.symbols)),
		Fundamentals:     make(map[string]sim.Price, len(e.symbols)),
		Volumes:          make(map[string]sim.Volume, len(e.symbols)),
		PriceHistory:     make(map[string][]sim.Price, len(e.symbols)),
		SymbolToIndustry: make(map[string]string, len(e.symbols)),
		CrossEffects:     e.crossEffects,
		RecentNews:       e.recentNews,
		GlobalSentiment:  e.macro.GlobalSentiment(),
		InterestRate:     e.macro.InterestRate(),
	}
	for _, symbol := range e.symbols {
		a := e.assets[symbol]
		state.Prices[symbol] = a.Price()
		state.Fundamentals[symbol] = a.Fundamental()
		state.Volumes[symbol] = a.DailyVolume()
		state.PriceHistory[symbol] = a.History()
		state.SymbolToIndustry[symbol] = a.Industry()
	}
	return state
}

func (e *Engine) submitAgentOrder(order sim.Order, agentType string) {
	book, ok := e.books[order.Symbol]
	if !ok {
		return
	}
	if _, err := book.AddOrder(order, e.clock.Now()); err != nil {
		return
	}
	e.totalOrders++
	stats := e.statsFor(agentType)
	stats.OrdersPlaced++
	if order.Side == sim.SideBuy {
		stats.BuyOrders++
	} else {
		stats.SellOrders++
	}
}

func (e *Engine) matchAll(now sim.Timestamp) {
	for _, symbol := range e.symbols {
		trades := e.books[symbol].MatchOrders(now)
		for i := range trades {
			e.handleTrade(&trades[i])
		}
	}
}

// handleTrade tags both sides, updates statistics, notifies the agents and
// applies dampened price impact and volume to the asset.
func (e *Engine) handleTrade(t *sim.Trade) {
	t.BuyerType = e.typeFor(t.BuyerID)
	t.SellerType = e.typeFor(t.SellerID)

	e.totalTrades++
	notional := t.Price * float64(t.Quantity)

	buyStats := e.statsFor(t.BuyerType)
	buyStats.Fills++
	buyStats.VolumeTraded += float64(t.Quantity)
	buyStats.CashSpent += notional

	sellStats := e.statsFor(t.SellerType)
	sellStats.Fills++
	sellStats.VolumeTraded += float64(t.Quantity)
	sellStats.CashReceived += notional

	if buyer, ok := e.agentsByID[t.BuyerID]; ok {
		buyer.OnFill(*t)
	}
	// A self-match notifies the agent once; OnFill sees both sides.
	if t.SellerID != t.BuyerID {
		if seller, ok := e.agentsByID[t.SellerID]; ok {
			seller.OnFill(*t)
		}
	}

	if a, ok := e.assets[t.Symbol]; ok {
		a.ApplyTradePrice(t.Price, t.Quantity)
		a.AddVolume(t.Quantity)
	}

	e.recentTrades = append(e.recentTrades, *t)
	if len(e.recentTrades) > e.cfg.MaxRecentTrades {
		e.recentTrades = e.recentTrades[1:]
	}
	e.lastTickTrades = append(e.lastTickTrades, *t)
}

// TradesThisTick returns the trades executed by the most recent Tick (plus
// any external orders matched since). The slice is reused next tick.
func (e *Engine) TradesThisTick() []sim.Trade { return e.lastTickTrades }

// NewsThisTick returns the events processed by the most recent Tick. The
// slice is reused next tick.
func (e *Engine) NewsThisTick() []sim.NewsEvent { return e.lastTickNews }

func (e *Engine) typeFor(id sim.AgentID) string {
	if typ, ok := e.agentTypes[id]; ok {
		return typ
	}
	return UserAgentType
}

func (e *Engine) statsFor(agentType string) *sim.AgentTypeStats {
	s, ok := e.typeStats[agentType]
	if !ok {
		s = &sim.AgentTypeStats{}
		e.typeStats[agentType] = s
	}
	return s
}

func (e *Engine) updateCandles(now sim.Timestamp) {
	for _, symbol := range e.symbols {
		a := e.assets[symbol]
		daily := a.DailyVolume()
		delta := daily - e.lastDailyVolume[symbol]
		if delta < 0 {
			delta = daily
		}
		e.lastDailyVolume[symbol] = daily
		e.candles.OnTick(symbol, a.Price(), float64(delta), now)
	}
}

// SubmitOrder places an external order, matches its book immediately and
// returns the order ID, the quantity filled right away and the average fill
// price (0 when nothing filled).
func (e *Engine) SubmitOrder(o sim.Order) (sim.OrderID, sim.Volume, sim.Price, error) {
	book, ok := e.books[o.Symbol]
	if !ok {
		return 0, 0, 0, fmt.Errorf("unknown symbol %s", o.Symbol)
	}

	now := e.clock.Now()
	id, err := book.AddOrder(o, now)
	if err != nil {
		return 0, 0, 0, err
	}
	e.totalOrders++
	stats := e.statsFor(e.typeFor(o.AgentID))
	stats.OrdersPlaced++
	if o.Side == sim.SideBuy {
		stats.BuyOrders++
	} else {
		stats.SellOrders++
	}

	var filled sim.Volume
	var notional float64
	for _, t := range book.MatchOrders(now) {
		e.handleTrade(&t)
		if t.BuyOrderID == id || t.SellOrderID == id {
			filled += t.Quantity
			notional += t.Price * float64(t.Quantity)
		}
	}

	var avgPrice sim.Price
	if filled > 0 {
		avgPrice = notional / float64(filled)
	}
	e.updateCandles(now)
	return id, filled, avgPrice, nil
}

// CancelOrder removes a resting external or agent order from its book.
func (e *Engine) CancelOrder(symbol string, id sim.OrderID) (sim.Volume, error) {
	book, ok := e.books[symbol]
	if !ok {
		return 0, fmt.Errorf("unknown symbol %s", symbol)
	}
	return book.Cancel(id)
}

// InjectNews queues an event for the next tick's news phase.
func (e *Engine) InjectNews(ev sim.NewsEvent) { e.newsGen.Inject(ev) }

// Metrics aggregates the diagnostics view: totals, average spread across
// books with two-sided quotes, and each instrument's move from its day open.
func (e *Engine) Metrics() sim.Metrics {
	m := sim.Metrics{
		TotalTicks:     e.clock.TotalTicks(),
		TotalTrades:    e.totalTrades,
		TotalOrders:    e.totalOrders,
		Returns:        make(map[string]float64, len(e.symbols)),
		AgentTypeStats: make(map[string]sim.AgentTypeStats, len(e.typeStats)),
	}

	spreadSum := 0.0
	spreadCount := 0
	for _, symbol := range e.symbols {
		if s := e.books[symbol].Spread(); s > 0 {
			spreadSum += s
			spreadCount++
		}
		a := e.assets[symbol]
		if open := a.DayOpen(); open > 0 {
			m.Returns[symbol] = (a.Price() - open) / open
		}
	}
	if spreadCount > 0 {
		m.AvgSpread = spreadSum / float64(spreadCount)
	}
	for typ, s := range e.typeStats {
		m.AgentTypeStats[typ] = *s
	}
	return m
}

// MarketState builds a fresh snapshot outside the tick loop, for API reads.
func (e *Engine) MarketState() *sim.MarketState {
	return e.buildState(e.clock.Now(), e.clock.TickScale())
}

func (e *Engine) Clock() *sim.Clock           { return e.clock }
func (e *Engine) Macro() *macro.Environment   { return e.macro }
func (e *Engine) News() *news.Generator       { return e.newsGen }
func (e *Engine) Candles() *candle.Aggregator { return e.candles }
func (e *Engine) Agents() []agent.Agent       { return e.agents }
func (e *Engine) Symbols() []string           { return e.symbols }
func (e *Engine) TotalOrders() uint64         { return e.totalOrders }
func (e *Engine) TotalTrades() uint64         { return e.totalTrades }

// Asset returns one instrument, or nil when the symbol is unknown.
func (e *Engine) Asset(symbol string) *asset.Asset { return e.assets[symbol] }

// Book returns one order book, or nil when the symbol is unknown.
func (e *Engine) Book(symbol string) *orderbook.Book { return e.books[symbol] }

// CrossEffects returns the propagation table.
func (e *Engine) CrossEffects() map[string][]sim.CrossEffect { return e.crossEffects }

// RecentTrades returns up to count most recent trades, newest last.
func (e *Engine) RecentTrades(count int) []sim.Trade {
	if count <= 0 || count > len(e.recentTrades) {
		count = len(e.recentTrades)
	}
	out := make([]sim.Trade, count)
	copy(out, e.recentTrades[len(e.recentTrades)-count:])
	return out
}

// RecentNews returns up to count most recent processed events, newest last.
func (e *Engine) RecentNews(count int) []sim.NewsEvent {
	if count <= 0 || count > len(e.recentNews) {
		count = len(e.recentNews)
	}
	out := make([]sim.NewsEvent, count)
	copy(out, e.recentNews[len(e.recentNews)-count:])
	return out
}
