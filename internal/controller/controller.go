// Package controller owns the engine's lifecycle and serializes all access
// to it: the live tick loop, manual stepping, the two-phase history
// populate, configuration updates and every read the API exposes. One
// RWMutex guards the whole simulation; ticks take the write lock, API reads
// take the read lock.
package controller

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/zappabad/marketsim/internal/agent"
	"github.com/zappabad/marketsim/internal/archive"
	"github.com/zappabad/marketsim/internal/candle"
	"github.com/zappabad/marketsim/internal/config"
	"github.com/zappabad/marketsim/internal/engine"
	"github.com/zappabad/marketsim/internal/sim"
)

// State is the controller lifecycle state.
type State int

const (
	StateStopped State = iota
	StateRunning
	StatePaused
	StatePopulating
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "STOPPED"
	case StateRunning:
		return "RUNNING"
	case StatePaused:
		return "PAUSED"
	case StatePopulating:
		return "POPULATING"
	default:
		return "UNKNOWN"
	}
}

// TickUpdate is the per-tick broadcast payload for stream subscribers.
type TickUpdate struct {
	Time            sim.Timestamp        `json:"time"`
	Date            string               `json:"date"`
	State           string               `json:"state"`
	Prices          map[string]sim.Price `json:"prices"`
	GlobalSentiment float64              `json:"globalSentiment"`
	TotalTrades     uint64               `json:"totalTrades"`
	TotalOrders     uint64               `json:"totalOrders"`
	Trades          []sim.Trade          `json:"trades,omitempty"`
	News            []sim.NewsEvent      `json:"news,omitempty"`
}

// Status is the control-plane view of the simulation.
type Status struct {
	State         string        `json:"state"`
	SimTime       sim.Timestamp `json:"simTime"`
	Date          string        `json:"date"`
	TotalTicks    uint64        `json:"totalTicks"`
	TotalOrders   uint64        `json:"totalOrders"`
	TotalTrades   uint64        `json:"totalTrades"`
	TicksPerDay   int           `json:"ticksPerDay"`
	TickRateMs    int           `json:"tickRateMs"`
	PopulateDone  int64         `json:"populateDone"`
	PopulateTotal int64         `json:"populateTotal"`
	AgentCount    int           `json:"agentCount"`
	SymbolCount   int           `json:"symbolCount"`
}

// AgentSummary is the external view of one agent.
type AgentSummary struct {
	ID         sim.AgentID             `json:"id"`
	Type       string                  `json:"type"`
	Cash       float64                 `json:"cash"`
	TotalValue float64                 `json:"totalValue"`
	Sentiment  float64                 `json:"sentiment"`
	Positions  map[string]sim.Position `json:"positions"`
}

// AssetInfo is the external view of one instrument.
type AssetInfo struct {
	Symbol        string     `json:"symbol"`
	Name          string     `json:"name"`
	Industry      string     `json:"industry"`
	Price         sim.Price  `json:"price"`
	Fundamental   sim.Price  `json:"fundamental"`
	DayOpen       sim.Price  `json:"dayOpen"`
	DailyVolume   sim.Volume `json:"dailyVolume"`
	MarketCap     float64    `json:"marketCap"`
	Liquidity     float64    `json:"liquidity"`
	Volatility    float64    `json:"volatility"`
	CircuitBroken bool       `json:"circuitBroken"`
}

// Controller drives the engine. All exported methods are safe for
// concurrent use.
type Controller struct {
	log *zap.Logger

	mu    sync.RWMutex
	cfg   config.Config
	eng   *engine.Engine
	state State

	stopLoop context.CancelFunc
	loopDone chan struct{}

	popDone  atomic.Int64
	popTotal atomic.Int64

	subMu   sync.Mutex
	subs    map[int]chan TickUpdate
	nextSub int

	store *archive.Store
}

// New builds a controller with a freshly initialized engine. The controller
// starts stopped; call Populate and/or Start.
func New(cfg config.Config, log *zap.Logger) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	eng, err := buildEngine(cfg)
	if err != nil {
		return nil, err
	}

	c := &Controller{
		log:   log,
		cfg:   cfg,
		eng:   eng,
		state: StateStopped,
		subs:  map[int]chan TickUpdate{},
	}
	if cfg.Server.ArchiveEnabled {
		store, err := archive.Open(cfg.Server.ArchivePath)
		if err != nil {
			return nil, err
		}
		c.store = store
	}
	return c, nil
}

func buildEngine(cfg config.Config) (*engine.Engine, error) {
	clock := sim.NewClock()
	if err := clock.Initialize(cfg.Simulation.StartDate, cfg.Simulation.TicksPerDay); err != nil {
		return nil, err
	}
	rng := sim.NewRand(cfg.Simulation.Seed)
	eng := engine.New(cfg.Engine, clock, rng)

	for _, inst := range cfg.Instruments {
		if err := eng.AddAsset(inst.Symbol, inst.Name, inst.Industry, inst.InitialPrice, inst.Volatility, inst.SharesOutstanding); err != nil {
			return nil, err
		}
	}
	eng.SetCrossEffects(cfg.CrossEffects)

	agentCfg := cfg.Agents
	agents := agent.CreatePopulation(cfg.Counts, cfg.Cash, &agentCfg, rng, 1)
	eng.AddAgents(agents)
	eng.SeedMarketMakerInventory(cfg.Simulation.MarketMakerInventory)
	return eng, nil
}

// Close stops the loop and releases the archive.
func (c *Controller) Close() error {
	_ = c.Stop()
	if c.store != nil {
		return c.store.Close()
	}
	return nil
}

// Start begins (or resumes) the live tick loop.
func (c *Controller) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateRunning:
		return fmt.Errorf("already running")
	case StatePopulating:
		return fmt.Errorf("populate in progress")
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	c.stopLoop = cancel
	c.loopDone = done
	c.state = StateRunning
	c.log.Info("simulation started",
		zap.String("date", c.eng.Clock().DateString()),
		zap.Int("ticksPerDay", c.cfg.Simulation.TicksPerDay))

	go c.runLoop(ctx, done)
	return nil
}

// Pause halts the loop but keeps all state; Start resumes.
func (c *Controller) Pause() error { return c.halt(StatePaused) }

// Stop halts the loop. State is kept; Reinitialize discards it.
func (c *Controller) Stop() error { return c.halt(StateStopped) }

func (c *Controller) halt(to State) error {
	c.mu.Lock()
	if c.state == StatePopulating {
		c.mu.Unlock()
		return fmt.Errorf("populate in progress")
	}
	if c.state != StateRunning {
		c.state = to
		c.mu.Unlock()
		return nil
	}
	cancel := c.stopLoop
	done := c.loopDone
	c.state = to
	c.mu.Unlock()

	cancel()
	<-done
	c.log.Info("simulation halted", zap.String("state", to.String()))
	return nil
}

func (c *Controller) runLoop(ctx context.Context, done chan struct{}) {
	defer close(done)

	c.mu.RLock()
	rate := time.Duration(c.cfg.Simulation.TickRateMs) * time.Millisecond
	c.mu.RUnlock()

	timer := time.NewTimer(rate)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		c.mu.Lock()
		if c.state != StateRunning {
			c.mu.Unlock()
			return
		}
		c.eng.Tick()
		update := c.tickUpdateLocked()
		rate = time.Duration(c.cfg.Simulation.TickRateMs) * time.Millisecond
		c.mu.Unlock()

		c.archiveUpdate(update)
		c.publish(update)
		timer.Reset(rate)
	}
}

// tickUpdateLocked builds the broadcast payload. Caller holds mu.
func (c *Controller) tickUpdateLocked() TickUpdate {
	clock := c.eng.Clock()
	update := TickUpdate{
		Time:            clock.Now(),
		Date:            clock.DateTimeString(),
		State:           c.state.String(),
		Prices:          make(map[string]sim.Price, len(c.eng.Symbols())),
		GlobalSentiment: c.eng.Macro().GlobalSentiment(),
		TotalTrades:     c.eng.TotalTrades(),
		TotalOrders:     c.eng.TotalOrders(),
	}
	for _, symbol := range c.eng.Symbols() {
		update.Prices[symbol] = c.eng.Asset(symbol).Price()
	}
	if trades := c.eng.TradesThisTick(); len(trades) > 0 {
		update.Trades = append([]sim.Trade(nil), trades...)
	}
	if events := c.eng.NewsThisTick(); len(events) > 0 {
		update.News = append([]sim.NewsEvent(nil), events...)
	}
	return update
}

func (c *Controller) archiveUpdate(update TickUpdate) {
	if c.store == nil {
		return
	}
	err := c.store.SaveTick(archive.TickRecord{
		Time:            update.Time,
		Prices:          update.Prices,
		GlobalSentiment: update.GlobalSentiment,
		TotalTrades:     update.TotalTrades,
		TotalOrders:     update.TotalOrders,
	})
	if err != nil {
		c.log.Warn("archive tick failed", zap.Error(err))
	}
	for _, t := range update.Trades {
		if err := c.store.SaveTrade(t); err != nil {
			c.log.Warn("archive trade failed", zap.Error(err))
			break
		}
	}
}

// Subscribe registers a stream consumer. Updates are dropped, not queued,
// when the subscriber falls behind.
func (c *Controller) Subscribe(buffer int) (int, <-chan TickUpdate) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan TickUpdate, buffer)
	c.subMu.Lock()
	defer c.subMu.Unlock()
	c.nextSub++
	id := c.nextSub
	c.subs[id] = ch
	return id, ch
}

// Unsubscribe removes a stream consumer and closes its channel.
func (c *Controller) Unsubscribe(id int) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	if ch, ok := c.subs[id]; ok {
		delete(c.subs, id)
		close(ch)
	}
}

func (c *Controller) publish(update TickUpdate) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	for _, ch := range c.subs {
		select {
		case ch <- update:
		default:
		}
	}
}

// Step advances the simulation by count ticks synchronously. Only valid
// while the loop is not running.
func (c *Controller) Step(count int) error {
	if count <= 0 {
		return fmt.Errorf("step count must be positive, got %d", count)
	}
	c.mu.Lock()
	if c.state == StateRunning || c.state == StatePopulating {
		c.mu.Unlock()
		return fmt.Errorf("cannot step while %s", c.state)
	}
	for i := 0; i < count; i++ {
		c.eng.Tick()
	}
	update := c.tickUpdateLocked()
	c.mu.Unlock()

	c.archiveUpdate(update)
	c.publish(update)
	return nil
}

// Populate fast-forwards simulated history before live trading: coarse
// ticks over most of the window, then fine ticks over the last few days so
// recent candles have intraday detail. Runs on its own goroutine; progress
// is exposed through Status.
func (c *Controller) Populate() error {
	c.mu.Lock()
	if c.state == StateRunning || c.state == StatePopulating {
		c.mu.Unlock()
		return fmt.Errorf("cannot populate while %s", c.state)
	}
	simCfg := c.cfg.Simulation
	coarseDays := simCfg.PopulateDays - simCfg.PopulateFineDays
	if coarseDays < 0 {
		coarseDays = 0
	}
	total := int64(coarseDays)*int64(simCfg.PopulateTicksPerDay) +
		int64(simCfg.PopulateFineDays)*int64(simCfg.PopulateFineTicksPerDay)
	if total == 0 {
		c.mu.Unlock()
		return fmt.Errorf("populate window is empty")
	}
	c.state = StatePopulating
	c.popTotal.Store(total)
	c.popDone.Store(0)

	// TickScale stays relative to the live granularity, so news arrival and
	// sentiment decay per simulated day match the live phase.
	c.eng.Clock().SetReferenceTicksPerDay(simCfg.TicksPerDay)
	c.mu.Unlock()

	c.log.Info("populate started",
		zap.Int("coarseDays", coarseDays),
		zap.Int("fineDays", simCfg.PopulateFineDays),
		zap.Int64("totalTicks", total))

	go func() {
		c.runPopulatePhase(coarseDays, simCfg.PopulateTicksPerDay)
		c.runPopulatePhase(simCfg.PopulateFineDays, simCfg.PopulateFineTicksPerDay)

		c.mu.Lock()
		c.eng.Clock().SetTicksPerDay(simCfg.TicksPerDay)
		c.state = StatePaused
		update := c.tickUpdateLocked()
		c.mu.Unlock()

		c.publish(update)
		c.log.Info("populate finished", zap.Int64("ticks", c.popDone.Load()))
	}()
	return nil
}

// runPopulatePhase takes the write lock one day at a time so API reads stay
// responsive during long populates.
func (c *Controller) runPopulatePhase(days, ticksPerDay int) {
	if days <= 0 || ticksPerDay <= 0 {
		return
	}
	c.mu.Lock()
	c.eng.Clock().SetTicksPerDay(ticksPerDay)
	c.mu.Unlock()

	for d := 0; d < days; d++ {
		c.mu.Lock()
		for i := 0; i < ticksPerDay; i++ {
			c.eng.Tick()
		}
		c.mu.Unlock()
		c.popDone.Add(int64(ticksPerDay))
	}
}

// Reinitialize rebuilds the engine from the current configuration,
// discarding all simulation state.
func (c *Controller) Reinitialize() error {
	if err := c.Stop(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	eng, err := buildEngine(c.cfg)
	if err != nil {
		return err
	}
	c.eng = eng
	c.popDone.Store(0)
	c.popTotal.Store(0)
	c.log.Info("engine reinitialized", zap.Int64("seed", c.cfg.Simulation.Seed))
	return nil
}

// Restore rewinds the simulation to a prior point: sets the clock to the
// given date and pins each instrument to the given price. Books are cleared
// since resting orders refer to the abandoned timeline.
func (c *Controller) Restore(date string, prices map[string]sim.Price) error {
	ms, err := sim.ParseDate(date)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateRunning || c.state == StatePopulating {
		return fmt.Errorf("cannot restore while %s", c.state)
	}
	for symbol, price := range prices {
		if c.eng.Asset(symbol) == nil {
			return fmt.Errorf("unknown symbol %s", symbol)
		}
		if price <= 0 {
			return fmt.Errorf("symbol %s: price must be positive", symbol)
		}
	}

	c.eng.Clock().SetNow(ms)
	for _, symbol := range c.eng.Symbols() {
		a := c.eng.Asset(symbol)
		if price, ok := prices[symbol]; ok {
			a.RestorePrice(price)
			a.SetFundamental(price)
		} else {
			a.MarkDayOpen()
		}
		c.eng.Book(symbol).Clear()
	}
	c.log.Info("state restored", zap.String("date", date), zap.Int("prices", len(prices)))
	return nil
}

// UpdateConfig merges a JSON patch into the configuration. Tick pacing
// applies immediately; engine and population parameters take effect on the
// next Reinitialize.
func (c *Controller) UpdateConfig(patch []byte) (config.Config, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	patched, err := c.cfg.WithPatch(patch)
	if err != nil {
		return c.cfg, err
	}
	c.cfg = patched
	c.log.Info("config updated")
	return c.cfg, nil
}

// ResetConfig restores defaults, keeping the server section.
func (c *Controller) ResetConfig() config.Config {
	c.mu.Lock()
	defer c.mu.Unlock()
	server := c.cfg.Server
	c.cfg = config.DefaultConfig()
	c.cfg.Server = server
	return c.cfg
}

// Config returns the current configuration.
func (c *Controller) Config() config.Config {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cfg
}

// InjectNews queues an event for the next tick.
func (c *Controller) InjectNews(ev sim.NewsEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.eng.InjectNews(ev)
}

// SubmitOrder places an external order and matches it immediately.
func (c *Controller) SubmitOrder(o sim.Order) (sim.OrderID, sim.Volume, sim.Price, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.eng.SubmitOrder(o)
}

// CancelOrder removes a resting order.
func (c *Controller) CancelOrder(symbol string, id sim.OrderID) (sim.Volume, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.eng.CancelOrder(symbol, id)
}

// State returns the lifecycle state.
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Status returns the control-plane summary.
func (c *Controller) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	clock := c.eng.Clock()
	return Status{
		State:         c.state.String(),
		SimTime:       clock.Now(),
		Date:          clock.DateTimeString(),
		TotalTicks:    clock.TotalTicks(),
		TotalOrders:   c.eng.TotalOrders(),
		TotalTrades:   c.eng.TotalTrades(),
		TicksPerDay:   clock.TicksPerDay(),
		TickRateMs:    c.cfg.Simulation.TickRateMs,
		PopulateDone:  c.popDone.Load(),
		PopulateTotal: c.popTotal.Load(),
		AgentCount:    len(c.eng.Agents()),
		SymbolCount:   len(c.eng.Symbols()),
	}
}

// MarketState builds a fresh snapshot for API reads.
func (c *Controller) MarketState() *sim.MarketState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.eng.MarketState()
}

// Metrics returns aggregate diagnostics.
func (c *Controller) Metrics() sim.Metrics {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.eng.Metrics()
}

// Assets returns the external view of every instrument, sorted by symbol.
func (c *Controller) Assets() []AssetInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]AssetInfo, 0, len(c.eng.Symbols()))
	for _, symbol := range c.eng.Symbols() {
		a := c.eng.Asset(symbol)
		out = append(out, AssetInfo{
			Symbol:        a.Symbol(),
			Name:          a.Name(),
			Industry:      a.Industry(),
			Price:         a.Price(),
			Fundamental:   a.Fundamental(),
			DayOpen:       a.DayOpen(),
			DailyVolume:   a.DailyVolume(),
			MarketCap:     a.MarketCap(),
			Liquidity:     a.Liquidity(),
			Volatility:    a.Volatility(),
			CircuitBroken: a.CircuitBroken(),
		})
	}
	return out
}

// Agents returns the external view of every agent, in creation order.
func (c *Controller) Agents() []AgentSummary {
	c.mu.RLock()
	defer c.mu.RUnlock()
	prices := map[string]sim.Price{}
	for _, symbol := range c.eng.Symbols() {
		prices[symbol] = c.eng.Asset(symbol).Price()
	}
	out := make([]AgentSummary, 0, len(c.eng.Agents()))
	for _, a := range c.eng.Agents() {
		out = append(out, AgentSummary{
			ID:         a.ID(),
			Type:       a.Type(),
			Cash:       a.Cash(),
			TotalValue: a.TotalValue(prices),
			Sentiment:  a.GlobalSentiment(),
			Positions:  a.Portfolio(),
		})
	}
	return out
}

// Candles returns bars for one symbol and interval.
func (c *Controller) Candles(symbol string, iv candle.Interval, since sim.Timestamp, limit int) []sim.Candle {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.eng.Candles().Candles(symbol, iv, since, limit)
}

// AllCandles returns bars for every symbol at one interval.
func (c *Controller) AllCandles(iv candle.Interval, since sim.Timestamp) map[string][]sim.Candle {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.eng.Candles().AllCandles(iv, since)
}

// BookSnapshot returns the aggregated book for one symbol.
func (c *Controller) BookSnapshot(symbol string, depth int) (sim.BookSnapshot, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	book := c.eng.Book(symbol)
	if book == nil {
		return sim.BookSnapshot{}, fmt.Errorf("unknown symbol %s", symbol)
	}
	return book.Snapshot(depth), nil
}

// RecentTrades returns the most recent trades, newest last.
func (c *Controller) RecentTrades(count int) []sim.Trade {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.eng.RecentTrades(count)
}

// RecentNews returns the most recent processed events, newest last.
func (c *Controller) RecentNews(count int) []sim.NewsEvent {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.eng.RecentNews(count)
}

// NewsHistory returns the full bounded news history.
func (c *Controller) NewsHistory() []sim.NewsEvent {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.eng.News().History()
}

// ArchiveTicks reads persisted tick snapshots. to == 0 means "until now".
func (c *Controller) ArchiveTicks(from, to sim.Timestamp, limit int) ([]archive.TickRecord, error) {
	if c.store == nil {
		return nil, fmt.Errorf("archive disabled")
	}
	if to == 0 {
		to = math.MaxUint64
	}
	return c.store.Ticks(from, to, limit)
}

// ArchiveTrades reads persisted trade prints. to == 0 means "until now".
func (c *Controller) ArchiveTrades(from, to sim.Timestamp, limit int) ([]sim.Trade, error) {
	if c.store == nil {
		return nil, fmt.Errorf("archive disabled")
	}
	if to == 0 {
		to = math.MaxUint64
	}
	return c.store.Trades(from, to, limit)
}
