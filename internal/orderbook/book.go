// Package orderbook implements a deterministic price-time-priority matching
// book, one per symbol. It has no goroutines, mutexes, channels, or time
// calls; the engine drives it and supplies simulated timestamps.
package orderbook

import (
	"container/heap"
	"errors"

	"github.com/zappabad/marketsim/internal/sim"
)

var (
	ErrInvalidOrder = errors.New("invalid order")
	ErrDuplicateID  = errors.New("duplicate order id")
	ErrNotFound     = errors.New("order not found")
)

// Config holds the book's tunables.
type Config struct {
	// MaxOrderAgeMs expires resting orders older than this much simulated
	// time before each match pass. Zero disables expiry.
	MaxOrderAgeMs sim.Timestamp `json:"maxOrderAgeMs"`
}

// DefaultConfig returns a Config with reasonable defaults.
func DefaultConfig() Config {
	return Config{MaxOrderAgeMs: 172_800_000} // 2 simulated days
}

// Book is the order book for a single symbol.
type Book struct {
	symbol string
	cfg    Config

	bids *bookSide
	asks *bookSide

	// Market orders queue FIFO per side and are matched ahead of limit
	// orders at the best opposing limit price.
	marketBuys  orderQueue
	marketSells orderQueue

	orders map[sim.OrderID]*restingOrder
	nextID sim.OrderID
}

// New creates an empty book for symbol.
func New(symbol string, cfg Config) *Book {
	return &Book{
		symbol: symbol,
		cfg:    cfg,
		bids:   newBookSide(true),
		asks:   newBookSide(false),
		orders: map[sim.OrderID]*restingOrder{},
	}
}

// Symbol returns the book's symbol.
func (b *Book) Symbol() string { return b.symbol }

// Len returns the number of resting orders (both sides, market included).
func (b *Book) Len() int { return len(b.orders) }

// AddOrder inserts an order into side-indexed, price-then-time ordered
// storage. A zero ID is assigned by the book; the timestamp is always set to
// now so priority follows submission order.
func (b *Book) AddOrder(o sim.Order, now sim.Timestamp) (sim.OrderID, error) {
	if o.Quantity <= 0 {
		return 0, ErrInvalidOrder
	}
	if o.Type == sim.OrderLimit && o.Price <= 0 {
		return 0, ErrInvalidOrder
	}
	if o.Side != sim.SideBuy && o.Side != sim.SideSell {
		return 0, ErrInvalidOrder
	}
	if o.ID == 0 {
		b.nextID++
		o.ID = b.nextID
	} else if _, exists := b.orders[o.ID]; exists {
		return 0, ErrDuplicateID
	} else if o.ID > b.nextID {
		b.nextID = o.ID
	}
	o.Timestamp = now

	node := &restingOrder{
		id:      o.ID,
		agentID: o.AgentID,
		side:    o.Side,
		typ:     o.Type,
		price:   o.Price,
		qty:     o.Quantity,
		time:    o.Timestamp,
	}
	b.orders[o.ID] = node

	if o.Type == sim.OrderMarket {
		if o.Side == sim.SideBuy {
			b.marketBuys.push(node)
		} else {
			b.marketSells.push(node)
		}
		return o.ID, nil
	}

	side := b.sideFor(o.Side)
	lvl := side.getOrCreate(o.Price)
	lvl.append(node)
	lvl.totalQty += node.qty
	return o.ID, nil
}

// Cancel removes a resting order. Returns the canceled remaining quantity.
func (b *Book) Cancel(id sim.OrderID) (sim.Volume, error) {
	node, ok := b.orders[id]
	if !ok {
		return 0, ErrNotFound
	}
	if node.level != nil {
		node.level.totalQty -= node.qty
	}
	b.remove(node)
	return node.qty, nil
}

// MatchOrders expires stale orders, then repeatedly pairs the best bid
// against the best ask while they cross (market orders always cross),
// producing a trade for the overlapping quantity. Partial fills keep the
// remainder queued. After it returns the book is never crossed.
func (b *Book) MatchOrders(now sim.Timestamp) []sim.Trade {
	b.expire(now)

	var trades []sim.Trade
	for {
		buy, sell, price, ok := b.bestPair()
		if !ok {
			break
		}

		qty := buy.qty
		if sell.qty < qty {
			qty = sell.qty
		}

		trades = append(trades, sim.Trade{
			BuyOrderID:  buy.id,
			SellOrderID: sell.id,
			BuyerID:     buy.agentID,
			SellerID:    sell.agentID,
			Symbol:      b.symbol,
			Price:       price,
			Quantity:    qty,
			Timestamp:   now,
		})

		b.reduce(buy, qty)
		b.reduce(sell, qty)
	}
	return trades
}

// bestPair picks the next buy/sell pair to execute, or ok=false when the
// book is uncrossed. Market orders take priority on their side and execute
// at the best opposing limit price; two market orders never match each other
// because there is no price reference.
func (b *Book) bestPair() (buy, sell *restingOrder, price sim.Price, ok bool) {
	bidLvl := b.bids.bestLevel()
	askLvl := b.asks.bestLevel()
	mbuy := b.marketBuys.head
	msell := b.marketSells.head

	if mbuy != nil && askLvl != nil {
		return mbuy, askLvl.head, askLvl.price, true
	}
	if msell != nil && bidLvl != nil {
		return bidLvl.head, msell, bidLvl.price, true
	}
	if bidLvl == nil || askLvl == nil || bidLvl.price < askLvl.price {
		return nil, nil, 0, false
	}

	bid, ask := bidLvl.head, askLvl.head
	// Crossed limits execute at the resting (earlier) order's price.
	if bid.time <= ask.time {
		return bid, ask, bid.price, true
	}
	return bid, ask, ask.price, true
}

func (b *Book) reduce(node *restingOrder, qty sim.Volume) {
	node.qty -= qty
	if node.level != nil {
		node.level.totalQty -= qty
	}
	if node.qty <= 0 {
		b.remove(node)
	}
}

func (b *Book) remove(node *restingOrder) {
	switch {
	case node.level != nil:
		lvl := node.level
		side := b.sideFor(node.side)
		lvl.unlink(node)
		if lvl.head == nil {
			side.removeLevel(lvl)
		}
	case node.typ == sim.OrderMarket && node.side == sim.SideBuy:
		b.marketBuys.unlink(node)
	case node.typ == sim.OrderMarket:
		b.marketSells.unlink(node)
	}
	delete(b.orders, node.id)
}

// expire drops orders older than the configured max age.
func (b *Book) expire(now sim.Timestamp) {
	if b.cfg.MaxOrderAgeMs == 0 {
		return
	}
	var stale []*restingOrder
	for _, node := range b.orders {
		if now > node.time && now-node.time > b.cfg.MaxOrderAgeMs {
			stale = append(stale, node)
		}
	}
	for _, node := range stale {
		if node.level != nil {
			node.level.totalQty -= node.qty
		}
		b.remove(node)
	}
}

// BestBid returns the highest resting limit bid, or 0 when the side is empty.
func (b *Book) BestBid() sim.Price {
	if lvl := b.bids.bestLevel(); lvl != nil {
		return lvl.price
	}
	return 0
}

// BestAsk returns the lowest resting limit ask, or 0 when the side is empty.
func (b *Book) BestAsk() sim.Price {
	if lvl := b.asks.bestLevel(); lvl != nil {
		return lvl.price
	}
	return 0
}

// Spread returns ask minus bid, or 0 when either side is empty.
func (b *Book) Spread() sim.Price {
	bid, ask := b.BestBid(), b.BestAsk()
	if bid > 0 && ask > 0 {
		return ask - bid
	}
	return 0
}

// MidPrice returns the midpoint of the touch, falling back to whichever side
// is populated.
func (b *Book) MidPrice() sim.Price {
	bid, ask := b.BestBid(), b.BestAsk()
	switch {
	case bid > 0 && ask > 0:
		return (bid + ask) / 2
	case bid > 0:
		return bid
	default:
		return ask
	}
}

// Snapshot aggregates resting quantity per price level up to depth levels a
// side.
func (b *Book) Snapshot(depth int) sim.BookSnapshot {
	snap := sim.BookSnapshot{
		Symbol:   b.symbol,
		Bids:     b.bids.levelsTo(depth),
		Asks:     b.asks.levelsTo(depth),
		BestBid:  b.BestBid(),
		BestAsk:  b.BestAsk(),
		Spread:   b.Spread(),
		MidPrice: b.MidPrice(),
	}
	return snap
}

// Clear drops every resting order.
func (b *Book) Clear() {
	b.bids = newBookSide(true)
	b.asks = newBookSide(false)
	b.marketBuys = orderQueue{}
	b.marketSells = orderQueue{}
	b.orders = map[sim.OrderID]*restingOrder{}
}

func (b *Book) sideFor(s sim.Side) *bookSide {
	if s == sim.SideBuy {
		return b.bids
	}
	return b.asks
}

// internal resting order node (never exposed)
type restingOrder struct {
	id      sim.OrderID
	agentID sim.AgentID
	side    sim.Side
	typ     sim.OrderType
	price   sim.Price
	qty     sim.Volume
	time    sim.Timestamp

	level *level
	prev  *restingOrder
	next  *restingOrder
}

type level struct {
	price      sim.Price
	head, tail *restingOrder
	totalQty   sim.Volume
}

func (l *level) append(o *restingOrder) {
	o.level = l
	o.prev = l.tail
	o.next = nil
	if l.tail != nil {
		l.tail.next = o
	} else {
		l.head = o
	}
	l.tail = o
}

func (l *level) unlink(o *restingOrder) {
	if o.prev != nil {
		o.prev.next = o.next
	} else {
		l.head = o.next
	}
	if o.next != nil {
		o.next.prev = o.prev
	} else {
		l.tail = o.prev
	}
	o.prev, o.next, o.level = nil, nil, nil
}

func (l *level) orderCount() int {
	n := 0
	for o := l.head; o != nil; o = o.next {
		n++
	}
	return n
}

// orderQueue is a FIFO of market orders.
type orderQueue struct {
	head, tail *restingOrder
}

func (q *orderQueue) push(o *restingOrder) {
	o.prev = q.tail
	o.next = nil
	if q.tail != nil {
		q.tail.next = o
	} else {
		q.head = o
	}
	q.tail = o
}

func (q *orderQueue) unlink(o *restingOrder) {
	if o.prev != nil {
		o.prev.next = o.next
	} else {
		q.head = o.next
	}
	if o.next != nil {
		o.next.prev = o.prev
	} else {
		q.tail = o.prev
	}
	o.prev, o.next = nil, nil
}

// heap of levels
type levelHeap struct {
	data  []*level
	index map[*level]int
	isBid bool
}

func newLevelHeap(isBid bool) *levelHeap {
	h := &levelHeap{data: []*level{}, index: map[*level]int{}, isBid: isBid}
	heap.Init(h)
	return h
}

func (h *levelHeap) Len() int { return len(h.data) }
func (h *levelHeap) Less(i, j int) bool {
	if h.isBid {
		return h.data[i].price > h.data[j].price // max-heap for bids
	}
	return h.data[i].price < h.data[j].price // min-heap for asks
}
func (h *levelHeap) Swap(i, j int) {
	h.data[i], h.data[j] = h.data[j], h.data[i]
	h.index[h.data[i]] = i
	h.index[h.data[j]] = j
}
func (h *levelHeap) Push(x any) {
	l := x.(*level)
	h.data = append(h.data, l)
	h.index[l] = len(h.data) - 1
}
func (h *levelHeap) Pop() any {
	n := len(h.data)
	if n == 0 {
		return nil
	}
	l := h.data[n-1]
	h.data = h.data[:n-1]
	delete(h.index, l)
	return l
}
func (h *levelHeap) best() *level {
	if len(h.data) == 0 {
		return nil
	}
	return h.data[0]
}
func (h *levelHeap) removeLevel(l *level) {
	if i, ok := h.index[l]; ok {
		heap.Remove(h, i)
	}
}

type bookSide struct {
	isBid  bool
	levels map[sim.Price]*level
	h      *levelHeap
}

func newBookSide(isBid bool) *bookSide {
	return &bookSide{isBid: isBid, levels: map[sim.Price]*level{}, h: newLevelHeap(isBid)}
}

func (bs *bookSide) bestLevel() *level { return bs.h.best() }

func (bs *bookSide) getOrCreate(price sim.Price) *level {
	if l, ok := bs.levels[price]; ok {
		return l
	}
	l := &level{price: price}
	bs.levels[price] = l
	heap.Push(bs.h, l)
	return l
}

func (bs *bookSide) removeLevel(l *level) {
	delete(bs.levels, l.price)
	bs.h.removeLevel(l)
}

// levelsTo returns up to depth aggregate levels, best first.
func (bs *bookSide) levelsTo(depth int) []sim.BookLevel {
	out := make([]sim.BookLevel, 0, depth)
	// Walk a copy of the heap order by repeatedly popping a scratch heap;
	// depth is small so this stays cheap.
	scratch := &levelHeap{data: append([]*level(nil), bs.h.data...), index: map[*level]int{}, isBid: bs.isBid}
	for i, l := range scratch.data {
		scratch.index[l] = i
	}
	for len(out) < depth && scratch.Len() > 0 {
		l := heap.Pop(scratch).(*level)
		if l == nil || l.totalQty <= 0 {
			continue
		}
		out = append(out, sim.BookLevel{
			Price:         l.price,
			TotalQuantity: l.totalQty,
			OrderCount:    l.orderCount(),
		})
	}
	return out
}
