package sim

import "strconv"

// Side represents the order side: buy or sell.
type Side uint8

const (
	SideBuy Side = iota
	SideSell
)

func (s Side) String() string {
	switch s {
	case SideBuy:
		return "BUY"
	case SideSell:
		return "SELL"
	default:
		return "UNKNOWN"
	}
}

// ParseSide parses "BUY"/"SELL" (case-sensitive, as the API sends them).
func ParseSide(s string) (Side, bool) {
	switch s {
	case "BUY":
		return SideBuy, true
	case "SELL":
		return SideSell, true
	default:
		return 0, false
	}
}

// OrderType represents the order type: market or limit.
type OrderType uint8

const (
	OrderMarket OrderType = iota
	OrderLimit
)

func (t OrderType) String() string {
	switch t {
	case OrderMarket:
		return "MARKET"
	case OrderLimit:
		return "LIMIT"
	default:
		return "UNKNOWN"
	}
}

// ParseOrderType parses "MARKET"/"LIMIT".
func ParseOrderType(s string) (OrderType, bool) {
	switch s {
	case "MARKET":
		return OrderMarket, true
	case "LIMIT":
		return OrderLimit, true
	default:
		return 0, false
	}
}

// Price is a price in currency units.
type Price = float64

// Volume is a share quantity.
type Volume = int64

// Timestamp is simulated epoch milliseconds.
type Timestamp = uint64

// OrderID uniquely identifies an order within a book.
type OrderID uint64

// AgentID identifies the agent that placed an order. ID 0 is reserved for
// external/manual orders submitted through the API.
type AgentID uint64

func (id OrderID) String() string { return strconv.FormatUint(uint64(id), 10) }
func (id AgentID) String() string { return strconv.FormatUint(uint64(id), 10) }

// Order is an input/value object. The book mutates its own resting copies,
// never the one an agent handed in.
type Order struct {
	ID        OrderID
	AgentID   AgentID
	Symbol    string
	Side      Side
	Type      OrderType
	Price     Price // limit orders only
	Quantity  Volume
	Timestamp Timestamp // sim ms, set by the book on add
}

// Trade is an executed match between two orders. Append-only; it is the unit
// of state propagation to agents and to price/candle updates.
type Trade struct {
	BuyOrderID  OrderID
	SellOrderID OrderID
	BuyerID     AgentID
	SellerID    AgentID
	BuyerType   string
	SellerType  string
	Symbol      string
	Price       Price
	Quantity    Volume
	Timestamp   Timestamp
}

// Position is a signed holding in one symbol. Negative quantity is a bounded
// short position.
type Position struct {
	Symbol   string
	Quantity Volume
	AvgCost  Price
}

// NewsCategory classifies a news event's scope.
type NewsCategory uint8

const (
	NewsGlobal NewsCategory = iota
	NewsPolitical
	NewsIndustry
	NewsCompany
)

func (c NewsCategory) String() string {
	switch c {
	case NewsGlobal:
		return "GLOBAL"
	case NewsPolitical:
		return "POLITICAL"
	case NewsIndustry:
		return "INDUSTRY"
	case NewsCompany:
		return "COMPANY"
	default:
		return "UNKNOWN"
	}
}

// ParseNewsCategory parses a category name as the API sends it.
func ParseNewsCategory(s string) (NewsCategory, bool) {
	switch s {
	case "GLOBAL":
		return NewsGlobal, true
	case "POLITICAL":
		return NewsPolitical, true
	case "INDUSTRY":
		return NewsIndustry, true
	case "COMPANY":
		return NewsCompany, true
	default:
		return 0, false
	}
}

// NewsSentiment is the direction of a news event.
type NewsSentiment uint8

const (
	SentimentPositive NewsSentiment = iota
	SentimentNegative
	SentimentNeutral
)

func (s NewsSentiment) String() string {
	switch s {
	case SentimentPositive:
		return "POSITIVE"
	case SentimentNegative:
		return "NEGATIVE"
	case SentimentNeutral:
		return "NEUTRAL"
	default:
		return "UNKNOWN"
	}
}

// ParseNewsSentiment parses "POSITIVE"/"NEGATIVE"/"NEUTRAL".
func ParseNewsSentiment(s string) (NewsSentiment, bool) {
	switch s {
	case "POSITIVE":
		return SentimentPositive, true
	case "NEGATIVE":
		return SentimentNegative, true
	case "NEUTRAL":
		return SentimentNeutral, true
	default:
		return 0, false
	}
}

// Sign returns +1, -1 or 0 for positive, negative and neutral sentiment.
func (s NewsSentiment) Sign() float64 {
	switch s {
	case SentimentPositive:
		return 1
	case SentimentNegative:
		return -1
	default:
		return 0
	}
}

// NewsEvent is one piece of news. Consumed by the engine and every agent the
// tick it is generated; kept in bounded buffers for external inspection.
type NewsEvent struct {
	Category    NewsCategory
	Sentiment   NewsSentiment
	Industry    string // industry news and company spillover
	Symbol      string // company news only
	CompanyName string
	Subcategory string
	Magnitude   float64 // >= 0
	Timestamp   Timestamp
	Headline    string
}

// Candle is one OHLCV bar.
type Candle struct {
	Time   Timestamp `json:"time"` // bar open, epoch ms
	Open   Price     `json:"open"`
	High   Price     `json:"high"`
	Low    Price     `json:"low"`
	Close  Price     `json:"close"`
	Volume float64   `json:"volume"`
}

// Valid reports whether the candle holds real data.
func (c Candle) Valid() bool { return c.Time > 0 && c.Open > 0 }

// MarketState is the read-only per-tick snapshot handed to every agent.
// Built once per tick so that within-tick ordering among agents carries no
// informational advantage. Agents must not mutate it.
type MarketState struct {
	CurrentTime Timestamp
	TickScale   float64
	// Symbols is sorted. Agents pick targets and range over instruments
	// through it so a fixed seed replays identically.
	Symbols          []string
	Prices           map[string]Price
	Fundamentals     map[string]Price
	Volumes          map[string]Volume
	PriceHistory     map[string][]Price
	SymbolToIndustry map[string]string
	CrossEffects     map[string][]CrossEffect
	RecentNews       []NewsEvent
	GlobalSentiment  float64
	InterestRate     float64
}

// CrossEffect declares that a move in a source symbol is expected to drag a
// related symbol by the given coefficient.
type CrossEffect struct {
	TargetSymbol string  `json:"targetSymbol"`
	Coefficient  float64 `json:"coefficient"`
}

// AgentParams are sampled once at agent creation and never change.
type AgentParams struct {
	RiskAversion    float64
	ReactionSpeed   float64
	NewsWeight      float64
	ConfidenceLevel float64
	TimeHorizon     int
}

// AgentTypeStats accumulates per-strategy order and fill statistics.
type AgentTypeStats struct {
	OrdersPlaced uint64  `json:"ordersPlaced"`
	BuyOrders    uint64  `json:"buyOrders"`
	SellOrders   uint64  `json:"sellOrders"`
	Fills        uint64  `json:"fills"`
	VolumeTraded float64 `json:"volumeTraded"`
	CashSpent    float64 `json:"cashSpent"`
	CashReceived float64 `json:"cashReceived"`
}

// BookLevel is aggregate resting quantity at one price.
type BookLevel struct {
	Price         Price  `json:"price"`
	TotalQuantity Volume `json:"quantity"`
	OrderCount    int    `json:"orders"`
}

// BookSnapshot is a derived, read-only view of one order book.
type BookSnapshot struct {
	Symbol   string      `json:"symbol"`
	Bids     []BookLevel `json:"bids"`
	Asks     []BookLevel `json:"asks"`
	BestBid  Price       `json:"bestBid"`
	BestAsk  Price       `json:"bestAsk"`
	Spread   Price       `json:"spread"`
	MidPrice Price       `json:"midPrice"`
}

// Metrics is the aggregate diagnostics view of a running simulation.
type Metrics struct {
	TotalTicks     uint64                    `json:"totalTicks"`
	TotalTrades    uint64                    `json:"totalTrades"`
	TotalOrders    uint64                    `json:"totalOrders"`
	AvgSpread      float64                   `json:"avgSpread"`
	Returns        map[string]float64        `json:"returns"`
	AgentTypeStats map[string]AgentTypeStats `json:"agentTypeStats"`
}
