package api

import "github.com/zappabad/marketsim/internal/sim"

// StateResponse is the market snapshot without bulk history; candles carry
// the time series.
type StateResponse struct {
	Time            sim.Timestamp         `json:"time"`
	Date            string                `json:"date"`
	State           string                `json:"state"`
	Prices          map[string]sim.Price  `json:"prices"`
	Fundamentals    map[string]sim.Price  `json:"fundamentals"`
	Volumes         map[string]sim.Volume `json:"volumes"`
	GlobalSentiment float64               `json:"globalSentiment"`
	InterestRate    float64               `json:"interestRate"`
}

// OrderRequest is an external order submission.
type OrderRequest struct {
	Symbol   string  `json:"symbol"`
	Side     string  `json:"side"`
	Type     string  `json:"type"`
	Price    float64 `json:"price"`
	Quantity int64   `json:"quantity"`
}

// OrderResponse reports the immediate matching outcome.
type OrderResponse struct {
	OrderID  sim.OrderID `json:"orderId"`
	Filled   sim.Volume  `json:"filled"`
	AvgPrice sim.Price   `json:"avgPrice"`
	Resting  sim.Volume  `json:"resting"`
}

// CancelResponse reports the quantity removed from the book.
type CancelResponse struct {
	OrderID   sim.OrderID `json:"orderId"`
	Cancelled sim.Volume  `json:"cancelled"`
}

// NewsRequest injects a manual news event.
type NewsRequest struct {
	Category  string  `json:"category"`
	Sentiment string  `json:"sentiment"`
	Industry  string  `json:"industry"`
	Symbol    string  `json:"symbol"`
	Magnitude float64 `json:"magnitude"`
	Headline  string  `json:"headline"`
}

// NewsEventResponse is the external view of one event.
type NewsEventResponse struct {
	Category    string        `json:"category"`
	Sentiment   string        `json:"sentiment"`
	Industry    string        `json:"industry,omitempty"`
	Symbol      string        `json:"symbol,omitempty"`
	CompanyName string        `json:"companyName,omitempty"`
	Subcategory string        `json:"subcategory,omitempty"`
	Magnitude   float64       `json:"magnitude"`
	Timestamp   sim.Timestamp `json:"timestamp"`
	Headline    string        `json:"headline"`
}

// TradeResponse is the external view of one trade print.
type TradeResponse struct {
	Symbol     string        `json:"symbol"`
	Price      sim.Price     `json:"price"`
	Quantity   sim.Volume    `json:"quantity"`
	BuyerType  string        `json:"buyerType"`
	SellerType string        `json:"sellerType"`
	Timestamp  sim.Timestamp `json:"timestamp"`
}

// StepRequest advances the simulation by a number of ticks.
type StepRequest struct {
	Count int `json:"count"`
}

// PopulateRequest optionally overrides the configured populate window.
type PopulateRequest struct {
	Days      int    `json:"days"`
	StartDate string `json:"startDate"`
}

// RestoreRequest rewinds the simulation to a date and price set.
type RestoreRequest struct {
	Date   string               `json:"date"`
	Prices map[string]sim.Price `json:"prices"`
}

// ErrorResponse is the uniform error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func newsResponse(ev sim.NewsEvent) NewsEventResponse {
	return NewsEventResponse{
		Category:    ev.Category.String(),
		Sentiment:   ev.Sentiment.String(),
		Industry:    ev.Industry,
		Symbol:      ev.Symbol,
		CompanyName: ev.CompanyName,
		Subcategory: ev.Subcategory,
		Magnitude:   ev.Magnitude,
		Timestamp:   ev.Timestamp,
		Headline:    ev.Headline,
	}
}

func newsResponses(events []sim.NewsEvent) []NewsEventResponse {
	out := make([]NewsEventResponse, len(events))
	for i, ev := range events {
		out[i] = newsResponse(ev)
	}
	return out
}

func tradeResponses(trades []sim.Trade) []TradeResponse {
	out := make([]TradeResponse, len(trades))
	for i, t := range trades {
		out[i] = TradeResponse{
			Symbol:     t.Symbol,
			Price:      t.Price,
			Quantity:   t.Quantity,
			BuyerType:  t.BuyerType,
			SellerType: t.SellerType,
			Timestamp:  t.Timestamp,
		}
	}
	return out
}
