// Package candle aggregates tick prices into OHLCV bars at several fixed
// intervals, keeping a bounded window of completed bars per symbol.
package candle

import "github.com/zappabad/marketsim/internal/sim"

// Interval is a candle period.
type Interval uint8

const (
	M1 Interval = iota
	M5
	M15
	M30
	H1
	D1
)

const (
	msPerMinute sim.Timestamp = 60_000
	msPerHour   sim.Timestamp = 3_600_000
	msPerDay    sim.Timestamp = 86_400_000

	maxCandles = 10_000
)

// Intervals lists every supported interval.
var Intervals = []Interval{M1, M5, M15, M30, H1, D1}

func (i Interval) String() string {
	switch i {
	case M1:
		return "1m"
	case M5:
		return "5m"
	case M15:
		return "15m"
	case M30:
		return "30m"
	case H1:
		return "1h"
	default:
		return "1d"
	}
}

// ParseInterval parses "1m".."1d". Unknown strings fall back to daily.
func ParseInterval(s string) Interval {
	switch s {
	case "1m", "M1":
		return M1
	case "5m", "M5":
		return M5
	case "15m", "M15":
		return M15
	case "30m", "M30":
		return M30
	case "1h", "H1":
		return H1
	default:
		return D1
	}
}

// Ms returns the interval duration in simulated milliseconds.
func (i Interval) Ms() sim.Timestamp {
	switch i {
	case M1:
		return msPerMinute
	case M5:
		return 5 * msPerMinute
	case M15:
		return 15 * msPerMinute
	case M30:
		return 30 * msPerMinute
	case H1:
		return msPerHour
	default:
		return msPerDay
	}
}

// Boundary floors a timestamp to the interval's bar-open time.
func (i Interval) Boundary(ts sim.Timestamp) sim.Timestamp {
	ms := i.Ms()
	return (ts / ms) * ms
}

type state struct {
	current   sim.Candle
	completed []sim.Candle
	hasData   bool
}

// Aggregator builds candles for every registered symbol at every interval.
// Deterministic; the engine serializes access.
type Aggregator struct {
	data map[string]map[Interval]*state
}

// NewAggregator returns an empty aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{data: map[string]map[Interval]*state{}}
}

// AddSymbol registers a symbol at every interval.
func (a *Aggregator) AddSymbol(symbol string) {
	if _, ok := a.data[symbol]; ok {
		return
	}
	states := map[Interval]*state{}
	for _, iv := range Intervals {
		states[iv] = &state{}
	}
	a.data[symbol] = states
}

// OnTick folds one price/volume observation into every interval's current
// bar, rolling a bar over when the tick crosses its boundary. Volume is the
// increment since the previous tick, not a running total.
func (a *Aggregator) OnTick(symbol string, price sim.Price, volume float64, simTime sim.Timestamp) {
	states, ok := a.data[symbol]
	if !ok {
		return
	}
	for iv, st := range states {
		boundary := iv.Boundary(simTime)
		switch {
		case !st.hasData:
			st.current = sim.Candle{Time: boundary, Open: price, High: price, Low: price, Close: price, Volume: volume}
			st.hasData = true
		case boundary > st.current.Time:
			// hasData guarantees a real bar, even one opening at epoch 0.
			st.completed = append(st.completed, st.current)
			if len(st.completed) > maxCandles {
				st.completed = st.completed[len(st.completed)-maxCandles:]
			}
			st.current = sim.Candle{Time: boundary, Open: price, High: price, Low: price, Close: price, Volume: volume}
		default:
			if price > st.current.High {
				st.current.High = price
			}
			if price < st.current.Low {
				st.current.Low = price
			}
			st.current.Close = price
			st.current.Volume += volume
		}
	}
}

// Candles returns up to limit completed bars at or after since, oldest
// first. since=0 means no cursor.
func (a *Aggregator) Candles(symbol string, iv Interval, since sim.Timestamp, limit int) []sim.Candle {
	states, ok := a.data[symbol]
	if !ok {
		return nil
	}
	completed := states[iv].completed

	start := 0
	if since > 0 {
		for start < len(completed) && completed[start].Time < since {
			start++
		}
	}
	out := completed[start:]
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	result := make([]sim.Candle, len(out))
	copy(result, out)
	return result
}

// AllCandles returns every symbol's completed bars at one interval since a
// cursor.
func (a *Aggregator) AllCandles(iv Interval, since sim.Timestamp) map[string][]sim.Candle {
	out := map[string][]sim.Candle{}
	for symbol := range a.data {
		out[symbol] = a.Candles(symbol, iv, since, maxCandles)
	}
	return out
}

// Current returns the building (incomplete) bar.
func (a *Aggregator) Current(symbol string, iv Interval) sim.Candle {
	states, ok := a.data[symbol]
	if !ok {
		return sim.Candle{}
	}
	return states[iv].current
}

// Count returns the number of completed bars.
func (a *Aggregator) Count(symbol string, iv Interval) int {
	states, ok := a.data[symbol]
	if !ok {
		return 0
	}
	return len(states[iv].completed)
}

// Reset drops all symbols and data.
func (a *Aggregator) Reset() {
	a.data = map[string]map[Interval]*state{}
}
