// Package news generates the stochastic event stream that perturbs agent
// beliefs, macro state and instrument fundamentals. Arrival count per tick
// is Poisson, category and sentiment come from fixed probability bands, and
// magnitude is half-normal with a category-specific spread.
package news

import "github.com/zappabad/marketsim/internal/sim"

const (
	maxRecent  = 20
	maxHistory = 50_000
)

// Config holds the arrival and magnitude parameters.
type Config struct {
	// Lambda is the Poisson arrival rate per reference tick.
	Lambda float64 `json:"lambda"`

	GlobalImpactStd    float64 `json:"globalImpactStd"`
	PoliticalImpactStd float64 `json:"politicalImpactStd"`
	IndustryImpactStd  float64 `json:"industryImpactStd"`
	CompanyImpactStd   float64 `json:"companyImpactStd"`

	// CapWeighted selects company-news targets by market cap instead of
	// uniformly.
	CapWeighted bool `json:"capWeighted"`
}

// DefaultConfig returns the standard news climate.
func DefaultConfig() Config {
	return Config{
		Lambda:             0.12,
		GlobalImpactStd:    0.02,
		PoliticalImpactStd: 0.04,
		IndustryImpactStd:  0.03,
		CompanyImpactStd:   0.03,
	}
}

// Generator produces news events. Deterministic given the RNG; the engine
// serializes access.
type Generator struct {
	cfg Config

	industries       []string
	symbols          []string
	symbolToIndustry map[string]string
	symbolToName     map[string]string
	symbolToCap      map[string]float64

	injected []sim.NewsEvent
	recent   []sim.NewsEvent
	history  []sim.NewsEvent
}

// NewGenerator creates a generator with no instruments registered.
func NewGenerator(cfg Config) *Generator {
	return &Generator{
		cfg:              cfg,
		symbolToIndustry: map[string]string{},
		symbolToName:     map[string]string{},
		symbolToCap:      map[string]float64{},
	}
}

// AddSymbol registers an instrument as a news target. Its industry becomes a
// target too.
func (g *Generator) AddSymbol(symbol, name, industry string, marketCap float64) {
	if _, known := g.symbolToIndustry[symbol]; !known {
		g.symbols = append(g.symbols, symbol)
	}
	g.symbolToIndustry[symbol] = industry
	g.symbolToName[symbol] = name
	g.symbolToCap[symbol] = marketCap

	for _, ind := range g.industries {
		if ind == industry {
			return
		}
	}
	g.industries = append(g.industries, industry)
}

// SetMarketCap refreshes the weight used by cap-weighted target selection.
func (g *Generator) SetMarketCap(symbol string, marketCap float64) {
	if _, known := g.symbolToIndustry[symbol]; known {
		g.symbolToCap[symbol] = marketCap
	}
}

// Generate returns this tick's events: all injected events first (stamped
// with now), then Poisson(lambda*tickScale) random ones. Category bands:
// 15% global, 10% political, 35% industry, 40% company.
func (g *Generator) Generate(now sim.Timestamp, tickScale float64, rng *sim.Rand) []sim.NewsEvent {
	var events []sim.NewsEvent

	for _, ev := range g.injected {
		ev.Timestamp = now
		events = append(events, ev)
	}
	g.injected = g.injected[:0]

	n := rng.Poisson(g.cfg.Lambda * tickScale)
	for i := 0; i < n; i++ {
		r := rng.Float64()
		switch {
		case r < 0.15:
			events = append(events, g.generateGlobal(now, rng))
		case r < 0.25:
			events = append(events, g.generatePolitical(now, rng))
		case r < 0.60:
			if len(g.industries) > 0 {
				events = append(events, g.generateIndustry(now, rng))
			}
		default:
			if len(g.symbols) > 0 {
				events = append(events, g.generateCompany(now, rng))
			}
		}
	}

	for _, ev := range events {
		g.history = append(g.history, ev)
		if len(g.history) > maxHistory {
			g.history = g.history[1:]
		}
	}
	return events
}

// Inject queues an externally supplied event for the next tick.
func (g *Generator) Inject(ev sim.NewsEvent) {
	if ev.Symbol != "" {
		if ev.Industry == "" {
			ev.Industry = g.symbolToIndustry[ev.Symbol]
		}
		if ev.CompanyName == "" {
			ev.CompanyName = g.symbolToName[ev.Symbol]
		}
	}
	if ev.Headline == "" {
		ev.Headline = fallbackHeadline(ev)
	}
	g.injected = append(g.injected, ev)
}

// PendingInjected reports how many injected events wait for the next tick.
func (g *Generator) PendingInjected() int { return len(g.injected) }

// AddToRecent pushes an event onto the small streaming ring.
func (g *Generator) AddToRecent(ev sim.NewsEvent) {
	g.recent = append(g.recent, ev)
	if len(g.recent) > maxRecent {
		g.recent = g.recent[1:]
	}
}

// Recent returns up to count of the latest events, oldest first.
func (g *Generator) Recent(count int) []sim.NewsEvent {
	if len(g.recent) == 0 {
		return nil
	}
	start := 0
	if len(g.recent) > count {
		start = len(g.recent) - count
	}
	out := make([]sim.NewsEvent, len(g.recent)-start)
	copy(out, g.recent[start:])
	return out
}

// History returns the full bounded event history, oldest first.
func (g *Generator) History() []sim.NewsEvent {
	out := make([]sim.NewsEvent, len(g.history))
	copy(out, g.history)
	return out
}

// ClearHistory drops the accumulated history, keeping registrations.
func (g *Generator) ClearHistory() {
	g.history = nil
	g.recent = nil
}

func (g *Generator) generateGlobal(now sim.Timestamp, rng *sim.Rand) sim.NewsEvent {
	ev := sim.NewsEvent{
		Category:    sim.NewsGlobal,
		Subcategory: "economic",
		Magnitude:   rng.HalfNormal(g.cfg.GlobalImpactStd),
		Timestamp:   now,
	}
	r := rng.Float64()
	switch {
	case r < 0.4:
		ev.Sentiment = sim.SentimentPositive
	case r < 0.7:
		ev.Sentiment = sim.SentimentNegative
	default:
		ev.Sentiment = sim.SentimentNeutral
	}
	ev.Headline = headline(ev, rng)
	return ev
}

func (g *Generator) generatePolitical(now sim.Timestamp, rng *sim.Rand) sim.NewsEvent {
	ev := sim.NewsEvent{
		Category:    sim.NewsPolitical,
		Subcategory: "political",
		Magnitude:   rng.HalfNormal(g.cfg.PoliticalImpactStd),
		Timestamp:   now,
	}
	r := rng.Float64()
	switch {
	case r < 0.35:
		ev.Sentiment = sim.SentimentPositive
	case r < 0.65:
		ev.Sentiment = sim.SentimentNegative
	default:
		ev.Sentiment = sim.SentimentNeutral
	}
	ev.Headline = headline(ev, rng)
	return ev
}

func (g *Generator) generateIndustry(now sim.Timestamp, rng *sim.Rand) sim.NewsEvent {
	ev := sim.NewsEvent{
		Category:    sim.NewsIndustry,
		Industry:    g.industries[rng.UniformInt(0, len(g.industries)-1)],
		Subcategory: "sector",
		Magnitude:   rng.HalfNormal(g.cfg.IndustryImpactStd),
		Timestamp:   now,
	}
	r := rng.Float64()
	switch {
	case r < 0.4:
		ev.Sentiment = sim.SentimentPositive
	case r < 0.75:
		ev.Sentiment = sim.SentimentNegative
	default:
		ev.Sentiment = sim.SentimentNeutral
	}
	ev.Headline = headline(ev, rng)
	return ev
}

func (g *Generator) generateCompany(now sim.Timestamp, rng *sim.Rand) sim.NewsEvent {
	symbol := g.pickSymbol(rng)
	ev := sim.NewsEvent{
		Category:    sim.NewsCompany,
		Symbol:      symbol,
		Industry:    g.symbolToIndustry[symbol],
		CompanyName: g.symbolToName[symbol],
		Subcategory: "corporate",
		Magnitude:   rng.HalfNormal(g.cfg.CompanyImpactStd),
		Timestamp:   now,
	}
	r := rng.Float64()
	switch {
	case r < 0.45:
		ev.Sentiment = sim.SentimentPositive
	case r < 0.8:
		ev.Sentiment = sim.SentimentNegative
	default:
		ev.Sentiment = sim.SentimentNeutral
	}
	ev.Headline = headline(ev, rng)
	return ev
}

func (g *Generator) pickSymbol(rng *sim.Rand) string {
	if !g.cfg.CapWeighted {
		return g.symbols[rng.UniformInt(0, len(g.symbols)-1)]
	}
	total := 0.0
	for _, s := range g.symbols {
		total += g.symbolToCap[s]
	}
	if total <= 0 {
		return g.symbols[rng.UniformInt(0, len(g.symbols)-1)]
	}
	target := rng.Float64() * total
	acc := 0.0
	for _, s := range g.symbols {
		acc += g.symbolToCap[s]
		if acc >= target {
			return s
		}
	}
	return g.symbols[len(g.symbols)-1]
}
