// Package macro holds the economy-wide state every instrument feels: a
// mean-reverting global sentiment and volatility index, a slow random-walk
// interest rate, and the per-tick global shock fed into fundamentals.
package macro

import "github.com/zappabad/marketsim/internal/sim"

// Config holds the mean-reversion and news-impact parameters.
type Config struct {
	SentimentMean        float64 `json:"sentimentMean"`
	SentimentReversion   float64 `json:"sentimentReversion"`
	SentimentNoiseStd    float64 `json:"sentimentNoiseStd"`
	VolatilityMean       float64 `json:"volatilityMean"`
	VolatilityReversion  float64 `json:"volatilityReversion"`
	VolatilityNoiseStd   float64 `json:"volatilityNoiseStd"`
	InterestRateNoiseStd float64 `json:"interestRateNoiseStd"`
	InterestRateMin      float64 `json:"interestRateMin"`
	InterestRateMax      float64 `json:"interestRateMax"`

	GlobalShockSentimentWeight float64 `json:"globalShockSentimentWeight"`
	GlobalShockNoiseStd        float64 `json:"globalShockNoiseStd"`

	GlobalSentimentMult    float64 `json:"globalSentimentMult"`
	PoliticalSentimentMult float64 `json:"politicalSentimentMult"`
	NegativeVolImpact      float64 `json:"negativeVolImpact"`
	PoliticalVolImpact     float64 `json:"politicalVolImpact"`
}

// DefaultConfig returns the standard macro dynamics.
func DefaultConfig() Config {
	return Config{
		SentimentMean:        0.0,
		SentimentReversion:   0.05,
		SentimentNoiseStd:    0.01,
		VolatilityMean:       0.2,
		VolatilityReversion:  0.02,
		VolatilityNoiseStd:   0.01,
		InterestRateNoiseStd: 0.0001,
		InterestRateMin:      0.0,
		InterestRateMax:      0.15,

		GlobalShockSentimentWeight: 0.0003,
		GlobalShockNoiseStd:        0.0003,

		GlobalSentimentMult:    0.5,
		PoliticalSentimentMult: 0.3,
		NegativeVolImpact:      0.1,
		PoliticalVolImpact:     0.15,
	}
}

// Environment is the macro state. Deterministic; the engine serializes
// access and supplies the RNG.
type Environment struct {
	cfg Config

	globalSentiment float64 // -1 to 1
	interestRate    float64
	riskIndex       float64 // 0 to 1
	volatilityIndex float64 // VIX-like
}

// New creates a neutral macro environment.
func New(cfg Config) *Environment {
	return &Environment{
		cfg:             cfg,
		globalSentiment: 0.0,
		interestRate:    0.05,
		riskIndex:       0.3,
		volatilityIndex: 0.2,
	}
}

func (e *Environment) GlobalSentiment() float64 { return e.globalSentiment }
func (e *Environment) InterestRate() float64    { return e.interestRate }
func (e *Environment) RiskIndex() float64       { return e.riskIndex }
func (e *Environment) VolatilityIndex() float64 { return e.volatilityIndex }

func (e *Environment) SetGlobalSentiment(v float64) { e.globalSentiment = clamp(v, -1, 1) }
func (e *Environment) SetInterestRate(v float64) {
	e.interestRate = clamp(v, e.cfg.InterestRateMin, e.cfg.InterestRateMax)
}

// Update advances each macro variable one tick: sentiment and volatility
// mean-revert with noise, the risk index is derived from both, and the
// interest rate random-walks within its bounds.
func (e *Environment) Update(rng *sim.Rand) {
	e.globalSentiment += e.cfg.SentimentReversion*(e.cfg.SentimentMean-e.globalSentiment) +
		rng.Normal(0, e.cfg.SentimentNoiseStd)
	e.globalSentiment = clamp(e.globalSentiment, -1, 1)

	e.volatilityIndex += e.cfg.VolatilityReversion*(e.cfg.VolatilityMean-e.volatilityIndex) +
		rng.Normal(0, e.cfg.VolatilityNoiseStd)
	e.volatilityIndex = clamp(e.volatilityIndex, 0.05, 1.0)

	e.riskIndex = clamp(0.3+0.3*e.volatilityIndex-0.2*e.globalSentiment, 0, 1)

	e.interestRate += rng.Normal(0, e.cfg.InterestRateNoiseStd)
	e.interestRate = clamp(e.interestRate, e.cfg.InterestRateMin, e.cfg.InterestRateMax)
}

// ApplyNews shifts sentiment and volatility for global and political events.
// Other categories are handled by per-industry and per-company shock
// accumulators, not here.
func (e *Environment) ApplyNews(news sim.NewsEvent) {
	if news.Category != sim.NewsGlobal && news.Category != sim.NewsPolitical {
		return
	}

	impact := news.Magnitude
	switch news.Sentiment {
	case sim.SentimentNegative:
		impact = -impact
	case sim.SentimentNeutral:
		impact *= 0.1
	}

	mult := e.cfg.GlobalSentimentMult
	if news.Category == sim.NewsPolitical {
		mult = e.cfg.PoliticalSentimentMult
	}
	e.globalSentiment = clamp(e.globalSentiment+impact*mult, -1, 1)

	if news.Sentiment == sim.SentimentNegative {
		e.volatilityIndex += news.Magnitude * e.cfg.NegativeVolImpact
	}
	if news.Category == sim.NewsPolitical {
		e.volatilityIndex += news.Magnitude * e.cfg.PoliticalVolImpact
	}
	e.volatilityIndex = clamp(e.volatilityIndex, 0.05, 1.0)
}

// GlobalShock is the sentiment-weighted noisy shock applied to every
// instrument's fundamental each tick.
func (e *Environment) GlobalShock(rng *sim.Rand) float64 {
	return e.globalSentiment*e.cfg.GlobalShockSentimentWeight +
		rng.Normal(0, e.cfg.GlobalShockNoiseStd)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
