package agent

import "github.com/zappabad/marketsim/internal/sim"

// Counts sets how many agents of each strategy the population holds.
type Counts struct {
	Fundamental   int `json:"fundamental"`
	Momentum      int `json:"momentum"`
	MeanReversion int `json:"meanReversion"`
	Noise         int `json:"noise"`
	MarketMaker   int `json:"marketMaker"`
	CrossEffects  int `json:"crossEffects"`
	Inventory     int `json:"inventory"`
	Event         int `json:"event"`
}

// DefaultCounts returns the standard population mix.
func DefaultCounts() Counts {
	return Counts{
		Fundamental:   60,
		Momentum:      40,
		MeanReversion: 20,
		Noise:         25,
		MarketMaker:   25,
		CrossEffects:  10,
		Inventory:     10,
		Event:         15,
	}
}

// Total returns the population size.
func (c Counts) Total() int {
	return c.Fundamental + c.Momentum + c.MeanReversion + c.Noise +
		c.MarketMaker + c.CrossEffects + c.Inventory + c.Event
}

// CashParams sets the starting-cash distribution.
type CashParams struct {
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
}

// DefaultCashParams returns the standard cash distribution.
func DefaultCashParams() CashParams {
	return CashParams{Mean: 100_000, Std: 20_000}
}

// NewParams samples one agent's immutable parameters from the configured
// distributions.
func NewParams(gen GenerationParams, rng *sim.Rand) sim.AgentParams {
	ra := rng.Normal(gen.RiskAversionMean, gen.RiskAversionStd)
	if ra < gen.RiskAversionMin {
		ra = gen.RiskAversionMin
	}
	return sim.AgentParams{
		RiskAversion:    ra,
		ReactionSpeed:   rng.Exponential(gen.ReactionSpeedLambda),
		NewsWeight:      rng.Uniform(gen.NewsWeightMin, gen.NewsWeightMax),
		ConfidenceLevel: rng.Uniform(gen.ConfidenceMin, gen.ConfidenceMax),
		TimeHorizon:     int(rng.LogNormal(gen.TimeHorizonMu, gen.TimeHorizonSigma)),
	}
}

// CreatePopulation builds the full agent mix with sampled parameters and
// normally distributed starting cash (floored at 1000). IDs are assigned
// sequentially from firstID.
func CreatePopulation(counts Counts, cash CashParams, cfg *Config, rng *sim.Rand, firstID sim.AgentID) []Agent {
	agents := make([]Agent, 0, counts.Total())
	nextID := firstID

	drawCash := func() float64 {
		c := rng.Normal(cash.Mean, cash.Std)
		if c < 1000 {
			c = 1000
		}
		return c
	}
	next := func() (sim.AgentID, float64, sim.AgentParams) {
		id := nextID
		nextID++
		return id, drawCash(), NewParams(cfg.Generation, rng)
	}

	for i := 0; i < counts.Fundamental; i++ {
		id, c, p := next()
		agents = append(agents, NewFundamental(id, c, p, cfg, rng))
	}
	for i := 0; i < counts.Momentum; i++ {
		id, c, p := next()
		agents = append(agents, NewMomentum(id, c, p, cfg, rng))
	}
	for i := 0; i < counts.MeanReversion; i++ {
		id, c, p := next()
		agents = append(agents, NewMeanReversion(id, c, p, cfg, rng))
	}
	for i := 0; i < counts.Noise; i++ {
		id, c, p := next()
		agents = append(agents, NewNoise(id, c, p, cfg, rng))
	}
	for i := 0; i < counts.MarketMaker; i++ {
		id, c, p := next()
		agents = append(agents, NewMarketMaker(id, c, p, cfg, rng))
	}
	for i := 0; i < counts.CrossEffects; i++ {
		id, c, p := next()
		agents = append(agents, NewCrossEffects(id, c, p, cfg, rng))
	}
	for i := 0; i < counts.Inventory; i++ {
		id, c, p := next()
		agents = append(agents, NewInventory(id, c, p, cfg, rng))
	}
	for i := 0; i < counts.Event; i++ {
		id, c, p := next()
		agents = append(agents, NewEvent(id, c, p, cfg, rng))
	}
	return agents
}
