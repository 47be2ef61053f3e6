package news

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zappabad/marketsim/internal/sim"
)

func newTestGenerator() *Generator {
	g := NewGenerator(DefaultConfig())
	g.AddSymbol("ACME", "Acme Corp", "TECH", 1e8)
	g.AddSymbol("GLOB", "Globex", "ENERGY", 5e7)
	return g
}

func TestGenerateCategoriesAndMagnitudes(t *testing.T) {
	g := newTestGenerator()
	rng := sim.NewRand(42)

	counts := map[sim.NewsCategory]int{}
	for tick := 0; tick < 50_000; tick++ {
		for _, ev := range g.Generate(sim.Timestamp(tick), 1.0, rng) {
			counts[ev.Category]++
			assert.GreaterOrEqual(t, ev.Magnitude, 0.0)
			assert.NotEmpty(t, ev.Headline)
			if ev.Category == sim.NewsCompany {
				assert.Contains(t, []string{"ACME", "GLOB"}, ev.Symbol)
				assert.NotEmpty(t, ev.Industry)
			}
			if ev.Category == sim.NewsIndustry {
				assert.Contains(t, []string{"TECH", "ENERGY"}, ev.Industry)
			}
		}
	}

	total := 0
	for _, c := range counts {
		total += c
	}
	require.Greater(t, total, 4000) // lambda 0.12 over 50k ticks

	// Category bands: 15% global, 10% political, 35% industry, 40% company.
	assert.InDelta(t, 0.15, float64(counts[sim.NewsGlobal])/float64(total), 0.03)
	assert.InDelta(t, 0.10, float64(counts[sim.NewsPolitical])/float64(total), 0.03)
	assert.InDelta(t, 0.35, float64(counts[sim.NewsIndustry])/float64(total), 0.03)
	assert.InDelta(t, 0.40, float64(counts[sim.NewsCompany])/float64(total), 0.03)
}

func TestTickScaleRaisesArrivalRate(t *testing.T) {
	g := newTestGenerator()
	rng := sim.NewRand(7)

	coarse := 0
	for tick := 0; tick < 1000; tick++ {
		coarse += len(g.Generate(sim.Timestamp(tick), 125.0, rng))
	}
	// lambda 0.12 * 125 = 15 events per coarse tick on average.
	assert.InDelta(t, 15_000, coarse, 1500)
}

func TestInjectedConsumedNextGenerate(t *testing.T) {
	g := newTestGenerator()

	g.Inject(sim.NewsEvent{
		Category:  sim.NewsCompany,
		Symbol:    "ACME",
		Sentiment: sim.SentimentNegative,
		Magnitude: 0.5,
	})
	assert.Equal(t, 1, g.PendingInjected())

	events := g.Generate(5555, 1.0, sim.NewRand(99))
	require.NotEmpty(t, events)
	injected := events[0]
	assert.Equal(t, sim.NewsCompany, injected.Category)
	assert.Equal(t, "ACME", injected.Symbol)
	assert.Equal(t, sim.Timestamp(5555), injected.Timestamp)
	// Industry and company name fill in from registration.
	assert.Equal(t, "TECH", injected.Industry)
	assert.Equal(t, "Acme Corp", injected.CompanyName)
	assert.NotEmpty(t, injected.Headline)
	assert.Zero(t, g.PendingInjected())
}

func TestInjectKeepsCallerHeadline(t *testing.T) {
	g := newTestGenerator()
	g.Inject(sim.NewsEvent{
		Category:  sim.NewsGlobal,
		Sentiment: sim.SentimentPositive,
		Magnitude: 0.2,
		Headline:  "Custom headline",
	})
	events := g.Generate(1, 1.0, sim.NewRand(1))
	require.NotEmpty(t, events)
	assert.Equal(t, "Custom headline", events[0].Headline)
}

func TestRecentRingBounded(t *testing.T) {
	g := newTestGenerator()
	for i := 0; i < 100; i++ {
		g.AddToRecent(sim.NewsEvent{Timestamp: sim.Timestamp(i)})
	}
	recent := g.Recent(50)
	require.Len(t, recent, maxRecent)
	assert.Equal(t, sim.Timestamp(99), recent[len(recent)-1].Timestamp)

	assert.Len(t, g.Recent(5), 5)
	assert.Nil(t, NewGenerator(DefaultConfig()).Recent(5))
}

func TestHistoryAccumulatesAndClears(t *testing.T) {
	g := newTestGenerator()
	rng := sim.NewRand(3)
	for tick := 0; tick < 2000; tick++ {
		g.Generate(sim.Timestamp(tick), 10.0, rng)
	}
	assert.NotEmpty(t, g.History())

	g.ClearHistory()
	assert.Empty(t, g.History())
	assert.Nil(t, g.Recent(5))
}

func TestCapWeightedSelection(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CapWeighted = true
	g := NewGenerator(cfg)
	g.AddSymbol("BIG", "Big Co", "TECH", 1e12)
	g.AddSymbol("TINY", "Tiny Co", "TECH", 1)

	rng := sim.NewRand(5)
	big := 0
	const n = 2000
	for i := 0; i < n; i++ {
		if g.pickSymbol(rng) == "BIG" {
			big++
		}
	}
	assert.Greater(t, big, n*99/100)
}

func TestSubstitute(t *testing.T) {
	assert.Equal(t, "ACME beats estimates", substitute("%s beats estimates", "ACME"))
	assert.Equal(t, "no placeholder", substitute("no placeholder", "ACME"))
}
