package news

import "github.com/zappabad/marketsim/internal/sim"

// Headline template pools, keyed by category and sentiment. Industry and
// company events substitute the target's display name.

var globalPositive = []string{
	"Global economic outlook improves, equity demand expected to rise",
	"Central bank signals continued growth, markets rally",
	"Manufacturing PMI beats expectations across major economies",
	"Consumer confidence hits multi-year high",
	"Trade volumes surge as supply chains normalize",
}

var globalNegative = []string{
	"Recession fears mount as economic indicators weaken",
	"Inflation concerns rattle equity markets",
	"Global trade tensions escalate, supply chains disrupted",
	"Central bank rate hikes weigh on growth outlook",
	"Currency volatility spikes across emerging markets",
}

var globalNeutral = []string{
	"Mixed economic signals keep markets cautious",
	"Central bank minutes show divided outlook",
	"Equity markets trade sideways awaiting data",
}

var politicalPositive = []string{
	"Trade tariffs lifted on key imports",
	"New infrastructure bill passes, boosting industrial outlook",
	"Government announces subsidies for domestic production",
	"International trade agreement reduces barriers",
	"Regulatory approval accelerates cross-border listings",
}

var politicalNegative = []string{
	"New tariffs imposed on strategic imports",
	"Export restrictions announced for key technologies",
	"Political instability rattles investor confidence",
	"Sanctions expand to include major trading partners",
	"Regulatory crackdown tightens market access",
}

var politicalNeutral = []string{
	"Trade negotiations continue without resolution",
	"Policy review committee meets on market regulations",
	"Markets await government policy announcement",
}

var industryPositive = []string{
	"%s sector posts strongest quarter in years",
	"Analysts upgrade %s sector on demand recovery",
	"%s industry wins favorable regulatory ruling",
	"Capital flows into %s stocks accelerate",
	"%s sector margins expand on falling input costs",
}

var industryNegative = []string{
	"%s sector hit by rising input costs",
	"Analysts downgrade %s sector on demand concerns",
	"%s industry faces tightening regulation",
	"Labor dispute disrupts %s sector output",
	"%s sector earnings warnings multiply",
}

var industryNeutral = []string{
	"%s sector results mixed as investors weigh outlook",
	"%s industry consolidation talks continue",
	"Conference highlights diverging views on %s sector",
}

var companyPositive = []string{
	"%s beats earnings expectations, raises guidance",
	"%s announces major new contract win",
	"%s unveils product line to strong reviews",
	"%s announces share buyback program",
	"Analysts raise price target on %s",
}

var companyNegative = []string{
	"%s misses earnings estimates, cuts guidance",
	"%s faces regulatory investigation",
	"%s announces unexpected executive departure",
	"%s recalls flagship product over defects",
	"Analysts cut rating on %s after weak quarter",
}

var companyNeutral = []string{
	"%s schedules investor day amid strategy questions",
	"%s in talks over potential partnership",
	"%s trading flat as market digests filings",
}

func pick(pool []string, rng *sim.Rand) string {
	return pool[rng.UniformInt(0, len(pool)-1)]
}

func substitute(template, name string) string {
	out := make([]byte, 0, len(template)+len(name))
	for i := 0; i < len(template); i++ {
		if template[i] == '%' && i+1 < len(template) && template[i+1] == 's' {
			out = append(out, name...)
			i++
			continue
		}
		out = append(out, template[i])
	}
	return string(out)
}

func headline(ev sim.NewsEvent, rng *sim.Rand) string {
	switch ev.Category {
	case sim.NewsGlobal:
		switch ev.Sentiment {
		case sim.SentimentPositive:
			return pick(globalPositive, rng)
		case sim.SentimentNegative:
			return pick(globalNegative, rng)
		default:
			return pick(globalNeutral, rng)
		}
	case sim.NewsPolitical:
		switch ev.Sentiment {
		case sim.SentimentPositive:
			return pick(politicalPositive, rng)
		case sim.SentimentNegative:
			return pick(politicalNegative, rng)
		default:
			return pick(politicalNeutral, rng)
		}
	case sim.NewsIndustry:
		var pool []string
		switch ev.Sentiment {
		case sim.SentimentPositive:
			pool = industryPositive
		case sim.SentimentNegative:
			pool = industryNegative
		default:
			pool = industryNeutral
		}
		return substitute(pick(pool, rng), ev.Industry)
	default:
		name := ev.CompanyName
		if name == "" {
			name = ev.Symbol
		}
		var pool []string
		switch ev.Sentiment {
		case sim.SentimentPositive:
			pool = companyPositive
		case sim.SentimentNegative:
			pool = companyNegative
		default:
			pool = companyNeutral
		}
		return substitute(pick(pool, rng), name)
	}
}

// fallbackHeadline labels injected events that arrive without one. No RNG so
// injection never perturbs the simulation's random stream.
func fallbackHeadline(ev sim.NewsEvent) string {
	verb := "update"
	switch ev.Sentiment {
	case sim.SentimentPositive:
		verb = "boost"
	case sim.SentimentNegative:
		verb = "setback"
	}
	switch ev.Category {
	case sim.NewsGlobal:
		return "Global markets " + verb
	case sim.NewsPolitical:
		return "Policy " + verb
	case sim.NewsIndustry:
		return ev.Industry + " sector " + verb
	default:
		name := ev.CompanyName
		if name == "" {
			name = ev.Symbol
		}
		return name + " " + verb
	}
}
