package sim

import (
	"math"
	"math/rand"
)

// Rand wraps a seeded math/rand source with the distributions the simulation
// draws from. One instance is owned by the controller and threaded through
// every component, so a fixed seed replays an identical simulation.
type Rand struct {
	r *rand.Rand
}

// NewRand returns a Rand seeded deterministically.
func NewRand(seed int64) *Rand {
	return &Rand{r: rand.New(rand.NewSource(seed))}
}

// Float64 returns a uniform draw in [0, 1).
func (rg *Rand) Float64() float64 { return rg.r.Float64() }

// Uniform returns a uniform draw in [min, max).
func (rg *Rand) Uniform(min, max float64) float64 {
	return min + rg.r.Float64()*(max-min)
}

// UniformInt returns a uniform integer in [min, max].
func (rg *Rand) UniformInt(min, max int) int {
	if max <= min {
		return min
	}
	return min + rg.r.Intn(max-min+1)
}

// Normal returns a normal draw with the given mean and stddev.
func (rg *Rand) Normal(mean, stddev float64) float64 {
	return mean + rg.r.NormFloat64()*stddev
}

// HalfNormal returns |N(0, stddev)|.
func (rg *Rand) HalfNormal(stddev float64) float64 {
	return math.Abs(rg.r.NormFloat64() * stddev)
}

// LogNormal returns a log-normal draw with parameters mu and sigma.
func (rg *Rand) LogNormal(mu, sigma float64) float64 {
	return math.Exp(mu + rg.r.NormFloat64()*sigma)
}

// Exponential returns an exponential draw with the given rate.
func (rg *Rand) Exponential(lambda float64) float64 {
	return rg.r.ExpFloat64() / lambda
}

// Poisson returns a Poisson draw with the given mean, by Knuth's method.
// Fine for the small lambdas news arrival uses.
func (rg *Rand) Poisson(lambda float64) int {
	if lambda <= 0 {
		return 0
	}
	l := math.Exp(-lambda)
	k := 0
	p := 1.0
	for {
		p *= rg.r.Float64()
		if p <= l {
			return k
		}
		k++
	}
}

// Bernoulli returns true with probability p.
func (rg *Rand) Bernoulli(p float64) bool { return rg.r.Float64() < p }
