package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRandDeterministic(t *testing.T) {
	a := NewRand(42)
	b := NewRand(42)
	for i := 0; i < 100; i++ {
		assert.Equal(t, a.Float64(), b.Float64())
		assert.Equal(t, a.Normal(0, 1), b.Normal(0, 1))
		assert.Equal(t, a.Poisson(2.5), b.Poisson(2.5))
	}
}

func TestUniformBounds(t *testing.T) {
	r := NewRand(1)
	for i := 0; i < 1000; i++ {
		v := r.Uniform(0.5, 1.5)
		assert.GreaterOrEqual(t, v, 0.5)
		assert.Less(t, v, 1.5)
	}
}

func TestUniformIntBounds(t *testing.T) {
	r := NewRand(1)
	seen := map[int]bool{}
	for i := 0; i < 1000; i++ {
		v := r.UniformInt(3, 7)
		assert.GreaterOrEqual(t, v, 3)
		assert.LessOrEqual(t, v, 7)
		seen[v] = true
	}
	assert.Len(t, seen, 5)
	assert.Equal(t, 4, r.UniformInt(4, 4))
}

func TestHalfNormalNonNegative(t *testing.T) {
	r := NewRand(7)
	for i := 0; i < 1000; i++ {
		assert.GreaterOrEqual(t, r.HalfNormal(0.05), 0.0)
	}
}

func TestPoissonMean(t *testing.T) {
	r := NewRand(11)
	const lambda = 3.0
	sum := 0
	const n = 20000
	for i := 0; i < n; i++ {
		sum += r.Poisson(lambda)
	}
	assert.InDelta(t, lambda, float64(sum)/n, 0.1)
	assert.Equal(t, 0, r.Poisson(0))
	assert.Equal(t, 0, r.Poisson(-1))
}

func TestExponentialMean(t *testing.T) {
	r := NewRand(13)
	const lambda = 2.0
	sum := 0.0
	const n = 20000
	for i := 0; i < n; i++ {
		sum += r.Exponential(lambda)
	}
	assert.InDelta(t, 1/lambda, sum/n, 0.05)
}

func TestLogNormalPositive(t *testing.T) {
	r := NewRand(17)
	for i := 0; i < 1000; i++ {
		assert.Greater(t, r.LogNormal(3.0, 0.5), 0.0)
	}
}
