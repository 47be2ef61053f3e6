package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClockInitialize(t *testing.T) {
	c := NewClock()
	require.NoError(t, c.Initialize("2024-01-02", 100))

	assert.Equal(t, "2024-01-02", c.DateString())
	assert.Equal(t, "2024-01-02T09:30:00Z", c.DateTimeString())
	assert.Equal(t, uint64(0), c.TotalTicks())
	assert.False(t, c.IsNewDay())
}

func TestClockInitializeBadDate(t *testing.T) {
	c := NewClock()
	assert.Error(t, c.Initialize("nonsense", 100))
}

func TestClockDayBoundary(t *testing.T) {
	c := NewClock()
	require.NoError(t, c.Initialize("2024-01-02", 10))

	for i := 0; i < 9; i++ {
		c.Tick()
		assert.False(t, c.IsNewDay(), "tick %d", i)
	}
	c.Tick()
	assert.True(t, c.IsNewDay())
	assert.Equal(t, "2024-01-03", c.DateString())
}

func TestClockTickAdvancesEvenly(t *testing.T) {
	c := NewClock()
	require.NoError(t, c.Initialize("2024-01-02", 1000))

	start := c.Now()
	for i := 0; i < 1000; i++ {
		c.Tick()
	}
	assert.Equal(t, start+msPerDay, c.Now())
}

func TestClockDayExactWhenTicksDontDivide(t *testing.T) {
	c := NewClock()
	// 7 ticks per day leaves a fractional-millisecond step.
	require.NoError(t, c.Initialize("2024-01-02", 7))

	start := c.Now()
	for i := 0; i < 21; i++ {
		c.Tick()
	}
	assert.Equal(t, start+3*msPerDay, c.Now())
	assert.Equal(t, "2024-01-05", c.DateString())
}

func TestTickScale(t *testing.T) {
	c := NewClock()
	require.NoError(t, c.Initialize("2024-01-02", 72000))

	assert.InDelta(t, 1.0, c.TickScale(), 1e-12)

	// Coarse populate ticks carry proportionally more weight.
	c.SetTicksPerDay(576)
	assert.InDelta(t, 125.0, c.TickScale(), 1e-9)

	c.SetTicksPerDay(1440)
	assert.InDelta(t, 50.0, c.TickScale(), 1e-9)
}

func TestSetNowRestoresTimeline(t *testing.T) {
	c := NewClock()
	require.NoError(t, c.Initialize("2024-01-02", 100))

	target, err := ParseDate("2024-03-15")
	require.NoError(t, err)
	c.SetNow(target)
	assert.Equal(t, "2024-03-15", c.DateString())
}
