package sim

import (
	"fmt"
	"time"
)

const msPerDay = 86_400_000

// Clock maps simulation ticks to simulated calendar time. A simulated day is
// spread across TicksPerDay ticks regardless of how fast the host runs them,
// which is what makes coarse "populate" ticks and fine live ticks share one
// timeline.
type Clock struct {
	startMs        Timestamp
	simMs          Timestamp
	ticksPerDay    int
	refTicksPerDay int
	tickInDay      int
	totalTicks     uint64

	// Sub-millisecond carry in units of 1/ticksPerDay ms. Keeps a full
	// day's ticks summing to exactly one day even when ticksPerDay does
	// not divide the day length.
	remMs int
}

// NewClock returns an uninitialized clock. Call Initialize before use.
func NewClock() *Clock {
	return &Clock{ticksPerDay: 72000, refTicksPerDay: 72000}
}

// Initialize resets the clock to 09:30 UTC on startDate ("YYYY-MM-DD") with
// the given tick granularity.
func (c *Clock) Initialize(startDate string, ticksPerDay int) error {
	start, err := ParseDate(startDate)
	if err != nil {
		return err
	}
	c.startMs = start
	c.simMs = start
	c.ticksPerDay = ticksPerDay
	c.refTicksPerDay = ticksPerDay
	c.tickInDay = 0
	c.totalTicks = 0
	c.remMs = 0
	return nil
}

// Tick advances simulated time by one tick's worth of milliseconds and
// returns the new timestamp.
func (c *Clock) Tick() Timestamp {
	c.totalTicks++
	c.tickInDay++
	if c.tickInDay >= c.ticksPerDay {
		c.tickInDay = 0
	}
	if c.ticksPerDay <= 0 {
		c.simMs += msPerDay
		return c.simMs
	}
	step := msPerDay / c.ticksPerDay
	c.remMs += msPerDay % c.ticksPerDay
	if c.remMs >= c.ticksPerDay {
		step += c.remMs / c.ticksPerDay
		c.remMs %= c.ticksPerDay
	}
	c.simMs += Timestamp(step)
	return c.simMs
}

// Now returns the current simulated time in epoch milliseconds.
func (c *Clock) Now() Timestamp { return c.simMs }

// SetNow overwrites the simulated time. Used by restore.
func (c *Clock) SetNow(ms Timestamp) {
	c.simMs = ms
	c.remMs = 0
}

// TicksPerDay returns the current tick granularity.
func (c *Clock) TicksPerDay() int { return c.ticksPerDay }

// SetTicksPerDay changes granularity without moving the timeline (populate
// switches between coarse and fine phases this way). The carry is in units
// of the old granularity, so it resets.
func (c *Clock) SetTicksPerDay(tpd int) {
	c.ticksPerDay = tpd
	c.remMs = 0
}

// SetReferenceTicksPerDay sets the granularity that TickScale treats as
// weight 1.0.
func (c *Clock) SetReferenceTicksPerDay(tpd int) { c.refTicksPerDay = tpd }

// TickScale is the wall-clock weight of one tick: the ratio of the reference
// granularity to the current one. Coarser ticks weigh more, so per-wall-clock
// rates (news arrival, agent participation, sentiment decay) stay constant
// across granularity changes.
func (c *Clock) TickScale() float64 {
	if c.ticksPerDay <= 0 {
		return 1
	}
	return float64(c.refTicksPerDay) / float64(c.ticksPerDay)
}

// TickInDay returns the tick index within the current simulated day.
func (c *Clock) TickInDay() int { return c.tickInDay }

// TotalTicks returns the number of ticks elapsed since Initialize.
func (c *Clock) TotalTicks() uint64 { return c.totalTicks }

// IsNewDay reports whether the last Tick crossed a day boundary.
func (c *Clock) IsNewDay() bool { return c.tickInDay == 0 && c.totalTicks > 0 }

// SimMsPerTick returns the simulated milliseconds one tick represents.
func (c *Clock) SimMsPerTick() float64 {
	if c.ticksPerDay <= 0 {
		return msPerDay
	}
	return float64(msPerDay) / float64(c.ticksPerDay)
}

// StartTime returns the initialized start instant.
func (c *Clock) StartTime() Timestamp { return c.startMs }

// DateString returns the current simulated date as YYYY-MM-DD.
func (c *Clock) DateString() string { return FormatDate(c.simMs) }

// DateTimeString returns the current simulated instant as RFC 3339 UTC.
func (c *Clock) DateTimeString() string { return FormatDateTime(c.simMs) }

// ParseDate parses "YYYY-MM-DD" to epoch ms at 09:30 UTC (market open).
func ParseDate(s string) (Timestamp, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return 0, fmt.Errorf("parse date %q: %w", s, err)
	}
	open := time.Date(t.Year(), t.Month(), t.Day(), 9, 30, 0, 0, time.UTC)
	return Timestamp(open.UnixMilli()), nil
}

// FormatDate formats epoch ms as YYYY-MM-DD (UTC).
func FormatDate(ms Timestamp) string {
	return time.UnixMilli(int64(ms)).UTC().Format("2006-01-02")
}

// FormatDateTime formats epoch ms as an RFC 3339 UTC instant.
func FormatDateTime(ms Timestamp) string {
	return time.UnixMilli(int64(ms)).UTC().Format("2006-01-02T15:04:05Z")
}
