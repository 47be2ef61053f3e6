package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigValidates(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
}

func TestLoadFromEnvOverrides(t *testing.T) {
	t.Setenv("SIM_TICKS_PER_DAY", "1440")
	t.Setenv("SIM_SEED", "7")
	t.Setenv("API_LISTEN_ADDR", ":9999")
	t.Setenv("ARCHIVE_ENABLED", "true")

	cfg := LoadFromEnv("does-not-exist.env")
	assert.Equal(t, 1440, cfg.Simulation.TicksPerDay)
	assert.Equal(t, int64(7), cfg.Simulation.Seed)
	assert.Equal(t, ":9999", cfg.Server.ListenAddr)
	assert.True(t, cfg.Server.ArchiveEnabled)
}

func TestLoadFromEnvIgnoresBadValues(t *testing.T) {
	t.Setenv("SIM_TICKS_PER_DAY", "not-a-number")
	cfg := LoadFromEnv("does-not-exist.env")
	assert.Equal(t, DefaultConfig().Simulation.TicksPerDay, cfg.Simulation.TicksPerDay)
}

func TestWithPatchMergesPartial(t *testing.T) {
	cfg := DefaultConfig()
	patched, err := cfg.WithPatch([]byte(`{"simulation":{"ticksPerDay":500},"engine":{"growthRateAnnual":0.1}}`))
	require.NoError(t, err)

	assert.Equal(t, 500, patched.Simulation.TicksPerDay)
	assert.Equal(t, 0.1, patched.Engine.GrowthRateAnnual)
	// Untouched fields keep their defaults.
	assert.Equal(t, cfg.Simulation.StartDate, patched.Simulation.StartDate)
	assert.Equal(t, cfg.Counts, patched.Counts)
	// The receiver is unchanged.
	assert.Equal(t, DefaultConfig().Simulation.TicksPerDay, cfg.Simulation.TicksPerDay)
}

func TestWithPatchRejectsInvalid(t *testing.T) {
	cfg := DefaultConfig()

	_, err := cfg.WithPatch([]byte(`{"simulation":{"ticksPerDay":-1}}`))
	assert.Error(t, err)

	_, err = cfg.WithPatch([]byte(`not json`))
	assert.Error(t, err)
}

func TestValidateCatchesBadInstruments(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Instruments = append(cfg.Instruments, Instrument{Symbol: "APEX", InitialPrice: 10, SharesOutstanding: 1})
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Instruments[0].InitialPrice = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.CrossEffects["NOPE"] = nil
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Instruments = nil
	assert.Error(t, cfg.Validate())
}
