// Package config holds the root configuration tree: simulation timing, the
// instrument universe, the agent population and the nested component configs.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/zappabad/marketsim/internal/agent"
	"github.com/zappabad/marketsim/internal/engine"
	"github.com/zappabad/marketsim/internal/sim"
)

// Simulation holds clock and pacing settings.
type Simulation struct {
	// StartDate is the simulated calendar start, "YYYY-MM-DD".
	StartDate string `json:"startDate"`
	// TicksPerDay is the live tick granularity.
	TicksPerDay int `json:"ticksPerDay"`
	// TickRateMs is the wall-clock delay between live ticks.
	TickRateMs int `json:"tickRateMs"`

	// Populate runs coarse ticks for most of the warm-up window, then fine
	// ticks over the last PopulateFineDays so recent candles have detail.
	PopulateDays            int `json:"populateDays"`
	PopulateTicksPerDay     int `json:"populateTicksPerDay"`
	PopulateFineTicksPerDay int `json:"populateFineTicksPerDay"`
	PopulateFineDays        int `json:"populateFineDays"`

	Seed int64 `json:"seed"`
	// MarketMakerInventory seeds every market maker's starting position.
	MarketMakerInventory int64 `json:"marketMakerInventory"`
}

// Instrument declares one tradable asset.
type Instrument struct {
	Symbol            string  `json:"symbol"`
	Name              string  `json:"name"`
	Industry          string  `json:"industry"`
	InitialPrice      float64 `json:"initialPrice"`
	Volatility        float64 `json:"volatility"`
	SharesOutstanding int64   `json:"sharesOutstanding"`
}

// Server holds the HTTP API settings.
type Server struct {
	ListenAddr     string   `json:"listenAddr"`
	AllowedOrigins []string `json:"allowedOrigins"`
	ArchiveEnabled bool     `json:"archiveEnabled"`
	ArchivePath    string   `json:"archivePath"`
	LogLevel       string   `json:"logLevel"`
}

// Config is the root configuration tree.
type Config struct {
	Simulation   Simulation                   `json:"simulation"`
	Engine       engine.Config                `json:"engine"`
	Agents       agent.Config                 `json:"agents"`
	Counts       agent.Counts                 `json:"agentCounts"`
	Cash         agent.CashParams             `json:"agentCash"`
	Instruments  []Instrument                 `json:"instruments"`
	CrossEffects map[string][]sim.CrossEffect `json:"crossEffects"`
	Server       Server                       `json:"server"`
}

// DefaultConfig returns the full default tree, including the standard
// instrument universe and its cross-effect table.
func DefaultConfig() Config {
	return Config{
		Simulation: Simulation{
			StartDate:               "2024-01-02",
			TicksPerDay:             72_000,
			TickRateMs:              50,
			PopulateDays:            30,
			PopulateTicksPerDay:     576,
			PopulateFineTicksPerDay: 1_440,
			PopulateFineDays:        7,
			Seed:                    42,
			MarketMakerInventory:    100,
		},
		Engine: engine.DefaultConfig(),
		Agents: agent.DefaultConfig(),
		Counts: agent.DefaultCounts(),
		Cash:   agent.DefaultCashParams(),
		Instruments: []Instrument{
			{Symbol: "APEX", Name: "Apex Systems", Industry: "TECH", InitialPrice: 185, Volatility: 0.020, SharesOutstanding: 4_000_000},
			{Symbol: "NIMB", Name: "Nimbus Cloud", Industry: "TECH", InitialPrice: 92, Volatility: 0.025, SharesOutstanding: 6_500_000},
			{Symbol: "QNTM", Name: "Quantum Devices", Industry: "TECH", InitialPrice: 47, Volatility: 0.030, SharesOutstanding: 9_000_000},
			{Symbol: "PETR", Name: "Petra Energy", Industry: "ENERGY", InitialPrice: 68, Volatility: 0.018, SharesOutstanding: 12_000_000},
			{Symbol: "SOLR", Name: "Solaris Power", Industry: "ENERGY", InitialPrice: 24, Volatility: 0.028, SharesOutstanding: 15_000_000},
			{Symbol: "MERC", Name: "Mercantile Bank", Industry: "FINANCE", InitialPrice: 134, Volatility: 0.015, SharesOutstanding: 7_000_000},
			{Symbol: "ATLS", Name: "Atlas Insurance", Industry: "FINANCE", InitialPrice: 76, Volatility: 0.014, SharesOutstanding: 8_500_000},
			{Symbol: "VITA", Name: "Vita Pharma", Industry: "HEALTH", InitialPrice: 58, Volatility: 0.022, SharesOutstanding: 10_000_000},
		},
		CrossEffects: map[string][]sim.CrossEffect{
			"APEX": {{TargetSymbol: "NIMB", Coefficient: 0.6}, {TargetSymbol: "QNTM", Coefficient: 0.4}},
			"PETR": {{TargetSymbol: "SOLR", Coefficient: -0.3}},
			"MERC": {{TargetSymbol: "ATLS", Coefficient: 0.5}},
		},
		Server: Server{
			ListenAddr:     ":8080",
			AllowedOrigins: []string{"*"},
			ArchiveEnabled: false,
			ArchivePath:    "data/archive",
			LogLevel:       "info",
		},
	}
}

// LoadFromEnv loads configuration from a .env file (if present) and
// environment variables. Priority: ENV > .env file > defaults.
func LoadFromEnv(envPath string) Config {
	cfg := DefaultConfig()

	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	if v := os.Getenv("SIM_START_DATE"); v != "" {
		cfg.Simulation.StartDate = v
	}
	if v := os.Getenv("SIM_TICKS_PER_DAY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Simulation.TicksPerDay = n
		}
	}
	if v := os.Getenv("SIM_TICK_RATE_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Simulation.TickRateMs = n
		}
	}
	if v := os.Getenv("SIM_SEED"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Simulation.Seed = n
		}
	}
	if v := os.Getenv("API_LISTEN_ADDR"); v != "" {
		cfg.Server.ListenAddr = v
	}
	if v := os.Getenv("ARCHIVE_ENABLED"); v != "" {
		cfg.Server.ArchiveEnabled = v == "true"
	}
	if v := os.Getenv("ARCHIVE_PATH"); v != "" {
		cfg.Server.ArchivePath = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Server.LogLevel = v
	}

	return cfg
}

// WithPatch returns a copy of the config with a JSON patch merged in. Fields
// absent from the patch keep their current values. The receiver is deep
// copied first so its maps and slices stay untouched.
func (c Config) WithPatch(data []byte) (Config, error) {
	raw, err := json.Marshal(c)
	if err != nil {
		return c, fmt.Errorf("snapshot config: %w", err)
	}
	var patched Config
	if err := json.Unmarshal(raw, &patched); err != nil {
		return c, fmt.Errorf("snapshot config: %w", err)
	}
	if err := json.Unmarshal(data, &patched); err != nil {
		return c, fmt.Errorf("apply config patch: %w", err)
	}
	if err := patched.Validate(); err != nil {
		return c, err
	}
	return patched, nil
}

// Validate rejects configurations the simulation cannot run with.
func (c Config) Validate() error {
	if _, err := sim.ParseDate(c.Simulation.StartDate); err != nil {
		return err
	}
	if c.Simulation.TicksPerDay <= 0 {
		return fmt.Errorf("ticksPerDay must be positive, got %d", c.Simulation.TicksPerDay)
	}
	if c.Simulation.TickRateMs <= 0 {
		return fmt.Errorf("tickRateMs must be positive, got %d", c.Simulation.TickRateMs)
	}
	if len(c.Instruments) == 0 {
		return fmt.Errorf("at least one instrument is required")
	}
	seen := map[string]bool{}
	for _, inst := range c.Instruments {
		if inst.Symbol == "" {
			return fmt.Errorf("instrument with empty symbol")
		}
		if seen[inst.Symbol] {
			return fmt.Errorf("duplicate instrument %s", inst.Symbol)
		}
		seen[inst.Symbol] = true
		if inst.InitialPrice <= 0 {
			return fmt.Errorf("instrument %s: initial price must be positive", inst.Symbol)
		}
		if inst.SharesOutstanding <= 0 {
			return fmt.Errorf("instrument %s: shares outstanding must be positive", inst.Symbol)
		}
	}
	for source, effects := range c.CrossEffects {
		if !seen[source] {
			return fmt.Errorf("cross effect source %s is not an instrument", source)
		}
		for _, eff := range effects {
			if !seen[eff.TargetSymbol] {
				return fmt.Errorf("cross effect target %s is not an instrument", eff.TargetSymbol)
			}
		}
	}
	return nil
}
