// Package config loads and validates the YAML run configuration shared by
// the fetch, analyze and report commands.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration document.
type Config struct {
	Storage StorageConfig `yaml:"storage"`
	Fetch   FetchConfig   `yaml:"fetch"`
	Align   AlignConfig   `yaml:"align"`
	Costs   CostsConfig   `yaml:"costs"`
	Borrow  BorrowConfig  `yaml:"borrow"`
	Sim     SimConfig     `yaml:"sim"`
}

// StorageConfig selects storage backends. Empty DSNs fall back to in-memory
// stores.
type StorageConfig struct {
	PostgresDSN   string `yaml:"postgres_dsn"`
	ClickhouseDSN string `yaml:"clickhouse_dsn"`
}

// FetchConfig drives venue data collection.
type FetchConfig struct {
	Instruments       []string  `yaml:"instruments"`
	Start             time.Time `yaml:"start"`
	End               time.Time `yaml:"end"`
	RequestsPerSecond float64   `yaml:"requests_per_second"`
	BinanceBaseURL    string    `yaml:"binance_base_url"`
	HyperliquidURL    string    `yaml:"hyperliquid_base_url"`
}

// AlignConfig parameterizes period alignment.
type AlignConfig struct {
	WindowHours      int     `yaml:"window_hours"`
	ToleranceMinutes int     `yaml:"tolerance_minutes"`
	Coverage         float64 `yaml:"coverage"`
}

// CostsConfig parameterizes the execution cost model.
type CostsConfig struct {
	FeeRate             float64            `yaml:"fee_rate"`
	SlippageRate        float64            `yaml:"slippage_rate"`
	Legs                int                `yaml:"legs"`
	FinancingAnnualRate float64            `yaml:"financing_annual_rate"`
	FinancingOverrides  map[string]float64 `yaml:"financing_overrides"`
}

// BorrowConfig is the margin borrow rate table for single-venue hedges.
type BorrowConfig struct {
	Default float64            `yaml:"default"`
	Rates   map[string]float64 `yaml:"rates"`
}

// SimConfig parameterizes simulation runs.
type SimConfig struct {
	Capital            float64 `yaml:"capital"`
	PositionFraction   float64 `yaml:"position_fraction"`
	MaxPositions       int     `yaml:"max_positions"`
	MinYieldToEnter    float64 `yaml:"min_yield_to_enter"`
	HoldPeriods        int     `yaml:"hold_periods"`
	ExitPolicy         string  `yaml:"exit_policy"`
	YieldDecayFraction float64 `yaml:"yield_decay_fraction"`
}

// Defaults mirroring the canonical backtest parameters.
const (
	DefaultCapital          = 10000.0
	DefaultPositionFraction = 0.20
	DefaultMaxPositions     = 3
	DefaultWindowHours      = 8
	DefaultToleranceMinutes = 30
	DefaultCoverage         = 0.5
	DefaultLegs             = 2
)

// Load reads, parses and validates a configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Align.WindowHours == 0 {
		c.Align.WindowHours = DefaultWindowHours
	}
	if c.Align.ToleranceMinutes == 0 {
		c.Align.ToleranceMinutes = DefaultToleranceMinutes
	}
	if c.Align.Coverage == 0 {
		c.Align.Coverage = DefaultCoverage
	}
	if c.Costs.Legs == 0 {
		c.Costs.Legs = DefaultLegs
	}
	if c.Sim.Capital == 0 {
		c.Sim.Capital = DefaultCapital
	}
	if c.Sim.PositionFraction == 0 {
		c.Sim.PositionFraction = DefaultPositionFraction
	}
	if c.Sim.MaxPositions == 0 {
		c.Sim.MaxPositions = DefaultMaxPositions
	}
}

// Validate rejects configurations that would produce meaningless runs.
func (c *Config) Validate() error {
	if c.Align.WindowHours < 1 {
		return fmt.Errorf("align: window_hours must be positive, got %d", c.Align.WindowHours)
	}
	if c.Align.Coverage <= 0 || c.Align.Coverage > 1 {
		return fmt.Errorf("align: coverage must be in (0, 1], got %v", c.Align.Coverage)
	}
	if c.Costs.FeeRate < 0 || c.Costs.SlippageRate < 0 {
		return fmt.Errorf("costs: fee_rate and slippage_rate must be non-negative")
	}
	if c.Costs.Legs < 1 {
		return fmt.Errorf("costs: legs must be positive, got %d", c.Costs.Legs)
	}
	if c.Sim.Capital <= 0 {
		return fmt.Errorf("sim: capital must be positive, got %v", c.Sim.Capital)
	}
	if c.Sim.PositionFraction <= 0 || c.Sim.PositionFraction > 1 {
		return fmt.Errorf("sim: position_fraction must be in (0, 1], got %v", c.Sim.PositionFraction)
	}
	if c.Sim.MaxPositions < 1 {
		return fmt.Errorf("sim: max_positions must be positive, got %d", c.Sim.MaxPositions)
	}
	if !c.Fetch.Start.IsZero() && !c.Fetch.End.IsZero() && c.Fetch.End.Before(c.Fetch.Start) {
		return fmt.Errorf("fetch: end %v precedes start %v", c.Fetch.End, c.Fetch.Start)
	}
	return nil
}

// Tolerance returns the alignment tolerance as a duration.
func (c *AlignConfig) Tolerance() time.Duration {
	return time.Duration(c.ToleranceMinutes) * time.Minute
}
