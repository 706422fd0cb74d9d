package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/dcasim/dca"
)

// DefaultLookbackDays is the window used when no start date is configured.
const DefaultLookbackDays = 270

// Environment variables that override file settings.
const (
	EnvCachePath   = "DCASIM_CACHE_PATH"
	EnvCoinbaseURL = "DCASIM_COINBASE_URL"
	EnvFiat        = "DCASIM_FIAT"
)

// Config is the complete run configuration.
type Config struct {
	Strategy StrategyConfig `json:"strategy" yaml:"strategy"`
	Source   SourceConfig   `json:"source" yaml:"source"`
	Output   OutputConfig   `json:"output" yaml:"output"`
}

// StrategyConfig is the recurring-buy plan. Dates are YYYY-MM-DD; an empty
// end means today and an empty start means LookbackDays (default
// DefaultLookbackDays) before end.
type StrategyConfig struct {
	Coin            string  `json:"coin" yaml:"coin"`
	StartingBalance float64 `json:"starting_balance" yaml:"starting_balance"`
	BuyAmount       float64 `json:"buy_amount" yaml:"buy_amount"`
	Fee             float64 `json:"fee" yaml:"fee"`
	Start           string  `json:"start,omitempty" yaml:"start,omitempty"`
	End             string  `json:"end,omitempty" yaml:"end,omitempty"`
	LookbackDays    int     `json:"lookback_days,omitempty" yaml:"lookback_days,omitempty"`
	IntervalDays    int     `json:"interval_days" yaml:"interval_days"`
	SampleDays      int     `json:"sample_days,omitempty" yaml:"sample_days,omitempty"`
}

// SourceConfig selects where prices come from.
type SourceConfig struct {
	Type      string      `json:"type" yaml:"type"` // "coinbase" or "csv"
	Fiat      string      `json:"fiat" yaml:"fiat"`
	BaseURL   string      `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	CSVPath   string      `json:"csv_path,omitempty" yaml:"csv_path,omitempty"`
	RateLimit string      `json:"rate_limit,omitempty" yaml:"rate_limit,omitempty"` // e.g. "1s"
	Cache     CacheConfig `json:"cache" yaml:"cache"`
}

type CacheConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Path    string `json:"path,omitempty" yaml:"path,omitempty"`
	TTL     string `json:"ttl,omitempty" yaml:"ttl,omitempty"` // e.g. "8760h"
}

type OutputConfig struct {
	Format      string `json:"format" yaml:"format"` // "table", "csv" or "none"
	Summary     bool   `json:"summary" yaml:"summary"`
	HeaderEvery int    `json:"header_every,omitempty" yaml:"header_every,omitempty"`
}

// LoadFromFile loads configuration from a file (YAML, falling back to JSON).
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		cfg = Default()
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile writes YAML for .yaml/.yml paths and indented JSON otherwise.
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// ApplyEnv overlays the DCASIM_* environment variables.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvCachePath); v != "" {
		c.Source.Cache.Path = v
	}
	if v := os.Getenv(EnvCoinbaseURL); v != "" {
		c.Source.BaseURL = v
	}
	if v := os.Getenv(EnvFiat); v != "" {
		c.Source.Fiat = v
	}
}

// Validate checks the configuration, resolving relative dates against today.
func (c *Config) Validate() error {
	switch c.Source.Type {
	case "coinbase":
	case "csv":
		if c.Source.CSVPath == "" {
			return fmt.Errorf("source.csv_path required for csv type")
		}
	default:
		return fmt.Errorf("source.type must be 'coinbase' or 'csv'")
	}
	if c.Source.Fiat == "" {
		return fmt.Errorf("source.fiat is required")
	}
	if _, err := c.Source.RateInterval(); err != nil {
		return err
	}
	if _, err := c.Source.Cache.TTLDuration(); err != nil {
		return err
	}

	switch c.Output.Format {
	case "table", "csv", "none":
	default:
		return fmt.Errorf("output.format must be 'table', 'csv' or 'none'")
	}
	if c.Output.HeaderEvery < 0 {
		return fmt.Errorf("output.header_every must not be negative")
	}

	if _, err := c.Strategy.Resolve(time.Now()); err != nil {
		return err
	}
	return nil
}

// Resolve turns the file representation into a validated dca.StrategyConfig.
// today anchors empty start/end dates.
func (s StrategyConfig) Resolve(today time.Time) (dca.StrategyConfig, error) {
	end := dca.Day(today)
	if s.End != "" {
		d, err := dca.ParseDate(s.End)
		if err != nil {
			return dca.StrategyConfig{}, fmt.Errorf("strategy.end: %w", err)
		}
		end = d
	}

	lookback := s.LookbackDays
	if lookback == 0 {
		lookback = DefaultLookbackDays
	}
	if lookback < 0 {
		return dca.StrategyConfig{}, fmt.Errorf("%w: lookback_days must not be negative", dca.ErrInvalidConfig)
	}

	start := dca.AddDays(end, -lookback)
	if s.Start != "" {
		d, err := dca.ParseDate(s.Start)
		if err != nil {
			return dca.StrategyConfig{}, fmt.Errorf("strategy.start: %w", err)
		}
		start = d
	}

	out := dca.StrategyConfig{
		Coin:            strings.ToUpper(strings.TrimSpace(s.Coin)),
		StartingBalance: s.StartingBalance,
		BuyAmount:       s.BuyAmount,
		Fee:             s.Fee,
		Start:           start,
		End:             end,
		IntervalDays:    s.IntervalDays,
		SampleDays:      s.SampleDays,
	}
	if err := out.Validate(); err != nil {
		return dca.StrategyConfig{}, err
	}
	return out, nil
}

// RateInterval is the minimum spacing between upstream calls; 0 disables it.
func (s SourceConfig) RateInterval() (time.Duration, error) {
	if s.RateLimit == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s.RateLimit)
	if err != nil {
		return 0, fmt.Errorf("source.rate_limit: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("source.rate_limit must not be negative")
	}
	return d, nil
}

// TTLDuration parses the cache TTL; an empty TTL means entries never expire.
func (c CacheConfig) TTLDuration() (time.Duration, error) {
	if c.TTL == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.TTL)
	if err != nil {
		return 0, fmt.Errorf("source.cache.ttl: %w", err)
	}
	return d, nil
}

// Default returns the stock plan: 50 USD of ETH every 7 days with a 1.99
// fee over the last 270 days, priced by Coinbase through the local cache.
func Default() *Config {
	return &Config{
		Strategy: StrategyConfig{
			Coin:            "ETH",
			StartingBalance: 0,
			BuyAmount:       50,
			Fee:             1.99,
			IntervalDays:    7,
		},
		Source: SourceConfig{
			Type:      "coinbase",
			Fiat:      "USD",
			RateLimit: "1s",
			Cache: CacheConfig{
				Enabled: true,
				TTL:     "8760h",
			},
		},
		Output: OutputConfig{
			Format:      "table",
			Summary:     true,
			HeaderEvery: 25,
		},
	}
}
