package config

import (
	"fmt"
	"math"
	"strings"
	"time"

	"depthview/internal/aggregation"
	"depthview/internal/chart"
	"depthview/internal/exchange"
	"depthview/internal/factory"
	"depthview/internal/types"
)

// MaxPrecision bounds every display precision
const MaxPrecision = 8

// Config holds all application configuration
type Config struct {
	Exchange    ExchangeConfig    `toml:"exchange"`
	Aggregation AggregationConfig `toml:"aggregation"`
	Display     DisplayConfig     `toml:"display"`
	Poll        PollConfig        `toml:"poll"`
	Server      ServerConfig      `toml:"server"`
	Redis       RedisConfig       `toml:"redis"`
	Log         LogConfig         `toml:"log"`
}

// ExchangeConfig selects the quote source
type ExchangeConfig struct {
	Name    exchange.ExchangeName `toml:"name"`
	Symbol  string                `toml:"symbol"`
	BaseURL string                `toml:"base_url"`
	Limit   int                   `toml:"limit"`
}

// AggregationConfig selects the bucketing policy
type AggregationConfig struct {
	Policy      string  `toml:"policy"`
	Granularity float64 `toml:"granularity"`
	FixedBins   int     `toml:"fixed_bins"`
	FixedWidth  float64 `toml:"fixed_width"`
}

// DisplayConfig holds display-related configuration
type DisplayConfig struct {
	PricePrecision    int    `toml:"price_precision"`
	QuantityPrecision int    `toml:"quantity_precision"`
	MidPrecision      int    `toml:"mid_precision"`
	Levels            int    `toml:"levels"`
	RangePolicy       string `toml:"range_policy"`
}

// PollConfig holds timing of the polling loop
type PollConfig struct {
	Interval     duration `toml:"interval"`
	FetchTimeout duration `toml:"fetch_timeout"`
	Retention    duration `toml:"retention"`
}

// ServerConfig holds HTTP server parameters
type ServerConfig struct {
	Port int `toml:"port"`
}

// RedisConfig enables frame fan-out when Addr is set
type RedisConfig struct {
	Addr       string   `toml:"addr"`
	Password   string   `toml:"password"`
	DB         int      `toml:"db"`
	PoolSize   int      `toml:"pool_size"`
	MaxRetries int      `toml:"max_retries"`
	TLSEnabled bool     `toml:"tls_enabled"`
	TTL        duration `toml:"ttl"`
}

// LogConfig configures the logger
type LogConfig struct {
	Level      string `toml:"level"`
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
	Compress   bool   `toml:"compress"`
}

// duration is a wrapper around time.Duration that decodes TOML strings
// such as "3s" or "3m"
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the default configuration: ETHUSDT on Binance spot,
// polled every 3 seconds with a 3 minute mid price history
func Default() Config {
	return Config{
		Exchange: ExchangeConfig{
			Name:   exchange.Binance,
			Symbol: "ETHUSDT",
			Limit:  5000,
		},
		Aggregation: AggregationConfig{
			Policy:      string(aggregation.PolicyProportional),
			Granularity: float64(types.Granularity001),
			FixedBins:   aggregation.DefaultFixedBins,
			FixedWidth:  aggregation.DefaultFixedWidth,
		},
		Display: DisplayConfig{
			PricePrecision:    2,
			QuantityPrecision: 2,
			MidPrecision:      4,
			Levels:            10,
			RangePolicy:       string(chart.RangeDynamic),
		},
		Poll: PollConfig{
			Interval:     duration{3 * time.Second},
			FetchTimeout: duration{2500 * time.Millisecond},
			Retention:    duration{3 * time.Minute},
		},
		Server: ServerConfig{
			Port: 8086,
		},
		Redis: RedisConfig{
			PoolSize:   10,
			MaxRetries: 3,
			TTL:        duration{30 * time.Second},
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  5,
			MaxBackups: 10,
			MaxAgeDays: 14,
			Compress:   true,
		},
	}
}

// NewCustom creates a default configuration for a custom trading pair
func NewCustom(symbol string) Config {
	cfg := Default()
	cfg.SetSymbol(symbol)
	return cfg
}

// SetSymbol updates the trading pair
func (c *Config) SetSymbol(symbol string) {
	c.Exchange.Symbol = strings.ToUpper(strings.TrimSpace(symbol))
}

// SetExchange updates the quote source
func (c *Config) SetExchange(name exchange.ExchangeName) {
	c.Exchange.Name = name
}

// SetGranularity updates the default bucket width
func (c *Config) SetGranularity(g types.Granularity) {
	c.Aggregation.Granularity = float64(g)
}

// SetPolicy updates the aggregation policy
func (c *Config) SetPolicy(policy aggregation.Policy) {
	c.Aggregation.Policy = string(policy)
}

// SetPollInterval updates the polling interval
func (c *Config) SetPollInterval(interval time.Duration) {
	c.Poll.Interval.Duration = interval
}

// SetPort updates the HTTP port
func (c *Config) SetPort(port int) {
	c.Server.Port = port
}

var validLogLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

// Validate checks every setting and reports all problems at once
func (c *Config) Validate() error {
	var errs []string

	// Exchange
	if !factory.ValidateExchangeName(string(c.Exchange.Name)) {
		errs = append(errs, fmt.Sprintf("exchange: unknown name %q (valid: %s)", c.Exchange.Name, supportedNames()))
	}
	if strings.TrimSpace(c.Exchange.Symbol) == "" {
		errs = append(errs, "exchange: symbol must not be empty")
	}
	if c.Exchange.Limit <= 0 {
		errs = append(errs, "exchange: limit must be > 0")
	}

	// Aggregation
	switch aggregation.Policy(c.Aggregation.Policy) {
	case aggregation.PolicyProportional, aggregation.PolicyFixed:
	default:
		errs = append(errs, fmt.Sprintf("aggregation: unknown policy %q (valid: proportional, fixed)", c.Aggregation.Policy))
	}
	if err := types.Granularity(c.Aggregation.Granularity).Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("aggregation: granularity must be finite and > 0, got %v", c.Aggregation.Granularity))
	}
	if c.Aggregation.FixedBins <= 0 {
		errs = append(errs, "aggregation: fixed_bins must be > 0")
	}
	if !isFinite(c.Aggregation.FixedWidth) || c.Aggregation.FixedWidth <= 0 {
		errs = append(errs, fmt.Sprintf("aggregation: fixed_width must be finite and > 0, got %v", c.Aggregation.FixedWidth))
	}

	// Display
	for name, p := range map[string]int{
		"price_precision":    c.Display.PricePrecision,
		"quantity_precision": c.Display.QuantityPrecision,
		"mid_precision":      c.Display.MidPrecision,
	} {
		if p < 0 || p > MaxPrecision {
			errs = append(errs, fmt.Sprintf("display: %s must be 0-%d, got %d", name, MaxPrecision, p))
		}
	}
	if c.Display.Levels <= 0 {
		errs = append(errs, "display: levels must be > 0")
	}
	switch chart.RangePolicy(c.Display.RangePolicy) {
	case chart.RangeDynamic, chart.RangeFrozen:
	default:
		errs = append(errs, fmt.Sprintf("display: unknown range_policy %q (valid: dynamic, frozen)", c.Display.RangePolicy))
	}

	// Poll
	if c.Poll.Interval.Duration < 100*time.Millisecond {
		errs = append(errs, "poll: interval must be >= 100ms")
	}
	if c.Poll.FetchTimeout.Duration <= 0 || c.Poll.FetchTimeout.Duration > c.Poll.Interval.Duration {
		errs = append(errs, "poll: fetch_timeout must be > 0 and <= interval")
	}
	if c.Poll.Retention.Duration <= 0 {
		errs = append(errs, "poll: retention must be > 0")
	}

	// Server
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
	}

	// Redis
	if c.Redis.Addr != "" {
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
		if c.Redis.TTL.Duration <= 0 {
			errs = append(errs, "redis: ttl must be > 0")
		}
	}

	// Log
	if !validLogLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, fmt.Sprintf("log: unknown level %q (valid: debug, info, warn, error)", c.Log.Level))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed: %w:\n  - %s", types.ErrConfiguration, strings.Join(errs, "\n  - "))
	}
	return nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func supportedNames() string {
	names := factory.GetSupportedExchanges()
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = string(n)
	}
	return strings.Join(out, ", ")
}
