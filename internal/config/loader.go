package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"depthview/internal/exchange"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const midPrecisionEnv = "DEPTHVIEW_DISPLAY_MID_PRECISION"

// Load starts from Default, merges the TOML file at path on top when path is
// non-empty, then applies DEPTHVIEW_* environment overrides. Unless
// mid_precision is set explicitly it follows quantity_precision + 2. The
// result is not validated; call Validate after Load and after any flag
// overrides.
func Load(path string) (*Config, error) {
	cfg := Default()
	midSet := false

	if path != "" {
		md, err := toml.DecodeFile(path, &cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to decode config %s: %w", path, err)
		}
		midSet = md.IsDefined("display", "mid_precision")
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	if !midSet && os.Getenv(midPrecisionEnv) == "" {
		cfg.Display.MidPrecision = cfg.Display.QuantityPrecision + 2
	}

	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	// ── Exchange ──
	setExchangeName(&cfg.Exchange.Name, "DEPTHVIEW_EXCHANGE_NAME")
	setStr(&cfg.Exchange.Symbol, "DEPTHVIEW_SYMBOL")
	setStr(&cfg.Exchange.BaseURL, "DEPTHVIEW_EXCHANGE_BASE_URL")
	setInt(&cfg.Exchange.Limit, "DEPTHVIEW_EXCHANGE_LIMIT")

	// ── Aggregation ──
	setStr(&cfg.Aggregation.Policy, "DEPTHVIEW_AGGREGATION_POLICY")
	setFloat64(&cfg.Aggregation.Granularity, "DEPTHVIEW_AGGREGATION_GRANULARITY")
	setInt(&cfg.Aggregation.FixedBins, "DEPTHVIEW_AGGREGATION_FIXED_BINS")
	setFloat64(&cfg.Aggregation.FixedWidth, "DEPTHVIEW_AGGREGATION_FIXED_WIDTH")

	// ── Display ──
	setInt(&cfg.Display.PricePrecision, "DEPTHVIEW_DISPLAY_PRICE_PRECISION")
	setInt(&cfg.Display.QuantityPrecision, "DEPTHVIEW_DISPLAY_QUANTITY_PRECISION")
	setInt(&cfg.Display.MidPrecision, midPrecisionEnv)
	setInt(&cfg.Display.Levels, "DEPTHVIEW_DISPLAY_LEVELS")
	setStr(&cfg.Display.RangePolicy, "DEPTHVIEW_DISPLAY_RANGE_POLICY")

	// ── Poll ──
	setDuration(&cfg.Poll.Interval, "DEPTHVIEW_POLL_INTERVAL")
	setDuration(&cfg.Poll.FetchTimeout, "DEPTHVIEW_POLL_FETCH_TIMEOUT")
	setDuration(&cfg.Poll.Retention, "DEPTHVIEW_POLL_RETENTION")

	// ── Server ──
	setInt(&cfg.Server.Port, "DEPTHVIEW_SERVER_PORT")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "DEPTHVIEW_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "DEPTHVIEW_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "DEPTHVIEW_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "DEPTHVIEW_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "DEPTHVIEW_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "DEPTHVIEW_REDIS_TLS_ENABLED")
	setDuration(&cfg.Redis.TTL, "DEPTHVIEW_REDIS_TTL")

	// ── Log ──
	setStr(&cfg.Log.Level, "DEPTHVIEW_LOG_LEVEL")
	setStr(&cfg.Log.File, "DEPTHVIEW_LOG_FILE")
	setInt(&cfg.Log.MaxSizeMB, "DEPTHVIEW_LOG_MAX_SIZE_MB")
	setInt(&cfg.Log.MaxBackups, "DEPTHVIEW_LOG_MAX_BACKUPS")
	setInt(&cfg.Log.MaxAgeDays, "DEPTHVIEW_LOG_MAX_AGE_DAYS")
	setBool(&cfg.Log.Compress, "DEPTHVIEW_LOG_COMPRESS")
}

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setExchangeName(dst *exchange.ExchangeName, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = exchange.ExchangeName(v)
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}
