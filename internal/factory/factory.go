package factory

import (
	"fmt"
	"time"

	"depthview/internal/exchange"
	"depthview/internal/exchange/asterdex"
	"depthview/internal/exchange/binance"
	"depthview/internal/exchange/bybit"
	"depthview/internal/exchange/coinbase"
	"depthview/internal/exchange/hyperliquid"
	"depthview/internal/exchange/kraken"
	"depthview/internal/exchange/okx"
	"depthview/internal/types"

	"go.uber.org/zap"
)

// SourceConfig holds configuration for creating a quote source
type SourceConfig struct {
	Name    exchange.ExchangeName
	BaseURL string
	Limit   int
	Timeout time.Duration
}

// NewQuoteSource creates a new quote source based on the configuration
func NewQuoteSource(config SourceConfig, logger *zap.Logger) (exchange.QuoteSource, error) {
	switch config.Name {
	case exchange.Binancef:
		return binance.NewFuturesExchange(binance.Config{
			BaseURL: config.BaseURL,
			Limit:   config.Limit,
			Timeout: config.Timeout,
		}, logger), nil

	case exchange.Binance:
		return binance.NewSpotExchange(binance.Config{
			BaseURL: config.BaseURL,
			Limit:   config.Limit,
			Timeout: config.Timeout,
		}, logger), nil

	case exchange.Bybitf:
		return bybit.NewFuturesExchange(bybit.Config{
			BaseURL: config.BaseURL,
			Limit:   config.Limit,
			Timeout: config.Timeout,
		}, logger), nil

	case exchange.Bybit:
		return bybit.NewSpotExchange(bybit.Config{
			BaseURL: config.BaseURL,
			Limit:   config.Limit,
			Timeout: config.Timeout,
		}, logger), nil

	case exchange.Kraken:
		return kraken.NewSpotExchange(kraken.Config{
			BaseURL: config.BaseURL,
			Limit:   config.Limit,
			Timeout: config.Timeout,
		}, logger), nil

	case exchange.OKX:
		return okx.NewSpotExchange(okx.Config{
			BaseURL: config.BaseURL,
			Limit:   config.Limit,
			Timeout: config.Timeout,
		}, logger), nil

	case exchange.Coinbase:
		return coinbase.NewSpotExchange(coinbase.Config{
			BaseURL: config.BaseURL,
			Limit:   config.Limit,
			Timeout: config.Timeout,
		}, logger), nil

	case exchange.Asterdexf:
		return asterdex.NewFuturesExchange(asterdex.Config{
			BaseURL: config.BaseURL,
			Limit:   config.Limit,
			Timeout: config.Timeout,
		}, logger), nil

	case exchange.Hyperliquidf:
		return hyperliquid.NewFuturesExchange(hyperliquid.Config{
			BaseURL: config.BaseURL,
			Timeout: config.Timeout,
		}, logger), nil

	default:
		return nil, fmt.Errorf("%w: unknown exchange: %s", types.ErrConfiguration, config.Name)
	}
}

// ValidateExchangeName checks if the exchange name is supported
func ValidateExchangeName(name string) bool {
	switch exchange.ExchangeName(name) {
	case exchange.Binancef, exchange.Binance, exchange.Bybitf, exchange.Bybit, exchange.Kraken, exchange.Hyperliquidf, exchange.OKX, exchange.Coinbase, exchange.Asterdexf:
		return true
	default:
		return false
	}
}

// GetSupportedExchanges returns a list of all supported exchanges
func GetSupportedExchanges() []exchange.ExchangeName {
	return []exchange.ExchangeName{exchange.Binancef, exchange.Binance, exchange.Bybitf, exchange.Bybit, exchange.Kraken, exchange.Hyperliquidf, exchange.OKX, exchange.Coinbase, exchange.Asterdexf}
}
