package binance

import (
	"depthview/internal/exchange"

	"go.uber.org/zap"
)

const (
	futuresBaseURL   = "https://fapi.binance.com"
	futuresDepthPath = "/fapi/v1/depth"
	futuresMaxLimit  = 1000
)

// FuturesExchange implements the QuoteSource interface for Binance USDⓈ-M Futures
type FuturesExchange struct {
	depthClient
}

// NewFuturesExchange creates a new Binance Futures quote source
func NewFuturesExchange(config Config, logger *zap.Logger) *FuturesExchange {
	return &FuturesExchange{
		depthClient: newDepthClient(exchange.Binancef, futuresBaseURL, futuresDepthPath, futuresMaxLimit, config, logger),
	}
}

// Endpoint describes a venue that serves Binance's depth API under its own host
type Endpoint struct {
	Name     exchange.ExchangeName
	BaseURL  string
	Path     string
	MaxLimit int
}

// CompatibleExchange implements the QuoteSource interface for Binance-compatible venues
type CompatibleExchange struct {
	depthClient
}

// NewCompatibleExchange creates a quote source for a Binance-compatible depth endpoint.
// config.BaseURL, when set, overrides endpoint.BaseURL.
func NewCompatibleExchange(endpoint Endpoint, config Config, logger *zap.Logger) *CompatibleExchange {
	return &CompatibleExchange{
		depthClient: newDepthClient(endpoint.Name, endpoint.BaseURL, endpoint.Path, endpoint.MaxLimit, config, logger),
	}
}
