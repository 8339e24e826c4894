package asterdex

import (
	"depthview/internal/exchange"
	"depthview/internal/exchange/binance"

	"go.uber.org/zap"
)

const (
	futuresBaseURL   = "https://fapi.asterdex.com"
	futuresDepthPath = "/fapi/v1/depth"
	futuresMaxLimit  = 1000
)

// Config holds configuration for the Asterdex depth client
type Config = binance.Config

// FuturesExchange implements the QuoteSource interface for Asterdex perpetuals.
// Asterdex mirrors the Binance futures REST API, so requests and parsing are shared.
type FuturesExchange struct {
	*binance.CompatibleExchange
}

// NewFuturesExchange creates a new Asterdex Futures quote source
func NewFuturesExchange(config Config, logger *zap.Logger) *FuturesExchange {
	return &FuturesExchange{
		CompatibleExchange: binance.NewCompatibleExchange(binance.Endpoint{
			Name:     exchange.Asterdexf,
			BaseURL:  futuresBaseURL,
			Path:     futuresDepthPath,
			MaxLimit: futuresMaxLimit,
		}, config, logger),
	}
}
