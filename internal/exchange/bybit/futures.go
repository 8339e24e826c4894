package bybit

import (
	"depthview/internal/exchange"

	"go.uber.org/zap"
)

const futuresMaxLimit = 500

// FuturesExchange implements the QuoteSource interface for Bybit linear perpetuals
type FuturesExchange struct {
	orderbookClient
}

// NewFuturesExchange creates a new Bybit linear quote source
func NewFuturesExchange(config Config, logger *zap.Logger) *FuturesExchange {
	return &FuturesExchange{
		orderbookClient: newOrderbookClient(exchange.Bybitf, "linear", futuresMaxLimit, config, logger),
	}
}
