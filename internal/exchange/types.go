package exchange

import (
	"context"
	"time"
)

// ExchangeName represents supported exchange identifiers
type ExchangeName string

const (
	Binancef     ExchangeName = "binancef"
	Binance      ExchangeName = "binance"
	Bybitf       ExchangeName = "bybitf"
	Bybit        ExchangeName = "bybit"
	Kraken       ExchangeName = "kraken"
	Hyperliquidf ExchangeName = "hyperliquidf"
	OKX          ExchangeName = "okx"
	Coinbase     ExchangeName = "coinbase"
	Asterdexf    ExchangeName = "asterdexf"
)

// QuoteSource fetches full order book snapshots over REST
type QuoteSource interface {
	// GetName returns the exchange name (e.g., "binance", "okx")
	GetName() ExchangeName

	// GetSnapshot fetches the order book for symbol. Transport and HTTP
	// failures wrap types.ErrNetwork; bodies without usable levels wrap
	// types.ErrMalformedResponse.
	GetSnapshot(ctx context.Context, symbol string) (*Snapshot, error)

	// Health returns request health information
	Health() HealthStatus
}

// Snapshot represents a canonical orderbook snapshot (normalized across exchanges)
type Snapshot struct {
	Exchange     ExchangeName // Exchange name
	Symbol       string       // Trading symbol
	LastUpdateID int64        // Last update ID from exchange
	Bids         []PriceLevel // Bid levels, descending price
	Asks         []PriceLevel // Ask levels, ascending price
	Timestamp    time.Time    // Snapshot timestamp
}

// PriceLevel represents a single price level [price, quantity]
type PriceLevel struct {
	Price    string // Price as string to avoid precision loss
	Quantity string // Quantity as string to avoid precision loss
}

// HealthStatus represents request health information
type HealthStatus struct {
	RequestCount int64
	ErrorCount   int64
	LastSuccess  time.Time
	LastError    string
}
