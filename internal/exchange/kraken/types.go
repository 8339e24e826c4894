package kraken

import (
	"net/http"
	"time"
)

// Config holds configuration for Kraken exchange
type Config struct {
	BaseURL string
	Limit   int
	Timeout time.Duration
	Client  *http.Client
}

// DepthResponse represents the REST API response for /0/public/Depth.
// Result is keyed by Kraken's internal pair name (e.g. XXBTZUSD).
type DepthResponse struct {
	Error  []string            `json:"error"`
	Result map[string]BookData `json:"result"`
}

// BookData represents the orderbook data
type BookData struct {
	Bids []Level `json:"bids"`
	Asks []Level `json:"asks"`
}

// Level is a [price, volume, timestamp] row; price and volume are strings,
// timestamp is a number.
type Level []any
