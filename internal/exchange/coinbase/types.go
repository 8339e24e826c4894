package coinbase

import (
	"net/http"
	"time"
)

// Config holds configuration for Coinbase exchange
type Config struct {
	BaseURL        string
	Limit          int     // Max levels kept per side after filtering
	MaxDistancePct float64 // Levels further than this fraction of mid are dropped
	Timeout        time.Duration
	Client         *http.Client
}

// BookResponse represents the REST API response for a level 2 product book
type BookResponse struct {
	Sequence int64   `json:"sequence"`
	Bids     []Level `json:"bids"`
	Asks     []Level `json:"asks"`
	Time     string  `json:"time"`
}

// Level is a [price, size, num_orders] row
type Level []any

// ErrorResponse is the body Coinbase returns alongside non-2xx statuses
type ErrorResponse struct {
	Message string `json:"message"`
}
