package binance

import (
	"net/http"
	"time"
)

// Config holds configuration for a Binance depth client
type Config struct {
	BaseURL string        // Overrides the public REST host (tests, proxies)
	Limit   int           // Max levels per side
	Timeout time.Duration // HTTP client timeout
	Client  *http.Client  // Optional shared client
}

// SnapshotResponse represents the REST API response for Binance order book snapshot
type SnapshotResponse struct {
	LastUpdateID int64      `json:"lastUpdateId"`
	Bids         [][]string `json:"bids"`
	Asks         [][]string `json:"asks"`
}

// ErrorResponse is the body Binance returns alongside non-2xx statuses
type ErrorResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}
