package hyperliquid

import (
	"net/http"
	"time"
)

// Config holds configuration for Hyperliquid exchange
type Config struct {
	BaseURL string
	Timeout time.Duration
	Client  *http.Client
}

// L2BookRequest is the info request body for an L2 book snapshot
type L2BookRequest struct {
	Type string `json:"type"`
	Coin string `json:"coin"`
}

// L2BookResponse represents the REST API response for Hyperliquid L2 book snapshot
type L2BookResponse struct {
	Coin   string    `json:"coin"`
	Time   int64     `json:"time"`
	Levels [][]Level `json:"levels"` // [bids[], asks[]]
}

// Level represents a single price level in Hyperliquid format
type Level struct {
	Px string `json:"px"` // price
	Sz string `json:"sz"` // size
	N  int    `json:"n"`  // number of orders
}
