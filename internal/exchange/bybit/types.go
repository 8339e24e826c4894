package bybit

import (
	"net/http"
	"time"
)

// Config holds configuration for a Bybit orderbook client
type Config struct {
	BaseURL string
	Limit   int
	Timeout time.Duration
	Client  *http.Client
}

// OrderbookResponse represents the v5 REST envelope for market/orderbook
type OrderbookResponse struct {
	RetCode int           `json:"retCode"`
	RetMsg  string        `json:"retMsg"`
	Result  OrderbookData `json:"result"`
	Time    int64         `json:"time"`
}

// OrderbookData represents the orderbook data from Bybit
type OrderbookData struct {
	Symbol   string     `json:"s"`
	Bids     [][]string `json:"b"` // [price, size]
	Asks     [][]string `json:"a"` // [price, size]
	TS       int64      `json:"ts"`
	UpdateID int64      `json:"u"`
	SeqNum   int64      `json:"seq"`
}
