package chart

import (
	"time"

	"depthview/internal/types"

	"github.com/shopspring/decimal"
)

// Settings echoes the display settings a frame was rendered with
type Settings struct {
	Granularity       string `json:"granularity"`
	Policy            string `json:"policy"`
	PricePrecision    int32  `json:"pricePrecision"`
	QuantityPrecision int32  `json:"quantityPrecision"`
	MidPrecision      int32  `json:"midPrecision"`
	Levels            int    `json:"levels"`
}

// Frame is everything the display surface needs for one tick
type Frame struct {
	Exchange  string          `json:"exchange"`
	Symbol    string          `json:"symbol"`
	Timestamp time.Time       `json:"timestamp"`
	MidPrice  decimal.Decimal `json:"midPrice"`
	MidLabel  string          `json:"midLabel"`
	Settings  Settings        `json:"settings"`
	Depth     DepthChart      `json:"depth"`
	MidChart  MidPriceChart   `json:"midChart"`
	AskTable  Table           `json:"askTable"`
	BidTable  Table           `json:"bidTable"`
	Stats     types.Stats     `json:"stats"`
	Dropped   int             `json:"dropped,omitempty"` // levels outside a fixed grid
}
