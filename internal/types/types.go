package types

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// Granularity is the width of a price bucket used for aggregation
type Granularity float64

const (
	Granularity001 Granularity = 0.01
	Granularity01  Granularity = 0.1
	Granularity1   Granularity = 1.0
	Granularity10  Granularity = 10.0
	Granularity100 Granularity = 100.0
)

// AvailableGranularities defines the selectable granularities in order of precision
var AvailableGranularities = []Granularity{
	Granularity001,
	Granularity01,
	Granularity1,
	Granularity10,
	Granularity100,
}

// Decimal returns the granularity as a decimal
func (g Granularity) Decimal() decimal.Decimal {
	return decimal.NewFromFloat(float64(g))
}

// String formats the granularity without trailing zeros
func (g Granularity) String() string {
	return g.Decimal().String()
}

// Validate rejects zero, negative and non-finite granularities
func (g Granularity) Validate() error {
	f := float64(g)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("granularity %v must be finite: %w", f, ErrConfiguration)
	}
	if g <= 0 {
		return fmt.Errorf("granularity %v must be positive: %w", f, ErrConfiguration)
	}
	return nil
}

// Side identifies the bid or ask half of the book
type Side string

const (
	Bid Side = "bid"
	Ask Side = "ask"
)

// PriceLevel represents a single price level in the order book
type PriceLevel struct {
	Price    decimal.Decimal `json:"price"`
	Quantity decimal.Decimal `json:"quantity"`
}

// Bucket is an aggregated price range with its summed quantity
type Bucket struct {
	Price    decimal.Decimal `json:"price"`
	Quantity decimal.Decimal `json:"quantity"`
}

// MidPriceSample is one point of the rolling mid-price history
type MidPriceSample struct {
	Timestamp time.Time       `json:"timestamp"`
	Price     decimal.Decimal `json:"price"`
}

// DisplayRange is the vertical axis range of the mid-price chart
type DisplayRange struct {
	Low  decimal.Decimal `json:"low"`
	High decimal.Decimal `json:"high"`
}

// Stats holds statistical information about the order book
type Stats struct {
	BidLevels int             `json:"bidLevels"`
	AskLevels int             `json:"askLevels"`
	BestBid   decimal.Decimal `json:"bestBid"`
	BestAsk   decimal.Decimal `json:"bestAsk"`
	MidPrice  decimal.Decimal `json:"midPrice"`
	Spread    decimal.Decimal `json:"spread"`

	// Liquidity depth metrics (in base asset units)
	BidLiquidity05Pct decimal.Decimal `json:"bidLiquidity05Pct"` // Total bid size within 0.5% of mid
	AskLiquidity05Pct decimal.Decimal `json:"askLiquidity05Pct"` // Total ask size within 0.5% of mid
	BidLiquidity2Pct  decimal.Decimal `json:"bidLiquidity2Pct"`  // Total bid size within 2% of mid
	AskLiquidity2Pct  decimal.Decimal `json:"askLiquidity2Pct"`  // Total ask size within 2% of mid
	BidLiquidity10Pct decimal.Decimal `json:"bidLiquidity10Pct"` // Total bid size within 10% of mid
	AskLiquidity10Pct decimal.Decimal `json:"askLiquidity10Pct"` // Total ask size within 10% of mid

	// Liquidity imbalance (positive = more bids, negative = more asks)
	DeltaLiquidity05Pct decimal.Decimal `json:"deltaLiquidity05Pct"`
	DeltaLiquidity2Pct  decimal.Decimal `json:"deltaLiquidity2Pct"`
	DeltaLiquidity10Pct decimal.Decimal `json:"deltaLiquidity10Pct"`

	TotalBidsQty decimal.Decimal `json:"totalBidsQty"`
	TotalAsksQty decimal.Decimal `json:"totalAsksQty"`
	TotalDelta   decimal.Decimal `json:"totalDelta"`
}

// IsAvailable reports whether g is one of the selectable granularities
func IsAvailable(g Granularity) bool {
	for _, available := range AvailableGranularities {
		if available == g {
			return true
		}
	}
	return false
}

// GetNextGranularity returns the next (coarser) granularity, wrapping around.
// An off-ladder value steps to the smallest ladder value above it.
func GetNextGranularity(current Granularity) Granularity {
	for _, g := range AvailableGranularities {
		if g > current {
			return g
		}
	}
	return AvailableGranularities[0]
}

// GetPreviousGranularity returns the previous (finer) granularity, wrapping around.
// An off-ladder value steps to the largest ladder value below it.
func GetPreviousGranularity(current Granularity) Granularity {
	for i := len(AvailableGranularities) - 1; i >= 0; i-- {
		if g := AvailableGranularities[i]; g < current {
			return g
		}
	}
	return AvailableGranularities[len(AvailableGranularities)-1]
}
