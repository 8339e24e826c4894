package types

import (
	"github.com/shopspring/decimal"
)

// Aggregator defines the interface for price level aggregation
type Aggregator interface {
	// Aggregate buckets the levels of one side of the book. mid is the
	// current mid price; policies that do not anchor on it ignore it.
	Aggregate(side Side, levels []PriceLevel, mid decimal.Decimal) ([]Bucket, error)

	// BucketWidth returns the width of a single bucket
	BucketWidth() decimal.Decimal

	// Reset discards any state anchored on earlier snapshots
	Reset()
}
