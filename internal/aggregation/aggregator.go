package aggregation

import (
	"fmt"

	"depthview/internal/types"

	"github.com/google/btree"
	"github.com/shopspring/decimal"
)

// Policy names a bucketing strategy
type Policy string

const (
	PolicyProportional Policy = "proportional"
	PolicyFixed        Policy = "fixed"
)

// Options configures New
type Options struct {
	Policy      Policy
	Granularity types.Granularity
	FixedBins   int
	FixedWidth  decimal.Decimal
}

// New builds the aggregator for the configured policy
func New(opts Options) (types.Aggregator, error) {
	switch opts.Policy {
	case PolicyProportional, "":
		return NewProportional(opts.Granularity)
	case PolicyFixed:
		return NewFixedGrid(opts.FixedBins, opts.FixedWidth)
	default:
		return nil, fmt.Errorf("unknown aggregation policy %q: %w", opts.Policy, types.ErrConfiguration)
	}
}

// Proportional buckets levels into granularity-wide bins. Bids use
// left-closed bins labelled by their left edge, asks use left-open bins
// labelled by their right edge, and empty bins are dropped.
type Proportional struct {
	granularity types.Granularity
	tickSize    decimal.Decimal
}

// NewProportional creates a Proportional aggregator
func NewProportional(g types.Granularity) (*Proportional, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return &Proportional{
		granularity: g,
		tickSize:    g.Decimal(),
	}, nil
}

// SetGranularity updates the bucket width
func (a *Proportional) SetGranularity(g types.Granularity) error {
	if err := g.Validate(); err != nil {
		return err
	}
	a.granularity = g
	a.tickSize = g.Decimal()
	return nil
}

// Granularity returns the current bucket width
func (a *Proportional) Granularity() types.Granularity {
	return a.granularity
}

// BucketWidth returns the current bucket width as a decimal
func (a *Proportional) BucketWidth() decimal.Decimal {
	return a.tickSize
}

// Reset is a no-op; proportional buckets carry no state across snapshots
func (a *Proportional) Reset() {}

// Aggregate sums quantity per bucket. Bids come back highest price first,
// asks lowest price first.
func (a *Proportional) Aggregate(side types.Side, levels []types.PriceLevel, _ decimal.Decimal) ([]types.Bucket, error) {
	if !a.tickSize.IsPositive() {
		return nil, fmt.Errorf("granularity %s must be positive: %w", a.tickSize, types.ErrConfiguration)
	}
	if side != types.Bid && side != types.Ask {
		return nil, fmt.Errorf("unknown side %q: %w", side, types.ErrConfiguration)
	}
	if len(levels) == 0 {
		return []types.Bucket{}, nil
	}

	tree := btree.NewG[types.Bucket](32, lessByPrice)

	for _, level := range levels {
		var label decimal.Decimal
		if side == types.Bid {
			label = a.roundToTickBid(level.Price)
		} else {
			label = a.roundToTickAsk(level.Price)
		}

		bucket := types.Bucket{Price: label, Quantity: level.Quantity}
		if existing, ok := tree.Get(bucket); ok {
			bucket.Quantity = existing.Quantity.Add(level.Quantity)
		}
		tree.ReplaceOrInsert(bucket)
	}

	aggregated := make([]types.Bucket, 0, tree.Len())
	collect := func(b types.Bucket) bool {
		if !b.Quantity.IsZero() {
			aggregated = append(aggregated, b)
		}
		return true
	}
	if side == types.Bid {
		tree.Descend(collect)
	} else {
		tree.Ascend(collect)
	}

	return aggregated, nil
}

// Edges returns the outer bin edges floor(min/g - 1)*g and
// ceil(max/g + 1)*g that enclose every level, and the number of bins
// between them.
func (a *Proportional) Edges(levels []types.PriceLevel) (low, high decimal.Decimal, bins int) {
	if len(levels) == 0 || !a.tickSize.IsPositive() {
		return decimal.Zero, decimal.Zero, 0
	}

	minPrice, maxPrice := levels[0].Price, levels[0].Price
	for _, level := range levels[1:] {
		if level.Price.LessThan(minPrice) {
			minPrice = level.Price
		}
		if level.Price.GreaterThan(maxPrice) {
			maxPrice = level.Price
		}
	}

	one := decimal.NewFromInt(1)
	low = minPrice.Div(a.tickSize).Sub(one).Floor().Mul(a.tickSize)
	high = maxPrice.Div(a.tickSize).Add(one).Ceil().Mul(a.tickSize)
	bins = int(high.Sub(low).Div(a.tickSize).IntPart())
	return low, high, bins
}

// roundToTickBid rounds a bid price DOWN to the left edge of its bin
func (a *Proportional) roundToTickBid(price decimal.Decimal) decimal.Decimal {
	return price.Div(a.tickSize).Floor().Mul(a.tickSize)
}

// roundToTickAsk rounds an ask price UP to the right edge of its bin
func (a *Proportional) roundToTickAsk(price decimal.Decimal) decimal.Decimal {
	return price.Div(a.tickSize).Ceil().Mul(a.tickSize)
}

func lessByPrice(a, b types.Bucket) bool {
	return a.Price.LessThan(b.Price)
}

var _ types.Aggregator = (*Proportional)(nil)
