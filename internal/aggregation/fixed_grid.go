package aggregation

import (
	"fmt"

	"depthview/internal/types"

	"github.com/shopspring/decimal"
)

const (
	DefaultFixedBins  = 100
	DefaultFixedWidth = 10
)

// FixedGrid buckets levels into a grid of bins anchored on the mid price
// seen by the first Aggregate call. The grid is not moved when the price
// drifts; only Reset clears it. Levels outside the grid are dropped and
// counted.
type FixedGrid struct {
	bins    int
	width   decimal.Decimal
	edges   []decimal.Decimal // bins+1 edges, nil until anchored
	anchor  decimal.Decimal
	dropped int
}

// NewFixedGrid creates an unanchored grid of bins buckets of the given width
func NewFixedGrid(bins int, width decimal.Decimal) (*FixedGrid, error) {
	if bins <= 0 {
		return nil, fmt.Errorf("fixed grid bins %d must be positive: %w", bins, types.ErrConfiguration)
	}
	if !width.IsPositive() {
		return nil, fmt.Errorf("fixed grid width %s must be positive: %w", width, types.ErrConfiguration)
	}
	return &FixedGrid{bins: bins, width: width}, nil
}

// BucketWidth returns the width of one grid bin
func (g *FixedGrid) BucketWidth() decimal.Decimal {
	return g.width
}

// Anchored reports whether the grid edges have been fixed
func (g *FixedGrid) Anchored() bool {
	return g.edges != nil
}

// Anchor returns the mid price the grid was centred on
func (g *FixedGrid) Anchor() decimal.Decimal {
	return g.anchor
}

// Edges returns a copy of the grid edges, or nil before anchoring
func (g *FixedGrid) Edges() []decimal.Decimal {
	if g.edges == nil {
		return nil
	}
	return append([]decimal.Decimal(nil), g.edges...)
}

// Dropped returns how many levels fell outside the grid since anchoring
func (g *FixedGrid) Dropped() int {
	return g.dropped
}

// Reset clears the grid so the next Aggregate re-anchors on the current mid
func (g *FixedGrid) Reset() {
	g.edges = nil
	g.anchor = decimal.Zero
	g.dropped = 0
}

// Aggregate returns one bucket per grid bin, lowest price first, with empty
// bins zero-filled. Bins are left-closed/right-open and labelled by their
// centre. Before the grid is anchored a non-positive mid yields no buckets.
func (g *FixedGrid) Aggregate(side types.Side, levels []types.PriceLevel, mid decimal.Decimal) ([]types.Bucket, error) {
	if side != types.Bid && side != types.Ask {
		return nil, fmt.Errorf("unknown side %q: %w", side, types.ErrConfiguration)
	}
	if len(levels) == 0 {
		return []types.Bucket{}, nil
	}
	if g.edges == nil {
		if !mid.IsPositive() {
			return []types.Bucket{}, nil
		}
		g.anchorOn(mid)
	}

	half := g.width.Div(decimal.NewFromInt(2))
	buckets := make([]types.Bucket, g.bins)
	for i := range buckets {
		buckets[i] = types.Bucket{
			Price:    g.edges[i].Add(half),
			Quantity: decimal.Zero,
		}
	}

	low, high := g.edges[0], g.edges[g.bins]
	for _, level := range levels {
		if level.Price.LessThan(low) || level.Price.GreaterThanOrEqual(high) {
			g.dropped++
			continue
		}
		idx := int(level.Price.Sub(low).Div(g.width).Floor().IntPart())
		if idx >= g.bins {
			idx = g.bins - 1
		}
		buckets[idx].Quantity = buckets[idx].Quantity.Add(level.Quantity)
	}

	return buckets, nil
}

// anchorOn fixes edges mid - bins*width/2 + i*width for i in [0, bins]
func (g *FixedGrid) anchorOn(mid decimal.Decimal) {
	start := mid.Sub(g.width.Mul(decimal.NewFromInt(int64(g.bins))).Div(decimal.NewFromInt(2)))
	g.edges = make([]decimal.Decimal, g.bins+1)
	for i := range g.edges {
		g.edges[i] = start.Add(g.width.Mul(decimal.NewFromInt(int64(i))))
	}
	g.anchor = mid
	g.dropped = 0
}

var _ types.Aggregator = (*FixedGrid)(nil)
