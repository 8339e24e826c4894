package chart

import (
	"fmt"

	"depthview/internal/types"

	"github.com/shopspring/decimal"
)

// RangePolicy controls whether the mid price axis follows volatility
type RangePolicy string

const (
	// RangeDynamic recomputes the range on every tick
	RangeDynamic RangePolicy = "dynamic"
	// RangeFrozen keeps the first computed range until Reset
	RangeFrozen RangePolicy = "frozen"
)

var (
	two          = decimal.NewFromInt(2)
	hundred      = decimal.NewFromInt(100)
	twoHundred   = decimal.NewFromInt(200)
	maxRangeFrac = decimal.NewFromFloat(0.05)
)

// RangeCalculator derives the vertical range of the mid price chart
type RangeCalculator struct {
	policy RangePolicy
	frozen *types.DisplayRange
}

// NewRangeCalculator creates a calculator for policy
func NewRangeCalculator(policy RangePolicy) (*RangeCalculator, error) {
	switch policy {
	case RangeDynamic, RangeFrozen:
	case "":
		policy = RangeDynamic
	default:
		return nil, fmt.Errorf("unknown range policy %q: %w", policy, types.ErrConfiguration)
	}
	return &RangeCalculator{policy: policy}, nil
}

// Policy returns the active policy
func (c *RangeCalculator) Policy() RangePolicy {
	return c.policy
}

// Calculate returns the display range for mid given the retained prices.
// Under RangeFrozen the first result is returned until Reset.
func (c *RangeCalculator) Calculate(mid decimal.Decimal, prices []decimal.Decimal) types.DisplayRange {
	if c.policy == RangeFrozen && c.frozen != nil {
		return *c.frozen
	}
	r := CalculateRange(mid, prices)
	if c.policy == RangeFrozen {
		c.frozen = &r
	}
	return r
}

// Reset forgets a frozen range
func (c *RangeCalculator) Reset() {
	c.frozen = nil
}

// CalculateRange centres a window of height min(2*(max-min), 5% of mid) on
// mid. A non-positive height falls back to mid/100 and an empty history to
// mid/200 on each side.
func CalculateRange(mid decimal.Decimal, prices []decimal.Decimal) types.DisplayRange {
	if len(prices) == 0 {
		half := mid.Div(twoHundred)
		return types.DisplayRange{Low: mid.Sub(half), High: mid.Add(half)}
	}

	lo, hi := prices[0], prices[0]
	for _, p := range prices[1:] {
		if p.LessThan(lo) {
			lo = p
		}
		if p.GreaterThan(hi) {
			hi = p
		}
	}

	height := decimal.Min(hi.Sub(lo).Mul(two), mid.Mul(maxRangeFrac))
	if !height.IsPositive() {
		height = mid.Div(hundred)
	}
	half := height.Div(two)
	return types.DisplayRange{Low: mid.Sub(half), High: mid.Add(half)}
}
