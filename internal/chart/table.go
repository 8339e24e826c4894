package chart

import (
	"sort"

	"depthview/internal/types"

	"github.com/shopspring/decimal"
)

// fillSteps is the resolution of the depth bar drawn behind each quantity
const fillSteps = 25

// TableRow is one formatted order book row
type TableRow struct {
	Price    string `json:"price"`
	Quantity string `json:"quantity"`
	FillPct  int    `json:"fillPct"`
}

// Table is the top-of-book ladder for one side, highest price first
type Table struct {
	Side  types.Side `json:"side"`
	Color string     `json:"color"`
	Rows  []TableRow `json:"rows"`
}

// NearestBids returns up to n non-empty bid buckets with the highest
// prices, highest first
func NearestBids(buckets []types.Bucket, n int) []types.Bucket {
	out := nonEmpty(buckets)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Price.GreaterThan(out[j].Price)
	})
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// NearestAsks returns up to n non-empty ask buckets with the lowest
// prices, lowest first
func NearestAsks(buckets []types.Bucket, n int) []types.Bucket {
	out := nonEmpty(buckets)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Price.LessThan(out[j].Price)
	})
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// NewBidTable formats the levels highest bids
func NewBidTable(buckets []types.Bucket, levels int, pricePrecision, quantityPrecision int32) Table {
	return newTable(types.Bid, ColorBids, NearestBids(buckets, levels), pricePrecision, quantityPrecision)
}

// NewAskTable formats the levels lowest asks, shown highest first so the
// best ask sits next to the mid price
func NewAskTable(buckets []types.Bucket, levels int, pricePrecision, quantityPrecision int32) Table {
	asks := NearestAsks(buckets, levels)
	for i, j := 0, len(asks)-1; i < j; i, j = i+1, j-1 {
		asks[i], asks[j] = asks[j], asks[i]
	}
	return newTable(types.Ask, ColorAsks, asks, pricePrecision, quantityPrecision)
}

func newTable(side types.Side, color string, buckets []types.Bucket, pricePrecision, quantityPrecision int32) Table {
	t := Table{Side: side, Color: color, Rows: make([]TableRow, 0, len(buckets))}
	if len(buckets) == 0 {
		return t
	}

	// the bar follows the displayed, rounded quantity
	rounded := make([]decimal.Decimal, len(buckets))
	lo, hi := decimal.Zero, decimal.Zero
	for i, b := range buckets {
		rounded[i] = b.Quantity.Round(quantityPrecision)
		if i == 0 || rounded[i].LessThan(lo) {
			lo = rounded[i]
		}
		if i == 0 || rounded[i].GreaterThan(hi) {
			hi = rounded[i]
		}
	}

	for i, b := range buckets {
		t.Rows = append(t.Rows, TableRow{
			Price:    b.Price.StringFixed(pricePrecision),
			Quantity: b.Quantity.StringFixed(quantityPrecision),
			FillPct:  FillPercent(rounded[i], lo, hi),
		})
	}
	return t
}

// FillPercent maps q onto one of 25 equal steps between lo and hi and
// returns the step's upper bound as a percentage. When lo == hi every row
// is full.
func FillPercent(q, lo, hi decimal.Decimal) int {
	span := hi.Sub(lo)
	if !span.IsPositive() {
		return 100
	}
	step := q.Sub(lo).Mul(decimal.NewFromInt(fillSteps)).Div(span).Floor().IntPart() + 1
	if step < 1 {
		step = 1
	}
	if step > fillSteps {
		step = fillSteps
	}
	return int(step) * 100 / fillSteps
}

func nonEmpty(buckets []types.Bucket) []types.Bucket {
	out := make([]types.Bucket, 0, len(buckets))
	for _, b := range buckets {
		if b.Quantity.IsPositive() {
			out = append(out, b)
		}
	}
	return out
}
