package chart

import (
	"fmt"
	"strings"
	"time"

	"depthview/internal/types"

	"github.com/shopspring/decimal"
)

const (
	ColorBids     = "green"
	ColorAsks     = "red"
	ColorMidPrice = "deepskyblue"

	BarModeGroup = "group"
)

// BarSeries is one side of the depth histogram
type BarSeries struct {
	Name  string          `json:"name"`
	Color string          `json:"color"`
	Width decimal.Decimal `json:"width"`
	Bars  []types.Bucket  `json:"bars"`
}

// DepthChart describes the aggregated order book histogram
type DepthChart struct {
	Title      string      `json:"title"`
	XAxisTitle string      `json:"xAxisTitle"`
	YAxisTitle string      `json:"yAxisTitle"`
	BarMode    string      `json:"barMode"`
	Series     []BarSeries `json:"series"`
}

// MidPriceChart describes the rolling mid price line
type MidPriceChart struct {
	Title      string                 `json:"title"`
	XAxisTitle string                 `json:"xAxisTitle"`
	YAxisTitle string                 `json:"yAxisTitle"`
	XRangeFrom time.Time              `json:"xRangeFrom"`
	XRangeTo   time.Time              `json:"xRangeTo"`
	YRange     types.DisplayRange     `json:"yRange"`
	Color      string                 `json:"color"`
	Points     []types.MidPriceSample `json:"points"`
}

// NewDepthChart builds the histogram description. A side with no buckets
// gets no series.
func NewDepthChart(symbol string, bids, asks []types.Bucket, width decimal.Decimal) DepthChart {
	c := DepthChart{
		Title:      "Aggregated Order Book Histogram: " + strings.ToUpper(symbol),
		XAxisTitle: "Price",
		YAxisTitle: "Quantity",
		BarMode:    BarModeGroup,
		Series:     make([]BarSeries, 0, 2),
	}
	if len(bids) > 0 {
		c.Series = append(c.Series, BarSeries{Name: "Bids", Color: ColorBids, Width: width, Bars: bids})
	}
	if len(asks) > 0 {
		c.Series = append(c.Series, BarSeries{Name: "Asks", Color: ColorAsks, Width: width, Bars: asks})
	}
	return c
}

// NewMidPriceChart builds the line description with the x axis pinned to
// [now - retention, now]
func NewMidPriceChart(symbol string, samples []types.MidPriceSample, now time.Time, retention time.Duration, yRange types.DisplayRange, midLabel string) MidPriceChart {
	title := fmt.Sprintf("Last %s Mid Price: %s", formatRetention(retention), strings.ToUpper(symbol))
	if midLabel != "" {
		title += " - " + midLabel
	}
	return MidPriceChart{
		Title:      title,
		XAxisTitle: "Time",
		YAxisTitle: "Mid Price",
		XRangeFrom: now.Add(-retention),
		XRangeTo:   now,
		YRange:     yRange,
		Color:      ColorMidPrice,
		Points:     samples,
	}
}

// FormatMid renders the mid price label with a fixed number of decimals
func FormatMid(mid decimal.Decimal, precision int32) string {
	return mid.StringFixed(precision)
}

func formatRetention(d time.Duration) string {
	switch {
	case d%time.Minute == 0:
		return fmt.Sprintf("%d Min", int64(d/time.Minute))
	case d%time.Second == 0:
		return fmt.Sprintf("%d Sec", int64(d/time.Second))
	default:
		return d.String()
	}
}
