package orderbook

import (
	"errors"
	"testing"
	"time"

	"depthview/internal/exchange"
	"depthview/internal/types"

	"github.com/shopspring/decimal"
)

func snapshot(bids, asks [][2]string) *exchange.Snapshot {
	s := &exchange.Snapshot{
		Exchange:  exchange.Binance,
		Symbol:    "BTCUSDT",
		Timestamp: time.Unix(1700000000, 0),
	}
	for _, b := range bids {
		s.Bids = append(s.Bids, exchange.PriceLevel{Price: b[0], Quantity: b[1]})
	}
	for _, a := range asks {
		s.Asks = append(s.Asks, exchange.PriceLevel{Price: a[0], Quantity: a[1]})
	}
	return s
}

func TestLoadSnapshot(t *testing.T) {
	ob := New()
	if ob.IsInitialized() {
		t.Fatal("New() should not be initialized")
	}

	err := ob.LoadSnapshot(snapshot(
		[][2]string{{"99.5", "1"}, {"100", "2"}, {"98", "0"}},
		[][2]string{{"101", "3"}, {"100.5", "1.5"}},
	))
	if err != nil {
		t.Fatalf("LoadSnapshot() error = %v", err)
	}

	bids := ob.GetBids()
	if len(bids) != 2 {
		t.Fatalf("Expected zero-quantity bid to be dropped, got %d bids", len(bids))
	}
	if !bids[0].Price.Equal(decimal.NewFromInt(100)) {
		t.Errorf("Expected bids sorted descending, first is %s", bids[0].Price)
	}

	asks := ob.GetAsks()
	if !asks[0].Price.Equal(decimal.NewFromFloat(100.5)) {
		t.Errorf("Expected asks sorted ascending, first is %s", asks[0].Price)
	}

	mid, ok := ob.MidPrice()
	if !ok {
		t.Fatal("Expected mid price to be available")
	}
	if !mid.Equal(decimal.NewFromFloat(100.25)) {
		t.Errorf("Expected mid 100.25, got %s", mid)
	}

	stats := ob.GetStats()
	if !stats.Spread.Equal(decimal.NewFromFloat(0.5)) {
		t.Errorf("Expected spread 0.5, got %s", stats.Spread)
	}
	if !stats.TotalBidsQty.Equal(decimal.NewFromInt(3)) {
		t.Errorf("Expected total bids 3, got %s", stats.TotalBidsQty)
	}
	if !stats.TotalDelta.Equal(decimal.NewFromFloat(-1.5)) {
		t.Errorf("Expected total delta -1.5, got %s", stats.TotalDelta)
	}
	if ob.Symbol() != "BTCUSDT" {
		t.Errorf("Expected symbol BTCUSDT, got %s", ob.Symbol())
	}
}

func TestLiquidityDepth(t *testing.T) {
	ob := New()
	err := ob.LoadSnapshot(snapshot(
		[][2]string{{"999", "1"}, {"990", "2"}, {"950", "4"}, {"800", "8"}},
		[][2]string{{"1001", "1"}, {"1010", "2"}, {"1050", "4"}, {"1200", "8"}},
	))
	if err != nil {
		t.Fatalf("LoadSnapshot() error = %v", err)
	}

	stats := ob.GetStats()
	// mid = 1000: 0.5% -> [995, 1005], 2% -> [980, 1020], 10% -> [900, 1100]
	checks := []struct {
		name     string
		got      decimal.Decimal
		expected int64
	}{
		{"bid 0.5%", stats.BidLiquidity05Pct, 1},
		{"bid 2%", stats.BidLiquidity2Pct, 3},
		{"bid 10%", stats.BidLiquidity10Pct, 7},
		{"ask 0.5%", stats.AskLiquidity05Pct, 1},
		{"ask 2%", stats.AskLiquidity2Pct, 3},
		{"ask 10%", stats.AskLiquidity10Pct, 7},
		{"delta 10%", stats.DeltaLiquidity10Pct, 0},
	}
	for _, c := range checks {
		if !c.got.Equal(decimal.NewFromInt(c.expected)) {
			t.Errorf("%s: expected %d, got %s", c.name, c.expected, c.got)
		}
	}
}

func TestLoadSnapshotMalformed(t *testing.T) {
	tests := []struct {
		name string
		bids [][2]string
		asks [][2]string
	}{
		{"Bad price", [][2]string{{"abc", "1"}}, nil},
		{"Bad quantity", nil, [][2]string{{"1", ""}}},
		{"Negative quantity", [][2]string{{"1", "-1"}}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ob := New()
			err := ob.LoadSnapshot(snapshot(tt.bids, tt.asks))
			if !errors.Is(err, types.ErrMalformedResponse) {
				t.Errorf("Expected ErrMalformedResponse, got %v", err)
			}
			if ob.IsInitialized() {
				t.Error("Failed load must not initialize the book")
			}
		})
	}

	if err := New().LoadSnapshot(nil); !errors.Is(err, types.ErrMalformedResponse) {
		t.Errorf("Expected ErrMalformedResponse for nil snapshot, got %v", err)
	}
}

func TestMidPriceOneSideEmpty(t *testing.T) {
	ob := New()
	if err := ob.LoadSnapshot(snapshot(nil, [][2]string{{"101", "1"}})); err != nil {
		t.Fatalf("LoadSnapshot() error = %v", err)
	}
	if _, ok := ob.MidPrice(); ok {
		t.Error("Expected no mid price with an empty bid side")
	}
	if len(ob.GetBids()) != 0 {
		t.Error("Expected empty bids")
	}
}
