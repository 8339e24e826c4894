package aggregation

import (
	"errors"
	"testing"

	"depthview/internal/types"

	"github.com/shopspring/decimal"
)

func mustProportional(t testing.TB, g types.Granularity) *Proportional {
	t.Helper()
	agg, err := NewProportional(g)
	if err != nil {
		t.Fatalf("NewProportional(%v) error = %v", g, err)
	}
	return agg
}

func sumQuantity(buckets []types.Bucket) decimal.Decimal {
	total := decimal.Zero
	for _, b := range buckets {
		total = total.Add(b.Quantity)
	}
	return total
}

func sumLevels(levels []types.PriceLevel) decimal.Decimal {
	total := decimal.Zero
	for _, l := range levels {
		total = total.Add(l.Quantity)
	}
	return total
}

// bookSide builds n levels stepping away from start by step cents
func bookSide(n int, start int64, step int64) []types.PriceLevel {
	levels := make([]types.PriceLevel, n)
	for i := 0; i < n; i++ {
		levels[i] = types.PriceLevel{
			Price:    decimal.New(start+int64(i)*step, -2),
			Quantity: decimal.New(int64(i%7+1), -3),
		}
	}
	return levels
}

func TestNewProportional(t *testing.T) {
	agg := mustProportional(t, types.Granularity1)
	if agg.Granularity() != types.Granularity1 {
		t.Errorf("Expected granularity %v, got %v", types.Granularity1, agg.Granularity())
	}

	for _, g := range []types.Granularity{0, -1} {
		if _, err := NewProportional(g); !errors.Is(err, types.ErrConfiguration) {
			t.Errorf("Expected ErrConfiguration for %v, got %v", float64(g), err)
		}
	}
}

func TestSetGetGranularity(t *testing.T) {
	agg := mustProportional(t, types.Granularity1)

	if err := agg.SetGranularity(types.Granularity10); err != nil {
		t.Fatalf("SetGranularity() error = %v", err)
	}
	if agg.Granularity() != types.Granularity10 {
		t.Errorf("Expected granularity %v, got %v", types.Granularity10, agg.Granularity())
	}
	if !agg.BucketWidth().Equal(decimal.NewFromInt(10)) {
		t.Errorf("Expected bucket width 10, got %s", agg.BucketWidth())
	}

	if err := agg.SetGranularity(0); !errors.Is(err, types.ErrConfiguration) {
		t.Errorf("Expected ErrConfiguration, got %v", err)
	}
	if agg.Granularity() != types.Granularity10 {
		t.Error("Invalid granularity must not replace the current one")
	}
}

func TestAggregateBids(t *testing.T) {
	tests := []struct {
		name     string
		g        types.Granularity
		levels   []types.PriceLevel
		expected int
	}{
		{
			name: "No aggregation needed - granularity 0.1",
			g:    types.Granularity01,
			levels: []types.PriceLevel{
				{Price: decimal.NewFromFloat(50000.2), Quantity: decimal.NewFromFloat(1.5)},
				{Price: decimal.NewFromFloat(50000.1), Quantity: decimal.NewFromFloat(1.0)},
			},
			expected: 2,
		},
		{
			name: "Aggregation needed - granularity 1.0",
			g:    types.Granularity1,
			levels: []types.PriceLevel{
				{Price: decimal.NewFromFloat(50000.9), Quantity: decimal.NewFromFloat(1.5)},
				{Price: decimal.NewFromFloat(50000.1), Quantity: decimal.NewFromFloat(1.0)},
			},
			expected: 1, // Both aggregate to 50000
		},
		{
			name: "Aggregation needed - granularity 10.0",
			g:    types.Granularity10,
			levels: []types.PriceLevel{
				{Price: decimal.NewFromFloat(50009), Quantity: decimal.NewFromFloat(2.0)},
				{Price: decimal.NewFromFloat(50005), Quantity: decimal.NewFromFloat(1.5)},
				{Price: decimal.NewFromFloat(50001), Quantity: decimal.NewFromFloat(1.0)},
			},
			expected: 1, // All aggregate to 50000
		},
		{
			name:     "Empty levels",
			g:        types.Granularity1,
			levels:   []types.PriceLevel{},
			expected: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agg := mustProportional(t, tt.g)
			result, err := agg.Aggregate(types.Bid, tt.levels, decimal.Zero)
			if err != nil {
				t.Fatalf("Aggregate() error = %v", err)
			}

			if len(result) != tt.expected {
				t.Errorf("Expected %d aggregated levels, got %d", tt.expected, len(result))
			}

			if len(result) == 1 && len(tt.levels) > 1 {
				expectedQty := sumLevels(tt.levels)
				if !result[0].Quantity.Equal(expectedQty) {
					t.Errorf("Expected aggregated quantity %s, got %s", expectedQty, result[0].Quantity)
				}
			}
		})
	}
}

func TestAggregateAsks(t *testing.T) {
	tests := []struct {
		name     string
		g        types.Granularity
		levels   []types.PriceLevel
		expected []string
	}{
		{
			name: "No aggregation needed - granularity 0.1",
			g:    types.Granularity01,
			levels: []types.PriceLevel{
				{Price: decimal.NewFromFloat(50001.1), Quantity: decimal.NewFromFloat(1.0)},
				{Price: decimal.NewFromFloat(50001.2), Quantity: decimal.NewFromFloat(1.5)},
			},
			expected: []string{"50001.1", "50001.2"},
		},
		{
			name: "Aggregation needed - granularity 1.0",
			g:    types.Granularity1,
			levels: []types.PriceLevel{
				{Price: decimal.NewFromFloat(50001.1), Quantity: decimal.NewFromFloat(1.0)},
				{Price: decimal.NewFromFloat(50001.9), Quantity: decimal.NewFromFloat(1.5)},
			},
			expected: []string{"50002"}, // ceiling
		},
		{
			name: "Aggregation needed - granularity 10.0",
			g:    types.Granularity10,
			levels: []types.PriceLevel{
				{Price: decimal.NewFromFloat(50001), Quantity: decimal.NewFromFloat(1.0)},
				{Price: decimal.NewFromFloat(50005), Quantity: decimal.NewFromFloat(1.5)},
				{Price: decimal.NewFromFloat(50009), Quantity: decimal.NewFromFloat(2.0)},
			},
			expected: []string{"50010"}, // ceiling
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agg := mustProportional(t, tt.g)
			result, err := agg.Aggregate(types.Ask, tt.levels, decimal.Zero)
			if err != nil {
				t.Fatalf("Aggregate() error = %v", err)
			}

			if len(result) != len(tt.expected) {
				t.Fatalf("Expected %d aggregated levels, got %d", len(tt.expected), len(result))
			}
			for i, price := range tt.expected {
				if !result[i].Price.Equal(decimal.RequireFromString(price)) {
					t.Errorf("Bucket %d: expected price %s, got %s", i, price, result[i].Price)
				}
			}
		})
	}
}

func TestBinBoundaries(t *testing.T) {
	agg := mustProportional(t, types.Granularity10)
	levels := []types.PriceLevel{
		{Price: decimal.NewFromInt(100), Quantity: decimal.NewFromInt(1)},
		{Price: decimal.NewFromFloat(100.01), Quantity: decimal.NewFromInt(2)},
	}

	// bids: [100, 110) labelled 100 holds both
	bids, _ := agg.Aggregate(types.Bid, levels, decimal.Zero)
	if len(bids) != 1 || !bids[0].Price.Equal(decimal.NewFromInt(100)) || !bids[0].Quantity.Equal(decimal.NewFromInt(3)) {
		t.Errorf("Unexpected bid buckets %+v", bids)
	}

	// asks: (90, 100] labelled 100 and (100, 110] labelled 110
	asks, _ := agg.Aggregate(types.Ask, levels, decimal.Zero)
	if len(asks) != 2 {
		t.Fatalf("Expected 2 ask buckets, got %d", len(asks))
	}
	if !asks[0].Price.Equal(decimal.NewFromInt(100)) || !asks[0].Quantity.Equal(decimal.NewFromInt(1)) {
		t.Errorf("Unexpected first ask bucket %+v", asks[0])
	}
	if !asks[1].Price.Equal(decimal.NewFromInt(110)) || !asks[1].Quantity.Equal(decimal.NewFromInt(2)) {
		t.Errorf("Unexpected second ask bucket %+v", asks[1])
	}
}

func TestMassConservation(t *testing.T) {
	bids := bookSide(3000, 5000000, -37) // 50000.00 downwards
	asks := bookSide(3000, 5000001, 41)  // 50000.01 upwards

	for _, g := range types.AvailableGranularities {
		agg := mustProportional(t, g)

		aggBids, err := agg.Aggregate(types.Bid, bids, decimal.Zero)
		if err != nil {
			t.Fatalf("Aggregate(bid) error = %v", err)
		}
		if got, want := sumQuantity(aggBids), sumLevels(bids); !got.Equal(want) {
			t.Errorf("granularity %v: bid quantity %s, expected %s", g, got, want)
		}

		aggAsks, err := agg.Aggregate(types.Ask, asks, decimal.Zero)
		if err != nil {
			t.Fatalf("Aggregate(ask) error = %v", err)
		}
		if got, want := sumQuantity(aggAsks), sumLevels(asks); !got.Equal(want) {
			t.Errorf("granularity %v: ask quantity %s, expected %s", g, got, want)
		}
	}
}

func TestBidOrderDescending(t *testing.T) {
	bids := bookSide(500, 5000000, -13)

	for _, g := range types.AvailableGranularities {
		agg := mustProportional(t, g)
		result, _ := agg.Aggregate(types.Bid, bids, decimal.Zero)
		for i := 1; i < len(result); i++ {
			if !result[i].Price.LessThan(result[i-1].Price) {
				t.Fatalf("granularity %v: bucket %d price %s not below %s", g, i, result[i].Price, result[i-1].Price)
			}
		}

		asks, _ := agg.Aggregate(types.Ask, bookSide(500, 5000001, 13), decimal.Zero)
		for i := 1; i < len(asks); i++ {
			if !asks[i].Price.GreaterThan(asks[i-1].Price) {
				t.Fatalf("granularity %v: ask bucket %d price %s not above %s", g, i, asks[i].Price, asks[i-1].Price)
			}
		}
	}
}

func TestZeroQuantityBucketsDropped(t *testing.T) {
	agg := mustProportional(t, types.Granularity1)
	levels := []types.PriceLevel{
		{Price: decimal.NewFromInt(100), Quantity: decimal.Zero},
		{Price: decimal.NewFromInt(99), Quantity: decimal.NewFromInt(1)},
	}

	result, _ := agg.Aggregate(types.Bid, levels, decimal.Zero)
	if len(result) != 1 || !result[0].Price.Equal(decimal.NewFromInt(99)) {
		t.Errorf("Expected only the 99 bucket, got %+v", result)
	}
}

func TestEdgesEncloseLevels(t *testing.T) {
	levels := bookSide(200, 5000000, -37)
	for _, g := range types.AvailableGranularities {
		agg := mustProportional(t, g)
		low, high, bins := agg.Edges(levels)

		for _, side := range []types.Side{types.Bid, types.Ask} {
			buckets, _ := agg.Aggregate(side, levels, decimal.Zero)
			for _, b := range buckets {
				if b.Price.LessThan(low) || b.Price.GreaterThan(high) {
					t.Errorf("granularity %v %s: label %s outside [%s, %s]", g, side, b.Price, low, high)
				}
			}
		}
		if bins <= 0 {
			t.Errorf("granularity %v: expected positive bin count, got %d", g, bins)
		}
	}

	agg := mustProportional(t, types.Granularity10)
	low, high, bins := agg.Edges([]types.PriceLevel{
		{Price: decimal.NewFromInt(105), Quantity: decimal.NewFromInt(1)},
		{Price: decimal.NewFromInt(123), Quantity: decimal.NewFromInt(1)},
	})
	// floor(10.5 - 1)*10 = 90, ceil(12.3 + 1)*10 = 140
	if !low.Equal(decimal.NewFromInt(90)) || !high.Equal(decimal.NewFromInt(140)) || bins != 5 {
		t.Errorf("Expected [90, 140] with 5 bins, got [%s, %s] with %d", low, high, bins)
	}
}

func TestEmptySideWithNonEmptyOther(t *testing.T) {
	asks := []types.PriceLevel{
		{Price: decimal.NewFromFloat(101.5), Quantity: decimal.NewFromInt(2)},
		{Price: decimal.NewFromFloat(101.7), Quantity: decimal.NewFromInt(3)},
	}

	aggregators := map[string]types.Aggregator{
		"proportional": mustProportional(t, types.Granularity1),
	}
	grid, err := NewFixedGrid(DefaultFixedBins, decimal.NewFromInt(DefaultFixedWidth))
	if err != nil {
		t.Fatalf("NewFixedGrid() error = %v", err)
	}
	aggregators["fixed"] = grid

	for name, agg := range aggregators {
		t.Run(name, func(t *testing.T) {
			bids, err := agg.Aggregate(types.Bid, nil, decimal.NewFromInt(101))
			if err != nil {
				t.Fatalf("Aggregate(bid) error = %v", err)
			}
			if len(bids) != 0 {
				t.Errorf("Expected empty bid buckets, got %d", len(bids))
			}

			result, err := agg.Aggregate(types.Ask, asks, decimal.NewFromInt(101))
			if err != nil {
				t.Fatalf("Aggregate(ask) error = %v", err)
			}
			if got := sumQuantity(result); !got.Equal(decimal.NewFromInt(5)) {
				t.Errorf("Expected ask quantity 5, got %s", got)
			}
		})
	}
}

func TestRoundToTickBid(t *testing.T) {
	tests := []struct {
		name     string
		g        types.Granularity
		price    decimal.Decimal
		expected decimal.Decimal
	}{
		{"Round down granularity 1.0", types.Granularity1, decimal.NewFromFloat(50000.9), decimal.NewFromFloat(50000.0)},
		{"Round down granularity 10.0", types.Granularity10, decimal.NewFromFloat(50005), decimal.NewFromFloat(50000)},
		{"Round down granularity 0.01", types.Granularity001, decimal.NewFromFloat(50000.129), decimal.NewFromFloat(50000.12)},
		{"Already aligned", types.Granularity1, decimal.NewFromFloat(50000.0), decimal.NewFromFloat(50000.0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agg := mustProportional(t, tt.g)
			if result := agg.roundToTickBid(tt.price); !result.Equal(tt.expected) {
				t.Errorf("Expected %s, got %s", tt.expected, result)
			}
		})
	}
}

func TestRoundToTickAsk(t *testing.T) {
	tests := []struct {
		name     string
		g        types.Granularity
		price    decimal.Decimal
		expected decimal.Decimal
	}{
		{"Round up granularity 1.0", types.Granularity1, decimal.NewFromFloat(50000.1), decimal.NewFromFloat(50001.0)},
		{"Round up granularity 10.0", types.Granularity10, decimal.NewFromFloat(50001), decimal.NewFromFloat(50010)},
		{"Round up granularity 0.1", types.Granularity01, decimal.NewFromFloat(50000.01), decimal.NewFromFloat(50000.1)},
		{"Already aligned", types.Granularity1, decimal.NewFromFloat(50000.0), decimal.NewFromFloat(50000.0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agg := mustProportional(t, tt.g)
			if result := agg.roundToTickAsk(tt.price); !result.Equal(tt.expected) {
				t.Errorf("Expected %s, got %s", tt.expected, result)
			}
		})
	}
}

func TestNewPolicy(t *testing.T) {
	agg, err := New(Options{Policy: PolicyProportional, Granularity: types.Granularity01})
	if err != nil {
		t.Fatalf("New(proportional) error = %v", err)
	}
	if _, ok := agg.(*Proportional); !ok {
		t.Errorf("Expected *Proportional, got %T", agg)
	}

	agg, err = New(Options{Policy: PolicyFixed, FixedBins: 100, FixedWidth: decimal.NewFromInt(10)})
	if err != nil {
		t.Fatalf("New(fixed) error = %v", err)
	}
	if _, ok := agg.(*FixedGrid); !ok {
		t.Errorf("Expected *FixedGrid, got %T", agg)
	}

	if _, err := New(Options{Policy: "median"}); !errors.Is(err, types.ErrConfiguration) {
		t.Errorf("Expected ErrConfiguration for unknown policy, got %v", err)
	}
	if _, err := New(Options{Policy: PolicyProportional, Granularity: -1}); !errors.Is(err, types.ErrConfiguration) {
		t.Errorf("Expected ErrConfiguration for negative granularity, got %v", err)
	}
}

// Benchmarks

func BenchmarkAggregateBids(b *testing.B) {
	agg := mustProportional(b, types.Granularity1)
	levels := bookSide(5000, 5000050, -100) // 50000.50 downwards, forces aggregation

	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		agg.Aggregate(types.Bid, levels, decimal.Zero)
	}
}

func BenchmarkAggregateAsks(b *testing.B) {
	agg := mustProportional(b, types.Granularity1)
	levels := bookSide(5000, 5000150, 100)

	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		agg.Aggregate(types.Ask, levels, decimal.Zero)
	}
}
