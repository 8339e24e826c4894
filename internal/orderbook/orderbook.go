package orderbook

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"depthview/internal/exchange"
	"depthview/internal/types"

	"github.com/shopspring/decimal"
)

var (
	two   = decimal.NewFromInt(2)
	pct05 = decimal.NewFromFloat(0.005)
	pct2  = decimal.NewFromFloat(0.02)
	pct10 = decimal.NewFromFloat(0.10)
)

// OrderBook holds the most recently loaded snapshot in decimal form
type OrderBook struct {
	mu          sync.RWMutex
	symbol      string
	bids        []types.PriceLevel // descending price
	asks        []types.PriceLevel // ascending price
	loadedAt    time.Time
	initialized bool
	stats       types.Stats
	bestBid     decimal.Decimal
	bestAsk     decimal.Decimal
}

// New creates a new OrderBook instance
func New() *OrderBook {
	return &OrderBook{
		bestBid: decimal.Zero,
		bestAsk: decimal.Zero,
	}
}

// LoadSnapshot replaces the book with the levels of snapshot. Rows that are
// short, non-numeric or negative fail the whole load with
// types.ErrMalformedResponse and leave the previous book in place.
func (ob *OrderBook) LoadSnapshot(snapshot *exchange.Snapshot) error {
	if snapshot == nil {
		return fmt.Errorf("nil snapshot: %w", types.ErrMalformedResponse)
	}

	bids, err := parseLevels(snapshot.Bids, "bid")
	if err != nil {
		return err
	}
	asks, err := parseLevels(snapshot.Asks, "ask")
	if err != nil {
		return err
	}

	sort.SliceStable(bids, func(i, j int) bool {
		return bids[i].Price.GreaterThan(bids[j].Price)
	})
	sort.SliceStable(asks, func(i, j int) bool {
		return asks[i].Price.LessThan(asks[j].Price)
	})

	ob.mu.Lock()
	defer ob.mu.Unlock()

	ob.symbol = snapshot.Symbol
	ob.bids = bids
	ob.asks = asks
	ob.loadedAt = snapshot.Timestamp
	ob.initialized = true

	ob.bestBid = decimal.Zero
	if len(bids) > 0 {
		ob.bestBid = bids[0].Price
	}
	ob.bestAsk = decimal.Zero
	if len(asks) > 0 {
		ob.bestAsk = asks[0].Price
	}

	ob.updateStats()
	return nil
}

func parseLevels(rows []exchange.PriceLevel, side string) ([]types.PriceLevel, error) {
	levels := make([]types.PriceLevel, 0, len(rows))
	for i, row := range rows {
		price, err := decimal.NewFromString(row.Price)
		if err != nil {
			return nil, fmt.Errorf("invalid %s price %q at row %d: %w", side, row.Price, i, types.ErrMalformedResponse)
		}
		qty, err := decimal.NewFromString(row.Quantity)
		if err != nil {
			return nil, fmt.Errorf("invalid %s quantity %q at row %d: %w", side, row.Quantity, i, types.ErrMalformedResponse)
		}
		if price.IsNegative() || qty.IsNegative() {
			return nil, fmt.Errorf("negative %s level %s@%s at row %d: %w", side, qty, price, i, types.ErrMalformedResponse)
		}
		if qty.IsZero() {
			continue
		}
		levels = append(levels, types.PriceLevel{Price: price, Quantity: qty})
	}
	return levels, nil
}

// Symbol returns the symbol of the loaded snapshot
func (ob *OrderBook) Symbol() string {
	ob.mu.RLock()
	defer ob.mu.RUnlock()
	return ob.symbol
}

// GetBids returns a copy of the bid levels, highest price first
func (ob *OrderBook) GetBids() []types.PriceLevel {
	ob.mu.RLock()
	defer ob.mu.RUnlock()
	return append([]types.PriceLevel(nil), ob.bids...)
}

// GetAsks returns a copy of the ask levels, lowest price first
func (ob *OrderBook) GetAsks() []types.PriceLevel {
	ob.mu.RLock()
	defer ob.mu.RUnlock()
	return append([]types.PriceLevel(nil), ob.asks...)
}

// MidPrice returns the average of best bid and best ask. ok is false when
// either side of the book is empty.
func (ob *OrderBook) MidPrice() (mid decimal.Decimal, ok bool) {
	ob.mu.RLock()
	defer ob.mu.RUnlock()
	if ob.bestBid.IsZero() || ob.bestAsk.IsZero() {
		return decimal.Zero, false
	}
	return ob.bestBid.Add(ob.bestAsk).Div(two), true
}

// GetStats returns a copy of the current statistics
func (ob *OrderBook) GetStats() types.Stats {
	ob.mu.RLock()
	defer ob.mu.RUnlock()
	return ob.stats
}

// IsInitialized returns whether a snapshot has been loaded
func (ob *OrderBook) IsInitialized() bool {
	ob.mu.RLock()
	defer ob.mu.RUnlock()
	return ob.initialized
}

// LoadedAt returns the timestamp of the loaded snapshot
func (ob *OrderBook) LoadedAt() time.Time {
	ob.mu.RLock()
	defer ob.mu.RUnlock()
	return ob.loadedAt
}

// updateStats recalculates orderbook statistics (must be called with mutex locked)
func (ob *OrderBook) updateStats() {
	ob.stats = types.Stats{
		BidLevels: len(ob.bids),
		AskLevels: len(ob.asks),
		BestBid:   ob.bestBid,
		BestAsk:   ob.bestAsk,
	}

	if !ob.bestBid.IsZero() && !ob.bestAsk.IsZero() && ob.bestAsk.GreaterThan(ob.bestBid) {
		ob.stats.Spread = ob.bestAsk.Sub(ob.bestBid)
	}

	ob.calculateLiquidityDepth()
}

// calculateLiquidityDepth calculates liquidity at various depth percentages (must be called with mutex locked)
func (ob *OrderBook) calculateLiquidityDepth() {
	totalBidsQty := decimal.Zero
	for _, level := range ob.bids {
		totalBidsQty = totalBidsQty.Add(level.Quantity)
	}
	totalAsksQty := decimal.Zero
	for _, level := range ob.asks {
		totalAsksQty = totalAsksQty.Add(level.Quantity)
	}
	ob.stats.TotalBidsQty = totalBidsQty
	ob.stats.TotalAsksQty = totalAsksQty
	ob.stats.TotalDelta = totalBidsQty.Sub(totalAsksQty)

	if ob.bestBid.IsZero() || ob.bestAsk.IsZero() {
		return
	}

	midPrice := ob.bestBid.Add(ob.bestAsk).Div(two)
	ob.stats.MidPrice = midPrice

	minBid05Pct := midPrice.Sub(midPrice.Mul(pct05))
	minBid2Pct := midPrice.Sub(midPrice.Mul(pct2))
	minBid10Pct := midPrice.Sub(midPrice.Mul(pct10))

	bidLiq05, bidLiq2, bidLiq10 := decimal.Zero, decimal.Zero, decimal.Zero
	// bids are sorted descending, so stop at the widest threshold
	for _, level := range ob.bids {
		if level.Price.LessThan(minBid10Pct) {
			break
		}
		bidLiq10 = bidLiq10.Add(level.Quantity)
		if level.Price.GreaterThanOrEqual(minBid2Pct) {
			bidLiq2 = bidLiq2.Add(level.Quantity)
		}
		if level.Price.GreaterThanOrEqual(minBid05Pct) {
			bidLiq05 = bidLiq05.Add(level.Quantity)
		}
	}

	maxAsk05Pct := midPrice.Add(midPrice.Mul(pct05))
	maxAsk2Pct := midPrice.Add(midPrice.Mul(pct2))
	maxAsk10Pct := midPrice.Add(midPrice.Mul(pct10))

	askLiq05, askLiq2, askLiq10 := decimal.Zero, decimal.Zero, decimal.Zero
	for _, level := range ob.asks {
		if level.Price.GreaterThan(maxAsk10Pct) {
			break
		}
		askLiq10 = askLiq10.Add(level.Quantity)
		if level.Price.LessThanOrEqual(maxAsk2Pct) {
			askLiq2 = askLiq2.Add(level.Quantity)
		}
		if level.Price.LessThanOrEqual(maxAsk05Pct) {
			askLiq05 = askLiq05.Add(level.Quantity)
		}
	}

	ob.stats.BidLiquidity05Pct = bidLiq05
	ob.stats.AskLiquidity05Pct = askLiq05
	ob.stats.BidLiquidity2Pct = bidLiq2
	ob.stats.AskLiquidity2Pct = askLiq2
	ob.stats.BidLiquidity10Pct = bidLiq10
	ob.stats.AskLiquidity10Pct = askLiq10

	// positive = more bid liquidity = bullish pressure
	ob.stats.DeltaLiquidity05Pct = bidLiq05.Sub(askLiq05)
	ob.stats.DeltaLiquidity2Pct = bidLiq2.Sub(askLiq2)
	ob.stats.DeltaLiquidity10Pct = bidLiq10.Sub(askLiq10)
}
