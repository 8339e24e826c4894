package hyperliquid

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"depthview/internal/exchange"
	"depthview/internal/types"

	"go.uber.org/zap"
)

const (
	restBaseURL    = "https://api.hyperliquid.xyz"
	infoPath       = "/info"
	defaultTimeout = 10 * time.Second
)

// FuturesExchange implements the QuoteSource interface for Hyperliquid perpetuals
type FuturesExchange struct {
	restURL   string
	client    *http.Client
	logger    *zap.Logger
	healthRec exchange.HealthTracker
}

// NewFuturesExchange creates a new Hyperliquid Futures quote source
func NewFuturesExchange(config Config, logger *zap.Logger) *FuturesExchange {
	base := strings.TrimRight(config.BaseURL, "/")
	if base == "" {
		base = restBaseURL
	}

	client := config.Client
	if client == nil {
		timeout := config.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &FuturesExchange{
		restURL: base + infoPath,
		client:  client,
		logger:  logger.Named(string(exchange.Hyperliquidf)),
	}
}

// GetName returns the exchange name
func (e *FuturesExchange) GetName() exchange.ExchangeName {
	return exchange.Hyperliquidf
}

// Health returns request health information
func (e *FuturesExchange) Health() exchange.HealthStatus {
	return e.healthRec.Health()
}

// GetSnapshot fetches the L2 book snapshot via REST API
func (e *FuturesExchange) GetSnapshot(ctx context.Context, symbol string) (*exchange.Snapshot, error) {
	snapshot, err := e.fetch(ctx, symbol)
	if err != nil {
		e.healthRec.RecordError(err)
		return nil, err
	}
	e.healthRec.RecordSuccess()
	return snapshot, nil
}

func (e *FuturesExchange) fetch(ctx context.Context, symbol string) (*exchange.Snapshot, error) {
	if strings.TrimSpace(symbol) == "" {
		return nil, fmt.Errorf("empty symbol: %w", types.ErrConfiguration)
	}
	coin := convertToCoin(symbol)

	jsonData, err := json.Marshal(L2BookRequest{Type: "l2Book", Coin: coin})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	e.logger.Debug("fetching orderbook snapshot", zap.String("coin", coin))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.restURL, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot: %v: %w", err, types.ErrNetwork)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("snapshot request returned %d: %w", resp.StatusCode, types.ErrNetwork)
	}

	// unknown coins come back as a JSON null
	var hyperliquidSnapshot *L2BookResponse
	if err := json.NewDecoder(resp.Body).Decode(&hyperliquidSnapshot); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("failed to read snapshot: %v: %w", err, types.ErrNetwork)
		}
		return nil, fmt.Errorf("failed to decode snapshot: %v: %w", err, types.ErrMalformedResponse)
	}
	if hyperliquidSnapshot == nil {
		return nil, fmt.Errorf("no book for coin %s: %w", coin, types.ErrMalformedResponse)
	}
	if len(hyperliquidSnapshot.Levels) != 2 {
		return nil, fmt.Errorf("expected 2 level arrays, got %d: %w", len(hyperliquidSnapshot.Levels), types.ErrMalformedResponse)
	}
	if len(hyperliquidSnapshot.Levels[0]) == 0 && len(hyperliquidSnapshot.Levels[1]) == 0 {
		return nil, fmt.Errorf("snapshot has no levels: %w", types.ErrMalformedResponse)
	}

	return e.convertSnapshot(hyperliquidSnapshot), nil
}

// convertSnapshot converts Hyperliquid snapshot to canonical format
func (e *FuturesExchange) convertSnapshot(snapshot *L2BookResponse) *exchange.Snapshot {
	bids := make([]exchange.PriceLevel, len(snapshot.Levels[0]))
	for i, bid := range snapshot.Levels[0] {
		bids[i] = exchange.PriceLevel{
			Price:    bid.Px,
			Quantity: bid.Sz,
		}
	}

	asks := make([]exchange.PriceLevel, len(snapshot.Levels[1]))
	for i, ask := range snapshot.Levels[1] {
		asks[i] = exchange.PriceLevel{
			Price:    ask.Px,
			Quantity: ask.Sz,
		}
	}

	timestamp := time.Now()
	if snapshot.Time > 0 {
		timestamp = time.UnixMilli(snapshot.Time)
	}

	return &exchange.Snapshot{
		Exchange:     e.GetName(),
		Symbol:       snapshot.Coin,
		LastUpdateID: snapshot.Time, // Use timestamp as update ID
		Bids:         bids,
		Asks:         asks,
		Timestamp:    timestamp,
	}
}

// convertToCoin maps pair symbols onto Hyperliquid coin names
// Examples: BTCUSDT -> BTC, ETH-USD -> ETH, SOL -> SOL
func convertToCoin(symbol string) string {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if i := strings.IndexAny(symbol, "-/"); i > 0 {
		return symbol[:i]
	}
	for _, quote := range []string{"USDT", "USDC", "USD"} {
		if strings.HasSuffix(symbol, quote) && len(symbol) > len(quote) {
			return strings.TrimSuffix(symbol, quote)
		}
	}
	return symbol
}
