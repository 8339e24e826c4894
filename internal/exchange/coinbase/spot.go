package coinbase

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"depthview/internal/exchange"
	"depthview/internal/types"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	restBaseURL           = "https://api.exchange.coinbase.com"
	defaultLimit          = 5000
	defaultMaxDistancePct = 0.50
	defaultTimeout        = 10 * time.Second
	userAgent             = "depthview"
)

// SpotExchange implements the QuoteSource interface for Coinbase
type SpotExchange struct {
	baseURL        string
	limit          int
	maxDistancePct float64
	client         *http.Client
	logger         *zap.Logger
	healthRec      exchange.HealthTracker
}

// NewSpotExchange creates a new Coinbase Spot quote source
func NewSpotExchange(config Config, logger *zap.Logger) *SpotExchange {
	base := strings.TrimRight(config.BaseURL, "/")
	if base == "" {
		base = restBaseURL
	}

	limit := config.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	maxDistancePct := config.MaxDistancePct
	if maxDistancePct <= 0 {
		maxDistancePct = defaultMaxDistancePct
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

	return &SpotExchange{
		baseURL:        base,
		limit:          limit,
		maxDistancePct: maxDistancePct,
		client:         client,
		logger:         logger.Named(string(exchange.Coinbase)),
	}
}

// GetName returns the exchange name
func (e *SpotExchange) GetName() exchange.ExchangeName {
	return exchange.Coinbase
}

// Health returns request health information
func (e *SpotExchange) Health() exchange.HealthStatus {
	return e.healthRec.Health()
}

// GetSnapshot fetches the aggregated level 2 book via REST API
func (e *SpotExchange) GetSnapshot(ctx context.Context, symbol string) (*exchange.Snapshot, error) {
	snapshot, err := e.fetch(ctx, symbol)
	if err != nil {
		e.healthRec.RecordError(err)
		return nil, err
	}
	e.healthRec.RecordSuccess()
	return snapshot, nil
}

func (e *SpotExchange) fetch(ctx context.Context, symbol string) (*exchange.Snapshot, error) {
	if strings.TrimSpace(symbol) == "" {
		return nil, fmt.Errorf("empty symbol: %w", types.ErrConfiguration)
	}
	productID := convertToCoinbaseSymbol(strings.TrimSpace(symbol))

	endpoint := fmt.Sprintf("%s/products/%s/book?level=2", e.baseURL, url.PathEscape(productID))

	e.logger.Debug("fetching orderbook snapshot", zap.String("product", productID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	// requests without a user agent are rejected
	req.Header.Set("User-Agent", userAgent)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot: %v: %w", err, types.ErrNetwork)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var apiErr ErrorResponse
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Message != "" {
			return nil, fmt.Errorf("snapshot request returned %d (%s): %w", resp.StatusCode, apiErr.Message, types.ErrNetwork)
		}
		return nil, fmt.Errorf("snapshot request returned %d: %w", resp.StatusCode, types.ErrNetwork)
	}

	var book BookResponse
	if err := json.NewDecoder(resp.Body).Decode(&book); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("failed to read snapshot: %v: %w", err, types.ErrNetwork)
		}
		return nil, fmt.Errorf("failed to decode snapshot: %v: %w", err, types.ErrMalformedResponse)
	}

	if book.Bids == nil || book.Asks == nil {
		return nil, fmt.Errorf("snapshot is missing bids or asks: %w", types.ErrMalformedResponse)
	}
	if len(book.Bids) == 0 && len(book.Asks) == 0 {
		return nil, fmt.Errorf("snapshot has no levels: %w", types.ErrMalformedResponse)
	}

	bids, asks := filterSnapshotByDistance(convertLevels(book.Bids), convertLevels(book.Asks), e.maxDistancePct)
	bids = truncate(bids, e.limit)
	asks = truncate(asks, e.limit)

	timestamp := time.Now()
	if t, err := time.Parse(time.RFC3339Nano, book.Time); err == nil {
		timestamp = t
	}

	return &exchange.Snapshot{
		Exchange:     e.GetName(),
		Symbol:       productID,
		LastUpdateID: book.Sequence,
		Bids:         bids,
		Asks:         asks,
		Timestamp:    timestamp,
	}, nil
}

func convertLevels(rows []Level) []exchange.PriceLevel {
	levels := make([]exchange.PriceLevel, len(rows))
	for i, row := range rows {
		if len(row) < 2 {
			continue
		}
		price, okPrice := row[0].(string)
		size, okSize := row[1].(string)
		if okPrice && okSize {
			levels[i] = exchange.PriceLevel{
				Price:    price,
				Quantity: size,
			}
		}
	}
	return levels
}

// truncate keeps the n levels nearest the top of book; both sides arrive
// best price first.
func truncate(levels []exchange.PriceLevel, n int) []exchange.PriceLevel {
	if len(levels) > n {
		return levels[:n]
	}
	return levels
}

// filterSnapshotByDistance filters bids/asks to keep only those within a certain percentage of the mid price
func filterSnapshotByDistance(bids, asks []exchange.PriceLevel, maxDistancePct float64) ([]exchange.PriceLevel, []exchange.PriceLevel) {
	if len(bids) == 0 || len(asks) == 0 {
		return bids, asks
	}

	var bestBid, bestAsk decimal.Decimal
	for _, bid := range bids {
		price, err := decimal.NewFromString(bid.Price)
		if err != nil {
			continue
		}
		if bestBid.IsZero() || price.GreaterThan(bestBid) {
			bestBid = price
		}
	}

	for _, ask := range asks {
		price, err := decimal.NewFromString(ask.Price)
		if err != nil {
			continue
		}
		if bestAsk.IsZero() || price.LessThan(bestAsk) {
			bestAsk = price
		}
	}

	if bestBid.IsZero() || bestAsk.IsZero() {
		return bids, asks
	}

	midPrice := bestBid.Add(bestAsk).Div(decimal.NewFromInt(2))
	maxDistance := midPrice.Mul(decimal.NewFromFloat(maxDistancePct))

	// unparsable rows are kept so the order book parser reports them
	filteredBids := make([]exchange.PriceLevel, 0, len(bids))
	for _, bid := range bids {
		price, err := decimal.NewFromString(bid.Price)
		if err != nil || midPrice.Sub(price).LessThanOrEqual(maxDistance) {
			filteredBids = append(filteredBids, bid)
		}
	}

	filteredAsks := make([]exchange.PriceLevel, 0, len(asks))
	for _, ask := range asks {
		price, err := decimal.NewFromString(ask.Price)
		if err != nil || price.Sub(midPrice).LessThanOrEqual(maxDistance) {
			filteredAsks = append(filteredAsks, ask)
		}
	}

	return filteredBids, filteredAsks
}

// convertToCoinbaseSymbol converts various symbol formats to Coinbase product IDs
// Examples: BTCUSDT -> BTC-USD, ETH-USD -> ETH-USD, SOLUSDC -> SOL-USDC
func convertToCoinbaseSymbol(symbol string) string {
	symbol = strings.ToUpper(symbol)
	if strings.Contains(symbol, "-") {
		return symbol
	}

	if strings.HasSuffix(symbol, "USDT") {
		return strings.TrimSuffix(symbol, "USDT") + "-USD"
	}
	if strings.HasSuffix(symbol, "USDC") {
		return strings.TrimSuffix(symbol, "USDC") + "-USDC"
	}
	for _, quote := range []string{"USD", "EUR", "GBP", "BTC"} {
		if strings.HasSuffix(symbol, quote) && len(symbol) > len(quote) {
			return strings.TrimSuffix(symbol, quote) + "-" + quote
		}
	}

	return symbol
}
