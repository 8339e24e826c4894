package kraken

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"depthview/internal/exchange"
	"depthview/internal/types"

	"go.uber.org/zap"
)

const (
	restBaseURL    = "https://api.kraken.com"
	depthPath      = "/0/public/Depth"
	maxLimit       = 500
	defaultTimeout = 10 * time.Second
)

// SpotExchange implements the QuoteSource interface for Kraken Spot
type SpotExchange struct {
	depthURL  string
	limit     int
	client    *http.Client
	logger    *zap.Logger
	healthRec exchange.HealthTracker
}

// NewSpotExchange creates a new Kraken Spot quote source
func NewSpotExchange(config Config, logger *zap.Logger) *SpotExchange {
	base := strings.TrimRight(config.BaseURL, "/")
	if base == "" {
		base = restBaseURL
	}

	limit := config.Limit
	if limit <= 0 || limit > maxLimit {
		limit = maxLimit
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
		depthURL: base + depthPath,
		limit:    limit,
		client:   client,
		logger:   logger.Named(string(exchange.Kraken)),
	}
}

// GetName returns the exchange name
func (e *SpotExchange) GetName() exchange.ExchangeName {
	return exchange.Kraken
}

// Health returns request health information
func (e *SpotExchange) Health() exchange.HealthStatus {
	return e.healthRec.Health()
}

// GetSnapshot fetches the orderbook snapshot via REST API
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
	pair := convertToKrakenSymbol(strings.TrimSpace(symbol))

	params := url.Values{}
	params.Set("pair", strings.ReplaceAll(pair, "/", ""))
	params.Set("count", strconv.Itoa(e.limit))

	e.logger.Debug("fetching orderbook snapshot", zap.String("pair", pair), zap.Int("count", e.limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.depthURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot: %v: %w", err, types.ErrNetwork)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("snapshot request returned %d: %w", resp.StatusCode, types.ErrNetwork)
	}

	var krakenResp DepthResponse
	if err := json.NewDecoder(resp.Body).Decode(&krakenResp); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("failed to read snapshot: %v: %w", err, types.ErrNetwork)
		}
		return nil, fmt.Errorf("failed to decode snapshot: %v: %w", err, types.ErrMalformedResponse)
	}

	if len(krakenResp.Error) > 0 {
		return nil, fmt.Errorf("API error: %s: %w", strings.Join(krakenResp.Error, "; "), types.ErrMalformedResponse)
	}

	// a single pair was requested, so the result holds one book
	var (
		data  BookData
		found bool
	)
	for _, book := range krakenResp.Result {
		data, found = book, true
		break
	}
	if !found {
		return nil, fmt.Errorf("empty response result: %w", types.ErrMalformedResponse)
	}
	if data.Bids == nil || data.Asks == nil {
		return nil, fmt.Errorf("snapshot is missing bids or asks: %w", types.ErrMalformedResponse)
	}
	if len(data.Bids) == 0 && len(data.Asks) == 0 {
		return nil, fmt.Errorf("snapshot has no levels: %w", types.ErrMalformedResponse)
	}

	return &exchange.Snapshot{
		Exchange:  e.GetName(),
		Symbol:    pair,
		Bids:      convertLevels(data.Bids),
		Asks:      convertLevels(data.Asks),
		Timestamp: time.Now(),
	}, nil
}

// convertLevels keeps the price and volume strings; rows whose first two
// fields are not strings are passed through empty so the order book parser
// rejects them.
func convertLevels(rows []Level) []exchange.PriceLevel {
	levels := make([]exchange.PriceLevel, len(rows))
	for i, row := range rows {
		if len(row) < 2 {
			continue
		}
		price, okPrice := row[0].(string)
		qty, okQty := row[1].(string)
		if okPrice && okQty {
			levels[i] = exchange.PriceLevel{
				Price:    price,
				Quantity: qty,
			}
		}
	}
	return levels
}

// convertToKrakenSymbol converts various symbol formats to Kraken format
// Examples: BTCUSDT -> BTC/USD, ETHUSDT -> ETH/USD, BTC/USD -> BTC/USD
func convertToKrakenSymbol(symbol string) string {
	symbol = strings.ToUpper(symbol)
	if strings.Contains(symbol, "/") {
		return symbol
	}

	// USDT pairs are quoted against USD on Kraken
	if strings.HasSuffix(symbol, "USDT") {
		return strings.TrimSuffix(symbol, "USDT") + "/USD"
	}

	for _, quote := range []string{"USD", "EUR", "GBP"} {
		if strings.HasSuffix(symbol, quote) && len(symbol) > len(quote) {
			return strings.TrimSuffix(symbol, quote) + "/" + quote
		}
	}

	// let Kraken reject what we can't map
	return symbol
}
