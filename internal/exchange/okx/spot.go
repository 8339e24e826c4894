package okx

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
	restBaseURL    = "https://www.okx.com"
	booksFullPath  = "/api/v5/market/books-full"
	maxLimit       = 5000
	defaultTimeout = 10 * time.Second
)

// SpotExchange implements the QuoteSource interface for OKX
type SpotExchange struct {
	booksURL  string
	limit     int
	client    *http.Client
	logger    *zap.Logger
	healthRec exchange.HealthTracker
}

// NewSpotExchange creates a new OKX Spot quote source
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
		booksURL: base + booksFullPath,
		limit:    limit,
		client:   client,
		logger:   logger.Named(string(exchange.OKX)),
	}
}

// GetName returns the exchange name
func (e *SpotExchange) GetName() exchange.ExchangeName {
	return exchange.OKX
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
	instID := convertToOKXSymbol(symbol)

	params := url.Values{}
	params.Set("instId", instID)
	params.Set("sz", strconv.Itoa(e.limit))

	e.logger.Debug("fetching orderbook snapshot", zap.String("instId", instID), zap.Int("sz", e.limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.booksURL+"?"+params.Encode(), nil)
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

	var okxResp OrderBookResponse
	if err := json.NewDecoder(resp.Body).Decode(&okxResp); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("failed to read snapshot: %v: %w", err, types.ErrNetwork)
		}
		return nil, fmt.Errorf("failed to decode snapshot: %v: %w", err, types.ErrMalformedResponse)
	}

	if okxResp.Code != "0" {
		return nil, fmt.Errorf("API error: code=%s, msg=%s: %w", okxResp.Code, okxResp.Msg, types.ErrMalformedResponse)
	}

	if len(okxResp.Data) == 0 {
		return nil, fmt.Errorf("empty response data: %w", types.ErrMalformedResponse)
	}

	data := &okxResp.Data[0]
	if data.Bids == nil || data.Asks == nil {
		return nil, fmt.Errorf("snapshot is missing bids or asks: %w", types.ErrMalformedResponse)
	}
	if len(data.Bids) == 0 && len(data.Asks) == 0 {
		return nil, fmt.Errorf("snapshot has no levels: %w", types.ErrMalformedResponse)
	}

	return e.convertSnapshot(instID, data), nil
}

// convertSnapshot converts OKX REST snapshot to canonical format
func (e *SpotExchange) convertSnapshot(instID string, data *OrderBookData) *exchange.Snapshot {
	bids := make([]exchange.PriceLevel, len(data.Bids))
	for i, bid := range data.Bids {
		if len(bid) >= 2 {
			bids[i] = exchange.PriceLevel{
				Price:    bid[0],
				Quantity: bid[1],
			}
		}
	}

	asks := make([]exchange.PriceLevel, len(data.Asks))
	for i, ask := range data.Asks {
		if len(ask) >= 2 {
			asks[i] = exchange.PriceLevel{
				Price:    ask[0],
				Quantity: ask[1],
			}
		}
	}

	timestamp := time.Now()
	if ms, err := strconv.ParseInt(data.Ts, 10, 64); err == nil {
		timestamp = time.UnixMilli(ms)
	}

	return &exchange.Snapshot{
		Exchange:  e.GetName(),
		Symbol:    instID,
		Bids:      bids,
		Asks:      asks,
		Timestamp: timestamp,
	}
}

// convertToOKXSymbol converts various symbol formats to OKX format
// Examples: BTCUSDT -> BTC-USDT, BTC-USDT -> BTC-USDT
func convertToOKXSymbol(symbol string) string {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if strings.Contains(symbol, "-") {
		return symbol
	}

	for _, quote := range []string{"USDT", "USDC", "USD", "BTC", "ETH"} {
		if strings.HasSuffix(symbol, quote) && len(symbol) > len(quote) {
			return strings.TrimSuffix(symbol, quote) + "-" + quote
		}
	}

	return symbol
}
