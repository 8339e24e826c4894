package bybit

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
	restBaseURL    = "https://api.bybit.com"
	orderbookPath  = "/v5/market/orderbook"
	spotMaxLimit   = 200
	defaultTimeout = 10 * time.Second
)

// SpotExchange implements the QuoteSource interface for Bybit Spot
type SpotExchange struct {
	orderbookClient
}

// orderbookClient holds the request logic shared by the spot and linear categories
type orderbookClient struct {
	name      exchange.ExchangeName
	category  string
	bookURL   string
	limit     int
	client    *http.Client
	logger    *zap.Logger
	healthRec exchange.HealthTracker
}

// NewSpotExchange creates a new Bybit Spot quote source
func NewSpotExchange(config Config, logger *zap.Logger) *SpotExchange {
	return &SpotExchange{
		orderbookClient: newOrderbookClient(exchange.Bybit, "spot", spotMaxLimit, config, logger),
	}
}

func newOrderbookClient(name exchange.ExchangeName, category string, maxLimit int, config Config, logger *zap.Logger) orderbookClient {
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

	return orderbookClient{
		name:     name,
		category: category,
		bookURL:  base + orderbookPath,
		limit:    limit,
		client:   client,
		logger:   logger.Named(string(name)),
	}
}

// GetName returns the exchange name
func (c *orderbookClient) GetName() exchange.ExchangeName {
	return c.name
}

// Health returns request health information
func (c *orderbookClient) Health() exchange.HealthStatus {
	return c.healthRec.Health()
}

// GetSnapshot fetches the orderbook snapshot via REST API
func (c *orderbookClient) GetSnapshot(ctx context.Context, symbol string) (*exchange.Snapshot, error) {
	snapshot, err := c.fetch(ctx, symbol)
	if err != nil {
		c.healthRec.RecordError(err)
		return nil, err
	}
	c.healthRec.RecordSuccess()
	return snapshot, nil
}

func (c *orderbookClient) fetch(ctx context.Context, symbol string) (*exchange.Snapshot, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, fmt.Errorf("empty symbol: %w", types.ErrConfiguration)
	}

	params := url.Values{}
	params.Set("category", c.category)
	params.Set("symbol", symbol)
	params.Set("limit", strconv.Itoa(c.limit))

	c.logger.Debug("fetching orderbook snapshot", zap.String("symbol", symbol), zap.String("category", c.category))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.bookURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot: %v: %w", err, types.ErrNetwork)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("snapshot request returned %d: %w", resp.StatusCode, types.ErrNetwork)
	}

	var bybitResp OrderbookResponse
	if err := json.NewDecoder(resp.Body).Decode(&bybitResp); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("failed to read snapshot: %v: %w", err, types.ErrNetwork)
		}
		return nil, fmt.Errorf("failed to decode snapshot: %v: %w", err, types.ErrMalformedResponse)
	}

	// Bybit reports request errors in the body with HTTP 200
	if bybitResp.RetCode != 0 {
		return nil, fmt.Errorf("API error: code=%d, msg=%s: %w", bybitResp.RetCode, bybitResp.RetMsg, types.ErrMalformedResponse)
	}

	data := &bybitResp.Result
	if data.Bids == nil || data.Asks == nil {
		return nil, fmt.Errorf("snapshot is missing bids or asks: %w", types.ErrMalformedResponse)
	}
	if len(data.Bids) == 0 && len(data.Asks) == 0 {
		return nil, fmt.Errorf("snapshot has no levels: %w", types.ErrMalformedResponse)
	}

	return c.convertSnapshot(symbol, data), nil
}

// convertSnapshot converts a Bybit orderbook to canonical format
func (c *orderbookClient) convertSnapshot(symbol string, data *OrderbookData) *exchange.Snapshot {
	timestamp := time.Now()
	if data.TS > 0 {
		timestamp = time.UnixMilli(data.TS)
	}

	return &exchange.Snapshot{
		Exchange:     c.name,
		Symbol:       symbol,
		LastUpdateID: data.UpdateID,
		Bids:         convertLevels(data.Bids),
		Asks:         convertLevels(data.Asks),
		Timestamp:    timestamp,
	}
}

func convertLevels(rows [][]string) []exchange.PriceLevel {
	levels := make([]exchange.PriceLevel, len(rows))
	for i, row := range rows {
		if len(row) >= 2 {
			levels[i] = exchange.PriceLevel{
				Price:    row[0],
				Quantity: row[1],
			}
		}
	}
	return levels
}
