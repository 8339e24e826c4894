package binance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
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
	spotBaseURL    = "https://api.binance.com"
	spotDepthPath  = "/api/v3/depth"
	spotMaxLimit   = 5000
	defaultTimeout = 10 * time.Second
)

// SpotExchange implements the QuoteSource interface for Binance Spot
type SpotExchange struct {
	depthClient
}

// depthClient holds the request logic shared by the spot and futures markets
type depthClient struct {
	name      exchange.ExchangeName
	depthURL  string
	limit     int
	client    *http.Client
	logger    *zap.Logger
	healthRec exchange.HealthTracker
}

// NewSpotExchange creates a new Binance Spot quote source
func NewSpotExchange(config Config, logger *zap.Logger) *SpotExchange {
	return &SpotExchange{
		depthClient: newDepthClient(exchange.Binance, spotBaseURL, spotDepthPath, spotMaxLimit, config, logger),
	}
}

func newDepthClient(name exchange.ExchangeName, defaultBase, path string, maxLimit int, config Config, logger *zap.Logger) depthClient {
	base := strings.TrimRight(config.BaseURL, "/")
	if base == "" {
		base = defaultBase
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

	return depthClient{
		name:     name,
		depthURL: base + path,
		limit:    limit,
		client:   client,
		logger:   logger.Named(string(name)),
	}
}

// GetName returns the exchange name
func (c *depthClient) GetName() exchange.ExchangeName {
	return c.name
}

// Limit returns the number of levels requested per side
func (c *depthClient) Limit() int {
	return c.limit
}

// Health returns request health information
func (c *depthClient) Health() exchange.HealthStatus {
	return c.healthRec.Health()
}

// GetSnapshot fetches the orderbook snapshot via REST API
func (c *depthClient) GetSnapshot(ctx context.Context, symbol string) (*exchange.Snapshot, error) {
	snapshot, err := c.fetch(ctx, symbol)
	if err != nil {
		c.healthRec.RecordError(err)
		return nil, err
	}
	c.healthRec.RecordSuccess()
	return snapshot, nil
}

func (c *depthClient) fetch(ctx context.Context, symbol string) (*exchange.Snapshot, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, fmt.Errorf("empty symbol: %w", types.ErrConfiguration)
	}

	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("limit", strconv.Itoa(c.limit))

	c.logger.Debug("fetching orderbook snapshot", zap.String("symbol", symbol), zap.Int("limit", c.limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.depthURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot: %v: %w", err, types.ErrNetwork)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var apiErr ErrorResponse
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Msg != "" {
			return nil, fmt.Errorf("snapshot request returned %d (code=%d, msg=%s): %w",
				resp.StatusCode, apiErr.Code, apiErr.Msg, types.ErrNetwork)
		}
		return nil, fmt.Errorf("snapshot request returned %d: %w", resp.StatusCode, types.ErrNetwork)
	}

	var binanceSnapshot SnapshotResponse
	if err := json.NewDecoder(resp.Body).Decode(&binanceSnapshot); err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("failed to read snapshot: %v: %w", err, types.ErrNetwork)
		}
		return nil, fmt.Errorf("failed to decode snapshot: %v: %w", err, types.ErrMalformedResponse)
	}

	if binanceSnapshot.Bids == nil || binanceSnapshot.Asks == nil {
		return nil, fmt.Errorf("snapshot is missing bids or asks: %w", types.ErrMalformedResponse)
	}
	if len(binanceSnapshot.Bids) == 0 && len(binanceSnapshot.Asks) == 0 {
		return nil, fmt.Errorf("snapshot has no levels: %w", types.ErrMalformedResponse)
	}

	return c.convertSnapshot(symbol, &binanceSnapshot), nil
}

// convertSnapshot converts Binance snapshot to canonical format
func (c *depthClient) convertSnapshot(symbol string, snapshot *SnapshotResponse) *exchange.Snapshot {
	return &exchange.Snapshot{
		Exchange:     c.name,
		Symbol:       symbol,
		LastUpdateID: snapshot.LastUpdateID,
		Bids:         convertLevels(snapshot.Bids),
		Asks:         convertLevels(snapshot.Asks),
		Timestamp:    time.Now(),
	}
}

// convertLevels keeps rows as strings; short rows are passed through empty
// so the order book parser rejects them.
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
