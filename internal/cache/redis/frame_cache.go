package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"depthview/internal/chart"

	"github.com/redis/go-redis/v9"
)

// DefaultTTL bounds how long a frame outlives a stopped poller
const DefaultTTL = 30 * time.Second

// FrameCache keeps the latest frame per exchange and symbol and announces
// each new frame on a per-symbol channel.
//
// Key schema:
//
//	depthview:frame:{exchange}:{SYMBOL}  - JSON frame, expires after ttl
//	depthview:frames:{SYMBOL}            - pub/sub channel carrying the same JSON
type FrameCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewFrameCache creates a FrameCache backed by c
func NewFrameCache(c *Client, ttl time.Duration) *FrameCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &FrameCache{rdb: c.Underlying(), ttl: ttl}
}

func frameKey(exchange, symbol string) string {
	return "depthview:frame:" + exchange + ":" + strings.ToUpper(symbol)
}

func frameChannel(symbol string) string {
	return "depthview:frames:" + strings.ToUpper(symbol)
}

func encodeFrame(frame *chart.Frame) ([]byte, error) {
	if frame == nil {
		return nil, fmt.Errorf("redis: nil frame")
	}
	payload, err := json.Marshal(frame)
	if err != nil {
		return nil, fmt.Errorf("redis: encode frame %s: %w", frame.Symbol, err)
	}
	return payload, nil
}

// Publish stores frame under its key and publishes it in one transaction
func (fc *FrameCache) Publish(ctx context.Context, frame *chart.Frame) error {
	payload, err := encodeFrame(frame)
	if err != nil {
		return err
	}

	pipe := fc.rdb.TxPipeline()
	pipe.Set(ctx, frameKey(frame.Exchange, frame.Symbol), payload, fc.ttl)
	pipe.Publish(ctx, frameChannel(frame.Symbol), payload)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: publish frame %s: %w", frame.Symbol, err)
	}
	return nil
}
