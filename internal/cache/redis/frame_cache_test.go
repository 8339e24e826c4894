package redis

import (
	"encoding/json"
	"testing"
	"time"

	"depthview/internal/chart"

	"github.com/shopspring/decimal"
)

func TestFrameKeys(t *testing.T) {
	if got := frameKey("binance", "ethusdt"); got != "depthview:frame:binance:ETHUSDT" {
		t.Errorf("Unexpected key %s", got)
	}
	if got := frameChannel("ethusdt"); got != "depthview:frames:ETHUSDT" {
		t.Errorf("Unexpected channel %s", got)
	}
}

func TestEncodeFrame(t *testing.T) {
	frame := &chart.Frame{
		Exchange:  "okx",
		Symbol:    "BTCUSDT",
		Timestamp: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		MidPrice:  decimal.RequireFromString("43000.05"),
		MidLabel:  "43000.0500",
	}

	payload, err := encodeFrame(frame)
	if err != nil {
		t.Fatalf("encodeFrame() error = %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	// decimals travel as strings so no precision is lost to float64
	if decoded["midPrice"] != "43000.05" {
		t.Errorf("Expected midPrice as string 43000.05, got %v", decoded["midPrice"])
	}
	if decoded["symbol"] != "BTCUSDT" {
		t.Errorf("Unexpected symbol %v", decoded["symbol"])
	}

	if _, err := encodeFrame(nil); err == nil {
		t.Error("Expected an error for a nil frame")
	}
}

func TestNewFrameCacheDefaultTTL(t *testing.T) {
	fc := NewFrameCache(&Client{}, 0)
	if fc.ttl != DefaultTTL {
		t.Errorf("Expected default ttl %s, got %s", DefaultTTL, fc.ttl)
	}
}
