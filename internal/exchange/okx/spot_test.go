package okx

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"depthview/internal/types"
)

func TestConvertToOKXSymbol(t *testing.T) {
	tests := map[string]string{
		"BTCUSDT":  "BTC-USDT",
		"ethusdc":  "ETH-USDC",
		"BTCUSD":   "BTC-USD",
		"SOL-USDT": "SOL-USDT",
		"DOTBTC":   "DOT-BTC",
		"XYZ":      "XYZ",
	}

	for input, expected := range tests {
		if got := convertToOKXSymbol(input); got != expected {
			t.Errorf("convertToOKXSymbol(%s) = %s, expected %s", input, got, expected)
		}
	}
}

func TestGetSnapshot(t *testing.T) {
	var gotInstID, gotSize string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotInstID = r.URL.Query().Get("instId")
		gotSize = r.URL.Query().Get("sz")
		w.Write([]byte(`{"code":"0","msg":"","data":[{"asks":[["41006.8","0.6","1"]],"bids":[["41006.3","0.3","2"],["41006.1","1.2","1"]],"ts":"1629966436396"}]}`))
	}))
	defer srv.Close()

	ex := NewSpotExchange(Config{BaseURL: srv.URL}, nil)
	snapshot, err := ex.GetSnapshot(context.Background(), "BTCUSDT")
	if err != nil {
		t.Fatalf("GetSnapshot() error = %v", err)
	}

	if gotInstID != "BTC-USDT" {
		t.Errorf("Expected instId BTC-USDT, got %s", gotInstID)
	}
	if gotSize != "5000" {
		t.Errorf("Expected sz 5000, got %s", gotSize)
	}
	if len(snapshot.Bids) != 2 || len(snapshot.Asks) != 1 {
		t.Fatalf("Expected 2 bids and 1 ask, got %d and %d", len(snapshot.Bids), len(snapshot.Asks))
	}
	if snapshot.Asks[0].Price != "41006.8" || snapshot.Asks[0].Quantity != "0.6" {
		t.Errorf("Unexpected ask %+v", snapshot.Asks[0])
	}
	if !snapshot.Timestamp.Equal(time.UnixMilli(1629966436396)) {
		t.Errorf("Unexpected timestamp %v", snapshot.Timestamp)
	}
}

func TestGetSnapshotErrors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		expected error
	}{
		{"API error code", http.StatusOK, `{"code":"51001","msg":"Instrument ID does not exist","data":[]}`, types.ErrMalformedResponse},
		{"Empty data", http.StatusOK, `{"code":"0","msg":"","data":[]}`, types.ErrMalformedResponse},
		{"Missing bids", http.StatusOK, `{"code":"0","msg":"","data":[{"asks":[["1","1","1"]]}]}`, types.ErrMalformedResponse},
		{"Rate limited", http.StatusTooManyRequests, `{}`, types.ErrNetwork},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			ex := NewSpotExchange(Config{BaseURL: srv.URL}, nil)
			if _, err := ex.GetSnapshot(context.Background(), "BTCUSDT"); !errors.Is(err, tt.expected) {
				t.Errorf("Expected %v, got %v", tt.expected, err)
			}
		})
	}
}
