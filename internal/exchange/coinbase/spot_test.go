package coinbase

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"depthview/internal/exchange"
	"depthview/internal/types"
)

func TestGetSnapshot(t *testing.T) {
	var path, level, agent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		level = r.URL.Query().Get("level")
		agent = r.Header.Get("User-Agent")
		w.Write([]byte(`{
			"bids":[["100.00","1.5",3],["99.00","2",1],["40.00","9",1]],
			"asks":[["101.00","0.5",2],["102.00","1",1],["170.00","4",1]],
			"sequence":13051505638,
			"time":"2024-05-28T02:35:19.031Z"
		}`))
	}))
	defer srv.Close()

	ex := NewSpotExchange(Config{BaseURL: srv.URL, Limit: 1}, nil)
	snapshot, err := ex.GetSnapshot(context.Background(), "ethusdt")
	if err != nil {
		t.Fatalf("GetSnapshot() error = %v", err)
	}

	if path != "/products/ETH-USD/book" || level != "2" {
		t.Errorf("Unexpected request %s level=%s", path, level)
	}
	if agent == "" {
		t.Error("Expected a User-Agent header")
	}
	if snapshot.Exchange != exchange.Coinbase || snapshot.LastUpdateID != 13051505638 {
		t.Errorf("Unexpected snapshot header %+v", snapshot)
	}
	if snapshot.Timestamp.Year() != 2024 {
		t.Errorf("Expected exchange timestamp, got %s", snapshot.Timestamp)
	}
	// limit keeps only the best level per side
	if len(snapshot.Bids) != 1 || snapshot.Bids[0].Price != "100.00" {
		t.Errorf("Unexpected bids %+v", snapshot.Bids)
	}
	if len(snapshot.Asks) != 1 || snapshot.Asks[0].Price != "101.00" {
		t.Errorf("Unexpected asks %+v", snapshot.Asks)
	}
}

func TestFilterSnapshotByDistance(t *testing.T) {
	bids := []exchange.PriceLevel{{Price: "100", Quantity: "1"}, {Price: "60", Quantity: "1"}, {Price: "40", Quantity: "1"}}
	asks := []exchange.PriceLevel{{Price: "102", Quantity: "1"}, {Price: "140", Quantity: "1"}, {Price: "160", Quantity: "1"}}

	// mid 101, 50% distance keeps [50.5, 151.5]
	gotBids, gotAsks := filterSnapshotByDistance(bids, asks, 0.50)
	if len(gotBids) != 2 || gotBids[1].Price != "60" {
		t.Errorf("Unexpected bids %+v", gotBids)
	}
	if len(gotAsks) != 2 || gotAsks[1].Price != "140" {
		t.Errorf("Unexpected asks %+v", gotAsks)
	}

	// one-sided books are returned untouched
	gotBids, gotAsks = filterSnapshotByDistance(bids, nil, 0.01)
	if len(gotBids) != 3 || len(gotAsks) != 0 {
		t.Errorf("Expected one-sided book untouched, got %d/%d", len(gotBids), len(gotAsks))
	}
}

func TestGetSnapshotErrors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		expected error
	}{
		{"not found", http.StatusNotFound, `{"message":"NotFound"}`, types.ErrNetwork},
		{"missing sides", http.StatusOK, `{"sequence":1}`, types.ErrMalformedResponse},
		{"no levels", http.StatusOK, `{"bids":[],"asks":[]}`, types.ErrMalformedResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			ex := NewSpotExchange(Config{BaseURL: srv.URL}, nil)
			if _, err := ex.GetSnapshot(context.Background(), "BTC-USD"); !errors.Is(err, tt.expected) {
				t.Errorf("Expected %v, got %v", tt.expected, err)
			}
		})
	}
}

func TestConvertToCoinbaseSymbol(t *testing.T) {
	tests := map[string]string{
		"BTCUSDT": "BTC-USD",
		"solusdc": "SOL-USDC",
		"ETHBTC":  "ETH-BTC",
		"eth-usd": "ETH-USD",
	}
	for in, want := range tests {
		if got := convertToCoinbaseSymbol(in); got != want {
			t.Errorf("convertToCoinbaseSymbol(%q) = %q, want %q", in, got, want)
		}
	}
}
