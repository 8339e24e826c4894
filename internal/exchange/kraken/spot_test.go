package kraken

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"depthview/internal/exchange"
	"depthview/internal/types"
)

func newTestServer(t *testing.T, body string) (*httptest.Server, *url.Values) {
	t.Helper()
	query := &url.Values{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*query = r.URL.Query()
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, query
}

func TestGetSnapshot(t *testing.T) {
	body := `{"error":[],"result":{"XXBTZUSD":{"asks":[["65010.10000","0.500",1716863719]],"bids":[["65000.00000","1.250",1716863718],["64999.90000","0.010",1716863717]]}}}`
	srv, query := newTestServer(t, body)

	ex := NewSpotExchange(Config{BaseURL: srv.URL}, nil)
	snapshot, err := ex.GetSnapshot(context.Background(), "btcusdt")
	if err != nil {
		t.Fatalf("GetSnapshot() error = %v", err)
	}

	if got := query.Get("pair"); got != "BTCUSD" {
		t.Errorf("Expected pair BTCUSD, got %s", got)
	}
	if got := query.Get("count"); got != "500" {
		t.Errorf("Expected count 500, got %s", got)
	}
	if snapshot.Exchange != exchange.Kraken || snapshot.Symbol != "BTC/USD" {
		t.Errorf("Unexpected snapshot header %s %s", snapshot.Exchange, snapshot.Symbol)
	}
	if len(snapshot.Bids) != 2 || len(snapshot.Asks) != 1 {
		t.Fatalf("Expected 2 bids and 1 ask, got %d and %d", len(snapshot.Bids), len(snapshot.Asks))
	}
	if snapshot.Bids[0].Price != "65000.00000" || snapshot.Bids[0].Quantity != "1.250" {
		t.Errorf("Unexpected bid %+v", snapshot.Bids[0])
	}
}

func TestGetSnapshotErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"API error", `{"error":["EQuery:Unknown asset pair"]}`},
		{"empty result", `{"error":[],"result":{}}`},
		{"missing sides", `{"error":[],"result":{"XETHZUSD":{"bids":[]}}}`},
		{"no levels", `{"error":[],"result":{"XETHZUSD":{"bids":[],"asks":[]}}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newTestServer(t, tt.body)
			ex := NewSpotExchange(Config{BaseURL: srv.URL}, nil)
			if _, err := ex.GetSnapshot(context.Background(), "ETHUSD"); !errors.Is(err, types.ErrMalformedResponse) {
				t.Errorf("Expected ErrMalformedResponse, got %v", err)
			}
		})
	}
}

func TestConvertLevelsSkipsNonStrings(t *testing.T) {
	levels := convertLevels([]Level{{"100.0", "1.0", 1.0}, {100.0, "1.0", 1.0}, {"99.0"}})
	if levels[0].Price != "100.0" {
		t.Errorf("Expected first row kept, got %+v", levels[0])
	}
	if levels[1].Price != "" || levels[2].Price != "" {
		t.Errorf("Expected malformed rows blank, got %+v", levels[1:])
	}
}

func TestConvertToKrakenSymbol(t *testing.T) {
	tests := map[string]string{
		"BTCUSDT": "BTC/USD",
		"ethusd":  "ETH/USD",
		"SOLEUR":  "SOL/EUR",
		"XBT/USD": "XBT/USD",
		"DOTJPY":  "DOTJPY",
	}
	for in, want := range tests {
		if got := convertToKrakenSymbol(in); got != want {
			t.Errorf("convertToKrakenSymbol(%q) = %q, want %q", in, got, want)
		}
	}
}
