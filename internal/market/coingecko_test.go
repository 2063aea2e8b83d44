package market

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
)

func TestFetchPrices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/coins/markets" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("vs_currency"); got != "usd" {
			t.Fatalf("unexpected vs_currency: %s", got)
		}
		if got := r.URL.Query().Get("per_page"); got != "5" {
			t.Fatalf("unexpected per_page: %s", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"symbol":"btc","current_price":67000.5},
			{"symbol":"eth","current_price":3200},
			{"symbol":"bad","current_price":0},
			{"symbol":"","current_price":12}
		]`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "usd", 5, 0, zerolog.Nop())
	prices, err := client.FetchPrices(context.Background())
	if err != nil {
		t.Fatalf("FetchPrices returned error: %v", err)
	}
	if len(prices) != 2 {
		t.Fatalf("expected 2 valid prices, got %d", len(prices))
	}
	if prices["BTC"] != 67000.5 {
		t.Fatalf("unexpected BTC price: %.2f", prices["BTC"])
	}
	if prices["ETH"] != 3200 {
		t.Fatalf("unexpected ETH price: %.2f", prices["ETH"])
	}
	if client.Calls() != 1 {
		t.Fatalf("expected 1 API call, got %d", client.Calls())
	}
}

func TestFetchPricesRetriesOnServerError(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`[{"symbol":"btc","current_price":100}]`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "usd", 5, 2, zerolog.Nop())
	prices, err := client.FetchPrices(context.Background())
	if err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if prices["BTC"] != 100 {
		t.Fatalf("unexpected price after retry: %.2f", prices["BTC"])
	}
	if atomic.LoadInt32(&hits) != 2 {
		t.Fatalf("expected 2 attempts, got %d", hits)
	}
}

func TestFetchPricesGivesUpOnClientError(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "usd", 5, 3, zerolog.Nop())
	if _, err := client.FetchPrices(context.Background()); err == nil {
		t.Fatalf("expected error on 404")
	}
	if atomic.LoadInt32(&hits) != 1 {
		t.Fatalf("404 should not retry, got %d attempts", hits)
	}
}

func TestPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ping" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		w.Write([]byte(`{"gecko_says":"(V3) To the Moon!"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "usd", 5, 0, zerolog.Nop())
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("Ping returned error: %v", err)
	}
}

func TestPingUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	client := NewClient(srv.URL, "usd", 5, 0, zerolog.Nop())
	if err := client.Ping(context.Background()); err == nil {
		t.Fatalf("expected error for unreachable host")
	}
}
