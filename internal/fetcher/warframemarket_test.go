package fetcher

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func warframeMarketFixture() map[string]any {
	attr := func(name string, positive any) map[string]any {
		m := map[string]any{"url_name": name}
		if positive != nil {
			m["positive"] = positive
		}
		return m
	}

	return map[string]any{
		"payload": map[string]any{
			"auctions": []any{
				map[string]any{
					"id":             "abc123",
					"is_direct_sell": true,
					"buyout_price":   450,
					"owner":          map[string]any{"ingame_name": "TennoSeller"},
					"item": map[string]any{
						"type":            "riven",
						"weapon_url_name": "kronen_prime",
						"attributes": []any{
							attr("critical_chance", true),
							attr("multishot", nil), // missing flag counts as positive
							attr("zoom", false),
						},
					},
				},
				map[string]any{
					"id":             "auction-only",
					"is_direct_sell": false,
					"buyout_price":   100,
					"owner":          map[string]any{"ingame_name": "Auctioneer"},
					"item": map[string]any{
						"type":            "riven",
						"weapon_url_name": "lex",
						"attributes":      []any{attr("range", true)},
					},
				},
				map[string]any{
					"id":             "lich-weapon",
					"is_direct_sell": true,
					"buyout_price":   100,
					"owner":          map[string]any{"ingame_name": "LichTrader"},
					"item": map[string]any{
						"type":            "lich",
						"weapon_url_name": "kuva_bramma",
					},
				},
				map[string]any{
					"id":             "no-buyout",
					"is_direct_sell": true,
					"buyout_price":   nil,
					"owner":          map[string]any{"ingame_name": "NoBuyout"},
					"item": map[string]any{
						"type":            "riven",
						"weapon_url_name": "lex",
						"attributes":      []any{attr("range", true)},
					},
				},
			},
		},
	}
}

func TestWarframeMarketFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("type") != "riven" {
			t.Fatalf("expected type=riven query, got %s", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(warframeMarketFixture())
	}))
	defer srv.Close()

	f := NewWarframeMarket(WarframeMarketOptions{BaseURL: srv.URL, Timeout: time.Second}, noopLogger())

	listings, err := f.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch 应成功: %v", err)
	}
	// Non-direct-sell and lich auctions are dropped; the missing buyout one
	// stays with price zero and is filtered downstream.
	if len(listings) != 2 {
		t.Fatalf("expected 2 listings, got %d", len(listings))
	}

	first := listings[0]
	if first.ID != "wm_abc123" {
		t.Fatalf("id = %q, want wm_abc123", first.ID)
	}
	if first.Seller != "TennoSeller" || first.Weapon != "kronen_prime" {
		t.Fatalf("unexpected listing fields: %+v", first)
	}
	if first.Stat1 != "critical_chance" || first.Stat2 != "multishot" || first.Stat3 != "" {
		t.Fatalf("positive stats wrong: %+v", first)
	}
	if first.Stat4 != "zoom" {
		t.Fatalf("negative stat = %q, want zoom", first.Stat4)
	}
	if first.Price != 450 {
		t.Fatalf("price = %d, want 450", first.Price)
	}

	if listings[1].Price != 0 {
		t.Fatalf("missing buyout should yield price 0, got %d", listings[1].Price)
	}
}

func TestWarframeMarketHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	f := NewWarframeMarket(WarframeMarketOptions{BaseURL: srv.URL, Timeout: time.Second}, noopLogger())
	if _, err := f.Fetch(context.Background()); err == nil {
		t.Fatal("HTTP 429 应返回错误")
	}
}
