package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func noopLogger() zerolog.Logger {
	return zerolog.Nop()
}

const rivenMarketPage = `<html><body>
<div class="riven" id="12345" data-weapon="Kronen Prime" data-stat1="CritChance" data-stat2="Damage" data-stat3="" data-stat4="Zoom" data-price="850">
  <div class="attribute seller">TennoTrader
online now</div>
</div>
<div class="riven" id="12346" data-weapon="Soma Prime" data-stat1="Multi" data-stat2="" data-stat3="" data-stat4="" data-price="300">
  <div class="attribute seller">OtherSeller</div>
</div>
<div class="riven" id="12347" data-weapon="Lex" data-stat1="Damage" data-price="notanumber">
  <div class="attribute seller">BadSeller</div>
</div>
<div class="pagination">Showing <b>1</b>-<b>200</b> of <b>1234</b></div>
</body></html>`

func TestRivenMarketFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("platform") != "ALL" {
			t.Fatalf("缺少 platform 参数: %s", r.URL.RawQuery)
		}
		if r.URL.Query().Get("time") == "" {
			t.Fatal("缺少 cache busting 参数")
		}
		fmt.Fprint(w, rivenMarketPage)
	}))
	defer srv.Close()

	f := NewRivenMarket(RivenMarketOptions{BaseURL: srv.URL, Timeout: time.Second}, noopLogger())

	listings, err := f.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch 应成功: %v", err)
	}
	if len(listings) != 2 {
		t.Fatalf("expected 2 listings (bad price skipped), got %d", len(listings))
	}

	first := listings[0]
	if first.ID != "rm_12345" {
		t.Fatalf("id = %q, want rm_12345", first.ID)
	}
	if first.Seller != "TennoTrader" {
		t.Fatalf("seller should be the first line only, got %q", first.Seller)
	}
	if first.Weapon != "Kronen Prime" || first.Stat1 != "CritChance" || first.Stat4 != "Zoom" {
		t.Fatalf("unexpected listing fields: %+v", first)
	}
	if first.Price != 850 {
		t.Fatalf("price = %d, want 850", first.Price)
	}
}

func TestRivenMarketTotalPages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, rivenMarketPage)
	}))
	defer srv.Close()

	f := NewRivenMarket(RivenMarketOptions{BaseURL: srv.URL, PageLimit: 200, Timeout: time.Second}, noopLogger())

	total, pages, err := f.TotalPages(context.Background())
	if err != nil {
		t.Fatalf("TotalPages failed: %v", err)
	}
	if total != 1234 {
		t.Fatalf("total = %d, want 1234", total)
	}
	if pages != 7 {
		t.Fatalf("pages = %d, want 7", pages)
	}
}

func TestRivenMarketHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	f := NewRivenMarket(RivenMarketOptions{BaseURL: srv.URL, Timeout: time.Second}, noopLogger())
	if _, err := f.Fetch(context.Background()); err == nil {
		t.Fatal("HTTP 503 应返回错误")
	}
}
