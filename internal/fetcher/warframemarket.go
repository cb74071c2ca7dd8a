package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/jb49088/riven-sniper/internal/normalizer"
)

const warframeMarketAuctionsPath = "/auctions"

// WarframeMarketOptions parameterise the warframe.market fetcher.
type WarframeMarketOptions struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

// WarframeMarket fetches riven auctions from the warframe.market JSON API.
type WarframeMarket struct {
	opts    WarframeMarketOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewWarframeMarket constructs a warframe.market fetcher.
func NewWarframeMarket(opts WarframeMarketOptions, logger zerolog.Logger) *WarframeMarket {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.warframe.market/v1"
	}

	return &WarframeMarket{
		opts:    opts,
		logger:  logger.With().Str("component", "warframemarket_fetcher").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// Source identifies the marketplace.
func (w *WarframeMarket) Source() normalizer.Source {
	return normalizer.SourceWarframeMarket
}

// Fetch retrieves the most recently created riven auctions. Only direct-sell
// riven listings are returned; lich and sister auctions are skipped.
func (w *WarframeMarket) Fetch(ctx context.Context) ([]RawListing, error) {
	endpoint := w.baseURL + warframeMarketAuctionsPath + "?type=riven&sort=created_desc"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	setBrowserHeaders(req, w.opts.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("warframe.market status %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	var result auctionsResponse
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, fmt.Errorf("parse warframe.market response: %w", err)
	}

	return w.extractListings(result.Payload.Auctions), nil
}

func (w *WarframeMarket) extractListings(auctions []auction) []RawListing {
	now := time.Now().UTC()
	listings := make([]RawListing, 0, len(auctions))

	for _, a := range auctions {
		if !a.IsDirectSell {
			continue
		}
		if a.Item.Type != "riven" {
			continue
		}

		positives := make([]string, 0, 3)
		negative := ""
		for _, attr := range a.Item.Attributes {
			// Attributes without an explicit flag count as positive.
			if attr.Positive == nil || *attr.Positive {
				positives = append(positives, attr.URLName)
			} else {
				negative = attr.URLName
			}
		}

		listing := RawListing{
			ID:        "wm_" + a.ID,
			Seller:    a.Owner.IngameName,
			Source:    normalizer.SourceWarframeMarket,
			Weapon:    a.Item.WeaponURLName,
			Stat4:     negative,
			ScrapedAt: now,
		}
		if len(positives) > 0 {
			listing.Stat1 = positives[0]
		}
		if len(positives) > 1 {
			listing.Stat2 = positives[1]
		}
		if len(positives) > 2 {
			listing.Stat3 = positives[2]
		}
		if a.BuyoutPrice != nil {
			listing.Price = *a.BuyoutPrice
		}

		listings = append(listings, listing)
	}

	return listings
}

type auctionsResponse struct {
	Payload struct {
		Auctions []auction `json:"auctions"`
	} `json:"payload"`
}

type auction struct {
	ID           string `json:"id"`
	IsDirectSell bool   `json:"is_direct_sell"`
	BuyoutPrice  *int64 `json:"buyout_price"`
	Owner        struct {
		IngameName string `json:"ingame_name"`
	} `json:"owner"`
	Item struct {
		Type          string `json:"type"`
		WeaponURLName string `json:"weapon_url_name"`
		Attributes    []struct {
			URLName  string `json:"url_name"`
			Positive *bool  `json:"positive"`
		} `json:"attributes"`
	} `json:"item"`
}

var _ Fetcher = (*WarframeMarket)(nil)
