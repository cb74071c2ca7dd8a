package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"github.com/jb49088/riven-sniper/internal/normalizer"
)

const rivenMarketShowPath = "/_modules/riven/showrivens.php"

// RivenMarketOptions parameterise the riven.market fetcher.
type RivenMarketOptions struct {
	BaseURL   string
	Platform  string
	PageLimit int
	Timeout   time.Duration
	UserAgent string
}

// RivenMarket scrapes listings from riven.market's HTML endpoint.
type RivenMarket struct {
	opts    RivenMarketOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewRivenMarket constructs a riven.market fetcher.
func NewRivenMarket(opts RivenMarketOptions, logger zerolog.Logger) *RivenMarket {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://riven.market"
	}
	if opts.Platform == "" {
		opts.Platform = "ALL"
	}
	if opts.PageLimit <= 0 {
		opts.PageLimit = 200
	}

	return &RivenMarket{
		opts:    opts,
		logger:  logger.With().Str("component", "rivenmarket_fetcher").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// Source identifies the marketplace.
func (r *RivenMarket) Source() normalizer.Source {
	return normalizer.SourceRivenMarket
}

// Fetch retrieves the first page of the most recent listings.
func (r *RivenMarket) Fetch(ctx context.Context) ([]RawListing, error) {
	doc, err := r.fetchPage(ctx, 1)
	if err != nil {
		return nil, err
	}
	return r.extractListings(doc), nil
}

// FetchPage retrieves one page of listings for a historical full scrape.
func (r *RivenMarket) FetchPage(ctx context.Context, page int) ([]RawListing, error) {
	doc, err := r.fetchPage(ctx, page)
	if err != nil {
		return nil, err
	}
	return r.extractListings(doc), nil
}

// TotalPages reads the pagination footer and returns the total listing and
// page counts.
func (r *RivenMarket) TotalPages(ctx context.Context) (total int, pages int, err error) {
	doc, err := r.fetchPage(ctx, 1)
	if err != nil {
		return 0, 0, err
	}

	counts := doc.Find("div.pagination b")
	if counts.Length() == 0 {
		return 0, 1, nil
	}

	total, err = strconv.Atoi(strings.TrimSpace(counts.Last().Text()))
	if err != nil {
		return 0, 0, fmt.Errorf("parse pagination count: %w", err)
	}

	pages = (total + r.opts.PageLimit - 1) / r.opts.PageLimit
	return total, pages, nil
}

func (r *RivenMarket) fetchPage(ctx context.Context, page int) (*goquery.Document, error) {
	endpoint := r.baseURL + rivenMarketShowPath + "?" + r.queryParams(page).Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	setBrowserHeaders(req, r.opts.UserAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("riven.market status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse riven.market html: %w", err)
	}
	return doc, nil
}

func (r *RivenMarket) queryParams(page int) url.Values {
	params := url.Values{}
	params.Set("platform", r.opts.Platform)
	params.Set("limit", strconv.Itoa(r.opts.PageLimit))
	params.Set("recency", "-1")
	params.Set("veiled", "false")
	params.Set("onlinefirst", "false")
	params.Set("polarity", "all")
	params.Set("rank", "all")
	params.Set("mastery", "16")
	params.Set("weapon", "Any")
	params.Set("stats", "Any")
	params.Set("neg", "all")
	params.Set("price", "99999")
	params.Set("rerolls", "-1")
	params.Set("sort", "time")
	params.Set("direction", "ASC")
	params.Set("page", strconv.Itoa(page))
	// cache busting
	params.Set("time", strconv.FormatInt(time.Now().UnixMilli(), 10))
	return params
}

func (r *RivenMarket) extractListings(doc *goquery.Document) []RawListing {
	now := time.Now().UTC()
	listings := make([]RawListing, 0)

	doc.Find("div.riven").Each(func(_ int, sel *goquery.Selection) {
		id, ok := sel.Attr("id")
		if !ok || id == "" {
			return
		}

		sellerDiv := sel.Find("div.attribute.seller")
		if sellerDiv.Length() == 0 {
			return
		}
		seller := firstLine(sellerDiv.Text())

		price, err := strconv.ParseInt(strings.TrimSpace(sel.AttrOr("data-price", "")), 10, 64)
		if err != nil {
			r.logger.Warn().Str("listing_id", id).Msg("skipping listing with unparsable price")
			return
		}

		listings = append(listings, RawListing{
			ID:        "rm_" + id,
			Seller:    seller,
			Source:    normalizer.SourceRivenMarket,
			Weapon:    sel.AttrOr("data-weapon", ""),
			Stat1:     sel.AttrOr("data-stat1", ""),
			Stat2:     sel.AttrOr("data-stat2", ""),
			Stat3:     sel.AttrOr("data-stat3", ""),
			Stat4:     sel.AttrOr("data-stat4", ""),
			Price:     price,
			ScrapedAt: now,
		})
	})

	return listings
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(line)
}

func setBrowserHeaders(req *http.Request, userAgent string) {
	if userAgent == "" {
		userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:145.0) Gecko/20100101 Firefox/145.0"
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")
}

var _ Fetcher = (*RivenMarket)(nil)
