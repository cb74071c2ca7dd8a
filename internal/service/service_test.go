package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jb49088/riven-sniper/internal/config"
	"github.com/jb49088/riven-sniper/internal/fetcher"
	"github.com/jb49088/riven-sniper/internal/matcher"
	"github.com/jb49088/riven-sniper/internal/normalizer"
	"github.com/jb49088/riven-sniper/internal/storage"
)

// memStore implements the listing, godroll, and alert store interfaces in
// memory for pipeline tests.
type memStore struct {
	listings []storage.Listing
	godrolls []storage.Godroll
	alerted  map[string]struct{}
}

func newMemStore() *memStore {
	return &memStore{alerted: make(map[string]struct{})}
}

func (m *memStore) UpsertListings(ctx context.Context, listings []storage.Listing) (int64, error) {
	var inserted int64
	for _, l := range listings {
		exists := false
		for _, have := range m.listings {
			if have.ID == l.ID {
				exists = true
				break
			}
		}
		if !exists {
			m.listings = append(m.listings, l)
			inserted++
		}
	}
	return inserted, nil
}

func (m *memStore) ListListings(ctx context.Context) ([]storage.Listing, error) {
	return m.listings, nil
}

func (m *memStore) CountListings(ctx context.Context) (int64, error) {
	return int64(len(m.listings)), nil
}

func (m *memStore) ReplaceGodrolls(ctx context.Context, godrolls []storage.Godroll) error {
	m.godrolls = godrolls
	return nil
}

func (m *memStore) ListGodrolls(ctx context.Context) ([]storage.Godroll, error) {
	return m.godrolls, nil
}

func (m *memStore) RecentListingsBelow(ctx context.Context, key normalizer.ProfileKey, maxPrice decimal.Decimal, limit int) ([]storage.Listing, error) {
	matched := make([]storage.Listing, 0)
	for _, l := range m.listings {
		if l.ProfileKey() != key || l.Price <= 0 {
			continue
		}
		if decimal.NewFromInt(l.Price).LessThanOrEqual(maxPrice) {
			matched = append(matched, l)
		}
		if len(matched) == limit {
			break
		}
	}
	return matched, nil
}

func (m *memStore) AlertedIDs(ctx context.Context) (map[string]struct{}, error) {
	ids := make(map[string]struct{}, len(m.alerted))
	for id := range m.alerted {
		ids[id] = struct{}{}
	}
	return ids, nil
}

func (m *memStore) MarkAlerted(ctx context.Context, ids []string) error {
	for _, id := range ids {
		m.alerted[id] = struct{}{}
	}
	return nil
}

var _ storage.ListingStore = (*memStore)(nil)
var _ storage.GodrollStore = (*memStore)(nil)
var _ storage.AlertStore = (*memStore)(nil)

type stubFetcher struct {
	source   normalizer.Source
	listings []fetcher.RawListing
	err      error
}

func (s *stubFetcher) Source() normalizer.Source { return s.source }

func (s *stubFetcher) Fetch(ctx context.Context) ([]fetcher.RawListing, error) {
	return s.listings, s.err
}

type captureNotifier struct {
	deals []matcher.Deal
}

func (c *captureNotifier) Notify(ctx context.Context, deal matcher.Deal) error {
	c.deals = append(c.deals, deal)
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		Scheduler: config.SchedulerConfig{Interval: 10 * time.Second},
		Aggregation: config.AggregationConfig{
			MaxPrice:        50000,
			SampleThreshold: 0,
			GodrollCount:    5,
			Hour:            4,
		},
		Alerting: config.AlertingConfig{Enabled: true, DealThreshold: 0.60, MatchLimit: 10},
	}
}

func rawListing(id, seller, weapon, stat1 string, price int64) fetcher.RawListing {
	return fetcher.RawListing{
		ID:        id,
		Seller:    seller,
		Source:    normalizer.SourceRivenMarket,
		Weapon:    weapon,
		Stat1:     stat1,
		Price:     price,
		ScrapedAt: time.Now().UTC(),
	}
}

func newService(cfg *config.Config, store *memStore, fetchers []fetcher.Fetcher, notifier *captureNotifier) *Service {
	m := matcher.New(store, store, matcher.Options{
		Threshold: cfg.Alerting.DealThreshold,
		Limit:     cfg.Alerting.MatchLimit,
	}, zerolog.Nop())
	return New(cfg, nil, fetchers, store, store, m, notifier, zerolog.Nop())
}

func TestScrapePhaseNormalizesAndPersists(t *testing.T) {
	store := newMemStore()
	f := &stubFetcher{
		source: normalizer.SourceRivenMarket,
		listings: []fetcher.RawListing{
			rawListing("rm_1", "s1", "Kronen Prime", "CritChance", 100),
			rawListing("rm_2", "s2", "Kronen Prime", "NotAStat", 100),
		},
	}

	svc := newService(testConfig(), store, []fetcher.Fetcher{f}, nil)
	svc.scrapePhase(context.Background())

	if len(store.listings) != 1 {
		t.Fatalf("unmapped listing must be dropped, got %d persisted", len(store.listings))
	}
	got := store.listings[0]
	if got.Weapon != "kronen_prime" || got.Stat1 != "crit_chance" {
		t.Fatalf("listing not normalized before persist: %+v", got)
	}
}

func TestScrapePhaseSourceFailureIsolated(t *testing.T) {
	store := newMemStore()
	failing := &stubFetcher{source: normalizer.SourceRivenMarket, err: errors.New("network down")}
	healthy := &stubFetcher{
		source:   normalizer.SourceWarframeMarket,
		listings: []fetcher.RawListing{{ID: "wm_1", Seller: "s", Source: normalizer.SourceWarframeMarket, Weapon: "lex", Stat1: "critical_chance", Price: 50, ScrapedAt: time.Now()}},
	}

	svc := newService(testConfig(), store, []fetcher.Fetcher{failing, healthy}, nil)
	svc.scrapePhase(context.Background())

	if len(store.listings) != 1 {
		t.Fatalf("healthy source must still persist, got %d listings", len(store.listings))
	}
}

func TestShouldAggregateOncePerDay(t *testing.T) {
	svc := newService(testConfig(), newMemStore(), nil, nil)

	atFour := time.Date(2026, 8, 30, 4, 10, 0, 0, time.UTC)
	if !svc.shouldAggregate(atFour) {
		t.Fatal("first tick in the aggregation hour should aggregate")
	}
	if svc.shouldAggregate(atFour.Add(time.Minute)) {
		t.Fatal("second tick the same day must not aggregate again")
	}
	if svc.shouldAggregate(time.Date(2026, 8, 30, 5, 0, 0, 0, time.UTC)) {
		t.Fatal("outside the aggregation hour must not aggregate")
	}
	if !svc.shouldAggregate(time.Date(2026, 8, 31, 4, 0, 0, 0, time.UTC)) {
		t.Fatal("next day in the aggregation hour should aggregate")
	}
}

func TestPipelineEndToEnd(t *testing.T) {
	store := newMemStore()
	notifier := &captureNotifier{}

	// Six sellers of the same profile: five at 100, one at 500.
	raw := []fetcher.RawListing{
		rawListing("rm_1", "s1", "Soma Prime", "CritChance", 100),
		rawListing("rm_2", "s2", "Soma Prime", "CritChance", 100),
		rawListing("rm_3", "s3", "Soma Prime", "CritChance", 100),
		rawListing("rm_4", "s4", "Soma Prime", "CritChance", 100),
		rawListing("rm_5", "s5", "Soma Prime", "CritChance", 100),
		rawListing("rm_6", "s6", "Soma Prime", "CritChance", 500),
	}
	f := &stubFetcher{source: normalizer.SourceRivenMarket, listings: raw}

	svc := newService(testConfig(), store, []fetcher.Fetcher{f}, notifier)
	ctx := context.Background()

	svc.scrapePhase(ctx)
	if err := svc.Aggregate(ctx); err != nil {
		t.Fatalf("aggregate failed: %v", err)
	}

	if len(store.godrolls) != 1 {
		t.Fatalf("expected 1 godroll, got %d", len(store.godrolls))
	}
	g := store.godrolls[0]
	if !g.MedianPrice.Equal(decimal.NewFromInt(100)) || g.SampleCount != 6 {
		t.Fatalf("baseline wrong: median %s count %d", g.MedianPrice, g.SampleCount)
	}

	// A new listing at 55 (<= 60% of 100) should surface as a deal.
	f.listings = []fetcher.RawListing{rawListing("rm_7", "s7", "Soma Prime", "CritChance", 55)}
	svc.scrapePhase(ctx)
	svc.matchPhase(ctx)

	if len(notifier.deals) != 1 {
		t.Fatalf("expected 1 deal, got %d", len(notifier.deals))
	}
	deal := notifier.deals[0]
	if deal.Listing.ID != "rm_7" {
		t.Fatalf("wrong deal listing: %+v", deal.Listing)
	}
	if !deal.DiscountPct.Equal(decimal.NewFromInt(45)) {
		t.Fatalf("discount = %s, want 45", deal.DiscountPct)
	}

	// The same listing must never be alerted again.
	svc.matchPhase(ctx)
	if len(notifier.deals) != 1 {
		t.Fatalf("deal alerted twice: %d notifications", len(notifier.deals))
	}
}
