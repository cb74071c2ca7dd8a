package matcher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jb49088/riven-sniper/internal/normalizer"
	"github.com/jb49088/riven-sniper/internal/storage"
)

// fakeStore implements storage.GodrollStore and storage.AlertStore in memory.
type fakeStore struct {
	godrolls    []storage.Godroll
	listings    []storage.Listing
	alerted     map[string]struct{}
	failMarking bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{alerted: make(map[string]struct{})}
}

func (f *fakeStore) ListGodrolls(ctx context.Context) ([]storage.Godroll, error) {
	return f.godrolls, nil
}

func (f *fakeStore) ReplaceGodrolls(ctx context.Context, godrolls []storage.Godroll) error {
	f.godrolls = godrolls
	return nil
}

func (f *fakeStore) RecentListingsBelow(ctx context.Context, key normalizer.ProfileKey, maxPrice decimal.Decimal, limit int) ([]storage.Listing, error) {
	matched := make([]storage.Listing, 0)
	for _, l := range f.listings {
		if l.ProfileKey() != key {
			continue
		}
		price := decimal.NewFromInt(l.Price)
		if l.Price > 0 && price.LessThanOrEqual(maxPrice) {
			matched = append(matched, l)
		}
		if len(matched) == limit {
			break
		}
	}
	return matched, nil
}

func (f *fakeStore) AlertedIDs(ctx context.Context) (map[string]struct{}, error) {
	ids := make(map[string]struct{}, len(f.alerted))
	for id := range f.alerted {
		ids[id] = struct{}{}
	}
	return ids, nil
}

func (f *fakeStore) MarkAlerted(ctx context.Context, ids []string) error {
	if f.failMarking {
		return errors.New("marker store down")
	}
	for _, id := range ids {
		f.alerted[id] = struct{}{}
	}
	return nil
}

var _ storage.GodrollStore = (*fakeStore)(nil)
var _ storage.AlertStore = (*fakeStore)(nil)

func godroll(weapon, stat1 string, median int64, count int, percentile float64) storage.Godroll {
	return storage.Godroll{
		Weapon:           weapon,
		Stat1:            stat1,
		MedianPrice:      decimal.NewFromInt(median),
		SampleCount:      count,
		SamplePercentile: percentile,
	}
}

func cheapListing(id, weapon, stat1 string, price int64) storage.Listing {
	return storage.Listing{
		ID:        id,
		Seller:    "seller",
		Source:    normalizer.SourceRivenMarket,
		Weapon:    weapon,
		Stat1:     stat1,
		Price:     price,
		ScrapedAt: time.Now(),
	}
}

func newMatcher(store *fakeStore, threshold float64) *Matcher {
	return New(store, store, Options{Threshold: threshold, Limit: 10}, zerolog.Nop())
}

func TestFindDealsDiscount(t *testing.T) {
	store := newFakeStore()
	store.godrolls = []storage.Godroll{godroll("soma", "crit_chance", 100, 6, 80)}
	store.listings = []storage.Listing{cheapListing("rm_1", "soma", "crit_chance", 55)}

	deals, err := newMatcher(store, 0.60).FindDeals(context.Background())
	if err != nil {
		t.Fatalf("FindDeals failed: %v", err)
	}
	if len(deals) != 1 {
		t.Fatalf("expected 1 deal, got %d", len(deals))
	}
	if !deals[0].DiscountPct.Equal(decimal.NewFromInt(45)) {
		t.Fatalf("discount = %s, want 45", deals[0].DiscountPct)
	}
	if _, ok := store.alerted["rm_1"]; !ok {
		t.Fatal("deal id must be marked alerted before FindDeals returns")
	}
}

func TestFindDealsThresholdBoundary(t *testing.T) {
	store := newFakeStore()
	store.godrolls = []storage.Godroll{godroll("soma", "crit_chance", 100, 6, 80)}
	store.listings = []storage.Listing{
		cheapListing("at", "soma", "crit_chance", 60),    // exactly 60% of median
		cheapListing("above", "soma", "crit_chance", 61), // just above
	}

	deals, err := newMatcher(store, 0.60).FindDeals(context.Background())
	if err != nil {
		t.Fatalf("FindDeals failed: %v", err)
	}
	if len(deals) != 1 || deals[0].Listing.ID != "at" {
		t.Fatalf("only the listing at exactly threshold x median qualifies, got %+v", deals)
	}
}

func TestFindDealsNeverRepeats(t *testing.T) {
	store := newFakeStore()
	store.godrolls = []storage.Godroll{godroll("soma", "crit_chance", 100, 6, 80)}
	store.listings = []storage.Listing{cheapListing("rm_1", "soma", "crit_chance", 40)}

	m := newMatcher(store, 0.60)

	first, err := m.FindDeals(context.Background())
	if err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	if len(first) != 1 {
		t.Fatalf("expected 1 deal on first run, got %d", len(first))
	}

	// The listing still satisfies the threshold but was already alerted.
	second, err := m.FindDeals(context.Background())
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if len(second) != 0 {
		t.Fatalf("expected no deals on second run, got %d", len(second))
	}
}

func TestFindDealsMarkerFailureSurfacesNothing(t *testing.T) {
	store := newFakeStore()
	store.godrolls = []storage.Godroll{godroll("soma", "crit_chance", 100, 6, 80)}
	store.listings = []storage.Listing{cheapListing("rm_1", "soma", "crit_chance", 40)}
	store.failMarking = true

	deals, err := newMatcher(store, 0.60).FindDeals(context.Background())
	if err == nil {
		t.Fatal("expected error when marker store fails")
	}
	if len(deals) != 0 {
		t.Fatalf("no deals may be surfaced when marking fails, got %d", len(deals))
	}
}

func TestFindDealsExactProfileMatchOnly(t *testing.T) {
	store := newFakeStore()
	store.godrolls = []storage.Godroll{godroll("soma", "crit_chance", 100, 6, 80)}
	store.listings = []storage.Listing{
		cheapListing("other-stat", "soma", "multishot", 10),
		cheapListing("other-weapon", "lex", "crit_chance", 10),
	}

	deals, err := newMatcher(store, 0.60).FindDeals(context.Background())
	if err != nil {
		t.Fatalf("FindDeals failed: %v", err)
	}
	if len(deals) != 0 {
		t.Fatalf("profile key matching is exact, got %d deals", len(deals))
	}
}

func TestFindDealsZeroPriceExcluded(t *testing.T) {
	store := newFakeStore()
	store.godrolls = []storage.Godroll{godroll("soma", "crit_chance", 100, 6, 80)}
	store.listings = []storage.Listing{cheapListing("free", "soma", "crit_chance", 0)}

	deals, err := newMatcher(store, 0.60).FindDeals(context.Background())
	if err != nil {
		t.Fatalf("FindDeals failed: %v", err)
	}
	if len(deals) != 0 {
		t.Fatalf("zero-priced listings never qualify, got %d", len(deals))
	}
}
