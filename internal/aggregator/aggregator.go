// Package aggregator rebuilds the godroll baselines: per-profile median
// prices, sample-size percentiles within each weapon family, and the top
// priced, best evidenced profiles per weapon.
package aggregator

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/jb49088/riven-sniper/internal/normalizer"
	"github.com/jb49088/riven-sniper/internal/storage"
)

// Options tune filtering and godroll selection.
type Options struct {
	// MaxPrice excludes implausible/troll listings priced at or above it.
	MaxPrice int64
	// SampleThreshold is the minimum sample-count percentile (0-100) a
	// profile needs to qualify as a godroll.
	SampleThreshold float64
	// GodrollCount caps how many godrolls are kept per weapon.
	GodrollCount int
}

type sellerProfile struct {
	seller string
	key    normalizer.ProfileKey
}

// Aggregate computes the full godroll set from raw listings. The whole set is
// recomputed on every call; callers replace the persisted set with the result.
func Aggregate(listings []storage.Listing, opts Options) []storage.Godroll {
	// Per-seller dedup: a seller relisting the same variant counts once, at
	// their lowest asking price.
	bestOffer := make(map[sellerProfile]int64)
	for _, l := range listings {
		if l.Price <= 0 || l.Price >= opts.MaxPrice {
			continue
		}
		sp := sellerProfile{seller: l.Seller, key: l.ProfileKey()}
		if prev, ok := bestOffer[sp]; !ok || l.Price < prev {
			bestOffer[sp] = l.Price
		}
	}

	// Group deduped prices by profile across all sellers and sources.
	samples := make(map[normalizer.ProfileKey][]int64)
	for sp, price := range bestOffer {
		samples[sp.key] = append(samples[sp.key], price)
	}

	// Median and sample count per profile, grouped by weapon.
	byWeapon := make(map[string][]storage.Godroll)
	for key, prices := range samples {
		byWeapon[key.Weapon] = append(byWeapon[key.Weapon], storage.Godroll{
			Weapon:      key.Weapon,
			Stat1:       key.Stat1,
			Stat2:       key.Stat2,
			Stat3:       key.Stat3,
			Stat4:       key.Stat4,
			MedianPrice: median(prices),
			SampleCount: len(prices),
		})
	}

	weapons := make([]string, 0, len(byWeapon))
	for weapon := range byWeapon {
		weapons = append(weapons, weapon)
	}
	sort.Strings(weapons)

	godrolls := make([]storage.Godroll, 0)
	for _, weapon := range weapons {
		profiles := byWeapon[weapon]
		assignPercentiles(profiles)
		godrolls = append(godrolls, selectGodrolls(profiles, opts)...)
	}
	return godrolls
}

// median returns the statistical median: the middle value for odd-sized
// samples, the mean of the two middle values for even-sized ones.
func median(prices []int64) decimal.Decimal {
	sorted := make([]int64, len(prices))
	copy(sorted, prices)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return decimal.NewFromInt(sorted[mid])
	}
	return decimal.NewFromInt(sorted[mid-1] + sorted[mid]).Div(decimal.NewFromInt(2))
}

// assignPercentiles ranks profiles of one weapon by sample count ascending.
// The percentile is the zero-based first-occurrence rank of the profile's
// sample count over the group size, so tied counts share the lower-bound
// rank. A weapon with a single profile gets percentile 0.
func assignPercentiles(profiles []storage.Godroll) {
	counts := make([]int, len(profiles))
	for i, p := range profiles {
		counts[i] = p.SampleCount
	}
	sort.Ints(counts)

	for i := range profiles {
		rank := sort.SearchInts(counts, profiles[i].SampleCount)
		profiles[i].SamplePercentile = float64(rank) / float64(len(counts)) * 100
	}
}

// selectGodrolls keeps profiles at or above the sample threshold, ordered by
// median price descending, capped at GodrollCount.
func selectGodrolls(profiles []storage.Godroll, opts Options) []storage.Godroll {
	kept := make([]storage.Godroll, 0, len(profiles))
	for _, p := range profiles {
		if p.SamplePercentile >= opts.SampleThreshold {
			kept = append(kept, p)
		}
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].MedianPrice.GreaterThan(kept[j].MedianPrice)
	})

	if len(kept) > opts.GodrollCount {
		kept = kept[:opts.GodrollCount]
	}
	return kept
}
