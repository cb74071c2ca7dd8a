package storage

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jb49088/riven-sniper/internal/normalizer"
)

// Listing is a persisted, normalized marketplace observation.
type Listing struct {
	ID        string
	Seller    string
	Source    normalizer.Source
	Weapon    string
	Stat1     string
	Stat2     string
	Stat3     string
	Stat4     string
	Price     int64
	ScrapedAt time.Time
}

// ProfileKey returns the canonical identity of the listing.
func (l Listing) ProfileKey() normalizer.ProfileKey {
	return normalizer.ProfileKey{
		Weapon: l.Weapon,
		Stat1:  l.Stat1,
		Stat2:  l.Stat2,
		Stat3:  l.Stat3,
		Stat4:  l.Stat4,
	}
}

// Godroll is the aggregate fair-value baseline for one profile. The full set
// is rebuilt from scratch on each aggregation run.
type Godroll struct {
	Weapon           string
	Stat1            string
	Stat2            string
	Stat3            string
	Stat4            string
	MedianPrice      decimal.Decimal
	SampleCount      int
	SamplePercentile float64
}

// ProfileKey returns the canonical identity of the godroll.
func (g Godroll) ProfileKey() normalizer.ProfileKey {
	return normalizer.ProfileKey{
		Weapon: g.Weapon,
		Stat1:  g.Stat1,
		Stat2:  g.Stat2,
		Stat3:  g.Stat3,
		Stat4:  g.Stat4,
	}
}
