package fetcher

import (
	"context"
	"time"

	"github.com/jb49088/riven-sniper/internal/normalizer"
)

// RawListing is a scraped listing before normalization. Weapon and stat
// tokens still carry the source's spelling.
type RawListing struct {
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

// Fetcher retrieves the most recent listings from one marketplace.
type Fetcher interface {
	Source() normalizer.Source
	Fetch(ctx context.Context) ([]RawListing, error)
}
