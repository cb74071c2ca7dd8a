package app

import (
	"context"
	"errors"
	"time"

	"github.com/jb49088/riven-sniper/internal/fetcher"
	"github.com/jb49088/riven-sniper/internal/normalizer"
	"github.com/jb49088/riven-sniper/internal/storage"
)

// Scrape walks every riven.market result page and persists the listings.
// The poll loop only sees the newest page, so this is the way to seed the
// database with enough history for a meaningful baseline.
func (a *App) Scrape(ctx context.Context, opts ScrapeOptions) error {
	if !a.Config.Sources.RivenMarket.Enabled {
		return errors.New("sources.riven_market 未启用，无法全量抓取")
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database.dsn 未配置，无法全量抓取")
	}
	defer closeStore()

	rm := a.newRivenMarket()

	total, pages, err := rm.TotalPages(ctx)
	if err != nil {
		return err
	}
	if opts.MaxPages > 0 && pages > opts.MaxPages {
		pages = opts.MaxPages
	}

	delay := opts.Delay
	if delay <= 0 {
		delay = time.Second
	}

	a.Logger.Info().Int("total", total).Int("pages", pages).Msg("starting full scrape")

	var scraped, persisted int64
	for page := 1; page <= pages; page++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		raw, err := rm.FetchPage(ctx, page)
		if err != nil {
			a.Logger.Error().Err(err).Int("page", page).Msg("page fetch failed")
			continue
		}
		scraped += int64(len(raw))

		inserted, err := store.UpsertListings(ctx, a.normalizeRaw(raw))
		if err != nil {
			return err
		}
		persisted += inserted

		a.Logger.Info().
			Int("page", page).
			Int("listings", len(raw)).
			Int64("new", inserted).
			Msg("page scraped")

		if page < pages {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
	}

	a.Logger.Info().Int64("scraped", scraped).Int64("new", persisted).Msg("full scrape finished")
	return nil
}

func (a *App) normalizeRaw(raw []fetcher.RawListing) []storage.Listing {
	listings := make([]storage.Listing, 0, len(raw))
	for _, r := range raw {
		key, err := normalizer.Normalize(r.Weapon, r.Stat1, r.Stat2, r.Stat3, r.Stat4, r.Source)
		if err != nil {
			a.Logger.Warn().Str("listing_id", r.ID).Str("weapon", r.Weapon).Err(err).Msg("skipping listing with unmapped stats")
			continue
		}
		listings = append(listings, storage.Listing{
			ID:        r.ID,
			Seller:    r.Seller,
			Source:    r.Source,
			Weapon:    key.Weapon,
			Stat1:     key.Stat1,
			Stat2:     key.Stat2,
			Stat3:     key.Stat3,
			Stat4:     key.Stat4,
			Price:     r.Price,
			ScrapedAt: r.ScrapedAt,
		})
	}
	return listings
}
