// Package service orchestrates the poll pipeline: scrape, normalize, persist,
// daily aggregation, deal matching, and alert dispatch.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/jb49088/riven-sniper/internal/aggregator"
	"github.com/jb49088/riven-sniper/internal/alerting"
	"github.com/jb49088/riven-sniper/internal/config"
	"github.com/jb49088/riven-sniper/internal/fetcher"
	"github.com/jb49088/riven-sniper/internal/matcher"
	"github.com/jb49088/riven-sniper/internal/normalizer"
	"github.com/jb49088/riven-sniper/internal/scheduler"
	"github.com/jb49088/riven-sniper/internal/storage"
)

// Service runs one scrape -> aggregate -> match cycle per tick. Each phase is
// isolated: a failed scrape never blocks matching against data already stored.
type Service struct {
	scheduler *scheduler.Scheduler
	fetchers  []fetcher.Fetcher
	listings  storage.ListingStore
	godrolls  storage.GodrollStore
	matcher   *matcher.Matcher
	notifier  alerting.Notifier
	logger    zerolog.Logger

	aggOpts       aggregator.Options
	aggregateHour int
	lastAggregate string
	locker        storage.AdvisoryLocker
	lockKey       int64
	alertsOn      bool
}

// New constructs the pipeline service.
func New(cfg *config.Config, sched *scheduler.Scheduler, fetchers []fetcher.Fetcher, listings storage.ListingStore, godrolls storage.GodrollStore, m *matcher.Matcher, notifier alerting.Notifier, logger zerolog.Logger) *Service {
	var locker storage.AdvisoryLocker
	if l, ok := listings.(storage.AdvisoryLocker); ok {
		locker = l
	}

	return &Service{
		scheduler: sched,
		fetchers:  fetchers,
		listings:  listings,
		godrolls:  godrolls,
		matcher:   m,
		notifier:  notifier,
		logger:    logger.With().Str("component", "service").Logger(),
		aggOpts: aggregator.Options{
			MaxPrice:        cfg.Aggregation.MaxPrice,
			SampleThreshold: cfg.Aggregation.SampleThreshold,
			GodrollCount:    cfg.Aggregation.GodrollCount,
		},
		aggregateHour: cfg.Aggregation.Hour,
		locker:        locker,
		lockKey:       cfg.Scheduler.AdvisoryLockKey,
		alertsOn:      cfg.Alerting.Enabled,
	}
}

// Run begins the jittered poll loop.
func (s *Service) Run(ctx context.Context) error {
	if s.scheduler == nil {
		return fmt.Errorf("scheduler not configured")
	}
	return s.scheduler.Run(ctx, s.RunCycle)
}

// RunCycle 执行一次完整的管线循环。Phase failures are logged and isolated so
// the remaining phases still run against whatever data is durable.
func (s *Service) RunCycle(ctx context.Context, started time.Time) error {
	s.scrapePhase(ctx)

	if s.shouldAggregate(started) {
		if err := s.Aggregate(ctx); err != nil {
			s.logger.Error().Err(err).Msg("aggregation phase failed")
		}
	}

	s.matchPhase(ctx)
	return nil
}

func (s *Service) scrapePhase(ctx context.Context) {
	for _, f := range s.fetchers {
		source := f.Source()

		raw, err := f.Fetch(ctx)
		if err != nil {
			// Source failures are isolated; the other source still runs.
			s.logger.Error().Err(err).Str("source", string(source)).Msg("failed to poll source")
			continue
		}

		normalized := s.normalizeListings(raw)
		if len(normalized) == 0 {
			continue
		}

		inserted, err := s.listings.UpsertListings(ctx, normalized)
		if err != nil {
			s.logger.Error().Err(err).Str("source", string(source)).Msg("failed to persist listings")
			continue
		}

		s.logger.Info().
			Str("source", string(source)).
			Int("scraped", len(raw)).
			Int64("new", inserted).
			Msg("source polled")
	}
}

// normalizeListings maps raw tokens through the source dictionaries. A
// listing with any unmapped stat is dropped and logged, never persisted
// half-normalized.
func (s *Service) normalizeListings(raw []fetcher.RawListing) []storage.Listing {
	normalized := make([]storage.Listing, 0, len(raw))
	skipped := 0

	for _, r := range raw {
		key, err := normalizer.Normalize(r.Weapon, r.Stat1, r.Stat2, r.Stat3, r.Stat4, r.Source)
		if err != nil {
			skipped++
			s.logger.Warn().
				Str("listing_id", r.ID).
				Str("weapon", r.Weapon).
				Strs("stats", []string{r.Stat1, r.Stat2, r.Stat3, r.Stat4}).
				Err(err).
				Msg("skipping listing with unmapped stats")
			continue
		}

		normalized = append(normalized, storage.Listing{
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

	if skipped > 0 {
		s.logger.Info().Int("skipped", skipped).Msg("dropped listings with unmapped stats")
	}
	return normalized
}

// shouldAggregate gates the rebuild to once per calendar day during the
// configured hour. The gate lives here, not in the aggregator: Aggregate
// itself stays safe to call any number of times.
func (s *Service) shouldAggregate(now time.Time) bool {
	if now.Hour() != s.aggregateHour {
		return false
	}
	today := now.Format(time.DateOnly)
	if s.lastAggregate == today {
		return false
	}
	s.lastAggregate = today
	return true
}

// Aggregate rebuilds the godroll baselines from all stored listings and
// atomically replaces the persisted set.
func (s *Service) Aggregate(ctx context.Context) error {
	unlock, proceed, err := s.acquireLock(ctx)
	if err != nil {
		return err
	}
	if !proceed {
		s.logger.Debug().Msg("skip aggregation because advisory lock held elsewhere")
		return nil
	}
	if unlock != nil {
		defer unlock()
	}

	listings, err := s.listings.ListListings(ctx)
	if err != nil {
		return fmt.Errorf("load listings: %w", err)
	}

	godrolls := aggregator.Aggregate(listings, s.aggOpts)

	if err := s.godrolls.ReplaceGodrolls(ctx, godrolls); err != nil {
		return fmt.Errorf("replace godrolls: %w", err)
	}

	weapons := make(map[string]struct{}, len(godrolls))
	for _, g := range godrolls {
		weapons[g.Weapon] = struct{}{}
	}
	s.logger.Info().
		Int("godrolls", len(godrolls)).
		Int("weapons", len(weapons)).
		Int("listings", len(listings)).
		Msg("godrolls rebuilt")
	return nil
}

func (s *Service) matchPhase(ctx context.Context) {
	if !s.alertsOn || s.matcher == nil {
		return
	}

	deals, err := s.matcher.FindDeals(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("deal matching failed")
		return
	}
	if len(deals) == 0 {
		return
	}

	for _, deal := range deals {
		s.logger.Info().
			Str("listing_id", deal.Listing.ID).
			Str("weapon", deal.Listing.Weapon).
			Int64("price", deal.Listing.Price).
			Str("median", deal.Godroll.MedianPrice.String()).
			Str("discount_pct", deal.DiscountPct.StringFixed(1)).
			Msg("deal found")

		if s.notifier == nil {
			continue
		}
		// The id is already marked alerted, so a delivery failure is
		// logged and not retried.
		if err := s.notifier.Notify(ctx, deal); err != nil {
			s.logger.Error().Err(err).Str("listing_id", deal.Listing.ID).Msg("failed to dispatch alert")
		}
	}

	s.logger.Info().Int("deals", len(deals)).Msg("match phase complete")
}

func (s *Service) acquireLock(ctx context.Context) (func(), bool, error) {
	if s.lockKey == 0 || s.locker == nil {
		return nil, true, nil
	}
	unlock, acquired, err := s.locker.TryAdvisoryLock(ctx, s.lockKey)
	if err != nil {
		return nil, false, fmt.Errorf("acquire advisory lock: %w", err)
	}
	if !acquired {
		return nil, false, nil
	}
	return unlock, true, nil
}
