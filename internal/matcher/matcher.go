// Package matcher detects live listings priced far enough below their
// profile's godroll baseline and makes sure each listing is alerted at most
// once.
package matcher

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jb49088/riven-sniper/internal/storage"
)

var oneHundred = decimal.NewFromInt(100)

// Deal is a live listing that undercuts its baseline. It lives only for one
// matcher run; the alerted marker is the only durable trace.
type Deal struct {
	Listing     storage.Listing
	Godroll     storage.Godroll
	DiscountPct decimal.Decimal
}

// Options tune deal matching.
type Options struct {
	// Threshold is the max price/median ratio that qualifies as a deal.
	Threshold float64
	// Limit caps how many recent listings are examined per godroll.
	Limit int
}

// Matcher compares live listings against the current godroll set.
type Matcher struct {
	godrolls  storage.GodrollStore
	alerts    storage.AlertStore
	threshold decimal.Decimal
	limit     int
	logger    zerolog.Logger
}

// New constructs a Matcher.
func New(godrolls storage.GodrollStore, alerts storage.AlertStore, opts Options, logger zerolog.Logger) *Matcher {
	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}
	return &Matcher{
		godrolls:  godrolls,
		alerts:    alerts,
		threshold: decimal.NewFromFloat(opts.Threshold),
		limit:     limit,
		logger:    logger.With().Str("component", "matcher").Logger(),
	}
}

// FindDeals returns listings priced at or below threshold x median for any
// current godroll, excluding listings alerted before. Every returned deal's
// listing id is durably marked alerted before FindDeals returns, so a deal is
// surfaced at most once even if downstream delivery fails.
func (m *Matcher) FindDeals(ctx context.Context) ([]Deal, error) {
	godrolls, err := m.godrolls.ListGodrolls(ctx)
	if err != nil {
		return nil, fmt.Errorf("load godrolls: %w", err)
	}
	if len(godrolls) == 0 {
		return nil, nil
	}

	alerted, err := m.alerts.AlertedIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("load alerted ids: %w", err)
	}

	deals := make([]Deal, 0)
	newIDs := make([]string, 0)

	for _, g := range godrolls {
		ceiling := g.MedianPrice.Mul(m.threshold)
		listings, err := m.godrolls.RecentListingsBelow(ctx, g.ProfileKey(), ceiling, m.limit)
		if err != nil {
			return nil, fmt.Errorf("query cheap listings: %w", err)
		}

		for _, l := range listings {
			if _, seen := alerted[l.ID]; seen {
				continue
			}
			alerted[l.ID] = struct{}{}
			newIDs = append(newIDs, l.ID)

			price := decimal.NewFromInt(l.Price)
			discount := g.MedianPrice.Sub(price).Div(g.MedianPrice).Mul(oneHundred)

			deals = append(deals, Deal{Listing: l, Godroll: g, DiscountPct: discount})

			m.logger.Debug().
				Str("listing_id", l.ID).
				Str("weapon", l.Weapon).
				Int64("price", l.Price).
				Str("median", g.MedianPrice.String()).
				Str("discount_pct", discount.StringFixed(1)).
				Msg("deal candidate")
		}
	}

	// Mark before returning: if marking fails no deal is surfaced, so the
	// same listing can never be alerted twice.
	if err := m.alerts.MarkAlerted(ctx, newIDs); err != nil {
		return nil, fmt.Errorf("mark alerted: %w", err)
	}

	return deals, nil
}
