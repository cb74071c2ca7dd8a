package alerting

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/jb49088/riven-sniper/internal/matcher"
)

// Notifier 定义告警输送接口。
type Notifier interface {
	Notify(ctx context.Context, deal matcher.Deal) error
}

// MultiNotifier fans a deal out to every configured channel. A single channel
// failure does not prevent delivery to the remaining channels.
type MultiNotifier struct {
	notifiers []Notifier
	logger    zerolog.Logger
}

// NewMultiNotifier constructs a fan-out notifier.
func NewMultiNotifier(notifiers []Notifier, logger zerolog.Logger) *MultiNotifier {
	return &MultiNotifier{
		notifiers: notifiers,
		logger:    logger.With().Str("component", "alert_multi").Logger(),
	}
}

// Notify dispatches to all channels and returns a combined error if any failed.
func (m *MultiNotifier) Notify(ctx context.Context, deal matcher.Deal) error {
	var errs []string
	for _, n := range m.notifiers {
		if err := n.Notify(ctx, deal); err != nil {
			m.logger.Error().Err(err).Str("listing_id", deal.Listing.ID).Msg("channel delivery failed")
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("notify: %d channel(s) failed: %s", len(errs), strings.Join(errs, "; "))
	}
	return nil
}

var _ Notifier = (*MultiNotifier)(nil)
