package scheduler

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog"
)

// TickFunc is invoked on every poll cycle.
type TickFunc func(ctx context.Context, started time.Time) error

// Options tune scheduler behaviour.
type Options struct {
	Interval     time.Duration
	Jitter       time.Duration
	StartupDelay time.Duration
}

// Scheduler drives the poll loop at a fixed interval with random jitter so
// the scrape cadence does not look mechanical to the marketplaces.
type Scheduler struct {
	opts   Options
	logger zerolog.Logger
}

// New constructs a Scheduler instance.
func New(opts Options, logger zerolog.Logger) *Scheduler {
	if opts.Interval <= 0 {
		panic("scheduler interval must be positive")
	}
	return &Scheduler{opts: opts, logger: logger.With().Str("component", "scheduler").Logger()}
}

// Run blocks, invoking the tick function each cycle until ctx is cancelled.
// Tick duration is subtracted from the sleep so cycles stay on cadence; a
// tick that overruns the interval is followed immediately by the next one.
func (s *Scheduler) Run(ctx context.Context, tick TickFunc) error {
	if s.opts.StartupDelay > 0 {
		timer := time.NewTimer(s.opts.StartupDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	cycle := 0
	for {
		cycle++
		started := time.Now().UTC()
		s.logger.Info().Int("cycle", cycle).Msg("executing poll cycle")

		if err := tick(ctx, started); err != nil {
			s.logger.Error().Err(err).Int("cycle", cycle).Msg("poll cycle failed")
		}

		elapsed := time.Since(started)
		delay := s.opts.Interval + s.jitter() - elapsed
		if delay <= 0 {
			s.logger.Warn().
				Dur("elapsed", elapsed).
				Dur("interval", s.opts.Interval).
				Msg("poll cycle exceeded interval")
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			continue
		}

		s.logger.Debug().Dur("elapsed", elapsed).Time("next", time.Now().Add(delay)).Msg("waiting for next cycle")

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
			timer.Stop()
		}
	}
}

// jitter returns a random offset in [-Jitter, +Jitter].
func (s *Scheduler) jitter() time.Duration {
	if s.opts.Jitter <= 0 {
		return 0
	}
	spread := int64(2 * s.opts.Jitter)
	return time.Duration(rand.Int64N(spread)) - s.opts.Jitter
}
