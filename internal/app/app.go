package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/jb49088/riven-sniper/internal/alerting"
	"github.com/jb49088/riven-sniper/internal/config"
	"github.com/jb49088/riven-sniper/internal/fetcher"
	"github.com/jb49088/riven-sniper/internal/matcher"
	"github.com/jb49088/riven-sniper/internal/scheduler"
	"github.com/jb49088/riven-sniper/internal/service"
	"github.com/jb49088/riven-sniper/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newFetchers() []fetcher.Fetcher {
	fetchers := make([]fetcher.Fetcher, 0, 2)

	if a.Config.Sources.RivenMarket.Enabled {
		fetchers = append(fetchers, a.newRivenMarket())
	}
	if a.Config.Sources.WarframeMarket.Enabled {
		cfg := a.Config.Sources.WarframeMarket
		fetchers = append(fetchers, fetcher.NewWarframeMarket(fetcher.WarframeMarketOptions{
			BaseURL:   cfg.BaseURL,
			Timeout:   cfg.RequestTimeout,
			UserAgent: cfg.UserAgent,
		}, a.Logger))
	}

	return fetchers
}

func (a *App) newRivenMarket() *fetcher.RivenMarket {
	cfg := a.Config.Sources.RivenMarket
	return fetcher.NewRivenMarket(fetcher.RivenMarketOptions{
		BaseURL:   cfg.BaseURL,
		Platform:  cfg.Platform,
		PageLimit: cfg.PageLimit,
		Timeout:   cfg.RequestTimeout,
		UserAgent: cfg.UserAgent,
	}, a.Logger)
}

func (a *App) newNotifier() alerting.Notifier {
	notifiers := make([]alerting.Notifier, 0, 2)

	if a.Config.Alerting.Pushover.Enabled {
		cfg := a.Config.Alerting.Pushover
		notifiers = append(notifiers, alerting.NewPushoverNotifier(cfg.AppToken, cfg.UserKey, cfg.APIBase, 10*time.Second, a.Logger))
	}
	if a.Config.Alerting.Telegram.Enabled {
		cfg := a.Config.Alerting.Telegram
		notifiers = append(notifiers, alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, 10*time.Second, a.Logger))
	}

	switch len(notifiers) {
	case 0:
		return nil
	case 1:
		return notifiers[0]
	default:
		return alerting.NewMultiNotifier(notifiers, a.Logger)
	}
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	if err := store.EnsureSchema(ctx); err != nil {
		store.Close()
		return nil, nil, err
	}

	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

// Run executes the long-running sniper service.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database.dsn not configured; the pipeline needs persistence")
	}
	defer closeStore()

	sched := scheduler.New(scheduler.Options{
		Interval:     a.Config.Scheduler.Interval,
		Jitter:       a.Config.Scheduler.Jitter,
		StartupDelay: a.Config.Scheduler.StartupDelay,
	}, a.Logger)

	fetchers := a.newFetchers()
	if len(fetchers) == 0 {
		return errors.New("no marketplace sources enabled")
	}

	notifier := a.newNotifier()
	if a.Config.Alerting.Enabled && notifier == nil {
		a.Logger.Warn().Msg("alerting enabled but no channel configured; deals will only be logged")
	}

	m := matcher.New(store, store, matcher.Options{
		Threshold: a.Config.Alerting.DealThreshold,
		Limit:     a.Config.Alerting.MatchLimit,
	}, a.Logger)

	svc := service.New(a.Config, sched, fetchers, store, store, m, notifier, a.Logger)

	a.Logger.Info().Msg("starting sniper service")
	err = svc.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("service terminated with error")
		return err
	}

	a.Logger.Info().Msg("sniper service stopped")
	return nil
}

// Aggregate runs a single godroll rebuild outside the poll loop.
func (a *App) Aggregate(ctx context.Context) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot aggregate")
	}
	defer closeStore()

	svc := service.New(a.Config, nil, nil, store, store, nil, nil, a.Logger)
	return svc.Aggregate(ctx)
}

// ExportOptions hold parameters for exporting godrolls and price history.
type ExportOptions struct {
	Weapon    string
	PNGPath   string
	CSVPath   string
	MaxPoints int
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit int
}

// ScrapeOptions configure the historical full scrape.
type ScrapeOptions struct {
	MaxPages int
	Delay    time.Duration
}
