package app

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jb49088/riven-sniper/internal/matcher"
	"github.com/jb49088/riven-sniper/internal/normalizer"
	"github.com/jb49088/riven-sniper/internal/storage"
)

// SimulateAlert 通过给定的武器与价格模拟一次完整的告警投递。
func (a *App) SimulateAlert(ctx context.Context, weapon string, price, median int64) error {
	if !a.Config.Alerting.Enabled {
		return errors.New("alerting 未启用")
	}
	if price <= 0 || median <= 0 {
		return errors.New("price 与 median 必须为正数")
	}

	notifier := a.newNotifier()
	if notifier == nil {
		return errors.New("未配置任何告警通道")
	}

	medianPrice := decimal.NewFromInt(median)
	discount := medianPrice.
		Sub(decimal.NewFromInt(price)).
		Div(medianPrice).
		Mul(decimal.NewFromInt(100))

	deal := matcher.Deal{
		Listing: storage.Listing{
			ID:        "sim_1",
			Seller:    "simulated_seller",
			Source:    normalizer.SourceRivenMarket,
			Weapon:    normalizer.NormalizeWeapon(weapon),
			Stat1:     "crit_chance",
			Stat2:     "crit_damage",
			Stat3:     "damage",
			Price:     price,
			ScrapedAt: time.Now().UTC(),
		},
		Godroll: storage.Godroll{
			Weapon:           normalizer.NormalizeWeapon(weapon),
			Stat1:            "crit_chance",
			Stat2:            "crit_damage",
			Stat3:            "damage",
			MedianPrice:      medianPrice,
			SampleCount:      100,
			SamplePercentile: 99.0,
		},
		DiscountPct: discount,
	}

	return notifier.Notify(ctx, deal)
}
