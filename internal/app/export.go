package app

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"

	"github.com/jb49088/riven-sniper/internal/alerting"
	"github.com/jb49088/riven-sniper/internal/normalizer"
	"github.com/jb49088/riven-sniper/internal/storage"
)

// Export writes the godroll table as CSV and/or a price history chart for one
// weapon as PNG.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}
	if opts.PNGPath != "" && opts.Weapon == "" {
		return errors.New("--png requires --weapon")
	}

	opts.MaxPoints = a.Config.ResolveMaxPoints(opts.MaxPoints)

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot export")
	}
	defer closeStore()

	if opts.CSVPath != "" {
		godrolls, err := store.ListGodrolls(ctx)
		if err != nil {
			return err
		}
		if err := writeGodrollsCSV(opts.CSVPath, godrolls); err != nil {
			return err
		}
		a.Logger.Info().Int("godrolls", len(godrolls)).Str("path", opts.CSVPath).Msg("godrolls exported")
	}

	if opts.PNGPath != "" {
		weapon := normalizer.NormalizeWeapon(opts.Weapon)
		listings, err := store.ListingsForWeapon(ctx, weapon, opts.MaxPoints)
		if err != nil {
			return err
		}
		if len(listings) < 2 {
			return fmt.Errorf("not enough listings for %s to chart", weapon)
		}

		downsampled := downsampleListings(listings, opts.MaxPoints)
		if err := writePricePNG(opts.PNGPath, weapon, downsampled); err != nil {
			return err
		}
		a.Logger.Info().Int("points", len(downsampled)).Str("path", opts.PNGPath).Msg("price history exported")
	}

	return nil
}

func downsampleListings(listings []storage.Listing, max int) []storage.Listing {
	if max <= 0 || len(listings) <= max {
		return listings
	}

	result := make([]storage.Listing, 0, max)
	step := float64(len(listings)-1) / float64(max-1)
	for i := 0; i < max; i++ {
		idx := int(math.Round(step * float64(i)))
		if idx >= len(listings) {
			idx = len(listings) - 1
		}
		result = append(result, listings[idx])
	}
	return result
}

func writeGodrollsCSV(path string, godrolls []storage.Godroll) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"weapon", "stats", "median_price", "sample_count", "sample_percentile"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, g := range godrolls {
		record := []string{
			g.Weapon,
			alerting.FormatStats(g.ProfileKey().Stats()),
			g.MedianPrice.String(),
			fmt.Sprintf("%d", g.SampleCount),
			fmt.Sprintf("%.1f", g.SamplePercentile),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return writer.Error()
}

func writePricePNG(path, weapon string, listings []storage.Listing) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	x := make([]time.Time, len(listings))
	prices := make([]float64, len(listings))
	for i, l := range listings {
		x[i] = l.ScrapedAt
		prices[i] = float64(l.Price)
	}

	priceFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.0f")
	}
	graph := chart.Chart{
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatter,
		},
		YAxis: chart.YAxis{
			Name:           "Price (platinum)",
			ValueFormatter: priceFormatter,
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    weapon,
				XValues: x,
				YValues: prices,
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
