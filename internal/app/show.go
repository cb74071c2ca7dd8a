package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/jb49088/riven-sniper/internal/alerting"
)

// Show prints the current godroll baselines.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot show godrolls")
	}
	defer closeStore()

	godrolls, err := store.ListGodrolls(ctx)
	if err != nil {
		return err
	}
	if opts.Limit > 0 && len(godrolls) > opts.Limit {
		godrolls = godrolls[:opts.Limit]
	}
	if len(godrolls) == 0 {
		fmt.Fprintln(os.Stdout, "no godrolls found; run the aggregate command first")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Weapon\tStats\tMedian\tSamples\tPercentile")

	for _, g := range godrolls {
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%d\t%.1f\n",
			g.Weapon,
			alerting.FormatStats(g.ProfileKey().Stats()),
			g.MedianPrice.StringFixed(1),
			g.SampleCount,
			g.SamplePercentile,
		)
	}

	writer.Flush()
	return nil
}
