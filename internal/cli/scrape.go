package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jb49088/riven-sniper/internal/app"
)

var (
	scrapeMaxPages int
	scrapeDelay    time.Duration
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Scrape every riven.market page into the database",
	RunE: func(cmd *cobra.Command, args []string) error {
		if scrapeMaxPages < 0 {
			return fmt.Errorf("--max-pages must not be negative")
		}

		opts := app.ScrapeOptions{
			MaxPages: scrapeMaxPages,
			Delay:    scrapeDelay,
		}

		return getApp().Scrape(cmd.Context(), opts)
	},
}

func init() {
	scrapeCmd.Flags().IntVar(&scrapeMaxPages, "max-pages", 0, "Stop after this many pages (0 means all)")
	scrapeCmd.Flags().DurationVar(&scrapeDelay, "delay", time.Second, "Pause between page requests")
}
