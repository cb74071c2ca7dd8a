package alerting

import (
	"fmt"
	"strings"
	"time"

	"github.com/jb49088/riven-sniper/internal/matcher"
)

// invertedStats flip the sign convention: a numerically negative change is
// desirable (less recoil, shorter reload), so the displayed sign is reversed.
var invertedStats = map[string]struct{}{
	"reload_speed": {},
	"recoil":       {},
}

// FormatStats renders the four stat slots with signs: positives prefixed "+",
// the negative prefixed "-", with inverted stats swapping the convention.
func FormatStats(stats [4]string) string {
	parts := make([]string, 0, 4)

	for _, stat := range stats[:3] {
		if stat == "" {
			continue
		}
		sign := "+"
		if _, inverted := invertedStats[stat]; inverted {
			sign = "-"
		}
		parts = append(parts, sign+stat)
	}

	if negative := stats[3]; negative != "" {
		sign := "-"
		if _, inverted := invertedStats[negative]; inverted {
			sign = "+"
		}
		parts = append(parts, sign+negative)
	}

	return titleCase(strings.ReplaceAll(strings.Join(parts, " "), "_", " "))
}

// RenderDeal builds the alert message body for one deal.
func RenderDeal(deal matcher.Deal) string {
	listing := deal.Listing
	godroll := deal.Godroll

	builder := strings.Builder{}
	builder.WriteString(fmt.Sprintf("Weapon: %s\n", titleCase(strings.ReplaceAll(listing.Weapon, "_", " "))))
	builder.WriteString(fmt.Sprintf("Stats: %s\n", FormatStats(listing.ProfileKey().Stats())))
	builder.WriteString(fmt.Sprintf("Price: %dp\n", listing.Price))
	builder.WriteString(fmt.Sprintf("Median: %sp\n", godroll.MedianPrice.String()))
	builder.WriteString(fmt.Sprintf("Discount: %s%%\n", deal.DiscountPct.StringFixed(1)))
	builder.WriteString(fmt.Sprintf("Sample: %d listings (top %.0f%%)\n", godroll.SampleCount, godroll.SamplePercentile))
	builder.WriteString(fmt.Sprintf("Seller: %s\n", listing.Seller))
	builder.WriteString(fmt.Sprintf("Source: %s\n", listing.Source))
	builder.WriteString(fmt.Sprintf("Scraped: %s", listing.ScrapedAt.UTC().Format(time.DateTime)))
	return builder.String()
}

// titleCase upper-cases the first letter of each space-separated word without
// touching signs or digits elsewhere in the word.
func titleCase(s string) string {
	words := strings.Split(s, " ")
	for i, word := range words {
		for j, r := range word {
			if r >= 'a' && r <= 'z' {
				words[i] = word[:j] + string(r-'a'+'A') + word[j+1:]
				break
			}
			if r >= 'A' && r <= 'Z' {
				break
			}
		}
	}
	return strings.Join(words, " ")
}
