// Package normalizer maps source-specific weapon and stat tokens to a
// canonical vocabulary and derives the profile key that identifies a riven
// variant independently of where it was scraped.
package normalizer

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Source identifies a marketplace.
type Source string

const (
	SourceRivenMarket    Source = "riven.market"
	SourceWarframeMarket Source = "warframe.market"
)

var (
	// ErrUnmappedStat indicates a non-empty stat token with no entry in its
	// source's dictionary. The whole observation must be dropped.
	ErrUnmappedStat = errors.New("normalizer: unmapped stat token")
	// ErrUnknownSource indicates a source with no dictionary.
	ErrUnknownSource = errors.New("normalizer: unknown source")
)

// ProfileKey is the canonical identity of a riven variant: weapon plus the
// sorted multiset of positive stats plus the negative stat. Two listings with
// the same key are the same variant regardless of source or stat order.
type ProfileKey struct {
	Weapon string
	Stat1  string
	Stat2  string
	Stat3  string
	Stat4  string
}

// Stats returns the four stat slots in slot order.
func (k ProfileKey) Stats() [4]string {
	return [4]string{k.Stat1, k.Stat2, k.Stat3, k.Stat4}
}

var weaponReplacer = strings.NewReplacer(" ", "_", "-", "_")

// NormalizeWeapon canonicalises a weapon name: lower-case, spaces and hyphens
// replaced with underscores. Purely syntactic; empty input yields empty output.
func NormalizeWeapon(name string) string {
	return weaponReplacer.Replace(strings.ToLower(name))
}

// Normalize maps the given weapon and stat tokens into a ProfileKey.
// Positive stats (slots 1-3) are mapped through the source dictionary, sorted
// ascending by canonical name, and right-padded with empty strings to three
// slots. The negative stat (slot 4) is mapped but never reordered. Any
// non-empty token absent from the source dictionary fails the whole
// observation with ErrUnmappedStat.
func Normalize(weapon, stat1, stat2, stat3, stat4 string, source Source) (ProfileKey, error) {
	dict, err := dictionaryFor(source)
	if err != nil {
		return ProfileKey{}, err
	}

	positives := make([]string, 0, 3)
	for _, tok := range []string{stat1, stat2, stat3} {
		if tok == "" {
			continue
		}
		canonical, ok := dict[tok]
		if !ok {
			return ProfileKey{}, fmt.Errorf("%w: %q (%s)", ErrUnmappedStat, tok, source)
		}
		positives = append(positives, canonical)
	}

	negative := ""
	if stat4 != "" {
		canonical, ok := dict[stat4]
		if !ok {
			return ProfileKey{}, fmt.Errorf("%w: %q (%s)", ErrUnmappedStat, stat4, source)
		}
		negative = canonical
	}

	sort.Strings(positives)
	for len(positives) < 3 {
		positives = append(positives, "")
	}

	return ProfileKey{
		Weapon: NormalizeWeapon(weapon),
		Stat1:  positives[0],
		Stat2:  positives[1],
		Stat3:  positives[2],
		Stat4:  negative,
	}, nil
}

func dictionaryFor(source Source) (map[string]string, error) {
	switch source {
	case SourceRivenMarket:
		return rivenMarketToCanonical, nil
	case SourceWarframeMarket:
		return warframeMarketToCanonical, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSource, source)
	}
}
