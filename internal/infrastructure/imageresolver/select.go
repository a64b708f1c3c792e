package imageresolver

import (
	"strings"

	"StoryScanner/internal/weburl"
)

// Tier is one row of the acceptance table: candidates with Priority at or
// above MinPriority are judged by Accept. Tiers are checked in order.
type Tier struct {
	Name        string
	MinPriority int
	Accept      func(url string) bool
}

// DefaultTiers returns the acceptance table. High-priority meta images only
// fail when they are plainly a site logo; everything else must avoid every
// generic-asset token.
func DefaultTiers() []Tier {
	return []Tier{
		{Name: "meta", MinPriority: WeightTwitterCard, Accept: notSiteLogo},
		{Name: "generic", MinPriority: 0, Accept: notGenericAsset},
	}
}

// Select picks the winning candidate. cands must be sorted by priority,
// highest first (Collect does this). Within one priority a candidate free of
// generic tokens is preferred; otherwise the first that passes its tier wins.
// When nothing passes, the highest-priority candidate is returned anyway.
func Select(cands []Candidate, tiers []Tier) (string, bool) {
	if len(cands) == 0 {
		return "", false
	}

	for start := 0; start < len(cands); {
		end := start
		for end < len(cands) && cands[end].Priority == cands[start].Priority {
			end++
		}
		group := cands[start:end]

		for _, c := range group {
			if !IsGeneric(c.URL) {
				return c.URL, true
			}
		}
		for _, c := range group {
			if accepts(tiers, c) {
				return c.URL, true
			}
		}
		start = end
	}

	return cands[0].URL, true
}

// IsGeneric reports whether raw contains any generic-asset token.
func IsGeneric(raw string) bool {
	return containsAny(strings.ToLower(raw), GenericAssetTokens)
}

func accepts(tiers []Tier, c Candidate) bool {
	for _, t := range tiers {
		if c.Priority >= t.MinPriority {
			return t.Accept(c.URL)
		}
	}
	return false
}

func notSiteLogo(raw string) bool {
	lower := strings.ToLower(raw)
	if strings.Contains(lower, "article") || strings.Contains(lower, "post") {
		return true
	}
	for _, tok := range weburl.PathTokens(raw) {
		if strings.HasPrefix(tok, "logo") {
			return false
		}
	}
	return true
}

func notGenericAsset(raw string) bool {
	return !IsGeneric(raw)
}
