// Package matcher evaluates notices against saved seed filters.
//
// Matching is case-insensitive substring containment. A short tag can match
// inside an unrelated longer word; that behaviour is kept deliberately.
package matcher

import (
	"strings"

	"github.com/starford/tenderwatch/internal/models"
)

// Matches reports whether n satisfies every gate of s.
// Gates run in order and the first failing one vetoes:
// district equality, title tags against the title, tags against the
// composite text.
func Matches(n models.Notice, s models.Seed) bool {
	if d := normalize(s.District); d != "" {
		if normalize(n.District) != d {
			return false
		}
	}

	title := strings.ToLower(n.Title())

	if hasTags(s.TitleTags) && !containsAny(title, s.TitleTags) {
		return false
	}

	if hasTags(s.Tags) && !containsAny(compositeText(n, title), s.Tags) {
		return false
	}

	return true
}

// FirstMatch returns the first seed in seeds that n matches.
func FirstMatch(n models.Notice, seeds []models.Seed) (models.Seed, bool) {
	for _, s := range seeds {
		if Matches(n, s) {
			return s, true
		}
	}
	return models.Seed{}, false
}

// Filter returns copies of the notices that match any seed, in order, with
// MatchedSeed set to the label of the first matching seed.
func Filter(ns []models.Notice, seeds []models.Seed) []models.Notice {
	var out []models.Notice
	for _, n := range ns {
		s, ok := FirstMatch(n, seeds)
		if !ok {
			continue
		}
		n.MatchedSeed = s.Label()
		out = append(out, n)
	}
	return out
}

// Label returns copies of every notice with MatchedSeed recomputed against
// seeds. Unmatched notices get an empty label.
func Label(ns []models.Notice, seeds []models.Seed) []models.Notice {
	out := make([]models.Notice, len(ns))
	for i, n := range ns {
		n.MatchedSeed = ""
		if s, ok := FirstMatch(n, seeds); ok {
			n.MatchedSeed = s.Label()
		}
		out[i] = n
	}
	return out
}

// compositeText joins the lower-cased title with the other searchable fields.
func compositeText(n models.Notice, title string) string {
	parts := make([]string, 0, 6)
	if title != "" {
		parts = append(parts, title)
	}
	for _, v := range []string{n.AwardingEntity(), n.PlatformName, n.TaxID, n.Municipality, n.Parish} {
		if models.Known(v) {
			parts = append(parts, strings.ToLower(strings.TrimSpace(v)))
		}
	}
	return strings.Join(parts, " ")
}

func containsAny(text string, tags []string) bool {
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		if strings.Contains(text, tag) {
			return true
		}
	}
	return false
}

// hasTags reports whether tags carries at least one non-blank entry.
func hasTags(tags []string) bool {
	for _, t := range tags {
		if strings.TrimSpace(t) != "" {
			return true
		}
	}
	return false
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
