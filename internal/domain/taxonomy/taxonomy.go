// Package taxonomy holds the fixed, closed category set a need resolves to,
// together with the static tables that map between raw catalog tags, canonical
// categories, and keyword heuristics. The taxonomy is decided at build time;
// changing it is a code change, not configuration.
package taxonomy

import "strings"

// Categories is the closed label set, in stable order. The classifier accepts
// only literal members of this set.
var Categories = []string{
	"emergency shelter",
	"safe parking",
	"food",
	"mental health",
	"rental assistance",
	"clinic",
	"housing",
	"youth shelter",
	"showers",
}

var categorySet = func() map[string]struct{} {
	m := make(map[string]struct{}, len(Categories))
	for _, c := range Categories {
		m[c] = struct{}{}
	}
	return m
}()

// IsCategory reports whether label is a member of the closed set.
func IsCategory(label string) bool {
	_, ok := categorySet[label]
	return ok
}

// tagSynonyms canonicalizes raw catalog spellings before matching.
var tagSynonyms = map[string]string{
	"restrooms": "restroom",
	"toilets":   "toilet",
	"bathrooms": "bathroom",
	"groceries": "food",
}

// CanonicalTag lowercases, trims, and applies the synonym table to a raw tag.
func CanonicalTag(raw string) string {
	t := strings.ToLower(strings.TrimSpace(raw))
	if canon, ok := tagSynonyms[t]; ok {
		return canon
	}
	return t
}

// expandedTags maps each category to the raw tags that satisfy it. Every
// category maps to a non-empty set.
var expandedTags = map[string]map[string]struct{}{
	"emergency shelter": setOf("emergency shelter", "tents", "shelter"),
	"youth shelter":     setOf("youth shelter", "emergency shelter"),
	"food":              setOf("food", "meals", "pantry", "groceries"),
	"showers":           setOf("showers", "restrooms", "restroom", "hygiene", "toilet", "bathroom"),
	"safe parking":      setOf("safe parking", "parking space"),
	"mental health":     setOf("mental health", "mental health treatment", "therapy", "counseling"),
	"clinic":            setOf("clinic", "medical", "doctor", "nurse", "urgent care"),
	"housing":           setOf("housing", "housing navigation"),
	"rental assistance": setOf("rental assistance", "emergency rental or mortgage assistance", "utility"),
}

// ExpandedTags returns the acceptable tag set for a category. Unknown
// categories fall back to a singleton set of the category itself.
func ExpandedTags(category string) map[string]struct{} {
	if tags, ok := expandedTags[category]; ok {
		return tags
	}
	return setOf(category)
}

// fallbackRule is one keyword rule of the deterministic classifier fallback.
type fallbackRule struct {
	keywords []string
	category string
}

// fallbackRules are evaluated in fixed priority order over lowercased text;
// the first rule with any keyword hit wins.
var fallbackRules = []fallbackRule{
	{[]string{"shelter", "bed", "sleep"}, "emergency shelter"},
	{[]string{"parking", "vehicle", "rv"}, "safe parking"},
	{[]string{"food", "meal", "hungry", "pantry", "grocer"}, "food"},
	{[]string{"mental", "depress", "anx", "suicid", "therapy", "counsel"}, "mental health"},
	{[]string{"rent", "evict", "utility", "deposit"}, "rental assistance"},
	{[]string{"doctor", "clinic", "medical", "nurse", "urgent"}, "clinic"},
	{[]string{"housing", "voucher", "navigator"}, "housing"},
	{[]string{"youth", "teen", "minor"}, "youth shelter"},
	{[]string{"washroom", "restroom", "toilet", "bathroom", "shower", "hygiene"}, "showers"},
}

// FallbackCategory classifies text with the ordered keyword rules.
// Returns "" when no rule matches.
func FallbackCategory(text string) string {
	t := strings.ToLower(text)
	for _, rule := range fallbackRules {
		for _, kw := range rule.keywords {
			if strings.Contains(t, kw) {
				return rule.category
			}
		}
	}
	return ""
}

// suggestionKeywords is a broader keyword table used only for suggesting
// categories when classification yields nothing. Kept separate from
// fallbackRules: suggestion hits never pick a category on the caller's behalf.
var suggestionKeywords = []fallbackRule{
	{[]string{"shelter", "bed", "sleep"}, "emergency shelter"},
	{[]string{"food", "meal", "hungry", "pantry"}, "food"},
	{[]string{"mental", "depress", "anx", "counsel"}, "mental health"},
	{[]string{"car", "parking", "vehicle", "rv"}, "safe parking"},
	{[]string{"rent", "evict", "utility"}, "rental assistance"},
	{[]string{"doctor", "clinic", "medical"}, "clinic"},
	{[]string{"housing", "voucher", "navigator"}, "housing"},
	{[]string{"youth", "teen", "young"}, "youth shelter"},
	{[]string{"washroom", "restroom", "toilet", "bathroom", "shower", "hygiene"}, "showers"},
}

// defaultSuggestions are returned when no suggestion keyword hits at all.
var defaultSuggestions = []string{"emergency shelter", "food", "mental health", "safe parking"}

// SuggestCategories produces up to limit suggested categories for ambiguous
// text. Always returns a non-empty slice.
func SuggestCategories(text string, limit int) []string {
	if limit <= 0 {
		limit = 4
	}
	t := strings.ToLower(text)
	var hints []string
	for _, rule := range suggestionKeywords {
		for _, kw := range rule.keywords {
			if strings.Contains(t, kw) {
				hints = append(hints, rule.category)
				break
			}
		}
	}
	if len(hints) == 0 {
		hints = append(hints, defaultSuggestions...)
	}
	if len(hints) > limit {
		hints = hints[:limit]
	}
	return hints
}

func setOf(tags ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		m[t] = struct{}{}
	}
	return m
}
