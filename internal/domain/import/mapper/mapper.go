// Package mapper maps arbitrary spreadsheet column headers onto the
// canonical game-plan field names used by the import pipeline.
package mapper

import (
	"sort"
	"strings"

	"github.com/cloudflare/ahocorasick"
	"github.com/lithammer/fuzzysearch/fuzzy"
)

// Canonical field names recognized by the import pipeline.
const (
	FieldYear              = "Year"
	FieldSubRegion         = "Sub Region"
	FieldCountry           = "Country"
	FieldCategory          = "Category"
	FieldRange             = "Range"
	FieldCampaign          = "Campaign"
	FieldFranchise         = "Franchise"
	FieldMedia             = "Media"
	FieldMediaSubtype      = "Media Subtype"
	FieldInitialDate       = "Initial Date"
	FieldEndDate           = "End Date"
	FieldTotalWeeks        = "Total Weeks"
	FieldTotalBudget       = "Budget"
	FieldQ1Budget          = "Q1 Budget"
	FieldQ2Budget          = "Q2 Budget"
	FieldQ3Budget          = "Q3 Budget"
	FieldQ4Budget          = "Q4 Budget"
	FieldTotalTRPs         = "Total TRPs"
	FieldTotalR1Plus       = "Total R1+"
	FieldTotalR3Plus       = "Total R3+"
	FieldWeeklyReach       = "Weekly Reach"
	FieldBusinessUnit      = "Business Unit"
	FieldPMType            = "PM Type"
	FieldDigitalSameAsTV   = "Is Digital target the same than TV?"
	FieldBurst             = "Burst"
	FieldPlaybookID        = "Playbook ID"
	FieldCampaignArchetype = "Campaign Archetype"
)

// CanonicalFields lists every field the mapper can assign, in display order.
var CanonicalFields = []string{
	FieldYear, FieldSubRegion, FieldCountry, FieldCategory, FieldRange,
	FieldCampaign, FieldFranchise, FieldMedia, FieldMediaSubtype,
	FieldInitialDate, FieldEndDate, FieldTotalWeeks, FieldTotalBudget,
	FieldQ1Budget, FieldQ2Budget, FieldQ3Budget, FieldQ4Budget,
	FieldTotalTRPs, FieldTotalR1Plus, FieldTotalR3Plus, FieldWeeklyReach,
	FieldBusinessUnit, FieldPMType, FieldDigitalSameAsTV, FieldBurst,
	FieldPlaybookID, FieldCampaignArchetype,
}

// synonyms maps each canonical field to lowercase phrases seen in real
// planning spreadsheets. A header matches if it equals a phrase or contains
// it as a substring.
var synonyms = map[string][]string{
	FieldYear:              {"year", "fiscal year", "fy"},
	FieldSubRegion:         {"sub region", "subregion", "sub-region"},
	FieldCountry:           {"country", "market"},
	FieldCategory:          {"category", "product category"},
	FieldRange:             {"range", "product range", "brand range"},
	FieldCampaign:          {"campaign", "campaign name"},
	FieldFranchise:         {"franchise"},
	FieldMedia:             {"media", "media type", "channel"},
	FieldMediaSubtype:      {"media subtype", "media sub type", "media sub-type", "sub media"},
	FieldInitialDate:       {"initial date", "start date", "from date", "begin date"},
	FieldEndDate:           {"end date", "to date", "finish date"},
	FieldTotalWeeks:        {"total weeks", "weeks", "duration"},
	FieldTotalBudget:       {"budget", "total budget", "spend", "investment"},
	FieldQ1Budget:          {"q1 budget", "q1"},
	FieldQ2Budget:          {"q2 budget", "q2"},
	FieldQ3Budget:          {"q3 budget", "q3"},
	FieldQ4Budget:          {"q4 budget", "q4"},
	FieldTotalTRPs:         {"total trps", "trps", "trp"},
	FieldTotalR1Plus:       {"total r1+", "r1+", "reach 1+", "total r1"},
	FieldTotalR3Plus:       {"total r3+", "r3+", "reach 3+", "total r3"},
	FieldWeeklyReach:       {"weekly reach", "avg weekly reach"},
	FieldBusinessUnit:      {"business unit", "bu"},
	FieldPMType:            {"pm type", "pm-type", "performance marketing type"},
	FieldDigitalSameAsTV:   {"is digital target the same than tv", "digital same as tv", "same as tv", "digital target same"},
	FieldBurst:             {"burst", "wave", "flight"},
	FieldPlaybookID:        {"playbook id", "playbook"},
	FieldCampaignArchetype: {"campaign archetype", "archetype"},
}

// jaccardThreshold is the minimum character-set similarity for a fuzzy
// header assignment.
const jaccardThreshold = 0.6

// RawRecord is one parsed spreadsheet row keyed by original header
type RawRecord map[string]string

// TransformedRecord is a RawRecord re-keyed through a FieldMapping
type TransformedRecord map[string]string

// FieldMapping maps original headers to canonical field names. Headers with
// no confident match are absent and pass through unchanged.
type FieldMapping map[string]string

// Mapper assigns canonical field names to spreadsheet headers
type Mapper struct {
	matcher  *ahocorasick.Matcher
	patterns []synonymPattern
}

type synonymPattern struct {
	phrase string
	field  string
}

// New builds a Mapper with the default synonym table
func New() *Mapper {
	// Longest phrases first so a containment hit prefers the most
	// specific synonym ("media subtype" before "media").
	var patterns []synonymPattern
	for field, phrases := range synonyms {
		for _, phrase := range phrases {
			patterns = append(patterns, synonymPattern{phrase: phrase, field: field})
		}
	}
	sort.Slice(patterns, func(i, j int) bool {
		if len(patterns[i].phrase) != len(patterns[j].phrase) {
			return len(patterns[i].phrase) > len(patterns[j].phrase)
		}
		return patterns[i].phrase < patterns[j].phrase
	})

	dict := make([][]byte, len(patterns))
	for i, p := range patterns {
		dict[i] = []byte(p.phrase)
	}

	return &Mapper{
		matcher:  ahocorasick.NewMatcher(dict),
		patterns: patterns,
	}
}

// MapHeaders maps each header to at most one canonical field. Matching is
// attempted per header in order: exact (case-insensitive, trimmed),
// synonym phrase, then Jaccard character-set similarity above 0.6. Each
// canonical field is assigned at most once, first come wins. An empty
// header list yields an empty mapping.
func (m *Mapper) MapHeaders(headers []string) FieldMapping {
	mapping := make(FieldMapping)
	assigned := make(map[string]bool)

	canonicalLower := make(map[string]string, len(CanonicalFields))
	for _, f := range CanonicalFields {
		canonicalLower[normalizeHeader(f)] = f
	}

	// Pass 1: exact matches win before any synonym or fuzzy guess.
	for _, header := range headers {
		key := normalizeHeader(header)
		if field, ok := canonicalLower[key]; ok && !assigned[field] {
			mapping[header] = field
			assigned[field] = true
		}
	}

	// Pass 2: synonym phrases, equality or containment.
	for _, header := range headers {
		if _, done := mapping[header]; done {
			continue
		}
		if field := m.matchSynonym(normalizeHeader(header)); field != "" && !assigned[field] {
			mapping[header] = field
			assigned[field] = true
		}
	}

	// Pass 3: fuzzy fallback against unassigned canonical names.
	for _, header := range headers {
		if _, done := mapping[header]; done {
			continue
		}
		if field := bestFuzzyField(normalizeHeader(header), assigned); field != "" {
			mapping[header] = field
			assigned[field] = true
		}
	}

	return mapping
}

// matchSynonym returns the canonical field whose synonym the header equals
// or contains, preferring the longest matching phrase.
func (m *Mapper) matchSynonym(header string) string {
	if header == "" {
		return ""
	}

	hits := m.matcher.Match([]byte(header))
	if len(hits) == 0 {
		return ""
	}

	// patterns are sorted longest-first, so the smallest index is the
	// most specific phrase
	best := -1
	for _, idx := range hits {
		if best == -1 || idx < best {
			best = idx
		}
	}
	return m.patterns[best].field
}

// bestFuzzyField picks the highest-scoring unassigned canonical field with
// Jaccard similarity above the threshold. Ties break on edit distance.
func bestFuzzyField(header string, assigned map[string]bool) string {
	if header == "" {
		return ""
	}

	bestField := ""
	bestScore := jaccardThreshold
	bestDistance := 0
	for _, field := range CanonicalFields {
		if assigned[field] {
			continue
		}
		candidate := normalizeHeader(field)
		score := jaccard(header, candidate)
		if score <= bestScore && bestField != "" {
			if score == bestScore {
				if d := fuzzy.LevenshteinDistance(header, candidate); d < bestDistance {
					bestField = field
					bestDistance = d
				}
			}
			continue
		}
		if score > bestScore {
			bestScore = score
			bestField = field
			bestDistance = fuzzy.LevenshteinDistance(header, candidate)
		}
	}
	return bestField
}

// jaccard computes character-set Jaccard similarity of two strings
func jaccard(a, b string) float64 {
	setA := charSet(a)
	setB := charSet(b)
	if len(setA) == 0 && len(setB) == 0 {
		return 0
	}

	intersection := 0
	for r := range setA {
		if setB[r] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func charSet(s string) map[rune]bool {
	set := make(map[rune]bool, len(s))
	for _, r := range s {
		set[r] = true
	}
	return set
}

func normalizeHeader(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// TransformRecord re-keys a raw row through the mapping. Unmapped headers
// pass through verbatim, so no value is ever dropped.
func TransformRecord(record RawRecord, mapping FieldMapping) TransformedRecord {
	out := make(TransformedRecord, len(record))
	for header, value := range record {
		if field, ok := mapping[header]; ok {
			out[field] = value
		} else {
			out[header] = value
		}
	}
	return out
}
