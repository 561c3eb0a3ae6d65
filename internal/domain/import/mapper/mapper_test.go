package mapper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapHeadersExactMatch(t *testing.T) {
	m := New()

	mapping := m.MapHeaders([]string{"Year", "Country", "Campaign", "Budget"})

	assert.Equal(t, FieldYear, mapping["Year"])
	assert.Equal(t, FieldCountry, mapping["Country"])
	assert.Equal(t, FieldCampaign, mapping["Campaign"])
	assert.Equal(t, FieldTotalBudget, mapping["Budget"])
}

func TestMapHeadersCaseAndWhitespace(t *testing.T) {
	m := New()

	mapping := m.MapHeaders([]string{"  country ", "YEAR", "campaign"})

	assert.Equal(t, FieldCountry, mapping["  country "])
	assert.Equal(t, FieldYear, mapping["YEAR"])
	assert.Equal(t, FieldCampaign, mapping["campaign"])
}

func TestMapHeadersSynonyms(t *testing.T) {
	m := New()

	tests := []struct {
		header string
		field  string
	}{
		{"Media Type", FieldMedia},
		{"Market", FieldCountry},
		{"Start Date", FieldInitialDate},
		{"Investment", FieldTotalBudget},
		{"Wave", FieldBurst},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			mapping := m.MapHeaders([]string{tt.header})
			assert.Equal(t, tt.field, mapping[tt.header])
		})
	}
}

func TestMapHeadersPrefersSpecificSynonym(t *testing.T) {
	m := New()

	// "Media Sub Type" contains both "media" and "media sub type"; the
	// longer phrase must win.
	mapping := m.MapHeaders([]string{"Media Sub Type", "Media"})

	assert.Equal(t, FieldMediaSubtype, mapping["Media Sub Type"])
	assert.Equal(t, FieldMedia, mapping["Media"])
}

func TestMapHeadersLowSimilarityStaysUnmapped(t *testing.T) {
	m := New()

	// "cat" shares 3 of 8 distinct characters with "category", well below
	// the fuzzy threshold, and matches no synonym.
	mapping := m.MapHeaders([]string{"cat"})

	_, ok := mapping["cat"]
	assert.False(t, ok)
}

func TestMapHeadersInjective(t *testing.T) {
	m := New()

	// Two headers competing for the same field: only the first wins, the
	// second stays unmapped rather than duplicating the assignment.
	mapping := m.MapHeaders([]string{"Country", "country "})

	assert.Equal(t, FieldCountry, mapping["Country"])
	_, ok := mapping["country "]
	assert.False(t, ok)

	seen := make(map[string]bool)
	for _, field := range mapping {
		assert.False(t, seen[field], "field %s assigned twice", field)
		seen[field] = true
	}
}

func TestMapHeadersEmpty(t *testing.T) {
	m := New()

	mapping := m.MapHeaders(nil)

	assert.Empty(t, mapping)
}

func TestTransformRecordKeepsUnmappedColumns(t *testing.T) {
	m := New()
	headers := []string{"Country", "Internal Notes"}
	mapping := m.MapHeaders(headers)

	record := RawRecord{
		"Country":        "Germany",
		"Internal Notes": "keep me",
	}
	out := TransformRecord(record, mapping)

	require.Len(t, out, 2)
	assert.Equal(t, "Germany", out[FieldCountry])
	assert.Equal(t, "keep me", out["Internal Notes"])
}

func TestJaccard(t *testing.T) {
	tests := []struct {
		name string
		a    string
		b    string
		want float64
	}{
		{"identical", "media", "media", 1.0},
		{"disjoint", "abc", "xyz", 0.0},
		{"partial", "cat", "category", 0.375},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, jaccard(tt.a, tt.b), 0.0001)
		})
	}
}
