package parser

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCSV(t *testing.T) {
	data := []byte("Country,Campaign,Budget\nGermany,Summer Push,1000\nFrance,Winter Glow,2500\n")

	result, err := ParseCSV(data)
	require.NoError(t, err)

	assert.Equal(t, []string{"Country", "Campaign", "Budget"}, result.Headers)
	require.Len(t, result.Records, 2)
	assert.Equal(t, "Germany", result.Records[0]["Country"])
	assert.Equal(t, "Winter Glow", result.Records[1]["Campaign"])
}

func TestParseCSVStripsBOM(t *testing.T) {
	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte("Country\nSpain\n")...)

	result, err := ParseCSV(data)
	require.NoError(t, err)

	assert.Equal(t, []string{"Country"}, result.Headers)
}

func TestParseCSVPadsShortRows(t *testing.T) {
	data := []byte("Country,Campaign,Budget\nGermany,Summer Push\n")

	result, err := ParseCSV(data)
	require.NoError(t, err)

	require.Len(t, result.Records, 1)
	assert.Equal(t, "", result.Records[0]["Budget"])
}

func TestParseCSVEmptyFile(t *testing.T) {
	_, err := ParseCSV([]byte(""))
	assert.Error(t, err)
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  time.Time
	}{
		{"template default", "15-Mar-25", time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)},
		{"iso", "2025-03-15", time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)},
		{"full year month name", "15-Mar-2025", time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)},
		{"slashes", "15/03/2025", time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)},
		{"padded", " 15-Mar-25 ", time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDate(tt.input)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %v", got)
		})
	}
}

func TestParseDateInvalid(t *testing.T) {
	for _, input := range []string{"", "not a date", "13-13-13"} {
		_, err := ParseDate(input)
		assert.Error(t, err, "input %q", input)
	}
}

func TestIsBlankNumeric(t *testing.T) {
	assert.True(t, IsBlankNumeric(""))
	assert.True(t, IsBlankNumeric("  "))
	assert.True(t, IsBlankNumeric("-"))
	assert.False(t, IsBlankNumeric("0"))
	assert.False(t, IsBlankNumeric("1000"))
}

func TestParseBudget(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
		ok    bool
	}{
		{"plain", "1000", "1000", true},
		{"decimal", "1234.56", "1234.56", true},
		{"thousands separators", "1,234,567", "1234567", true},
		{"currency symbol", "€1,000.50", "1000.5", true},
		{"negative", "-500", "-500", true},
		{"blank", "", "0", false},
		{"dash null", "-", "0", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, ok, err := ParseBudget(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, d.String())
		})
	}
}

func TestParseBudgetInvalid(t *testing.T) {
	_, _, err := ParseBudget("n/a")
	assert.Error(t, err)
}
