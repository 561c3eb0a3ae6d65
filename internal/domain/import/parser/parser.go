// Package parser reads uploaded game-plan files (CSV or XLSX) into generic
// header-keyed records and provides the numeric/date parsing helpers shared
// by the validator and committer.
package parser

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/campaignops/mediaplanner/internal/domain/import/mapper"
)

// ParseResult holds the headers and rows read from an uploaded file
type ParseResult struct {
	Headers []string
	Records []mapper.RawRecord
}

// ParseCSV reads a CSV file where the first row is the header row. Rows
// shorter than the header are padded with empty values; longer rows keep
// only the headered columns.
func ParseCSV(data []byte) (*ParseResult, error) {
	reader := csv.NewReader(bytes.NewReader(stripUTF8BOM(data)))
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	headers, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("file is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header row: %w", err)
	}
	for i := range headers {
		headers[i] = strings.TrimSpace(headers[i])
	}

	result := &ParseResult{Headers: headers}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", len(result.Records)+2, err)
		}
		result.Records = append(result.Records, rowToRecord(headers, record))
	}

	return result, nil
}

func rowToRecord(headers []string, row []string) mapper.RawRecord {
	record := make(mapper.RawRecord, len(headers))
	for i, header := range headers {
		if header == "" {
			continue
		}
		if i < len(row) {
			record[header] = strings.TrimSpace(row[i])
		} else {
			record[header] = ""
		}
	}
	return record
}

func stripUTF8BOM(data []byte) []byte {
	if len(data) >= 3 && data[0] == 0xEF && data[1] == 0xBB && data[2] == 0xBF {
		return data[3:]
	}
	return data
}

// dateFormats are tried in order when parsing date fields
var dateFormats = []string{
	"02-Jan-06",  // DD-MMM-YY, the planning template default
	"2006-01-02", // ISO 8601
	"02-Jan-2006",
	"02/01/2006",
	"2006/01/02",
}

// ParseDate parses a date in any of the accepted formats
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}

	for _, format := range dateFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized date format: %s", s)
}

// IsBlankNumeric reports whether a numeric cell should be treated as null.
// Planning templates use "-" for "no spend".
func IsBlankNumeric(s string) bool {
	s = strings.TrimSpace(s)
	return s == "" || s == "-"
}

// ParseBudget parses a budget or reach value after stripping thousands
// separators and currency symbols. Blank or "-" values yield zero with
// ok=false so callers can treat them as null.
func ParseBudget(s string) (decimal.Decimal, bool, error) {
	if IsBlankNumeric(s) {
		return decimal.Zero, false, nil
	}

	cleaned := cleanNumeric(s)
	if cleaned == "" || cleaned == "-" {
		return decimal.Zero, false, fmt.Errorf("no digits in value: %s", s)
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("invalid number: %s", s)
	}
	return d, true, nil
}

// cleanNumeric keeps digits, the decimal point and a leading minus,
// dropping thousands separators, whitespace, currency symbols and codes.
func cleanNumeric(s string) string {
	s = strings.TrimSpace(s)

	var b strings.Builder
	b.Grow(len(s))
	for i, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.':
			b.WriteRune(r)
		case r == '-' && i == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}
