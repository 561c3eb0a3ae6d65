package parser

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ParseXLSX reads the first sheet of an Excel workbook. The first row is
// treated as the header row, matching the CSV contract.
func ParseXLSX(data []byte) (*ParseResult, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %q is empty", sheets[0])
	}

	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		headers[i] = strings.TrimSpace(h)
	}

	result := &ParseResult{Headers: headers}
	for _, row := range rows[1:] {
		result.Records = append(result.Records, rowToRecord(headers, row))
	}

	return result, nil
}

// ParseUpload picks the parser based on the uploaded file name
func ParseUpload(fileName string, data []byte) (*ParseResult, error) {
	lower := strings.ToLower(fileName)
	switch {
	case strings.HasSuffix(lower, ".xlsx") || strings.HasSuffix(lower, ".xlsm"):
		return ParseXLSX(data)
	default:
		return ParseCSV(data)
	}
}
