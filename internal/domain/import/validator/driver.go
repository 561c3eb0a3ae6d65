package validator

import (
	"context"
	"runtime"

	"github.com/campaignops/mediaplanner/internal/domain/import/mapper"
)

const (
	// chunkSize bounds how many rows are validated between yields
	chunkSize = 1000
	// largeDatasetThreshold switches on issue-list truncation
	largeDatasetThreshold = 5000
	// maxRetainedIssues caps the stored issue list for large files
	maxRetainedIssues = 500
)

// Result is the outcome of a full validation run. Issues may be a
// truncated prefix when IsLargeDataset is set; Summary always reflects the
// true totals.
type Result struct {
	Issues          []Issue `json:"issues"`
	Summary         Summary `json:"summary"`
	IsLargeDataset  bool    `json:"isLargeDataset"`
	TotalIssueCount int     `json:"totalIssueCount"`
}

// Run validates all records in chunks, yielding between chunks so large
// files do not monopolize the scheduler. Issue retention is capped for
// datasets above the large-file threshold while counts stay exact.
func Run(ctx context.Context, rv *RowValidator, records []mapper.TransformedRecord) (*Result, error) {
	result := &Result{
		IsLargeDataset: len(records) > largeDatasetThreshold,
	}
	result.Summary.RowsChecked = len(records)

	for start := 0; start < len(records); start += chunkSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		end := start + chunkSize
		if end > len(records) {
			end = len(records)
		}

		for i := start; i < end; i++ {
			for _, issue := range rv.Validate(i, records[i]) {
				result.TotalIssueCount++
				switch issue.Severity {
				case SeverityCritical:
					result.Summary.Critical++
				case SeverityWarning:
					result.Summary.Warning++
				case SeveritySuggestion:
					result.Summary.Suggestion++
				}
				if !result.IsLargeDataset || len(result.Issues) < maxRetainedIssues {
					result.Issues = append(result.Issues, issue)
				}
			}
		}

		runtime.Gosched()
	}

	result.Summary.Total = result.TotalIssueCount
	return result, nil
}
