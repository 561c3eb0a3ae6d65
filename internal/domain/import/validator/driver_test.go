package validator

import (
	"context"
	"strconv"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campaignops/mediaplanner/internal/domain/import/mapper"
)

// fakeRecords builds n valid records with generated campaign names. The
// campaigns are unknown, so every row yields exactly one suggestion.
func fakeRecords(n int) []mapper.TransformedRecord {
	gofakeit.Seed(42)

	records := make([]mapper.TransformedRecord, n)
	for i := range records {
		r := validRecord()
		r[mapper.FieldCampaign] = gofakeit.ProductName() + " " + strconv.Itoa(i)
		records[i] = r
	}
	return records
}

func TestRunSmallDataset(t *testing.T) {
	rv := NewRowValidator(testMasterData(), nil)
	records := fakeRecords(100)

	result, err := Run(context.Background(), rv, records)
	require.NoError(t, err)

	assert.False(t, result.IsLargeDataset)
	assert.Equal(t, 100, result.Summary.RowsChecked)
	assert.Equal(t, 100, result.Summary.Suggestion)
	assert.Equal(t, 100, result.TotalIssueCount)
	assert.Len(t, result.Issues, 100)
}

func TestRunLargeDatasetCapsRetainedIssues(t *testing.T) {
	rv := NewRowValidator(testMasterData(), nil)
	records := fakeRecords(largeDatasetThreshold + 1)

	result, err := Run(context.Background(), rv, records)
	require.NoError(t, err)

	assert.True(t, result.IsLargeDataset)
	// Retention is capped but every count stays exact.
	assert.Len(t, result.Issues, maxRetainedIssues)
	assert.Equal(t, largeDatasetThreshold+1, result.TotalIssueCount)
	assert.Equal(t, largeDatasetThreshold+1, result.Summary.Suggestion)
	assert.Equal(t, largeDatasetThreshold+1, result.Summary.Total)
	assert.Equal(t, largeDatasetThreshold+1, result.Summary.RowsChecked)
}

func TestRunAtThresholdIsNotLarge(t *testing.T) {
	rv := NewRowValidator(testMasterData(), nil)
	records := fakeRecords(largeDatasetThreshold)

	result, err := Run(context.Background(), rv, records)
	require.NoError(t, err)

	assert.False(t, result.IsLargeDataset)
	assert.Len(t, result.Issues, largeDatasetThreshold)
}

func TestRunRespectsCancellation(t *testing.T) {
	rv := NewRowValidator(testMasterData(), nil)
	records := fakeRecords(10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, rv, records)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunEmptyRecords(t *testing.T) {
	rv := NewRowValidator(testMasterData(), nil)

	result, err := Run(context.Background(), rv, nil)
	require.NoError(t, err)

	assert.Empty(t, result.Issues)
	assert.Equal(t, 0, result.Summary.Total)
	assert.False(t, result.IsLargeDataset)
}
