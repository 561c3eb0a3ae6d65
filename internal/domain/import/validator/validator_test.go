package validator

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campaignops/mediaplanner/internal/domain/import/mapper"
	"github.com/campaignops/mediaplanner/internal/domain/masterdata"
)

func testMasterData() *masterdata.MasterData {
	tvType := masterdata.Entity{ID: uuid.New(), Name: "TV"}
	digitalType := masterdata.Entity{ID: uuid.New(), Name: "Digital"}

	return &masterdata.MasterData{
		Countries:  []masterdata.Entity{{Name: "Germany"}, {Name: "France"}},
		Categories: []masterdata.Entity{{Name: "Face Care"}},
		Ranges:     []masterdata.Entity{{Name: "Luminous"}},
		MediaTypes: []masterdata.Entity{tvType, digitalType},
		MediaSubTypes: []masterdata.SubType{
			{Name: "Open TV", MediaTypeID: tvType.ID},
			{Name: "Social", MediaTypeID: digitalType.ID},
		},
		BusinessUnits: []masterdata.Entity{{Name: "Nivea"}},
		PMTypes:       []masterdata.Entity{{Name: "Always On"}},
		Campaigns:     []masterdata.Entity{{Name: "Summer Push"}},
		SubTypesByType: map[string][]string{
			"TV":          {"Open TV"},
			"Digital":     {"Social"},
			"Traditional": {"Open TV"},
		},
	}
}

func validRecord() mapper.TransformedRecord {
	return mapper.TransformedRecord{
		mapper.FieldYear:         "2025",
		mapper.FieldCountry:      "Germany",
		mapper.FieldCategory:     "Face Care",
		mapper.FieldRange:        "Luminous",
		mapper.FieldCampaign:     "Summer Push",
		mapper.FieldMedia:        "TV",
		mapper.FieldMediaSubtype: "Open TV",
		mapper.FieldInitialDate:  "01-Mar-25",
		mapper.FieldEndDate:      "30-Apr-25",
		mapper.FieldTotalBudget:  "150000",
	}
}

func TestValidateCleanRow(t *testing.T) {
	rv := NewRowValidator(testMasterData(), nil)

	issues := rv.Validate(0, validRecord())

	assert.Empty(t, issues)
}

func TestValidateMissingRequiredFields(t *testing.T) {
	rv := NewRowValidator(testMasterData(), nil)
	record := validRecord()
	delete(record, mapper.FieldTotalBudget)
	record[mapper.FieldCountry] = "  "

	issues := rv.Validate(3, record)

	var criticalColumns []string
	for _, issue := range issues {
		require.Equal(t, SeverityCritical, issue.Severity)
		assert.Equal(t, 3, issue.RowIndex)
		criticalColumns = append(criticalColumns, issue.ColumnName)
	}
	assert.ElementsMatch(t, []string{mapper.FieldTotalBudget, mapper.FieldCountry}, criticalColumns)
}

func TestValidateUnknownReferences(t *testing.T) {
	tests := []struct {
		name     string
		field    string
		value    string
		severity Severity
	}{
		{"unknown country is critical", mapper.FieldCountry, "Atlantis", SeverityCritical},
		{"unknown category is critical", mapper.FieldCategory, "Potions", SeverityCritical},
		{"unknown media type is critical", mapper.FieldMedia, "Telepathy", SeverityCritical},
		{"unknown subtype is critical", mapper.FieldMediaSubtype, "Mind Waves", SeverityCritical},
		{"unknown range is warning", mapper.FieldRange, "Mystery", SeverityWarning},
		{"unknown business unit is warning", mapper.FieldBusinessUnit, "Ghost BU", SeverityWarning},
		{"unknown pm type is warning", mapper.FieldPMType, "Sometimes", SeverityWarning},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rv := NewRowValidator(testMasterData(), nil)
			record := validRecord()
			record[tt.field] = tt.value

			issues := rv.Validate(0, record)

			require.NotEmpty(t, issues)
			found := false
			for _, issue := range issues {
				if issue.ColumnName == tt.field {
					found = true
					assert.Equal(t, tt.severity, issue.Severity)
					assert.Equal(t, tt.value, issue.CurrentValue)
				}
			}
			assert.True(t, found)
		})
	}
}

func TestValidateTraditionalAliasAccepted(t *testing.T) {
	rv := NewRowValidator(testMasterData(), nil)
	record := validRecord()
	record[mapper.FieldMedia] = "Traditional"

	issues := rv.Validate(0, record)

	assert.Empty(t, issues)
}

func TestValidateNewCampaignIsSuggestion(t *testing.T) {
	rv := NewRowValidator(testMasterData(), nil)
	record := validRecord()
	record[mapper.FieldCampaign] = "Brand New Launch"

	issues := rv.Validate(0, record)

	require.Len(t, issues, 1)
	assert.Equal(t, SeveritySuggestion, issues[0].Severity)
	assert.Equal(t, mapper.FieldCampaign, issues[0].ColumnName)
	assert.Contains(t, issues[0].Message, "auto-created")
}

func TestValidateMediaConsistency(t *testing.T) {
	tests := []struct {
		name     string
		context  MediaContext
		flag     string
		severity Severity
		expected bool
	}{
		{"both families missing flag", MediaContext{HasTV: true, HasDigital: true, Known: true}, "", SeverityCritical, true},
		{"tv only missing flag", MediaContext{HasTV: true, Known: true}, "", SeverityWarning, true},
		{"digital only missing flag", MediaContext{HasDigital: true, Known: true}, "", SeverityWarning, true},
		{"flag present", MediaContext{HasTV: true, HasDigital: true, Known: true}, "Yes", SeverityCritical, false},
		{"campaign without committed plans", MediaContext{}, "", SeverityCritical, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rv := NewRowValidator(testMasterData(), map[string]MediaContext{
				"Summer Push": tt.context,
			})
			record := validRecord()
			record[mapper.FieldDigitalSameAsTV] = tt.flag

			issues := rv.Validate(0, record)

			var flagIssues []Issue
			for _, issue := range issues {
				if issue.ColumnName == mapper.FieldDigitalSameAsTV {
					flagIssues = append(flagIssues, issue)
				}
			}

			if !tt.expected {
				assert.Empty(t, flagIssues)
				return
			}
			require.Len(t, flagIssues, 1, "exactly one flag issue per row")
			assert.Equal(t, tt.severity, flagIssues[0].Severity)
		})
	}
}

func TestValidateNumericWarnings(t *testing.T) {
	rv := NewRowValidator(testMasterData(), nil)
	record := validRecord()
	record[mapper.FieldQ1Budget] = "lots"
	record[mapper.FieldTotalTRPs] = "-" // null marker, not an error

	issues := rv.Validate(0, record)

	require.Len(t, issues, 1)
	assert.Equal(t, SeverityWarning, issues[0].Severity)
	assert.Equal(t, mapper.FieldQ1Budget, issues[0].ColumnName)
}

func TestValidateBadDates(t *testing.T) {
	rv := NewRowValidator(testMasterData(), nil)
	record := validRecord()
	record[mapper.FieldEndDate] = "someday"

	issues := rv.Validate(0, record)

	require.Len(t, issues, 1)
	assert.Equal(t, SeverityCritical, issues[0].Severity)
	assert.Equal(t, mapper.FieldEndDate, issues[0].ColumnName)
}

func TestSummarize(t *testing.T) {
	issues := []Issue{
		{Severity: SeverityCritical},
		{Severity: SeverityCritical},
		{Severity: SeverityWarning},
		{Severity: SeveritySuggestion},
	}

	s := Summarize(issues, 10)

	assert.Equal(t, 2, s.Critical)
	assert.Equal(t, 1, s.Warning)
	assert.Equal(t, 1, s.Suggestion)
	assert.Equal(t, 4, s.Total)
	assert.Equal(t, 10, s.RowsChecked)
}
