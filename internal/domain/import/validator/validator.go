// Package validator checks transformed game-plan rows against master data
// and the cross-field planning rules before an import may be committed.
package validator

import (
	"fmt"
	"strings"

	"github.com/campaignops/mediaplanner/internal/domain/import/mapper"
	"github.com/campaignops/mediaplanner/internal/domain/import/parser"
	"github.com/campaignops/mediaplanner/internal/domain/masterdata"
)

// Severity classifies a validation issue
type Severity string

const (
	SeverityCritical   Severity = "critical"
	SeverityWarning    Severity = "warning"
	SeveritySuggestion Severity = "suggestion"
)

// Issue is one validation finding for one row/column
type Issue struct {
	RowIndex     int      `json:"rowIndex"`
	ColumnName   string   `json:"columnName"`
	Severity     Severity `json:"severity"`
	Message      string   `json:"message"`
	CurrentValue string   `json:"currentValue"`
}

// Summary counts issues grouped by severity
type Summary struct {
	Critical    int `json:"critical"`
	Warning     int `json:"warning"`
	Suggestion  int `json:"suggestion"`
	Total       int `json:"total"`
	RowsChecked int `json:"rowsChecked"`
}

// MediaContext describes which media families a campaign already has
// committed game plans for, within the import's country/cycle scope.
type MediaContext struct {
	HasTV      bool
	HasDigital bool
	Known      bool // false when the campaign has no committed plans
}

// requiredFields must be present and non-blank on every row
var requiredFields = []string{
	mapper.FieldYear,
	mapper.FieldCountry,
	mapper.FieldCategory,
	mapper.FieldRange,
	mapper.FieldCampaign,
	mapper.FieldMedia,
	mapper.FieldMediaSubtype,
	mapper.FieldInitialDate,
	mapper.FieldEndDate,
	mapper.FieldTotalBudget,
}

// numericFields are parsed with the budget parser; unparseable values are
// downgraded to zero downstream
var numericFields = []string{
	mapper.FieldTotalBudget,
	mapper.FieldQ1Budget,
	mapper.FieldQ2Budget,
	mapper.FieldQ3Budget,
	mapper.FieldQ4Budget,
	mapper.FieldTotalTRPs,
	mapper.FieldTotalR1Plus,
	mapper.FieldTotalR3Plus,
	mapper.FieldWeeklyReach,
}

// RowValidator validates one transformed record at a time
type RowValidator struct {
	master  *masterdata.MasterData
	context map[string]MediaContext
}

// NewRowValidator creates a validator bound to a master-data snapshot and
// per-campaign media context keyed by campaign name.
func NewRowValidator(master *masterdata.MasterData, context map[string]MediaContext) *RowValidator {
	if context == nil {
		context = make(map[string]MediaContext)
	}
	return &RowValidator{master: master, context: context}
}

// Validate returns the issues for one record, in check order
func (v *RowValidator) Validate(rowIndex int, record mapper.TransformedRecord) []Issue {
	var issues []Issue

	missing := make(map[string]bool)
	for _, field := range requiredFields {
		if strings.TrimSpace(record[field]) == "" {
			missing[field] = true
			issues = append(issues, Issue{
				RowIndex:   rowIndex,
				ColumnName: field,
				Severity:   SeverityCritical,
				Message:    fmt.Sprintf("%s is required", field),
			})
		}
	}

	issues = append(issues, v.checkReferences(rowIndex, record, missing)...)
	issues = append(issues, v.checkMediaConsistency(rowIndex, record)...)
	issues = append(issues, v.checkNumerics(rowIndex, record)...)
	issues = append(issues, v.checkDates(rowIndex, record, missing)...)

	return issues
}

type referenceCheck struct {
	field    string
	exists   func(*masterdata.MasterData, string) bool
	severity Severity
	label    string
}

var referenceChecks = []referenceCheck{
	{mapper.FieldCountry, (*masterdata.MasterData).HasCountry, SeverityCritical, "country"},
	{mapper.FieldCategory, (*masterdata.MasterData).HasCategory, SeverityCritical, "category"},
	{mapper.FieldRange, (*masterdata.MasterData).HasRange, SeverityWarning, "range"},
	{mapper.FieldMedia, (*masterdata.MasterData).HasMediaType, SeverityCritical, "media type"},
	{mapper.FieldMediaSubtype, (*masterdata.MasterData).HasMediaSubType, SeverityCritical, "media subtype"},
	{mapper.FieldBusinessUnit, (*masterdata.MasterData).HasBusinessUnit, SeverityWarning, "business unit"},
	{mapper.FieldPMType, (*masterdata.MasterData).HasPMType, SeverityWarning, "PM type"},
}

// checkReferences verifies values exist in master data (case-sensitive
// exact match). Fields already flagged as missing are skipped.
func (v *RowValidator) checkReferences(rowIndex int, record mapper.TransformedRecord, missing map[string]bool) []Issue {
	var issues []Issue

	for _, check := range referenceChecks {
		value := strings.TrimSpace(record[check.field])
		if value == "" || missing[check.field] {
			continue
		}
		if !check.exists(v.master, value) {
			issues = append(issues, Issue{
				RowIndex:     rowIndex,
				ColumnName:   check.field,
				Severity:     check.severity,
				Message:      fmt.Sprintf("%s %q not found in master data", check.label, value),
				CurrentValue: value,
			})
		}
	}

	// Campaigns are allowed to be new; unknown ones are only flagged for
	// awareness since commit can auto-create them.
	if campaign := strings.TrimSpace(record[mapper.FieldCampaign]); campaign != "" && !v.master.HasCampaign(campaign) {
		issues = append(issues, Issue{
			RowIndex:     rowIndex,
			ColumnName:   mapper.FieldCampaign,
			Severity:     SeveritySuggestion,
			Message:      fmt.Sprintf("campaign %q will be auto-created on import", campaign),
			CurrentValue: campaign,
		})
	}

	return issues
}

// checkMediaConsistency applies the TV/Digital rule: when the campaign
// already has both TV and Digital plans in scope, the "Is Digital target
// the same than TV?" flag is mandatory; with only one family present it is
// recommended. A campaign with no committed plans yet is skipped, there is
// nothing to be consistent with.
func (v *RowValidator) checkMediaConsistency(rowIndex int, record mapper.TransformedRecord) []Issue {
	campaign := strings.TrimSpace(record[mapper.FieldCampaign])
	if campaign == "" {
		return nil
	}

	mc, ok := v.context[campaign]
	if !ok || !mc.Known {
		return nil
	}

	flag := strings.TrimSpace(record[mapper.FieldDigitalSameAsTV])
	if flag != "" {
		return nil
	}

	switch {
	case mc.HasTV && mc.HasDigital:
		return []Issue{{
			RowIndex:   rowIndex,
			ColumnName: mapper.FieldDigitalSameAsTV,
			Severity:   SeverityCritical,
			Message:    fmt.Sprintf("campaign %q runs both TV and Digital media; the digital-target flag is mandatory", campaign),
		}}
	case mc.HasTV:
		return []Issue{{
			RowIndex:   rowIndex,
			ColumnName: mapper.FieldDigitalSameAsTV,
			Severity:   SeverityWarning,
			Message:    fmt.Sprintf("campaign %q runs TV media; consider setting the digital-target flag", campaign),
		}}
	case mc.HasDigital:
		return []Issue{{
			RowIndex:   rowIndex,
			ColumnName: mapper.FieldDigitalSameAsTV,
			Severity:   SeverityWarning,
			Message:    fmt.Sprintf("campaign %q runs Digital media; consider setting the digital-target flag", campaign),
		}}
	}
	return nil
}

// checkNumerics flags unparseable budget/reach values. They are treated as
// zero downstream, so the severity is warning.
func (v *RowValidator) checkNumerics(rowIndex int, record mapper.TransformedRecord) []Issue {
	var issues []Issue

	for _, field := range numericFields {
		value := record[field]
		if parser.IsBlankNumeric(value) {
			continue
		}
		if _, _, err := parser.ParseBudget(value); err != nil {
			issues = append(issues, Issue{
				RowIndex:     rowIndex,
				ColumnName:   field,
				Severity:     SeverityWarning,
				Message:      fmt.Sprintf("%s is not a number and will be treated as zero", field),
				CurrentValue: value,
			})
		}
	}

	return issues
}

func (v *RowValidator) checkDates(rowIndex int, record mapper.TransformedRecord, missing map[string]bool) []Issue {
	var issues []Issue

	for _, field := range []string{mapper.FieldInitialDate, mapper.FieldEndDate} {
		if missing[field] {
			continue
		}
		value := strings.TrimSpace(record[field])
		if value == "" {
			continue
		}
		if _, err := parser.ParseDate(value); err != nil {
			issues = append(issues, Issue{
				RowIndex:     rowIndex,
				ColumnName:   field,
				Severity:     SeverityCritical,
				Message:      fmt.Sprintf("%s %q is not a recognized date", field, value),
				CurrentValue: value,
			})
		}
	}

	return issues
}

// Summarize computes severity counts from a full issue count breakdown
func Summarize(issues []Issue, rowsChecked int) Summary {
	s := Summary{RowsChecked: rowsChecked}
	for _, issue := range issues {
		switch issue.Severity {
		case SeverityCritical:
			s.Critical++
		case SeverityWarning:
			s.Warning++
		case SeveritySuggestion:
			s.Suggestion++
		}
	}
	s.Total = len(issues)
	return s
}
