// Package committer replays a validated import session against the
// relational schema, upserting reference entities and creating game plans.
package committer

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	gameplanrepo "github.com/campaignops/mediaplanner/internal/domain/gameplan/repository"
	"github.com/campaignops/mediaplanner/internal/domain/import/mapper"
	"github.com/campaignops/mediaplanner/internal/domain/import/parser"
	"github.com/campaignops/mediaplanner/internal/domain/import/session"
	"github.com/campaignops/mediaplanner/internal/domain/import/validator"
)

// commitBatchSize bounds the blast radius of a failing batch
const commitBatchSize = 10

// RecordError is a per-record commit failure
type RecordError struct {
	RowIndex int    `json:"rowIndex"`
	Message  string `json:"message"`
}

// EntityCounts aggregates created/resolved entities per type
type EntityCounts struct {
	Countries     int `json:"countries"`
	Categories    int `json:"categories"`
	Ranges        int `json:"ranges"`
	MediaTypes    int `json:"mediaTypes"`
	MediaSubTypes int `json:"mediaSubTypes"`
	Campaigns     int `json:"campaigns"`
	GamePlans     int `json:"gamePlans"`
}

// Result is the final outcome of a commit
type Result struct {
	RecordsTotal     int           `json:"recordsTotal"`
	RecordsCommitted int           `json:"recordsCommitted"`
	RecordsSkipped   int           `json:"recordsSkipped"`
	RecordsFailed    int           `json:"recordsFailed"`
	Entities         EntityCounts  `json:"entities"`
	AutoCreated      []string      `json:"autoCreated"`
	Errors           []RecordError `json:"errors"`
}

// ErrCriticalIssues is returned when a session still has critical
// validation issues at commit time.
type ErrCriticalIssues struct {
	Count int
}

func (e *ErrCriticalIssues) Error() string {
	return fmt.Sprintf("session has %d critical validation issues; fix them and re-upload", e.Count)
}

// Committer writes validated session records to the database
type Committer struct {
	repo   gameplanrepo.Repository
	store  *session.Store
	logger *slog.Logger
}

// New creates a committer
func New(repo gameplanrepo.Repository, store *session.Store, logger *slog.Logger) *Committer {
	return &Committer{repo: repo, store: store, logger: logger}
}

// Commit replays every record of the session. Records whose rows carry
// critical issues are skipped; any remaining critical issue blocks the
// whole commit before a single write happens. Per-record failures are
// logged and collected, never fatal. Progress is written back into the
// session store after each batch.
func (c *Committer) Commit(ctx context.Context, sess *session.Session) (*Result, error) {
	if sess.Validation != nil && sess.Validation.Summary.Critical > 0 {
		return nil, &ErrCriticalIssues{Count: sess.Validation.Summary.Critical}
	}

	result := &Result{RecordsTotal: len(sess.Records)}
	autoCreated := make(map[string]bool)

	sess.Status = session.StatusImporting
	sess.Progress = &session.Progress{Total: len(sess.Records)}
	c.saveProgress(sess, 0, "starting import")

	for start := 0; start < len(sess.Records); start += commitBatchSize {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		end := start + commitBatchSize
		if end > len(sess.Records) {
			end = len(sess.Records)
		}

		for i := start; i < end; i++ {
			// Second line of defense: rows with critical issues never
			// reach the database even if the session-level gate was
			// bypassed.
			if HasCriticalIssueForRow(sess.Validation, i) {
				result.RecordsSkipped++
				continue
			}
			if err := c.commitRecord(ctx, sess, i, result, autoCreated); err != nil {
				result.RecordsFailed++
				result.Errors = append(result.Errors, RecordError{
					RowIndex: i,
					Message:  err.Error(),
				})
				c.logger.Warn("failed to commit record",
					slog.String("session", sess.ID),
					slog.Int("row", i),
					slog.Any("error", err),
				)
			}
		}

		c.saveProgress(sess, end, fmt.Sprintf("processed %d of %d records", end, len(sess.Records)))
	}

	for name := range autoCreated {
		result.AutoCreated = append(result.AutoCreated, name)
	}

	sess.Status = session.StatusImported
	c.saveProgress(sess, len(sess.Records), "import complete")

	return result, nil
}

func (c *Committer) saveProgress(sess *session.Session, current int, message string) {
	sess.Progress.Current = current
	if sess.Progress.Total > 0 {
		sess.Progress.Percentage = current * 100 / sess.Progress.Total
	} else {
		sess.Progress.Percentage = 100
	}
	sess.Progress.LastMessage = message
	if err := c.store.Save(sess); err != nil {
		c.logger.Warn("failed to persist import progress",
			slog.String("session", sess.ID), slog.Any("error", err))
	}
}

// commitRecord upserts every referenced entity and creates the game plan.
// Records with missing required fields are skipped, they were already
// reported as critical during validation of their own row.
func (c *Committer) commitRecord(ctx context.Context, sess *session.Session, idx int, result *Result, autoCreated map[string]bool) error {
	record := sess.Records[idx]

	campaignName := strings.TrimSpace(record[mapper.FieldCampaign])
	countryName := strings.TrimSpace(record[mapper.FieldCountry])
	categoryName := strings.TrimSpace(record[mapper.FieldCategory])
	rangeName := strings.TrimSpace(record[mapper.FieldRange])
	mediaType := strings.TrimSpace(record[mapper.FieldMedia])
	mediaSubType := strings.TrimSpace(record[mapper.FieldMediaSubtype])

	if campaignName == "" || countryName == "" || mediaType == "" || mediaSubType == "" {
		result.RecordsSkipped++
		return nil
	}

	countryID, err := c.repo.UpsertCountry(ctx, countryName)
	if err != nil {
		return err
	}
	result.Entities.Countries++

	var rangeID *uuid.UUID
	if rangeName != "" {
		var categoryID *uuid.UUID
		if categoryName != "" {
			id, err := c.repo.UpsertCategory(ctx, categoryName)
			if err != nil {
				return err
			}
			result.Entities.Categories++
			categoryID = &id
		}

		id, err := c.repo.UpsertRange(ctx, rangeName, categoryID)
		if err != nil {
			return err
		}
		result.Entities.Ranges++
		rangeID = &id

		if sess.MasterData != nil && !sess.MasterData.HasRange(rangeName) {
			autoCreated["range:"+rangeName] = true
		}
	}

	mediaTypeID, err := c.repo.UpsertMediaType(ctx, mediaType)
	if err != nil {
		return err
	}
	result.Entities.MediaTypes++

	mediaSubTypeID, err := c.repo.UpsertMediaSubType(ctx, mediaSubType, mediaTypeID)
	if err != nil {
		return err
	}
	result.Entities.MediaSubTypes++

	var businessUnitID *uuid.UUID
	if bu := strings.TrimSpace(record[mapper.FieldBusinessUnit]); bu != "" {
		id, err := c.repo.UpsertBusinessUnit(ctx, bu)
		if err != nil {
			return err
		}
		businessUnitID = &id
	}

	var pmTypeID *uuid.UUID
	if pm := strings.TrimSpace(record[mapper.FieldPMType]); pm != "" {
		id, err := c.repo.UpsertPMType(ctx, pm)
		if err != nil {
			return err
		}
		pmTypeID = &id
	}

	year := parseIntField(record[mapper.FieldYear])
	burst := parseIntField(record[mapper.FieldBurst])
	if burst == 0 {
		burst = 1
	}

	campaignID, err := c.repo.UpsertCampaign(ctx, gameplanrepo.UpsertCampaignParams{
		Name:        campaignName,
		RangeID:     rangeID,
		CountryID:   &countryID,
		Year:        year,
		Burst:       burst,
		AutoCreated: sess.MasterData != nil && !sess.MasterData.HasCampaign(campaignName),
	})
	if err != nil {
		return err
	}
	result.Entities.Campaigns++

	if sess.MasterData != nil && !sess.MasterData.HasCampaign(campaignName) {
		autoCreated["campaign:"+campaignName] = true
	}

	plan := &gameplanrepo.GamePlan{
		CampaignID:     campaignID,
		CountryID:      countryID,
		MediaSubTypeID: mediaSubTypeID,
		BusinessUnitID: businessUnitID,
		PMTypeID:       pmTypeID,
		FinancialCycle: sess.FinancialCycle,
		Burst:          burst,
		StartDate:      parseDateField(record[mapper.FieldInitialDate]),
		EndDate:        parseDateField(record[mapper.FieldEndDate]),
		TotalBudget:    parseBudgetField(record[mapper.FieldTotalBudget]),
		Q1Budget:       parseBudgetField(record[mapper.FieldQ1Budget]),
		Q2Budget:       parseBudgetField(record[mapper.FieldQ2Budget]),
		Q3Budget:       parseBudgetField(record[mapper.FieldQ3Budget]),
		Q4Budget:       parseBudgetField(record[mapper.FieldQ4Budget]),
		TotalTRPs:      parseOptionalBudget(record[mapper.FieldTotalTRPs]),
		TotalR1Plus:    parseOptionalBudget(record[mapper.FieldTotalR1Plus]),
		TotalR3Plus:    parseOptionalBudget(record[mapper.FieldTotalR3Plus]),
		WeeklyReach:    parseOptionalBudget(record[mapper.FieldWeeklyReach]),
		Year:           year,
	}

	if err := c.repo.CreateGamePlan(ctx, plan); err != nil {
		return err
	}
	result.Entities.GamePlans++
	result.RecordsCommitted++

	return nil
}

// HasCriticalIssueForRow reports whether a row carries a critical issue.
// Used to exclude such rows from commit aggregates.
func HasCriticalIssueForRow(res *validator.Result, rowIndex int) bool {
	if res == nil {
		return false
	}
	for _, issue := range res.Issues {
		if issue.RowIndex == rowIndex && issue.Severity == validator.SeverityCritical {
			return true
		}
	}
	return false
}

func parseIntField(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

func parseDateField(s string) *time.Time {
	t, err := parser.ParseDate(s)
	if err != nil {
		return nil
	}
	return &t
}

// parseBudgetField treats blank and unparseable values as zero, matching
// the warning the validator already raised.
func parseBudgetField(s string) decimal.Decimal {
	d, ok, err := parser.ParseBudget(s)
	if err != nil || !ok {
		return decimal.Zero
	}
	return d
}

func parseOptionalBudget(s string) *decimal.Decimal {
	d, ok, err := parser.ParseBudget(s)
	if err != nil || !ok {
		return nil
	}
	return &d
}
