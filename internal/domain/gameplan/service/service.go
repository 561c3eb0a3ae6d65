// Package service implements game-plan queries, mutations and exports.
package service

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/campaignops/mediaplanner/internal/domain/gameplan/repository"
)

const defaultPageSize = 50

// Service exposes game-plan operations to the HTTP layer
type Service struct {
	repo   repository.Repository
	logger *slog.Logger
}

// New creates the game-plan service
func New(repo repository.Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Get returns one game plan by id
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*repository.GamePlan, error) {
	return s.repo.GetGamePlan(ctx, id)
}

// List returns game plans matching the filter
func (s *Service) List(ctx context.Context, filter repository.GamePlanFilter) ([]*repository.GamePlan, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultPageSize
	}
	return s.repo.ListGamePlans(ctx, filter)
}

// Update persists edits to a game plan
func (s *Service) Update(ctx context.Context, plan *repository.GamePlan) error {
	return s.repo.UpdateGamePlan(ctx, plan)
}

// Delete removes a game plan
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.DeleteGamePlan(ctx, id)
}

// ListCampaigns returns campaigns for listing pages
func (s *Service) ListCampaigns(ctx context.Context, limit, offset int) ([]*repository.Campaign, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	return s.repo.ListCampaigns(ctx, limit, offset)
}

// ExportCSV renders the filtered game plans as a CSV document
func (s *Service) ExportCSV(ctx context.Context, filter repository.GamePlanFilter) ([]byte, error) {
	filter.Limit = 0 // exports are unbounded
	plans, err := s.repo.ListGamePlans(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list game plans for export: %w", err)
	}

	var buf bytes.Buffer
	if err := gocsv.Marshal(plans, &buf); err != nil {
		return nil, fmt.Errorf("failed to render CSV: %w", err)
	}
	return buf.Bytes(), nil
}

var exportHeaders = []string{
	"Campaign", "Country", "Media", "Media Subtype", "Financial Cycle", "Year", "Burst",
	"Initial Date", "End Date", "Budget", "Q1 Budget", "Q2 Budget", "Q3 Budget", "Q4 Budget",
}

// ExportXLSX renders the filtered game plans as a single-sheet workbook
func (s *Service) ExportXLSX(ctx context.Context, filter repository.GamePlanFilter) ([]byte, error) {
	filter.Limit = 0
	plans, err := s.repo.ListGamePlans(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list game plans for export: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Game Plans"
	f.SetSheetName("Sheet1", sheet)

	for col, header := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return nil, fmt.Errorf("failed to write header: %w", err)
		}
	}

	for row, plan := range plans {
		values := []any{
			plan.CampaignName,
			plan.CountryName,
			plan.MediaType,
			plan.MediaSubType,
			plan.FinancialCycle,
			plan.Year,
			plan.Burst,
			formatDate(plan.StartDate),
			formatDate(plan.EndDate),
			plan.TotalBudget.InexactFloat64(),
			plan.Q1Budget.InexactFloat64(),
			plan.Q2Budget.InexactFloat64(),
			plan.Q3Budget.InexactFloat64(),
			plan.Q4Budget.InexactFloat64(),
		}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return nil, fmt.Errorf("failed to write row %d: %w", row+2, err)
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to render workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}
