// Package repository defines persistence for campaigns and game plans.
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Campaign is a named marketing campaign scoped to a range/country/year
type Campaign struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	RangeID     *uuid.UUID `json:"rangeId,omitempty"`
	CountryID   *uuid.UUID `json:"countryId,omitempty"`
	Year        int        `json:"year"`
	Burst       int        `json:"burst"`
	AutoCreated bool       `json:"autoCreated"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// GamePlan is one row of planned media spend
type GamePlan struct {
	ID             uuid.UUID        `json:"id" csv:"-"`
	CampaignID     uuid.UUID        `json:"campaignId" csv:"-"`
	CampaignName   string           `json:"campaignName" csv:"Campaign"`
	CountryID      uuid.UUID        `json:"countryId" csv:"-"`
	CountryName    string           `json:"countryName" csv:"Country"`
	MediaSubTypeID uuid.UUID        `json:"mediaSubTypeId" csv:"-"`
	MediaSubType   string           `json:"mediaSubType" csv:"Media Subtype"`
	MediaType      string           `json:"mediaType" csv:"Media"`
	BusinessUnitID *uuid.UUID       `json:"businessUnitId,omitempty" csv:"-"`
	PMTypeID       *uuid.UUID       `json:"pmTypeId,omitempty" csv:"-"`
	FinancialCycle string           `json:"financialCycle" csv:"Financial Cycle"`
	Burst          int              `json:"burst" csv:"Burst"`
	StartDate      *time.Time       `json:"startDate,omitempty" csv:"-"`
	EndDate        *time.Time       `json:"endDate,omitempty" csv:"-"`
	TotalBudget    decimal.Decimal  `json:"totalBudget" csv:"Budget"`
	Q1Budget       decimal.Decimal  `json:"q1Budget" csv:"Q1 Budget"`
	Q2Budget       decimal.Decimal  `json:"q2Budget" csv:"Q2 Budget"`
	Q3Budget       decimal.Decimal  `json:"q3Budget" csv:"Q3 Budget"`
	Q4Budget       decimal.Decimal  `json:"q4Budget" csv:"Q4 Budget"`
	TotalTRPs      *decimal.Decimal `json:"totalTrps,omitempty" csv:"-"`
	TotalR1Plus    *decimal.Decimal `json:"totalR1Plus,omitempty" csv:"-"`
	TotalR3Plus    *decimal.Decimal `json:"totalR3Plus,omitempty" csv:"-"`
	WeeklyReach    *decimal.Decimal `json:"weeklyReach,omitempty" csv:"-"`
	Year           int              `json:"year" csv:"Year"`
	CreatedAt      time.Time        `json:"createdAt" csv:"-"`
	UpdatedAt      time.Time        `json:"updatedAt" csv:"-"`
}

// GamePlanFilter narrows list queries
type GamePlanFilter struct {
	CountryID      *uuid.UUID
	FinancialCycle string
	Year           int
	Limit          int
	Offset         int
}

// MediaFamily summarizes which media families a campaign has plans for
type MediaFamily struct {
	HasTV      bool
	HasDigital bool
	PlanCount  int
}

// UpsertCampaignParams identifies a campaign by natural key
type UpsertCampaignParams struct {
	Name        string
	RangeID     *uuid.UUID
	CountryID   *uuid.UUID
	Year        int
	Burst       int
	AutoCreated bool
}

// Repository provides persistence for campaigns and game plans, plus the
// natural-key upserts used by the import committer.
type Repository interface {
	UpsertCountry(ctx context.Context, name string) (uuid.UUID, error)
	UpsertCategory(ctx context.Context, name string) (uuid.UUID, error)
	UpsertRange(ctx context.Context, name string, categoryID *uuid.UUID) (uuid.UUID, error)
	UpsertMediaType(ctx context.Context, name string) (uuid.UUID, error)
	UpsertMediaSubType(ctx context.Context, name string, mediaTypeID uuid.UUID) (uuid.UUID, error)
	UpsertBusinessUnit(ctx context.Context, name string) (uuid.UUID, error)
	UpsertPMType(ctx context.Context, name string) (uuid.UUID, error)
	UpsertCampaign(ctx context.Context, params UpsertCampaignParams) (uuid.UUID, error)

	CreateGamePlan(ctx context.Context, plan *GamePlan) error
	GetGamePlan(ctx context.Context, id uuid.UUID) (*GamePlan, error)
	UpdateGamePlan(ctx context.Context, plan *GamePlan) error
	DeleteGamePlan(ctx context.Context, id uuid.UUID) error
	ListGamePlans(ctx context.Context, filter GamePlanFilter) ([]*GamePlan, error)

	ListCampaigns(ctx context.Context, limit, offset int) ([]*Campaign, error)

	// CampaignMediaFamily inspects committed game plans for the campaign
	// within a country/cycle scope and reports its media families.
	CampaignMediaFamily(ctx context.Context, campaignName string, countryName string, financialCycle string) (*MediaFamily, error)
}
