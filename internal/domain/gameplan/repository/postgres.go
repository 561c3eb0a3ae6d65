package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of pgxpool.Pool the repository uses. Narrowed to an
// interface so tests can substitute a mock pool.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresRepository implements Repository using PostgreSQL
type PostgresRepository struct {
	pool DB
}

// NewPostgresRepository creates a new PostgreSQL game-plan repository
func NewPostgresRepository(pool DB) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// upsertByName inserts or returns an entity keyed by its unique name.
// ON CONFLICT DO UPDATE rather than DO NOTHING so RETURNING always yields
// the id, which also makes concurrent imports of the same new name safe.
func (r *PostgresRepository) upsertByName(ctx context.Context, table, name string) (uuid.UUID, error) {
	query := fmt.Sprintf(`
		INSERT INTO %s (name) VALUES ($1)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id`, table)

	var id uuid.UUID
	if err := r.pool.QueryRow(ctx, query, strings.TrimSpace(name)).Scan(&id); err != nil {
		return uuid.Nil, fmt.Errorf("failed to upsert %s %q: %w", table, name, err)
	}
	return id, nil
}

func (r *PostgresRepository) UpsertCountry(ctx context.Context, name string) (uuid.UUID, error) {
	return r.upsertByName(ctx, "countries", name)
}

func (r *PostgresRepository) UpsertCategory(ctx context.Context, name string) (uuid.UUID, error) {
	return r.upsertByName(ctx, "categories", name)
}

func (r *PostgresRepository) UpsertMediaType(ctx context.Context, name string) (uuid.UUID, error) {
	return r.upsertByName(ctx, "media_types", name)
}

func (r *PostgresRepository) UpsertBusinessUnit(ctx context.Context, name string) (uuid.UUID, error) {
	return r.upsertByName(ctx, "business_units", name)
}

func (r *PostgresRepository) UpsertPMType(ctx context.Context, name string) (uuid.UUID, error) {
	return r.upsertByName(ctx, "pm_types", name)
}

func (r *PostgresRepository) UpsertRange(ctx context.Context, name string, categoryID *uuid.UUID) (uuid.UUID, error) {
	query := `
		INSERT INTO ranges (name, category_id) VALUES ($1, $2)
		ON CONFLICT (name, category_id) DO UPDATE SET name = EXCLUDED.name
		RETURNING id`

	var id uuid.UUID
	if err := r.pool.QueryRow(ctx, query, strings.TrimSpace(name), categoryID).Scan(&id); err != nil {
		return uuid.Nil, fmt.Errorf("failed to upsert range %q: %w", name, err)
	}
	return id, nil
}

func (r *PostgresRepository) UpsertMediaSubType(ctx context.Context, name string, mediaTypeID uuid.UUID) (uuid.UUID, error) {
	query := `
		INSERT INTO media_sub_types (name, media_type_id) VALUES ($1, $2)
		ON CONFLICT (name, media_type_id) DO UPDATE SET name = EXCLUDED.name
		RETURNING id`

	var id uuid.UUID
	if err := r.pool.QueryRow(ctx, query, strings.TrimSpace(name), mediaTypeID).Scan(&id); err != nil {
		return uuid.Nil, fmt.Errorf("failed to upsert media subtype %q: %w", name, err)
	}
	return id, nil
}

func (r *PostgresRepository) UpsertCampaign(ctx context.Context, params UpsertCampaignParams) (uuid.UUID, error) {
	query := `
		INSERT INTO campaigns (name, range_id, country_id, year, burst, auto_created)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (name, range_id, country_id, year, burst)
		DO UPDATE SET name = EXCLUDED.name
		RETURNING id`

	var id uuid.UUID
	err := r.pool.QueryRow(ctx, query,
		strings.TrimSpace(params.Name),
		params.RangeID,
		params.CountryID,
		params.Year,
		params.Burst,
		params.AutoCreated,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to upsert campaign %q: %w", params.Name, err)
	}
	return id, nil
}

const gamePlanColumns = `
	gp.id, gp.campaign_id, c.name, gp.country_id, co.name,
	gp.media_sub_type_id, mst.name, mt.name,
	gp.business_unit_id, gp.pm_type_id, gp.financial_cycle, gp.burst,
	gp.start_date, gp.end_date,
	gp.total_budget, gp.q1_budget, gp.q2_budget, gp.q3_budget, gp.q4_budget,
	gp.total_trps, gp.total_r1_plus, gp.total_r3_plus, gp.weekly_reach,
	gp.year, gp.created_at, gp.updated_at`

const gamePlanJoins = `
	FROM game_plans gp
	JOIN campaigns c ON c.id = gp.campaign_id
	JOIN countries co ON co.id = gp.country_id
	JOIN media_sub_types mst ON mst.id = gp.media_sub_type_id
	JOIN media_types mt ON mt.id = mst.media_type_id`

func scanGamePlan(row pgx.Row) (*GamePlan, error) {
	plan := &GamePlan{}
	err := row.Scan(
		&plan.ID, &plan.CampaignID, &plan.CampaignName, &plan.CountryID, &plan.CountryName,
		&plan.MediaSubTypeID, &plan.MediaSubType, &plan.MediaType,
		&plan.BusinessUnitID, &plan.PMTypeID, &plan.FinancialCycle, &plan.Burst,
		&plan.StartDate, &plan.EndDate,
		&plan.TotalBudget, &plan.Q1Budget, &plan.Q2Budget, &plan.Q3Budget, &plan.Q4Budget,
		&plan.TotalTRPs, &plan.TotalR1Plus, &plan.TotalR3Plus, &plan.WeeklyReach,
		&plan.Year, &plan.CreatedAt, &plan.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return plan, nil
}

func (r *PostgresRepository) CreateGamePlan(ctx context.Context, plan *GamePlan) error {
	query := `
		INSERT INTO game_plans (
			campaign_id, country_id, media_sub_type_id, business_unit_id, pm_type_id,
			financial_cycle, burst, start_date, end_date,
			total_budget, q1_budget, q2_budget, q3_budget, q4_budget,
			total_trps, total_r1_plus, total_r3_plus, weekly_reach, year
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		ON CONFLICT (campaign_id, country_id, media_sub_type_id, financial_cycle, burst)
		DO UPDATE SET
			total_budget = EXCLUDED.total_budget,
			q1_budget = EXCLUDED.q1_budget,
			q2_budget = EXCLUDED.q2_budget,
			q3_budget = EXCLUDED.q3_budget,
			q4_budget = EXCLUDED.q4_budget,
			total_trps = EXCLUDED.total_trps,
			total_r1_plus = EXCLUDED.total_r1_plus,
			total_r3_plus = EXCLUDED.total_r3_plus,
			weekly_reach = EXCLUDED.weekly_reach,
			start_date = EXCLUDED.start_date,
			end_date = EXCLUDED.end_date,
			updated_at = now()
		RETURNING id, created_at, updated_at`

	err := r.pool.QueryRow(ctx, query,
		plan.CampaignID, plan.CountryID, plan.MediaSubTypeID, plan.BusinessUnitID, plan.PMTypeID,
		plan.FinancialCycle, plan.Burst, plan.StartDate, plan.EndDate,
		plan.TotalBudget, plan.Q1Budget, plan.Q2Budget, plan.Q3Budget, plan.Q4Budget,
		plan.TotalTRPs, plan.TotalR1Plus, plan.TotalR3Plus, plan.WeeklyReach, plan.Year,
	).Scan(&plan.ID, &plan.CreatedAt, &plan.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create game plan: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetGamePlan(ctx context.Context, id uuid.UUID) (*GamePlan, error) {
	query := `SELECT` + gamePlanColumns + gamePlanJoins + ` WHERE gp.id = $1`

	plan, err := scanGamePlan(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sql.ErrNoRows
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get game plan: %w", err)
	}
	return plan, nil
}

func (r *PostgresRepository) UpdateGamePlan(ctx context.Context, plan *GamePlan) error {
	query := `
		UPDATE game_plans
		SET financial_cycle = $2, burst = $3, start_date = $4, end_date = $5,
			total_budget = $6, q1_budget = $7, q2_budget = $8, q3_budget = $9, q4_budget = $10,
			total_trps = $11, total_r1_plus = $12, total_r3_plus = $13, weekly_reach = $14,
			year = $15, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`

	err := r.pool.QueryRow(ctx, query,
		plan.ID, plan.FinancialCycle, plan.Burst, plan.StartDate, plan.EndDate,
		plan.TotalBudget, plan.Q1Budget, plan.Q2Budget, plan.Q3Budget, plan.Q4Budget,
		plan.TotalTRPs, plan.TotalR1Plus, plan.TotalR3Plus, plan.WeeklyReach,
		plan.Year,
	).Scan(&plan.UpdatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return sql.ErrNoRows
	}
	if err != nil {
		return fmt.Errorf("failed to update game plan: %w", err)
	}
	return nil
}

func (r *PostgresRepository) DeleteGamePlan(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM game_plans WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete game plan: %w", err)
	}
	if result.RowsAffected() == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *PostgresRepository) ListGamePlans(ctx context.Context, filter GamePlanFilter) ([]*GamePlan, error) {
	query := `SELECT` + gamePlanColumns + gamePlanJoins + ` WHERE 1=1`
	args := []any{}

	if filter.CountryID != nil {
		args = append(args, *filter.CountryID)
		query += fmt.Sprintf(` AND gp.country_id = $%d`, len(args))
	}
	if filter.FinancialCycle != "" {
		args = append(args, filter.FinancialCycle)
		query += fmt.Sprintf(` AND gp.financial_cycle = $%d`, len(args))
	}
	if filter.Year > 0 {
		args = append(args, filter.Year)
		query += fmt.Sprintf(` AND gp.year = $%d`, len(args))
	}

	query += ` ORDER BY c.name, gp.burst`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(` OFFSET $%d`, len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list game plans: %w", err)
	}
	defer rows.Close()

	var plans []*GamePlan
	for rows.Next() {
		plan, err := scanGamePlan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan game plan: %w", err)
		}
		plans = append(plans, plan)
	}
	return plans, rows.Err()
}

func (r *PostgresRepository) ListCampaigns(ctx context.Context, limit, offset int) ([]*Campaign, error) {
	query := `
		SELECT id, name, range_id, country_id, year, burst, auto_created, created_at
		FROM campaigns
		ORDER BY name
		LIMIT $1 OFFSET $2`

	if limit <= 0 {
		limit = 100
	}

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list campaigns: %w", err)
	}
	defer rows.Close()

	var campaigns []*Campaign
	for rows.Next() {
		c := &Campaign{}
		if err := rows.Scan(&c.ID, &c.Name, &c.RangeID, &c.CountryID, &c.Year, &c.Burst, &c.AutoCreated, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan campaign: %w", err)
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, rows.Err()
}

// CampaignMediaFamily classifies the campaign's committed plans by media
// type name. "TV" and "Traditional" count as the TV family.
func (r *PostgresRepository) CampaignMediaFamily(ctx context.Context, campaignName, countryName, financialCycle string) (*MediaFamily, error) {
	query := `
		SELECT mt.name, COUNT(*)
		FROM game_plans gp
		JOIN campaigns c ON c.id = gp.campaign_id
		JOIN countries co ON co.id = gp.country_id
		JOIN media_sub_types mst ON mst.id = gp.media_sub_type_id
		JOIN media_types mt ON mt.id = mst.media_type_id
		WHERE c.name = $1 AND co.name = $2 AND gp.financial_cycle = $3
		GROUP BY mt.name`

	rows, err := r.pool.Query(ctx, query, campaignName, countryName, financialCycle)
	if err != nil {
		return nil, fmt.Errorf("failed to query campaign media family: %w", err)
	}
	defer rows.Close()

	family := &MediaFamily{}
	for rows.Next() {
		var mediaType string
		var count int
		if err := rows.Scan(&mediaType, &count); err != nil {
			return nil, fmt.Errorf("failed to scan media family row: %w", err)
		}
		family.PlanCount += count

		upper := strings.ToUpper(mediaType)
		switch {
		case strings.Contains(upper, "TV") || strings.Contains(upper, "TRADITIONAL"):
			family.HasTV = true
		case strings.Contains(upper, "DIGITAL"):
			family.HasDigital = true
		}
	}
	return family, rows.Err()
}
