// Package masterdata loads and caches the reference entities used to
// validate and commit media-plan imports.
package masterdata

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Entity is a reference entity identified by id and name
type Entity struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// SubType is a media subtype linked to its parent media type
type SubType struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	MediaTypeID uuid.UUID `json:"mediaTypeId"`
}

// Repository provides read access to reference entities
type Repository interface {
	ListCountries(ctx context.Context) ([]Entity, error)
	ListCategories(ctx context.Context) ([]Entity, error)
	ListRanges(ctx context.Context) ([]Entity, error)
	ListMediaTypes(ctx context.Context) ([]Entity, error)
	ListMediaSubTypes(ctx context.Context) ([]SubType, error)
	ListBusinessUnits(ctx context.Context) ([]Entity, error)
	ListPMTypes(ctx context.Context) ([]Entity, error)
	ListCampaigns(ctx context.Context) ([]Entity, error)
}

// Querier is the subset of pgxpool.Pool the repository uses
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresRepository implements Repository using PostgreSQL
type PostgresRepository struct {
	pool Querier
}

// NewPostgresRepository creates a new PostgreSQL master-data repository
func NewPostgresRepository(pool Querier) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) listEntities(ctx context.Context, table string) ([]Entity, error) {
	query := fmt.Sprintf(`SELECT id, name FROM %s ORDER BY name`, table)

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", table, err)
	}
	defer rows.Close()

	var entities []Entity
	for rows.Next() {
		var e Entity
		if err := rows.Scan(&e.ID, &e.Name); err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", table, err)
		}
		entities = append(entities, e)
	}
	return entities, rows.Err()
}

func (r *PostgresRepository) ListCountries(ctx context.Context) ([]Entity, error) {
	return r.listEntities(ctx, "countries")
}

func (r *PostgresRepository) ListCategories(ctx context.Context) ([]Entity, error) {
	return r.listEntities(ctx, "categories")
}

func (r *PostgresRepository) ListRanges(ctx context.Context) ([]Entity, error) {
	return r.listEntities(ctx, "ranges")
}

func (r *PostgresRepository) ListMediaTypes(ctx context.Context) ([]Entity, error) {
	return r.listEntities(ctx, "media_types")
}

func (r *PostgresRepository) ListBusinessUnits(ctx context.Context) ([]Entity, error) {
	return r.listEntities(ctx, "business_units")
}

func (r *PostgresRepository) ListPMTypes(ctx context.Context) ([]Entity, error) {
	return r.listEntities(ctx, "pm_types")
}

func (r *PostgresRepository) ListCampaigns(ctx context.Context) ([]Entity, error) {
	query := `SELECT DISTINCT id, name FROM campaigns ORDER BY name`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list campaigns: %w", err)
	}
	defer rows.Close()

	var entities []Entity
	for rows.Next() {
		var e Entity
		if err := rows.Scan(&e.ID, &e.Name); err != nil {
			return nil, fmt.Errorf("failed to scan campaign row: %w", err)
		}
		entities = append(entities, e)
	}
	return entities, rows.Err()
}

func (r *PostgresRepository) ListMediaSubTypes(ctx context.Context) ([]SubType, error) {
	query := `SELECT id, name, media_type_id FROM media_sub_types ORDER BY name`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list media subtypes: %w", err)
	}
	defer rows.Close()

	var subtypes []SubType
	for rows.Next() {
		var st SubType
		if err := rows.Scan(&st.ID, &st.Name, &st.MediaTypeID); err != nil {
			return nil, fmt.Errorf("failed to scan media subtype row: %w", err)
		}
		subtypes = append(subtypes, st)
	}
	return subtypes, rows.Err()
}
