package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/north-cloud/list-pages/internal/domain"
)

// Repository persists list page configurations, one per owner.
type Repository struct {
	db *sqlx.DB
}

// NewRepository creates a repository over db.
func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

type configurationRow struct {
	ID               uuid.UUID `db:"id"`
	OwnerID          string    `db:"owner_id"`
	SourceEntityType string    `db:"source_entity_type"`
	SourceBundle     string    `db:"source_bundle"`
	ExposedFilters   []byte    `db:"exposed_filters"`
	PresetFilters    []byte    `db:"preset_filters"`
	Limit            int       `db:"result_limit"`
	CreatedAt        time.Time `db:"created_at"`
	UpdatedAt        time.Time `db:"updated_at"`
}

func (r configurationRow) toDomain() (*domain.ListPageConfiguration, error) {
	cfg := &domain.ListPageConfiguration{
		ID:               r.ID,
		OwnerID:          r.OwnerID,
		SourceEntityType: r.SourceEntityType,
		SourceBundle:     r.SourceBundle,
		Limit:            r.Limit,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
	if len(r.ExposedFilters) > 0 {
		if err := json.Unmarshal(r.ExposedFilters, &cfg.ExposedFilters); err != nil {
			return nil, fmt.Errorf("unmarshal exposed filters: %w", err)
		}
	}
	if len(r.PresetFilters) > 0 {
		if err := json.Unmarshal(r.PresetFilters, &cfg.PresetFilters); err != nil {
			return nil, fmt.Errorf("unmarshal preset filters: %w", err)
		}
	}
	return cfg, nil
}

const selectConfiguration = `
	SELECT id, owner_id, source_entity_type, source_bundle,
	       exposed_filters, preset_filters, result_limit, created_at, updated_at
	FROM list_page_configurations
`

// Get returns the configuration of ownerID, or ErrConfigurationNotFound.
func (r *Repository) Get(ctx context.Context, ownerID string) (*domain.ListPageConfiguration, error) {
	var row configurationRow
	err := r.db.GetContext(ctx, &row, selectConfiguration+`WHERE owner_id = $1`, ownerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("owner %s: %w", ownerID, domain.ErrConfigurationNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query configuration: %w", err)
	}
	return row.toDomain()
}

// List returns every stored configuration ordered by owner.
func (r *Repository) List(ctx context.Context) ([]*domain.ListPageConfiguration, error) {
	var rows []configurationRow
	if err := r.db.SelectContext(ctx, &rows, selectConfiguration+`ORDER BY owner_id`); err != nil {
		return nil, fmt.Errorf("list configurations: %w", err)
	}

	out := make([]*domain.ListPageConfiguration, 0, len(rows))
	for _, row := range rows {
		cfg, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, cfg)
	}
	return out, nil
}

// Save inserts or replaces the configuration of cfg.OwnerID. The id and
// timestamps of cfg are updated from the stored row. created reports whether
// the row is new.
func (r *Repository) Save(ctx context.Context, cfg *domain.ListPageConfiguration) (created bool, err error) {
	exposed, err := json.Marshal(nonNilStrings(cfg.ExposedFilters))
	if err != nil {
		return false, fmt.Errorf("marshal exposed filters: %w", err)
	}
	presets := cfg.PresetFilters
	if presets == nil {
		presets = map[string]domain.PresetFilter{}
	}
	presetJSON, err := json.Marshal(presets)
	if err != nil {
		return false, fmt.Errorf("marshal preset filters: %w", err)
	}

	if cfg.ID == uuid.Nil {
		cfg.ID = uuid.New()
	}

	query := `
		INSERT INTO list_page_configurations (
			id, owner_id, source_entity_type, source_bundle,
			exposed_filters, preset_filters, result_limit, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		ON CONFLICT (owner_id) DO UPDATE SET
			source_entity_type = EXCLUDED.source_entity_type,
			source_bundle = EXCLUDED.source_bundle,
			exposed_filters = EXCLUDED.exposed_filters,
			preset_filters = EXCLUDED.preset_filters,
			result_limit = EXCLUDED.result_limit,
			updated_at = NOW()
		RETURNING id, created_at, updated_at, (xmax = 0) AS inserted
	`

	var stored struct {
		ID        uuid.UUID `db:"id"`
		CreatedAt time.Time `db:"created_at"`
		UpdatedAt time.Time `db:"updated_at"`
		Inserted  bool      `db:"inserted"`
	}
	err = r.db.QueryRowxContext(ctx, query,
		cfg.ID,
		cfg.OwnerID,
		cfg.SourceEntityType,
		cfg.SourceBundle,
		exposed,
		presetJSON,
		cfg.Limit,
	).StructScan(&stored)
	if err != nil {
		return false, fmt.Errorf("upsert configuration: %w", err)
	}

	cfg.ID = stored.ID
	cfg.CreatedAt = stored.CreatedAt
	cfg.UpdatedAt = stored.UpdatedAt
	return stored.Inserted, nil
}

// Delete removes the configuration of ownerID.
func (r *Repository) Delete(ctx context.Context, ownerID string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM list_page_configurations WHERE owner_id = $1`, ownerID)
	if err != nil {
		return fmt.Errorf("delete configuration: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("owner %s: %w", ownerID, domain.ErrConfigurationNotFound)
	}
	return nil
}

// Ping checks the connection.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func nonNilStrings(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
