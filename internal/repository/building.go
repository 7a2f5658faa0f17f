package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"building-engine/internal/model"
)

const buildingColumns = `id, company_id, building_type_id, map_id, x, y,
		damage_percent, is_on_fire, is_collapsed, needs_profit_recalc,
		created_at, updated_at`

// BuildingRepository handles building data persistence.
type BuildingRepository struct {
	db DBTX
}

// NewBuildingRepository creates a new BuildingRepository instance.
func NewBuildingRepository(db DBTX) *BuildingRepository {
	return &BuildingRepository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *BuildingRepository) WithTx(tx pgx.Tx) *BuildingRepository {
	return &BuildingRepository{db: tx}
}

func scanBuilding(row pgx.Row) (*model.Building, error) {
	var b model.Building
	err := row.Scan(
		&b.ID,
		&b.CompanyID,
		&b.BuildingTypeID,
		&b.MapID,
		&b.X,
		&b.Y,
		&b.DamagePercent,
		&b.IsOnFire,
		&b.IsCollapsed,
		&b.NeedsProfitRecalc,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBuildingNotFound
		}
		return nil, fmt.Errorf("failed to scan building: %w", err)
	}
	return &b, nil
}

// GetByID retrieves a building by its ID.
// Returns ErrBuildingNotFound if the building does not exist.
func (r *BuildingRepository) GetByID(ctx context.Context, id int64) (*model.Building, error) {
	query := `SELECT ` + buildingColumns + ` FROM buildings WHERE id = $1`
	return scanBuilding(r.db.QueryRow(ctx, query, id))
}

// GetForUpdate retrieves a building by ID with a row lock.
// Must be called inside a transaction; the lock is held until commit.
func (r *BuildingRepository) GetForUpdate(ctx context.Context, id int64) (*model.Building, error) {
	query := `SELECT ` + buildingColumns + ` FROM buildings WHERE id = $1 FOR UPDATE`
	return scanBuilding(r.db.QueryRow(ctx, query, id))
}

// GetBaseCost returns the base monetary cost of the building's type.
func (r *BuildingRepository) GetBaseCost(ctx context.Context, buildingTypeID int64) (int64, error) {
	const query = `SELECT base_cost FROM building_types WHERE id = $1`

	var baseCost int64
	err := r.db.QueryRow(ctx, query, buildingTypeID).Scan(&baseCost)
	if err != nil {
		return 0, fmt.Errorf("failed to get base cost: %w", err)
	}
	return baseCost, nil
}

// ApplyDamage sets the building's damage and fire state, guarded on the
// damage value the caller read. Returns false if a concurrent mutation
// changed the building first.
func (r *BuildingRepository) ApplyDamage(ctx context.Context, id int64, newDamage int, onFire bool, expectedDamage int) (bool, error) {
	const query = `
		UPDATE buildings
		SET damage_percent = $2, is_on_fire = $3, updated_at = NOW()
		WHERE id = $1 AND damage_percent = $4 AND NOT is_collapsed
	`

	result, err := r.db.Exec(ctx, query, id, newDamage, onFire, expectedDamage)
	if err != nil {
		return false, fmt.Errorf("failed to apply damage: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// Repair resets damage to zero and flags the building for profit
// recalculation, guarded on the damage value the cost was computed from.
func (r *BuildingRepository) Repair(ctx context.Context, id int64, expectedDamage int) (bool, error) {
	const query = `
		UPDATE buildings
		SET damage_percent = 0, needs_profit_recalc = TRUE, updated_at = NOW()
		WHERE id = $1 AND damage_percent = $2 AND NOT is_on_fire AND NOT is_collapsed
	`

	result, err := r.db.Exec(ctx, query, id, expectedDamage)
	if err != nil {
		return false, fmt.Errorf("failed to repair building: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// Extinguish clears the fire flag. Returns false if the building was not
// on fire anymore, so a racing request fails cleanly.
func (r *BuildingRepository) Extinguish(ctx context.Context, id int64) (bool, error) {
	const query = `
		UPDATE buildings
		SET is_on_fire = FALSE, updated_at = NOW()
		WHERE id = $1 AND is_on_fire AND NOT is_collapsed
	`

	result, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("failed to extinguish building: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// MarkNeighborsDirty flags every building within the given radius of the
// tile (excluding the tile itself) as needing profit recalculation.
// Only rows not already flagged are touched, which makes repeated calls
// no-ops. Returns the number of buildings newly flagged.
func (r *BuildingRepository) MarkNeighborsDirty(ctx context.Context, mapID int64, x, y, radius int) (int64, error) {
	const query = `
		UPDATE buildings
		SET needs_profit_recalc = TRUE, updated_at = NOW()
		WHERE map_id = $1
		  AND x BETWEEN $2 - $4 AND $2 + $4
		  AND y BETWEEN $3 - $4 AND $3 + $4
		  AND NOT (x = $2 AND y = $3)
		  AND NOT needs_profit_recalc
	`

	result, err := r.db.Exec(ctx, query, mapID, x, y, radius)
	if err != nil {
		return 0, fmt.Errorf("failed to mark neighbors dirty: %w", err)
	}
	return result.RowsAffected(), nil
}

// ListDirty retrieves buildings flagged for profit recalculation on a map.
// The external recalculation pass consumes these rows; the engine only
// ever sets the flag.
func (r *BuildingRepository) ListDirty(ctx context.Context, mapID int64, limit int) ([]*model.Building, error) {
	query := `
		SELECT ` + buildingColumns + `
		FROM buildings
		WHERE map_id = $1 AND needs_profit_recalc
		ORDER BY id
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, mapID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list dirty buildings: %w", err)
	}
	defer rows.Close()

	var buildings []*model.Building
	for rows.Next() {
		b, err := scanBuilding(rows)
		if err != nil {
			return nil, err
		}
		buildings = append(buildings, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating buildings: %w", err)
	}

	return buildings, nil
}

// Create inserts a new building. Placement itself is handled elsewhere;
// this exists for seeding and tests.
func (r *BuildingRepository) Create(ctx context.Context, companyID *int64, buildingTypeID, mapID int64, x, y int) (*model.Building, error) {
	query := `
		INSERT INTO buildings (company_id, building_type_id, map_id, x, y,
			damage_percent, is_on_fire, is_collapsed, needs_profit_recalc,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 0, FALSE, FALSE, FALSE, NOW(), NOW())
		RETURNING ` + buildingColumns

	return scanBuilding(r.db.QueryRow(ctx, query, companyID, buildingTypeID, mapID, x, y))
}

// SetState overwrites the damage/fire/collapse flags directly.
// Used by seeding and tests to arrange specific building states.
func (r *BuildingRepository) SetState(ctx context.Context, id int64, damage int, onFire, collapsed bool) error {
	const query = `
		UPDATE buildings
		SET damage_percent = $2, is_on_fire = $3, is_collapsed = $4, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.db.Exec(ctx, query, id, damage, onFire, collapsed)
	if err != nil {
		return fmt.Errorf("failed to set building state: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrBuildingNotFound
	}
	return nil
}
