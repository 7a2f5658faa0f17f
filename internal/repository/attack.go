package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"building-engine/internal/model"
)

// AttackRepository handles trick record persistence.
// Tricks are historical records: they are marked cleaned, never deleted.
type AttackRepository struct {
	db DBTX
}

// NewAttackRepository creates a new AttackRepository instance.
func NewAttackRepository(db DBTX) *AttackRepository {
	return &AttackRepository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *AttackRepository) WithTx(tx pgx.Tx) *AttackRepository {
	return &AttackRepository{db: tx}
}

// Create records a new uncleaned trick against a building.
func (r *AttackRepository) Create(ctx context.Context, buildingID int64, trickType model.TrickType) (*model.Attack, error) {
	const query = `
		INSERT INTO attacks (building_id, trick_type, is_cleaned, created_at)
		VALUES ($1, $2, FALSE, NOW())
		RETURNING id, building_id, trick_type, is_cleaned, created_at
	`

	var a model.Attack
	err := r.db.QueryRow(ctx, query, buildingID, trickType).Scan(
		&a.ID,
		&a.BuildingID,
		&a.TrickType,
		&a.IsCleaned,
		&a.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create attack: %w", err)
	}

	return &a, nil
}

// CountUncleanedCosmetic counts the uncleaned tricks on a building,
// excluding fire-causing ones (those belong to the extinguish path).
func (r *AttackRepository) CountUncleanedCosmetic(ctx context.Context, buildingID int64) (int, error) {
	const query = `
		SELECT COUNT(*)
		FROM attacks
		WHERE building_id = $1 AND NOT is_cleaned AND trick_type <> $2
	`

	var count int
	err := r.db.QueryRow(ctx, query, buildingID, model.TrickArson).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count uncleaned attacks: %w", err)
	}
	return count, nil
}

// CleanCosmetic marks every uncleaned non-fire trick on the building as
// cleaned and returns how many were marked.
func (r *AttackRepository) CleanCosmetic(ctx context.Context, buildingID int64) (int64, error) {
	const query = `
		UPDATE attacks
		SET is_cleaned = TRUE
		WHERE building_id = $1 AND NOT is_cleaned AND trick_type <> $2
	`

	result, err := r.db.Exec(ctx, query, buildingID, model.TrickArson)
	if err != nil {
		return 0, fmt.Errorf("failed to clean attacks: %w", err)
	}
	return result.RowsAffected(), nil
}

// CleanFireCausing marks every uncleaned fire-causing trick on the building
// as cleaned and returns how many were marked.
func (r *AttackRepository) CleanFireCausing(ctx context.Context, buildingID int64) (int64, error) {
	const query = `
		UPDATE attacks
		SET is_cleaned = TRUE
		WHERE building_id = $1 AND NOT is_cleaned AND trick_type = $2
	`

	result, err := r.db.Exec(ctx, query, buildingID, model.TrickArson)
	if err != nil {
		return 0, fmt.Errorf("failed to clean fire attacks: %w", err)
	}
	return result.RowsAffected(), nil
}

// GetByBuildingID retrieves all tricks recorded against a building,
// newest first.
func (r *AttackRepository) GetByBuildingID(ctx context.Context, buildingID int64, limit int) ([]*model.Attack, error) {
	const query = `
		SELECT id, building_id, trick_type, is_cleaned, created_at
		FROM attacks
		WHERE building_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, buildingID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get attacks: %w", err)
	}
	defer rows.Close()

	var attacks []*model.Attack
	for rows.Next() {
		var a model.Attack
		err := rows.Scan(
			&a.ID,
			&a.BuildingID,
			&a.TrickType,
			&a.IsCleaned,
			&a.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attack: %w", err)
		}
		attacks = append(attacks, &a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating attacks: %w", err)
	}

	return attacks, nil
}
