package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"building-engine/internal/model"
)

// TransactionRepository handles the append-only action ledger.
type TransactionRepository struct {
	db DBTX
}

// NewTransactionRepository creates a new TransactionRepository instance.
func NewTransactionRepository(db DBTX) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *TransactionRepository) WithTx(tx pgx.Tx) *TransactionRepository {
	return &TransactionRepository{db: tx}
}

// Create appends a ledger entry. The detail payload is marshaled to JSON;
// nil detail stores an empty object.
func (r *TransactionRepository) Create(ctx context.Context, companyID, mapID int64, actionType model.ActionType, buildingID, targetCompanyID *int64, amount int64, detail any) (*model.Transaction, error) {
	payload := []byte(`{}`)
	if detail != nil {
		var err error
		payload, err = json.Marshal(detail)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal transaction detail: %w", err)
		}
	}

	const query = `
		INSERT INTO transactions (company_id, map_id, action_type, building_id,
			target_company_id, amount, detail, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		RETURNING id, company_id, map_id, action_type, building_id,
			target_company_id, amount, detail, created_at
	`

	var tx model.Transaction
	err := r.db.QueryRow(ctx, query, companyID, mapID, actionType, buildingID, targetCompanyID, amount, payload).Scan(
		&tx.ID,
		&tx.CompanyID,
		&tx.MapID,
		&tx.ActionType,
		&tx.BuildingID,
		&tx.TargetCompanyID,
		&tx.Amount,
		&tx.Detail,
		&tx.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}

	return &tx, nil
}

// GetByCompanyID retrieves a company's ledger entries, newest first.
func (r *TransactionRepository) GetByCompanyID(ctx context.Context, companyID int64, limit int) ([]*model.Transaction, error) {
	const query = `
		SELECT id, company_id, map_id, action_type, building_id,
			target_company_id, amount, detail, created_at
		FROM transactions
		WHERE company_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, companyID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get transactions: %w", err)
	}
	defer rows.Close()

	var transactions []*model.Transaction
	for rows.Next() {
		var tx model.Transaction
		err := rows.Scan(
			&tx.ID,
			&tx.CompanyID,
			&tx.MapID,
			&tx.ActionType,
			&tx.BuildingID,
			&tx.TargetCompanyID,
			&tx.Amount,
			&tx.Detail,
			&tx.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, &tx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	return transactions, nil
}

// CountByBuildingID counts ledger entries that reference a building.
// Used by tests to assert exactly one row per successful action.
func (r *TransactionRepository) CountByBuildingID(ctx context.Context, buildingID int64) (int, error) {
	const query = `SELECT COUNT(*) FROM transactions WHERE building_id = $1`

	var count int
	err := r.db.QueryRow(ctx, query, buildingID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return count, nil
}
