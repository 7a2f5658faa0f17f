package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"building-engine/internal/model"
)

const companyColumns = `id, name, cash, is_in_prison, total_actions,
		last_action_at, ticks_since_action, created_at, updated_at`

// CompanyRepository handles company data persistence.
type CompanyRepository struct {
	db DBTX
}

// NewCompanyRepository creates a new CompanyRepository instance.
func NewCompanyRepository(db DBTX) *CompanyRepository {
	return &CompanyRepository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *CompanyRepository) WithTx(tx pgx.Tx) *CompanyRepository {
	return &CompanyRepository{db: tx}
}

func scanCompany(row pgx.Row) (*model.Company, error) {
	var c model.Company
	err := row.Scan(
		&c.ID,
		&c.Name,
		&c.Cash,
		&c.IsInPrison,
		&c.TotalActions,
		&c.LastActionAt,
		&c.TicksSinceAction,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCompanyNotFound
		}
		return nil, fmt.Errorf("failed to scan company: %w", err)
	}
	return &c, nil
}

// GetByID retrieves a company by its ID.
// Returns ErrCompanyNotFound if the company does not exist.
func (r *CompanyRepository) GetByID(ctx context.Context, id int64) (*model.Company, error) {
	query := `SELECT ` + companyColumns + ` FROM companies WHERE id = $1`
	return scanCompany(r.db.QueryRow(ctx, query, id))
}

// GetForUpdate retrieves a company by ID with a row lock.
// Must be called inside a transaction; the lock is held until commit.
func (r *CompanyRepository) GetForUpdate(ctx context.Context, id int64) (*model.Company, error) {
	query := `SELECT ` + companyColumns + ` FROM companies WHERE id = $1 FOR UPDATE`
	return scanCompany(r.db.QueryRow(ctx, query, id))
}

// ApplyAction applies the cash delta of a successful action and stamps the
// action counters: total_actions increments, ticks_since_action resets and
// last_action_at is set to now. The cash guard keeps the balance from going
// negative even if the caller's precondition check raced.
func (r *CompanyRepository) ApplyAction(ctx context.Context, id int64, cashDelta int64) (bool, error) {
	const query = `
		UPDATE companies
		SET cash = cash + $2,
		    total_actions = total_actions + 1,
		    last_action_at = NOW(),
		    ticks_since_action = 0,
		    updated_at = NOW()
		WHERE id = $1 AND cash + $2 >= 0
	`

	result, err := r.db.Exec(ctx, query, id, cashDelta)
	if err != nil {
		return false, fmt.Errorf("failed to apply action to company: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// Create inserts a new company. Exists for seeding and tests.
func (r *CompanyRepository) Create(ctx context.Context, name string, cash int64) (*model.Company, error) {
	query := `
		INSERT INTO companies (name, cash, is_in_prison, total_actions,
			ticks_since_action, created_at, updated_at)
		VALUES ($1, $2, FALSE, 0, 0, NOW(), NOW())
		RETURNING ` + companyColumns

	return scanCompany(r.db.QueryRow(ctx, query, name, cash))
}

// SetInPrison toggles the prison flag. Incarceration itself is decided by
// an external system; this supports seeding and tests.
func (r *CompanyRepository) SetInPrison(ctx context.Context, id int64, inPrison bool) error {
	const query = `
		UPDATE companies
		SET is_in_prison = $2, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.db.Exec(ctx, query, id, inPrison)
	if err != nil {
		return fmt.Errorf("failed to set prison flag: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrCompanyNotFound
	}
	return nil
}
