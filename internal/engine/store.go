package engine

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"building-engine/internal/model"
	"building-engine/internal/repository"
)

// Store bundles the connection pool and the repositories an action
// mutates. Every action opens one transaction on Pool and rebinds the
// repositories to it, so all mutations commit together or not at all.
type Store struct {
	Pool      *pgxpool.Pool
	Buildings *repository.BuildingRepository
	Companies *repository.CompanyRepository
	Attacks   *repository.AttackRepository
	Ledger    *repository.TransactionRepository
}

// NewStore creates a Store with repositories bound to the pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{
		Pool:      pool,
		Buildings: repository.NewBuildingRepository(pool),
		Companies: repository.NewCompanyRepository(pool),
		Attacks:   repository.NewAttackRepository(pool),
		Ledger:    repository.NewTransactionRepository(pool),
	}
}

// fetchForAction loads the target building and the acting company inside
// the transaction with row locks. Rows are always locked in the same
// order (building first, then company) to keep concurrent actions from
// deadlocking each other.
func (s *Store) fetchForAction(ctx context.Context, tx pgx.Tx, buildingID, actorID int64) (*model.Building, *model.Company, error) {
	building, err := s.Buildings.WithTx(tx).GetForUpdate(ctx, buildingID)
	if err != nil {
		if errors.Is(err, repository.ErrBuildingNotFound) {
			return nil, nil, ErrBuildingNotFound
		}
		return nil, nil, err
	}

	actor, err := s.Companies.WithTx(tx).GetForUpdate(ctx, actorID)
	if err != nil {
		if errors.Is(err, repository.ErrCompanyNotFound) {
			return nil, nil, ErrCompanyNotFound
		}
		return nil, nil, err
	}

	return building, actor, nil
}
