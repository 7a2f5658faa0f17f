package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"building-engine/internal/config"
	"building-engine/internal/model"
	"building-engine/internal/pkg/lock"
	"building-engine/internal/repository"
)

// ExtinguishResult reports a successful fire extinguishing.
type ExtinguishResult struct {
	BuildingID    int64
	OwnerName     string
	TricksCleaned int64
}

// CleanupResult reports a successful trick cleanup.
type CleanupResult struct {
	BuildingID     int64
	AttacksCleaned int
	Cost           int64
}

// RepairResult reports a successful repair.
type RepairResult struct {
	BuildingID     int64
	DamageRepaired int
	Cost           int64
}

type extinguishDetail struct {
	FireTricksCleaned int64 `json:"fire_tricks_cleaned"`
}

type cleanupDetail struct {
	AttacksCleaned int `json:"attacks_cleaned"`
}

type repairDetail struct {
	DamageRepaired int `json:"damage_repaired"`
}

// RecoveryService reverses the effects the attack engine produces.
// Its three operations share one shape: fetch with authorization and
// precondition checks, compute the cost, apply state mutation, cash debit
// and ledger entry in a single transaction, then propagate dirty flags.
type RecoveryService struct {
	store      *Store
	locks      *lock.BuildingLock
	gate       *Gate
	propagator *DirtyPropagator
	policy     *config.EngineConfig
}

// NewRecoveryService creates a new RecoveryService instance.
func NewRecoveryService(
	store *Store,
	locks *lock.BuildingLock,
	gate *Gate,
	propagator *DirtyPropagator,
	policy *config.EngineConfig,
) *RecoveryService {
	return &RecoveryService{
		store:      store,
		locks:      locks,
		gate:       gate,
		propagator: propagator,
		policy:     policy,
	}
}

// Extinguish puts out a fire on the target building. Any company may do
// this, not only the owner: fire spread is a community risk, so the one
// and only gate is the location proof. The action is always free and the
// ledger entry is always zero.
func (s *RecoveryService) Extinguish(ctx context.Context, actorID, buildingID int64, proof LocationProof) (*ExtinguishResult, error) {
	s.locks.Lock(buildingID)
	defer s.locks.Unlock(buildingID)

	tx, err := s.store.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	building, actor, err := s.store.fetchForAction(ctx, tx, buildingID, actorID)
	if err != nil {
		return nil, err
	}

	if err := s.gate.Public(actor, building, proof); err != nil {
		return nil, err
	}
	if building.IsCollapsed {
		return nil, ErrCollapsed
	}
	if !building.IsOnFire {
		return nil, ErrNotOnFire
	}

	extinguished, err := s.store.Buildings.WithTx(tx).Extinguish(ctx, buildingID)
	if err != nil {
		return nil, err
	}
	if !extinguished {
		return nil, ErrConflict
	}

	cleaned, err := s.store.Attacks.WithTx(tx).CleanFireCausing(ctx, buildingID)
	if err != nil {
		return nil, err
	}

	// Free action, but it still counts as an action performed.
	counted, err := s.store.Companies.WithTx(tx).ApplyAction(ctx, actorID, 0)
	if err != nil {
		return nil, err
	}
	if !counted {
		return nil, ErrConflict
	}

	detail := extinguishDetail{FireTricksCleaned: cleaned}
	_, err = s.store.Ledger.WithTx(tx).Create(ctx, actorID, building.MapID, model.ActionExtinguish,
		&buildingID, building.CompanyID, 0, detail)
	if err != nil {
		return nil, err
	}

	// Fire status affects neighbor adjacency value.
	if _, err := s.propagator.MarkDirty(ctx, tx, building.MapID, building.X, building.Y); err != nil {
		return nil, err
	}

	ownerName := ""
	if building.CompanyID != nil {
		owner, err := s.store.Companies.WithTx(tx).GetByID(ctx, *building.CompanyID)
		if err != nil && !errors.Is(err, repository.ErrCompanyNotFound) {
			return nil, err
		}
		if owner != nil {
			ownerName = owner.Name
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit extinguish: %w", err)
	}

	log.Info().
		Int64("actor_id", actorID).
		Int64("building_id", buildingID).
		Int64("fire_tricks_cleaned", cleaned).
		Msg("Fire extinguished")

	return &ExtinguishResult{
		BuildingID:    buildingID,
		OwnerName:     ownerName,
		TricksCleaned: cleaned,
	}, nil
}

// Cleanup marks every outstanding cosmetic trick on the owner's building
// as cleaned, at the configured rate of the building's base cost per
// trick. Cleanup never touches damage or fire state, so no adjacency
// propagation happens.
func (s *RecoveryService) Cleanup(ctx context.Context, actorID, buildingID int64) (*CleanupResult, error) {
	s.locks.Lock(buildingID)
	defer s.locks.Unlock(buildingID)

	tx, err := s.store.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	building, actor, err := s.store.fetchForAction(ctx, tx, buildingID, actorID)
	if err != nil {
		return nil, err
	}

	if err := s.gate.Owner(actor, building); err != nil {
		return nil, err
	}
	if building.IsCollapsed {
		return nil, ErrCollapsed
	}

	uncleaned, err := s.store.Attacks.WithTx(tx).CountUncleanedCosmetic(ctx, buildingID)
	if err != nil {
		return nil, err
	}
	if uncleaned == 0 {
		return nil, ErrNothingToClean
	}

	baseCost, err := s.store.Buildings.WithTx(tx).GetBaseCost(ctx, building.BuildingTypeID)
	if err != nil {
		return nil, err
	}

	cost := CleanupCost(baseCost, s.policy.CleanupRate, uncleaned)
	if actor.Cash < cost {
		return nil, &InsufficientFundsError{Cost: cost}
	}

	cleaned, err := s.store.Attacks.WithTx(tx).CleanCosmetic(ctx, buildingID)
	if err != nil {
		return nil, err
	}
	if cleaned != int64(uncleaned) {
		return nil, ErrConflict
	}

	paid, err := s.store.Companies.WithTx(tx).ApplyAction(ctx, actorID, -cost)
	if err != nil {
		return nil, err
	}
	if !paid {
		return nil, &InsufficientFundsError{Cost: cost}
	}

	detail := cleanupDetail{AttacksCleaned: uncleaned}
	_, err = s.store.Ledger.WithTx(tx).Create(ctx, actorID, building.MapID, model.ActionCleanup,
		&buildingID, building.CompanyID, -cost, detail)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit cleanup: %w", err)
	}

	log.Info().
		Int64("actor_id", actorID).
		Int64("building_id", buildingID).
		Int("attacks_cleaned", uncleaned).
		Int64("cost", cost).
		Msg("Tricks cleaned up")

	return &CleanupResult{
		BuildingID:     buildingID,
		AttacksCleaned: uncleaned,
		Cost:           cost,
	}, nil
}

// Repair fully restores a damaged building to 0% damage. The fire must be
// put out first; a burning building cannot be repaired. Cost is the base
// cost scaled by the damage percent.
func (s *RecoveryService) Repair(ctx context.Context, actorID, buildingID int64) (*RepairResult, error) {
	s.locks.Lock(buildingID)
	defer s.locks.Unlock(buildingID)

	tx, err := s.store.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	building, actor, err := s.store.fetchForAction(ctx, tx, buildingID, actorID)
	if err != nil {
		return nil, err
	}

	if err := s.gate.Owner(actor, building); err != nil {
		return nil, err
	}
	if building.IsCollapsed {
		return nil, ErrCollapsed
	}
	if building.DamagePercent == 0 {
		return nil, ErrNotDamaged
	}
	if building.IsOnFire {
		return nil, ErrFireNotExtinguished
	}

	baseCost, err := s.store.Buildings.WithTx(tx).GetBaseCost(ctx, building.BuildingTypeID)
	if err != nil {
		return nil, err
	}

	cost := RepairCost(baseCost, building.DamagePercent)
	if actor.Cash < cost {
		return nil, &InsufficientFundsError{Cost: cost}
	}

	repaired, err := s.store.Buildings.WithTx(tx).Repair(ctx, buildingID, building.DamagePercent)
	if err != nil {
		return nil, err
	}
	if !repaired {
		return nil, ErrConflict
	}

	paid, err := s.store.Companies.WithTx(tx).ApplyAction(ctx, actorID, -cost)
	if err != nil {
		return nil, err
	}
	if !paid {
		return nil, &InsufficientFundsError{Cost: cost}
	}

	detail := repairDetail{DamageRepaired: building.DamagePercent}
	_, err = s.store.Ledger.WithTx(tx).Create(ctx, actorID, building.MapID, model.ActionRepair,
		&buildingID, building.CompanyID, -cost, detail)
	if err != nil {
		return nil, err
	}

	// Damage level affects neighbor adjacency penalties.
	if _, err := s.propagator.MarkDirty(ctx, tx, building.MapID, building.X, building.Y); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit repair: %w", err)
	}

	log.Info().
		Int64("actor_id", actorID).
		Int64("building_id", buildingID).
		Int("damage_repaired", building.DamagePercent).
		Int64("cost", cost).
		Msg("Building repaired")

	return &RepairResult{
		BuildingID:     buildingID,
		DamageRepaired: building.DamagePercent,
		Cost:           cost,
	}, nil
}
