package engine

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"building-engine/internal/config"
	"building-engine/internal/model"
	"building-engine/internal/pkg/lock"
)

// AttackResult reports the target's state after a successful attack.
type AttackResult struct {
	BuildingID    int64
	DamagePercent int
	IsOnFire      bool
}

// attackDetail is the structured ledger payload for attack entries.
type attackDetail struct {
	TrickType   model.TrickType `json:"trick_type"`
	DamageAdded int             `json:"damage_added"`
}

// AttackService applies tricks against target buildings.
type AttackService struct {
	store      *Store
	locks      *lock.BuildingLock
	gate       *Gate
	propagator *DirtyPropagator
	policy     *config.EngineConfig
}

// NewAttackService creates a new AttackService instance.
func NewAttackService(
	store *Store,
	locks *lock.BuildingLock,
	gate *Gate,
	propagator *DirtyPropagator,
	policy *config.EngineConfig,
) *AttackService {
	return &AttackService{
		store:      store,
		locks:      locks,
		gate:       gate,
		propagator: propagator,
		policy:     policy,
	}
}

// Perform applies a trick of the given type to the target building.
// Damage goes up (capped at 100), fire-causing tricks ignite the target,
// an uncleaned attack record is inserted and the actor pays the configured
// trick cost. Everything commits in one batch; no partial application is
// observable.
func (s *AttackService) Perform(ctx context.Context, actorID, buildingID int64, trickType model.TrickType) (*AttackResult, error) {
	if !trickType.Valid() {
		return nil, ErrInvalidTrickType
	}

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

	if err := s.gate.Attacker(actor); err != nil {
		return nil, err
	}
	if building.IsCollapsed {
		return nil, ErrCollapsed
	}

	cost := s.policy.AttackCost
	if actor.Cash < cost {
		return nil, &InsufficientFundsError{Cost: cost}
	}

	damageAdded := s.policy.DamageFor(trickType)
	newDamage := AddDamage(building.DamagePercent, damageAdded)
	onFire := building.IsOnFire || trickType.CausesFire()

	applied, err := s.store.Buildings.WithTx(tx).ApplyDamage(ctx, buildingID, newDamage, onFire, building.DamagePercent)
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, ErrConflict
	}

	if _, err := s.store.Attacks.WithTx(tx).Create(ctx, buildingID, trickType); err != nil {
		return nil, err
	}

	paid, err := s.store.Companies.WithTx(tx).ApplyAction(ctx, actorID, -cost)
	if err != nil {
		return nil, err
	}
	if !paid {
		return nil, &InsufficientFundsError{Cost: cost}
	}

	detail := attackDetail{TrickType: trickType, DamageAdded: newDamage - building.DamagePercent}
	_, err = s.store.Ledger.WithTx(tx).Create(ctx, actorID, building.MapID, model.ActionAttack,
		&buildingID, building.CompanyID, -cost, detail)
	if err != nil {
		return nil, err
	}

	// Damage and fire state affect neighbor profit adjacency.
	if _, err := s.propagator.MarkDirty(ctx, tx, building.MapID, building.X, building.Y); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit attack: %w", err)
	}

	log.Info().
		Int64("actor_id", actorID).
		Int64("building_id", buildingID).
		Str("trick_type", string(trickType)).
		Int("damage_percent", newDamage).
		Bool("is_on_fire", onFire).
		Msg("Attack applied")

	return &AttackResult{
		BuildingID:    buildingID,
		DamagePercent: newDamage,
		IsOnFire:      onFire,
	}, nil
}
