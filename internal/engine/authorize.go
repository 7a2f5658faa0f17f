package engine

import (
	"building-engine/internal/model"
)

// LocationProof is the caller-supplied evidence that the target was
// genuinely observed on the map. Public actions (extinguish) require it
// instead of ownership, so a building cannot be acted on by guessed ID.
type LocationProof struct {
	MapID int64
	X     int
	Y     int
}

// Matches reports whether the proof matches the building's stored tile.
func (p LocationProof) Matches(b *model.Building) bool {
	return p.MapID == b.MapID && p.X == b.X && p.Y == b.Y
}

// Gate validates actor eligibility before any state mutation is attempted.
// All checks are pure: they run against already-fetched state and have no
// side effects.
type Gate struct{}

// NewGate creates a new authorization gate.
func NewGate() *Gate {
	return &Gate{}
}

// Attacker checks eligibility for attack actions: the actor must not be
// incarcerated. Ownership is irrelevant, attacks target other companies.
func (g *Gate) Attacker(actor *model.Company) error {
	if actor.IsInPrison {
		return ErrPrisonBlocked
	}
	return nil
}

// Owner checks eligibility for owner-only actions (cleanup, repair):
// the actor must not be incarcerated and must own the target building.
func (g *Gate) Owner(actor *model.Company, target *model.Building) error {
	if actor.IsInPrison {
		return ErrPrisonBlocked
	}
	if !target.OwnedBy(actor.ID) {
		return ErrNotOwner
	}
	return nil
}

// Public checks eligibility for public actions (extinguish): any company
// may act, but the supplied location proof must match the building's
// stored coordinates.
func (g *Gate) Public(actor *model.Company, target *model.Building, proof LocationProof) error {
	if actor.IsInPrison {
		return ErrPrisonBlocked
	}
	if !proof.Matches(target) {
		return ErrLocationMismatch
	}
	return nil
}
