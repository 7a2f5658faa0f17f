// Package model defines the data models for the building action engine.
package model

import (
	"encoding/json"
	"time"
)

// Company represents an economic actor that owns buildings and pays for actions.
type Company struct {
	ID               int64      `db:"id"`
	Name             string     `db:"name"`
	Cash             int64      `db:"cash"`
	IsInPrison       bool       `db:"is_in_prison"`
	TotalActions     int64      `db:"total_actions"`
	LastActionAt     *time.Time `db:"last_action_at"`
	TicksSinceAction int        `db:"ticks_since_action"`
	CreatedAt        time.Time  `db:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at"`
}

// Building represents a placed structure on a map tile.
type Building struct {
	ID                int64     `db:"id"`
	CompanyID         *int64    `db:"company_id"` // nil for unowned claim stakes
	BuildingTypeID    int64     `db:"building_type_id"`
	MapID             int64     `db:"map_id"`
	X                 int       `db:"x"`
	Y                 int       `db:"y"`
	DamagePercent     int       `db:"damage_percent"` // always in [0,100]
	IsOnFire          bool      `db:"is_on_fire"`
	IsCollapsed       bool      `db:"is_collapsed"`
	NeedsProfitRecalc bool      `db:"needs_profit_recalc"`
	CreatedAt         time.Time `db:"created_at"`
	UpdatedAt         time.Time `db:"updated_at"`
}

// OwnedBy reports whether the building belongs to the given company.
func (b *Building) OwnedBy(companyID int64) bool {
	return b.CompanyID != nil && *b.CompanyID == companyID
}

// BuildingType drives the base monetary cost used in all repair/cleanup formulas.
type BuildingType struct {
	ID       int64  `db:"id"`
	Name     string `db:"name"`
	BaseCost int64  `db:"base_cost"`
}

// Attack represents a trick previously applied to a building.
// Attacks are historical records: they are marked cleaned, never deleted.
type Attack struct {
	ID         int64     `db:"id"`
	BuildingID int64     `db:"building_id"`
	TrickType  TrickType `db:"trick_type"`
	IsCleaned  bool      `db:"is_cleaned"`
	CreatedAt  time.Time `db:"created_at"`
}

// Transaction represents an append-only ledger entry for an economic action.
// Amount is signed: negative means a cost to the acting company.
type Transaction struct {
	ID              int64           `db:"id"`
	CompanyID       int64           `db:"company_id"`
	MapID           int64           `db:"map_id"`
	ActionType      ActionType      `db:"action_type"`
	BuildingID      *int64          `db:"building_id"`
	TargetCompanyID *int64          `db:"target_company_id"`
	Amount          int64           `db:"amount"`
	Detail          json.RawMessage `db:"detail"`
	CreatedAt       time.Time       `db:"created_at"`
}

// TrickType enumerates the kinds of tricks that can be played on a building.
type TrickType string

const (
	TrickGraffiti TrickType = "graffiti" // cosmetic only
	TrickEgging   TrickType = "egging"   // cosmetic, adds damage
	TrickArson    TrickType = "arson"    // sets the building on fire
)

// Valid reports whether t is a known trick type.
func (t TrickType) Valid() bool {
	switch t {
	case TrickGraffiti, TrickEgging, TrickArson:
		return true
	}
	return false
}

// CausesFire reports whether the trick ignites the target.
// Fire-causing tricks are cleaned only by extinguish; all others only by cleanup.
func (t TrickType) CausesFire() bool {
	return t == TrickArson
}

// ActionType enumerates the ledger action kinds.
type ActionType string

const (
	ActionAttack     ActionType = "attack"
	ActionCleanup    ActionType = "cleanup"
	ActionExtinguish ActionType = "extinguish"
	ActionRepair     ActionType = "repair"
)

// Valid reports whether a is a known action type.
func (a ActionType) Valid() bool {
	switch a {
	case ActionAttack, ActionCleanup, ActionExtinguish, ActionRepair:
		return true
	}
	return false
}
