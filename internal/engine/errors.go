// Package engine implements the building lifecycle and economic action
// engine: attacks, cleanup, extinguishing and repair, each applied as a
// single atomic batch against the ledger store.
package engine

import (
	"errors"
	"fmt"
)

// Action precondition errors. Every failure is a rejected single request;
// the engine never retries a financial action on its own.
var (
	ErrPrisonBlocked       = errors.New("company is incarcerated")
	ErrBuildingNotFound    = errors.New("building not found")
	ErrCompanyNotFound     = errors.New("company not found")
	ErrNotOwner            = errors.New("building belongs to another company")
	ErrLocationMismatch    = errors.New("location does not match the building")
	ErrNotOnFire           = errors.New("building is not on fire")
	ErrCollapsed           = errors.New("building has collapsed")
	ErrNothingToClean      = errors.New("no uncleaned tricks on this building")
	ErrNotDamaged          = errors.New("building is not damaged")
	ErrFireNotExtinguished = errors.New("fire must be put out before repairing")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrConflict            = errors.New("concurrent modification, action rejected")
	ErrInvalidTrickType    = errors.New("unknown trick type")
)

// InsufficientFundsError carries the computed cost so callers can display
// what the action would have required. Matches ErrInsufficientFunds under
// errors.Is.
type InsufficientFundsError struct {
	Cost int64
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: action costs %d", e.Cost)
}

// Is lets errors.Is(err, ErrInsufficientFunds) match the typed error.
func (e *InsufficientFundsError) Is(target error) bool {
	return target == ErrInsufficientFunds
}
