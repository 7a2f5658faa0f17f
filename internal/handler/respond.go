// Package handler provides the HTTP surface of the action engine.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"building-engine/internal/engine"
	"building-engine/internal/repository"
)

// errorResponse is the uniform error shape: a machine-readable kind plus a
// human-readable message. Monetary errors carry the computed cost.
type errorResponse struct {
	Success bool   `json:"success"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Cost    *int64 `json:"cost,omitempty"`
}

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

func respondWithError(w http.ResponseWriter, code int, kind, message string) {
	respondWithJSON(w, code, errorResponse{Kind: kind, Message: message})
}

// engineErrorKind maps an engine error to its wire kind and HTTP status.
func engineErrorKind(err error) (string, int) {
	switch {
	case errors.Is(err, engine.ErrPrisonBlocked):
		return "prison_blocked", http.StatusForbidden
	case errors.Is(err, engine.ErrBuildingNotFound), errors.Is(err, repository.ErrBuildingNotFound):
		return "not_found", http.StatusNotFound
	case errors.Is(err, engine.ErrCompanyNotFound), errors.Is(err, repository.ErrCompanyNotFound):
		return "not_found", http.StatusNotFound
	case errors.Is(err, engine.ErrNotOwner):
		return "not_owner", http.StatusForbidden
	case errors.Is(err, engine.ErrLocationMismatch):
		return "location_mismatch", http.StatusUnprocessableEntity
	case errors.Is(err, engine.ErrNotOnFire):
		return "not_on_fire", http.StatusUnprocessableEntity
	case errors.Is(err, engine.ErrCollapsed):
		return "collapsed", http.StatusUnprocessableEntity
	case errors.Is(err, engine.ErrNothingToClean):
		return "nothing_to_clean", http.StatusUnprocessableEntity
	case errors.Is(err, engine.ErrNotDamaged):
		return "not_damaged", http.StatusUnprocessableEntity
	case errors.Is(err, engine.ErrFireNotExtinguished):
		return "fire_not_extinguished", http.StatusUnprocessableEntity
	case errors.Is(err, engine.ErrInsufficientFunds):
		return "insufficient_funds", http.StatusUnprocessableEntity
	case errors.Is(err, engine.ErrConflict):
		return "conflict", http.StatusConflict
	case errors.Is(err, engine.ErrInvalidTrickType):
		return "invalid_trick_type", http.StatusBadRequest
	}
	return "internal", http.StatusInternalServerError
}

// respondWithEngineError translates engine errors into the uniform error
// shape. Unknown errors are hidden behind a generic message.
func respondWithEngineError(w http.ResponseWriter, err error) (kind string) {
	kind, code := engineErrorKind(err)

	resp := errorResponse{Kind: kind, Message: err.Error()}
	if kind == "internal" {
		resp.Message = "internal server error"
	}

	var funds *engine.InsufficientFundsError
	if errors.As(err, &funds) {
		resp.Cost = &funds.Cost
	}

	respondWithJSON(w, code, resp)
	return kind
}
