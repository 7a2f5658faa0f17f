package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"

	"building-engine/internal/engine"
	"building-engine/internal/model"
)

// actorHeader carries the authenticated company identity. The session/auth
// layer in front of the engine sets it; the engine trusts it.
const actorHeader = "X-Company-ID"

// ActionHandler exposes the attack and recovery operations over HTTP.
type ActionHandler struct {
	attacks  *engine.AttackService
	recovery *engine.RecoveryService
}

// NewActionHandler creates a new ActionHandler.
func NewActionHandler(attacks *engine.AttackService, recovery *engine.RecoveryService) *ActionHandler {
	return &ActionHandler{attacks: attacks, recovery: recovery}
}

func actorID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.Header.Get(actorHeader), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func buildingID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

type attackRequest struct {
	TrickType string `json:"trick_type"`
}

type attackResponse struct {
	Success       bool  `json:"success"`
	BuildingID    int64 `json:"building_id"`
	DamagePercent int   `json:"damage_percent"`
	IsOnFire      bool  `json:"is_on_fire"`
}

// HandleAttack handles POST /buildings/{id}/attack.
func (h *ActionHandler) HandleAttack(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(actionDuration.WithLabelValues("attack"))
	defer timer.ObserveDuration()

	actor, ok := actorID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthenticated", "missing or invalid "+actorHeader+" header")
		return
	}
	target, ok := buildingID(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "bad_request", "invalid building id")
		return
	}

	var req attackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		actionsTotal.WithLabelValues("attack", "bad_request").Inc()
		respondWithError(w, http.StatusBadRequest, "bad_request", "malformed JSON body")
		return
	}

	result, err := h.attacks.Perform(r.Context(), actor, target, model.TrickType(req.TrickType))
	if err != nil {
		actionsTotal.WithLabelValues("attack", respondWithEngineError(w, err)).Inc()
		return
	}

	actionsTotal.WithLabelValues("attack", "ok").Inc()
	respondWithJSON(w, http.StatusOK, attackResponse{
		Success:       true,
		BuildingID:    result.BuildingID,
		DamagePercent: result.DamagePercent,
		IsOnFire:      result.IsOnFire,
	})
}

type extinguishRequest struct {
	MapID int64 `json:"map_id"`
	X     int   `json:"x"`
	Y     int   `json:"y"`
}

type extinguishResponse struct {
	Success    bool   `json:"success"`
	BuildingID int64  `json:"building_id"`
	OwnerName  string `json:"owner_name"`
	Message    string `json:"message"`
}

// HandleExtinguish handles POST /buildings/{id}/extinguish.
// The body must carry the building's map and tile coordinates as proof
// the caller actually observed the fire.
func (h *ActionHandler) HandleExtinguish(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(actionDuration.WithLabelValues("extinguish"))
	defer timer.ObserveDuration()

	actor, ok := actorID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthenticated", "missing or invalid "+actorHeader+" header")
		return
	}
	target, ok := buildingID(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "bad_request", "invalid building id")
		return
	}

	var req extinguishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		actionsTotal.WithLabelValues("extinguish", "bad_request").Inc()
		respondWithError(w, http.StatusBadRequest, "bad_request", "malformed JSON body")
		return
	}

	proof := engine.LocationProof{MapID: req.MapID, X: req.X, Y: req.Y}
	result, err := h.recovery.Extinguish(r.Context(), actor, target, proof)
	if err != nil {
		actionsTotal.WithLabelValues("extinguish", respondWithEngineError(w, err)).Inc()
		return
	}

	actionsTotal.WithLabelValues("extinguish", "ok").Inc()
	respondWithJSON(w, http.StatusOK, extinguishResponse{
		Success:    true,
		BuildingID: result.BuildingID,
		OwnerName:  result.OwnerName,
		Message:    "fire extinguished",
	})
}

type cleanupResponse struct {
	Success        bool  `json:"success"`
	AttacksCleaned int   `json:"attacks_cleaned"`
	CleanupCost    int64 `json:"cleanup_cost"`
}

// HandleCleanup handles POST /buildings/{id}/cleanup.
func (h *ActionHandler) HandleCleanup(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(actionDuration.WithLabelValues("cleanup"))
	defer timer.ObserveDuration()

	actor, ok := actorID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthenticated", "missing or invalid "+actorHeader+" header")
		return
	}
	target, ok := buildingID(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "bad_request", "invalid building id")
		return
	}

	result, err := h.recovery.Cleanup(r.Context(), actor, target)
	if err != nil {
		actionsTotal.WithLabelValues("cleanup", respondWithEngineError(w, err)).Inc()
		return
	}

	actionsTotal.WithLabelValues("cleanup", "ok").Inc()
	respondWithJSON(w, http.StatusOK, cleanupResponse{
		Success:        true,
		AttacksCleaned: result.AttacksCleaned,
		CleanupCost:    result.Cost,
	})
}

type repairResponse struct {
	Success        bool  `json:"success"`
	DamageRepaired int   `json:"damage_repaired"`
	RepairCost     int64 `json:"repair_cost"`
}

// HandleRepair handles POST /buildings/{id}/repair.
func (h *ActionHandler) HandleRepair(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(actionDuration.WithLabelValues("repair"))
	defer timer.ObserveDuration()

	actor, ok := actorID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthenticated", "missing or invalid "+actorHeader+" header")
		return
	}
	target, ok := buildingID(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "bad_request", "invalid building id")
		return
	}

	result, err := h.recovery.Repair(r.Context(), actor, target)
	if err != nil {
		actionsTotal.WithLabelValues("repair", respondWithEngineError(w, err)).Inc()
		return
	}

	actionsTotal.WithLabelValues("repair", "ok").Inc()
	respondWithJSON(w, http.StatusOK, repairResponse{
		Success:        true,
		DamageRepaired: result.DamageRepaired,
		RepairCost:     result.Cost,
	})
}
