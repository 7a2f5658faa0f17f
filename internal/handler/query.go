package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"building-engine/internal/pkg/db"
	"building-engine/internal/repository"
)

const defaultHistoryLimit = 50

// QueryHandler exposes read-only views of buildings, companies and the
// ledger. These feed the UI and the external recalculation pass.
type QueryHandler struct {
	pool      *db.Pool
	buildings *repository.BuildingRepository
	companies *repository.CompanyRepository
	attacks   *repository.AttackRepository
	ledger    *repository.TransactionRepository
}

// NewQueryHandler creates a new QueryHandler.
func NewQueryHandler(pool *db.Pool, buildings *repository.BuildingRepository, companies *repository.CompanyRepository, attacks *repository.AttackRepository, ledger *repository.TransactionRepository) *QueryHandler {
	return &QueryHandler{
		pool:      pool,
		buildings: buildings,
		companies: companies,
		attacks:   attacks,
		ledger:    ledger,
	}
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func limitParam(r *http.Request) int {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 || limit > 500 {
		return defaultHistoryLimit
	}
	return limit
}

// HandleGetBuilding handles GET /buildings/{id}.
func (h *QueryHandler) HandleGetBuilding(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "bad_request", "invalid building id")
		return
	}

	building, err := h.buildings.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrBuildingNotFound) {
			respondWithError(w, http.StatusNotFound, "not_found", "building not found")
			return
		}
		respondWithError(w, http.StatusInternalServerError, "internal", "internal server error")
		return
	}

	respondWithJSON(w, http.StatusOK, building)
}

// HandleGetBuildingAttacks handles GET /buildings/{id}/attacks.
func (h *QueryHandler) HandleGetBuildingAttacks(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "bad_request", "invalid building id")
		return
	}

	attacks, err := h.attacks.GetByBuildingID(r.Context(), id, limitParam(r))
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "internal", "internal server error")
		return
	}

	respondWithJSON(w, http.StatusOK, attacks)
}

// HandleGetCompany handles GET /companies/{id}.
func (h *QueryHandler) HandleGetCompany(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "bad_request", "invalid company id")
		return
	}

	company, err := h.companies.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrCompanyNotFound) {
			respondWithError(w, http.StatusNotFound, "not_found", "company not found")
			return
		}
		respondWithError(w, http.StatusInternalServerError, "internal", "internal server error")
		return
	}

	respondWithJSON(w, http.StatusOK, company)
}

// HandleGetCompanyTransactions handles GET /companies/{id}/transactions.
func (h *QueryHandler) HandleGetCompanyTransactions(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "bad_request", "invalid company id")
		return
	}

	transactions, err := h.ledger.GetByCompanyID(r.Context(), id, limitParam(r))
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "internal", "internal server error")
		return
	}

	respondWithJSON(w, http.StatusOK, transactions)
}

// HandleGetDirtyBuildings handles GET /maps/{id}/dirty: the rows the
// external profit recalculation pass consumes.
func (h *QueryHandler) HandleGetDirtyBuildings(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "bad_request", "invalid map id")
		return
	}

	buildings, err := h.buildings.ListDirty(r.Context(), id, limitParam(r))
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "internal", "internal server error")
		return
	}

	respondWithJSON(w, http.StatusOK, buildings)
}

// HandleHealth handles GET /healthz with a database ping.
func (h *QueryHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if err := h.pool.HealthCheck(r.Context()); err != nil {
		respondWithError(w, http.StatusServiceUnavailable, "unhealthy", "database unreachable")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
