package handler

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter wires the action and query handlers into a mux router.
func NewRouter(actions *ActionHandler, queries *QueryHandler) *mux.Router {
	r := mux.NewRouter()

	// Economic actions
	r.HandleFunc("/buildings/{id}/attack", actions.HandleAttack).Methods(http.MethodPost)
	r.HandleFunc("/buildings/{id}/extinguish", actions.HandleExtinguish).Methods(http.MethodPost)
	r.HandleFunc("/buildings/{id}/cleanup", actions.HandleCleanup).Methods(http.MethodPost)
	r.HandleFunc("/buildings/{id}/repair", actions.HandleRepair).Methods(http.MethodPost)

	// Read-only views
	r.HandleFunc("/buildings/{id}", queries.HandleGetBuilding).Methods(http.MethodGet)
	r.HandleFunc("/buildings/{id}/attacks", queries.HandleGetBuildingAttacks).Methods(http.MethodGet)
	r.HandleFunc("/companies/{id}", queries.HandleGetCompany).Methods(http.MethodGet)
	r.HandleFunc("/companies/{id}/transactions", queries.HandleGetCompanyTransactions).Methods(http.MethodGet)
	r.HandleFunc("/maps/{id}/dirty", queries.HandleGetDirtyBuildings).Methods(http.MethodGet)

	// Operational endpoints
	r.HandleFunc("/healthz", queries.HandleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	return r
}
