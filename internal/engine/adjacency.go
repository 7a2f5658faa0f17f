package engine

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"

	"building-engine/internal/repository"
)

var neighborsMarkedTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "engine_neighbors_marked_dirty_total",
	Help: "Buildings flagged for profit recalculation by adjacency propagation",
})

// DirtyPropagator marks the geometric neighbors of a mutated tile as
// needing profit recalculation. The flag is consumed by an external
// recalculation pass; the propagator only ever sets it, never clears it.
type DirtyPropagator struct {
	buildings *repository.BuildingRepository
	radius    int
}

// NewDirtyPropagator creates a propagator with the given tile radius.
// Radius 1 covers the 8 surrounding tiles.
func NewDirtyPropagator(buildings *repository.BuildingRepository, radius int) *DirtyPropagator {
	if radius < 1 {
		radius = 1
	}
	return &DirtyPropagator{buildings: buildings, radius: radius}
}

// MarkDirty flags the neighbors of (x, y) on the given map inside the
// action's transaction. Idempotent: already-dirty neighbors are untouched.
func (p *DirtyPropagator) MarkDirty(ctx context.Context, tx pgx.Tx, mapID int64, x, y int) (int64, error) {
	marked, err := p.buildings.WithTx(tx).MarkNeighborsDirty(ctx, mapID, x, y, p.radius)
	if err != nil {
		return 0, err
	}
	if marked > 0 {
		neighborsMarkedTotal.Add(float64(marked))
		log.Debug().
			Int64("map_id", mapID).
			Int("x", x).
			Int("y", y).
			Int64("marked", marked).
			Msg("Neighbors flagged for profit recalculation")
	}
	return marked, nil
}
