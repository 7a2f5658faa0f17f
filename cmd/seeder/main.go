// Package main seeds the database with companies, building types and
// buildings for local development.
package main

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"building-engine/internal/config"
	"building-engine/internal/pkg/db"
	"building-engine/internal/repository"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	ctx := context.Background()
	dbPool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbPool.Close()

	companies := repository.NewCompanyRepository(dbPool.Pool)
	buildings := repository.NewBuildingRepository(dbPool.Pool)

	// Building types with base costs driving the repair/cleanup formulas.
	types := []struct {
		name     string
		baseCost int64
	}{
		{"kiosk", 20_000},
		{"diner", 50_000},
		{"office", 100_000},
		{"factory", 250_000},
	}

	typeIDs := make([]int64, 0, len(types))
	for _, t := range types {
		var id int64
		err := dbPool.QueryRow(ctx,
			`INSERT INTO building_types (name, base_cost) VALUES ($1, $2) RETURNING id`,
			t.name, t.baseCost,
		).Scan(&id)
		if err != nil {
			log.Fatal().Err(err).Str("type", t.name).Msg("Failed to seed building type")
		}
		typeIDs = append(typeIDs, id)
		log.Info().Int64("id", id).Str("name", t.name).Int64("base_cost", t.baseCost).Msg("Building type seeded")
	}

	names := []string{"Acme Holdings", "Northside Development", "Harbor & Sons", "Pinnacle Estates"}
	const startingCash = 500_000

	companyIDs := make([]int64, 0, len(names))
	for _, name := range names {
		c, err := companies.Create(ctx, name, startingCash)
		if err != nil {
			log.Fatal().Err(err).Str("name", name).Msg("Failed to seed company")
		}
		companyIDs = append(companyIDs, c.ID)
		log.Info().Int64("id", c.ID).Str("name", name).Msg("Company seeded")
	}

	// A small dense block on map 1 so adjacency propagation has neighbors.
	const mapID = 1
	seeded := 0
	for x := 0; x < 4; x++ {
		for y := 0; y < 4; y++ {
			owner := companyIDs[(x+y)%len(companyIDs)]
			typeID := typeIDs[(x*4+y)%len(typeIDs)]
			if _, err := buildings.Create(ctx, &owner, typeID, mapID, x, y); err != nil {
				log.Fatal().Err(err).Int("x", x).Int("y", y).Msg("Failed to seed building")
			}
			seeded++
		}
	}

	log.Info().Int("buildings", seeded).Msg("Seeding complete")
}
