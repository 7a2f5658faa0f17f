// Package main is the entry point for the building action engine server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"building-engine/internal/config"
	"building-engine/internal/engine"
	"building-engine/internal/handler"
	"building-engine/internal/pkg/db"
	"building-engine/internal/pkg/lock"
)

func main() {
	// Configure zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Load configuration
	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log.Info().Msg("Configuration loaded successfully")

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection pool
	dbPool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbPool.Close()

	// Run database migrations
	if err := runMigrations(ctx, dbPool); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	// Initialize engine components
	store := engine.NewStore(dbPool.Pool)
	buildingLock := lock.NewBuildingLock()
	gate := engine.NewGate()
	propagator := engine.NewDirtyPropagator(store.Buildings, cfg.Engine.AdjacencyRadius)

	attackService := engine.NewAttackService(store, buildingLock, gate, propagator, &cfg.Engine)
	recoveryService := engine.NewRecoveryService(store, buildingLock, gate, propagator, &cfg.Engine)

	// Initialize HTTP surface
	actionHandler := handler.NewActionHandler(attackService, recoveryService)
	queryHandler := handler.NewQueryHandler(
		dbPool,
		store.Buildings,
		store.Companies,
		store.Attacks,
		store.Ledger,
	)

	srv := &http.Server{
		Addr:         cfg.Server.ListenAddr,
		Handler:      handler.NewRouter(actionHandler, queryHandler),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start server in a goroutine
	go func() {
		log.Info().Str("addr", cfg.Server.ListenAddr).Msg("Server is starting...")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Wait for shutdown signal
	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}
	log.Info().Msg("Server stopped gracefully")
}

// runMigrations executes database migrations.
func runMigrations(ctx context.Context, pool *db.Pool) error {
	log.Info().Msg("Running database migrations...")

	// Migration 1: Create companies table
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS companies (
			id BIGSERIAL PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			cash BIGINT NOT NULL DEFAULT 0,
			is_in_prison BOOLEAN NOT NULL DEFAULT FALSE,
			total_actions BIGINT NOT NULL DEFAULT 0,
			last_action_at TIMESTAMPTZ,
			ticks_since_action INT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 1: companies table created")

	// Migration 2: Create building_types table
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS building_types (
			id BIGSERIAL PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			base_cost BIGINT NOT NULL
		);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 2: building_types table created")

	// Migration 3: Create buildings table
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS buildings (
			id BIGSERIAL PRIMARY KEY,
			company_id BIGINT REFERENCES companies(id),
			building_type_id BIGINT NOT NULL REFERENCES building_types(id),
			map_id BIGINT NOT NULL,
			x INT NOT NULL,
			y INT NOT NULL,
			damage_percent INT NOT NULL DEFAULT 0 CHECK (damage_percent BETWEEN 0 AND 100),
			is_on_fire BOOLEAN NOT NULL DEFAULT FALSE,
			is_collapsed BOOLEAN NOT NULL DEFAULT FALSE,
			needs_profit_recalc BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_buildings_map_tile ON buildings(map_id, x, y);
		CREATE INDEX IF NOT EXISTS idx_buildings_dirty ON buildings(map_id) WHERE needs_profit_recalc;
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 3: buildings table created")

	// Migration 4: Create attacks table
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS attacks (
			id BIGSERIAL PRIMARY KEY,
			building_id BIGINT NOT NULL REFERENCES buildings(id) ON DELETE CASCADE,
			trick_type VARCHAR(50) NOT NULL,
			is_cleaned BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_attacks_uncleaned ON attacks(building_id, trick_type) WHERE NOT is_cleaned;
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 4: attacks table created")

	// Migration 5: Create transactions table (append-only ledger)
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS transactions (
			id BIGSERIAL PRIMARY KEY,
			company_id BIGINT NOT NULL REFERENCES companies(id),
			map_id BIGINT NOT NULL,
			action_type VARCHAR(50) NOT NULL,
			building_id BIGINT,
			target_company_id BIGINT,
			amount BIGINT NOT NULL,
			detail JSONB NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_transactions_company_time ON transactions(company_id, created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_transactions_building ON transactions(building_id);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 5: transactions table created")

	log.Info().Msg("All migrations completed successfully")
	return nil
}
