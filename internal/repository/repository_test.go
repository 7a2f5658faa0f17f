// Package repository tests run against a real PostgreSQL instance using
// testcontainers-go, mirroring the production schema.
package repository

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"building-engine/internal/model"
)

// checkDockerAvailable checks if Docker is available and running
func checkDockerAvailable() bool {
	cmd := exec.Command("docker", "info")
	err := cmd.Run()
	return err == nil
}

// setupTestDB creates a PostgreSQL container and returns a connection pool
// Skips the test if Docker is not available
func setupTestDB(t *testing.T) (*pgxpool.Pool, func()) {
	if !checkDockerAvailable() {
		t.Skip("Docker is not available, skipping integration test")
	}

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)

	err = runMigrations(ctx, pool)
	require.NoError(t, err)

	cleanup := func() {
		pool.Close()
		_ = pgContainer.Terminate(ctx)
	}

	return pool, cleanup
}

// runMigrations applies the database schema
func runMigrations(ctx context.Context, pool *pgxpool.Pool) error {
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
		)
	`)
	if err != nil {
		return err
	}

	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS building_types (
			id BIGSERIAL PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			base_cost BIGINT NOT NULL
		)
	`)
	if err != nil {
		return err
	}

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
		)
	`)
	if err != nil {
		return err
	}

	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS attacks (
			id BIGSERIAL PRIMARY KEY,
			building_id BIGINT NOT NULL REFERENCES buildings(id) ON DELETE CASCADE,
			trick_type VARCHAR(50) NOT NULL,
			is_cleaned BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return err
	}

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
		)
	`)
	return err
}

type fixtures struct {
	companies *CompanyRepository
	buildings *BuildingRepository
	attacks   *AttackRepository
	ledger    *TransactionRepository
	typeID    int64
}

func newFixtures(t *testing.T, pool *pgxpool.Pool) *fixtures {
	t.Helper()
	var typeID int64
	err := pool.QueryRow(context.Background(),
		`INSERT INTO building_types (name, base_cost) VALUES ('office', 100000) RETURNING id`,
	).Scan(&typeID)
	require.NoError(t, err)

	return &fixtures{
		companies: NewCompanyRepository(pool),
		buildings: NewBuildingRepository(pool),
		attacks:   NewAttackRepository(pool),
		ledger:    NewTransactionRepository(pool),
		typeID:    typeID,
	}
}

func (f *fixtures) company(t *testing.T, cash int64) *model.Company {
	t.Helper()
	c, err := f.companies.Create(context.Background(), "test co", cash)
	require.NoError(t, err)
	return c
}

func (f *fixtures) building(t *testing.T, ownerID, mapID int64, x, y int) *model.Building {
	t.Helper()
	b, err := f.buildings.Create(context.Background(), &ownerID, f.typeID, mapID, x, y)
	require.NoError(t, err)
	return b
}

// ============================================================================
// BuildingRepository
// ============================================================================

func TestBuildingRepository_GetByID(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	f := newFixtures(t, pool)
	ctx := context.Background()
	owner := f.company(t, 0)
	created := f.building(t, owner.ID, 1, 3, 7)

	b, err := f.buildings.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, b.ID)
	assert.Equal(t, 3, b.X)
	assert.Equal(t, 7, b.Y)
	assert.Equal(t, 0, b.DamagePercent)
	require.NotNil(t, b.CompanyID)
	assert.Equal(t, owner.ID, *b.CompanyID)

	_, err = f.buildings.GetByID(ctx, 99999)
	assert.ErrorIs(t, err, ErrBuildingNotFound)
}

func TestBuildingRepository_ApplyDamageGuard(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	f := newFixtures(t, pool)
	ctx := context.Background()
	owner := f.company(t, 0)
	b := f.building(t, owner.ID, 1, 0, 0)

	applied, err := f.buildings.ApplyDamage(ctx, b.ID, 30, false, 0)
	require.NoError(t, err)
	assert.True(t, applied)

	// Stale expectation: the row moved since we read it
	applied, err = f.buildings.ApplyDamage(ctx, b.ID, 35, false, 0)
	require.NoError(t, err)
	assert.False(t, applied)

	got, err := f.buildings.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 30, got.DamagePercent)
}

func TestBuildingRepository_RepairGuard(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	f := newFixtures(t, pool)
	ctx := context.Background()
	owner := f.company(t, 0)
	b := f.building(t, owner.ID, 1, 0, 0)
	require.NoError(t, f.buildings.SetState(ctx, b.ID, 60, false, false))

	repaired, err := f.buildings.Repair(ctx, b.ID, 55)
	require.NoError(t, err)
	assert.False(t, repaired, "stale expected damage must not repair")

	repaired, err = f.buildings.Repair(ctx, b.ID, 60)
	require.NoError(t, err)
	assert.True(t, repaired)

	got, err := f.buildings.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.DamagePercent)
	assert.True(t, got.NeedsProfitRecalc)
}

func TestBuildingRepository_ExtinguishGuard(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	f := newFixtures(t, pool)
	ctx := context.Background()
	owner := f.company(t, 0)
	b := f.building(t, owner.ID, 1, 0, 0)

	// Not burning: the guarded update matches no row
	done, err := f.buildings.Extinguish(ctx, b.ID)
	require.NoError(t, err)
	assert.False(t, done)

	require.NoError(t, f.buildings.SetState(ctx, b.ID, 10, true, false))

	done, err = f.buildings.Extinguish(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, done)

	done, err = f.buildings.Extinguish(ctx, b.ID)
	require.NoError(t, err)
	assert.False(t, done, "second extinguish finds no fire")
}

func TestBuildingRepository_MarkNeighborsDirty(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	f := newFixtures(t, pool)
	ctx := context.Background()
	owner := f.company(t, 0)

	// 5x5 block on map 1 centered at (10,10)
	ids := make(map[[2]int]int64)
	for x := 8; x <= 12; x++ {
		for y := 8; y <= 12; y++ {
			b := f.building(t, owner.ID, 1, x, y)
			ids[[2]int{x, y}] = b.ID
		}
	}
	sameSpotOtherMap := f.building(t, owner.ID, 2, 10, 10)

	marked, err := f.buildings.MarkNeighborsDirty(ctx, 1, 10, 10, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(8), marked)

	// Only the ring around the center, never the center or the far tiles
	for coord, id := range ids {
		b, err := f.buildings.GetByID(ctx, id)
		require.NoError(t, err)
		dx := coord[0] - 10
		dy := coord[1] - 10
		inRing := dx >= -1 && dx <= 1 && dy >= -1 && dy <= 1 && !(dx == 0 && dy == 0)
		assert.Equal(t, inRing, b.NeedsProfitRecalc, "tile (%d,%d)", coord[0], coord[1])
	}

	other, err := f.buildings.GetByID(ctx, sameSpotOtherMap.ID)
	require.NoError(t, err)
	assert.False(t, other.NeedsProfitRecalc)

	// Already dirty rows are skipped on repeat
	marked, err = f.buildings.MarkNeighborsDirty(ctx, 1, 10, 10, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(0), marked)

	// Widening the radius picks up only the new outer ring
	marked, err = f.buildings.MarkNeighborsDirty(ctx, 1, 10, 10, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(16), marked)
}

func TestBuildingRepository_ListDirty(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	f := newFixtures(t, pool)
	ctx := context.Background()
	owner := f.company(t, 0)

	f.building(t, owner.ID, 1, 0, 0)
	f.building(t, owner.ID, 1, 1, 0)
	f.building(t, owner.ID, 1, 0, 1)

	_, err := f.buildings.MarkNeighborsDirty(ctx, 1, 1, 1, 1)
	require.NoError(t, err)

	dirty, err := f.buildings.ListDirty(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, dirty, 3)

	dirty, err = f.buildings.ListDirty(ctx, 1, 2)
	require.NoError(t, err)
	assert.Len(t, dirty, 2)
}

// ============================================================================
// CompanyRepository
// ============================================================================

func TestCompanyRepository_ApplyActionCashGuard(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	f := newFixtures(t, pool)
	ctx := context.Background()
	c := f.company(t, 1_000)

	// A debit the balance cannot cover matches no row
	ok, err := f.companies.ApplyAction(ctx, c.ID, -1_001)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := f.companies.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1_000), got.Cash)
	assert.Equal(t, int64(0), got.TotalActions)

	// Draining to exactly zero is allowed
	ok, err = f.companies.ApplyAction(ctx, c.ID, -1_000)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err = f.companies.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.Cash)
	assert.Equal(t, int64(1), got.TotalActions)
	assert.Equal(t, 0, got.TicksSinceAction)
	assert.NotNil(t, got.LastActionAt)

	// Free actions still stamp the activity counters
	ok, err = f.companies.ApplyAction(ctx, c.ID, 0)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err = f.companies.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.TotalActions)
}

func TestCompanyRepository_SetInPrison(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	f := newFixtures(t, pool)
	ctx := context.Background()
	c := f.company(t, 0)

	require.NoError(t, f.companies.SetInPrison(ctx, c.ID, true))
	got, err := f.companies.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, got.IsInPrison)

	require.NoError(t, f.companies.SetInPrison(ctx, c.ID, false))
	got, err = f.companies.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.False(t, got.IsInPrison)

	_, err = f.companies.GetByID(ctx, 99999)
	assert.ErrorIs(t, err, ErrCompanyNotFound)
}

// ============================================================================
// AttackRepository
// ============================================================================

func TestAttackRepository_CleanPartition(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	f := newFixtures(t, pool)
	ctx := context.Background()
	owner := f.company(t, 0)
	b := f.building(t, owner.ID, 1, 0, 0)

	for _, trick := range []model.TrickType{
		model.TrickGraffiti, model.TrickEgging, model.TrickEgging, model.TrickArson,
	} {
		_, err := f.attacks.Create(ctx, b.ID, trick)
		require.NoError(t, err)
	}

	// Arson never counts toward cleanup
	count, err := f.attacks.CountUncleanedCosmetic(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	cleaned, err := f.attacks.CleanCosmetic(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), cleaned)

	count, err = f.attacks.CountUncleanedCosmetic(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	// The arson record is still there for the extinguish path
	cleaned, err = f.attacks.CleanFireCausing(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), cleaned)

	// Records are marked, never deleted
	all, err := f.attacks.GetByBuildingID(ctx, b.ID, 10)
	require.NoError(t, err)
	require.Len(t, all, 4)
	for _, a := range all {
		assert.True(t, a.IsCleaned)
	}
}

// ============================================================================
// TransactionRepository
// ============================================================================

func TestTransactionRepository_CreateAndQuery(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	f := newFixtures(t, pool)
	ctx := context.Background()
	actor := f.company(t, 100_000)
	owner := f.company(t, 0)
	b := f.building(t, owner.ID, 1, 0, 0)

	type detail struct {
		TrickType string `json:"trick_type"`
	}

	tx1, err := f.ledger.Create(ctx, actor.ID, 1, model.ActionAttack, &b.ID, &owner.ID, 0, detail{TrickType: "egging"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"trick_type":"egging"}`, string(tx1.Detail))

	// nil detail is stored as an empty JSON object
	tx2, err := f.ledger.Create(ctx, actor.ID, 1, model.ActionRepair, &b.ID, nil, -75_000, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(tx2.Detail))
	assert.Nil(t, tx2.TargetCompanyID)

	// Newest first
	txs, err := f.ledger.GetByCompanyID(ctx, actor.ID, 10)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, tx2.ID, txs[0].ID)
	assert.Equal(t, model.ActionRepair, txs[0].ActionType)
	assert.Equal(t, int64(-75_000), txs[0].Amount)

	count, err := f.ledger.CountByBuildingID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
