// Package repository provides data access layer implementations.
package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Common errors for repository operations.
var (
	ErrBuildingNotFound = errors.New("building not found")
	ErrCompanyNotFound  = errors.New("company not found")
)

// DBTX is the query surface shared by *pgxpool.Pool and pgx.Tx.
// Repositories are constructed against the pool and rebound to a
// transaction with WithTx so an action's reads and writes commit together.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}
