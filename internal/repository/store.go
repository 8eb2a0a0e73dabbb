package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx so every repository can
// run inside or outside a transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Repos groups the per-entity repositories bound to one connection or
// transaction.
type Repos interface {
	Users() UsersRepository
	Properties() PropertiesRepository
	Apartments() ApartmentsRepository
	Appointments() AppointmentsRepository
	Messages() MessagesRepository
}

// Store is the persistence capability. WithinTx commits when fn returns
// nil and rolls back otherwise.
type Store interface {
	Repos
	WithinTx(ctx context.Context, fn func(tx Repos) error) error
}

// ErrForeignKeyViolation is returned by the memory store when a write
// references a missing row or a delete is blocked by an ON DELETE RESTRICT
// reference. PostgreSQL reports the same condition as SQLSTATE 23503; use
// IsForeignKeyViolation to match either.
var ErrForeignKeyViolation = errors.New("foreign key constraint violated")

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

func IsForeignKeyViolation(err error) bool {
	if errors.Is(err, ErrForeignKeyViolation) {
		return true
	}
	return pqCode(err) == pqForeignKeyViolation
}

func pqCode(err error) pq.ErrorCode {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code
	}
	return ""
}

func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != pqUniqueViolation {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}
