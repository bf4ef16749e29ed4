package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"carrental/internal/repository"
)

// Querier is an interface satisfied by both *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Ensure interfaces are satisfied.
var (
	_ Querier = (*sql.DB)(nil)
	_ Querier = (*sql.Tx)(nil)

	_ repository.CarRepository    = (*CarRepository)(nil)
	_ repository.RentalRepository = (*RentalRepository)(nil)
	_ repository.Transactor       = (*Transactor)(nil)
)

// PostgreSQL error classes mapped to repository.ErrConflict.
const (
	pqForeignKeyViolation = "23503"
	pqUniqueViolation     = "23505"
)

// mapError translates driver errors into repository errors.
func mapError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqForeignKeyViolation, pqUniqueViolation:
			return errors.Join(repository.ErrConflict, err)
		}
	}
	return err
}

// Transactor is a PostgreSQL implementation of repository.Transactor.
type Transactor struct {
	db *sql.DB
}

// NewTransactor creates a new Transactor.
func NewTransactor(db *sql.DB) *Transactor {
	return &Transactor{db: db}
}

// InTx runs fn with transaction-scoped repositories.
func (t *Transactor) InTx(ctx context.Context, fn func(repos repository.Repositories) error) (err error) {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(repository.Repositories{
		Cars:    NewCarRepositoryWithTx(tx),
		Rentals: NewRentalRepositoryWithTx(tx),
	}); err != nil {
		return err
	}

	return tx.Commit()
}
