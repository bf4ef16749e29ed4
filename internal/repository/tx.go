package repository

import "context"

// Repositories groups the repositories bound to one transaction.
type Repositories struct {
	Cars    CarRepository
	Rentals RentalRepository
}

// Transactor runs a function with repositories sharing one transaction.
// The transaction commits if fn returns nil and rolls back otherwise.
type Transactor interface {
	InTx(ctx context.Context, fn func(repos Repositories) error) error
}
