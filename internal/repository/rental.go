package repository

import (
	"context"
	"time"

	"carrental/internal/domain"
)

// RentalRepository defines the persistence operations for rentals.
type RentalRepository interface {
	// Create persists a new rental.
	Create(ctx context.Context, rental *domain.Rental) error

	// GetByID retrieves a rental by ID.
	GetByID(ctx context.Context, id string) (*domain.Rental, error)

	// GetByTxRef retrieves a rental by its payment correlation reference.
	GetByTxRef(ctx context.Context, txRef string) (*domain.Rental, error)

	// FindOverlapping returns rentals of the car in one of the given statuses
	// whose dates intersect [start, end], bounds inclusive.
	FindOverlapping(ctx context.Context, carID string, start, end time.Time, statuses []domain.RentalStatus) ([]*domain.Rental, error)

	// TransitionStatus moves a rental from one status to another.
	// Returns false without error if the rental was not in the from status.
	TransitionStatus(ctx context.Context, id string, from, to domain.RentalStatus) (bool, error)
}
