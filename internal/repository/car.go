package repository

import (
	"context"
	"time"

	"carrental/internal/domain"
)

// CarFilter narrows a car search. Zero values are ignored.
type CarFilter struct {
	Make      string
	Model     string
	Brand     string
	Color     string
	Year      int
	MinPrice  *float64
	MaxPrice  *float64
	Available bool // only cars that are not rented
}

// CarRepository defines the persistence operations for cars.
type CarRepository interface {
	// Create persists a new car.
	Create(ctx context.Context, car *domain.Car) error

	// GetByID retrieves a car by ID.
	GetByID(ctx context.Context, id string) (*domain.Car, error)

	// GetAll retrieves all cars.
	GetAll(ctx context.Context) ([]*domain.Car, error)

	// Search retrieves cars matching the filter.
	Search(ctx context.Context, filter CarFilter) ([]*domain.Car, error)

	// Update updates an existing car.
	Update(ctx context.Context, car *domain.Car) error

	// Delete removes a car. Returns ErrConflict if rentals still reference it.
	Delete(ctx context.Context, id string) error

	// SetRented updates the rented flag of a car.
	SetRented(ctx context.Context, id string, rented bool) error

	// ReleaseIdle clears the rented flag of every car without a paid rental
	// ending after now. Returns the number of cars released.
	ReleaseIdle(ctx context.Context, now time.Time) (int64, error)
}
