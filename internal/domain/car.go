package domain

import "time"

// Car represents a rentable car in the inventory.
type Car struct {
	ID          string
	Make        string
	Model       string
	Year        int     // model year, 1886 or later
	Price       float64 // per-day rate
	Description string
	Color       string
	Brand       string
	IsRented    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
