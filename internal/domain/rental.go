package domain

import (
	"math"
	"time"
)

// RentalStatus represents the payment status of a rental.
type RentalStatus string

const (
	RentalStatusPending RentalStatus = "pending"
	RentalStatusPaid    RentalStatus = "paid"
	RentalStatusFailed  RentalStatus = "failed"
)

// BlockingStatuses are the statuses that hold a car's dates.
var BlockingStatuses = []RentalStatus{RentalStatusPending, RentalStatusPaid}

// IsTerminal reports whether no further transition is allowed.
func (s RentalStatus) IsTerminal() bool {
	return s == RentalStatusPaid || s == RentalStatusFailed
}

// Rental represents a booking of a car for a date range.
type Rental struct {
	ID         string
	UserID     string
	CarID      string
	StartDate  time.Time
	EndDate    time.Time
	TotalPrice float64
	Status     RentalStatus
	TxRef      string // correlation reference echoed back by the payment gateway
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Overlaps reports whether the rental's dates intersect [start, end].
// Bounds are inclusive on both sides.
func (r *Rental) Overlaps(start, end time.Time) bool {
	return Overlaps(r.StartDate, r.EndDate, start, end)
}

// Overlaps reports whether [aStart, aEnd] and [bStart, bEnd] intersect.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return !aStart.After(bEnd) && !aEnd.Before(bStart)
}

// RentalDays returns the number of started days between start and end.
func RentalDays(start, end time.Time) int {
	return int(math.Ceil(float64(end.Sub(start)) / float64(24*time.Hour)))
}
