package service

import "errors"

// Client-facing error texts are returned verbatim in the {message} body.
var (
	// ErrMissingDates is returned when startDate or endDate is empty.
	ErrMissingDates = errors.New("startDate and endDate are required")

	// ErrInvalidDates is returned when a date cannot be parsed.
	ErrInvalidDates = errors.New("Invalid dates")

	// ErrEndBeforeStart is returned when endDate is not after startDate.
	ErrEndBeforeStart = errors.New("endDate must be after startDate")

	// ErrCarNotFound is returned when the requested car does not exist.
	ErrCarNotFound = errors.New("Car not found")

	// ErrRentalConflict is returned when the car already has a pending or paid
	// rental intersecting the requested dates.
	ErrRentalConflict = errors.New("Car is already booked for the selected dates")

	// ErrBookingInProgress is returned when another booking of the same car
	// holds the booking lock.
	ErrBookingInProgress = errors.New("Another booking for this car is in progress, please retry")

	// ErrPriceComputation is returned when the total price is not a finite,
	// non-negative number.
	ErrPriceComputation = errors.New("Error calculating total price")

	// ErrPaymentInit is returned when the gateway does not create a payment link.
	ErrPaymentInit = errors.New("Failed to initiate payment")

	// ErrRentalNotFound is returned when no rental carries a correlation reference.
	ErrRentalNotFound = errors.New("Rental not found")

	// ErrInvalidCallback is returned when a payment redirect lacks tx_ref.
	ErrInvalidCallback = errors.New("Invalid payment callback")

	// ErrInvalidCar is returned when car input fails validation.
	ErrInvalidCar = errors.New("Invalid car data")

	// ErrCarHasRentals is returned when deleting a car that rentals reference.
	ErrCarHasRentals = errors.New("Car has rentals and cannot be deleted")
)
