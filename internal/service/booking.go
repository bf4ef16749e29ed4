package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"carrental/internal/domain"
	"carrental/internal/flutterwave"
	"carrental/internal/metrics"
	"carrental/internal/redis"
	"carrental/internal/repository"
)

const (
	fallbackCustomerEmail = "user@example.com"
	fallbackCustomerName  = "Customer"

	paymentTitle = "Car Rental Payment"
)

// dateLayouts are tried in order when parsing rental dates.
var dateLayouts = []string{
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// BookingConfig holds the settings the booking flow needs.
type BookingConfig struct {
	Currency    string
	RedirectURL string
	LockTTL     time.Duration
}

// BookingService creates pending rentals and starts their payment.
type BookingService struct {
	carRepo    repository.CarRepository
	rentalRepo repository.RentalRepository
	gateway    PaymentGateway
	locks      redis.LockStoreInterface
	cfg        BookingConfig
	logger     *slog.Logger
}

// NewBookingService creates a new BookingService.
// locks may be nil, in which case bookings are not serialized per car.
func NewBookingService(
	carRepo repository.CarRepository,
	rentalRepo repository.RentalRepository,
	gateway PaymentGateway,
	locks redis.LockStoreInterface,
	cfg BookingConfig,
	logger *slog.Logger,
) *BookingService {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 10 * time.Second
	}
	return &BookingService{
		carRepo:    carRepo,
		rentalRepo: rentalRepo,
		gateway:    gateway,
		locks:      locks,
		cfg:        cfg,
		logger:     logger,
	}
}

// RentCarRequest contains the parameters for renting a car.
type RentCarRequest struct {
	CarID     string
	User      domain.AuthUser
	StartDate string
	EndDate   string
}

// RentCarResult contains the result of a booking.
type RentCarResult struct {
	Rental      *domain.Rental
	PaymentLink string
	Days        int
}

// RentCar validates the requested period, checks it against existing
// bookings, records a pending rental and initiates its payment.
func (s *BookingService) RentCar(ctx context.Context, req RentCarRequest) (*RentCarResult, error) {
	start, end, err := ParseRentalPeriod(req.StartDate, req.EndDate)
	if err != nil {
		metrics.RentalBookings.WithLabelValues(metrics.BookingInvalid).Inc()
		return nil, err
	}

	car, err := s.carRepo.GetByID(ctx, req.CarID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			metrics.RentalBookings.WithLabelValues(metrics.BookingInvalid).Inc()
			return nil, fmt.Errorf("%w: %w", ErrCarNotFound, err)
		}
		metrics.RentalBookings.WithLabelValues(metrics.BookingError).Inc()
		return nil, fmt.Errorf("get car: %w", err)
	}

	unlock, err := s.lockCar(ctx, car.ID)
	if err != nil {
		metrics.RentalBookings.WithLabelValues(metrics.BookingBusy).Inc()
		return nil, err
	}
	defer unlock()

	overlapping, err := s.rentalRepo.FindOverlapping(ctx, car.ID, start, end, domain.BlockingStatuses)
	if err != nil {
		metrics.RentalBookings.WithLabelValues(metrics.BookingError).Inc()
		return nil, fmt.Errorf("find overlapping rentals: %w", err)
	}
	if len(overlapping) > 0 {
		metrics.RentalBookings.WithLabelValues(metrics.BookingConflict).Inc()
		return nil, ErrRentalConflict
	}

	days := domain.RentalDays(start, end)
	total := float64(days) * car.Price
	if math.IsNaN(total) || math.IsInf(total, 0) || total < 0 {
		metrics.RentalBookings.WithLabelValues(metrics.BookingError).Inc()
		return nil, fmt.Errorf("%w: %d days at %v", ErrPriceComputation, days, car.Price)
	}

	now := time.Now()
	rental := &domain.Rental{
		ID:         uuid.New().String(),
		UserID:     req.User.ID,
		CarID:      car.ID,
		StartDate:  start,
		EndDate:    end,
		TotalPrice: total,
		Status:     domain.RentalStatusPending,
		TxRef:      NewTxRef(),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.rentalRepo.Create(ctx, rental); err != nil {
		metrics.RentalBookings.WithLabelValues(metrics.BookingError).Inc()
		return nil, fmt.Errorf("create rental: %w", err)
	}
	unlock()

	link, err := s.gateway.InitiatePayment(ctx, s.paymentRequest(car, rental, req.User))
	if err != nil {
		s.logger.ErrorContext(ctx, "payment initiation failed",
			"rental_id", rental.ID, "tx_ref", rental.TxRef, "error", err)
		// The request may already be cancelled; the rental must not stay pending.
		markCtx := context.WithoutCancel(ctx)
		if _, markErr := s.rentalRepo.TransitionStatus(markCtx, rental.ID, domain.RentalStatusPending, domain.RentalStatusFailed); markErr != nil {
			s.logger.ErrorContext(ctx, "failed to mark rental failed",
				"rental_id", rental.ID, "error", markErr)
		}
		rental.Status = domain.RentalStatusFailed
		metrics.RentalBookings.WithLabelValues(metrics.BookingError).Inc()
		return nil, fmt.Errorf("%w: %w", ErrPaymentInit, err)
	}

	s.logger.InfoContext(ctx, "rental created",
		"rental_id", rental.ID, "car_id", car.ID, "user_id", rental.UserID,
		"days", days, "total_price", total)
	metrics.RentalBookings.WithLabelValues(metrics.BookingInitiated).Inc()

	return &RentCarResult{
		Rental:      rental,
		PaymentLink: link.Link,
		Days:        days,
	}, nil
}

func (s *BookingService) paymentRequest(car *domain.Car, rental *domain.Rental, user domain.AuthUser) flutterwave.PaymentRequest {
	email := strings.TrimSpace(user.Email)
	if email == "" {
		email = fallbackCustomerEmail
	}
	name := strings.TrimSpace(user.Name)
	if name == "" {
		name = fallbackCustomerName
	}

	return flutterwave.PaymentRequest{
		TxRef:       rental.TxRef,
		Amount:      rental.TotalPrice,
		Currency:    s.cfg.Currency,
		RedirectURL: s.cfg.RedirectURL,
		Customer:    flutterwave.Customer{Email: email, Name: name},
		Meta: flutterwave.Meta{
			RentalID: rental.ID,
			CarID:    car.ID,
			UserID:   rental.UserID,
		},
		Customizations: flutterwave.Customizations{
			Title:       paymentTitle,
			Description: fmt.Sprintf("Payment for %s %s", car.Make, car.Model),
		},
	}
}

// lockCar serializes bookings of one car across instances. A lock store
// failure is logged and the booking continues unserialized.
func (s *BookingService) lockCar(ctx context.Context, carID string) (func(), error) {
	noop := func() {}
	if s.locks == nil {
		return noop, nil
	}

	token, ok, err := s.locks.AcquireCarLock(ctx, carID, s.cfg.LockTTL)
	if err != nil {
		s.logger.WarnContext(ctx, "booking lock unavailable, continuing without it",
			"car_id", carID, "error", err)
		return noop, nil
	}
	if !ok {
		return nil, ErrBookingInProgress
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			if err := s.locks.ReleaseCarLock(context.WithoutCancel(ctx), carID, token); err != nil {
				s.logger.WarnContext(ctx, "failed to release booking lock",
					"car_id", carID, "error", err)
			}
		})
	}, nil
}

// ParseRentalPeriod parses and validates a requested rental period.
func ParseRentalPeriod(startDate, endDate string) (time.Time, time.Time, error) {
	startDate = strings.TrimSpace(startDate)
	endDate = strings.TrimSpace(endDate)
	if startDate == "" || endDate == "" {
		return time.Time{}, time.Time{}, ErrMissingDates
	}

	start, err := parseDate(startDate)
	if err != nil {
		return time.Time{}, time.Time{}, ErrInvalidDates
	}
	end, err := parseDate(endDate)
	if err != nil {
		return time.Time{}, time.Time{}, ErrInvalidDates
	}

	if !end.After(start) {
		return time.Time{}, time.Time{}, ErrEndBeforeStart
	}
	return start, end, nil
}

func parseDate(value string) (time.Time, error) {
	var lastErr error
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, value)
		if err == nil {
			return t.UTC(), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// NewTxRef returns a fresh payment correlation reference.
func NewTxRef() string {
	return "rental-" + uuid.New().String()
}
