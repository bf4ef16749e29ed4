package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"carrental/internal/domain"
	"carrental/internal/repository"
)

// CacheInvalidator drops cached car listings.
type CacheInvalidator interface {
	InvalidateCars(ctx context.Context) error
}

// CarInput is the data needed to add a car.
type CarInput struct {
	Make        string   `json:"make" validate:"required"`
	Model       string   `json:"model" validate:"required"`
	Year        int      `json:"year" validate:"required,gte=1886"`
	Price       *float64 `json:"price" validate:"required,gte=0"`
	Description string   `json:"description"`
	Color       string   `json:"color"`
	Brand       string   `json:"brand"`
}

// CarUpdate holds the fields to change on a car. Nil fields are left as is.
type CarUpdate struct {
	Make        *string  `json:"make" validate:"omitempty,min=1"`
	Model       *string  `json:"model" validate:"omitempty,min=1"`
	Year        *int     `json:"year" validate:"omitempty,gte=1886"`
	Price       *float64 `json:"price" validate:"omitempty,gte=0"`
	Description *string  `json:"description"`
	Color       *string  `json:"color"`
	Brand       *string  `json:"brand"`
}

// CarService handles car inventory operations.
type CarService struct {
	carRepo  repository.CarRepository
	cache    CacheInvalidator
	validate *validator.Validate
	logger   *slog.Logger
}

// NewCarService creates a new CarService. cache may be nil.
func NewCarService(carRepo repository.CarRepository, cache CacheInvalidator, logger *slog.Logger) *CarService {
	if logger == nil {
		logger = slog.Default()
	}
	return &CarService{
		carRepo:  carRepo,
		cache:    cache,
		validate: validator.New(),
		logger:   logger,
	}
}

// Create validates and stores a new car.
func (s *CarService) Create(ctx context.Context, in CarInput) (*domain.Car, error) {
	in.Make = strings.TrimSpace(in.Make)
	in.Model = strings.TrimSpace(in.Model)
	if err := s.validate.Struct(in); err != nil {
		return nil, invalidCar(err)
	}

	now := time.Now()
	car := &domain.Car{
		ID:          uuid.New().String(),
		Make:        in.Make,
		Model:       in.Model,
		Year:        in.Year,
		Price:       *in.Price,
		Description: strings.TrimSpace(in.Description),
		Color:       strings.TrimSpace(in.Color),
		Brand:       strings.TrimSpace(in.Brand),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.carRepo.Create(ctx, car); err != nil {
		return nil, fmt.Errorf("create car: %w", err)
	}

	s.invalidate(ctx)
	return car, nil
}

// List returns every car.
func (s *CarService) List(ctx context.Context) ([]*domain.Car, error) {
	return s.carRepo.GetAll(ctx)
}

// Search returns the cars matching the filter.
func (s *CarService) Search(ctx context.Context, filter repository.CarFilter) ([]*domain.Car, error) {
	filter.Make = strings.TrimSpace(filter.Make)
	filter.Model = strings.TrimSpace(filter.Model)
	filter.Brand = strings.TrimSpace(filter.Brand)
	filter.Color = strings.TrimSpace(filter.Color)
	return s.carRepo.Search(ctx, filter)
}

// Update applies the non-nil fields of upd to the car.
func (s *CarService) Update(ctx context.Context, id string, upd CarUpdate) (*domain.Car, error) {
	trimPtr(upd.Make)
	trimPtr(upd.Model)
	if err := s.validate.Struct(upd); err != nil {
		return nil, invalidCar(err)
	}

	car, err := s.carRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: %w", ErrCarNotFound, err)
		}
		return nil, fmt.Errorf("get car: %w", err)
	}

	if upd.Make != nil {
		car.Make = *upd.Make
	}
	if upd.Model != nil {
		car.Model = *upd.Model
	}
	if upd.Year != nil {
		car.Year = *upd.Year
	}
	if upd.Price != nil {
		car.Price = *upd.Price
	}
	if upd.Description != nil {
		car.Description = strings.TrimSpace(*upd.Description)
	}
	if upd.Color != nil {
		car.Color = strings.TrimSpace(*upd.Color)
	}
	if upd.Brand != nil {
		car.Brand = strings.TrimSpace(*upd.Brand)
	}
	car.UpdatedAt = time.Now()

	if err := s.carRepo.Update(ctx, car); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: %w", ErrCarNotFound, err)
		}
		return nil, fmt.Errorf("update car: %w", err)
	}

	s.invalidate(ctx)
	return car, nil
}

// Delete removes a car that no rental references.
func (s *CarService) Delete(ctx context.Context, id string) error {
	if err := s.carRepo.Delete(ctx, id); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return fmt.Errorf("%w: %w", ErrCarNotFound, err)
		case errors.Is(err, repository.ErrConflict):
			return fmt.Errorf("%w: %w", ErrCarHasRentals, err)
		}
		return fmt.Errorf("delete car: %w", err)
	}

	s.invalidate(ctx)
	return nil
}

func (s *CarService) invalidate(ctx context.Context) {
	invalidateCars(ctx, s.cache, s.logger)
}

// invalidateCars drops cached listings after a car changed. A cache failure
// only costs freshness until the entries expire.
func invalidateCars(ctx context.Context, cache CacheInvalidator, logger *slog.Logger) {
	if cache == nil {
		return
	}
	if err := cache.InvalidateCars(ctx); err != nil {
		logger.WarnContext(ctx, "failed to invalidate car cache", "error", err)
	}
}

func invalidCar(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %w", ErrInvalidCar, err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required", "min":
			msgs = append(msgs, field+" is required")
		case "gte":
			msgs = append(msgs, fmt.Sprintf("%s must be at least %s", field, fe.Param()))
		default:
			msgs = append(msgs, field+" is invalid")
		}
	}
	return fmt.Errorf("%w: %s", ErrInvalidCar, strings.Join(msgs, ", "))
}

func trimPtr(s *string) {
	if s != nil {
		*s = strings.TrimSpace(*s)
	}
}
