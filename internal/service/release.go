package service

import (
	"context"
	"log/slog"
	"time"

	"carrental/internal/metrics"
	"carrental/internal/repository"
)

const releaseRunTimeout = time.Minute

// RentalReleaser returns cars to availability once their paid rentals end.
type RentalReleaser struct {
	carRepo repository.CarRepository
	cache   CacheInvalidator
	logger  *slog.Logger
	now     func() time.Time
}

// NewRentalReleaser creates a new RentalReleaser. cache may be nil.
func NewRentalReleaser(carRepo repository.CarRepository, cache CacheInvalidator, logger *slog.Logger) *RentalReleaser {
	if logger == nil {
		logger = slog.Default()
	}
	return &RentalReleaser{
		carRepo: carRepo,
		cache:   cache,
		logger:  logger,
		now:     time.Now,
	}
}

// ReleaseOnce clears the rented flag of cars without a current paid rental.
func (r *RentalReleaser) ReleaseOnce(ctx context.Context) (int64, error) {
	runCtx, cancel := context.WithTimeout(ctx, releaseRunTimeout)
	defer cancel()

	released, err := r.carRepo.ReleaseIdle(runCtx, r.now().UTC())
	if err != nil {
		return 0, err
	}
	if released > 0 {
		metrics.RentalsReleased.Add(float64(released))
		r.logger.InfoContext(ctx, "released cars with ended rentals", "count", released)
		invalidateCars(ctx, r.cache, r.logger)
	}
	return released, nil
}

// Run releases cars once immediately and then on every tick until ctx is
// done. A non-positive interval disables the loop.
func (r *RentalReleaser) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		r.logger.Info("rental release sweeper disabled")
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	runOnce := func() {
		if _, err := r.ReleaseOnce(ctx); err != nil {
			r.logger.ErrorContext(ctx, "rental release failed", "error", err)
		}
	}

	runOnce()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runOnce()
		}
	}
}
