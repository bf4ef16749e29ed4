package tests

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"carrental/internal/domain"
	"carrental/internal/service"
)

func TestReleaseOnce_ClearsOnlyCarsWithoutCurrentPaidRental(t *testing.T) {
	t.Parallel()

	rentals := NewMockRentalRepository()
	cars := NewMockCarRepository(rentals)
	now := time.Now()

	ended := testCar("ended", 50)
	ended.IsRented = true
	current := testCar("current", 50)
	current.IsRented = true
	stale := testCar("stale", 50)
	stale.IsRented = true
	free := testCar("free", 50)
	cars.AddCar(ended)
	cars.AddCar(current)
	cars.AddCar(stale)
	cars.AddCar(free)

	rentals.AddRental(testRental("r1", "ended", now.Add(-72*time.Hour), now.Add(-time.Hour), domain.RentalStatusPaid, 150))
	rentals.AddRental(testRental("r2", "current", now.Add(-time.Hour), now.Add(48*time.Hour), domain.RentalStatusPaid, 150))
	rentals.AddRental(testRental("r3", "stale", now.Add(-time.Hour), now.Add(48*time.Hour), domain.RentalStatusPending, 150))

	releaser := service.NewRentalReleaser(cars, nil, discardLogger())
	released, err := releaser.ReleaseOnce(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if released != 2 {
		t.Errorf("expected 2 cars released, got %d", released)
	}
	if cars.GetCar("ended").IsRented || cars.GetCar("stale").IsRented {
		t.Error("expected ended and stale cars to be released")
	}
	if !cars.GetCar("current").IsRented {
		t.Error("car with a current paid rental must stay rented")
	}
}

func TestReleaseOnce_InvalidatesListingsWhenCarsReleased(t *testing.T) {
	t.Parallel()

	rentals := NewMockRentalRepository()
	cars := NewMockCarRepository(rentals)
	cache := NewMockCacheStore()
	releaser := service.NewRentalReleaser(cars, cache, discardLogger())

	if _, err := releaser.ReleaseOnce(context.Background()); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if n := atomic.LoadInt32(&cache.InvalidateCallCount); n != 0 {
		t.Errorf("nothing released, expected no invalidation, got %d", n)
	}

	stale := testCar("stale", 50)
	stale.IsRented = true
	cars.AddCar(stale)

	released, err := releaser.ReleaseOnce(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if released != 1 {
		t.Fatalf("expected 1 car released, got %d", released)
	}
	if n := atomic.LoadInt32(&cache.InvalidateCallCount); n != 1 {
		t.Errorf("expected one invalidation, got %d", n)
	}
}

func TestReleaseOnce_Error(t *testing.T) {
	t.Parallel()
	cars := NewMockCarRepository(NewMockRentalRepository())
	cars.ReleaseIdleError = errInjected

	_, err := service.NewRentalReleaser(cars, nil, discardLogger()).ReleaseOnce(context.Background())
	if !errors.Is(err, errInjected) {
		t.Fatalf("expected injected error, got %v", err)
	}
}

func TestRun_DisabledInterval_ReturnsImmediately(t *testing.T) {
	t.Parallel()
	cars := NewMockCarRepository(NewMockRentalRepository())

	done := make(chan struct{})
	go func() {
		service.NewRentalReleaser(cars, nil, discardLogger()).Run(context.Background(), 0)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run with zero interval must return")
	}
	if atomic.LoadInt32(&cars.ReleaseIdleCallCount) != 0 {
		t.Error("disabled sweeper must not run")
	}
}

func TestRun_SweepsUntilCancelled(t *testing.T) {
	t.Parallel()
	cars := NewMockCarRepository(NewMockRentalRepository())
	cars.ReleaseIdleError = errInjected // errors are logged, the loop keeps going

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		service.NewRentalReleaser(cars, nil, discardLogger()).Run(ctx, 5*time.Millisecond)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for atomic.LoadInt32(&cars.ReleaseIdleCallCount) < 3 {
		select {
		case <-deadline:
			t.Fatal("expected repeated sweeps")
		case <-time.After(time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run must stop when the context is cancelled")
	}
}
