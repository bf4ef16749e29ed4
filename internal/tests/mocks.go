package tests

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"carrental/internal/domain"
	"carrental/internal/flutterwave"
	"carrental/internal/redis"
	"carrental/internal/repository"
)

// ──────────────────────────────────────────────
// MOCK RENTAL REPOSITORY
// ──────────────────────────────────────────────

// MockRentalRepository is a mock implementation of RentalRepository.
type MockRentalRepository struct {
	mu      sync.RWMutex
	rentals map[string]*domain.Rental

	// Counters for verification
	CreateCallCount           int32
	TransitionCallCount       int32
	SuccessfulTransitionCount int32

	// Error injection
	CreateError          error
	FindOverlappingError error
	TransitionError      error
}

// NewMockRentalRepository creates a new mock rental repository.
func NewMockRentalRepository() *MockRentalRepository {
	return &MockRentalRepository{
		rentals: make(map[string]*domain.Rental),
	}
}

// AddRental adds a rental to the mock repository.
func (m *MockRentalRepository) AddRental(rental *domain.Rental) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rentals[rental.ID] = rental
}

func (m *MockRentalRepository) Create(ctx context.Context, rental *domain.Rental) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rentals {
		if rental.TxRef != "" && r.TxRef == rental.TxRef {
			return repository.ErrConflict
		}
	}
	copy := *rental
	m.rentals[rental.ID] = &copy
	return nil
}

func (m *MockRentalRepository) GetByID(ctx context.Context, id string) (*domain.Rental, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rental, ok := m.rentals[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	// Return a copy to avoid mutation issues.
	copy := *rental
	return &copy, nil
}

func (m *MockRentalRepository) GetByTxRef(ctx context.Context, txRef string) (*domain.Rental, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.rentals {
		if r.TxRef == txRef {
			copy := *r
			return &copy, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *MockRentalRepository) FindOverlapping(ctx context.Context, carID string, start, end time.Time, statuses []domain.RentalStatus) ([]*domain.Rental, error) {
	if m.FindOverlappingError != nil {
		return nil, m.FindOverlappingError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Rental
	for _, r := range m.rentals {
		if r.CarID != carID || !hasStatus(statuses, r.Status) {
			continue
		}
		if r.Overlaps(start, end) {
			copy := *r
			result = append(result, &copy)
		}
	}
	return result, nil
}

func (m *MockRentalRepository) TransitionStatus(ctx context.Context, id string, from, to domain.RentalStatus) (bool, error) {
	atomic.AddInt32(&m.TransitionCallCount, 1)
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if m.TransitionError != nil {
		return false, m.TransitionError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rental, ok := m.rentals[id]
	if !ok || rental.Status != from {
		return false, nil
	}
	rental.Status = to
	rental.UpdatedAt = time.Now()
	atomic.AddInt32(&m.SuccessfulTransitionCount, 1)
	return true, nil
}

// GetRental returns rental for test assertions.
func (m *MockRentalRepository) GetRental(id string) *domain.Rental {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rentals[id]
}

// All returns every stored rental.
func (m *MockRentalRepository) All() []*domain.Rental {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Rental, 0, len(m.rentals))
	for _, r := range m.rentals {
		copy := *r
		result = append(result, &copy)
	}
	return result
}

func (m *MockRentalRepository) snapshot() map[string]domain.Rental {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap := make(map[string]domain.Rental, len(m.rentals))
	for id, r := range m.rentals {
		snap[id] = *r
	}
	return snap
}

func (m *MockRentalRepository) restore(snap map[string]domain.Rental) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rentals = make(map[string]*domain.Rental, len(snap))
	for id, r := range snap {
		copy := r
		m.rentals[id] = &copy
	}
}

func hasStatus(statuses []domain.RentalStatus, s domain.RentalStatus) bool {
	for _, st := range statuses {
		if st == s {
			return true
		}
	}
	return false
}

// ──────────────────────────────────────────────
// MOCK CAR REPOSITORY
// ──────────────────────────────────────────────

// MockCarRepository is a mock implementation of CarRepository.
// Delete and ReleaseIdle consult the linked rental repository.
type MockCarRepository struct {
	mu      sync.RWMutex
	cars    map[string]*domain.Car
	rentals *MockRentalRepository

	// Counters for verification
	SetRentedCallCount   int32
	ReleaseIdleCallCount int32
	LastReleaseAt        atomic.Value // time.Time

	// Error injection
	GetError         error
	SetRentedError   error
	ReleaseIdleError error
}

// NewMockCarRepository creates a new mock car repository.
func NewMockCarRepository(rentals *MockRentalRepository) *MockCarRepository {
	return &MockCarRepository{
		cars:    make(map[string]*domain.Car),
		rentals: rentals,
	}
}

// AddCar adds a car to the mock repository.
func (m *MockCarRepository) AddCar(car *domain.Car) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cars[car.ID] = car
}

func (m *MockCarRepository) Create(ctx context.Context, car *domain.Car) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *car
	m.cars[car.ID] = &copy
	return nil
}

func (m *MockCarRepository) GetByID(ctx context.Context, id string) (*domain.Car, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	car, ok := m.cars[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *car
	return &copy, nil
}

func (m *MockCarRepository) GetAll(ctx context.Context) ([]*domain.Car, error) {
	return m.Search(ctx, repository.CarFilter{})
}

func (m *MockCarRepository) Search(ctx context.Context, filter repository.CarFilter) ([]*domain.Car, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Car, 0, len(m.cars))
	for _, c := range m.cars {
		if !matchesFilter(c, filter) {
			continue
		}
		copy := *c
		result = append(result, &copy)
	}
	return result, nil
}

func (m *MockCarRepository) Update(ctx context.Context, car *domain.Car) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.cars[car.ID]; !ok {
		return repository.ErrNotFound
	}
	copy := *car
	m.cars[car.ID] = &copy
	return nil
}

func (m *MockCarRepository) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.cars[id]; !ok {
		return repository.ErrNotFound
	}
	if m.rentals != nil {
		for _, r := range m.rentals.All() {
			if r.CarID == id {
				return fmt.Errorf("%w: rentals reference car %s", repository.ErrConflict, id)
			}
		}
	}
	delete(m.cars, id)
	return nil
}

func (m *MockCarRepository) SetRented(ctx context.Context, id string, rented bool) error {
	atomic.AddInt32(&m.SetRentedCallCount, 1)
	if m.SetRentedError != nil {
		return m.SetRentedError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	car, ok := m.cars[id]
	if !ok {
		return repository.ErrNotFound
	}
	car.IsRented = rented
	return nil
}

func (m *MockCarRepository) ReleaseIdle(ctx context.Context, now time.Time) (int64, error) {
	atomic.AddInt32(&m.ReleaseIdleCallCount, 1)
	m.LastReleaseAt.Store(now)
	if m.ReleaseIdleError != nil {
		return 0, m.ReleaseIdleError
	}

	var rentals []*domain.Rental
	if m.rentals != nil {
		rentals = m.rentals.All()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	var released int64
	for _, car := range m.cars {
		if !car.IsRented {
			continue
		}
		current := false
		for _, r := range rentals {
			if r.CarID == car.ID && r.Status == domain.RentalStatusPaid && r.EndDate.After(now) {
				current = true
				break
			}
		}
		if !current {
			car.IsRented = false
			released++
		}
	}
	return released, nil
}

// GetCar returns car for test assertions.
func (m *MockCarRepository) GetCar(id string) *domain.Car {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cars[id]
}

func (m *MockCarRepository) snapshot() map[string]domain.Car {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap := make(map[string]domain.Car, len(m.cars))
	for id, c := range m.cars {
		snap[id] = *c
	}
	return snap
}

func (m *MockCarRepository) restore(snap map[string]domain.Car) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cars = make(map[string]*domain.Car, len(snap))
	for id, c := range snap {
		copy := c
		m.cars[id] = &copy
	}
}

func matchesFilter(c *domain.Car, f repository.CarFilter) bool {
	contains := func(field, want string) bool {
		return want == "" || strings.Contains(strings.ToLower(field), strings.ToLower(want))
	}
	switch {
	case !contains(c.Make, f.Make), !contains(c.Model, f.Model),
		!contains(c.Brand, f.Brand), !contains(c.Color, f.Color):
		return false
	case f.Year != 0 && c.Year != f.Year:
		return false
	case f.MinPrice != nil && c.Price < *f.MinPrice:
		return false
	case f.MaxPrice != nil && c.Price > *f.MaxPrice:
		return false
	case f.Available && c.IsRented:
		return false
	}
	return true
}

// ──────────────────────────────────────────────
// MOCK TRANSACTOR
// ──────────────────────────────────────────────

// MockTransactor runs fn against the mock repositories and restores their
// state when fn fails. Transactions are serialized.
type MockTransactor struct {
	mu      sync.Mutex
	Cars    *MockCarRepository
	Rentals *MockRentalRepository

	InTxCallCount int32
	RollbackCount int32
	InTxError     error
}

// NewMockTransactor creates a new mock transactor.
func NewMockTransactor(cars *MockCarRepository, rentals *MockRentalRepository) *MockTransactor {
	return &MockTransactor{Cars: cars, Rentals: rentals}
}

func (m *MockTransactor) InTx(ctx context.Context, fn func(repos repository.Repositories) error) error {
	atomic.AddInt32(&m.InTxCallCount, 1)
	if m.InTxError != nil {
		return m.InTxError
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	carSnap := m.Cars.snapshot()
	rentalSnap := m.Rentals.snapshot()

	if err := fn(repository.Repositories{Cars: m.Cars, Rentals: m.Rentals}); err != nil {
		m.Cars.restore(carSnap)
		m.Rentals.restore(rentalSnap)
		atomic.AddInt32(&m.RollbackCount, 1)
		return err
	}
	return nil
}

// ──────────────────────────────────────────────
// MOCK PAYMENT GATEWAY
// ──────────────────────────────────────────────

// MockGateway is a mock implementation of service.PaymentGateway.
type MockGateway struct {
	mu           sync.Mutex
	requests     []flutterwave.PaymentRequest
	transactions map[string]*flutterwave.Transaction

	// Counters for verification
	InitiateCallCount int32
	VerifyCallCount   int32

	// Error injection
	InitiateError error
	VerifyError   error

	// OnInitiate runs before InitiatePayment returns.
	OnInitiate func(ctx context.Context)
}

// NewMockGateway creates a new mock gateway.
func NewMockGateway() *MockGateway {
	return &MockGateway{
		transactions: make(map[string]*flutterwave.Transaction),
	}
}

// AddTransaction registers the verification result for a transaction id.
func (m *MockGateway) AddTransaction(id string, tx *flutterwave.Transaction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transactions[id] = tx
}

func (m *MockGateway) InitiatePayment(ctx context.Context, req flutterwave.PaymentRequest) (*flutterwave.PaymentLink, error) {
	atomic.AddInt32(&m.InitiateCallCount, 1)
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()
	if m.OnInitiate != nil {
		m.OnInitiate(ctx)
	}
	if m.InitiateError != nil {
		return nil, m.InitiateError
	}
	return &flutterwave.PaymentLink{Link: "https://checkout.example/pay/" + req.TxRef}, nil
}

func (m *MockGateway) VerifyTransaction(ctx context.Context, transactionID string) (*flutterwave.Transaction, error) {
	atomic.AddInt32(&m.VerifyCallCount, 1)
	if m.VerifyError != nil {
		return nil, m.VerifyError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, ok := m.transactions[transactionID]
	if !ok {
		return nil, &flutterwave.APIError{StatusCode: 400, Status: "400 Bad Request", Message: "No transaction was found for this id"}
	}
	copy := *tx
	return &copy, nil
}

// LastRequest returns the most recent payment initiation request.
func (m *MockGateway) LastRequest() (flutterwave.PaymentRequest, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return flutterwave.PaymentRequest{}, false
	}
	return m.requests[len(m.requests)-1], true
}

// ──────────────────────────────────────────────
// MOCK LOCK STORE
// ──────────────────────────────────────────────

// MockLockStore is a mock implementation of LockStoreInterface.
type MockLockStore struct {
	mu    sync.Mutex
	locks map[string]string
	seq   int

	AcquireCallCount int32
	ReleaseCallCount int32

	AcquireError error
}

// NewMockLockStore creates a new mock lock store.
func NewMockLockStore() *MockLockStore {
	return &MockLockStore{locks: make(map[string]string)}
}

func (m *MockLockStore) AcquireCarLock(ctx context.Context, carID string, ttl time.Duration) (string, bool, error) {
	atomic.AddInt32(&m.AcquireCallCount, 1)
	if m.AcquireError != nil {
		return "", false, m.AcquireError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, held := m.locks[carID]; held {
		return "", false, nil
	}
	m.seq++
	token := fmt.Sprintf("token-%d", m.seq)
	m.locks[carID] = token
	return token, true, nil
}

func (m *MockLockStore) ReleaseCarLock(ctx context.Context, carID, token string) error {
	atomic.AddInt32(&m.ReleaseCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locks[carID] == token {
		delete(m.locks, carID)
	}
	return nil
}

// Hold marks the car as locked by someone else.
func (m *MockLockStore) Hold(carID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locks[carID] = "held-elsewhere"
}

// IsHeld reports whether the car is locked.
func (m *MockLockStore) IsHeld(carID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, held := m.locks[carID]
	return held
}

// ──────────────────────────────────────────────
// MOCK CACHE STORE
// ──────────────────────────────────────────────

// MockCacheStore is a mock implementation of CacheStoreInterface.
type MockCacheStore struct {
	mu      sync.Mutex
	entries map[string]*redis.CachedResponse

	GetCallCount        int32
	SetCallCount        int32
	InvalidateCallCount int32

	GetError error
}

// NewMockCacheStore creates a new mock cache store.
func NewMockCacheStore() *MockCacheStore {
	return &MockCacheStore{entries: make(map[string]*redis.CachedResponse)}
}

func (m *MockCacheStore) Get(ctx context.Context, requestKey string) (*redis.CachedResponse, error) {
	atomic.AddInt32(&m.GetCallCount, 1)
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.entries[requestKey], nil
}

func (m *MockCacheStore) Set(ctx context.Context, requestKey string, resp *redis.CachedResponse) error {
	atomic.AddInt32(&m.SetCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	body := append([]byte(nil), resp.Body...)
	m.entries[requestKey] = &redis.CachedResponse{StatusCode: resp.StatusCode, ContentType: resp.ContentType, Body: body}
	return nil
}

func (m *MockCacheStore) InvalidateCars(ctx context.Context) error {
	atomic.AddInt32(&m.InvalidateCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]*redis.CachedResponse)
	return nil
}

// ──────────────────────────────────────────────
// FIXTURES
// ──────────────────────────────────────────────

var errInjected = errors.New("injected failure")

// Ensure mocks implement interfaces.
var (
	_ repository.CarRepository    = (*MockCarRepository)(nil)
	_ repository.RentalRepository = (*MockRentalRepository)(nil)
	_ repository.Transactor       = (*MockTransactor)(nil)
	_ redis.LockStoreInterface    = (*MockLockStore)(nil)
	_ redis.CacheStoreInterface   = (*MockCacheStore)(nil)
)

// testCar returns a car priced per day.
func testCar(id string, price float64) *domain.Car {
	now := time.Now()
	return &domain.Car{
		ID:        id,
		Make:      "Toyota",
		Model:     "Corolla",
		Year:      2020,
		Price:     price,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// testRental returns a rental of carID between the given dates.
func testRental(id, carID string, start, end time.Time, status domain.RentalStatus, total float64) *domain.Rental {
	return &domain.Rental{
		ID:         id,
		UserID:     "user-1",
		CarID:      carID,
		StartDate:  start,
		EndDate:    end,
		TotalPrice: total,
		Status:     status,
		TxRef:      "rental-" + id,
	}
}

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}
