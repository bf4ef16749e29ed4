package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"carrental/internal/app"
	"carrental/internal/domain"
	"carrental/internal/flutterwave"
	"carrental/internal/handler"
	"carrental/internal/middleware"
	"carrental/internal/redis"
	"carrental/internal/service"
)

const (
	httpTestSecret     = "http-test-secret"
	httpTestSecretHash = "flw-hash"
)

type httpFixture struct {
	router  *gin.Engine
	cars    *MockCarRepository
	rentals *MockRentalRepository
	gateway *MockGateway
	cache   *MockCacheStore
	token   string
}

func newHTTPFixture(t *testing.T, withCache bool) *httpFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	rentals := NewMockRentalRepository()
	cars := NewMockCarRepository(rentals)
	gateway := NewMockGateway()
	cars.AddCar(testCar("car-1", 50))

	var cache *MockCacheStore
	var carCache redis.CacheStoreInterface
	var invalidator service.CacheInvalidator
	if withCache {
		cache = NewMockCacheStore()
		carCache = cache
		invalidator = cache
	}

	logger := discardLogger()
	bookingService := service.NewBookingService(cars, rentals, gateway, NewMockLockStore(), service.BookingConfig{
		Currency:    "NGN",
		RedirectURL: "http://localhost/api/payment/callback",
	}, logger)
	confirmationService := service.NewConfirmationService(NewMockTransactor(cars, rentals), rentals, gateway, invalidator, "NGN", logger)
	carService := service.NewCarService(cars, invalidator, logger)

	router := app.NewRouter(app.RouterDeps{
		CarHandler:     handler.NewCarHandler(carService),
		RentalHandler:  handler.NewRentalHandler(bookingService),
		PaymentHandler: handler.NewPaymentHandler(confirmationService, httpTestSecretHash),
		CarCache:       carCache,
		AuthSecret:     httpTestSecret,
	})

	token, err := middleware.IssueToken(httpTestSecret, domain.AuthUser{ID: "user-1", Email: "ada@example.com", Name: "Ada"}, time.Hour)
	require.NoError(t, err)

	return &httpFixture{router: router, cars: cars, rentals: rentals, gateway: gateway, cache: cache, token: token}
}

func (f *httpFixture) do(method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *httpFixture) authed() map[string]string {
	return map[string]string{"Authorization": "Bearer " + f.token}
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

// ──────────────────────────────────────────────
// RENT CAR
// ──────────────────────────────────────────────

func TestHTTP_RentCar_Success(t *testing.T) {
	f := newHTTPFixture(t, false)

	w := f.do(http.MethodPost, "/api/cars/rent-car/car-1",
		map[string]string{"startDate": "2024-01-01", "endDate": "2024-01-04"}, f.authed())

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	require.Equal(t, "Proceed to payment", body["message"])
	require.EqualValues(t, 150, body["totalPrice"])
	require.EqualValues(t, 3, body["days"])
	require.NotEmpty(t, body["paymentLink"])
	require.NotEmpty(t, body["rentalId"])
}

func TestHTTP_RentCar_Errors(t *testing.T) {
	testCases := []struct {
		name     string
		path     string
		body     any
		auth     bool
		wantCode int
		wantMsg  string
	}{
		{"unauthenticated", "/api/cars/rent-car/car-1", map[string]string{"startDate": "2024-01-01", "endDate": "2024-01-04"}, false, http.StatusUnauthorized, "Unauthorized"},
		{"missing dates", "/api/cars/rent-car/car-1", map[string]string{}, true, http.StatusBadRequest, "startDate and endDate are required"},
		{"empty body", "/api/cars/rent-car/car-1", nil, true, http.StatusBadRequest, "startDate and endDate are required"},
		{"invalid dates", "/api/cars/rent-car/car-1", map[string]string{"startDate": "nope", "endDate": "2024-01-04"}, true, http.StatusBadRequest, "Invalid dates"},
		{"end before start", "/api/cars/rent-car/car-1", map[string]string{"startDate": "2024-01-04", "endDate": "2024-01-01"}, true, http.StatusBadRequest, "endDate must be after startDate"},
		{"unknown car", "/api/cars/rent-car/missing", map[string]string{"startDate": "2024-01-01", "endDate": "2024-01-04"}, true, http.StatusNotFound, "Car not found"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newHTTPFixture(t, false)
			headers := map[string]string{}
			if tc.auth {
				headers = f.authed()
			}

			w := f.do(http.MethodPost, tc.path, tc.body, headers)

			require.Equal(t, tc.wantCode, w.Code, w.Body.String())
			require.Equal(t, tc.wantMsg, decode(t, w)["message"])
			require.Empty(t, f.rentals.All())
		})
	}
}

func TestHTTP_RentCar_ConflictAndGatewayFailure(t *testing.T) {
	f := newHTTPFixture(t, false)
	dates := map[string]string{"startDate": "2024-01-01", "endDate": "2024-01-04"}

	w := f.do(http.MethodPost, "/api/cars/rent-car/car-1", dates, f.authed())
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(http.MethodPost, "/api/cars/rent-car/car-1", dates, f.authed())
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "Car is already booked for the selected dates", decode(t, w)["message"])

	f.gateway.InitiateError = errInjected
	w = f.do(http.MethodPost, "/api/cars/rent-car/car-1",
		map[string]string{"startDate": "2024-02-01", "endDate": "2024-02-02"}, f.authed())
	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.Equal(t, "Failed to initiate payment", decode(t, w)["message"])
	require.NotContains(t, w.Body.String(), errInjected.Error())
}

// ──────────────────────────────────────────────
// PAYMENT CALLBACK AND WEBHOOK
// ──────────────────────────────────────────────

func pendingRental(f *httpFixture) *domain.Rental {
	rental := testRental("r1", "car-1", day("2024-01-01"), day("2024-01-04"), domain.RentalStatusPending, 150)
	f.rentals.AddRental(rental)
	f.gateway.AddTransaction("1001", &flutterwave.Transaction{
		ID: 1001, TxRef: rental.TxRef, Status: "successful", Amount: 150, Currency: "NGN",
	})
	return rental
}

func TestHTTP_Callback(t *testing.T) {
	f := newHTTPFixture(t, false)
	rental := pendingRental(f)

	w := f.do(http.MethodGet, "/api/payment/callback?status=successful&tx_ref="+rental.TxRef+"&transaction_id=1001", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/plain"))
	require.Equal(t, service.MessagePaymentVerified, w.Body.String())
	require.Equal(t, domain.RentalStatusPaid, f.rentals.GetRental("r1").Status)
	require.True(t, f.cars.GetCar("car-1").IsRented)
}

func TestHTTP_Callback_Cancelled(t *testing.T) {
	f := newHTTPFixture(t, false)
	rental := pendingRental(f)

	w := f.do(http.MethodGet, "/api/payment/callback?status=cancelled&tx_ref="+rental.TxRef, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, service.MessagePaymentFailed, w.Body.String())
	require.Equal(t, domain.RentalStatusFailed, f.rentals.GetRental("r1").Status)
	require.False(t, f.cars.GetCar("car-1").IsRented)
}

func TestHTTP_Callback_MissingTxRef(t *testing.T) {
	f := newHTTPFixture(t, false)

	w := f.do(http.MethodGet, "/api/payment/callback?status=successful", nil, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHTTP_Webhook(t *testing.T) {
	f := newHTTPFixture(t, false)
	rental := pendingRental(f)
	event := successEvent(rental.TxRef, 1001)

	w := f.do(http.MethodPost, "/api/payment/webhook", event, map[string]string{flutterwave.WebhookHashHeader: "wrong"})
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, domain.RentalStatusPending, f.rentals.GetRental("r1").Status)
	require.Zero(t, atomic.LoadInt32(&f.gateway.VerifyCallCount))

	w = f.do(http.MethodPost, "/api/payment/webhook", event, map[string]string{flutterwave.WebhookHashHeader: httpTestSecretHash})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "ok", decode(t, w)["status"])
	require.Equal(t, domain.RentalStatusPaid, f.rentals.GetRental("r1").Status)
	require.True(t, f.cars.GetCar("car-1").IsRented)
}

func TestHTTP_Webhook_UnknownRentalAcknowledged(t *testing.T) {
	f := newHTTPFixture(t, false)

	w := f.do(http.MethodPost, "/api/payment/webhook", successEvent("rental-unknown", 1001),
		map[string]string{flutterwave.WebhookHashHeader: httpTestSecretHash})
	require.Equal(t, http.StatusOK, w.Code)
}

func TestHTTP_Webhook_GatewayDown_Returns500(t *testing.T) {
	f := newHTTPFixture(t, false)
	rental := pendingRental(f)
	f.gateway.VerifyError = errInjected

	w := f.do(http.MethodPost, "/api/payment/webhook", successEvent(rental.TxRef, 1001),
		map[string]string{flutterwave.WebhookHashHeader: httpTestSecretHash})
	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.Equal(t, "Internal server error", decode(t, w)["message"])
}

// ──────────────────────────────────────────────
// CAR INVENTORY
// ──────────────────────────────────────────────

func TestHTTP_CarCRUD(t *testing.T) {
	f := newHTTPFixture(t, false)

	w := f.do(http.MethodPost, "/api/cars/add-car",
		map[string]any{"make": "Honda", "model": "Civic", "year": 2019, "price": 45}, f.authed())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	car := decode(t, w)["car"].(map[string]any)
	id := car["id"].(string)
	require.Equal(t, false, car["isRented"])

	w = f.do(http.MethodPost, "/api/cars/add-car",
		map[string]any{"make": "Honda", "model": "Civic", "year": 1800, "price": 45}, f.authed())
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, decode(t, w)["message"], "year must be at least 1886")

	w = f.do(http.MethodPut, "/api/cars/edit-car/"+id, map[string]any{"price": 55}, f.authed())
	require.Equal(t, http.StatusOK, w.Code)
	require.EqualValues(t, 55, decode(t, w)["car"].(map[string]any)["price"])

	w = f.do(http.MethodGet, "/api/cars/get-cars", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.EqualValues(t, 2, decode(t, w)["count"])

	w = f.do(http.MethodGet, "/api/cars/search-cars?make=honda&maxPrice=60", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.EqualValues(t, 1, decode(t, w)["count"])

	w = f.do(http.MethodGet, "/api/cars/search-cars?year=abc", nil, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(http.MethodDelete, "/api/cars/delete-car/"+id, nil, f.authed())
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(http.MethodDelete, "/api/cars/delete-car/"+id, nil, f.authed())
	require.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(http.MethodPost, "/api/cars/add-car", map[string]any{"make": "x"}, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHTTP_CarListingCache(t *testing.T) {
	f := newHTTPFixture(t, true)

	w := f.do(http.MethodGet, "/api/cars/get-cars", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "MISS", w.Header().Get("X-Cache"))

	w = f.do(http.MethodGet, "/api/cars/get-cars", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "HIT", w.Header().Get("X-Cache"))
	require.EqualValues(t, 1, decode(t, w)["count"])

	w = f.do(http.MethodPost, "/api/cars/add-car",
		map[string]any{"make": "Honda", "model": "Civic", "year": 2019, "price": 45}, f.authed())
	require.Equal(t, http.StatusCreated, w.Code)

	w = f.do(http.MethodGet, "/api/cars/get-cars", nil, nil)
	require.Equal(t, "MISS", w.Header().Get("X-Cache"))
	require.EqualValues(t, 2, decode(t, w)["count"])
}

func TestHTTP_ConfirmedPaymentRefreshesListings(t *testing.T) {
	f := newHTTPFixture(t, true)
	rental := pendingRental(f)

	w := f.do(http.MethodGet, "/api/cars/search-cars?available=true", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.EqualValues(t, 1, decode(t, w)["count"])

	w = f.do(http.MethodPost, "/api/payment/webhook", successEvent(rental.TxRef, 1001),
		map[string]string{flutterwave.WebhookHashHeader: httpTestSecretHash})
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, f.cars.GetCar("car-1").IsRented)

	w = f.do(http.MethodGet, "/api/cars/search-cars?available=true", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "MISS", w.Header().Get("X-Cache"))
	require.EqualValues(t, 0, decode(t, w)["count"])
}

func TestHTTP_CacheStoreDown_FallsThrough(t *testing.T) {
	f := newHTTPFixture(t, true)
	f.cache.GetError = errInjected

	w := f.do(http.MethodGet, "/api/cars/get-cars", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.EqualValues(t, 1, decode(t, w)["count"])
}

func TestHTTP_Health(t *testing.T) {
	f := newHTTPFixture(t, false)

	w := f.do(http.MethodGet, "/health", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "ok", decode(t, w)["status"])
}
