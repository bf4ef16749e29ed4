// Package metrics exposes Prometheus collectors for the HTTP surface and the
// rental flow.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestTotal counts HTTP requests by method, route and status.
	RequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
	// RequestDuration observes HTTP request latency by method and route.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// RentalBookings counts rent-car attempts by result
	// (initiated, conflict, busy, invalid, error).
	RentalBookings = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rental_bookings_total",
			Help: "Total number of rent-car attempts by result",
		},
		[]string{"result"},
	)

	// PaymentConfirmations counts confirmation outcomes by source
	// (callback, webhook) and outcome (paid, failed, ignored, rejected).
	PaymentConfirmations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_confirmations_total",
			Help: "Total number of payment confirmations by source and outcome",
		},
		[]string{"source", "outcome"},
	)

	// RentalsReleased counts cars returned to availability by the sweeper.
	RentalsReleased = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rental_cars_released_total",
			Help: "Total number of cars released by the rental sweeper",
		},
	)
)

// Booking results.
const (
	BookingInitiated = "initiated"
	BookingConflict  = "conflict"
	BookingBusy      = "busy"
	BookingInvalid   = "invalid"
	BookingError     = "error"
)

// Confirmation sources and outcomes.
const (
	SourceCallback = "callback"
	SourceWebhook  = "webhook"

	OutcomePaid     = "paid"
	OutcomeFailed   = "failed"
	OutcomeIgnored  = "ignored"
	OutcomeRejected = "rejected"
)

// NormalizePath returns the route template so that path parameters do not
// explode label cardinality.
func NormalizePath(c *gin.Context) string {
	if p := c.FullPath(); p != "" {
		return p
	}
	return "unmatched"
}

// Middleware records RequestTotal and RequestDuration for every request
// except scrapes of /metrics.
func Middleware(c *gin.Context) {
	if c.Request.URL.Path == "/metrics" {
		c.Next()
		return
	}
	start := time.Now()
	c.Next()
	duration := time.Since(start).Seconds()
	path := NormalizePath(c)
	status := strconv.Itoa(c.Writer.Status())
	RequestTotal.WithLabelValues(c.Request.Method, path, status).Inc()
	RequestDuration.WithLabelValues(c.Request.Method, path).Observe(duration)
}
