package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"carrental/internal/service"
)

const internalErrorMessage = "Internal server error"

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Message string `json:"message"`
}

// MessageResponse represents a response carrying only a message.
type MessageResponse struct {
	Message string `json:"message"`
}

type errorMapping struct {
	target error
	status int
	detail bool // send the full wrapped message instead of the sentinel text
}

// errorMappings maps service errors to HTTP status codes, first match wins.
var errorMappings = []errorMapping{
	// Validation errors - Bad Request
	{target: service.ErrMissingDates, status: http.StatusBadRequest},
	{target: service.ErrInvalidDates, status: http.StatusBadRequest},
	{target: service.ErrEndBeforeStart, status: http.StatusBadRequest},
	{target: service.ErrRentalConflict, status: http.StatusBadRequest},
	{target: service.ErrInvalidCallback, status: http.StatusBadRequest},
	{target: service.ErrInvalidCar, status: http.StatusBadRequest, detail: true},

	// Not found errors
	{target: service.ErrCarNotFound, status: http.StatusNotFound},
	{target: service.ErrRentalNotFound, status: http.StatusNotFound},

	// Conflict errors
	{target: service.ErrBookingInProgress, status: http.StatusConflict},
	{target: service.ErrCarHasRentals, status: http.StatusConflict},

	// Internal errors with a public message
	{target: service.ErrPriceComputation, status: http.StatusInternalServerError},
	{target: service.ErrPaymentInit, status: http.StatusInternalServerError},
}

// respondError sends an error response with the appropriate HTTP status code.
// Server errors are logged and attached to the context; their detail never
// reaches the client.
func respondError(c *gin.Context, err error) {
	code, msg := mapError(err)
	if code >= http.StatusInternalServerError {
		slog.ErrorContext(c.Request.Context(), "request failed",
			"method", c.Request.Method, "route", c.FullPath(), "error", err)
		_ = c.Error(err)
	}
	c.JSON(code, ErrorResponse{Message: msg})
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// mapError maps service errors to an HTTP status code and public message.
func mapError(err error) (int, string) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			if m.detail {
				return m.status, err.Error()
			}
			return m.status, m.target.Error()
		}
	}
	return http.StatusInternalServerError, internalErrorMessage
}
