package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"

	"carrental/internal/middleware"
	"carrental/internal/service"
)

// RentalHandler handles HTTP requests for bookings.
type RentalHandler struct {
	bookingService *service.BookingService
}

// NewRentalHandler creates a new RentalHandler.
func NewRentalHandler(bookingService *service.BookingService) *RentalHandler {
	return &RentalHandler{bookingService: bookingService}
}

// RentCarRequest is the HTTP request body for renting a car.
type RentCarRequest struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

// RentCarResponse is the HTTP response for a started booking.
type RentCarResponse struct {
	Message     string  `json:"message"`
	PaymentLink string  `json:"paymentLink"`
	RentalID    string  `json:"rentalId"`
	TotalPrice  float64 `json:"totalPrice"`
	Days        int     `json:"days"`
}

// RentCar handles POST /api/cars/rent-car/:carId
func (h *RentalHandler) RentCar(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "Unauthorized"})
		return
	}

	var req RentCarRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Invalid request body"})
		return
	}

	carID := c.Param("carId")
	if txn := nrgin.Transaction(c); txn != nil {
		txn.AddAttribute("car.id", carID)
		txn.AddAttribute("user.id", user.ID)
	}

	result, err := h.bookingService.RentCar(c.Request.Context(), service.RentCarRequest{
		CarID:     carID,
		User:      user,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	if txn := nrgin.Transaction(c); txn != nil {
		txn.AddAttribute("rental.id", result.Rental.ID)
	}

	respondJSON(c, http.StatusOK, RentCarResponse{
		Message:     "Proceed to payment",
		PaymentLink: result.PaymentLink,
		RentalID:    result.Rental.ID,
		TotalPrice:  result.Rental.TotalPrice,
		Days:        result.Days,
	})
}
