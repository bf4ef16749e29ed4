package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"carrental/internal/domain"
	"carrental/internal/repository"
	"carrental/internal/service"
)

// CarHandler handles HTTP requests for car inventory.
type CarHandler struct {
	carService *service.CarService
}

// NewCarHandler creates a new CarHandler.
func NewCarHandler(carService *service.CarService) *CarHandler {
	return &CarHandler{carService: carService}
}

// CarResponse is the HTTP representation of a car.
type CarResponse struct {
	ID          string  `json:"id"`
	Make        string  `json:"make"`
	Model       string  `json:"model"`
	Year        int     `json:"year"`
	Price       float64 `json:"price"`
	Description string  `json:"description,omitempty"`
	Color       string  `json:"color,omitempty"`
	Brand       string  `json:"brand,omitempty"`
	IsRented    bool    `json:"isRented"`
	CreatedAt   string  `json:"createdAt"`
	UpdatedAt   string  `json:"updatedAt"`
}

// CarResultResponse is returned by create and update.
type CarResultResponse struct {
	Message string      `json:"message"`
	Car     CarResponse `json:"car"`
}

// CarListResponse is returned by list and search.
type CarListResponse struct {
	Cars  []CarResponse `json:"cars"`
	Count int           `json:"count"`
}

func toCarResponse(car *domain.Car) CarResponse {
	return CarResponse{
		ID:          car.ID,
		Make:        car.Make,
		Model:       car.Model,
		Year:        car.Year,
		Price:       car.Price,
		Description: car.Description,
		Color:       car.Color,
		Brand:       car.Brand,
		IsRented:    car.IsRented,
		CreatedAt:   car.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   car.UpdatedAt.Format(time.RFC3339),
	}
}

func toCarList(cars []*domain.Car) CarListResponse {
	out := make([]CarResponse, 0, len(cars))
	for _, car := range cars {
		out = append(out, toCarResponse(car))
	}
	return CarListResponse{Cars: out, Count: len(out)}
}

// AddCar handles POST /api/cars/add-car
func (h *CarHandler) AddCar(c *gin.Context) {
	var req service.CarInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Invalid request body"})
		return
	}

	car, err := h.carService.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, CarResultResponse{
		Message: "Car added successfully",
		Car:     toCarResponse(car),
	})
}

// GetCars handles GET /api/cars/get-cars
func (h *CarHandler) GetCars(c *gin.Context) {
	cars, err := h.carService.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toCarList(cars))
}

// SearchCars handles GET /api/cars/search-cars
func (h *CarHandler) SearchCars(c *gin.Context) {
	filter, ok := parseCarFilter(c)
	if !ok {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Invalid search parameters"})
		return
	}

	cars, err := h.carService.Search(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toCarList(cars))
}

// EditCar handles PUT /api/cars/edit-car/:id
func (h *CarHandler) EditCar(c *gin.Context) {
	var req service.CarUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Invalid request body"})
		return
	}

	car, err := h.carService.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, CarResultResponse{
		Message: "Car updated successfully",
		Car:     toCarResponse(car),
	})
}

// DeleteCar handles DELETE /api/cars/delete-car/:id
func (h *CarHandler) DeleteCar(c *gin.Context) {
	if err := h.carService.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, MessageResponse{Message: "Car deleted successfully"})
}

// parseCarFilter reads the search query. Returns false on malformed numbers.
func parseCarFilter(c *gin.Context) (repository.CarFilter, bool) {
	filter := repository.CarFilter{
		Make:  c.Query("make"),
		Model: c.Query("model"),
		Brand: c.Query("brand"),
		Color: c.Query("color"),
	}

	if v := strings.TrimSpace(c.Query("year")); v != "" {
		year, err := strconv.Atoi(v)
		if err != nil {
			return filter, false
		}
		filter.Year = year
	}
	if v := strings.TrimSpace(c.Query("minPrice")); v != "" {
		p, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return filter, false
		}
		filter.MinPrice = &p
	}
	if v := strings.TrimSpace(c.Query("maxPrice")); v != "" {
		p, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return filter, false
		}
		filter.MaxPrice = &p
	}
	if v := strings.TrimSpace(c.Query("available")); v != "" {
		available, err := strconv.ParseBool(v)
		if err != nil {
			return filter, false
		}
		filter.Available = available
	}
	return filter, true
}
