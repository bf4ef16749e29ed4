package app

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"carrental/internal/handler"
	"carrental/internal/metrics"
	"carrental/internal/middleware"
	"carrental/internal/redis"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	CarHandler     *handler.CarHandler
	RentalHandler  *handler.RentalHandler
	PaymentHandler *handler.PaymentHandler
	CarCache       redis.CacheStoreInterface // nil disables the listing cache
	NewRelicApp    *newrelic.Application
	AuthSecret     string
	AllowedOrigins []string
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORSMiddleware(deps.AllowedOrigins))
	router.Use(metrics.Middleware)

	// Add New Relic middleware if enabled.
	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
		router.Use(middleware.NewRelicErrors())
	}

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	auth := middleware.Auth(deps.AuthSecret)

	api := router.Group("/api")
	{
		// Car routes.
		cars := api.Group("/cars")
		{
			cars.POST("/rent-car/:carId", auth, deps.RentalHandler.RentCar)

			listings := cars.Group("", middleware.ResponseCache(deps.CarCache))
			listings.GET("/get-cars", deps.CarHandler.GetCars)
			listings.GET("/search-cars", deps.CarHandler.SearchCars)

			cars.POST("/add-car", auth, deps.CarHandler.AddCar)
			cars.PUT("/edit-car/:id", auth, deps.CarHandler.EditCar)
			cars.DELETE("/delete-car/:id", auth, deps.CarHandler.DeleteCar)
		}

		// Payment gateway routes.
		payment := api.Group("/payment")
		{
			payment.GET("/callback", deps.PaymentHandler.Callback)
			payment.POST("/webhook", deps.PaymentHandler.Webhook)
		}
	}

	return router
}
