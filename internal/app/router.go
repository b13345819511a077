package app

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"devalayaum/internal/handler"
	"devalayaum/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	PaymentHandler *handler.PaymentHandler
	DonorHandler   *handler.DonorHandler
	CatalogHandler *handler.CatalogHandler
	BookingHandler *handler.BookingHandler
	RateLimiter    *middleware.RateLimiter
	RedisClient    *redis.Client
	NewRelicApp    *newrelic.Application
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORSMiddleware())

	// Add New Relic middleware if enabled.
	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
		router.Use(middleware.PaymentAttributes())
	}

	if deps.RedisClient != nil {
		router.Use(middleware.IdempotencyMiddleware(deps.RedisClient))
	}

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Mutations that open checkouts or settle payments are rate limited per IP.
	limited := func(h gin.HandlerFunc) []gin.HandlerFunc {
		if deps.RateLimiter == nil {
			return []gin.HandlerFunc{h}
		}
		return []gin.HandlerFunc{deps.RateLimiter.Middleware(), h}
	}

	// Payment routes.
	payments := router.Group("/payments")
	{
		payments.POST("/:domain/create-order", limited(deps.PaymentHandler.CreateOrder)...)
		payments.POST("/:domain/verify", limited(deps.PaymentHandler.VerifySignature)...)
		payments.GET("/:domain/verify", deps.PaymentHandler.VerifyStatus)
		payments.POST("/:domain/callback", deps.PaymentHandler.Callback)
		payments.GET("/orders/:orderId", deps.PaymentHandler.GetPayment)
	}

	router.GET("/donors", deps.DonorHandler.List)

	// Catalog routes.
	router.GET("/donations", deps.CatalogHandler.ListDonations)
	router.GET("/donations/:id", deps.CatalogHandler.GetDonation)
	router.GET("/products", deps.CatalogHandler.ListProducts)
	router.GET("/products/:id", deps.CatalogHandler.GetProduct)
	router.GET("/pujas", deps.CatalogHandler.ListPujas)

	// Booking routes.
	bookings := router.Group("/bookings")
	{
		bookings.POST("", limited(deps.BookingHandler.Create)...)
		bookings.GET("/:id", deps.BookingHandler.Get)
	}

	return router
}
