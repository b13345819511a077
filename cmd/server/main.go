package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"
	_ "go.uber.org/automaxprocs"

	"devalayaum/internal/app"
	"devalayaum/internal/config"
	"devalayaum/internal/handler"
	"devalayaum/internal/middleware"
)

func main() {
	// Load configuration. Payments must not start half-configured.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid payment configuration:\n%v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize New Relic FIRST (before database so we can instrument DB).
	nrApp := app.NewNewRelic(cfg.NewRelic)
	if nrApp != nil {
		defer nrApp.Shutdown(5 * time.Second)
	}

	// Initialize database with New Relic instrumentation.
	db, err := app.NewDatabase(ctx, cfg.Database, nrApp)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()
	if err := app.CheckSchema(ctx, db); err != nil {
		log.Fatalf("database not ready: %v", err)
	}
	log.Println("Connected to PostgreSQL")

	// Initialize Redis with New Relic instrumentation.
	redisClient, err := app.NewRedisClient(ctx, cfg.Redis, nrApp)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("Connected to Redis")

	services, err := app.NewServices(cfg, db, redisClient)
	if err != nil {
		log.Fatalf("failed to wire services: %v", err)
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	stopCleanup := make(chan struct{})
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				limiter.Cleanup()
			case <-stopCleanup:
				return
			}
		}
	}()
	defer close(stopCleanup)

	server := newServer(cfg, services, limiter, redisClient, nrApp)

	// Start server in goroutine.
	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

// newServer builds the handlers and returns the HTTP server.
func newServer(
	cfg *config.Config,
	services *app.Services,
	limiter *middleware.RateLimiter,
	redisClient *redis.Client,
	nrApp *newrelic.Application,
) *http.Server {
	router := app.NewRouter(app.RouterDeps{
		PaymentHandler: handler.NewPaymentHandler(services.Payments, handler.CallbackAuth{
			Username:      cfg.PhonePe.CallbackUsername,
			Password:      cfg.PhonePe.CallbackPassword,
			WebhookSecret: cfg.Razorpay.WebhookSecret,
		}),
		DonorHandler:   handler.NewDonorHandler(services.Donors),
		CatalogHandler: handler.NewCatalogHandler(services.Catalog),
		BookingHandler: handler.NewBookingHandler(services.Bookings),
		RateLimiter:    limiter,
		RedisClient:    redisClient,
		NewRelicApp:    nrApp,
	})

	return &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
}
