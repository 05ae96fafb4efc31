package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"carpool/internal/app"
	"carpool/internal/config"
	"carpool/internal/fare"
	"carpool/internal/geocode"
	"carpool/internal/handler"
	internalRedis "carpool/internal/redis"
	"carpool/internal/repository/postgres"
	"carpool/internal/service"
)

func main() {
	// Load configuration.
	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize New Relic first so the database driver can be instrumented.
	var nrApp *newrelic.Application
	var err error
	if cfg.NewRelic.Enabled && cfg.NewRelic.LicenseKey != "" {
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			log.Printf("failed to initialize New Relic: %v", err)
		} else {
			log.Printf("New Relic enabled: app=%s", cfg.NewRelic.AppName)
		}
	}

	// Initialize database with New Relic instrumentation.
	db, err := app.NewDatabase(ctx, cfg.Database, nrApp)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Connected to PostgreSQL")

	// Initialize Redis with New Relic instrumentation.
	redisClient, err := app.NewRedisClient(ctx, cfg.Redis, nrApp)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("Connected to Redis")

	// Wire dependencies.
	server := wireServer(db, redisClient, nrApp, cfg)

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
		log.Fatalf("server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

// wireServer wires all dependencies and returns the HTTP server.
func wireServer(db *sql.DB, redisClient *redis.Client, nrApp *newrelic.Application, cfg *config.Config) *http.Server {
	// Initialize Redis stores.
	locationStore := internalRedis.NewLocationStore(redisClient)
	lockStore := internalRedis.NewLockStore(redisClient)
	cacheStore := internalRedis.NewCacheStore(redisClient)
	presenceStore := internalRedis.NewPresenceStore(redisClient)
	eventPublisher := internalRedis.NewEventPublisher(redisClient)

	// Initialize repositories.
	riderRepo := postgres.NewRiderRepository(db)
	driverRepo := postgres.NewDriverRepository(db)
	tripRepo := postgres.NewTripRepository(db)

	// Initialize services.
	allocator := fare.NewAllocator(fare.Policy{
		BaseFare:        cfg.Fare.BaseFare,
		PerKmRate:       cfg.Fare.PerKmRate,
		SharingDiscount: cfg.Fare.SharingDiscount,
	})
	matcher := service.NewMatcher(tripRepo, service.MatcherConfig{
		PickupRadiusKm: cfg.Matching.PickupRadiusKm,
		DriverRadiusKm: cfg.Matching.DriverRadiusKm,
		Policy:         service.MatchPolicy(cfg.Matching.Policy),
	})
	notifier := service.NewNotifier(eventPublisher)
	surgeService := service.NewSurgeService(locationStore, tripRepo)
	bookingService := service.NewBookingService(
		tripRepo, riderRepo, matcher, allocator, surgeService,
		notifier, lockStore, cacheStore, cfg.Matching.MaxRetries,
	)
	driverService := service.NewDriverService(
		driverRepo, tripRepo, locationStore, cacheStore, matcher,
		notifier, cfg.Matching.MaxRetries,
	)
	riderService := service.NewRiderService(riderRepo)

	// Geocoding is optional; without it only coordinate bookings work.
	var geocoder geocode.Geocoder
	if cfg.Geocoder.Enabled && cfg.Geocoder.APIKey != "" {
		g, err := geocode.NewGoogleGeocoder(cfg.Geocoder.APIKey)
		if err != nil {
			log.Printf("failed to initialize geocoder: %v", err)
		} else {
			geocoder = g
		}
	}

	// Initialize handlers.
	rideHandler := handler.NewRideHandler(bookingService, geocoder)
	driverHandler := handler.NewDriverHandler(driverService)
	userHandler := handler.NewUserHandler(riderService)
	sessionHandler := handler.NewSessionHandler(presenceStore)

	// Create router.
	router := app.NewRouter(app.RouterDeps{
		RideHandler:    rideHandler,
		DriverHandler:  driverHandler,
		UserHandler:    userHandler,
		SessionHandler: sessionHandler,
		RedisClient:    redisClient,
		NewRelicApp:    nrApp,
	})

	// Create HTTP server.
	return &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
}
