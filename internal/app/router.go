package app

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"carpool/internal/handler"
	"carpool/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	RideHandler    *handler.RideHandler
	DriverHandler  *handler.DriverHandler
	UserHandler    *handler.UserHandler
	SessionHandler *handler.SessionHandler
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
	}

	if deps.RedisClient != nil {
		router.Use(middleware.Idempotency(deps.RedisClient))
	}

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// API v1 routes.
	v1 := router.Group("/v1")
	{
		// Rider routes.
		riders := v1.Group("/riders")
		{
			riders.POST("", deps.UserHandler.RegisterRider)
			riders.GET("", deps.UserHandler.ListRiders)
			riders.GET("/:id", deps.UserHandler.GetRider)
		}

		// Ride routes.
		rides := v1.Group("/rides")
		{
			rides.POST("", deps.RideHandler.BookRide)
			rides.GET("", deps.RideHandler.ListPending)
			rides.POST("/available", deps.RideHandler.FindAvailable)
			rides.GET("/:id", deps.RideHandler.GetTrip)
			rides.POST("/:id/join", deps.RideHandler.JoinTrip)
			rides.POST("/:id/cancel", deps.RideHandler.CancelRide)
		}

		// Driver routes.
		drivers := v1.Group("/drivers")
		{
			drivers.POST("", deps.DriverHandler.RegisterDriver)
			drivers.GET("/:id", deps.DriverHandler.GetDriver)
			drivers.PUT("/:id/location", deps.DriverHandler.UpdateLocation)
			drivers.POST("/:id/offline", deps.DriverHandler.GoOffline)
			drivers.GET("/:id/trips", deps.DriverHandler.NearbyTrips)
			drivers.POST("/:id/trips/:trip_id/accept", deps.DriverHandler.AcceptTrip)
			drivers.POST("/:id/trips/:trip_id/reject", deps.DriverHandler.RejectTrip)
			drivers.POST("/:id/trips/:trip_id/complete", deps.DriverHandler.CompleteTrip)
		}

		// Session routes.
		sessions := v1.Group("/sessions")
		{
			sessions.POST("", deps.SessionHandler.Connect)
			sessions.GET("/:role", deps.SessionHandler.Online)
			sessions.GET("/:role/:id", deps.SessionHandler.Lookup)
			sessions.DELETE("/:role/:id", deps.SessionHandler.Disconnect)
		}
	}

	return router
}
