package routes

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/mugz-josh/Deliverieseasy/internal/api/handlers"
	"github.com/mugz-josh/Deliverieseasy/internal/api/middleware"
	apperrors "github.com/mugz-josh/Deliverieseasy/pkg/errors"
	"github.com/mugz-josh/Deliverieseasy/pkg/logger"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
)

// Options carries the cross-cutting middleware settings
type Options struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
	RateLimit      gin.HandlerFunc
	NewRelic       *newrelic.Application
}

// SetupRoutes configures all API routes
func SetupRoutes(r *gin.Engine, h *handlers.Handlers, log *logger.Logger, opts Options) {
	r.Use(middleware.RequestID(), middleware.Logger(log), middleware.Recovery(log))

	// Add New Relic middleware if enabled
	if opts.NewRelic != nil {
		r.Use(nrgin.Middleware(opts.NewRelic))
	}

	r.Use(cors.New(cors.Config{
		AllowOrigins:     opts.AllowedOrigins,
		AllowMethods:     opts.AllowedMethods,
		AllowHeaders:     opts.AllowedHeaders,
		ExposeHeaders:    []string{middleware.RequestIDHeader, "Idempotent-Replayed"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", h.Health)
	r.GET("/", h.Root)

	api := r.Group("/api")
	if opts.RateLimit != nil {
		api.Use(opts.RateLimit)
	}
	{
		// WebSocket connection for live tracking
		api.GET("/ws", h.HandleWebSocket)

		deliveries := api.Group("/deliveries")
		{
			deliveries.GET("", h.ListDeliveries)
			deliveries.POST("", h.CreateDelivery)
			deliveries.GET("/:id", h.GetDelivery)
			deliveries.PUT("/:id/status", h.UpdateDeliveryStatus)
			deliveries.PUT("/:id/location", h.UpdateDeliveryLocation)
			deliveries.GET("/:id/logs", h.ListDeliveryLogs)
		}

		users := api.Group("/users")
		{
			users.GET("", h.ListUsers)
			users.POST("", h.CreateUser)
			users.GET("/riders/active", h.ListActiveRiders)
			users.GET("/:id", h.GetUser)
			users.PUT("/:id/role", h.UpdateUserRole)
			users.DELETE("/:id", h.DeleteUser)
		}

		api.POST("/bookings", h.CreateBooking)
		api.POST("/send-package", h.SendPackage)
	}

	r.NoRoute(func(c *gin.Context) {
		appErr := apperrors.ErrRouteNotFound
		c.JSON(appErr.Status, gin.H{"success": false, "message": appErr.Message})
	})
}
