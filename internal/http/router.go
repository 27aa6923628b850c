package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"trip-integrity-service/internal/http/middleware"
	"trip-integrity-service/internal/metrics"
)

// HealthFunc reports whether the service's dependencies are reachable.
type HealthFunc func(ctx context.Context) error

func NewRouter(handler *Handler, authMiddleware gin.HandlerFunc, health HealthFunc, env string, log zerolog.Logger) *gin.Engine {
	if env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLog(log))
	router.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"*"},
		ExposeHeaders:   []string{"Content-Type"},
		MaxAge:          12 * time.Hour,
	}))

	router.GET("/healthz", func(c *gin.Context) {
		if health != nil {
			if err := health(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	protected := router.Group("/api/v1")
	protected.Use(authMiddleware)
	{
		protected.POST("/trips", handler.createTrip)
		protected.POST("/trips/validate", handler.validateTrip)
		protected.PUT("/trips/:id", handler.updateTrip)
		protected.DELETE("/trips/:id", handler.deleteTrip)
		protected.POST("/trips/:id/cascade-preview", handler.previewCascade)

		protected.GET("/availability", handler.checkAvailability)

		protected.GET("/sweeps/overlaps", handler.findOverlaps)
		protected.GET("/sweeps/odometer-gaps/:vehicleId", handler.findOdometerGaps)
		protected.GET("/sweeps/anomalies", handler.findAnomalies)

		protected.GET("/vehicles/:id/chain-breaks", handler.detectChainBreaks)
		protected.POST("/vehicles/:id/mileage-chain/rebuild", handler.rebuildChain)
		protected.POST("/vehicles/:id/baseline/recompute", handler.recomputeBaseline)

		protected.GET("/audit", handler.searchAudit)
		protected.GET("/audit/rollups", handler.auditRollups)
		protected.GET("/audit/entities/:type/:id", handler.entityAuditTrail)
	}

	return router
}
