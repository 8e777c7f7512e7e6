package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/go-johnnyhe/jobs/internal/api/handler"
	"github.com/go-johnnyhe/jobs/internal/telemetry"
)

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	// Health check endpoint, includes a database round trip
	r.GET("/health", func(c *gin.Context) {
		if err := deps.DBClient.HealthCheck(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "unhealthy",
				"service": "job-tracker-api",
				"error":   err.Error(),
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "job-tracker-api",
		})
	})

	// Prometheus metrics
	r.GET("/metrics", gin.WrapH(telemetry.Handler()))

	jobHandler := handler.NewJobHandler(deps)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		jobs := v1.Group("/jobs")
		{
			// GET /api/v1/jobs/stats - Aggregate posting counts
			jobs.GET("/stats", jobHandler.GetStats)

			// GET /api/v1/jobs/recent - Most recently discovered postings
			jobs.GET("/recent", jobHandler.ListRecent)
		}

		sources := v1.Group("/sources")
		{
			// GET /api/v1/sources/health - Per-source failure state
			sources.GET("/health", jobHandler.ListSourceHealth)
		}
	}

	return r
}
