package routes

import (
	"net/http"

	"github.com/Cyvadra/stockwatch/internal/handlers"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRoutes configures all the routes for the application
func SetupRoutes(r *gin.Engine, h *handlers.Handler) {
	api := r.Group("/api/v1")
	{
		// Tracked SKUs and their history
		skus := api.Group("/skus")
		{
			skus.GET("", h.ListSkus)
			skus.POST("", h.AddSkus)
			skus.GET("/:id", h.GetSku)
			skus.DELETE("/:id", h.DeleteSku)
			skus.GET("/:id/has-history", h.HasHistory)
			skus.GET("/:id/history", h.GetHistory)
			skus.GET("/:id/export", h.ExportHistory)
		}
		api.GET("/skus-paginated", h.ListSkusPaginated)

		// Runs
		api.POST("/fetch-now", h.FetchNow)
		api.POST("/fetch-sku/:id", h.FetchSku)
		api.POST("/run-analysis", h.RunAnalysis)
		api.GET("/status", h.Status)
		api.GET("/schedule/history", h.GetRunLogs)

		alerts := api.Group("/alerts")
		{
			alerts.GET("", h.GetAlerts)
			alerts.GET("/:id", h.GetAlert)
		}

		configs := api.Group("/system-configs")
		{
			configs.GET("", h.GetSystemConfigs)
			configs.POST("", h.UpdateSystemConfigs)
			configs.GET("/effective", h.GetEffectiveThresholds)
		}

		schedules := api.Group("/schedules")
		{
			schedules.GET("", h.ListSchedules)
			schedules.POST("", h.CreateSchedule)
			schedules.GET("/:id", h.GetSchedule)
			schedules.PUT("/:id", h.UpdateSchedule)
			schedules.DELETE("/:id", h.DeleteSchedule)
			schedules.POST("/:id/toggle", h.ToggleSchedule)
			schedules.GET("/by-name/:name", h.GetScheduleByName)
			schedules.PUT("/by-name/:name", h.SetScheduleCron)
		}

		searches := api.Group("/search-configs")
		{
			searches.GET("", h.ListSearchConfigs)
			searches.POST("", h.CreateSearchConfig)
			searches.GET("/:id", h.GetSearchConfig)
			searches.PUT("/:id", h.UpdateSearchConfig)
			searches.DELETE("/:id", h.DeleteSearchConfig)
			searches.POST("/:id/run", h.RunSearchConfig)
		}
	}

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "stockwatch",
		})
	})

	// Root endpoint
	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Warehouse Stock Monitor",
			"version": "1.0.0",
			"endpoints": gin.H{
				"skus":      "/api/v1/skus",
				"alerts":    "/api/v1/alerts",
				"status":    "/api/v1/status",
				"schedules": "/api/v1/schedules",
				"metrics":   "/metrics",
				"health":    "/health",
			},
		})
	})
}
