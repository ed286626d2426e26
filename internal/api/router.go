package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter wires the sync trigger, run history, health and metrics endpoints.
func NewRouter(importer Importer, gatherer prometheus.Gatherer, runTimeout time.Duration, logger *slog.Logger) *gin.Engine {
	router := gin.New()

	router.Use(ginLogger(logger))
	router.Use(gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	handler := NewHandler(importer, runTimeout, logger)

	v1 := router.Group("/api/v1")
	v1.POST("/sync", handler.Sync)
	v1.GET("/runs", handler.ListRuns)

	return router
}

func ginLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		logger.Info("HTTP request",
			"method", method,
			"path", path,
			"status_code", c.Writer.Status(),
			"client_ip", c.ClientIP(),
			"duration", time.Since(start),
		)
	}
}
