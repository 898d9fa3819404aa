// Package httpapi exposes the session and the Prometheus registry over HTTP.
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// NewRouter wires the API routes. metrics serves /metrics.
func NewRouter(h *Handlers, metrics http.Handler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(h.log))

	router.GET("/healthz", h.HealthCheck)
	router.GET("/metrics", gin.WrapH(metrics))

	api := router.Group("/api")
	{
		api.GET("/kpis", h.GetKPIs)
		api.GET("/tickets", h.GetTickets)
		api.GET("/tables", h.GetTables)
		api.GET("/options", h.GetOptions)
		api.GET("/export.xlsx", h.GetExport)
		api.GET("/validation", h.GetValidation)
		api.POST("/upload/tickets", h.UploadTickets)
		api.POST("/upload/logins", h.UploadLogins)
	}
	return router
}

func requestLogger(log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		}).Debug("request")
	}
}
