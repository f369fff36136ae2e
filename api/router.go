package api

import (
	"net/http"
	"time"

	"github.com/Domenick1991/skybooking/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const HeaderRequestID = "X-Request-ID"

type Handlers struct {
	Flights   *FlightHandler
	Reference *ReferenceHandler
	Orders    *OrderHandler
	Webhook   *WebhookHandler
}

// NewRouter mounts the public API under /api/v1. gatherer may be nil, in
// which case /metrics is not exposed.
func NewRouter(h Handlers, log logger.Logger, gatherer prometheus.Gatherer) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(log))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	v1 := router.Group("/api/v1")
	if h.Flights != nil {
		h.Flights.Register(v1.Group("/flights"))
	}
	if h.Reference != nil {
		h.Reference.Register(v1)
	}
	if h.Orders != nil {
		h.Orders.Register(v1.Group("/orders", RequireUser()))
	}
	if h.Webhook != nil {
		h.Webhook.Register(v1.Group("/payments"))
	}
	return router
}

func requestLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := c.GetHeader(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(HeaderRequestID, requestID)

		c.Next()

		fields := []interface{}{
			"request_id", requestID,
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			log.Error("request failed", fields...)
			return
		}
		log.Debug("request served", fields...)
	}
}
